package main

import "github.com/nextlevelbuilder/socialpilot/cmd"

func main() {
	cmd.Execute()
}
