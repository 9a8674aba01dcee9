package bus

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

const previewWidth = 60

// Preview collapses whitespace and truncates text to a fixed display width for logs.
func Preview(text string) string {
	return runewidth.Truncate(strings.Join(strings.Fields(text), " "), previewWidth, "…")
}
