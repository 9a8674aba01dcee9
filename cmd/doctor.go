package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/adhocore/gronx"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/socialpilot/internal/config"
	"github.com/nextlevelbuilder/socialpilot/internal/store/pg"
	"github.com/nextlevelbuilder/socialpilot/internal/upgrade"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check system environment and configuration health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor(cmd.OutOrStdout())
		},
	}
}

func runDoctor(w io.Writer) {
	fmt.Fprintln(w, "socialpilot doctor")
	fmt.Fprintf(w, "  Version:  %s\n", Version)
	fmt.Fprintf(w, "  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(w, "  Go:       %s\n", runtime.Version())
	fmt.Fprintln(w)

	cfgPath := resolveConfigPath()
	fmt.Fprintf(w, "  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Fprintln(w, " (NOT FOUND, using defaults)")
	} else {
		fmt.Fprintln(w, " (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(w, "  Config load error: %s\n", err)
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Database:")
	if cfg.IsManagedMode() {
		fmt.Fprintf(w, "    %-12s managed\n", "Mode:")
		checkPostgres(w, cfg.Database.PostgresDSN)
	} else {
		fmt.Fprintf(w, "    %-12s standalone\n", "Mode:")
		fmt.Fprintf(w, "    %-12s %s\n", "SQLite:", config.ExpandHome(cfg.Database.SQLitePath))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Provider:")
	fmt.Fprintf(w, "    %-12s %s (%s)\n", "Kind:", cfg.Provider.Kind, cfg.Provider.Model)
	checkSecret(w, "API key:", cfg.Provider.APIKey)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Webhook:")
	fmt.Fprintf(w, "    %-12s %s\n", "Path:", cfg.Webhook.Path)
	checkSecret(w, "Verify:", cfg.Webhook.VerifyToken)
	checkSecret(w, "App secret:", cfg.Webhook.AppSecret)

	if !cfg.IsManagedMode() {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "  Pages:")
		pages := cfg.PageList()
		if len(pages) == 0 {
			fmt.Fprintln(w, "    (none configured)")
		}
		for _, p := range pages {
			checkPage(w, p)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Monitor:")
	switch {
	case !cfg.Monitor.Enabled:
		fmt.Fprintf(w, "    %-12s disabled\n", "Schedule:")
	case !gronx.New().IsValid(cfg.Monitor.Schedule):
		fmt.Fprintf(w, "    %-12s %q (INVALID)\n", "Schedule:", cfg.Monitor.Schedule)
	default:
		fmt.Fprintf(w, "    %-12s %s\n", "Schedule:", cfg.Monitor.Schedule)
	}
	checkNotifier(w, "Telegram:", cfg.Alerts.Telegram.Token != "", cfg.Alerts.Telegram.ChatID != 0)
	checkNotifier(w, "Discord:", cfg.Alerts.Discord.Token != "", cfg.Alerts.Discord.ChannelID != "")

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Doctor check complete.")
}

func checkPostgres(w io.Writer, dsn string) {
	db, err := pg.OpenDB(dsn)
	if err != nil {
		fmt.Fprintf(w, "    %-12s CONNECT FAILED (%s)\n", "Status:", err)
		return
	}
	defer db.Close()
	fmt.Fprintf(w, "    %-12s connected\n", "Status:")

	s, err := upgrade.CheckSchema(context.Background(), db)
	switch {
	case err != nil:
		fmt.Fprintf(w, "    %-12s CHECK FAILED (%s)\n", "Schema:", err)
	case s.Dirty:
		fmt.Fprintf(w, "    %-12s v%d (DIRTY, run: socialpilot migrate force %d)\n", "Schema:", s.CurrentVersion, s.CurrentVersion-1)
	case s.Compatible:
		fmt.Fprintf(w, "    %-12s v%d (up to date)\n", "Schema:", s.CurrentVersion)
	case s.CurrentVersion > s.RequiredVersion:
		fmt.Fprintf(w, "    %-12s v%d (binary too old, requires v%d)\n", "Schema:", s.CurrentVersion, s.RequiredVersion)
	default:
		fmt.Fprintf(w, "    %-12s v%d (run: socialpilot migrate up)\n", "Schema:", s.CurrentVersion)
	}
}

func checkSecret(w io.Writer, label, v string) {
	if v == "" {
		fmt.Fprintf(w, "    %-12s (not set)\n", label)
		return
	}
	fmt.Fprintf(w, "    %-12s %s\n", label, maskSecret(v))
}

func maskSecret(v string) string {
	if len(v) <= 8 {
		return strings.Repeat("*", len(v))
	}
	return v[:4] + strings.Repeat("*", len(v)-8) + v[len(v)-4:]
}

func checkPage(w io.Writer, p config.PageConfig) {
	status := "enabled"
	switch {
	case !p.IsEnabled():
		status = "disabled"
	case p.AccessToken == "":
		status = "enabled (missing access token)"
	}
	fmt.Fprintf(w, "    %-24s %s\n", p.PageID+":", status)
}

func checkNotifier(w io.Writer, label string, hasToken, hasTarget bool) {
	status := "off"
	if hasToken && hasTarget {
		status = "on"
	} else if hasToken || hasTarget {
		status = "incomplete"
	}
	fmt.Fprintf(w, "    %-12s %s\n", label, status)
}
