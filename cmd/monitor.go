package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/socialpilot/internal/alerts"
	"github.com/nextlevelbuilder/socialpilot/internal/config"
	"github.com/nextlevelbuilder/socialpilot/internal/monitor"
)

func monitorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Strategy health monitor",
	}
	cmd.AddCommand(monitorRunCmd())
	return cmd
}

func monitorRunCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one health-check cycle and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging()
			return runMonitorOnce(cmd.Context(), cmd.OutOrStdout(), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func runMonitorOnce(ctx context.Context, out io.Writer, asJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	stores, _, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	provider, err := buildProvider(cfg.Provider)
	if err != nil {
		return err
	}

	mon := monitor.New(monitor.Config{
		Strategies:       stores.Strategies,
		Posts:            stores.Posts,
		Sink:             alerts.NewSink(stores.Alerts, stores.Logs, buildNotifiers(cfg.Alerts)...),
		Provider:         provider,
		FallbackImageURL: cfg.Monitor.FallbackImageURL,
		Timeout:          cfg.Provider.Timeout(),
	})
	rep, err := mon.RunOnce(ctx)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return err
		}
	} else {
		writeReport(out, rep)
	}
	if rep.Err != nil {
		fmt.Fprintf(os.Stderr, "cycle finished with errors:\n%s\n", rep.Err)
	}
	return nil
}

const nameColumn = 28

// writeReport prints one line per strategy followed by its issues.
func writeReport(w io.Writer, rep *monitor.Report) {
	if len(rep.Strategies) == 0 {
		fmt.Fprintln(w, "No active strategies.")
		return
	}
	for _, sr := range rep.Strategies {
		name := runewidth.Truncate(sr.Name, nameColumn, "…")
		fmt.Fprintf(w, "%s  %-9s  gap %5.1fd  pending %d",
			runewidth.FillRight(name, nameColumn), sr.Verdict.Status, sr.Verdict.GapDays, sr.Verdict.PendingCount)
		if sr.AlertCreated {
			fmt.Fprint(w, "  alert")
		}
		if n := len(sr.Corrected); n > 0 {
			fmt.Fprintf(w, "  rewrote %d", n)
		}
		if sr.FixPostID != nil {
			fmt.Fprintf(w, "  fix %s", sr.FixPostID)
		}
		fmt.Fprintln(w)
		if len(sr.Verdict.Issues) > 0 {
			fmt.Fprintf(w, "    %s\n", strings.Join(sr.Verdict.Issues, "; "))
		}
	}
	counts := rep.StatusCounts()
	fmt.Fprintf(w, "\n%d healthy, %d at risk, %d critical (%s)\n",
		counts[monitor.StatusHealthy], counts[monitor.StatusAtRisk], counts[monitor.StatusCritical], rep.Duration.Round(time.Millisecond))
}
