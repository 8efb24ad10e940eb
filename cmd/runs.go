package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/cuartodemilla/fuel-etl/internal/monitoring"
	"github.com/cuartodemilla/fuel-etl/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent ETL runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		entries, err := store.NewRunLog(pool).List(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "runs")
		}

		if len(entries) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}

		formatRunsList(cmd.OutOrStdout(), entries)
		return nil
	},
}

var runsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Alert on stale data or repeated failures",
	Long:  "Evaluates recent runs against the monitoring thresholds, posts alerts to the webhook if configured, and exits non-zero when any alert fires.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		snap, err := monitoring.NewCollector(store.NewRunLog(pool)).Collect(ctx, cfg.Monitoring.LookbackRuns)
		if err != nil {
			return err
		}

		alerter := monitoring.NewAlerter(cfg.Monitoring)
		alerts := alerter.Evaluate(snap)
		if len(alerts) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		}

		for _, a := range alerts {
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s: %s\n", a.Severity, a.Type, a.Message)
		}
		alerter.SendAlerts(ctx, alerts)
		return eris.Errorf("runs check: %d alert(s)", len(alerts))
	},
}

func init() {
	runsCmd.Flags().Int("limit", 20, "maximum number of runs to show")
	runsCmd.Flags().Bool("json", false, "print entries as JSON")
	runsCmd.AddCommand(runsCheckCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a table of runs to out.
func formatRunsList(out io.Writer, entries []store.RunEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RUN\tSTATUS\tSTARTED\tDURATION\tSTATIONS\tPRICES\tERROR")
	_, _ = fmt.Fprintln(w, "---\t------\t-------\t--------\t--------\t------\t-----")

	for _, e := range entries {
		dur := "-"
		if e.CompletedAt != nil {
			dur = e.CompletedAt.Sub(e.StartedAt).Round(time.Second).String()
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			truncateID(e.RunID),
			e.Status,
			e.StartedAt.Format("2006-01-02 15:04"),
			dur,
			e.Stations,
			e.Prices,
			truncate(e.Error, 40),
		)
	}
	_ = w.Flush()
}

func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// truncate shortens s to n runes, ending in "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
