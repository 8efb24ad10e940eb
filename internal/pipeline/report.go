package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/cuartodemilla/fuel-etl/internal/clean"
	"github.com/cuartodemilla/fuel-etl/internal/geo"
	"github.com/cuartodemilla/fuel-etl/internal/load"
	"github.com/cuartodemilla/fuel-etl/internal/store"
)

// Report holds per-stage counts for one run.
type Report struct {
	RunID     string           `json:"run_id"`
	StartedAt time.Time        `json:"started_at"`
	Duration  time.Duration    `json:"duration"`
	Fetched   map[string]int64 `json:"fetched"`
	Merged    int              `json:"merged"`
	Clean     clean.Stats      `json:"clean"`
	Enrich    geo.Stats        `json:"enrich"`
	Load      load.Result      `json:"load"`
}

// RunResult converts the report to a run ledger entry.
func (r *Report) RunResult() *store.RunResult {
	return &store.RunResult{
		Stations: r.Load.Stations,
		Prices:   r.Load.Prices,
		Metadata: map[string]any{
			"merged":           r.Merged,
			"incomplete":       r.Clean.Incomplete,
			"out_of_range":     r.Clean.OutOfRange,
			"unmapped":         r.Enrich.Unmapped,
			"off_region":       r.Enrich.OffRegion,
			"truncated":        r.Enrich.Truncated,
			"load_duration_ms": r.Load.Duration.Milliseconds(),
		},
	}
}

// Format renders the report for the terminal.
func (r *Report) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s\n", r.RunID)
	fmt.Fprintf(&b, "  fetched:   places %d bytes, prices %d bytes\n", r.Fetched["places"], r.Fetched["prices"])
	fmt.Fprintf(&b, "  merged:    %d stations\n", r.Merged)
	fmt.Fprintf(&b, "  cleaned:   %d kept (%d incomplete, %d out of range)\n",
		r.Clean.Kept, r.Clean.Incomplete, r.Clean.OutOfRange)
	fmt.Fprintf(&b, "  enriched:  %d kept (%d unmapped, %d off-region, %d truncated)\n",
		r.Enrich.Output, r.Enrich.Unmapped, r.Enrich.OffRegion, r.Enrich.Truncated)
	fmt.Fprintf(&b, "  loaded:    %d stations, %d prices\n", r.Load.Stations, r.Load.Prices)
	fmt.Fprintf(&b, "Load time: %s\n", r.Load.Duration.Round(time.Millisecond))
	return b.String()
}
