// Package monitoring evaluates the run ledger for stale data and repeated
// failures and posts alerts to a webhook.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/cuartodemilla/fuel-etl/internal/store"
)

// Snapshot holds a point-in-time view of ETL health.
type Snapshot struct {
	Total               int        `json:"total"`
	Complete            int        `json:"complete"`
	Failed              int        `json:"failed"`
	Running             int        `json:"running"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastSuccess         *time.Time `json:"last_success,omitempty"`
	LastError           string     `json:"last_error,omitempty"`
	LastStations        int        `json:"last_stations"`
	CollectedAt         time.Time  `json:"collected_at"`
}

// RunLister abstracts the run ledger methods needed by the collector.
type RunLister interface {
	List(ctx context.Context, limit int) ([]store.RunEntry, error)
	LastSuccess(ctx context.Context) (*time.Time, error)
}

var _ RunLister = (*store.RunLog)(nil)

// Collector gathers a Snapshot from the run ledger.
type Collector struct {
	runs RunLister
	now  func() time.Time
}

// NewCollector creates a new collector.
func NewCollector(runs RunLister) *Collector {
	return &Collector{runs: runs, now: time.Now}
}

// Collect summarises the most recent lookback runs.
func (c *Collector) Collect(ctx context.Context, lookback int) (*Snapshot, error) {
	entries, err := c.runs.List(ctx, lookback)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list runs")
	}

	snap := &Snapshot{Total: len(entries), CollectedAt: c.now().UTC()}

	// Entries are newest first; the failure streak ends at the first
	// completed run.
	streak := true
	for _, e := range entries {
		switch e.Status {
		case store.RunComplete:
			snap.Complete++
			if streak {
				snap.LastStations = e.Stations
			}
			streak = false
		case store.RunFailed:
			snap.Failed++
			if streak {
				snap.ConsecutiveFailures++
				if snap.LastError == "" {
					snap.LastError = e.Error
				}
			}
		case store.RunRunning:
			snap.Running++
		}
	}

	// The lookback window may not reach the last success.
	last, err := c.runs.LastSuccess(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: last success")
	}
	snap.LastSuccess = last

	return snap, nil
}
