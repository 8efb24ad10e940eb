// Package pipeline drives one ETL run: fetch both feeds, merge, clean,
// enrich with administrative regions and load into Postgres.
package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cuartodemilla/fuel-etl/internal/clean"
	"github.com/cuartodemilla/fuel-etl/internal/config"
	"github.com/cuartodemilla/fuel-etl/internal/feed"
	"github.com/cuartodemilla/fuel-etl/internal/fetcher"
	"github.com/cuartodemilla/fuel-etl/internal/geo"
	"github.com/cuartodemilla/fuel-etl/internal/load"
	"github.com/cuartodemilla/fuel-etl/internal/model"
	"github.com/cuartodemilla/fuel-etl/internal/store"
)

// Loader persists enriched stations.
type Loader interface {
	Load(ctx context.Context, stations []*model.Station) (*load.Result, error)
}

// RunRecorder tracks run lifecycle. *store.RunLog satisfies it.
type RunRecorder interface {
	Start(ctx context.Context, runID string) (int64, error)
	Complete(ctx context.Context, id int64, result *store.RunResult) error
	Fail(ctx context.Context, id int64, errMsg string) error
}

var _ RunRecorder = (*store.RunLog)(nil)

// Pipeline runs the stages strictly in sequence.
type Pipeline struct {
	cfg     *config.Config
	fetcher fetcher.Fetcher
	locator geo.Locator
	loader  Loader
	runs    RunRecorder
	newID   func() string
}

// New creates a Pipeline. runs may be nil to skip the run ledger.
func New(cfg *config.Config, f fetcher.Fetcher, loc geo.Locator, loader Loader, runs RunRecorder) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		fetcher: f,
		locator: loc,
		loader:  loader,
		runs:    runs,
		newID:   uuid.NewString,
	}
}

// Sources returns the places and prices datasets in fetch order.
func Sources(cfg config.SourcesConfig) []fetcher.Source {
	return []fetcher.Source{
		{Name: "places", URL: cfg.PlacesURL, Path: filepath.Join(cfg.DataDir, cfg.PlacesFile)},
		{Name: "prices", URL: cfg.PricesURL, Path: filepath.Join(cfg.DataDir, cfg.PricesFile)},
	}
}

// Fetch replaces the local copies of both feeds and returns the bytes
// written per source name.
func (p *Pipeline) Fetch(ctx context.Context) (map[string]int64, error) {
	sizes := make(map[string]int64, 2)
	for _, src := range Sources(p.cfg.Sources) {
		n, err := fetcher.Replace(ctx, p.fetcher, src)
		if err != nil {
			return sizes, eris.Wrap(err, "pipeline: fetch")
		}
		sizes[src.Name] = n
	}
	return sizes, nil
}

// Run executes one full pass. The returned report is non-nil even on error
// and carries the counts of the stages that completed.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	report := &Report{RunID: p.newID(), StartedAt: time.Now().UTC()}
	log := zap.L().With(zap.String("component", "pipeline"), zap.String("run_id", report.RunID))
	log.Info("pipeline: starting run")

	var ledgerID int64
	if p.runs != nil {
		id, err := p.runs.Start(ctx, report.RunID)
		if err != nil {
			log.Warn("pipeline: failed to record run start", zap.Error(err))
		} else {
			ledgerID = id
		}
	}

	err := p.run(ctx, report, log)
	report.Duration = time.Since(report.StartedAt)

	if err != nil {
		log.Error("pipeline: run failed", zap.Error(err))
		if ledgerID != 0 {
			if ferr := p.runs.Fail(ctx, ledgerID, err.Error()); ferr != nil {
				log.Warn("pipeline: failed to record run failure", zap.Error(ferr))
			}
		}
		return report, err
	}

	if ledgerID != 0 {
		if cerr := p.runs.Complete(ctx, ledgerID, report.RunResult()); cerr != nil {
			log.Warn("pipeline: failed to record run completion", zap.Error(cerr))
		}
	}
	log.Info("pipeline: run complete",
		zap.Int("stations", report.Load.Stations),
		zap.Int("prices", report.Load.Prices),
		zap.Duration("load_duration", report.Load.Duration),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

func (p *Pipeline) run(ctx context.Context, report *Report, log *zap.Logger) error {
	sizes, err := p.Fetch(ctx)
	report.Fetched = sizes
	if err != nil {
		return err
	}

	sources := Sources(p.cfg.Sources)
	set, err := feed.MergeFiles(ctx, sources[0].Path, sources[1].Path)
	if err != nil {
		return eris.Wrap(err, "pipeline: merge")
	}
	report.Merged = set.Len()

	cleaned, cleanStats := clean.Clean(set.Stations())
	report.Clean = cleanStats

	enriched, enrichStats, err := geo.Enrich(ctx, cleaned, p.locator, geo.Options{
		TopStates: p.cfg.Enrich.TopStates,
		MaxRows:   p.cfg.Enrich.MaxRows,
	})
	report.Enrich = enrichStats
	if err != nil {
		return eris.Wrap(err, "pipeline: enrich")
	}

	log.Info("pipeline: loading", zap.Int("stations", len(enriched)))
	res, err := p.loader.Load(ctx, enriched)
	if err != nil {
		return eris.Wrap(err, "pipeline: load")
	}
	report.Load = *res
	return nil
}
