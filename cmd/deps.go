package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/cuartodemilla/fuel-etl/internal/config"
	"github.com/cuartodemilla/fuel-etl/internal/db"
	"github.com/cuartodemilla/fuel-etl/internal/fetcher"
	"github.com/cuartodemilla/fuel-etl/internal/geo"
)

// openPool connects to the configured destination database.
func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	return db.Connect(ctx, cfg.Store.DatabaseURL)
}

func newFetcher(c config.FetchConfig) *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:  c.UserAgent,
		Timeout:    time.Duration(c.TimeoutSecs) * time.Second,
		RatePerSec: c.RatePerSec,
	})
}

// newLocator builds the configured boundary provider.
func newLocator(c config.BoundariesConfig, pool db.Pool) (geo.Locator, error) {
	switch c.Provider {
	case "postgis":
		return geo.NewPostGISLocator(pool, c.Table), nil
	case "shapefile", "":
		return geo.LoadShapefile(c.Path, c.StateField, c.CityField)
	default:
		return nil, eris.Errorf("unknown boundaries provider %q", c.Provider)
	}
}
