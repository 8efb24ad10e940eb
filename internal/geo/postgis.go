package geo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/cuartodemilla/fuel-etl/internal/db"
)

// PostGISLocator resolves points with ST_Contains against a boundary table
// holding state, city and geom columns.
type PostGISLocator struct {
	pool  db.Pool
	query string
}

// NewPostGISLocator creates a locator over the given schema-qualified table.
func NewPostGISLocator(pool db.Pool, table string) *PostGISLocator {
	return &PostGISLocator{
		pool: pool,
		query: fmt.Sprintf(`
		SELECT b.state, b.city
		FROM %s b
		WHERE ST_Contains(b.geom, ST_SetSRID(ST_MakePoint($1, $2), 4326))
		LIMIT 1`, db.QuoteTable(table)),
	}
}

// Locate implements Locator.
func (p *PostGISLocator) Locate(ctx context.Context, lon, lat float64) (Region, bool, error) {
	var r Region
	err := p.pool.QueryRow(ctx, p.query, lon, lat).Scan(&r.State, &r.City)
	if errors.Is(err, pgx.ErrNoRows) {
		return Region{}, false, nil
	}
	if err != nil {
		return Region{}, false, eris.Wrap(err, "geo: locate point")
	}
	return r, true, nil
}
