package geo

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"go.uber.org/zap"

	"github.com/cuartodemilla/fuel-etl/internal/db"
)

// ImportBoundaries replaces the contents of table with the features of layer
// so PostGISLocator can query them. The table is created if missing. Rings
// are written as shells with holes so ST_Contains agrees with Layer.
func ImportBoundaries(ctx context.Context, pool db.Pool, layer *Layer, table string) (int, error) {
	log := zap.L().With(zap.String("component", "geo.import"))
	qt := db.QuoteTable(table)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "geo: import: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id    SERIAL PRIMARY KEY,
			state TEXT NOT NULL,
			city  TEXT NOT NULL,
			geom  geometry(MultiPolygon, 4326) NOT NULL
		)`, qt)); err != nil {
		return 0, eris.Wrap(err, "geo: import: create table")
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE %s", qt)); err != nil {
		return 0, eris.Wrap(err, "geo: import: truncate")
	}

	insert := fmt.Sprintf("INSERT INTO %s (state, city, geom) VALUES ($1, $2, ST_GeomFromEWKB($3))", qt)
	for _, f := range layer.Features {
		nested, err := nestRings(f.Geom)
		if err != nil {
			return 0, eris.Wrapf(err, "geo: import: nest rings %s/%s", f.State, f.City)
		}
		wkb, err := ewkb.Marshal(nested, ewkb.NDR)
		if err != nil {
			return 0, eris.Wrapf(err, "geo: import: encode %s/%s", f.State, f.City)
		}
		if _, err := tx.Exec(ctx, insert, f.State, f.City, wkb); err != nil {
			return 0, eris.Wrapf(err, "geo: import: insert %s/%s", f.State, f.City)
		}
	}

	if _, err := tx.Exec(ctx, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s USING gist (geom)",
		db.QuoteIdent(db.IndexName(table, "geom")), qt)); err != nil {
		return 0, eris.Wrap(err, "geo: import: create spatial index")
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "geo: import: commit")
	}

	log.Info("boundaries imported", zap.String("table", table), zap.Int("features", len(layer.Features)))
	return len(layer.Features), nil
}
