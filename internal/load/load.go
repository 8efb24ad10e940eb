// Package load upserts cleaned stations and their fuel prices into the
// destination tables inside a single transaction.
package load

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cuartodemilla/fuel-etl/internal/db"
	"github.com/cuartodemilla/fuel-etl/internal/model"
)

// Destination tables owned by the web application schema.
const (
	StationTable = "gasoline_station"
	PriceTable   = "gasoline_price"
)

var (
	stationUpsert = db.UpsertConfig{
		Table:        StationTable,
		Columns:      []string{"id", "name", "register", "longitude", "latitude", "town", "state", "is_active"},
		ConflictKeys: []string{"id"},
		Returning:    []string{"id"},
	}
	priceUpsert = db.UpsertConfig{
		Table:        PriceTable,
		Columns:      []string{"station_id", "gas_type", "price", "date"},
		ConflictKeys: []string{"station_id", "gas_type"},
		UpdateCols:   []string{"price", "date"},
	}
)

// Result summarises a load.
type Result struct {
	Stations int           `json:"stations"`
	Prices   int           `json:"prices"`
	Duration time.Duration `json:"duration"`
}

// Loader writes stations and prices through a Pool.
type Loader struct {
	pool       db.Pool
	stationSQL string
	priceSQL   string
	now        func() time.Time
}

// New creates a Loader.
func New(pool db.Pool) (*Loader, error) {
	stationSQL, err := db.UpsertStatement(stationUpsert)
	if err != nil {
		return nil, eris.Wrap(err, "load: station statement")
	}
	priceSQL, err := db.UpsertStatement(priceUpsert)
	if err != nil {
		return nil, eris.Wrap(err, "load: price statement")
	}
	return &Loader{pool: pool, stationSQL: stationSQL, priceSQL: priceSQL, now: time.Now}, nil
}

// Load upserts every station and each of its present prices. It is all or
// nothing: the first failing statement rolls back the whole transaction.
// Station status is never written, so new rows take the schema default
// ("ghost") and existing rows keep whatever status users have given them.
func (l *Loader) Load(ctx context.Context, stations []*model.Station) (*Result, error) {
	log := zap.L().With(zap.String("component", "load"))
	start := time.Now()

	if len(stations) == 0 {
		log.Info("nothing to load")
		return &Result{}, nil
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "load: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	log.Info("inserting data", zap.Int("stations", len(stations)))

	res := &Result{}
	capturedAt := l.now().UTC()
	for _, st := range stations {
		if !st.HasCoordinates() {
			return nil, eris.Errorf("load: station %d has no coordinates", st.PlaceID)
		}

		var stationID int64
		err := tx.QueryRow(ctx, l.stationSQL,
			st.PlaceID,
			st.Name,
			nullable(st.RegistryID),
			*st.Longitude,
			*st.Latitude,
			nullable(st.City),
			nullable(st.State),
			true,
		).Scan(&stationID)
		if err != nil {
			return nil, eris.Wrapf(err, "load: upsert station %d", st.PlaceID)
		}
		res.Stations++

		for _, fuel := range model.FuelTypes {
			price, ok := st.Price(fuel)
			if !ok {
				continue
			}
			if _, err := tx.Exec(ctx, l.priceSQL, stationID, string(fuel), price, capturedAt); err != nil {
				return nil, eris.Wrapf(err, "load: upsert %s price for station %d", fuel, stationID)
			}
			res.Prices++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "load: commit tx")
	}

	res.Duration = time.Since(start)
	log.Info("finished inserting records",
		zap.Int("stations", res.Stations),
		zap.Int("prices", res.Prices),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

// nullable maps empty strings to SQL NULL; register is unique but optional.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
