// Package clean drops merged records that are incomplete or carry implausible
// prices.
package clean

import (
	"go.uber.org/zap"

	"github.com/cuartodemilla/fuel-etl/internal/model"
)

// Plausible price bounds in pesos per litre, both exclusive. Values at or
// outside them are sentinels from the upstream feed.
const (
	PriceFloor   = 1.0
	PriceCeiling = 40.0
)

// Stats counts why records were dropped.
type Stats struct {
	Input      int `json:"input"`
	Incomplete int `json:"incomplete"`
	OutOfRange int `json:"out_of_range"`
	Kept       int `json:"kept"`
}

// Clean keeps records with both coordinates and at least one price, then
// rejects any record where a present price is outside (PriceFloor,
// PriceCeiling). A single bad price rejects the whole record; fields are
// never nulled individually. Input order is preserved.
func Clean(records []*model.Station) ([]*model.Station, Stats) {
	stats := Stats{Input: len(records)}
	out := make([]*model.Station, 0, len(records))

	for _, st := range records {
		if !st.HasCoordinates() || !st.HasPrice() {
			stats.Incomplete++
			continue
		}
		if !PricesPlausible(st) {
			stats.OutOfRange++
			continue
		}
		out = append(out, st)
	}
	stats.Kept = len(out)

	zap.L().Info("records cleaned",
		zap.String("component", "clean"),
		zap.Int("input", stats.Input),
		zap.Int("incomplete", stats.Incomplete),
		zap.Int("out_of_range", stats.OutOfRange),
		zap.Int("kept", stats.Kept),
	)
	return out, stats
}

// PricesPlausible reports whether every present price lies strictly between
// PriceFloor and PriceCeiling. NaN is never plausible.
func PricesPlausible(st *model.Station) bool {
	for _, p := range st.Prices {
		if !(p > PriceFloor && p < PriceCeiling) {
			return false
		}
	}
	return true
}
