package geo

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cuartodemilla/fuel-etl/internal/model"
)

// Options bounds the enriched output. Zero values disable each filter.
type Options struct {
	// TopStates keeps only stations in the N states with the most stations.
	TopStates int
	// MaxRows truncates the result to its first MaxRows stations.
	MaxRows int
}

// Stats counts stations through enrichment.
type Stats struct {
	Input     int `json:"input"`
	Unmapped  int `json:"unmapped"`
	OffRegion int `json:"off_region"`
	Truncated int `json:"truncated"`
	Output    int `json:"output"`
}

// Enrich attaches State and City to each station whose point falls inside a
// boundary, drops the rest, applies the region-frequency filter and row cap,
// then numbers the survivors with Rank starting at 1. Stations must have
// coordinates.
func Enrich(ctx context.Context, stations []*model.Station, loc Locator, opts Options) ([]*model.Station, Stats, error) {
	stats := Stats{Input: len(stations)}

	mapped := make([]*model.Station, 0, len(stations))
	for _, st := range stations {
		if !st.HasCoordinates() {
			return nil, stats, eris.Errorf("geo: station %d has no coordinates", st.PlaceID)
		}
		region, ok, err := loc.Locate(ctx, *st.Longitude, *st.Latitude)
		if err != nil {
			return nil, stats, eris.Wrapf(err, "geo: enrich station %d", st.PlaceID)
		}
		if !ok {
			stats.Unmapped++
			continue
		}
		st.State = region.State
		st.City = region.City
		mapped = append(mapped, st)
	}

	out := mapped
	if opts.TopStates > 0 {
		out = FilterTopStates(out, opts.TopStates)
		stats.OffRegion = len(mapped) - len(out)
	}
	if opts.MaxRows > 0 && len(out) > opts.MaxRows {
		stats.Truncated = len(out) - opts.MaxRows
		out = out[:opts.MaxRows]
	}
	for i, st := range out {
		st.Rank = i + 1
	}
	stats.Output = len(out)

	zap.L().Info("stations enriched",
		zap.String("component", "geo"),
		zap.Int("input", stats.Input),
		zap.Int("unmapped", stats.Unmapped),
		zap.Int("off_region", stats.OffRegion),
		zap.Int("truncated", stats.Truncated),
		zap.Int("output", stats.Output),
	)
	return out, stats, nil
}

// StateCount is the number of stations found in one state.
type StateCount struct {
	State string
	Count int
}

// RankStates orders states by station count, largest first. Ties go to the
// lexically smaller state name.
func RankStates(stations []*model.Station) []StateCount {
	counts := make(map[string]int)
	for _, st := range stations {
		counts[st.State]++
	}
	ranked := make([]StateCount, 0, len(counts))
	for state, n := range counts {
		ranked = append(ranked, StateCount{State: state, Count: n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].State < ranked[j].State
	})
	return ranked
}

// FilterTopStates keeps stations whose state is among the n most frequent,
// preserving input order.
func FilterTopStates(stations []*model.Station, n int) []*model.Station {
	ranked := RankStates(stations)
	if n > len(ranked) {
		n = len(ranked)
	}
	keep := make(map[string]bool, n)
	for _, sc := range ranked[:n] {
		keep[sc.State] = true
	}

	out := make([]*model.Station, 0, len(stations))
	for _, st := range stations {
		if keep[st.State] {
			out = append(out, st)
		}
	}
	return out
}
