// Package feed parses the places and prices feeds and merges them into one
// record per station.
package feed

import (
	"context"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cuartodemilla/fuel-etl/internal/fetcher"
	"github.com/cuartodemilla/fuel-etl/internal/model"
)

// Merge parses both documents and returns the merged records. A station may
// appear in only one of the two feeds.
func Merge(ctx context.Context, places, prices io.Reader) (*Set, error) {
	set := NewSet()

	nPlaces, err := ParsePlaces(ctx, places, set)
	if err != nil {
		return nil, err
	}
	nPrices, err := ParsePrices(ctx, prices, set)
	if err != nil {
		return nil, err
	}

	zap.L().Info("feeds merged",
		zap.String("component", "feed"),
		zap.Int("places", nPlaces),
		zap.Int("prices", nPrices),
		zap.Int("stations", set.Len()),
	)
	return set, nil
}

// MergeFiles opens the two downloaded datasets and merges them.
func MergeFiles(ctx context.Context, placesPath, pricesPath string) (*Set, error) {
	places, err := os.Open(placesPath)
	if err != nil {
		return nil, eris.Wrap(err, "feed: open places")
	}
	defer places.Close() //nolint:errcheck

	prices, err := os.Open(pricesPath)
	if err != nil {
		return nil, eris.Wrap(err, "feed: open prices")
	}
	defer prices.Close() //nolint:errcheck

	return Merge(ctx, places, prices)
}

// ParsePlaces reads the places document into set and returns the number of
// <place> elements seen.
func ParsePlaces(ctx context.Context, r io.Reader, set *Set) (int, error) {
	var n int
	err := fetcher.EachXML(ctx, r, "place", func(p placeElement) error {
		id, err := parsePlaceID(p.PlaceID)
		if err != nil {
			return err
		}
		lon, err := parseCoord(p.X)
		if err != nil {
			return eris.Wrapf(err, "feed: place %d longitude", id)
		}
		lat, err := parseCoord(p.Y)
		if err != nil {
			return eris.Wrapf(err, "feed: place %d latitude", id)
		}

		st := set.record(id)
		st.Name = strings.TrimSpace(p.Name)
		st.RegistryID = strings.TrimSpace(p.CreID)
		st.Longitude = lon
		st.Latitude = lat
		n++
		return nil
	})
	if err != nil {
		return n, eris.Wrap(err, "feed: parse places")
	}
	return n, nil
}

// ParsePrices reads the prices document into set and returns the number of
// price entries attached.
func ParsePrices(ctx context.Context, r io.Reader, set *Set) (int, error) {
	var n int
	err := fetcher.EachXML(ctx, r, "place", func(p priceElement) error {
		id, err := parsePlaceID(p.PlaceID)
		if err != nil {
			return err
		}

		st := set.record(id)
		for _, gp := range p.GasPrices {
			fuel, err := model.ParseFuelType(strings.TrimSpace(gp.Type))
			if err != nil {
				zap.L().Debug("feed: ignoring price entry",
					zap.Int64("place_id", id),
					zap.String("type", gp.Type),
				)
				continue
			}
			price, err := strconv.ParseFloat(strings.TrimSpace(gp.Value), 64)
			if err != nil {
				return eris.Wrapf(err, "feed: place %d %s", id, fuel.Column())
			}
			if math.IsNaN(price) || math.IsInf(price, 0) {
				zap.L().Debug("feed: ignoring non-finite price",
					zap.Int64("place_id", id),
					zap.String("type", gp.Type),
					zap.String("value", gp.Value),
				)
				continue
			}
			st.SetPrice(fuel, price)
			n++
		}
		return nil
	})
	if err != nil {
		return n, eris.Wrap(err, "feed: parse prices")
	}
	return n, nil
}

func parsePlaceID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "feed: invalid place_id %q", raw)
	}
	return id, nil
}

// parseCoord returns nil for an absent coordinate.
func parseCoord(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid coordinate %q", raw)
	}
	return &v, nil
}
