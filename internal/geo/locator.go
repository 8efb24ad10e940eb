// Package geo attaches administrative region names to station coordinates
// and bounds the enriched output.
package geo

import "context"

// Region names the state and city containing a point.
type Region struct {
	State string `json:"state"`
	City  string `json:"city"`
}

// Locator reverse-geocodes a point given in geographic degrees. ok is false
// when no boundary contains the point.
type Locator interface {
	Locate(ctx context.Context, lon, lat float64) (region Region, ok bool, err error)
}

// Locate implements Locator.
func (l *Layer) Locate(_ context.Context, lon, lat float64) (Region, bool, error) {
	r, ok := l.LocatePoint(lon, lat)
	return r, ok, nil
}

// LocatorFunc adapts a plain function to Locator.
type LocatorFunc func(lon, lat float64) (Region, bool)

// Locate implements Locator.
func (f LocatorFunc) Locate(_ context.Context, lon, lat float64) (Region, bool, error) {
	r, ok := f(lon, lat)
	return r, ok, nil
}
