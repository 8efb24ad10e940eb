package model

// StationStatus is the lifecycle label of a persisted station.
type StationStatus string

// StatusGhost is the provisional status a station keeps until a user
// verifies it exists.
const StatusGhost StationStatus = "ghost"

// Station is one gas station as it moves through the pipeline. After merge
// it may lack coordinates or prices; after cleaning both are guaranteed,
// and after enrichment City and State are set.
type Station struct {
	PlaceID    int64    `json:"place_id"`
	Name       string   `json:"name"`
	RegistryID string   `json:"registry_id"`
	Longitude  *float64 `json:"longitude,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`

	// Prices holds at most one entry per fuel type. A missing key means the
	// prices feed carried no entry for that fuel.
	Prices map[FuelType]float64 `json:"prices,omitempty"`

	City  string `json:"city,omitempty"`
	State string `json:"state,omitempty"`

	// Rank is the station's ordinal position after region filtering.
	Rank int `json:"rank,omitempty"`
}

// HasCoordinates reports whether both longitude and latitude are present.
func (s *Station) HasCoordinates() bool {
	return s.Longitude != nil && s.Latitude != nil
}

// HasPrice reports whether at least one fuel price is present.
func (s *Station) HasPrice() bool {
	return len(s.Prices) > 0
}

// Price returns the price for the fuel type and whether it is present.
func (s *Station) Price(f FuelType) (float64, bool) {
	p, ok := s.Prices[f]
	return p, ok
}

// SetPrice records a price for the fuel type, replacing any previous value.
func (s *Station) SetPrice(f FuelType, price float64) {
	if s.Prices == nil {
		s.Prices = make(map[FuelType]float64, len(FuelTypes))
	}
	s.Prices[f] = price
}
