package model

import "github.com/rotisserie/eris"

// FuelType is one of the three commodities tracked per station.
type FuelType string

const (
	FuelRegular FuelType = "regular"
	FuelDiesel  FuelType = "diesel"
	FuelPremium FuelType = "premium"
)

// FuelTypes lists every tracked fuel type in load order.
var FuelTypes = []FuelType{FuelRegular, FuelDiesel, FuelPremium}

// ParseFuelType converts a feed type attribute into a FuelType.
func ParseFuelType(s string) (FuelType, error) {
	switch FuelType(s) {
	case FuelRegular, FuelDiesel, FuelPremium:
		return FuelType(s), nil
	default:
		return "", eris.Errorf("unknown fuel type: %q (valid: regular, diesel, premium)", s)
	}
}

// Column returns the merged-record field name for the fuel type, e.g. "diesel_price".
func (f FuelType) Column() string {
	return string(f) + "_price"
}
