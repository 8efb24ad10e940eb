package feed

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cuartodemilla/fuel-etl/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestMergeFiles(t *testing.T) {
	set, err := MergeFiles(context.Background(),
		filepath.Join("testdata", "places.xml"),
		filepath.Join("testdata", "prices.xml"),
	)
	require.NoError(t, err)
	require.Equal(t, 4, set.Len())

	ids := make([]int64, 0, set.Len())
	for _, st := range set.Stations() {
		ids = append(ids, st.PlaceID)
	}
	// Places feed order first, then ids only seen in the prices feed.
	assert.Equal(t, []int64{7, 8, 9, 12}, ids)

	st, ok := set.Get(7)
	require.True(t, ok)
	assert.Equal(t, "SERVICIO CENTRO", st.Name)
	assert.Equal(t, "PL/0007/EXP/ES/2015", st.RegistryID)
	require.True(t, st.HasCoordinates())
	assert.InDelta(t, -99.1, *st.Longitude, 1e-9)
	assert.InDelta(t, 19.4, *st.Latitude, 1e-9)
	assert.Equal(t, map[model.FuelType]float64{
		model.FuelRegular: 20.5,
		model.FuelDiesel:  21.5,
		model.FuelPremium: 22.0,
	}, st.Prices)

	st, _ = set.Get(8)
	assert.False(t, st.HasCoordinates())
	assert.Len(t, st.Prices, 1)

	st, _ = set.Get(9)
	assert.True(t, st.HasCoordinates())
	assert.False(t, st.HasPrice())

	st, _ = set.Get(12)
	assert.Empty(t, st.Name)
	assert.False(t, st.HasCoordinates())
	p, ok := st.Price(model.FuelPremium)
	assert.True(t, ok)
	assert.InDelta(t, 23.1, p, 1e-9)
}

func TestParsePrices_SingleEntryIsList(t *testing.T) {
	set := NewSet()
	n, err := ParsePrices(context.Background(), strings.NewReader(
		`<places><place place_id="3"><gas_price type="diesel">19.99</gas_price></place></places>`), set)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	st, ok := set.Get(3)
	require.True(t, ok)
	p, ok := st.Price(model.FuelDiesel)
	assert.True(t, ok)
	assert.InDelta(t, 19.99, p, 1e-9)
}

func TestParsePrices_NoEntries(t *testing.T) {
	set := NewSet()
	n, err := ParsePrices(context.Background(), strings.NewReader(
		`<places><place place_id="4"></place></places>`), set)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	st, ok := set.Get(4)
	require.True(t, ok)
	assert.False(t, st.HasPrice())
}

func TestParsePrices_UnknownFuelIgnored(t *testing.T) {
	set := NewSet()
	n, err := ParsePrices(context.Background(), strings.NewReader(
		`<places><place place_id="5"><gas_price type="lpg">10.0</gas_price><gas_price type="regular">20.0</gas_price></place></places>`), set)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	st, _ := set.Get(5)
	assert.Len(t, st.Prices, 1)
}

func TestParsePrices_NonFiniteTreatedAsMissing(t *testing.T) {
	set := NewSet()
	n, err := ParsePrices(context.Background(), strings.NewReader(
		`<places><place place_id="7"><gas_price type="regular">NaN</gas_price><gas_price type="diesel">21.5</gas_price><gas_price type="premium">+Inf</gas_price></place></places>`), set)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	st, ok := set.Get(7)
	require.True(t, ok)
	assert.Equal(t, map[model.FuelType]float64{model.FuelDiesel: 21.5}, st.Prices)
}

func TestParsePrices_BadNumber(t *testing.T) {
	_, err := ParsePrices(context.Background(), strings.NewReader(
		`<places><place place_id="5"><gas_price type="regular">n/a</gas_price></place></places>`), NewSet())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "regular_price")
}

func TestParsePlaces_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"missing place id", `<places><place><name>x</name></place></places>`, "invalid place_id"},
		{"bad longitude", `<places><place place_id="1"><location><x>west</x><y>19</y></location></place></places>`, "longitude"},
		{"malformed", `<places><place place_id="1"><name>x</place></places>`, "feed: parse places"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePlaces(context.Background(), strings.NewReader(tt.input), NewSet())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMergeFiles_MissingFile(t *testing.T) {
	_, err := MergeFiles(context.Background(), filepath.Join(t.TempDir(), "nope.xml"), "prices.xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feed: open places")
}
