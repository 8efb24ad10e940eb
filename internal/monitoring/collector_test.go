package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuartodemilla/fuel-etl/internal/store"
)

type fakeRunLister struct {
	entries     []store.RunEntry
	lastSuccess *time.Time
	listErr     error
	gotLimit    int
}

func (f *fakeRunLister) List(_ context.Context, limit int) ([]store.RunEntry, error) {
	f.gotLimit = limit
	return f.entries, f.listErr
}

func (f *fakeRunLister) LastSuccess(context.Context) (*time.Time, error) {
	return f.lastSuccess, nil
}

var collectedAt = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func newTestCollector(runs RunLister) *Collector {
	c := NewCollector(runs)
	c.now = func() time.Time { return collectedAt }
	return c
}

func TestCollector_FailureStreak(t *testing.T) {
	last := collectedAt.Add(-30 * time.Hour)
	runs := &fakeRunLister{
		entries: []store.RunEntry{
			{Status: store.RunRunning},
			{Status: store.RunFailed, Error: "load: commit tx"},
			{Status: store.RunFailed, Error: "fetcher: retrieve prices"},
			{Status: store.RunComplete, Stations: 2250},
			{Status: store.RunFailed, Error: "older"},
		},
		lastSuccess: &last,
	}

	snap, err := newTestCollector(runs).Collect(context.Background(), 20)
	require.NoError(t, err)
	assert.Equal(t, 20, runs.gotLimit)
	assert.Equal(t, 5, snap.Total)
	assert.Equal(t, 1, snap.Complete)
	assert.Equal(t, 3, snap.Failed)
	assert.Equal(t, 1, snap.Running)
	assert.Equal(t, 2, snap.ConsecutiveFailures)
	assert.Equal(t, "load: commit tx", snap.LastError)
	assert.Equal(t, 2250, snap.LastStations)
	assert.Equal(t, &last, snap.LastSuccess)
	assert.Equal(t, collectedAt, snap.CollectedAt)
}

func TestCollector_Empty(t *testing.T) {
	snap, err := newTestCollector(&fakeRunLister{}).Collect(context.Background(), 20)
	require.NoError(t, err)
	assert.Zero(t, snap.Total)
	assert.Nil(t, snap.LastSuccess)
}

func TestCollector_ListError(t *testing.T) {
	_, err := newTestCollector(&fakeRunLister{listErr: errors.New("boom")}).Collect(context.Background(), 20)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitoring: list runs")
}
