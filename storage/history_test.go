package storage

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHistory(t *testing.T) *LocationHistory {
	t.Helper()

	clock := newManualClock(time.UnixMilli(1_700_000_000_000))
	store := newTestStore(t, 0, clock, NewMemoryBackend(0))
	return NewLocationHistory(store)
}

func TestHistoryNewestFirst(t *testing.T) {
	history := newTestHistory(t)

	require.NoError(t, history.Add(Location{Name: "Berlin", Country: "DE"}))
	require.NoError(t, history.Add(Location{Name: "Paris", Country: "FR"}))

	recent := history.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "Paris", recent[0].Name)
	assert.Equal(t, "Berlin", recent[1].Name)
}

func TestHistoryDedupMovesToFront(t *testing.T) {
	history := newTestHistory(t)

	require.NoError(t, history.Add(Location{Name: "Berlin", Country: "DE"}))
	require.NoError(t, history.Add(Location{Name: "Paris", Country: "FR"}))
	require.NoError(t, history.Add(Location{Name: "berlin", Country: "de"}))

	recent := history.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "berlin", recent[0].Name)
	assert.Equal(t, "Paris", recent[1].Name)
}

func TestHistoryBounded(t *testing.T) {
	history := newTestHistory(t)

	for i := 0; i < maxHistoryEntries+5; i++ {
		require.NoError(t, history.Add(Location{Name: fmt.Sprintf("city-%d", i), Country: "XX"}))
	}

	recent := history.Recent()
	require.Len(t, recent, maxHistoryEntries)
	assert.Equal(t, fmt.Sprintf("city-%d", maxHistoryEntries+4), recent[0].Name)
}

func TestHistoryClear(t *testing.T) {
	history := newTestHistory(t)

	require.NoError(t, history.Add(Location{Name: "Berlin", Country: "DE"}))
	require.NoError(t, history.ClearHistory())
	assert.Empty(t, history.Recent())
}

func TestFavorites(t *testing.T) {
	history := newTestHistory(t)
	berlin := Location{Name: "Berlin", Country: "DE"}

	require.NoError(t, history.AddFavorite(berlin))
	require.NoError(t, history.AddFavorite(berlin))
	require.Len(t, history.Favorites(), 1, "favorites are a set")
	assert.True(t, history.IsFavorite(berlin))

	require.NoError(t, history.RemoveFavorite(berlin))
	assert.False(t, history.IsFavorite(berlin))
	assert.Empty(t, history.Favorites())
}
