package storage

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-freshness/logger"
	"github.com/saiset-co/sai-freshness/types"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock(start time.Time) *manualClock {
	return &manualClock{now: start}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type brokenBackend struct{}

func (brokenBackend) GetItem(key string) (string, bool, error) {
	return "", false, types.ErrStorageUnavailable
}

func (brokenBackend) SetItem(key, value string) error {
	return types.ErrStorageUnavailable
}

func (brokenBackend) RemoveItem(key string) error {
	return types.ErrStorageUnavailable
}

func (brokenBackend) Keys() ([]string, error) {
	return nil, types.ErrStorageUnavailable
}

func (brokenBackend) Clear() error {
	return types.ErrStorageUnavailable
}

func (brokenBackend) Close() error {
	return nil
}

type cachedValue struct {
	Temperature float64 `json:"temperature"`
	Condition   string  `json:"condition"`
}

func newTestStore(t *testing.T, quota int64, clock types.Clock, backend types.Backend) *Store {
	t.Helper()

	store := NewStore(
		&types.StorageConfig{Type: "memory", Quota: quota},
		logger.NewZapWrapper(zap.NewNop()),
		clock,
		backend,
	)
	require.NoError(t, store.Start())
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	clock := newManualClock(time.UnixMilli(1_700_000_000_000))
	store := newTestStore(t, 0, clock, NewMemoryBackend(0))

	in := cachedValue{Temperature: 21.5, Condition: "clear"}
	require.NoError(t, store.Set("cache:current:berlin", in, 10*time.Minute))

	var out cachedValue
	require.True(t, store.Get("cache:current:berlin", &out))
	assert.Equal(t, in, out)
}

func TestStoreMissLeavesTargetUntouched(t *testing.T) {
	clock := newManualClock(time.UnixMilli(1_700_000_000_000))
	store := newTestStore(t, 0, clock, NewMemoryBackend(0))

	out := cachedValue{Temperature: 99, Condition: "stale"}
	assert.False(t, store.Get("cache:missing", &out))
	assert.Equal(t, cachedValue{Temperature: 99, Condition: "stale"}, out)
}

func TestStoreEmptyKeyRejected(t *testing.T) {
	clock := newManualClock(time.UnixMilli(1_700_000_000_000))
	store := newTestStore(t, 0, clock, NewMemoryBackend(0))

	err := store.Set("", "value", 0)
	assert.True(t, types.IsError(err, types.ErrStorageKeyEmpty))
}

func TestStoreLazyExpiry(t *testing.T) {
	clock := newManualClock(time.UnixMilli(1_700_000_000_000))
	backend := NewMemoryBackend(0)
	store := newTestStore(t, 0, clock, backend)

	require.NoError(t, store.Set("cache:current:berlin", "data", 10*time.Minute))

	clock.Advance(10 * time.Minute)
	assert.True(t, store.Get("cache:current:berlin", nil), "entry is live at the exact expiry instant")

	clock.Advance(time.Millisecond)
	assert.False(t, store.Get("cache:current:berlin", nil))

	_, exists, err := backend.GetItem("cache:current:berlin")
	require.NoError(t, err)
	assert.False(t, exists, "expired entry removed on read")
}

func TestStoreCorruptedEntryIsMissAndRemoved(t *testing.T) {
	clock := newManualClock(time.UnixMilli(1_700_000_000_000))
	backend := NewMemoryBackend(0)
	store := newTestStore(t, 0, clock, backend)

	require.NoError(t, backend.SetItem("cache:broken", "{not json"))

	assert.False(t, store.Get("cache:broken", nil))

	_, exists, err := backend.GetItem("cache:broken")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStoreValidatorRejectsEntry(t *testing.T) {
	clock := newManualClock(time.UnixMilli(1_700_000_000_000))
	store := newTestStore(t, 0, clock, NewMemoryBackend(0))

	store.SetValidator("cache:current:", func(key string, raw []byte) bool {
		return false
	})

	require.NoError(t, store.Set("cache:current:berlin", "data", 0))
	require.NoError(t, store.Set("cache:forecast:berlin", "data", 0))

	assert.False(t, store.Get("cache:current:berlin", nil))
	assert.True(t, store.Get("cache:forecast:berlin", nil), "validator only covers its prefix")
}

func TestStoreEvictsExpiredFirst(t *testing.T) {
	clock := newManualClock(time.UnixMilli(1_700_000_000_000))
	store := newTestStore(t, 0, clock, NewMemoryBackend(0))

	require.NoError(t, store.Set("cache:old", "expiring", time.Second))
	require.NoError(t, store.Set("settings:keep", "user state", 0))

	clock.Advance(2 * time.Second)

	info, err := store.GetStorageInfo()
	require.NoError(t, err)

	// Shrink the quota so the next write exceeds it and triggers eviction.
	store.config.Quota = info.UsedBytes + 10

	require.NoError(t, store.Set("cache:new", "fresh", 0))

	assert.False(t, store.Get("cache:old", nil), "expired entry evicted")
	assert.True(t, store.Get("cache:new", nil))
	assert.True(t, store.Get("settings:keep", nil), "settings survive eviction")
}

func TestStoreEvictsOldestCacheQuarter(t *testing.T) {
	clock := newManualClock(time.UnixMilli(1_700_000_000_000))
	store := newTestStore(t, 0, clock, NewMemoryBackend(0))

	for _, key := range []string{"cache:a", "cache:b", "cache:c", "cache:d"} {
		require.NoError(t, store.Set(key, "payload", 0))
		clock.Advance(time.Second)
	}
	require.NoError(t, store.Set("settings:keep", "user state", 0))

	info, err := store.GetStorageInfo()
	require.NoError(t, err)

	store.config.Quota = info.UsedBytes + 10

	require.NoError(t, store.Set("cache:e", "payload", 0))

	assert.False(t, store.Get("cache:a", nil), "oldest cache entry evicted")
	for _, key := range []string{"cache:b", "cache:c", "cache:d", "cache:e"} {
		assert.True(t, store.Get(key, nil), key)
	}
	assert.True(t, store.Get("settings:keep", nil))
}

func TestStoreQuotaFailureIsNotFatal(t *testing.T) {
	clock := newManualClock(time.UnixMilli(1_700_000_000_000))
	store := newTestStore(t, 0, clock, NewMemoryBackend(40))

	err := store.Set("cache:huge", "a value far larger than the medium allows", 0)
	require.Error(t, err)
	assert.True(t, types.IsError(err, types.ErrStorageQuotaExceeded))
	assert.False(t, store.degraded, "quota pressure must not trigger the memory fallback")
}

func TestStoreDegradesOnBackendFailure(t *testing.T) {
	clock := newManualClock(time.UnixMilli(1_700_000_000_000))
	store := newTestStore(t, 0, clock, brokenBackend{})

	require.NoError(t, store.Set("cache:current:berlin", "data", 0))
	assert.True(t, store.degraded)
	assert.True(t, store.Get("cache:current:berlin", nil), "writes continue against the fallback medium")
}

func TestStoreInfo(t *testing.T) {
	clock := newManualClock(time.UnixMilli(1_700_000_000_000))
	store := newTestStore(t, 1000, clock, NewMemoryBackend(1000))

	require.NoError(t, store.Set("cache:a", "one", 0))
	require.NoError(t, store.Set("cache:b", "two", 0))

	info, err := store.GetStorageInfo()
	require.NoError(t, err)

	assert.Equal(t, 2, info.ItemCount)
	assert.Equal(t, int64(1000), info.Quota)
	assert.Greater(t, info.UsedBytes, int64(0))
	assert.InDelta(t, float64(info.UsedBytes)/10, info.UsedPercent, 0.01)
}
