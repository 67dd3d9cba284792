package storage

import (
	"encoding/json"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-freshness/types"
	"github.com/saiset-co/sai-freshness/utils"
)

type StoreState int32

const (
	StoreStateStopped StoreState = iota
	StoreStateStarting
	StoreStateRunning
	StoreStateStopping
)

// wireEntry mirrors types.StoredEntry with the value kept raw so reads can
// be validated and decoded lazily.
type wireEntry struct {
	Value     json.RawMessage `json:"value"`
	Timestamp int64           `json:"timestamp"`
	Expiry    *int64          `json:"expiry"`
}

type prefixValidator struct {
	prefix    string
	validator types.EntryValidator
}

// Store is a TTL key/value store over a bounded byte medium. Expiry is lazy:
// expired entries are removed on read or during quota eviction, never by a
// background sweep. If the backend fails with anything but a quota error the
// store degrades to an in-memory medium so callers never special-case
// availability.
type Store struct {
	config     *types.StorageConfig
	logger     types.Logger
	clock      types.Clock
	impl       types.Backend
	degraded   bool
	validators []prefixValidator
	mu         sync.Mutex
	state      atomic.Value
}

func NewStore(config *types.StorageConfig, logger types.Logger, clock types.Clock, backend types.Backend) *Store {
	store := &Store{
		config: config,
		logger: logger,
		clock:  clock,
		impl:   backend,
	}

	store.state.Store(StoreStateStopped)
	return store
}

func (s *Store) Start() error {
	if !s.transitionState(StoreStateStopped, StoreStateStarting) {
		return types.ErrServiceAlreadyRunning
	}

	defer func() {
		if s.getState() == StoreStateStarting {
			s.setState(StoreStateRunning)
		}
	}()

	s.logger.Info("Storage started", zap.String("type", s.config.Type))
	return nil
}

func (s *Store) Stop() error {
	if !s.transitionState(StoreStateRunning, StoreStateStopping) {
		return types.ErrServiceNotRunning
	}

	defer func() {
		s.setState(StoreStateStopped)
	}()

	s.mu.Lock()
	err := s.impl.Close()
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Failed to close storage backend", zap.Error(err))
		return err
	}

	s.logger.Info("Storage stopped gracefully")
	return nil
}

func (s *Store) IsRunning() bool {
	return s.getState() == StoreStateRunning
}

func (s *Store) Set(key string, value interface{}, ttl time.Duration) error {
	if key == "" {
		return types.ErrStorageKeyEmpty
	}

	now := s.clock.Now()
	entry := types.StoredEntry{
		Value:     value,
		Timestamp: now.UnixMilli(),
	}
	if ttl > 0 {
		expiry := now.Add(ttl).UnixMilli()
		entry.Expiry = &expiry
	}

	payload, err := utils.Marshal(entry)
	if err != nil {
		return types.WrapError(err, "failed to serialize entry")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	serialized := utils.BytesToString(payload)

	if s.config.Quota > 0 {
		used, _, scanErr := s.usageLocked()
		if scanErr == nil && used+entrySize(key, serialized) > s.config.Quota {
			s.evictLocked(now)
		}
	}

	err = s.setItemLocked(key, serialized)
	if types.IsError(err, types.ErrStorageQuotaExceeded) {
		s.evictLocked(now)
		err = s.setItemLocked(key, serialized)
	}

	if err != nil {
		s.logger.Warn("Entry not cached this cycle",
			zap.String("key", key),
			zap.Error(err))
		return types.WrapError(err, "storage write failed")
	}

	return nil
}

func (s *Store) Get(key string, target interface{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, exists := s.getItemLocked(key)
	if !exists {
		return false
	}

	var entry wireEntry
	if err := utils.Unmarshal(utils.StringToBytes(raw), &entry); err != nil {
		s.logger.Debug("Removing corrupted entry", zap.String("key", key))
		_ = s.impl.RemoveItem(key)
		return false
	}

	if entry.Expiry != nil && s.clock.Now().UnixMilli() > *entry.Expiry {
		_ = s.impl.RemoveItem(key)
		return false
	}

	if !s.validateLocked(key, entry.Value) {
		s.logger.Debug("Removing entry rejected by validator", zap.String("key", key))
		_ = s.impl.RemoveItem(key)
		return false
	}

	if target != nil {
		if err := utils.UnmarshalInto(entry.Value, target); err != nil {
			s.logger.Debug("Removing undecodable entry", zap.String("key", key))
			_ = s.impl.RemoveItem(key)
			return false
		}
	}

	return true
}

func (s *Store) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.impl.RemoveItem(key); err != nil {
		s.degradeLocked(err)
		return s.impl.RemoveItem(key)
	}
	return nil
}

func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.impl.Clear(); err != nil {
		s.degradeLocked(err)
		return s.impl.Clear()
	}
	return nil
}

func (s *Store) GetStorageInfo() (types.StorageInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	used, count, err := s.usageLocked()
	if err != nil {
		return types.StorageInfo{}, err
	}

	info := types.StorageInfo{
		UsedBytes: used,
		ItemCount: count,
		Quota:     s.config.Quota,
	}
	if s.config.Quota > 0 {
		info.UsedPercent = float64(used) / float64(s.config.Quota) * 100
	}

	return info, nil
}

func (s *Store) SetValidator(prefix string, validator types.EntryValidator) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.validators = append(s.validators, prefixValidator{prefix: prefix, validator: validator})
}

func (s *Store) getState() StoreState {
	return s.state.Load().(StoreState)
}

func (s *Store) setState(newState StoreState) bool {
	currentState := s.getState()
	return s.state.CompareAndSwap(currentState, newState)
}

func (s *Store) transitionState(from, to StoreState) bool {
	return s.state.CompareAndSwap(from, to)
}

func (s *Store) validateLocked(key string, raw []byte) bool {
	for _, pv := range s.validators {
		if strings.HasPrefix(key, pv.prefix) && !pv.validator(key, raw) {
			return false
		}
	}
	return true
}

func (s *Store) getItemLocked(key string) (string, bool) {
	value, exists, err := s.impl.GetItem(key)
	if err != nil {
		s.degradeLocked(err)
		value, exists, _ = s.impl.GetItem(key)
	}
	return value, exists
}

func (s *Store) setItemLocked(key, value string) error {
	err := s.impl.SetItem(key, value)
	if err == nil || types.IsError(err, types.ErrStorageQuotaExceeded) {
		return err
	}

	s.degradeLocked(err)
	return s.impl.SetItem(key, value)
}

// degradeLocked swaps the failed backend for an in-memory medium with
// identical semantics. Data already persisted is lost; stale cache is
// acceptable, a crashing store is not.
func (s *Store) degradeLocked(cause error) {
	if s.degraded {
		return
	}

	s.logger.Warn("Storage backend unavailable, falling back to memory",
		zap.String("type", s.config.Type),
		zap.Error(cause))

	_ = s.impl.Close()
	s.impl = NewMemoryBackend(s.config.Quota)
	s.degraded = true
}

type scannedEntry struct {
	key       string
	size      int64
	timestamp int64
	expired   bool
	corrupted bool
}

func (s *Store) scanLocked(now time.Time) ([]scannedEntry, error) {
	keys, err := s.impl.Keys()
	if err != nil {
		s.degradeLocked(err)
		keys, err = s.impl.Keys()
		if err != nil {
			return nil, err
		}
	}

	nowMs := now.UnixMilli()
	entries := make([]scannedEntry, 0, len(keys))

	for _, key := range keys {
		raw, exists, err := s.impl.GetItem(key)
		if err != nil || !exists {
			continue
		}

		scanned := scannedEntry{key: key, size: entrySize(key, raw)}

		var entry wireEntry
		if err := utils.Unmarshal(utils.StringToBytes(raw), &entry); err != nil {
			scanned.corrupted = true
		} else {
			scanned.timestamp = entry.Timestamp
			scanned.expired = entry.Expiry != nil && nowMs > *entry.Expiry
		}

		entries = append(entries, scanned)
	}

	return entries, nil
}

func (s *Store) usageLocked() (int64, int, error) {
	entries, err := s.scanLocked(s.clock.Now())
	if err != nil {
		return 0, 0, err
	}

	var used int64
	for _, entry := range entries {
		used += entry.size
	}

	return used, len(entries), nil
}

// evictLocked frees space in two passes: expired entries first (zero
// information loss), then the oldest quarter of the cache namespace by write
// time. Keys outside the cache namespace are never auto-evicted.
func (s *Store) evictLocked(now time.Time) {
	entries, err := s.scanLocked(now)
	if err != nil {
		s.logger.Error("Eviction scan failed", zap.Error(err))
		return
	}

	var remaining []scannedEntry
	removed := 0

	for _, entry := range entries {
		if entry.expired || entry.corrupted {
			_ = s.impl.RemoveItem(entry.key)
			removed++
			continue
		}
		remaining = append(remaining, entry)
	}

	var used int64
	for _, entry := range remaining {
		used += entry.size
	}

	if s.config.Quota > 0 && used < s.config.Quota && removed > 0 {
		s.logger.Debug("Eviction resolved by expired entries", zap.Int("removed", removed))
		return
	}

	var cached []scannedEntry
	for _, entry := range remaining {
		if strings.HasPrefix(entry.key, types.NamespaceCache) {
			cached = append(cached, entry)
		}
	}

	if len(cached) == 0 {
		return
	}

	sort.Slice(cached, func(i, j int) bool {
		return cached[i].timestamp < cached[j].timestamp
	})

	victims := int(math.Ceil(float64(len(cached)) * 0.25))
	for i := 0; i < victims; i++ {
		_ = s.impl.RemoveItem(cached[i].key)
		removed++
	}

	s.logger.Debug("Eviction completed",
		zap.Int("removed", removed),
		zap.Int("oldest_evicted", victims))
}
