package types

import (
	"time"
)

// Key namespaces recognized by the storage manager. Only NamespaceCache keys
// are candidates for age-based quota eviction; everything else holds user
// state and is deleted only on explicit request.
const (
	NamespaceCache    = "cache:"
	NamespaceSettings = "settings:"
	NamespaceWidgets  = "widgets:"
	NamespaceNotify   = "notify:"
)

type StorageManager interface {
	LifecycleManager

	// Set serializes value and stores it under key. A zero ttl means the
	// entry never expires. Quota pressure triggers one eviction pass and one
	// retry; a write that still fails returns an error but must not be
	// treated as fatal by callers.
	Set(key string, value interface{}, ttl time.Duration) error

	// Get decodes the entry under key into target and reports whether a
	// live entry was found. Expired or corrupted entries are removed on
	// read and reported as a miss, leaving target untouched.
	Get(key string, target interface{}) bool

	Remove(key string) error
	Clear() error

	GetStorageInfo() (StorageInfo, error)

	// SetValidator installs a shape check for keys under the given prefix.
	// Reads whose raw payload fails the check are treated as a miss.
	SetValidator(prefix string, validator EntryValidator)
}

// EntryValidator asserts shape invariants over the decoded entry payload
// before the read is trusted.
type EntryValidator func(key string, raw []byte) bool

// Backend is the persistent byte medium under the storage manager. SetItem
// may return ErrStorageQuotaExceeded; any other error marks the backend
// unavailable and triggers the in-memory fallback.
type Backend interface {
	GetItem(key string) (string, bool, error)
	SetItem(key string, value string) error
	RemoveItem(key string) error
	Keys() ([]string, error)
	Clear() error
	Close() error
}

type BackendCreator func(config *StorageConfig) (Backend, error)

// StoredEntry is the persisted wire format: an opaque JSON value plus the
// write time and an optional absolute expiry, both in epoch milliseconds.
type StoredEntry struct {
	Value     interface{} `json:"value"`
	Timestamp int64       `json:"timestamp"`
	Expiry    *int64      `json:"expiry"`
}

func (e *StoredEntry) Expired(now time.Time) bool {
	return e.Expiry != nil && now.UnixMilli() > *e.Expiry
}

type StorageInfo struct {
	UsedBytes   int64   `json:"used_bytes"`
	ItemCount   int     `json:"item_count"`
	Quota       int64   `json:"quota"`
	UsedPercent float64 `json:"used_percent"`
}
