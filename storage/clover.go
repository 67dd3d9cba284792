package storage

import (
	"sync"

	"github.com/ostafen/clover"

	"github.com/saiset-co/sai-freshness/types"
)

const cloverCollection = "entries"

// CloverBackend persists entries as key-indexed documents in a single
// CloverDB collection. An empty path opens an in-memory database.
type CloverBackend struct {
	db *clover.DB
	mu sync.Mutex
}

func NewCloverBackend(config *types.StorageConfig) (types.Backend, error) {
	db, err := clover.Open(config.Path)
	if err != nil {
		return nil, types.WrapError(err, "failed to open CloverDB")
	}

	exists, err := db.HasCollection(cloverCollection)
	if err != nil {
		_ = db.Close()
		return nil, types.WrapError(err, "failed to check collection existence")
	}

	if !exists {
		if err := db.CreateCollection(cloverCollection); err != nil {
			_ = db.Close()
			return nil, types.WrapError(err, "failed to create collection")
		}
	}

	return &CloverBackend{db: db}, nil
}

func (c *CloverBackend) GetItem(key string) (string, bool, error) {
	doc, err := c.db.Query(cloverCollection).Where(clover.Field("key").Eq(key)).FindFirst()
	if err != nil {
		return "", false, types.WrapError(err, "clover read failed")
	}

	if doc == nil {
		return "", false, nil
	}

	value, ok := doc.Get("value").(string)
	if !ok {
		return "", false, nil
	}

	return value, true, nil
}

func (c *CloverBackend) SetItem(key string, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	query := c.db.Query(cloverCollection).Where(clover.Field("key").Eq(key))

	count, err := query.Count()
	if err != nil {
		return types.WrapError(err, "clover lookup failed")
	}

	if count > 0 {
		return types.WrapError(query.Update(map[string]interface{}{"value": value}), "clover update failed")
	}

	doc := clover.NewDocument()
	doc.Set("key", key)
	doc.Set("value", value)

	if err := c.db.Insert(cloverCollection, doc); err != nil {
		return types.WrapError(err, "clover insert failed")
	}

	return nil
}

func (c *CloverBackend) RemoveItem(key string) error {
	err := c.db.Query(cloverCollection).Where(clover.Field("key").Eq(key)).Delete()
	return types.WrapError(err, "clover delete failed")
}

func (c *CloverBackend) Keys() ([]string, error) {
	docs, err := c.db.Query(cloverCollection).FindAll()
	if err != nil {
		return nil, types.WrapError(err, "clover scan failed")
	}

	keys := make([]string, 0, len(docs))
	for _, doc := range docs {
		if key, ok := doc.Get("key").(string); ok {
			keys = append(keys, key)
		}
	}

	return keys, nil
}

func (c *CloverBackend) Clear() error {
	err := c.db.Query(cloverCollection).Delete()
	return types.WrapError(err, "clover clear failed")
}

func (c *CloverBackend) Close() error {
	return c.db.Close()
}
