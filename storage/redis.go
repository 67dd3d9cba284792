package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/saiset-co/sai-freshness/types"
	"github.com/saiset-co/sai-freshness/utils"
)

type RedisBackendConfig struct {
	Address   string `json:"address" yaml:"address"`
	Password  string `json:"password" yaml:"password"`
	DB        int    `json:"db" yaml:"db"`
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`
}

// RedisBackend keeps entries in a local redis, prefixed so several services
// can share one instance. Expiry stays with the storage manager; redis is
// used as a plain byte medium.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

func NewRedisBackend(config *types.StorageConfig) (types.Backend, error) {
	rConfig := &RedisBackendConfig{
		Address:   "localhost:6379",
		KeyPrefix: "sai-freshness:",
	}

	if config.Config != nil {
		if err := utils.UnmarshalConfig(config.Config, rConfig); err != nil {
			return nil, types.WrapError(err, "failed to unmarshal redis backend config")
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     rConfig.Address,
		Password: rConfig.Password,
		DB:       rConfig.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, types.WrapError(err, "redis connection failed")
	}

	return &RedisBackend{
		client: client,
		prefix: rConfig.KeyPrefix,
	}, nil
}

func (r *RedisBackend) GetItem(key string) (string, bool, error) {
	value, err := r.client.Get(context.Background(), r.prefix+key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, types.WrapError(err, "redis read failed")
	}

	return value, true, nil
}

func (r *RedisBackend) SetItem(key string, value string) error {
	err := r.client.Set(context.Background(), r.prefix+key, value, 0).Err()
	return types.WrapError(err, "redis write failed")
}

func (r *RedisBackend) RemoveItem(key string) error {
	err := r.client.Del(context.Background(), r.prefix+key).Err()
	return types.WrapError(err, "redis delete failed")
}

func (r *RedisBackend) Keys() ([]string, error) {
	raw, err := r.client.Keys(context.Background(), r.prefix+"*").Result()
	if err != nil {
		return nil, types.WrapError(err, "redis scan failed")
	}

	keys := make([]string, 0, len(raw))
	for _, key := range raw {
		keys = append(keys, key[len(r.prefix):])
	}

	return keys, nil
}

func (r *RedisBackend) Clear() error {
	keys, err := r.client.Keys(context.Background(), r.prefix+"*").Result()
	if err != nil {
		return types.WrapError(err, "redis scan failed")
	}

	if len(keys) == 0 {
		return nil
	}

	err = r.client.Del(context.Background(), keys...).Err()
	return types.WrapError(err, "redis clear failed")
}

func (r *RedisBackend) Close() error {
	return r.client.Close()
}
