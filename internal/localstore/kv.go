// Package localstore keeps per-device data: guest history, the guest usage
// counter, the guest-mode acceptance flag and the pending-sync queue of
// signed-in users. It sits on a small key/value interface backed by SQLite or
// Redis.
package localstore

import (
	"context"
	"errors"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/blackwell-systems/smilecoach/internal/store"
)

// KV is the storage the local store needs.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Incr(ctx context.Context, key string) (int64, error)
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// SQLiteKV stores keys in the kv table of the smilecoach database.
type SQLiteKV struct {
	db *store.DB
}

// NewSQLiteKV wraps db.
func NewSQLiteKV(db *store.DB) *SQLiteKV {
	return &SQLiteKV{db: db}
}

func (k *SQLiteKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return k.db.KVGet(ctx, key)
}

func (k *SQLiteKV) Set(ctx context.Context, key string, value []byte) error {
	return k.db.KVSet(ctx, key, value)
}

func (k *SQLiteKV) Delete(ctx context.Context, key string) error {
	return k.db.KVDelete(ctx, key)
}

func (k *SQLiteKV) Incr(ctx context.Context, key string) (int64, error) {
	return k.db.KVIncr(ctx, key)
}

func (k *SQLiteKV) Keys(ctx context.Context, prefix string) ([]string, error) {
	return k.db.KVKeys(ctx, prefix)
}

// RedisKV stores keys in Redis under a namespace prefix.
type RedisKV struct {
	client    *redis.Client
	namespace string
}

// NewRedisKV wraps client. Every key is stored as namespace + key.
func NewRedisKV(client *redis.Client, namespace string) *RedisKV {
	return &RedisKV{client: client, namespace: namespace}
}

func (k *RedisKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := k.client.Get(ctx, k.namespace+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (k *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	return k.client.Set(ctx, k.namespace+key, value, 0).Err()
}

func (k *RedisKV) Delete(ctx context.Context, key string) error {
	return k.client.Del(ctx, k.namespace+key).Err()
}

func (k *RedisKV) Incr(ctx context.Context, key string) (int64, error) {
	return k.client.Incr(ctx, k.namespace+key).Result()
}

// Keys walks the keyspace with SCAN rather than KEYS so a large database is
// not blocked.
func (k *RedisKV) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := k.client.Scan(ctx, 0, k.namespace+prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val()[len(k.namespace):])
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}
