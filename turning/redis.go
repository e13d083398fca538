package turning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr         string `json:"addr" yaml:"addr"`
	Password     string `json:"password,omitempty" yaml:"password,omitempty"`
	DB           int    `json:"db" yaml:"db"`
	PoolSize     int    `json:"pool_size,omitempty" yaml:"pool_size,omitempty"`
	MinIdleConns int    `json:"min_idle_conns,omitempty" yaml:"min_idle_conns,omitempty"`
	// IdleTimeout in seconds.
	IdleTimeout int    `json:"idle_timeout,omitempty" yaml:"idle_timeout,omitempty"`
	Prefix      string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
}

// RedisStore keeps one JSON value per key. CompareAndSwap runs as an
// optimistic WATCH/MULTI transaction.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:            cfg.Addr,
		Password:        cfg.Password,
		DB:              cfg.DB,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		ConnMaxIdleTime: time.Duration(cfg.IdleTimeout) * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return NewRedisStoreWithClient(client, cfg.Prefix), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "trendengine:turning:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + k
}

func decode(data []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (s *RedisStore) Load(ctx context.Context, key string) (Record, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Initial(), nil
	}
	if err != nil {
		return Record{}, fmt.Errorf("load turning %s: %w", key, err)
	}
	rec, err := decode(data)
	if err != nil {
		return Record{}, fmt.Errorf("decode turning %s: %w", key, err)
	}
	return rec, nil
}

func (s *RedisStore) Save(ctx context.Context, key string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(key), data, 0).Err(); err != nil {
		return fmt.Errorf("save turning %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) CompareAndSwap(ctx context.Context, key string, prev, next Record) (bool, error) {
	data, err := json.Marshal(next)
	if err != nil {
		return false, err
	}
	k := s.key(key)

	swapped := false
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		cur := Initial()
		raw, err := tx.Get(ctx, k).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if cur, err = decode(raw); err != nil {
				return err
			}
		}
		if !cur.Same(prev) {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, data, 0)
			return nil
		})
		if err == nil {
			swapped = true
		}
		return err
	}, k)

	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cas turning %s: %w", key, err)
	}
	return swapped, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
