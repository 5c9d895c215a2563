// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ManuGH/aurastream/internal/faststart"
	"github.com/ManuGH/aurastream/internal/log"
	"github.com/ManuGH/aurastream/internal/snapshot"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string // Redis server address (host:port)
	Password string // Redis password (optional)
	DB       int    // Redis database number
}

// RedisStore persists diagnostic state in Redis, for deployments where the
// engine host itself is ephemeral. Values are JSON under prefixed keys.
type RedisStore struct {
	client *redis.Client
}

const redisKeyPrefix = "aurastream:"

// NewRedisStore connects to Redis and verifies the connection before
// returning.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger := log.WithComponent("store")
	logger.Info().
		Str("addr", cfg.Addr).
		Int("db", cfg.DB).
		Msg("connected to redis")

	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Backend() string { return "redis" }

func (s *RedisStore) SaveFastStart(ctx context.Context, samples []faststart.Sample) error {
	return s.put(ctx, redisKeyPrefix+keyFastStart, samples)
}

func (s *RedisStore) LoadFastStart(ctx context.Context) ([]faststart.Sample, error) {
	var out []faststart.Sample
	if err := s.get(ctx, redisKeyPrefix+keyFastStart, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *RedisStore) SaveExport(ctx context.Context, doc *snapshot.ExportDocument) error {
	return s.put(ctx, redisKeyPrefix+keyExport, doc)
}

func (s *RedisStore) LoadExport(ctx context.Context) (*snapshot.ExportDocument, error) {
	var out snapshot.ExportDocument
	if err := s.get(ctx, redisKeyPrefix+keyExport, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *RedisStore) Close() error { return s.client.Close() }

// HealthCheck checks if Redis is available.
func (s *RedisStore) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) put(ctx context.Context, key string, v any) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, buf, 0).Err()
}

func (s *RedisStore) get(ctx context.Context, key string, v any) error {
	val, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(val, v)
}

var _ Store = (*RedisStore)(nil)
