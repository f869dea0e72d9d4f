// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix         = "landscape:run:"
	connectionTimeout = 5 * time.Second
)

// RedisStore keeps run state in Redis so several front ends can serve
// the same runs.
type RedisStore struct {
	client    *redis.Client
	retention time.Duration
}

// DialRedis connects to addr and verifies the connection.
func DialRedis(addr, password string, db int, retention time.Duration) (*RedisStore, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisStore(client, retention), nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, retention time.Duration) *RedisStore {
	return &RedisStore{client: client, retention: retention}
}

// Put stores st with the retention period as its TTL.
func (r *RedisStore) Put(ctx context.Context, st State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding run state: %w", err)
	}
	if err := r.client.Set(ctx, keyPrefix+st.RunID, data, r.retention).Err(); err != nil {
		return fmt.Errorf("storing run state: %w", err)
	}
	return nil
}

// Get loads the state of a run.
func (r *RedisStore) Get(ctx context.Context, runID string) (State, error) {
	data, err := r.client.Get(ctx, keyPrefix+runID).Bytes()
	if errors.Is(err, redis.Nil) {
		return State{}, ErrNotFound
	}
	if err != nil {
		return State{}, fmt.Errorf("loading run state: %w", err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("decoding run state: %w", err)
	}
	return st, nil
}

// Close closes the client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
