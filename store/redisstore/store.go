// Package redisstore keeps the job collection as one JSON value in Redis.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sky93/queuectl"
)

// DefaultKey is the key the collection is stored under.
const DefaultKey = "queuectl:jobs"

// Store is a queuectl.Store backed by a single Redis string.
type Store struct {
	client *redis.Client
	key    string
}

// New returns a Store using key, or DefaultKey when key is empty.
func New(client *redis.Client, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{client: client, key: key}
}

// NewClient creates and returns a new Redis client.
func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolSize:     10,
	})
}

// Close closes the Redis client.
func (s *Store) Close() error { return s.client.Close() }

func (s *Store) LoadAll(ctx context.Context) ([]queuectl.JobRecord, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}

	var jobs []queuectl.JobRecord
	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, fmt.Errorf("%w: redis key %s: %v", queuectl.ErrCorruptStore, s.key, err)
	}
	for _, j := range jobs {
		if !j.State.Valid() || j.ID == "" {
			return nil, fmt.Errorf("%w: redis key %s: bad record %q", queuectl.ErrCorruptStore, s.key, j.ID)
		}
	}
	return jobs, nil
}

// SaveAll overwrites the key. A single SET is atomic for readers.
func (s *Store) SaveAll(ctx context.Context, jobs []queuectl.JobRecord) error {
	if jobs == nil {
		jobs = []queuectl.JobRecord{}
	}
	data, err := json.Marshal(jobs)
	if err != nil {
		return fmt.Errorf("marshal jobs: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}
