// Package redis is a store.JobStore backed by Redis.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nodeflowgo/nodeflow/queue/store"
)

// Store implements store.JobStore using Redis: one string key per record
// plus a per-batch set indexing its member ids.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Options configures a Redis-backed store.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // Key prefix, default "nodeflow:".
	TTL      time.Duration // Expiration for records, default 0 (no expiration).
}

// New creates a Redis job store.
func New(opts Options) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "nodeflow:"
	}
	return &Store{client: client, prefix: prefix, ttl: opts.TTL}
}

// NewWithClient wraps an existing client; useful for tests against
// miniredis.
func NewWithClient(client *redis.Client, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = "nodeflow:"
	}
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

func (s *Store) recordKey(id string) string {
	return fmt.Sprintf("%sjob:%s", s.prefix, id)
}

func (s *Store) batchKey(batchID string) string {
	return fmt.Sprintf("%sbatch:%s:jobs", s.prefix, batchID)
}

func (s *Store) Save(ctx context.Context, record *store.JobRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("redis: failed to marshal job record: %w", err)
	}

	key := s.recordKey(record.ID)
	pipe := s.client.Pipeline()
	pipe.Set(ctx, key, data, s.ttl)

	if record.BatchID != "" {
		batchKey := s.batchKey(record.BatchID)
		pipe.SAdd(ctx, batchKey, record.ID)
		if s.ttl > 0 {
			pipe.Expire(ctx, batchKey, s.ttl)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: failed to save job record: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, id string) (*store.JobRecord, error) {
	data, err := s.client.Get(ctx, s.recordKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("redis: job record not found: %s", id)
		}
		return nil, fmt.Errorf("redis: failed to load job record: %w", err)
	}

	var r store.JobRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("redis: failed to unmarshal job record: %w", err)
	}
	return &r, nil
}

func (s *Store) List(ctx context.Context, batchID string) ([]*store.JobRecord, error) {
	ids, err := s.client.SMembers(ctx, s.batchKey(batchID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: failed to list job records for batch %s: %w", batchID, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.recordKey(id)
	}

	results, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: failed to fetch job records: %w", err)
	}

	var out []*store.JobRecord
	for _, result := range results {
		if result == nil {
			continue
		}
		strData, ok := result.(string)
		if !ok {
			continue
		}
		var r store.JobRecord
		if err := json.Unmarshal([]byte(strData), &r); err != nil {
			continue
		}
		out = append(out, &r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	record, err := s.Load(ctx, id)
	if err != nil {
		if n, existsErr := s.client.Exists(ctx, s.recordKey(id)).Result(); existsErr == nil && n == 0 {
			return nil
		}
		return err
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.recordKey(id))
	if record.BatchID != "" {
		pipe.SRem(ctx, s.batchKey(record.BatchID), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: failed to delete job record: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, batchID string) error {
	ids, err := s.client.SMembers(ctx, s.batchKey(batchID)).Result()
	if err != nil {
		return fmt.Errorf("redis: failed to get job records for clearing: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, id := range ids {
		pipe.Del(ctx, s.recordKey(id))
	}
	pipe.Del(ctx, s.batchKey(batchID))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: failed to clear job records: %w", err)
	}
	return nil
}
