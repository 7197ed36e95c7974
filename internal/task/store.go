package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

const DefaultHashKey = "pending_tasks"

// Store is the persistence contract for pending tasks. Put overwrites
// any existing record for the anchor (last writer wins). Delete is a
// no-op when the anchor is absent. ListAll returns records in whatever
// order the backing store enumerates them; callers must not rely on it.
type Store interface {
	Put(ctx context.Context, threadTS string, t Task) error
	Delete(ctx context.Context, threadTS string) error
	ListAll(ctx context.Context) ([]Entry, error)
}

// RedisStore keeps every task as one field of a single Redis hash,
// field key = thread anchor, field value = JSON-encoded Task.
type RedisStore struct {
	client  *redis.Client
	hashKey string
	log     *slog.Logger
}

func NewRedisStore(client *redis.Client, hashKey string, log *slog.Logger) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("nil redis client")
	}
	hashKey = strings.TrimSpace(hashKey)
	if hashKey == "" {
		hashKey = DefaultHashKey
	}
	if log == nil {
		log = slog.Default()
	}
	return &RedisStore{client: client, hashKey: hashKey, log: log}, nil
}

func (s *RedisStore) Put(ctx context.Context, threadTS string, t Task) error {
	threadTS = strings.TrimSpace(threadTS)
	if threadTS == "" {
		return fmt.Errorf("thread_ts is required")
	}
	raw, err := json.Marshal(t)
	if err != nil {
		return err
	}
	if err := s.client.HSet(ctx, s.hashKey, threadTS, string(raw)).Err(); err != nil {
		return fmt.Errorf("store put %s: %w", threadTS, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, threadTS string) error {
	threadTS = strings.TrimSpace(threadTS)
	if threadTS == "" {
		return fmt.Errorf("thread_ts is required")
	}
	if err := s.client.HDel(ctx, s.hashKey, threadTS).Err(); err != nil {
		return fmt.Errorf("store delete %s: %w", threadTS, err)
	}
	return nil
}

// ListAll enumerates the hash. A field that fails to decode is skipped
// and logged so one malformed record cannot hide the rest.
func (s *RedisStore) ListAll(ctx context.Context) ([]Entry, error) {
	fields, err := s.client.HGetAll(ctx, s.hashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("store list: %w", err)
	}
	out := make([]Entry, 0, len(fields))
	for threadTS, raw := range fields {
		var t Task
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			s.log.Warn("task_record_malformed", "thread_ts", threadTS, "error", err.Error())
			continue
		}
		out = append(out, Entry{ThreadTS: threadTS, Task: t})
	}
	return out, nil
}
