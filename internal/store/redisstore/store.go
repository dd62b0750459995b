package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"github.com/wonny/hawkeye/internal/store"
	"github.com/wonny/hawkeye/pkg/redis"
)

// Store keeps each document in a redis hash {body, version, reason}.
// Writes run under WATCH so a concurrent writer aborts the transaction.
// ⭐ SSOT: Redis 문서 저장은 여기서만
type Store struct {
	client *redis.Client
}

// New creates a redis document store. The client must be enabled.
func New(client *redis.Client) (*Store, error) {
	if client == nil || !client.Enabled() {
		return nil, fmt.Errorf("%w: redis client is disabled", store.ErrInvalidInput)
	}
	return &Store{client: client}, nil
}

func (s *Store) key(name string) string {
	return fmt.Sprintf("%s:doc:%s", s.client.Prefix(), name)
}

// Get reads the whole document
func (s *Store) Get(ctx context.Context, name string) (store.Document, error) {
	if name == "" {
		return store.Document{}, store.ErrInvalidInput
	}

	vals, err := s.client.Redis().HMGet(ctx, s.key(name), "body", "version").Result()
	if err != nil {
		return store.Document{}, fmt.Errorf("failed to get document %s: %w", name, err)
	}

	body, _ := vals[0].(string)
	version, _ := vals[1].(string)
	if version == "" {
		return store.Document{}, nil
	}

	return store.Document{Data: []byte(body), Version: version}, nil
}

// Put writes the document when version matches the stored token
func (s *Store) Put(ctx context.Context, name string, data []byte, version, reason string) (string, error) {
	if name == "" {
		return "", store.ErrInvalidInput
	}

	key := s.key(name)
	var next int64

	err := s.client.Redis().Watch(ctx, func(tx *goredis.Tx) error {
		current, err := tx.HGet(ctx, key, "version").Result()
		if errors.Is(err, goredis.Nil) {
			current = ""
		} else if err != nil {
			return err
		}
		if current != version {
			return store.ErrVersionConflict
		}

		if current != "" {
			n, err := strconv.ParseInt(current, 10, 64)
			if err != nil {
				return fmt.Errorf("corrupt version %q: %w", current, err)
			}
			next = n + 1
		} else {
			next = 1
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.HSet(ctx, key,
				"body", string(data),
				"version", strconv.FormatInt(next, 10),
				"reason", reason,
			)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, goredis.TxFailedErr) {
		return "", store.ErrVersionConflict
	}
	if err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			return "", err
		}
		return "", fmt.Errorf("failed to put document %s: %w", name, err)
	}

	return strconv.FormatInt(next, 10), nil
}
