package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one session's cart under two keys so that clearing the
// items leaves the saved shipping details in place.
type RedisStore struct {
	client  redis.Cmdable
	session string
	ttl     time.Duration
}

func NewRedisStore(client redis.Cmdable, session string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, session: session, ttl: ttl}
}

func (s *RedisStore) itemsKey() string   { return fmt.Sprintf("cart:%s:items", s.session) }
func (s *RedisStore) detailsKey() string { return fmt.Sprintf("cart:%s:details", s.session) }

func (s *RedisStore) Load(ctx context.Context) (Snapshot, error) {
	var snap Snapshot

	vals, err := s.client.MGet(ctx, s.itemsKey(), s.detailsKey()).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return snap, fmt.Errorf("failed to load cart: %w", err)
	}

	if raw, ok := vals[0].(string); ok {
		if err := json.Unmarshal([]byte(raw), &snap.Items); err != nil {
			return snap, fmt.Errorf("corrupt cart items: %w", err)
		}
	}
	if raw, ok := vals[1].(string); ok {
		if err := json.Unmarshal([]byte(raw), &snap.Details); err != nil {
			return snap, fmt.Errorf("corrupt cart details: %w", err)
		}
	}

	return snap, nil
}

func (s *RedisStore) Save(ctx context.Context, snap Snapshot) error {
	items, err := json.Marshal(snap.Items)
	if err != nil {
		return err
	}
	details, err := json.Marshal(snap.Details)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.itemsKey(), items, s.ttl)
	pipe.Set(ctx, s.detailsKey(), details, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.itemsKey()).Err(); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

func RedisStores(client redis.Cmdable, ttl time.Duration) StoreFunc {
	return func(session string) Store {
		return NewRedisStore(client, session, ttl)
	}
}
