package repositories

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCartTTL = 30 * 24 * time.Hour

// RedisCartStore is the per-device cart store. Every write publishes its
// origin on "<key>:changed" so other managers of the device can reload.
type RedisCartStore struct {
	cli *redis.Client
	ttl time.Duration
}

func NewRedisCartStore(cli *redis.Client, ttl time.Duration) *RedisCartStore {
	if ttl <= 0 {
		ttl = defaultCartTTL
	}
	return &RedisCartStore{cli: cli, ttl: ttl}
}

func changedChannel(key string) string {
	return key + ":changed"
}

// Get returns nil, nil for a missing key.
func (s *RedisCartStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.cli.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cart %s: %w", key, err)
	}
	return data, nil
}

func (s *RedisCartStore) Set(ctx context.Context, key string, data []byte, origin string) error {
	pipe := s.cli.TxPipeline()
	pipe.Set(ctx, key, data, s.ttl)
	pipe.Publish(ctx, changedChannel(key), origin)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write cart %s: %w", key, err)
	}
	return nil
}

func (s *RedisCartStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.cli.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete carts: %w", err)
	}
	return nil
}

// Subscribe forwards the origin of each write on key. The channel is
// closed after cancel is called or ctx is done.
func (s *RedisCartStore) Subscribe(ctx context.Context, key string) (<-chan string, func(), error) {
	sub := s.cli.Subscribe(ctx, changedChannel(key))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe to %s: %w", key, err)
	}

	out := make(chan string, 1)
	done := make(chan struct{})
	go func() {
		defer close(out)
		msgs := sub.Channel()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				case <-done:
					return
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = sub.Close()
		})
	}
	return out, cancel, nil
}

// Ping checks the connection.
func (s *RedisCartStore) Ping(ctx context.Context) error {
	return s.cli.Ping(ctx).Err()
}
