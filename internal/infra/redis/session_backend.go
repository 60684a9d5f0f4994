package redis

import (
	"context"
	"errors"
	"time"

	"quiz-session-service/internal/securestore"
	goredis "github.com/redis/go-redis/v9"
)

// SessionBackend stores encrypted session slots in Redis. The TTL bounds the
// browsing-session lifetime: attempts are ephemeral, so every write refreshes
// the expiry and an expired slot simply reads as absent.
type SessionBackend struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewSessionBackend(client *goredis.Client, ttl time.Duration) *SessionBackend {
	return &SessionBackend{client: client, ttl: ttl}
}

func (b *SessionBackend) Set(ctx context.Context, slot, value string) error {
	return b.client.Set(ctx, b.key(slot), value, b.ttl).Err()
}

func (b *SessionBackend) Get(ctx context.Context, slot string) (string, error) {
	value, err := b.client.Get(ctx, b.key(slot)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", securestore.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (b *SessionBackend) Del(ctx context.Context, slots ...string) error {
	keys := make([]string, len(slots))
	for i, slot := range slots {
		keys[i] = b.key(slot)
	}
	return b.client.Del(ctx, keys...).Err()
}

func (b *SessionBackend) key(slot string) string {
	return "session:slot:" + slot
}
