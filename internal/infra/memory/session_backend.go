package memory

import (
	"context"
	"sync"

	"quiz-session-service/internal/securestore"
)

// SessionBackend is the in-process storage area for encrypted session slots.
// Its natural lifetime is the process, mirroring tab-scoped storage: nothing
// survives a restart.
type SessionBackend struct {
	mu    sync.RWMutex
	slots map[string]string
}

func NewSessionBackend() *SessionBackend {
	return &SessionBackend{slots: make(map[string]string)}
}

func (b *SessionBackend) Set(_ context.Context, slot, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.slots[slot] = value
	return nil
}

func (b *SessionBackend) Get(_ context.Context, slot string) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	value, ok := b.slots[slot]
	if !ok {
		return "", securestore.ErrNotFound
	}
	return value, nil
}

func (b *SessionBackend) Del(_ context.Context, slots ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, slot := range slots {
		delete(b.slots, slot)
	}
	return nil
}
