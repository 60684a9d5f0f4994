package memory

import (
	"context"
	"errors"
	"testing"

	"quiz-session-service/internal/securestore"
)

func TestSessionBackendLifecycle(t *testing.T) {
	ctx := context.Background()
	backend := NewSessionBackend()

	if _, err := backend.Get(ctx, "slot-1"); !errors.Is(err, securestore.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}

	if err := backend.Set(ctx, "slot-1", "ciphertext"); err != nil {
		t.Fatalf("set: %v", err)
	}
	value, err := backend.Get(ctx, "slot-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if value != "ciphertext" {
		t.Fatalf("expected stored value, got %q", value)
	}

	if err := backend.Del(ctx, "slot-1", "slot-2"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if _, err := backend.Get(ctx, "slot-1"); !errors.Is(err, securestore.ErrNotFound) {
		t.Fatalf("expected slot removed, got %v", err)
	}
}
