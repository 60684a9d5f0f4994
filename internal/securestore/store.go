// Package securestore persists opaque JSON blobs encrypted with a shared
// secret. It has no knowledge of quiz semantics; callers address slots by
// name and always get back either a valid value or an absence signal.
package securestore

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrNotFound is returned by backends when a slot does not exist.
var ErrNotFound = errors.New("slot not found")

// Backend abstracts the underlying storage area (in-process map, Redis, etc).
// Values are opaque ciphertext strings.
type Backend interface {
	Set(ctx context.Context, slot, value string) error
	Get(ctx context.Context, slot string) (string, error)
	Del(ctx context.Context, slots ...string) error
}

// Config carries the store dependencies explicitly so tests can inject a fake
// backend and a deterministic key.
type Config struct {
	// Key is the shared secret. Any non-empty string; it is stretched to the
	// cipher key size before use.
	Key string
	// Backend is the storage area the ciphertext is written to.
	Backend Backend
}

// Store encrypts and decrypts slot values with XChaCha20-Poly1305.
type Store struct {
	backend Backend
	key     [chacha20poly1305.KeySize]byte
}

// New builds a Store from config. The key's strength is not validated beyond
// being non-empty; key management is the deployment's concern.
func New(cfg Config) (*Store, error) {
	if cfg.Key == "" {
		return nil, errors.New("securestore: key must not be empty")
	}
	if cfg.Backend == nil {
		return nil, errors.New("securestore: backend must not be nil")
	}
	return &Store{
		backend: cfg.Backend,
		key:     sha256.Sum256([]byte(cfg.Key)),
	}, nil
}

// Save serializes v to JSON, encrypts it, and writes it under slot.
func (s *Store) Save(ctx context.Context, slot string, v any) error {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("securestore: marshal %s: %w", slot, err)
	}

	aead, err := chacha20poly1305.NewX(s.key[:])
	if err != nil {
		return fmt.Errorf("securestore: cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("securestore: nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, plaintext, nil)

	if err := s.backend.Set(ctx, slot, base64.StdEncoding.EncodeToString(sealed)); err != nil {
		return fmt.Errorf("securestore: write %s: %w", slot, err)
	}
	return nil
}

// Load reads slot, decrypts it, and unmarshals into v. It returns false when
// the slot is missing, and treats corrupted ciphertext, a wrong key, or
// malformed JSON the same way: callers see absence, never a decryption error.
func (s *Store) Load(ctx context.Context, slot string, v any) (bool, error) {
	raw, err := s.backend.Get(ctx, slot)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("securestore: read %s: %w", slot, err)
	}

	sealed, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return false, nil
	}
	aead, err := chacha20poly1305.NewX(s.key[:])
	if err != nil {
		return false, nil
	}
	if len(sealed) < aead.NonceSize() {
		return false, nil
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return false, nil
	}
	if err := json.Unmarshal(plaintext, v); err != nil {
		return false, nil
	}
	return true, nil
}

// Clear removes the given slots. Missing slots are not an error.
func (s *Store) Clear(ctx context.Context, slots ...string) error {
	if len(slots) == 0 {
		return nil
	}
	if err := s.backend.Del(ctx, slots...); err != nil {
		return fmt.Errorf("securestore: clear: %w", err)
	}
	return nil
}
