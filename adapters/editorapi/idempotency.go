package editorapi

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/goliatone/go-gridexport/export"
)

// IdempotencyStore maps idempotency keys to session IDs.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, sessionID string, ttl time.Duration) error
}

// MemoryIdempotencyStore stores idempotency keys in memory.
type MemoryIdempotencyStore struct {
	mu      sync.RWMutex
	entries map[string]idempotencyEntry
	clock   func() time.Time
}

type idempotencyEntry struct {
	sessionID string
	expiresAt time.Time
}

// NewMemoryIdempotencyStore creates an in-memory store.
func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		entries: make(map[string]idempotencyEntry),
		clock:   time.Now,
	}
}

// Get returns the session ID for an idempotency key.
func (s *MemoryIdempotencyStore) Get(ctx context.Context, key string) (string, bool, error) {
	_ = ctx
	if s == nil {
		return "", false, export.NewError(export.KindInternal, "idempotency store is nil", nil)
	}
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return "", false, nil
	}
	return entry.sessionID, true, nil
}

// Set stores the session ID for an idempotency key.
func (s *MemoryIdempotencyStore) Set(ctx context.Context, key, sessionID string, ttl time.Duration) error {
	_ = ctx
	if s == nil {
		return export.NewError(export.KindInternal, "idempotency store is nil", nil)
	}
	if key == "" {
		return export.NewError(export.KindValidation, "idempotency key is required", nil)
	}
	if sessionID == "" {
		return export.NewError(export.KindValidation, "session ID is required", nil)
	}
	var expires time.Time
	if ttl > 0 {
		expires = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.entries[key] = idempotencyEntry{sessionID: sessionID, expiresAt: expires}
	s.mu.Unlock()
	return nil
}

func (s *MemoryIdempotencyStore) now() time.Time {
	if s.clock == nil {
		return time.Now()
	}
	return s.clock()
}

// buildIdempotencyKey binds the client key to the create payload so a reused
// key with a different seed opens a new table.
func buildIdempotencyKey(key string, payload CreatePayload) string {
	raw, _ := json.Marshal(struct {
		Key     string        `json:"key"`
		Payload CreatePayload `json:"payload"`
	}{Key: key, Payload: payload})
	sum := sha256.Sum256(raw)
	return fmt.Sprintf("table:%x", sum[:])
}
