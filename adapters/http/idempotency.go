package exporthttp

import "github.com/goliatone/go-gridexport/adapters/editorapi"

// IdempotencyStore stores idempotency keys.
type IdempotencyStore = editorapi.IdempotencyStore

// MemoryIdempotencyStore stores idempotency keys in memory.
type MemoryIdempotencyStore = editorapi.MemoryIdempotencyStore

// NewMemoryIdempotencyStore creates an in-memory store.
func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return editorapi.NewMemoryIdempotencyStore()
}
