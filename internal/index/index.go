// Package index provides the per-tenant nearest-neighbor vector index.
// Namespaces for different tenants are fully independent: no query or
// mutation ever crosses a tenant boundary.
package index

import "context"

// Entry is one indexed chunk vector.
type Entry struct {
	ChunkID uint
	FileID  uint
	Vector  []float32
}

// Hit is one search result. Score is cosine similarity, higher is better.
type Hit struct {
	ChunkID uint
	FileID  uint
	Score   float32
}

// Index is the vector index over chunk embeddings. Results from Search are
// ordered by descending score; ties break on ascending chunk id so ranking
// is deterministic.
type Index interface {
	// Add inserts entries under the tenant; an existing chunk id is
	// overwritten.
	Add(ctx context.Context, userID string, entries []Entry) error
	// Remove drops a single chunk from the tenant namespace.
	Remove(ctx context.Context, userID string, chunkID uint) error
	// RemoveFile drops every chunk of one file in a single atomic step:
	// a concurrent search sees either all of the file's chunks or none.
	RemoveFile(ctx context.Context, userID string, fileID uint) error
	// Search returns up to k hits for the tenant.
	Search(ctx context.Context, userID string, vector []float32, k int) ([]Hit, error)
	// Count reports how many chunks the tenant has indexed.
	Count(ctx context.Context, userID string) (int, error)
	// Clear removes the whole tenant namespace. Idempotent.
	Clear(ctx context.Context, userID string) error
	// Replace atomically swaps the tenant namespace for the given entries.
	// Used by the resync worker to rebuild a namespace from storage.
	Replace(ctx context.Context, userID string, entries []Entry) error
}
