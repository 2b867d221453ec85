package index

import (
	"context"
	"math"
	"sort"
	"sync"
)

// Memory is a brute-force in-process index. Each tenant gets its own
// namespace guarded by its own RWMutex, so one tenant's writes never block
// another tenant's searches. Deletion is truly incremental: it happens under
// the namespace write lock, so readers observe either the full chunk set or
// the post-delete set, never a torn one.
type Memory struct {
	mu      sync.RWMutex
	tenants map[string]*namespace
}

type namespace struct {
	mu      sync.RWMutex
	vectors map[uint][]float32      // chunk id -> embedding
	fileOf  map[uint]uint           // chunk id -> file id
	byFile  map[uint]map[uint]bool  // file id -> chunk ids
}

func NewMemory() *Memory {
	return &Memory{tenants: make(map[string]*namespace)}
}

func newNamespace() *namespace {
	return &namespace{
		vectors: make(map[uint][]float32),
		fileOf:  make(map[uint]uint),
		byFile:  make(map[uint]map[uint]bool),
	}
}

func (m *Memory) namespaceFor(userID string, create bool) *namespace {
	m.mu.RLock()
	ns := m.tenants[userID]
	m.mu.RUnlock()
	if ns != nil || !create {
		return ns
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if ns = m.tenants[userID]; ns == nil {
		ns = newNamespace()
		m.tenants[userID] = ns
	}
	return ns
}

func (m *Memory) Add(ctx context.Context, userID string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	ns := m.namespaceFor(userID, true)

	ns.mu.Lock()
	defer ns.mu.Unlock()
	for _, e := range entries {
		ns.insertLocked(e)
	}
	return nil
}

func (ns *namespace) insertLocked(e Entry) {
	if old, ok := ns.fileOf[e.ChunkID]; ok && old != e.FileID {
		delete(ns.byFile[old], e.ChunkID)
	}
	vec := make([]float32, len(e.Vector))
	copy(vec, e.Vector)
	ns.vectors[e.ChunkID] = vec
	ns.fileOf[e.ChunkID] = e.FileID
	if ns.byFile[e.FileID] == nil {
		ns.byFile[e.FileID] = make(map[uint]bool)
	}
	ns.byFile[e.FileID][e.ChunkID] = true
}

func (m *Memory) Remove(ctx context.Context, userID string, chunkID uint) error {
	ns := m.namespaceFor(userID, false)
	if ns == nil {
		return nil
	}

	ns.mu.Lock()
	defer ns.mu.Unlock()
	if fileID, ok := ns.fileOf[chunkID]; ok {
		delete(ns.byFile[fileID], chunkID)
		if len(ns.byFile[fileID]) == 0 {
			delete(ns.byFile, fileID)
		}
	}
	delete(ns.vectors, chunkID)
	delete(ns.fileOf, chunkID)
	return nil
}

func (m *Memory) RemoveFile(ctx context.Context, userID string, fileID uint) error {
	ns := m.namespaceFor(userID, false)
	if ns == nil {
		return nil
	}

	ns.mu.Lock()
	defer ns.mu.Unlock()
	for chunkID := range ns.byFile[fileID] {
		delete(ns.vectors, chunkID)
		delete(ns.fileOf, chunkID)
	}
	delete(ns.byFile, fileID)
	return nil
}

func (m *Memory) Search(ctx context.Context, userID string, vector []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}
	ns := m.namespaceFor(userID, false)
	if ns == nil {
		return nil, nil
	}

	ns.mu.RLock()
	hits := make([]Hit, 0, len(ns.vectors))
	for chunkID, vec := range ns.vectors {
		hits = append(hits, Hit{
			ChunkID: chunkID,
			FileID:  ns.fileOf[chunkID],
			Score:   cosineSimilarity(vector, vec),
		})
	}
	ns.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *Memory) Count(ctx context.Context, userID string) (int, error) {
	ns := m.namespaceFor(userID, false)
	if ns == nil {
		return 0, nil
	}
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return len(ns.vectors), nil
}

func (m *Memory) Clear(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tenants, userID)
	return nil
}

func (m *Memory) Replace(ctx context.Context, userID string, entries []Entry) error {
	ns := newNamespace()
	for _, e := range entries {
		ns.insertLocked(e)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(entries) == 0 {
		delete(m.tenants, userID)
		return nil
	}
	m.tenants[userID] = ns
	return nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA <= 0 || normB <= 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
