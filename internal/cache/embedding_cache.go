package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/Tushar2380/docuAi/internal/ai"
)

// WrapLRUEmbedder puts an in-process expirable LRU in front of the
// embedder. Repeated questions (and re-ingested identical chunks) skip the
// network round trip. Batch calls pass through uncached: chunk batches are
// unique per upload and would only churn the cache.
func WrapLRUEmbedder(next ai.Embedder, size int, ttl time.Duration) ai.Embedder {
	if next == nil || size <= 0 || ttl <= 0 {
		return next
	}
	return &lruEmbedder{
		next:  next,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

type lruEmbedder struct {
	next  ai.Embedder
	cache *expirable.LRU[string, []float32]
}

func (l *lruEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := l.cache.Get(text); ok {
		return cloneVector(cached), nil
	}
	vec, err := l.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	l.cache.Add(text, cloneVector(vec))
	return vec, nil
}

func (l *lruEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return l.next.EmbedBatch(ctx, texts)
}

func cloneVector(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	clone := make([]float32, len(values))
	copy(clone, values)
	return clone
}
