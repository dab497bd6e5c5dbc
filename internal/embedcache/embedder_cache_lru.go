package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/lectern-ai/lectern/internal/ai"
)

// WrapLRU puts an in-memory LRU in front of an embedder. Repeated queries
// (chat follow-ups, regenerating artifacts on the same topic) skip the
// provider round-trip.
func WrapLRU(e ai.Embedder, size int, ttl time.Duration) ai.Embedder {
	if e == nil || size <= 0 || ttl <= 0 {
		return e
	}
	return &lruEmbedder{
		next:  e,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

type lruEmbedder struct {
	next  ai.Embedder
	cache *expirable.LRU[string, []float32]
}

func (l *lruEmbedder) Name() string {
	return l.next.Name()
}

func (l *lruEmbedder) ModelName() string {
	return l.next.ModelName()
}

func (l *lruEmbedder) Dim(ctx context.Context) (int, error) {
	return l.next.Dim(ctx)
}

func (l *lruEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if cached, ok := l.cache.Get(l.key(text)); ok {
			result[i] = cloneEmbedding(cached)
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		logutil.GetLogger(ctx).Debug("embedding cache hit", zap.Int("count", len(texts)))
		return result, nil
	}
	fresh, err := l.next.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	for i, vec := range fresh {
		result[missingIdx[i]] = vec
		l.cache.Add(l.key(missing[i]), cloneEmbedding(vec))
	}
	return result, nil
}

func (l *lruEmbedder) key(text string) string {
	hash := sha256.Sum256([]byte(text))
	return "embed:" + l.next.Name() + ":" + l.next.ModelName() + ":" + hex.EncodeToString(hash[:])
}

func cloneEmbedding(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	clone := make([]float32, len(values))
	copy(clone, values)
	return clone
}
