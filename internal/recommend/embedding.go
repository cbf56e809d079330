package recommend

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/samber/lo"

	"connsolver/internal/puzzle"
)

// Embedder turns words into vectors.
type Embedder interface {
	Embed(ctx context.Context, words []string) ([][]float64, error)
}

// DefaultCacheWords bounds the vector cache of an Embedding.
const DefaultCacheWords = 1024

// Embedding scores every four-word subset of the pool by the mean pairwise
// cosine similarity of its word vectors and proposes the best untried one.
// Vectors are cached per word; the oldest entries are dropped once the cache
// holds more than MaxCacheWords (DefaultCacheWords when zero).
type Embedding struct {
	Embedder      Embedder
	MaxCacheWords int

	mu    sync.Mutex
	cache map[string][]float64
	order []string
}

func (e *Embedding) Recommend(ctx context.Context, view puzzle.View) (puzzle.Recommendation, error) {
	vectors, err := e.vectors(ctx, view.RemainingWords)
	if err != nil {
		return puzzle.Recommendation{}, err
	}

	rejected := rejectedSet(view)
	words := view.RemainingWords
	var (
		best      []string
		bestScore = math.Inf(-1)
	)
	combinations(len(words), puzzle.GroupSize, func(idx []int) bool {
		candidate := pick(words, idx)
		if _, seen := rejected[groupKey(candidate)]; seen {
			return true
		}
		if score := groupScore(idx, words, vectors); score > bestScore {
			best, bestScore = candidate, score
		}
		return ctx.Err() == nil
	})
	if err := ctx.Err(); err != nil {
		return puzzle.Recommendation{}, err
	}
	if best == nil {
		return puzzle.Recommendation{}, ErrExhausted
	}
	return puzzle.Recommendation{
		Group: puzzle.Group{
			Words:  best,
			Reason: fmt.Sprintf("Closest in meaning among the remaining words (similarity %.2f)", bestScore),
		},
		Recommender: NameEmbedding,
	}, nil
}

func (e *Embedding) vectors(ctx context.Context, words []string) (map[string][]float64, error) {
	e.mu.Lock()
	if e.cache == nil {
		e.cache = make(map[string][]float64)
	}
	out := make(map[string][]float64, len(words))
	for _, w := range words {
		if v, ok := e.cache[w]; ok {
			out[w] = v
		}
	}
	e.mu.Unlock()

	missing := lo.Filter(words, func(w string, _ int) bool {
		_, ok := out[w]
		return !ok
	})
	if len(missing) == 0 {
		return out, nil
	}
	fetched, err := e.Embedder.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(fetched) != len(missing) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d words", len(fetched), len(missing))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for i, w := range missing {
		out[w] = fetched[i]
		if _, ok := e.cache[w]; !ok {
			e.order = append(e.order, w)
		}
		e.cache[w] = fetched[i]
	}
	e.evictLocked()
	return out, nil
}

func (e *Embedding) evictLocked() {
	limit := e.MaxCacheWords
	if limit <= 0 {
		limit = DefaultCacheWords
	}
	if over := len(e.order) - limit; over > 0 {
		for _, w := range e.order[:over] {
			delete(e.cache, w)
		}
		e.order = append([]string(nil), e.order[over:]...)
	}
}

// cachedWords reports how many word vectors are cached.
func (e *Embedding) cachedWords() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.cache)
}

func groupScore(idx []int, words []string, vectors map[string][]float64) float64 {
	var sum float64
	pairs := 0
	for i := 0; i < len(idx); i++ {
		for j := i + 1; j < len(idx); j++ {
			sum += cosine(vectors[words[idx[i]]], vectors[words[idx[j]]])
			pairs++
		}
	}
	if pairs == 0 {
		return 0
	}
	return sum / float64(pairs)
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
