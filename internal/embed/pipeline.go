package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/semaphore"

	"seek/internal/errs"
)

const (
	batchSize    = 32
	cacheEntries = 4096
)

// Pipeline batches symbol texts through a backend. A weighted semaphore
// bounds how many batches are in flight at once, so a sync over a large
// repository cannot queue unbounded embedding work. Vectors are cached by
// content hash, keyed to the backend id, so re-synced symbols whose text is
// unchanged and repeated queries skip the backend entirely.
type Pipeline struct {
	backend Backend
	sem     *semaphore.Weighted
	cache   *lru.Cache[string, []float32]
}

// NewPipeline wraps a backend. maxInFlight bounds concurrent batch calls;
// 0 means 4.
func NewPipeline(backend Backend, maxInFlight int) *Pipeline {
	if maxInFlight <= 0 {
		maxInFlight = 4
	}
	cache, err := lru.New[string, []float32](cacheEntries)
	if err != nil {
		panic(fmt.Sprintf("lru.New: %v", err)) // only fails for size <= 0
	}
	return &Pipeline{
		backend: backend,
		sem:     semaphore.NewWeighted(int64(maxInFlight)),
		cache:   cache,
	}
}

// Backend returns the wrapped backend.
func (p *Pipeline) Backend() Backend { return p.backend }

// Dimension reports the backend's output dimension.
func (p *Pipeline) Dimension(ctx context.Context) (int, error) {
	return p.backend.Dimension(ctx)
}

// CheckDimension verifies the backend against the dimension recorded when
// the index was built. A mismatch is fail-fast: silently re-embedding would
// invalidate every stored vector.
func (p *Pipeline) CheckDimension(ctx context.Context, stored int) error {
	if stored == 0 {
		return nil // first-ever sync sets the dimension
	}
	dim, err := p.backend.Dimension(ctx)
	if err != nil {
		return err
	}
	if dim != stored {
		return fmt.Errorf("%w: backend %s produces %d-dimension vectors but the index was built with %d; re-run with --reindex after fixing the model configuration",
			errs.ErrDimensionMismatch, p.backend.ID(), dim, stored)
	}
	return nil
}

// EmbedTexts returns one vector per text, in order, batching backend calls.
func (p *Pipeline) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	// Resolve cache hits first; collect the misses for the backend.
	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		if vec, ok := p.cache.Get(p.cacheKey(text)); ok {
			out[i] = vec
		} else {
			missIdx = append(missIdx, i)
			missTexts = append(missTexts, text)
		}
	}

	for start := 0; start < len(missTexts); start += batchSize {
		end := start + batchSize
		if end > len(missTexts) {
			end = len(missTexts)
		}
		vecs, err := p.embedBatch(ctx, missTexts[start:end])
		if err != nil {
			return nil, err
		}
		for j, vec := range vecs {
			i := missIdx[start+j]
			out[i] = vec
			p.cache.Add(p.cacheKey(texts[i]), vec)
		}
	}
	return out, nil
}

// EmbedQuery embeds a single query string through the same model as indexed
// content.
func (p *Pipeline) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (p *Pipeline) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.sem.Release(1)
	return p.backend.Embed(ctx, texts)
}

func (p *Pipeline) cacheKey(text string) string {
	h := sha256.Sum256([]byte(p.backend.ID() + "\x00" + text))
	return hex.EncodeToString(h[:])
}
