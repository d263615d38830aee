// Package search implements hybrid retrieval: a lexical full-text pass and
// a vector nearest-neighbor pass over the same symbol index, fused into one
// ranked result list.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"seek/internal/embed"
	"seek/internal/errs"
	"seek/internal/store"
)

const (
	// overFetchFactor widens both sub-searches so fusion sees candidates
	// beyond the final cut; a hit ranked low lexically can still win on the
	// combined score.
	overFetchFactor = 3
	overFetchFloor  = 50

	snippetMaxLen = 120
)

// Result is one ranked search hit with its component scores.
type Result struct {
	SymbolID  int64   `json:"symbol_id"`
	Path      string  `json:"path"`
	Name      string  `json:"name"`
	Kind      string  `json:"kind"`
	Language  string  `json:"language"`
	StartLine int     `json:"start_line"`
	EndLine   int     `json:"end_line"`
	Score     float64 `json:"score"`
	Lexical   float64 `json:"lexical_score"`
	Vector    float64 `json:"vector_score"`
	Snippet   string  `json:"snippet"`
}

// Options selects and parameterizes the fusion strategy.
type Options struct {
	// Fusion is "linear" or "rrf".
	Fusion string
	// VectorWeight is the vector share under linear fusion, in [0, 1].
	VectorWeight float64
	// RRFK is the rank constant under reciprocal-rank fusion.
	RRFK int
}

// Engine runs hybrid queries against a store through an embedding pipeline.
type Engine struct {
	store    *store.Store
	pipeline *embed.Pipeline
	opts     Options
}

func NewEngine(st *store.Store, pipeline *embed.Pipeline, opts Options) *Engine {
	if opts.Fusion == "" {
		opts.Fusion = "linear"
	}
	if opts.VectorWeight == 0 {
		opts.VectorWeight = 0.6
	}
	if opts.RRFK == 0 {
		opts.RRFK = 60
	}
	return &Engine{store: st, pipeline: pipeline, opts: opts}
}

// Search returns the top k fused results for a natural-language query.
// When the embedding backend is unreachable it degrades to lexical-only
// ranking rather than failing the query.
func (e *Engine) Search(ctx context.Context, query string, filters store.Filters, k int) ([]Result, error) {
	if k <= 0 {
		k = 10
	}
	fetch := k * overFetchFactor
	if fetch < overFetchFloor {
		fetch = overFetchFloor
	}

	lexical, err := e.store.LexicalSearch(query, filters, fetch)
	if err != nil {
		return nil, err
	}

	var vector []store.VectorHit
	queryVec, err := e.pipeline.EmbedQuery(ctx, query)
	switch {
	case errors.Is(err, errs.ErrBackendUnavailable):
		// Local index still answers; vector scores are simply absent.
	case err != nil:
		return nil, err
	default:
		blob, serr := sqlite_vec.SerializeFloat32(queryVec)
		if serr != nil {
			return nil, fmt.Errorf("serialize query vector: %w", serr)
		}
		vector, err = e.store.VectorSearch(blob, filters, fetch)
		if err != nil {
			return nil, err
		}
	}

	// Hydrate every fused candidate before cutting to k: the final tie
	// order needs path and span, which fusion does not carry.
	fused := fuse(lexical, vector, e.opts)
	results := make([]Result, 0, len(fused))
	for _, f := range fused {
		sym, path, err := e.store.GetSymbol(f.symbolID)
		if err != nil {
			return nil, err
		}
		results = append(results, Result{
			SymbolID:  sym.ID,
			Path:      path,
			Name:      sym.Name,
			Kind:      sym.Kind,
			Language:  sym.Language,
			StartLine: sym.StartLine,
			EndLine:   sym.EndLine,
			Score:     f.score,
			Lexical:   f.lexical,
			Vector:    f.vector,
			Snippet:   snippet(sym.Content),
		})
	}
	sortResults(results)
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// snippet is the first non-empty line of a symbol body, truncated.
func snippet(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) > snippetMaxLen {
			line = line[:snippetMaxLen-3] + "..."
		}
		return line
	}
	return ""
}
