package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seek/internal/store"
)

func TestFuseLinear(t *testing.T) {
	lexical := []store.LexicalHit{
		{SymbolID: 1, Score: 0.9},
		{SymbolID: 2, Score: 0.5},
	}
	vector := []store.VectorHit{
		{SymbolID: 2, Similarity: 0.95},
		{SymbolID: 3, Similarity: 0.8},
	}

	out := fuse(lexical, vector, Options{Fusion: "linear", VectorWeight: 0.6})
	require.Len(t, out, 3)

	// Symbol 2 appears in both lists: 0.4*0.5 + 0.6*0.95 = 0.77.
	assert.Equal(t, int64(2), out[0].symbolID)
	assert.InDelta(t, 0.77, out[0].score, 1e-9)
	assert.InDelta(t, 0.5, out[0].lexical, 1e-9)
	assert.InDelta(t, 0.95, out[0].vector, 1e-9)

	// Vector-only beats lexical-only here: 0.6*0.8 > 0.4*0.9.
	assert.Equal(t, int64(3), out[1].symbolID)
	assert.Equal(t, int64(1), out[2].symbolID)
}

func TestFuseLinear_WeightExtremes(t *testing.T) {
	lexical := []store.LexicalHit{{SymbolID: 1, Score: 1.0}}
	vector := []store.VectorHit{{SymbolID: 2, Similarity: 0.5}}

	out := fuse(lexical, vector, Options{Fusion: "linear", VectorWeight: 1.0})
	assert.Equal(t, int64(2), out[0].symbolID, "weight 1.0 ranks purely by vector")

	out = fuse(lexical, vector, Options{Fusion: "linear", VectorWeight: 0.0})
	assert.Equal(t, int64(1), out[0].symbolID, "weight 0.0 ranks purely by lexical")
}

func TestFuseRRF(t *testing.T) {
	lexical := []store.LexicalHit{
		{SymbolID: 1, Score: 0.9},
		{SymbolID: 2, Score: 0.8},
	}
	vector := []store.VectorHit{
		{SymbolID: 2, Similarity: 0.7},
		{SymbolID: 1, Similarity: 0.6},
	}

	out := fuse(lexical, vector, Options{Fusion: "rrf", RRFK: 60})
	require.Len(t, out, 2)

	// 1: 1/61 + 1/62; 2: 1/62 + 1/61 — identical, so id breaks the tie.
	assert.InDelta(t, out[0].score, out[1].score, 1e-12)
	assert.Equal(t, int64(1), out[0].symbolID)

	vector = vector[:1] // now only symbol 2 has a vector rank
	out = fuse(lexical, vector, Options{Fusion: "rrf", RRFK: 60})
	assert.Equal(t, int64(2), out[0].symbolID, "two mid ranks beat one top rank")
}

func TestFuse_Deterministic(t *testing.T) {
	lexical := []store.LexicalHit{
		{SymbolID: 5, Score: 0.5},
		{SymbolID: 3, Score: 0.5},
		{SymbolID: 9, Score: 0.5},
	}
	first := fuse(lexical, nil, Options{Fusion: "linear", VectorWeight: 0.6})
	for range 10 {
		again := fuse(lexical, nil, Options{Fusion: "linear", VectorWeight: 0.6})
		assert.Equal(t, first, again)
	}
	assert.Equal(t, int64(3), first[0].symbolID)
}

func TestSortResults(t *testing.T) {
	results := []Result{
		{SymbolID: 2, Path: "b.go", StartLine: 1, Score: 0.5},
		{SymbolID: 1, Path: "a.go", StartLine: 9, Score: 0.5},
		{SymbolID: 3, Path: "a.go", StartLine: 2, Score: 0.5},
		{SymbolID: 4, Path: "z.go", StartLine: 1, Score: 0.9},
	}
	sortResults(results)

	assert.Equal(t, int64(4), results[0].SymbolID)
	assert.Equal(t, int64(3), results[1].SymbolID)
	assert.Equal(t, int64(1), results[2].SymbolID)
	assert.Equal(t, int64(2), results[3].SymbolID)
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "func Add() {", snippet("\n\n  func Add() {\n\treturn\n}"))
	assert.Equal(t, "", snippet("  \n\t\n"))

	long := make([]byte, 200)
	for i := range long {
		long[i] = 'x'
	}
	got := snippet(string(long))
	assert.Len(t, got, snippetMaxLen)
	assert.Contains(t, got, "...")
}
