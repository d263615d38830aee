package search

import (
	"sort"

	"seek/internal/store"
)

// fusedHit carries the combined score plus both component scores for
// display. lexical and vector are 0 when the symbol missed that pass.
type fusedHit struct {
	symbolID int64
	score    float64
	lexical  float64
	vector   float64
}

// fuse merges the two candidate lists under the configured strategy. Output
// is ordered by combined score, with symbol id as a deterministic tie-break
// so repeated identical queries rank identically.
func fuse(lexical []store.LexicalHit, vector []store.VectorHit, opts Options) []fusedHit {
	byID := map[int64]*fusedHit{}
	get := func(id int64) *fusedHit {
		if h, ok := byID[id]; ok {
			return h
		}
		h := &fusedHit{symbolID: id}
		byID[id] = h
		return h
	}

	switch opts.Fusion {
	case "rrf":
		// Reciprocal-rank fusion: score by rank position in each list, so
		// the two score scales never need to be comparable.
		for rank, hit := range lexical {
			h := get(hit.SymbolID)
			h.lexical = hit.Score
			h.score += 1.0 / float64(opts.RRFK+rank+1)
		}
		for rank, hit := range vector {
			h := get(hit.SymbolID)
			h.vector = hit.Similarity
			h.score += 1.0 / float64(opts.RRFK+rank+1)
		}
	default:
		// Linear fusion over normalized scores. A symbol absent from one
		// list contributes zero for that component.
		w := opts.VectorWeight
		for _, hit := range lexical {
			h := get(hit.SymbolID)
			h.lexical = hit.Score
			h.score += (1 - w) * hit.Score
		}
		for _, hit := range vector {
			h := get(hit.SymbolID)
			h.vector = hit.Similarity
			h.score += w * hit.Similarity
		}
	}

	out := make([]fusedHit, 0, len(byID))
	for _, h := range byID {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].symbolID < out[j].symbolID
	})
	return out
}

// sortResults fixes the final display order: combined score first, then
// path, span start, and symbol id so ties never reorder between runs.
func sortResults(results []Result) {
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.StartLine != b.StartLine {
			return a.StartLine < b.StartLine
		}
		return a.SymbolID < b.SymbolID
	})
}
