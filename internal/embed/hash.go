package embed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

const hashDimension = 256

// HashBackend is a deterministic, dependency-free embedding model: each
// token hashes into a bucket of a fixed-size frequency vector, which is then
// L2-normalized. It captures lexical overlap only, but it needs no server,
// always returns the same vector for the same text, and is cheap enough for
// large trees. Used as the lightweight model for offline indexes and tests.
type HashBackend struct{}

// NewHashBackend creates the deterministic local backend.
func NewHashBackend() *HashBackend { return &HashBackend{} }

func (b *HashBackend) ID() string { return "hash" }

func (b *HashBackend) Dimension(ctx context.Context) (int, error) {
	return hashDimension, nil
}

func (b *HashBackend) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vecs[i] = hashEmbed(text)
	}
	return vecs, nil
}

func hashEmbed(text string) []float32 {
	vec := make([]float32, hashDimension)
	for _, tok := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%hashDimension]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}

// tokenize lowercases and splits on non-alphanumerics, then further splits
// camelCase so `CalculateSum` and "calculate sum" share tokens.
func tokenize(text string) []string {
	var toks []string
	for _, raw := range strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		for _, part := range splitCamel(raw) {
			toks = append(toks, strings.ToLower(part))
		}
	}
	return toks
}

func splitCamel(s string) []string {
	var parts []string
	start := 0
	runes := []rune(s)
	for i := 1; i < len(runes); i++ {
		if unicode.IsUpper(runes[i]) && !unicode.IsUpper(runes[i-1]) {
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}
	parts = append(parts, string(runes[start:]))
	return parts
}
