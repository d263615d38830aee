package embed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashBackend_Deterministic(t *testing.T) {
	b := NewHashBackend()
	ctx := context.Background()

	first, err := b.Embed(ctx, []string{"func CalculateSum(a, b int) int"})
	require.NoError(t, err)
	second, err := b.Embed(ctx, []string{"func CalculateSum(a, b int) int"})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	dim, err := b.Dimension(ctx)
	require.NoError(t, err)
	assert.Equal(t, hashDimension, dim)
	assert.Len(t, first[0], dim)
}

func TestHashBackend_CamelCaseOverlap(t *testing.T) {
	b := NewHashBackend()
	ctx := context.Background()

	vecs, err := b.Embed(ctx, []string{"CalculateSum", "calculate sum", "unrelated text"})
	require.NoError(t, err)

	sim := func(a, c []float32) float64 {
		var dot float64
		for i := range a {
			dot += float64(a[i]) * float64(c[i])
		}
		return dot // vectors are L2-normalized
	}
	assert.Greater(t, sim(vecs[0], vecs[1]), sim(vecs[0], vecs[2]))
}

func TestHashBackend_Normalized(t *testing.T) {
	b := NewHashBackend()
	vecs, err := b.Embed(context.Background(), []string{"some symbol body"})
	require.NoError(t, err)

	var norm float64
	for _, v := range vecs[0] {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

// countingBackend records how many texts reached the backend.
type countingBackend struct {
	HashBackend
	embedded int
}

func (c *countingBackend) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.embedded += len(texts)
	return c.HashBackend.Embed(ctx, texts)
}

func TestPipeline_CacheSkipsBackend(t *testing.T) {
	backend := &countingBackend{}
	p := NewPipeline(backend, 2)
	ctx := context.Background()

	_, err := p.EmbedTexts(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)
	assert.Equal(t, 2, backend.embedded)

	// Second call with one repeated text only embeds the new one.
	out, err := p.EmbedTexts(ctx, []string{"alpha", "gamma"})
	require.NoError(t, err)
	assert.Equal(t, 3, backend.embedded)
	assert.Len(t, out, 2)
}

func TestPipeline_OrderPreserved(t *testing.T) {
	p := NewPipeline(NewHashBackend(), 1)
	ctx := context.Background()

	texts := []string{"one", "two", "three", "one"}
	out, err := p.EmbedTexts(ctx, texts)
	require.NoError(t, err)
	require.Len(t, out, 4)
	assert.Equal(t, out[0], out[3])
	assert.NotEqual(t, out[0], out[1])
}

func TestPipeline_CheckDimension(t *testing.T) {
	p := NewPipeline(NewHashBackend(), 1)
	ctx := context.Background()

	// Zero means "not yet recorded" and always passes.
	assert.NoError(t, p.CheckDimension(ctx, 0))
	assert.NoError(t, p.CheckDimension(ctx, hashDimension))

	err := p.CheckDimension(ctx, hashDimension+1)
	require.Error(t, err)
	assert.ErrorContains(t, err, "--reindex")
}

func TestPipeline_ContextCancellation(t *testing.T) {
	p := NewPipeline(NewHashBackend(), 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.EmbedTexts(ctx, []string{"text"})
	assert.True(t, errors.Is(err, context.Canceled))
}
