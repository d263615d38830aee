// Package embed turns symbol text into fixed-dimension vectors through a
// pluggable backend, with batching, backpressure, and dimension checks.
package embed

import (
	"context"
	"fmt"
	"strings"
)

// Backend is a pluggable embedding model.
type Backend interface {
	// ID identifies the model, e.g. "ollama:nomic-embed-text". Stored in the
	// index state so model changes are detected.
	ID() string
	// Dimension is the output vector size. Known without a network call for
	// local backends; probed on first use for remote ones.
	Dimension(ctx context.Context) (int, error)
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Options carries backend construction parameters from config.
type Options struct {
	OllamaURL   string
	TimeoutSecs int
}

// NewBackend builds a backend from a model identifier. "hash" selects the
// deterministic local backend; "ollama:<model>" (or a bare model name)
// selects the ollama HTTP backend.
func NewBackend(modelID string, opts Options) (Backend, error) {
	switch {
	case modelID == "hash":
		return NewHashBackend(), nil
	case strings.HasPrefix(modelID, "ollama:"):
		return NewOllamaBackend(opts.OllamaURL, strings.TrimPrefix(modelID, "ollama:"), opts.TimeoutSecs), nil
	case modelID != "" && !strings.Contains(modelID, ":"):
		return NewOllamaBackend(opts.OllamaURL, modelID, opts.TimeoutSecs), nil
	default:
		return nil, fmt.Errorf("unknown embedding model %q", modelID)
	}
}
