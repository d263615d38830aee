package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"seek/internal/errs"
)

// OllamaBackend calls the ollama /api/embed endpoint.
type OllamaBackend struct {
	baseURL string
	model   string
	timeout time.Duration
	client  *http.Client

	dim int // probed lazily
}

// NewOllamaBackend creates a backend targeting the given ollama instance.
// timeoutSecs bounds each batch call; 0 uses a 60s default.
func NewOllamaBackend(baseURL, model string, timeoutSecs int) *OllamaBackend {
	if timeoutSecs <= 0 {
		timeoutSecs = 60
	}
	return &OllamaBackend{
		baseURL: baseURL,
		model:   model,
		timeout: time.Duration(timeoutSecs) * time.Second,
		client:  &http.Client{},
	}
}

func (b *OllamaBackend) ID() string { return "ollama:" + b.model }

// Dimension probes the model with a single short input on first call.
func (b *OllamaBackend) Dimension(ctx context.Context) (int, error) {
	if b.dim > 0 {
		return b.dim, nil
	}
	vecs, err := b.Embed(ctx, []string{"dimension probe"})
	if err != nil {
		return 0, err
	}
	b.dim = len(vecs[0])
	return b.dim, nil
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed sends a batch of texts to ollama. A connection failure maps to
// ErrBackendUnavailable, which is fatal for the sync as a whole; a deadline
// hit surfaces as context.DeadlineExceeded and is treated as a per-file
// failure by the caller.
func (b *OllamaBackend) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(embedRequest{Model: b.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return nil, context.DeadlineExceeded
		case errors.Is(err, context.Canceled):
			return nil, err
		default:
			// Connection refused, DNS failure, and similar transport errors
			// mean the backend itself is unreachable.
			return nil, fmt.Errorf("%w: %v", errs.ErrBackendUnavailable, err)
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama embed returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(result.Embeddings))
	}
	return result.Embeddings, nil
}
