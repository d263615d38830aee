// Package resultcache persists the last query's ranked results so follow-up
// commands can refer to hits by ordinal instead of re-running the search.
package resultcache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"seek/internal/errs"
	"seek/internal/search"
)

const fileName = "lastquery.json"

// Entry is one cached hit, addressable by its 1-based ordinal.
type Entry struct {
	Ordinal   int    `json:"ordinal"`
	SymbolID  int64  `json:"symbol_id"`
	Path      string `json:"path"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Language  string `json:"language"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Snippet   string `json:"snippet"`
}

// Cache is the persisted record of one query's results.
type Cache struct {
	QueryID   string    `json:"query_id"`
	Query     string    `json:"query"`
	CreatedAt time.Time `json:"created_at"`
	Entries   []Entry   `json:"entries"`
}

func cachePath(seekDir string) string {
	return filepath.Join(seekDir, fileName)
}

// Save writes the results of a fresh query, replacing any previous cache.
func Save(seekDir, query string, results []search.Result) (*Cache, error) {
	c := &Cache{
		QueryID:   uuid.NewString(),
		Query:     query,
		CreatedAt: time.Now().UTC(),
	}
	for i, r := range results {
		c.Entries = append(c.Entries, Entry{
			Ordinal:   i + 1,
			SymbolID:  r.SymbolID,
			Path:      r.Path,
			Name:      r.Name,
			Kind:      r.Kind,
			Language:  r.Language,
			StartLine: r.StartLine,
			EndLine:   r.EndLine,
			Snippet:   r.Snippet,
		})
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, err
	}
	// Write-then-rename so a concurrent reader never sees a torn file.
	tmp := cachePath(seekDir) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return nil, fmt.Errorf("write result cache: %w", err)
	}
	if err := os.Rename(tmp, cachePath(seekDir)); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads the cached results of the most recent query.
func Load(seekDir string) (*Cache, error) {
	data, err := os.ReadFile(cachePath(seekDir))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: no previous query; run 'seek find' first", errs.ErrInvalidOrdinal)
	}
	if err != nil {
		return nil, err
	}
	var c Cache
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("corrupt result cache: %w", err)
	}
	return &c, nil
}

// Resolve looks up an ordinal from the most recent query.
func Resolve(seekDir string, ordinal int) (*Entry, error) {
	c, err := Load(seekDir)
	if err != nil {
		return nil, err
	}
	if ordinal < 1 || ordinal > len(c.Entries) {
		return nil, fmt.Errorf("%w: result %d does not exist; the last query returned %d result(s)",
			errs.ErrInvalidOrdinal, ordinal, len(c.Entries))
	}
	return &c.Entries[ordinal-1], nil
}
