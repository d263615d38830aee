package extract

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// LanguageSpec defines the tree-sitter grammar and query for a language.
type LanguageSpec struct {
	// Name is the canonical language name stored on symbols ("go", "python"...).
	Name     string
	Language *sitter.Language
	// Query is a tree-sitter S-expression query. Each pattern must capture the
	// outer node as @kind.<kind>, where <kind> is one of the symbol kinds
	// (function, method, class, struct, interface, enum, trait, type_alias,
	// variable), and the identifier as @name (optional).
	Query      string
	Extensions []string
}

// Registry maps file extensions to language specs. The set of registered
// languages is closed at startup; unknown extensions fall back to a
// whole-file chunk rather than failing.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]*LanguageSpec // extension (without dot) → spec
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]*LanguageSpec)}
}

// Register adds a language spec for each of its extensions.
func (r *Registry) Register(spec *LanguageSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range spec.Extensions {
		r.specs[ext] = spec
	}
}

// Lookup returns the spec for a file path based on its extension, or nil
// when the language is unsupported.
func (r *Registry) Lookup(path string) *LanguageSpec {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.specs[ext]
}

// LanguageName returns the language name for a file path, or "" when
// unsupported.
func (r *Registry) LanguageName(path string) string {
	if spec := r.Lookup(path); spec != nil {
		return spec.Name
	}
	return ""
}
