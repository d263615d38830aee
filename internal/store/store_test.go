package store

import (
	"path/filepath"
	"testing"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.EnsureVectorTable(4))
	return s
}

func vec(values ...float32) []float32 { return values }

func TestStateRoundTrip(t *testing.T) {
	s := newTestStore(t)

	st, err := s.GetState()
	require.NoError(t, err)
	assert.Equal(t, IndexState{}, st, "fresh index has zero state")

	want := IndexState{
		SchemaVersion:    SchemaVersion,
		EmbeddingModelID: "hash",
		EmbeddingDim:     4,
		LastSyncedTree:   "abc123",
		SyncMode:         "commit-diff",
	}
	require.NoError(t, s.SetState(want))

	got, err := s.GetState()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestReplaceFileSymbols(t *testing.T) {
	s := newTestStore(t)

	file := FileRecord{Path: "pkg/math.go", ContentHash: "blob1", TreeRef: "commit1"}
	syms := []SymbolRecord{
		{Name: "Add", Kind: "function", Language: "go", StartLine: 1, EndLine: 3,
			Content: "func Add(a, b int) int { return a + b }", ContentHash: "h1"},
		{Name: "Sub", Kind: "function", Language: "go", StartLine: 5, EndLine: 7,
			Content: "func Sub(a, b int) int { return a - b }", ContentHash: "h2"},
	}
	vectors := [][]float32{vec(1, 0, 0, 0), vec(0, 1, 0, 0)}
	require.NoError(t, s.ReplaceFileSymbols(file, syms, vectors))

	states, err := s.FileStates()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"pkg/math.go": "blob1"}, states)

	stats, err := s.GetStats()
	require.NoError(t, err)
	assert.Equal(t, Stats{Files: 1, Symbols: 2, Vectors: 2}, stats)

	// Replacing again fully supersedes the old set.
	file.ContentHash = "blob2"
	syms2 := []SymbolRecord{syms[0]}
	require.NoError(t, s.ReplaceFileSymbols(file, syms2, [][]float32{vec(1, 0, 0, 0)}))

	stats, err = s.GetStats()
	require.NoError(t, err)
	assert.Equal(t, Stats{Files: 1, Symbols: 1, Vectors: 1}, stats)
}

func TestReplaceFileSymbols_ReusesVectorForUnchangedContent(t *testing.T) {
	s := newTestStore(t)

	file := FileRecord{Path: "a.go", ContentHash: "blob1"}
	sym := SymbolRecord{Name: "Run", Kind: "function", Language: "go",
		StartLine: 1, EndLine: 2, Content: "func Run() {}", ContentHash: "same"}
	require.NoError(t, s.ReplaceFileSymbols(file, []SymbolRecord{sym}, [][]float32{vec(0, 0, 1, 0)}))

	// nil vector entry means "keep the stored embedding for this identity".
	file.ContentHash = "blob2"
	require.NoError(t, s.ReplaceFileSymbols(file, []SymbolRecord{sym}, [][]float32{nil}))

	query, err := sqlite_vec.SerializeFloat32(vec(0, 0, 1, 0))
	require.NoError(t, err)
	hits, err := s.VectorSearch(query, Filters{}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-5)
}

func TestReplaceFileSymbols_MissingVectorFails(t *testing.T) {
	s := newTestStore(t)

	sym := SymbolRecord{Name: "New", Kind: "function", Language: "go",
		StartLine: 1, EndLine: 2, Content: "func New() {}", ContentHash: "h"}
	err := s.ReplaceFileSymbols(FileRecord{Path: "b.go", ContentHash: "x"},
		[]SymbolRecord{sym}, [][]float32{nil})
	require.Error(t, err)

	// The failed transaction left nothing behind.
	stats, err := s.GetStats()
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
}

func TestSymbolHashes(t *testing.T) {
	s := newTestStore(t)

	syms := []SymbolRecord{
		{Name: "A", Kind: "function", Language: "go", StartLine: 1, EndLine: 1, Content: "a", ContentHash: "h1"},
		{Name: "B", Kind: "struct", Language: "go", StartLine: 2, EndLine: 2, Content: "b", ContentHash: "h2"},
	}
	require.NoError(t, s.ReplaceFileSymbols(FileRecord{Path: "c.go", ContentHash: "x"},
		syms, [][]float32{vec(1, 0, 0, 0), vec(0, 1, 0, 0)}))

	hashes, err := s.SymbolHashes("c.go")
	require.NoError(t, err)
	assert.Len(t, hashes, 2)
	assert.Equal(t, "h1", hashes[identityKey(syms[0])])
	assert.Equal(t, "h2", hashes[identityKey(syms[1])])
}

func TestRenameFile(t *testing.T) {
	s := newTestStore(t)

	sym := SymbolRecord{Name: "Keep", Kind: "function", Language: "go",
		StartLine: 1, EndLine: 2, Content: "func Keep() {}", ContentHash: "h"}
	require.NoError(t, s.ReplaceFileSymbols(FileRecord{Path: "old/name.go", ContentHash: "blob"},
		[]SymbolRecord{sym}, [][]float32{vec(1, 0, 0, 0)}))

	require.NoError(t, s.RenameFile("old/name.go", "new/name.go", "commit2"))

	states, err := s.FileStates()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"new/name.go": "blob"}, states)

	stats, err := s.GetStats()
	require.NoError(t, err)
	assert.Equal(t, Stats{Files: 1, Symbols: 1, Vectors: 1}, stats, "symbols and vectors survive the rename")

	assert.Error(t, s.RenameFile("missing.go", "x.go", "commit2"))
}

func TestDeleteFile(t *testing.T) {
	s := newTestStore(t)

	sym := SymbolRecord{Name: "Gone", Kind: "function", Language: "go",
		StartLine: 1, EndLine: 2, Content: "func Gone() {}", ContentHash: "h"}
	require.NoError(t, s.ReplaceFileSymbols(FileRecord{Path: "d.go", ContentHash: "blob"},
		[]SymbolRecord{sym}, [][]float32{vec(1, 0, 0, 0)}))

	require.NoError(t, s.DeleteFile("d.go"))

	stats, err := s.GetStats()
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)

	hits, err := s.LexicalSearch("Gone", Filters{}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits, "deleted symbols drop out of the lexical index")
}

func TestLexicalSearch(t *testing.T) {
	s := newTestStore(t)

	syms := []SymbolRecord{
		{Name: "calculate_sum", Kind: "function", Language: "python", StartLine: 1, EndLine: 3,
			Content: "def calculate_sum(a, b):\n    return a + b", ContentHash: "h1"},
		{Name: "parse_config", Kind: "function", Language: "python", StartLine: 5, EndLine: 9,
			Content: "def parse_config(path):\n    return toml.load(path)", ContentHash: "h2"},
	}
	require.NoError(t, s.ReplaceFileSymbols(FileRecord{Path: "util.py", ContentHash: "blob"},
		syms, [][]float32{vec(1, 0, 0, 0), vec(0, 1, 0, 0)}))

	// unicode61 splits on underscore, so a natural-language query matches the
	// snake_case symbol.
	hits, err := s.LexicalSearch("calculate sum", Filters{}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Greater(t, hits[0].Score, 0.0)
	assert.LessOrEqual(t, hits[0].Score, 1.0)

	sym, path, err := s.GetSymbol(hits[0].SymbolID)
	require.NoError(t, err)
	assert.Equal(t, "calculate_sum", sym.Name)
	assert.Equal(t, "util.py", path)

	// Operator characters in the query must not break FTS5 syntax.
	_, err = s.LexicalSearch(`config" OR (`, Filters{}, 10)
	assert.NoError(t, err)
}

func TestSearchFilters(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.ReplaceFileSymbols(FileRecord{Path: "src/handler.go", ContentHash: "b1"},
		[]SymbolRecord{{Name: "Serve", Kind: "function", Language: "go", StartLine: 1, EndLine: 2,
			Content: "func Serve() {}", ContentHash: "h1"}},
		[][]float32{vec(1, 0, 0, 0)}))
	require.NoError(t, s.ReplaceFileSymbols(FileRecord{Path: "web/handler.py", ContentHash: "b2"},
		[]SymbolRecord{{Name: "serve", Kind: "function", Language: "python", StartLine: 1, EndLine: 2,
			Content: "def serve(): pass", ContentHash: "h2"}},
		[][]float32{vec(1, 0, 0, 0)}))

	hits, err := s.LexicalSearch("serve", Filters{Language: "go"}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	_, path, err := s.GetSymbol(hits[0].SymbolID)
	require.NoError(t, err)
	assert.Equal(t, "src/handler.go", path)

	query, err := sqlite_vec.SerializeFloat32(vec(1, 0, 0, 0))
	require.NoError(t, err)
	vhits, err := s.VectorSearch(query, Filters{PathGlob: "web/*"}, 10)
	require.NoError(t, err)
	require.Len(t, vhits, 1)
	_, path, err = s.GetSymbol(vhits[0].SymbolID)
	require.NoError(t, err)
	assert.Equal(t, "web/handler.py", path)
}

func TestVectorSearch_Ordering(t *testing.T) {
	s := newTestStore(t)

	syms := []SymbolRecord{
		{Name: "near", Kind: "function", Language: "go", StartLine: 1, EndLine: 1, Content: "near", ContentHash: "h1"},
		{Name: "far", Kind: "function", Language: "go", StartLine: 2, EndLine: 2, Content: "far", ContentHash: "h2"},
	}
	require.NoError(t, s.ReplaceFileSymbols(FileRecord{Path: "e.go", ContentHash: "blob"},
		syms, [][]float32{vec(1, 0, 0, 0), vec(0, 0, 0, 1)}))

	query, err := sqlite_vec.SerializeFloat32(vec(0.9, 0.1, 0, 0))
	require.NoError(t, err)
	hits, err := s.VectorSearch(query, Filters{}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Greater(t, hits[0].Similarity, hits[1].Similarity)

	sym, _, err := s.GetSymbol(hits[0].SymbolID)
	require.NoError(t, err)
	assert.Equal(t, "near", sym.Name)
}
