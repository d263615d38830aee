package store

// FileRecord represents an indexed source file. ContentHash is the git blob
// id of the synced content; TreeRef is the commit the file was last synced
// at ("" for staged content).
type FileRecord struct {
	ID          int64
	Path        string
	ContentHash string
	TreeRef     string
}

// SymbolRecord is a stored symbol. Identity is (file path, kind, name,
// language); ContentHash detects whether re-embedding is needed without
// changing identity.
type SymbolRecord struct {
	ID          int64
	FileID      int64
	Name        string
	Kind        string
	Language    string
	StartLine   int
	EndLine     int
	Content     string
	ContentHash string
}

// IndexState is the index-level metadata read by every query and status
// check and mutated only at the end of a successful sync.
type IndexState struct {
	SchemaVersion    int
	EmbeddingModelID string
	// EmbeddingDim is 0 until the first sync records the backend dimension.
	EmbeddingDim   int
	LastSyncedTree string
	SyncMode       string
}

// LexicalHit is one full-text match with its normalized BM25 score.
type LexicalHit struct {
	SymbolID int64
	Score    float64
}

// VectorHit is one nearest-neighbor match with its cosine similarity.
type VectorHit struct {
	SymbolID   int64
	Similarity float64
}

// Filters restrict search candidates before any truncation.
type Filters struct {
	// PathGlob matches file paths with SQLite GLOB semantics ("" = no filter).
	PathGlob string
	// Language matches the symbol language exactly ("" = no filter).
	Language string
}

// Stats summarizes index contents for status reporting.
type Stats struct {
	Files   int
	Symbols int
	Vectors int
}
