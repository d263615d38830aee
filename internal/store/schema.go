package store

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is bumped on any incompatible schema change.
const SchemaVersion = 1

const ddl = `
PRAGMA journal_mode=WAL;
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    path         TEXT NOT NULL UNIQUE,
    content_hash TEXT NOT NULL,
    tree_ref     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS symbols (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    file_id      INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
    name         TEXT NOT NULL,
    kind         TEXT NOT NULL,
    language     TEXT NOT NULL DEFAULT '',
    start_line   INTEGER NOT NULL,
    end_line     INTEGER NOT NULL,
    content      TEXT NOT NULL,
    content_hash TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_id);

CREATE VIRTUAL TABLE IF NOT EXISTS symbols_fts USING fts5(
    name, content,
    content='symbols',
    content_rowid='id'
);

CREATE TRIGGER IF NOT EXISTS symbols_ai AFTER INSERT ON symbols BEGIN
    INSERT INTO symbols_fts(rowid, name, content)
    VALUES (new.id, new.name, new.content);
END;

CREATE TRIGGER IF NOT EXISTS symbols_ad AFTER DELETE ON symbols BEGIN
    INSERT INTO symbols_fts(symbols_fts, rowid, name, content)
    VALUES ('delete', old.id, old.name, old.content);
END;

CREATE TRIGGER IF NOT EXISTS symbols_au AFTER UPDATE ON symbols BEGIN
    INSERT INTO symbols_fts(symbols_fts, rowid, name, content)
    VALUES ('delete', old.id, old.name, old.content);
    INSERT INTO symbols_fts(rowid, name, content)
    VALUES (new.id, new.name, new.content);
END;
`

// initSchema creates the fixed tables. The vector table is created later by
// EnsureVectorTable, once the embedding dimension is known.
func initSchema(db *sql.DB) error {
	_, err := db.Exec(ddl)
	return err
}

// EnsureVectorTable creates the vec0 virtual table for the given dimension.
// Called on the first sync, after the backend dimension is recorded.
func (s *Store) EnsureVectorTable(dim int) error {
	if dim <= 0 {
		return fmt.Errorf("invalid embedding dimension %d", dim)
	}
	_, err := s.db.Exec(fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS vec_symbols USING vec0(
		    symbol_id INTEGER PRIMARY KEY,
		    embedding float[%d] distance_metric=cosine
		)`, dim))
	return err
}

// DropVectors removes every stored embedding. Used by --reindex when the
// embedding model changes.
func (s *Store) DropVectors() error {
	_, err := s.db.Exec(`DROP TABLE IF EXISTS vec_symbols`)
	return err
}
