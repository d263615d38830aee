// Package store persists file records, symbols, the lexical full-text
// index, and embedding vectors in one SQLite database, keyed by a shared
// symbol identity. Writes replacing a file's symbol set are single
// transactions, so a crash mid-sync never leaves a file half-updated. WAL
// mode lets concurrent readers proceed while the single writer commits.
package store

import (
	"database/sql"
	"fmt"
	"strconv"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// Store is the transactional index store.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and initializes the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite allows one writer; funneling writes through one connection
	// avoids SQLITE_BUSY during sync.
	db.SetMaxOpenConns(1)
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// --- Index state ---

// GetState reads the IndexState from the meta table. Missing keys yield
// zero values, which callers interpret as "never synced".
func (s *Store) GetState() (IndexState, error) {
	rows, err := s.db.Query(`SELECT key, value FROM meta`)
	if err != nil {
		return IndexState{}, err
	}
	defer rows.Close()

	var st IndexState
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return IndexState{}, err
		}
		switch key {
		case "schema_version":
			st.SchemaVersion, _ = strconv.Atoi(value)
		case "embedding_model":
			st.EmbeddingModelID = value
		case "embedding_dim":
			st.EmbeddingDim, _ = strconv.Atoi(value)
		case "last_synced_tree":
			st.LastSyncedTree = value
		case "sync_mode":
			st.SyncMode = value
		}
	}
	return st, rows.Err()
}

// SetState writes the whole IndexState in one transaction. This is the
// single serialization point at the end of a successful sync: readers see
// either the previous state or the new one, never a mix.
func (s *Store) SetState(st IndexState) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	pairs := map[string]string{
		"schema_version":   strconv.Itoa(st.SchemaVersion),
		"embedding_model":  st.EmbeddingModelID,
		"embedding_dim":    strconv.Itoa(st.EmbeddingDim),
		"last_synced_tree": st.LastSyncedTree,
		"sync_mode":        st.SyncMode,
	}
	for key, value := range pairs {
		if _, err := stmt.Exec(key, value); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// --- Files ---

// FileStates returns path → content hash for every indexed file; this is
// the "previous tree state" input to the sync planner.
func (s *Store) FileStates() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT path, content_hash FROM files`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	states := map[string]string{}
	for rows.Next() {
		var path, hash string
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, err
		}
		states[path] = hash
	}
	return states, rows.Err()
}

// ReplaceFileSymbols upserts the file record and atomically replaces its
// full symbol set. vectors is parallel to syms; a nil entry means "reuse
// the stored vector for this identity", valid only when the symbol's
// content hash is unchanged. The whole replacement is one transaction.
func (s *Store) ReplaceFileSymbols(file FileRecord, syms []SymbolRecord, vectors [][]float32) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	fileID, oldVectors, err := replaceFilePrepare(tx, file)
	if err != nil {
		return err
	}

	insert, err := tx.Prepare(
		`INSERT INTO symbols (file_id, name, kind, language, start_line, end_line, content, content_hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer insert.Close()

	insertVec, err := tx.Prepare(`INSERT INTO vec_symbols (symbol_id, embedding) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer insertVec.Close()

	for i, sym := range syms {
		res, err := insert.Exec(fileID, sym.Name, sym.Kind, sym.Language,
			sym.StartLine, sym.EndLine, sym.Content, sym.ContentHash)
		if err != nil {
			return fmt.Errorf("insert symbol %s: %w", sym.Name, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}

		var blob []byte
		if vectors[i] != nil {
			blob, err = sqlite_vec.SerializeFloat32(vectors[i])
			if err != nil {
				return fmt.Errorf("serialize embedding for %s: %w", sym.Name, err)
			}
		} else {
			blob = oldVectors[identityKey(sym)]
			if blob == nil {
				return fmt.Errorf("no vector for symbol %s (kind %s)", sym.Name, sym.Kind)
			}
		}
		if _, err := insertVec.Exec(id, blob); err != nil {
			return fmt.Errorf("insert embedding for %s: %w", sym.Name, err)
		}
	}

	return tx.Commit()
}

// replaceFilePrepare upserts the file row, captures the old vectors keyed by
// symbol identity, and deletes the old symbol set inside the transaction.
func replaceFilePrepare(tx *sql.Tx, file FileRecord) (int64, map[string][]byte, error) {
	var fileID int64
	err := tx.QueryRow(
		`INSERT INTO files (path, content_hash, tree_ref) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET content_hash = excluded.content_hash, tree_ref = excluded.tree_ref
		 RETURNING id`,
		file.Path, file.ContentHash, file.TreeRef,
	).Scan(&fileID)
	if err != nil {
		return 0, nil, fmt.Errorf("upsert file %s: %w", file.Path, err)
	}

	oldVectors := map[string][]byte{}
	rows, err := tx.Query(
		`SELECT s.name, s.kind, s.language, s.content_hash, v.embedding
		 FROM symbols s JOIN vec_symbols v ON v.symbol_id = s.id
		 WHERE s.file_id = ?`, fileID)
	if err != nil {
		return 0, nil, err
	}
	for rows.Next() {
		var sym SymbolRecord
		var blob []byte
		if err := rows.Scan(&sym.Name, &sym.Kind, &sym.Language, &sym.ContentHash, &blob); err != nil {
			rows.Close()
			return 0, nil, err
		}
		oldVectors[identityKey(sym)] = blob
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, nil, err
	}

	// vec_symbols is a virtual table with no FK cascade; clear it explicitly.
	if _, err := tx.Exec(
		`DELETE FROM vec_symbols WHERE symbol_id IN (SELECT id FROM symbols WHERE file_id = ?)`, fileID); err != nil {
		return 0, nil, err
	}
	if _, err := tx.Exec(`DELETE FROM symbols WHERE file_id = ?`, fileID); err != nil {
		return 0, nil, err
	}
	return fileID, oldVectors, nil
}

// identityKey joins the in-file identity fields. The file itself is implied
// by the query scope.
func identityKey(sym SymbolRecord) string {
	return sym.Kind + "\x00" + sym.Name + "\x00" + sym.Language
}

// RenameFile moves a file record to a new path, preserving its symbol rows
// and their vectors. Valid only when content is unchanged.
func (s *Store) RenameFile(oldPath, newPath, treeRef string) error {
	res, err := s.db.Exec(`UPDATE files SET path = ?, tree_ref = ? WHERE path = ?`, newPath, treeRef, oldPath)
	if err != nil {
		return fmt.Errorf("rename %s: %w", oldPath, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("rename %s: not indexed", oldPath)
	}
	return nil
}

// DeleteFile removes a file, its symbols, and their vectors in one
// transaction.
func (s *Store) DeleteFile(path string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM vec_symbols WHERE symbol_id IN
		 (SELECT s.id FROM symbols s JOIN files f ON f.id = s.file_id WHERE f.path = ?)`, path); err != nil {
		return err
	}
	if _, err := tx.Exec(
		`DELETE FROM symbols WHERE file_id IN (SELECT id FROM files WHERE path = ?)`, path); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM files WHERE path = ?`, path); err != nil {
		return err
	}
	return tx.Commit()
}

// SymbolHashes returns identity key → content hash for a file's stored
// symbols, used by the syncer to decide which symbols need re-embedding.
func (s *Store) SymbolHashes(path string) (map[string]string, error) {
	rows, err := s.db.Query(
		`SELECT s.name, s.kind, s.language, s.content_hash
		 FROM symbols s JOIN files f ON f.id = s.file_id
		 WHERE f.path = ?`, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hashes := map[string]string{}
	for rows.Next() {
		var sym SymbolRecord
		if err := rows.Scan(&sym.Name, &sym.Kind, &sym.Language, &sym.ContentHash); err != nil {
			return nil, err
		}
		hashes[identityKey(sym)] = sym.ContentHash
	}
	return hashes, rows.Err()
}

// GetSymbol resolves a symbol id to its record and file path.
func (s *Store) GetSymbol(id int64) (SymbolRecord, string, error) {
	var sym SymbolRecord
	var path string
	err := s.db.QueryRow(
		`SELECT s.id, s.file_id, s.name, s.kind, s.language, s.start_line, s.end_line, s.content, s.content_hash, f.path
		 FROM symbols s JOIN files f ON f.id = s.file_id
		 WHERE s.id = ?`, id).Scan(
		&sym.ID, &sym.FileID, &sym.Name, &sym.Kind, &sym.Language,
		&sym.StartLine, &sym.EndLine, &sym.Content, &sym.ContentHash, &path)
	if err == sql.ErrNoRows {
		return sym, "", fmt.Errorf("symbol %d not found", id)
	}
	return sym, path, err
}

// GetStats counts index contents for status reporting.
func (s *Store) GetStats() (Stats, error) {
	var st Stats
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM files`).Scan(&st.Files); err != nil {
		return st, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM symbols`).Scan(&st.Symbols); err != nil {
		return st, err
	}
	// The vector table only exists after the first sync.
	var name string
	err := s.db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'vec_symbols'`).Scan(&name)
	if err == sql.ErrNoRows {
		return st, nil
	}
	if err != nil {
		return st, err
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM vec_symbols`).Scan(&st.Vectors); err != nil {
		return st, err
	}
	return st, nil
}
