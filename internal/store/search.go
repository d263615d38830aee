package store

import (
	"fmt"
	"math"
	"strings"
)

// LexicalSearch runs a full-text query over symbol names and bodies and
// returns up to limit hits ordered by normalized BM25 score. Filters are
// applied inside the query, before the LIMIT, so a filtered search never
// loses candidates to truncation.
func (s *Store) LexicalSearch(query string, filters Filters, limit int) ([]LexicalHit, error) {
	match := sanitizeFTSQuery(query)
	if match == "" {
		return nil, nil
	}

	sqlQuery := `
		SELECT s.id, bm25(symbols_fts) AS rank
		FROM symbols_fts
		JOIN symbols s ON s.id = symbols_fts.rowid
		JOIN files f ON f.id = s.file_id
		WHERE symbols_fts MATCH ?`
	args := []any{match}
	if filters.PathGlob != "" {
		sqlQuery += ` AND f.path GLOB ?`
		args = append(args, filters.PathGlob)
	}
	if filters.Language != "" {
		sqlQuery += ` AND s.language = ?`
		args = append(args, filters.Language)
	}
	sqlQuery += ` ORDER BY rank LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	defer rows.Close()

	var hits []LexicalHit
	for rows.Next() {
		var hit LexicalHit
		var rank float64
		if err := rows.Scan(&hit.SymbolID, &rank); err != nil {
			return nil, err
		}
		// SQLite's bm25() returns negative values for better matches; map to
		// (0, 1] so lexical scores fuse cleanly with cosine similarities.
		hit.Score = 1.0 / (1.0 + math.Abs(rank)/50.0)
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// sanitizeFTSQuery quotes each token so user input cannot trip FTS5 query
// syntax (operators, columns, unbalanced quotes). Tokens are implicitly
// ANDed by FTS5.
func sanitizeFTSQuery(query string) string {
	fields := strings.Fields(query)
	quoted := make([]string, 0, len(fields))
	for _, field := range fields {
		field = strings.ReplaceAll(field, `"`, "")
		if field == "" {
			continue
		}
		quoted = append(quoted, `"`+field+`"`)
	}
	return strings.Join(quoted, " ")
}

// VectorSearch returns up to limit nearest neighbors of the query vector by
// cosine similarity. Filters are pushed into the KNN query itself so the
// k-nearest set is computed over the filtered candidates, not filtered
// afterwards.
func (s *Store) VectorSearch(query []byte, filters Filters, limit int) ([]VectorHit, error) {
	if !s.vectorTableExists() {
		return nil, nil
	}

	sqlQuery := `
		SELECT symbol_id, distance
		FROM vec_symbols
		WHERE embedding MATCH ?`
	args := []any{query}
	if filters.PathGlob != "" || filters.Language != "" {
		sub := `SELECT s.id FROM symbols s JOIN files f ON f.id = s.file_id WHERE 1=1`
		if filters.PathGlob != "" {
			sub += ` AND f.path GLOB ?`
			args = append(args, filters.PathGlob)
		}
		if filters.Language != "" {
			sub += ` AND s.language = ?`
			args = append(args, filters.Language)
		}
		sqlQuery += ` AND symbol_id IN (` + sub + `)`
	}
	sqlQuery += ` ORDER BY distance LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var hits []VectorHit
	for rows.Next() {
		var hit VectorHit
		var distance float64
		if err := rows.Scan(&hit.SymbolID, &distance); err != nil {
			return nil, err
		}
		// vec0 cosine distance is 1 - cosine similarity.
		hit.Similarity = 1.0 - distance
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

func (s *Store) vectorTableExists() bool {
	var name string
	err := s.db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'vec_symbols'`).Scan(&name)
	return err == nil
}
