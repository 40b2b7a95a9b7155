// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package corpus persists reference passages and serves category-filtered
// similarity queries over a SQLite FTS5 index. The store supports concurrent
// read-only searches from multiple in-flight pipeline runs.
package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/goal-engine/pkg/types"
)

const (
	sourcesDir = "sources"
	indexDir   = "index"
	dbFile     = "corpus.db"
)

// Store manages the reference corpus SQLite database.
type Store struct {
	db         *sql.DB
	corpusDir  string
	maxResults int
}

// NewStore opens or creates the corpus database at corpusDir/index/corpus.db.
// It creates the schema if it does not exist.
func NewStore(cfg types.CorpusConfig) (*Store, error) {
	dbDir := filepath.Join(cfg.CorpusDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dbDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 5
	}

	s := &Store{
		db:         db,
		corpusDir:  cfg.CorpusDir,
		maxResults: maxResults,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS passages (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			content TEXT NOT NULL,
			source TEXT NOT NULL,
			category TEXT NOT NULL,
			seed_file TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_passages_category ON passages(category)`,
		`CREATE INDEX IF NOT EXISTS idx_passages_seed_file ON passages(seed_file)`,
		`CREATE TABLE IF NOT EXISTS seed_status (
			seed_file TEXT PRIMARY KEY,
			file_mod_time TEXT
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='passages_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE passages_fts USING fts5(content, content=passages, content_rowid=rowid)`,
			`CREATE TRIGGER passages_ai AFTER INSERT ON passages BEGIN
				INSERT INTO passages_fts(rowid, content) VALUES (new.rowid, new.content);
			END`,
			`CREATE TRIGGER passages_ad AFTER DELETE ON passages BEGIN
				INSERT INTO passages_fts(passages_fts, rowid, content) VALUES('delete', old.rowid, old.content);
			END`,
			`CREATE TRIGGER passages_au AFTER UPDATE ON passages BEGIN
				INSERT INTO passages_fts(passages_fts, rowid, content) VALUES('delete', old.rowid, old.content);
				INSERT INTO passages_fts(rowid, content) VALUES (new.rowid, new.content);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// Search returns up to k passages ranked by full-text relevance against
// query. An empty or non-matching category leaves the search unrestricted or
// returns no rows respectively; neither is an error. An empty query lists
// passages in corpus order, which serves category browsing and export.
// Relevance ties are broken by rowid, the corpus's native insertion order.
func (s *Store) Search(ctx context.Context, query string, k int, category types.PassageCategory) ([]types.ReferencePassage, error) {
	if k <= 0 {
		k = s.maxResults
	}

	var (
		qb    strings.Builder
		args  []any
		match = ftsQuery(query)
	)

	if match != "" {
		qb.WriteString(
			`SELECT p.id, p.content, p.source, p.category
			FROM passages_fts
			JOIN passages p ON p.rowid = passages_fts.rowid
			WHERE passages_fts MATCH ?`)
		args = append(args, match)
	} else {
		qb.WriteString(
			`SELECT p.id, p.content, p.source, p.category
			FROM passages p
			WHERE 1=1`)
	}

	if category != "" {
		qb.WriteString(` AND p.category = ?`)
		args = append(args, string(category))
	}

	if match != "" {
		qb.WriteString(` ORDER BY passages_fts.rank, p.rowid`)
	} else {
		qb.WriteString(` ORDER BY p.rowid`)
	}

	qb.WriteString(` LIMIT ?`)
	args = append(args, k)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying corpus: %w", err)
	}
	defer rows.Close()

	var results []types.ReferencePassage
	for rows.Next() {
		var p types.ReferencePassage
		var category string
		if err := rows.Scan(&p.ID, &p.Content, &p.Source, &category); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		p.Category = types.PassageCategory(category)
		results = append(results, p)
	}

	return results, rows.Err()
}

// Count returns the number of indexed passages, optionally restricted to one
// category.
func (s *Store) Count(ctx context.Context, category types.PassageCategory) (int, error) {
	query := `SELECT count(*) FROM passages`
	var args []any
	if category != "" {
		query += ` WHERE category = ?`
		args = append(args, string(category))
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting passages: %w", err)
	}
	return n, nil
}

// ftsQuery converts free-form query text into an FTS5 match expression:
// lowercased terms, each quoted, joined by OR. Generated queries carry
// punctuation that FTS5 would otherwise parse as syntax. Returns "" when the
// text contains no usable terms.
func ftsQuery(query string) string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]bool)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 2 || seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, `"`+f+`"`)
	}

	return strings.Join(terms, " OR ")
}
