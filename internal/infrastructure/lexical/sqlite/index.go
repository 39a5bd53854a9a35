// Package sqlite keeps the sparse passage index in an SQLite FTS5 table
// ranked by bm25.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	_ "modernc.org/sqlite"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

const createTableSQL = `CREATE VIRTUAL TABLE passages USING fts5(
	text,
	id UNINDEXED,
	source UNINDEXED,
	page UNINDEXED,
	chunk_index UNINDEXED
)`

const searchSQL = `SELECT id, source, page, chunk_index, text, bm25(passages)
FROM passages
WHERE passages MATCH ?
ORDER BY bm25(passages)
LIMIT ?`

// Index serves lexical search from an existing index file.
type Index struct {
	db *sql.DB
}

// Open opens path read-only. A missing file or table is ErrIndexUnavailable.
func Open(ctx context.Context, path string) (*Index, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "open lexical index", err)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open lexical index: %w", err)
	}

	var name string
	err = db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'passages'`).Scan(&name)
	if err != nil {
		db.Close()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrIndexUnavailable, "open lexical index", fmt.Errorf("passages table missing in %s", path))
		}
		return nil, fmt.Errorf("open lexical index: %w", err)
	}
	return &Index{db: db}, nil
}

func (i *Index) Close() error {
	return i.db.Close()
}

func (i *Index) Search(ctx context.Context, query string, limit int) ([]domain.Passage, error) {
	match := MatchExpression(query)
	if match == "" || limit <= 0 {
		return nil, nil
	}

	rows, err := i.db.QueryContext(ctx, searchSQL, match, limit)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	defer rows.Close()

	var out []domain.Passage
	for rows.Next() {
		var (
			p    domain.Passage
			rank float64
		)
		if err := rows.Scan(&p.ID, &p.Source, &p.Page, &p.ChunkIndex, &p.Text, &rank); err != nil {
			return nil, fmt.Errorf("scan lexical row: %w", err)
		}
		// bm25() is lower-is-better.
		p.Score = -rank
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lexical rows: %w", err)
	}
	return out, nil
}

// MatchExpression turns free text into an FTS5 OR query of quoted terms.
func MatchExpression(query string) string {
	terms := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(terms) == 0 {
		return ""
	}

	seen := make(map[string]struct{}, len(terms))
	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		quoted = append(quoted, `"`+term+`"`)
	}
	return strings.Join(quoted, " OR ")
}

// Writer rebuilds the index file during ingestion.
type Writer struct {
	db *sql.DB
}

func OpenWriter(path string) (*Writer, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create lexical index dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open lexical index writer: %w", err)
	}
	db.SetMaxOpenConns(1)
	return &Writer{db: db}, nil
}

func (w *Writer) Close() error {
	return w.db.Close()
}

// Replace swaps the whole table contents in one transaction.
func (w *Writer) Replace(ctx context.Context, passages []domain.Passage) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin lexical replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS passages`); err != nil {
		return fmt.Errorf("drop passages table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create passages table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO passages (text, id, source, page, chunk_index) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare passage insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range passages {
		if _, err := stmt.ExecContext(ctx, p.Text, p.ID, p.Source, p.Page, p.ChunkIndex); err != nil {
			return fmt.Errorf("insert passage %s: %w", p.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit lexical replace: %w", err)
	}
	return nil
}
