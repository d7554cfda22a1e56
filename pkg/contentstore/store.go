// Package contentstore is the question service the game server seeds from:
// a SQLite question repository and the JSON API in front of it.
package contentstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/NicolasHaas/quizline/pkg/model"
)

// DB is satisfied by both *sql.DB and *sql.Tx.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries holds every statement the repository runs, so the same code works
// inside and outside a transaction.
type queries struct {
	DB
}

// Store is the SQLite question repository.
type Store struct {
	queries
	db *sql.DB
}

// Open opens (or creates) a SQLite database and runs migrations.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("contentstore: open db: %w", err)
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)

	ctx := context.Background()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("contentstore: set WAL: %w", err)
	}
	// Set busy timeout to avoid "database is locked" under concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("contentstore: set busy_timeout: %w", err)
	}

	s := &Store{queries: queries{DB: db}, db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("contentstore: migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER NOT NULL)"); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		return fmt.Errorf("check schema_migrations: %w", err)
	}
	if count == 0 {
		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (0)"); err != nil {
			return fmt.Errorf("init schema_migrations: %w", err)
		}
	}
	var current int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_migrations LIMIT 1").Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	migrations := []struct {
		version    int
		statements []string
	}{
		{
			version: 1,
			statements: []string{`
			CREATE TABLE IF NOT EXISTS questions (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				category   TEXT NOT NULL CHECK(length(category) > 0),
				question   TEXT NOT NULL UNIQUE CHECK(length(question) > 0),
				answer     TEXT NOT NULL CHECK(length(answer) > 0),
				created_at TEXT NOT NULL DEFAULT (datetime('now'))
			)`},
		},
		{
			version: 2,
			statements: []string{
				"CREATE INDEX IF NOT EXISTS questions_category ON questions (category COLLATE NOCASE)",
			},
		},
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		for _, stmt := range m.statements {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("version %d: %w", m.version, err)
			}
		}
		if _, err := s.db.ExecContext(ctx, "UPDATE schema_migrations SET version = ?", m.version); err != nil {
			return fmt.Errorf("update schema version: %w", err)
		}
	}
	return nil
}

// Import inserts qs in one transaction, skipping questions whose text is
// already stored. It returns how many were added.
func (s *Store) Import(ctx context.Context, qs []model.Question) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("contentstore: import: %w", err)
	}
	txq := queries{DB: tx}
	added := 0
	for _, q := range qs {
		_, err := txq.Create(ctx, q)
		switch {
		case err == nil:
			added++
		case errors.Is(err, ErrDuplicate):
		default:
			_ = tx.Rollback()
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("contentstore: import: %w", err)
	}
	return added, nil
}

// ---- Questions ----

// Create stores q under a fresh id and returns the stored record.
func (q queries) Create(ctx context.Context, in model.Question) (model.Question, error) {
	in, err := normalize(in)
	if err != nil {
		return model.Question{}, err
	}

	res, err := q.ExecContext(ctx,
		"INSERT INTO questions (category, question, answer) VALUES (?, ?, ?) ON CONFLICT(question) DO NOTHING",
		in.Category, in.Text, in.Answer)
	if err != nil {
		return model.Question{}, fmt.Errorf("contentstore: create question: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.Question{}, fmt.Errorf("%w: %q", ErrDuplicate, in.Text)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Question{}, fmt.Errorf("contentstore: create question: %w", err)
	}
	in.ID = int(id)
	return in, nil
}

// Get returns the question with the given id.
func (q queries) Get(ctx context.Context, id int) (model.Question, error) {
	var out model.Question
	err := q.QueryRowContext(ctx, "SELECT id, category, question, answer FROM questions WHERE id = ?", id).
		Scan(&out.ID, &out.Category, &out.Text, &out.Answer)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Question{}, ErrNotFound
	}
	if err != nil {
		return model.Question{}, fmt.Errorf("contentstore: get question: %w", err)
	}
	return out, nil
}

// List returns every question ordered by id.
func (q queries) List(ctx context.Context) ([]model.Question, error) {
	return q.list(ctx, "SELECT id, category, question, answer FROM questions ORDER BY id")
}

// ListByCategory returns the questions of one category, matched
// case-insensitively, ordered by id.
func (q queries) ListByCategory(ctx context.Context, category string) ([]model.Question, error) {
	return q.list(ctx,
		"SELECT id, category, question, answer FROM questions WHERE category = ? COLLATE NOCASE ORDER BY id",
		strings.TrimSpace(category))
}

func (q queries) list(ctx context.Context, query string, args ...any) ([]model.Question, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("contentstore: list questions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Question
	for rows.Next() {
		var qu model.Question
		if err := rows.Scan(&qu.ID, &qu.Category, &qu.Text, &qu.Answer); err != nil {
			return nil, fmt.Errorf("contentstore: scan question: %w", err)
		}
		out = append(out, qu)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("contentstore: list questions: %w", err)
	}
	return out, nil
}

// Categories returns each distinct category once, in order of its first
// question. Stored categories always have questions, so none is empty.
func (q queries) Categories(ctx context.Context) ([]model.Category, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT category, MIN(id) AS first FROM questions GROUP BY lower(category) ORDER BY first")
	if err != nil {
		return nil, fmt.Errorf("contentstore: list categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Category
	for rows.Next() {
		var (
			c     model.Category
			first int
		)
		if err := rows.Scan(&c.Name, &first); err != nil {
			return nil, fmt.Errorf("contentstore: scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("contentstore: list categories: %w", err)
	}
	return out, nil
}

// Delete removes the question with the given id and returns it.
func (q queries) Delete(ctx context.Context, id int) (model.Question, error) {
	out, err := q.Get(ctx, id)
	if err != nil {
		return model.Question{}, err
	}
	if _, err := q.ExecContext(ctx, "DELETE FROM questions WHERE id = ?", id); err != nil {
		return model.Question{}, fmt.Errorf("contentstore: delete question: %w", err)
	}
	return out, nil
}

// Count returns the number of stored questions.
func (q queries) Count(ctx context.Context) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM questions").Scan(&n); err != nil {
		return 0, fmt.Errorf("contentstore: count questions: %w", err)
	}
	return n, nil
}
