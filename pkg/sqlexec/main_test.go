package sqlexec

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/CTAG07/gsql/pkg/sqltpl"
)

// setupTestDB creates a SQLite database seeded with a small users table and
// a Runner over it. It uses t.Cleanup to ensure resources are released.
func setupTestDB(t *testing.T) (*sql.DB, *Runner) {
	t.Helper()

	dbFile := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", dbFile+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	schema := `
CREATE TABLE users (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    score REAL NOT NULL,
    active INTEGER NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	seed := `
INSERT INTO users (id, name, score, active) VALUES
    (1, 'alice', 9.5, 1),
    (2, 'bob', 7.0, 0),
    (3, 'carol', 9.5, 1);`
	if _, err := db.Exec(seed); err != nil {
		t.Fatalf("failed to seed data: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	renderer, err := sqltpl.NewRenderer(logger, nil, "")
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}

	return db, NewRunner(db, renderer, sqltpl.BindNamed)
}

func mustQuery(t *testing.T, rn *Runner, text string, params map[string]any) *Results {
	t.Helper()
	results, err := rn.Query(context.Background(), text, params)
	if err != nil {
		t.Fatalf("Query(%q) error = %v", text, err)
	}
	return results
}
