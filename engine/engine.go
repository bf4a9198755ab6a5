package engine

import (
	"context"
	"database/sql"
	"strings"

	_ "modernc.org/sqlite" // register pure-Go SQLite driver
)

// Querier is the subset of *sql.DB and *sql.Tx used by the row stores, so the
// same store code runs inside or outside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
)

// Open opens a SQLite database using the modernc.org/sqlite driver and
// registers the vector scalar functions.
//
// For file-based databases, pass a path like "./db.sqlite"; a busy timeout
// and WAL journaling are added unless the DSN already carries pragmas. For
// in-memory databases, pass ":memory:". Every pooled connection to
// ":memory:" would see its own empty database, so the pool is pinned to a
// single connection.
func Open(dsn string) (*sql.DB, error) {
	RegisterVectorFunctions()
	db, err := sql.Open("sqlite", withPragmas(dsn))
	if err != nil {
		return nil, err
	}
	if IsMemory(dsn) {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// IsMemory reports whether dsn addresses a private in-memory database.
func IsMemory(dsn string) bool {
	return dsn == ":memory:" || strings.HasPrefix(dsn, "file::memory:") || strings.Contains(dsn, "mode=memory")
}

func withPragmas(dsn string) string {
	if IsMemory(dsn) || strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}
