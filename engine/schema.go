package engine

import (
	"context"
	"fmt"
	"time"
)

// Table names shared by the row stores.
const (
	DomainsTable   = "domains"
	DocumentsTable = "documents"
	AtomsTable     = "semantic_atoms"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS domains (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    meta       TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CONSTRAINT ck_domains_id_16bit CHECK (id > 0 AND id < 65536),
    CONSTRAINT uq_domains_name UNIQUE (name)
);`,
	`CREATE TABLE IF NOT EXISTS documents (
    id         INTEGER PRIMARY KEY,
    key        TEXT NOT NULL,
    meta       TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CONSTRAINT ck_documents_id_16bit CHECK (id > 0 AND id < 65536),
    CONSTRAINT uq_documents_key UNIQUE (key)
);`,
	`CREATE TABLE IF NOT EXISTS semantic_atoms (
    id         INTEGER PRIMARY KEY,
    text       TEXT NOT NULL,
    vector     BLOB NOT NULL,
    mtime      INTEGER,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`,
}

// Migrate creates the registry and atom tables if they do not exist.
func Migrate(ctx context.Context, db Querier) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("engine: migrate: %w", err)
		}
	}
	return nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

// ParseTime parses a created_at value as returned by the driver, either a
// CURRENT_TIMESTAMP literal or an RFC 3339 rendering. Unknown formats yield
// the zero time.
func ParseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
