package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/viant/semvec/engine"
	"github.com/viant/semvec/vid"
)

// ErrNotFound is returned when a lookup by id finds no row.
var ErrNotFound = errors.New("registry: not found")

// Kind selects the registry table.
type Kind struct {
	Table  string
	Column string
}

var (
	// Domains maps domain names to domain ids.
	Domains = Kind{Table: engine.DomainsTable, Column: "name"}
	// Documents maps document keys to document ids.
	Documents = Kind{Table: engine.DocumentsTable, Column: "key"}
)

// Entry is one registry row.
type Entry struct {
	ID        uint16
	Name      string
	Meta      string
	CreatedAt time.Time
}

// Registry is a table-backed bidirectional name/id map.
type Registry struct {
	db   engine.Querier
	kind Kind
}

// New returns a registry of the given kind over db.
func New(db engine.Querier, kind Kind) *Registry {
	return &Registry{db: db, kind: kind}
}

// WithTx returns a copy of r bound to tx.
func (r *Registry) WithTx(tx *sql.Tx) *Registry {
	return &Registry{db: tx, kind: r.kind}
}

// Get returns the entry for name, or nil when it does not exist.
func (r *Registry) Get(ctx context.Context, name string) (*Entry, error) {
	q := fmt.Sprintf("SELECT id, %s, meta, created_at FROM %s WHERE %s = ?", r.kind.Column, r.kind.Table, r.kind.Column)
	entry, err := r.scan(r.db.QueryRowContext(ctx, q, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return entry, err
}

// ByID returns the entry with the given id or ErrNotFound.
func (r *Registry) ByID(ctx context.Context, id uint16) (*Entry, error) {
	q := fmt.Sprintf("SELECT id, %s, meta, created_at FROM %s WHERE id = ?", r.kind.Column, r.kind.Table)
	entry, err := r.scan(r.db.QueryRowContext(ctx, q, int64(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s id %d", ErrNotFound, r.kind.Table, id)
	}
	return entry, err
}

// SetOption customizes Set.
type SetOption func(o *setOptions)

type setOptions struct {
	id   int
	meta string
}

// WithID requests an explicit id instead of allocating one.
func WithID(id int) SetOption { return func(o *setOptions) { o.id = id } }

// WithMeta stores optional metadata with a new row.
func WithMeta(meta string) SetOption { return func(o *setOptions) { o.meta = meta } }

// Set returns the id of name, creating a row when it does not exist. An
// existing row is returned unchanged, options are ignored in that case.
func (r *Registry) Set(ctx context.Context, name string, opts ...SetOption) (uint16, error) {
	existing, err := r.Get(ctx, name)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return existing.ID, nil
	}
	o := &setOptions{}
	for _, opt := range opts {
		opt(o)
	}
	id := o.id
	if id == 0 {
		if id, err = r.next(ctx); err != nil {
			return 0, err
		}
	}
	if id < 1 || id > vid.MaxField {
		return 0, fmt.Errorf("%w: %s id %d", vid.ErrRange, r.kind.Table, id)
	}
	var meta any
	if o.meta != "" {
		meta = o.meta
	}
	q := fmt.Sprintf("INSERT INTO %s(id, %s, meta) VALUES (?, ?, ?)", r.kind.Table, r.kind.Column)
	if _, err := r.db.ExecContext(ctx, q, int64(id), name, meta); err != nil {
		return 0, fmt.Errorf("registry: insert %s %q: %w", r.kind.Table, name, err)
	}
	return uint16(id), nil
}

// All lists every entry ordered by id.
func (r *Registry) All(ctx context.Context) ([]Entry, error) {
	q := fmt.Sprintf("SELECT id, %s, meta, created_at FROM %s ORDER BY id", r.kind.Column, r.kind.Table)
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		entry, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *entry)
	}
	return out, rows.Err()
}

func (r *Registry) next(ctx context.Context) (int, error) {
	var maxID sql.NullInt64
	q := fmt.Sprintf("SELECT MAX(id) FROM %s", r.kind.Table)
	if err := r.db.QueryRowContext(ctx, q).Scan(&maxID); err != nil {
		return 0, err
	}
	next := int(maxID.Int64) + 1
	if next > vid.MaxField {
		return 0, fmt.Errorf("%w: %s exhausted", vid.ErrRange, r.kind.Table)
	}
	return next, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *Registry) scan(row scanner) (*Entry, error) {
	var (
		id   int64
		name string
		meta sql.NullString
		at   sql.NullString
	)
	if err := row.Scan(&id, &name, &meta, &at); err != nil {
		return nil, err
	}
	return &Entry{ID: uint16(id), Name: name, Meta: meta.String, CreatedAt: engine.ParseTime(at.String)}, nil
}
