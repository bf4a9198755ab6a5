package atom

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/viant/semvec/engine"
	"github.com/viant/semvec/vector"
	"github.com/viant/semvec/vid"
)

// ErrInvariant is returned when an atom would be written without a concrete
// address, text or vector.
var ErrInvariant = errors.New("atom: invariant violation")

// Atom is one persisted span.
type Atom struct {
	Text      string
	Vector    []float32
	Mtime     *int64
	CreatedAt time.Time
}

// Record pairs an atom with its address for batch writes.
type Record struct {
	ID     vid.Vid
	Text   string
	Vector []float32
	Mtime  *int64
}

// Store reads and writes the semantic_atoms table.
type Store struct {
	db    engine.Querier
	codec *vector.Codec
}

// New returns a store for vectors of the given dimension.
func New(db engine.Querier, dimension int) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("atom: db is nil")
	}
	codec, err := vector.NewCodec(dimension)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, codec: codec}, nil
}

// WithTx returns a copy of s bound to tx.
func (s *Store) WithTx(tx *sql.Tx) *Store {
	return &Store{db: tx, codec: s.codec}
}

// Dimension returns the configured vector dimension.
func (s *Store) Dimension() int { return s.codec.Dimension }

// Get returns every atom matching mask, keyed by address.
func (s *Store) Get(ctx context.Context, mask vid.Vid) (map[vid.Vid]Atom, error) {
	where, args := mask.Where("id")
	rows, err := s.db.QueryContext(ctx, "SELECT id, text, vector, mtime, created_at FROM "+engine.AtomsTable+" WHERE "+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[vid.Vid]Atom)
	for rows.Next() {
		var (
			id    int64
			text  string
			blob  []byte
			mtime sql.NullInt64
			at    sql.NullString
		)
		if err := rows.Scan(&id, &text, &blob, &mtime, &at); err != nil {
			return nil, err
		}
		vec, err := s.codec.Decode(blob)
		if err != nil {
			return nil, fmt.Errorf("atom: %v: %w", vid.FromInt64(id), err)
		}
		a := Atom{Text: text, Vector: vec, CreatedAt: engine.ParseTime(at.String)}
		if mtime.Valid {
			m := mtime.Int64
			a.Mtime = &m
		}
		out[vid.FromInt64(id)] = a
	}
	return out, rows.Err()
}

// IDs returns the addresses matching mask in ascending address order.
func (s *Store) IDs(ctx context.Context, mask vid.Vid) ([]vid.Vid, error) {
	where, args := mask.Where("id")
	// ORDER BY on the unsigned value: a domain >= 32768 sets the sign bit.
	q := "SELECT id FROM " + engine.AtomsTable + " WHERE " + where + " ORDER BY ((id >> 48) & 65535), (id & 281474976710655)"
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []vid.Vid
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, vid.FromInt64(id))
	}
	return out, rows.Err()
}

// Domains lists the distinct domain ids among atoms matching mask,
// ascending.
func (s *Store) Domains(ctx context.Context, mask vid.Vid) ([]uint16, error) {
	where, args := mask.Where("id")
	q := "SELECT DISTINCT ((id >> 48) & 65535) AS domain FROM " + engine.AtomsTable + " WHERE " + where + " ORDER BY domain"
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []uint16
	for rows.Next() {
		var d int64
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		out = append(out, uint16(d))
	}
	return out, rows.Err()
}

// Count returns the number of atoms matching mask.
func (s *Store) Count(ctx context.Context, mask vid.Vid) (int64, error) {
	where, args := mask.Where("id")
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+engine.AtomsTable+" WHERE "+where, args...).Scan(&n)
	return n, err
}

// MaxMtime returns the greatest mtime among atoms matching mask, or nil when
// no matching atom carries one.
func (s *Store) MaxMtime(ctx context.Context, mask vid.Vid) (*int64, error) {
	where, args := mask.Where("id")
	var m sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(mtime) FROM "+engine.AtomsTable+" WHERE "+where, args...).Scan(&m); err != nil {
		return nil, err
	}
	if !m.Valid {
		return nil, nil
	}
	return &m.Int64, nil
}

// Unset deletes every atom matching mask and returns the number removed.
func (s *Store) Unset(ctx context.Context, mask vid.Vid) (int64, error) {
	where, args := mask.Where("id")
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+engine.AtomsTable+" WHERE "+where, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const upsertSQL = `INSERT INTO ` + engine.AtomsTable + `(id, text, vector, mtime) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET text = excluded.text, vector = excluded.vector, mtime = excluded.mtime`

// Set inserts or replaces the atom at address.
func (s *Store) Set(ctx context.Context, address vid.Vid, text string, vec []float32, mtime *int64) error {
	blob, err := s.validate(address, text, vec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, upsertSQL, address.Int64(), text, blob, nullable(mtime))
	return err
}

// SetAll writes records with a single prepared statement. It does not open a
// transaction of its own; bind the store with WithTx for atomicity.
func (s *Store) SetAll(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	blobs := make([][]byte, len(records))
	for i, r := range records {
		blob, err := s.validate(r.ID, r.Text, r.Vector)
		if err != nil {
			return err
		}
		blobs[i] = blob
	}
	stmt, err := s.db.PrepareContext(ctx, upsertSQL)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, r := range records {
		if _, err := stmt.ExecContext(ctx, r.ID.Int64(), r.Text, blobs[i], nullable(r.Mtime)); err != nil {
			return fmt.Errorf("atom: set %v: %w", r.ID, err)
		}
	}
	return nil
}

// Scored is a ranked atom address.
type Scored struct {
	ID    vid.Vid
	Score float64
}

// Rank orders atoms matching mask by exact cosine similarity to query using
// the vec_cosine SQL function. It bypasses the in-memory index and is meant
// for verification and small domains.
func (s *Store) Rank(ctx context.Context, mask vid.Vid, query []float32, k int) ([]Scored, error) {
	if k <= 0 {
		return nil, nil
	}
	blob, err := s.codec.Encode(query)
	if err != nil {
		return nil, err
	}
	where, args := mask.Where("id")
	q := "SELECT id, vec_cosine(vector, ?) AS score FROM " + engine.AtomsTable + " WHERE " + where +
		" ORDER BY score DESC, ((id >> 48) & 65535), (id & 281474976710655) LIMIT ?"
	params := append([]any{blob}, args...)
	params = append(params, k)
	rows, err := s.db.QueryContext(ctx, q, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Scored
	for rows.Next() {
		var (
			id    int64
			score float64
		)
		if err := rows.Scan(&id, &score); err != nil {
			return nil, err
		}
		out = append(out, Scored{ID: vid.FromInt64(id), Score: score})
	}
	return out, rows.Err()
}

func (s *Store) validate(address vid.Vid, text string, vec []float32) ([]byte, error) {
	if !address.IsAddress() {
		return nil, fmt.Errorf("%w: %v is not a concrete address", ErrInvariant, address)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: %v has no text", ErrInvariant, address)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: %v has no vector", ErrInvariant, address)
	}
	return s.codec.Encode(vec)
}

func nullable(m *int64) any {
	if m == nil {
		return nil
	}
	return *m
}
