package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/semvec/vector"
)

// TestOpenInMemory verifies that we can open an in-memory SQLite database
// using the modernc.org/sqlite driver and execute a trivial statement.
func TestOpenInMemory(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec("CREATE TABLE t(x INTEGER)"); err != nil {
		t.Fatalf("CREATE TABLE failed: %v", err)
	}
	if _, err := db.Exec("INSERT INTO t(x) VALUES (1),(2),(3)"); err != nil {
		t.Fatalf("INSERT failed: %v", err)
	}
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM t").Scan(&n))
	assert.Equal(t, 3, n)
}

func TestMigrate_Idempotent(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db))
	require.NoError(t, Migrate(ctx, db))

	_, err = db.Exec(`INSERT INTO domains(id, name) VALUES (0, 'zero')`)
	assert.Error(t, err, "id 0 is reserved")
	_, err = db.Exec(`INSERT INTO domains(id, name) VALUES (65536, 'big')`)
	assert.Error(t, err)
	_, err = db.Exec(`INSERT INTO documents(id, key) VALUES (1, 'a'), (2, 'a')`)
	assert.Error(t, err, "keys are unique")
}

func TestSignedShiftMasking(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	// domain 0xFFFF sets the sign bit of the stored integer
	packed := uint64(0xFFFF)<<48 | uint64(7)<<32
	var domain, document int64
	require.NoError(t, db.QueryRow(`SELECT ((? >> 48) & 65535), ((? >> 32) & 65535)`, int64(packed), int64(packed)).Scan(&domain, &document))
	assert.Equal(t, int64(0xFFFF), domain)
	assert.Equal(t, int64(7), document)
}

func TestVecCosine(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	encode := func(v ...float32) []byte { return vector.EncodeEmbedding(v) }
	var sim float64
	require.NoError(t, db.QueryRow(`SELECT vec_cosine(?, ?)`, encode(1, 0), encode(1, 0)).Scan(&sim))
	assert.InDelta(t, 1.0, sim, 1e-9)
	require.NoError(t, db.QueryRow(`SELECT vec_cosine(?, ?)`, encode(1, 0), encode(0, 1)).Scan(&sim))
	assert.InDelta(t, 0.0, sim, 1e-9)
	require.NoError(t, db.QueryRow(`SELECT vec_cosine(?, ?)`, encode(0, 0), encode(0, 1)).Scan(&sim))
	assert.Equal(t, 0.0, sim)

	var null *float64
	require.NoError(t, db.QueryRow(`SELECT vec_cosine(NULL, ?)`, encode(1, 0)).Scan(&null))
	assert.Nil(t, null)

	err = db.QueryRow(`SELECT vec_cosine(?, ?)`, encode(1, 0), encode(1, 0, 0)).Scan(&sim)
	assert.Error(t, err)
}

func TestWithPragmas(t *testing.T) {
	assert.Equal(t, ":memory:", withPragmas(":memory:"))
	assert.Equal(t, "a.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", withPragmas("a.db"))
	assert.Equal(t, "a.db?_pragma=foreign_keys(1)", withPragmas("a.db?_pragma=foreign_keys(1)"))
	assert.True(t, IsMemory("file::memory:?cache=shared"))
}
