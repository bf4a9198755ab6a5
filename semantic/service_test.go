package semantic

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/semvec/atom"
	"github.com/viant/semvec/config"
	"github.com/viant/semvec/engine"
	"github.com/viant/semvec/vector"
	"github.com/viant/semvec/vid"
	"go.uber.org/goleak"
)

func newService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	db, err := engine.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	cfg := config.Default()
	cfg.DSN = ":memory:"
	cfg.Dimension = 3
	cfg.Index.Kind = "flat"
	cfg.Rehydrate.Parallelism = 2
	srv, err := New(db, cfg, opts...)
	require.NoError(t, err)
	return srv
}

func mtime(v int64) *int64 { return &v }

var (
	docA = [][]float32{{1, 0, 0}, {0.9, 0.1, 0}, {0, 1, 0}}
	docB = [][]float32{{1, 0.05, 0}, {0, 0, 1}}
)

func seedDocuments(t *testing.T, srv *Service) {
	t.Helper()
	ctx := context.Background()
	ok, err := srv.SetDocument(ctx, "notes", "a", []string{"a0", "a1", "a2"}, docA, mtime(10), false)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = srv.SetDocument(ctx, "notes", "b", []string{"b0", "b1"}, docB, mtime(10), false)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestService_SetDocumentAndSearch(t *testing.T) {
	ctx := context.Background()
	srv := newService(t)
	seedDocuments(t, srv)

	ids, err := srv.Search(ctx, "notes", []float32{1, 0, 0}, 3, nil)
	require.NoError(t, err)
	require.Len(t, ids, 3)
	domain, _ := ids[0].Domain()
	item, _ := ids[0].Item()
	assert.EqualValues(t, 1, domain)
	assert.EqualValues(t, 1, item, "first span is item field 1")
	assert.Equal(t, vid.FlagFalse, ids[0].Temporary())

	restricted, err := srv.Search(ctx, "notes", []float32{1, 0, 0}, 3, []string{"b"})
	require.NoError(t, err)
	require.Len(t, restricted, 2)
	for _, id := range restricted {
		doc, _ := id.Document()
		assert.EqualValues(t, 2, doc)
	}

	_, err = srv.Search(ctx, "missing", []float32{1, 0, 0}, 3, nil)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = srv.Search(ctx, "notes", []float32{1, 0, 0}, 3, []string{"zzz"})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestService_SetDocumentReplacement(t *testing.T) {
	ctx := context.Background()
	srv := newService(t)
	seedDocuments(t, srv)

	ok, err := srv.SetDocument(ctx, "notes", "a", []string{"stale"}, [][]float32{{0, 0, 1}}, mtime(10), false)
	require.NoError(t, err)
	assert.False(t, ok, "same mtime is skipped")

	ok, err = srv.SetDocument(ctx, "notes", "a", []string{"new0", "new1"}, [][]float32{{0, 0, 1}, {0, 1, 1}}, mtime(11), false)
	require.NoError(t, err)
	assert.True(t, ok)

	stats, err := srv.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "notes", stats[0].Name)
	assert.EqualValues(t, 4, stats[0].Rows)
	assert.Equal(t, 4, stats[0].Indexed)
	assert.True(t, stats[0].InSync())

	mask, err := srv.Mask(ctx, "notes", "a", -1)
	require.NoError(t, err)
	atoms, err := srv.atoms.Get(ctx, mask)
	require.NoError(t, err)
	var texts []string
	for _, a := range atoms {
		texts = append(texts, a.Text)
	}
	assert.ElementsMatch(t, []string{"new0", "new1"}, texts)
}

func TestService_SetAtom(t *testing.T) {
	ctx := context.Background()
	srv := newService(t)

	id, err := srv.SetAtom(ctx, "web", "page", 4, "hello", []float32{0, 1, 0}, nil, true)
	require.NoError(t, err)
	item, _ := id.Item()
	assert.EqualValues(t, 5, item)
	assert.Equal(t, vid.FlagTrue, id.Temporary())

	_, err = srv.SetAtom(ctx, "web", "page", 0, "", []float32{0, 1, 0}, nil, false)
	assert.True(t, errors.Is(err, atom.ErrInvariant))
	_, err = srv.SetAtom(ctx, "web", "page", 0, "x", []float32{1, 0}, nil, false)
	assert.True(t, errors.Is(err, vector.ErrDimension))
	_, err = srv.SetAtom(ctx, "web", "page", -1, "x", []float32{1, 0, 0}, nil, false)
	assert.True(t, errors.Is(err, vid.ErrRange))

	ids, err := srv.Search(ctx, "web", []float32{0, 1, 0}, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, []vid.Vid{id}, ids, "failed writes leave the index untouched")
}

func TestService_Unset(t *testing.T) {
	ctx := context.Background()
	srv := newService(t)
	seedDocuments(t, srv)

	mask, err := srv.Mask(ctx, "notes", "a", 1)
	require.NoError(t, err)
	n, err := srv.Unset(ctx, mask)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	mask, err = srv.Mask(ctx, "notes", "b", -1)
	require.NoError(t, err)
	n, err = srv.Unset(ctx, mask)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = srv.Unset(ctx, mask)
	require.NoError(t, err)
	assert.Zero(t, n)

	stats, err := srv.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats[0].Rows)
	assert.Equal(t, 2, stats[0].Indexed)

	_, err = srv.Mask(ctx, "notes", "nope", -1)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestService_DesyncWarning(t *testing.T) {
	ctx := context.Background()
	srv := newService(t)
	seedDocuments(t, srv)

	// a row written behind the service's back is not indexed
	orphan := vid.MustNew(vid.WithDomain(1), vid.WithDocument(1), vid.WithItem(9), vid.WithTemporary(false))
	require.NoError(t, srv.atoms.Set(ctx, orphan, "orphan", []float32{0, 0, 1}, nil))

	id, err := srv.SetAtom(ctx, "notes", "b", 2, "b2", []float32{0, 1, 1}, nil, false)
	var warning *DesyncWarning
	require.True(t, errors.As(err, &warning))
	assert.NotZero(t, id)
	assert.Equal(t, "notes", warning.Domain)
	assert.EqualValues(t, 7, warning.Rows)
	assert.Equal(t, 6, warning.Indexed)

	require.NoError(t, srv.Rehydrate(ctx))
	stats, err := srv.Stats(ctx)
	require.NoError(t, err)
	assert.True(t, stats[0].InSync())
}

func TestService_Rehydrate(t *testing.T) {
	ctx := context.Background()
	srv := newService(t)
	seedDocuments(t, srv)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	_, err := srv.SetAtom(ctx, "scratch", "tmp", 0, "temp", []float32{1, 1, 0}, nil, true)
	require.NoError(t, err)
	_, err = srv.SetAtom(ctx, "notes", "tmp", 0, "temp", []float32{1, 1, 0}, nil, true)
	require.NoError(t, err)

	require.NoError(t, srv.Rehydrate(ctx))

	stats, err := srv.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "notes", stats[0].Name)
	assert.EqualValues(t, 5, stats[0].Rows)
	assert.Equal(t, 5, stats[0].Indexed)
	assert.Equal(t, "scratch", stats[1].Name)
	assert.Zero(t, stats[1].Rows)
	assert.Zero(t, stats[1].Indexed)

	ids, err := srv.Search(ctx, "scratch", []float32{1, 1, 0}, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestService_RehydrateFreshService(t *testing.T) {
	ctx := context.Background()
	srv := newService(t)
	seedDocuments(t, srv)

	// a second service over the same database starts with empty indexes
	other, err := New(srv.db, srv.cfg)
	require.NoError(t, err)
	ids, err := other.Search(ctx, "notes", []float32{1, 0, 0}, 3, nil)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, other.Rehydrate(ctx))
	ids, err = other.Search(ctx, "notes", []float32{1, 0, 0}, 3, nil)
	require.NoError(t, err)
	want, err := srv.Search(ctx, "notes", []float32{1, 0, 0}, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, want, ids)
}

func TestService_RankMatchesSearch(t *testing.T) {
	ctx := context.Background()
	srv := newService(t)
	seedDocuments(t, srv)

	ranked, err := srv.Rank(ctx, "notes", []float32{1, 0, 0}, 3)
	require.NoError(t, err)
	ids, err := srv.Search(ctx, "notes", []float32{1, 0, 0}, 3, nil)
	require.NoError(t, err)
	require.Len(t, ranked, len(ids))
	for i := range ids {
		assert.Equal(t, ids[i], ranked[i].ID)
	}
}

func TestService_Ridges(t *testing.T) {
	ctx := context.Background()
	srv := newService(t)
	seedDocuments(t, srv)

	threshold := 0.5
	ranges, err := srv.RetrieveRidges(docA, []float32{0, 1, 0}, 1, &threshold)
	require.NoError(t, err)
	require.Len(t, ranges, 1)
	assert.True(t, ranges[0].Contains(2))

	passages, err := srv.DocumentRidges(ctx, "notes", "a", []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	require.NotEmpty(t, passages)
	assert.Contains(t, passages[0].Texts, "a0")
	assert.Equal(t, len(passages[0].IDs), passages[0].Range.Len())

	_, err = srv.DocumentRidges(ctx, "notes", "zzz", []float32{1, 0, 0}, 1)
	assert.True(t, errors.Is(err, ErrNotFound))

	recalled, err := srv.Recall(ctx, "notes", []float32{0, 0, 1}, 2)
	require.NoError(t, err)
	require.NotEmpty(t, recalled)
	assert.Equal(t, "b", recalled[0].Document)
}

func TestService_RecallGroupsByDocument(t *testing.T) {
	ctx := context.Background()
	srv := newService(t)
	seedDocuments(t, srv)
	_, err := srv.SetAtom(ctx, "notes", "a", 3, "a3", []float32{1, 0, 0}, nil, true)
	require.NoError(t, err)

	recalled, err := srv.Recall(ctx, "notes", []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	documents := make([]string, len(recalled))
	for i, r := range recalled {
		documents[i] = r.Document
	}
	assert.Equal(t, []string{"a", "b"}, documents, "temporary and persistent atoms share a document")

	var texts []string
	for _, p := range recalled[0].Passages {
		texts = append(texts, p.Texts...)
	}
	assert.Contains(t, texts, "a3")

	_, err = srv.DocumentRidges(ctx, "", "a", []float32{1, 0, 0}, 1)
	assert.True(t, errors.Is(err, atom.ErrInvariant))
}

func TestService_SelectAndCondense(t *testing.T) {
	srv := newService(t)
	selected, err := srv.Select(docA, []float32{1, 0, 0}, 1)
	require.NoError(t, err)
	assert.NotEmpty(t, selected)
	assert.Contains(t, selected, 2, "sharpest break is item 2")

	res, err := srv.Condense(docA, []float32{1, 0, 0})
	require.NoError(t, err)
	assert.LessOrEqual(t, res.Steps, srv.Config().Condense.MaxSteps)

	_, err = srv.Select(nil, []float32{1, 0, 0}, 1)
	assert.Error(t, err)
}

func letterEncoder() EncodeFunc {
	return func(_ context.Context, text string) ([]float32, error) {
		lower := strings.ToLower(text)
		return []float32{
			float32(strings.Count(lower, "a")) + 0.01,
			float32(strings.Count(lower, "b")) + 0.01,
			float32(strings.Count(lower, "c")) + 0.01,
		}, nil
	}
}

func TestService_IndexText(t *testing.T) {
	ctx := context.Background()
	srv := newService(t)
	_, err := srv.IndexText(ctx, "notes", "doc", "aaa.", nil, false)
	assert.True(t, errors.Is(err, ErrNoEncoder))

	srv = newService(t, WithEncoder(letterEncoder()))
	ok, err := srv.IndexText(ctx, "notes", "doc", "Aaa aa. Bbb b! Ccc?", mtime(1), false)
	require.NoError(t, err)
	assert.True(t, ok)

	ids, err := srv.SearchText(ctx, "notes", "bb", 1, nil)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	item, _ := ids[0].Item()
	assert.EqualValues(t, 2, item)

	recalled, err := srv.RecallText(ctx, "notes", "cc", 1)
	require.NoError(t, err)
	require.Len(t, recalled, 1)
	assert.Equal(t, "doc", recalled[0].Document)
}

func TestSentenceSegmenter(t *testing.T) {
	seg := SentenceSegmenter{}
	assert.Equal(t, []string{"One.", "Two!", "Three?", "yes", "v1.2 stays"},
		seg.Segment("One. Two!  Three? yes\n\nv1.2 stays"))
	assert.Empty(t, seg.Segment("   "))
}
