package semantic

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/viant/semvec/atom"
	"github.com/viant/semvec/ridge"
	"github.com/viant/semvec/semquery"
	"github.com/viant/semvec/vdb"
	"github.com/viant/semvec/vid"
	"go.uber.org/zap"
)

// SearchHits returns up to k atoms of a domain ranked by cosine similarity
// to query, optionally restricted to documentKeys. k <= 0 uses the
// configured default.
func (s *Service) SearchHits(ctx context.Context, domainName string, query []float32, k int, documentKeys []string) ([]vdb.Hit, error) {
	start := time.Now()
	domain, err := s.domainID(ctx, domainName)
	if err != nil {
		return nil, err
	}
	documents, err := s.documentIDs(ctx, documentKeys)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		k = s.cfg.Search.DefaultK
	}
	l := s.lock(domain)
	l.RLock()
	hits, err := s.vdb.Query(domain, query, k, documents)
	l.RUnlock()
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveSearch(start)
	s.logger.Debug("search",
		zap.String("domain", domainName),
		zap.Int("k", k),
		zap.Int("hits", len(hits)),
		zap.Duration("elapsed", time.Since(start)))
	return hits, nil
}

// Search is SearchHits without scores.
func (s *Service) Search(ctx context.Context, domainName string, query []float32, k int, documentKeys []string) ([]vid.Vid, error) {
	hits, err := s.SearchHits(ctx, domainName, query, k, documentKeys)
	if err != nil {
		return nil, err
	}
	out := make([]vid.Vid, len(hits))
	for i, h := range hits {
		out[i] = h.ID
	}
	return out, nil
}

// Rank scores every atom of a domain exactly in SQL, bypassing the index.
// It is a verification probe for the index and does not scale.
func (s *Service) Rank(ctx context.Context, domainName string, query []float32, k int) ([]atom.Scored, error) {
	domain, err := s.domainID(ctx, domainName)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		k = s.cfg.Search.DefaultK
	}
	return s.atoms.Rank(ctx, vid.MustNew(vid.WithDomain(int(domain))), query, k)
}

// SearchText encodes text and runs Search.
func (s *Service) SearchText(ctx context.Context, domainName, text string, k int, documentKeys []string) ([]vid.Vid, error) {
	if s.encoder == nil {
		return nil, ErrNoEncoder
	}
	query, err := s.encoder.Encode(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("semantic: encode query: %w", err)
	}
	return s.Search(ctx, domainName, query, k, documentKeys)
}

// RetrieveRidges runs ridge retrieval over an in-memory document whose
// content vectors double as structural vectors. topK <= 0 uses the
// configured default; a nil threshold uses the median adjacent similarity.
func (s *Service) RetrieveRidges(documentVectors [][]float32, query []float32, topK int, threshold *float64) ([]ridge.Range, error) {
	r, err := ridge.New(documentVectors, nil)
	if err != nil {
		return nil, err
	}
	return s.retrieve(r, query, topK, threshold), nil
}

func (s *Service) retrieve(r *ridge.Retriever, query []float32, topK int, threshold *float64) []ridge.Range {
	if topK <= 0 {
		topK = s.cfg.Ridge.TopK
	}
	var opts []ridge.Option
	if threshold != nil {
		opts = append(opts, ridge.WithThreshold(*threshold))
	}
	return r.Retrieve(query, topK, opts...)
}

// Passage is a ridge of a persisted document.
type Passage struct {
	Range ridge.Range
	IDs   []vid.Vid
	Texts []string
}

// DocumentRidges loads a persisted document in item order and retrieves
// ridges around the items most similar to query. Structural vectors are
// derived from the content vectors by self-attention.
func (s *Service) DocumentRidges(ctx context.Context, domainName, documentKey string, query []float32, topK int) ([]Passage, error) {
	if domainName == "" || documentKey == "" {
		return nil, fmt.Errorf("%w: domain and document are required", atom.ErrInvariant)
	}
	mask, err := s.Mask(ctx, domainName, documentKey, -1)
	if err != nil {
		return nil, err
	}
	return s.documentRidges(ctx, mask, query, topK)
}

// documentRidges retrieves ridges from the atoms under a document mask.
func (s *Service) documentRidges(ctx context.Context, mask vid.Vid, query []float32, topK int) ([]Passage, error) {
	atoms, err := s.atoms.Get(ctx, mask)
	if err != nil {
		return nil, err
	}
	if len(atoms) == 0 {
		return nil, nil
	}
	ids := make([]vid.Vid, 0, len(atoms))
	for id := range atoms {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, _ := ids[i].Item()
		b, _ := ids[j].Item()
		if a != b {
			return a < b
		}
		return ids[i] < ids[j]
	})
	content := make([][]float32, len(ids))
	for i, id := range ids {
		content[i] = atoms[id].Vector
	}
	r, err := ridge.New(content, ridge.Attend(content))
	if err != nil {
		return nil, err
	}
	ranges := s.retrieve(r, query, topK, nil)
	passages := make([]Passage, len(ranges))
	for i, rg := range ranges {
		p := Passage{Range: rg}
		for _, idx := range rg.Indices() {
			p.IDs = append(p.IDs, ids[idx])
			p.Texts = append(p.Texts, atoms[ids[idx]].Text)
		}
		passages[i] = p
	}
	return passages, nil
}

// DocumentPassages groups the ridges of one document found by Recall.
type DocumentPassages struct {
	Document string
	Passages []Passage
}

// Recall searches a domain for the k atoms closest to query, groups them by
// document in order of each document's best hit, and expands every document
// into ridge passages.
func (s *Service) Recall(ctx context.Context, domainName string, query []float32, k int) ([]DocumentPassages, error) {
	hits, err := s.SearchHits(ctx, domainName, query, k, nil)
	if err != nil {
		return nil, err
	}
	var (
		order []vid.Vid
		seen  = make(map[vid.Vid]bool)
	)
	for _, h := range hits {
		mask := h.ID.DocumentMask()
		if !seen[mask] {
			seen[mask] = true
			order = append(order, mask)
		}
	}
	out := make([]DocumentPassages, 0, len(order))
	for _, mask := range order {
		passages, err := s.documentRidges(ctx, mask, query, 0)
		if err != nil {
			return nil, err
		}
		document, _ := mask.Document()
		entry, err := s.documents.ByID(ctx, document)
		if err != nil {
			return nil, err
		}
		out = append(out, DocumentPassages{Document: entry.Name, Passages: passages})
	}
	return out, nil
}

// RecallText encodes text and runs Recall.
func (s *Service) RecallText(ctx context.Context, domainName, text string, k int) ([]DocumentPassages, error) {
	if s.encoder == nil {
		return nil, ErrNoEncoder
	}
	query, err := s.encoder.Encode(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("semantic: encode query: %w", err)
	}
	return s.Recall(ctx, domainName, query, k)
}

func (s *Service) condenseOptions() []semquery.Option {
	c := s.cfg.Condense
	return []semquery.Option{
		semquery.WithK(c.K),
		semquery.WithKarma(c.Karma),
		semquery.WithEpsilon(c.Epsilon),
		semquery.WithMaxSteps(c.MaxSteps),
	}
}

// Condense condenses query against a document using the configured
// condensation settings.
func (s *Service) Condense(documentVectors [][]float32, query []float32) (*semquery.Result, error) {
	q, err := semquery.New(documentVectors)
	if err != nil {
		return nil, err
	}
	return q.Condense(query, s.condenseOptions()...)
}

// Select returns the sorted item indices chosen by query condensation plus
// the k sharpest structural breaks of the document. k <= 0 uses the
// configured condensation k.
func (s *Service) Select(documentVectors [][]float32, query []float32, k int) ([]int, error) {
	q, err := semquery.New(documentVectors)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		k = s.cfg.Condense.K
	}
	return q.Select(query, k, 0, s.condenseOptions()...)
}
