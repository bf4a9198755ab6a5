package semantic

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/viant/semvec/atom"
	"github.com/viant/semvec/vid"
	"go.uber.org/zap"
)

// maxItems is the largest item count of a document: item i is stored in the
// address item field as i+1, and 0 means absent.
const maxItems = vid.MaxField

// resolve registers domainName and documentKey inside tx and returns their
// ids.
func (s *Service) resolve(ctx context.Context, tx *sql.Tx, domainName, documentKey string) (uint16, uint16, error) {
	if domainName == "" || documentKey == "" {
		return 0, 0, fmt.Errorf("%w: domain and document are required", atom.ErrInvariant)
	}
	domain, err := s.domains.WithTx(tx).Set(ctx, domainName)
	if err != nil {
		return 0, 0, err
	}
	document, err := s.documents.WithTx(tx).Set(ctx, documentKey)
	if err != nil {
		return 0, 0, err
	}
	return domain, document, nil
}

func address(domain, document uint16, item int, temporary bool) (vid.Vid, error) {
	return vid.New(
		vid.WithDomain(int(domain)),
		vid.WithDocument(int(document)),
		vid.WithItem(item+1),
		vid.WithTemporary(temporary))
}

// SetAtom writes one atom at item (0-based) of a document and indexes it.
// Domain and document are registered on first use. An existing atom at the
// same address is replaced.
//
// A non-nil *DesyncWarning may accompany a valid address.
func (s *Service) SetAtom(ctx context.Context, domainName, documentKey string, item int, text string, vector []float32, mtime *int64, temporary bool) (vid.Vid, error) {
	if item < 0 || item >= maxItems {
		return 0, fmt.Errorf("%w: item %d", vid.ErrRange, item)
	}
	var (
		id     vid.Vid
		domain uint16
	)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		d, document, err := s.resolve(ctx, tx, domainName, documentKey)
		if err != nil {
			return err
		}
		domain = d
		if id, err = address(d, document, item, temporary); err != nil {
			return err
		}
		return s.atoms.WithTx(tx).Set(ctx, id, text, vector, mtime)
	})
	if err != nil {
		return 0, err
	}
	l := s.lock(domain)
	l.Lock()
	err = s.vdb.Add(domain, []vid.Vid{id}, [][]float32{vector})
	l.Unlock()
	if err != nil {
		return 0, err
	}
	s.metrics.AtomsWritten(domainName, 1)
	s.logger.Debug("atom set", zap.String("domain", domainName), zap.String("document", documentKey), zap.Stringer("id", id))
	return id, s.checkSync(ctx, id, domainName)
}

// SetDocument replaces a document with one atom per text. It is skipped, and
// returns false, when mtime is not newer than the newest mtime already
// stored for the document. Otherwise every existing atom of the document is
// deleted and the new ones are written in one transaction, then the index
// follows.
//
// A nil mtime always replaces. A non-nil *DesyncWarning may accompany true.
func (s *Service) SetDocument(ctx context.Context, domainName, documentKey string, texts []string, vectors [][]float32, mtime *int64, temporary bool) (bool, error) {
	if len(texts) != len(vectors) {
		return false, fmt.Errorf("%w: %d texts, %d vectors", atom.ErrInvariant, len(texts), len(vectors))
	}
	if len(texts) == 0 {
		return false, fmt.Errorf("%w: document %q has no atoms", atom.ErrInvariant, documentKey)
	}
	if len(texts) > maxItems {
		return false, fmt.Errorf("%w: document %q has %d items", vid.ErrRange, documentKey, len(texts))
	}
	var (
		domain  uint16
		removed []vid.Vid
		ids     = make([]vid.Vid, len(texts))
		skipped bool
	)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		d, document, err := s.resolve(ctx, tx, domainName, documentKey)
		if err != nil {
			return err
		}
		domain = d
		atoms := s.atoms.WithTx(tx)
		first, err := address(d, document, 0, temporary)
		if err != nil {
			return err
		}
		mask := first.DocumentMask()
		latest, err := atoms.MaxMtime(ctx, mask)
		if err != nil {
			return err
		}
		if mtime != nil && latest != nil && *mtime <= *latest {
			skipped = true
			return nil
		}
		if removed, err = atoms.IDs(ctx, mask); err != nil {
			return err
		}
		if _, err = atoms.Unset(ctx, mask); err != nil {
			return err
		}
		records := make([]atom.Record, len(texts))
		for i := range texts {
			if ids[i], err = address(d, document, i, temporary); err != nil {
				return err
			}
			records[i] = atom.Record{ID: ids[i], Text: texts[i], Vector: vectors[i], Mtime: mtime}
		}
		return atoms.SetAll(ctx, records)
	})
	if err != nil {
		return false, err
	}
	if skipped {
		s.logger.Debug("document unchanged", zap.String("domain", domainName), zap.String("document", documentKey))
		return false, nil
	}
	l := s.lock(domain)
	l.Lock()
	s.vdb.RemoveIDs(domain, removed)
	err = s.vdb.Add(domain, ids, vectors)
	l.Unlock()
	if err != nil {
		return false, err
	}
	s.metrics.AtomsRemoved(domainName, int64(len(removed)))
	s.metrics.AtomsWritten(domainName, len(ids))
	s.logger.Info("document set",
		zap.String("domain", domainName),
		zap.String("document", documentKey),
		zap.Int("atoms", len(ids)),
		zap.Int("replaced", len(removed)))
	return true, s.checkSync(ctx, ids[0], domainName)
}

// IndexText segments text, encodes the segments and stores them with
// SetDocument.
func (s *Service) IndexText(ctx context.Context, domainName, documentKey, text string, mtime *int64, temporary bool) (bool, error) {
	if s.encoder == nil {
		return false, ErrNoEncoder
	}
	segments := s.segmenter.Segment(text)
	if len(segments) == 0 {
		return false, fmt.Errorf("%w: document %q has no text", atom.ErrInvariant, documentKey)
	}
	vectors, err := s.encoder.EncodeSequence(ctx, segments)
	if err != nil {
		return false, fmt.Errorf("semantic: encode %q: %w", documentKey, err)
	}
	return s.SetDocument(ctx, domainName, documentKey, segments, vectors, mtime, temporary)
}

// Unset deletes every atom matching mask and drops them from the indexes.
// It returns the number of atoms removed.
func (s *Service) Unset(ctx context.Context, mask vid.Vid) (int64, error) {
	var (
		removed []vid.Vid
		n       int64
	)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		atoms := s.atoms.WithTx(tx)
		var err error
		if removed, err = atoms.IDs(ctx, mask); err != nil {
			return err
		}
		n, err = atoms.Unset(ctx, mask)
		return err
	})
	if err != nil {
		return 0, err
	}
	byDomain := make(map[uint16][]vid.Vid)
	for _, id := range removed {
		d, _ := id.Domain()
		byDomain[d] = append(byDomain[d], id)
	}
	for domain, ids := range byDomain {
		l := s.lock(domain)
		l.Lock()
		s.vdb.RemoveIDs(domain, ids)
		l.Unlock()
		name := s.domainName(ctx, domain)
		s.metrics.AtomsRemoved(name, int64(len(ids)))
		s.metrics.SetIndexSize(name, s.vdb.DomainSize(domain))
	}
	s.logger.Info("atoms unset", zap.Stringer("mask", mask), zap.Int64("atoms", n))
	return n, nil
}
