package semantic

import (
	"context"
	"sort"
	"time"

	"github.com/viant/semvec/vid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Rehydrate deletes temporary atoms and rebuilds every domain index from the
// remaining rows. Domains load in parallel, bounded by the configured
// parallelism.
func (s *Service) Rehydrate(ctx context.Context) error {
	start := time.Now()
	dropped, err := s.atoms.Unset(ctx, vid.MustNew(vid.WithTemporary(true)))
	if err != nil {
		return err
	}
	persistent := vid.MustNew(vid.WithTemporary(false))
	domains, err := s.atoms.Domains(ctx, persistent)
	if err != nil {
		return err
	}
	s.vdb.Reset()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Rehydrate.Parallelism)
	for _, domain := range domains {
		g.Go(func() error {
			return s.rehydrateDomain(gctx, domain)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	s.metrics.ObserveRehydrate(start)
	s.logger.Info("rehydrated",
		zap.Int("domains", len(domains)),
		zap.Int64("temporary_dropped", dropped),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func (s *Service) rehydrateDomain(ctx context.Context, domain uint16) error {
	mask := vid.MustNew(vid.WithDomain(int(domain)), vid.WithTemporary(false))
	atoms, err := s.atoms.Get(ctx, mask)
	if err != nil {
		return err
	}
	ids := make([]vid.Vid, 0, len(atoms))
	for id := range atoms {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	vectors := make([][]float32, len(ids))
	for i, id := range ids {
		vectors[i] = atoms[id].Vector
	}
	l := s.lock(domain)
	l.Lock()
	s.vdb.Drop(domain)
	err = s.vdb.Add(domain, ids, vectors)
	l.Unlock()
	if err != nil {
		return err
	}
	name := s.domainName(ctx, domain)
	s.metrics.SetIndexSize(name, len(ids))
	s.logger.Debug("domain rehydrated", zap.String("domain", name), zap.Int("atoms", len(ids)))
	return nil
}

// DomainStats compares persisted rows with indexed vectors for a domain.
type DomainStats struct {
	ID      uint16
	Name    string
	Rows    int64
	Indexed int
}

// InSync reports whether every row is indexed.
func (d DomainStats) InSync() bool { return d.Rows == int64(d.Indexed) }

// Stats reports row and index counts for every registered or indexed
// domain, ordered by id.
func (s *Service) Stats(ctx context.Context) ([]DomainStats, error) {
	entries, err := s.domains.All(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[uint16]string, len(entries))
	for _, e := range entries {
		names[e.ID] = e.Name
	}
	for _, d := range s.vdb.Domains() {
		if _, ok := names[d]; !ok {
			names[d] = s.domainName(ctx, d)
		}
	}
	out := make([]DomainStats, 0, len(names))
	for id, name := range names {
		rows, err := s.atoms.Count(ctx, vid.MustNew(vid.WithDomain(int(id))))
		if err != nil {
			return nil, err
		}
		out = append(out, DomainStats{ID: id, Name: name, Rows: rows, Indexed: s.vdb.DomainSize(id)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
