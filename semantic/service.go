package semantic

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync"

	"github.com/viant/semvec/atom"
	"github.com/viant/semvec/config"
	"github.com/viant/semvec/engine"
	"github.com/viant/semvec/metrics"
	"github.com/viant/semvec/registry"
	"github.com/viant/semvec/vdb"
	"github.com/viant/semvec/vid"
	"go.uber.org/zap"
)

// Option configures a Service.
type Option func(s *Service)

// WithLogger sets the logger (default no-op).
func WithLogger(logger *zap.Logger) Option { return func(s *Service) { s.logger = logger } }

// WithMetrics sets the collectors (default none).
func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithEncoder sets the text encoder used by IndexText, SearchText and Recall.
func WithEncoder(e Encoder) Option { return func(s *Service) { s.encoder = e } }

// WithSegmenter sets the document segmenter (default SentenceSegmenter).
func WithSegmenter(seg Segmenter) Option { return func(s *Service) { s.segmenter = seg } }

// Service stores semantic atoms and answers vector queries over them.
type Service struct {
	db        *sql.DB
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *metrics.Metrics
	encoder   Encoder
	segmenter Segmenter

	atoms     *atom.Store
	domains   *registry.Registry
	documents *registry.Registry
	vdb       *vdb.Vdb

	locksMu sync.Mutex
	locks   map[uint16]*sync.RWMutex
}

// New migrates the schema and returns a service with empty indexes. Call
// Rehydrate to load indexes for a database that already holds atoms.
func New(db *sql.DB, cfg *config.Config, opts ...Option) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("semantic: db is nil")
	}
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	kind, err := cfg.IndexKind()
	if err != nil {
		return nil, err
	}
	if err := engine.Migrate(context.Background(), db); err != nil {
		return nil, err
	}
	atoms, err := atom.New(db, cfg.Dimension)
	if err != nil {
		return nil, err
	}
	index, err := vdb.New(cfg.Dimension,
		vdb.WithKind(kind),
		vdb.WithCoverBase(cfg.Index.CoverBase),
		vdb.WithAutoCoverMinDocs(cfg.Index.AutoCoverMinDocs))
	if err != nil {
		return nil, err
	}
	s := &Service{
		db:        db,
		cfg:       cfg,
		logger:    zap.NewNop(),
		segmenter: SentenceSegmenter{},
		atoms:     atoms,
		domains:   registry.New(db, registry.Domains),
		documents: registry.New(db, registry.Documents),
		vdb:       index,
		locks:     make(map[uint16]*sync.RWMutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s, nil
}

// Config returns the service configuration.
func (s *Service) Config() *config.Config { return s.cfg }

// lock returns the writer/reader lock of a domain index.
func (s *Service) lock(domain uint16) *sync.RWMutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[domain]
	if !ok {
		l = &sync.RWMutex{}
		s.locks[domain] = l
	}
	return l
}

// domainID resolves an existing domain name.
func (s *Service) domainID(ctx context.Context, name string) (uint16, error) {
	entry, err := s.domains.Get(ctx, name)
	if err != nil {
		return 0, err
	}
	if entry == nil {
		return 0, fmt.Errorf("%w: domain %q", ErrNotFound, name)
	}
	return entry.ID, nil
}

// documentIDs resolves existing document keys.
func (s *Service) documentIDs(ctx context.Context, keys []string) ([]uint16, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	out := make([]uint16, len(keys))
	for i, key := range keys {
		entry, err := s.documents.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return nil, fmt.Errorf("%w: document %q", ErrNotFound, key)
		}
		out[i] = entry.ID
	}
	return out, nil
}

// domainName returns the registered name of id, or its decimal form for
// atoms written without the registry.
func (s *Service) domainName(ctx context.Context, id uint16) string {
	if entry, err := s.domains.ByID(ctx, id); err == nil {
		return entry.Name
	}
	return strconv.Itoa(int(id))
}

// Mask builds an address mask from names. An empty domain or document and
// a negative item are wildcards; the temporary flag is left unset.
func (s *Service) Mask(ctx context.Context, domainName, documentKey string, item int) (vid.Vid, error) {
	var opts []vid.Option
	if domainName != "" {
		id, err := s.domainID(ctx, domainName)
		if err != nil {
			return 0, err
		}
		opts = append(opts, vid.WithDomain(int(id)))
	}
	if documentKey != "" {
		ids, err := s.documentIDs(ctx, []string{documentKey})
		if err != nil {
			return 0, err
		}
		opts = append(opts, vid.WithDocument(int(ids[0])))
	}
	if item >= 0 {
		opts = append(opts, vid.WithItem(item+1))
	}
	return vid.New(opts...)
}

// checkSync compares the row count of the domain of id with its index size.
// It returns a *DesyncWarning on mismatch.
func (s *Service) checkSync(ctx context.Context, id vid.Vid, name string) error {
	domain, _ := id.Domain()
	rows, err := s.atoms.Count(ctx, id.DomainMask())
	if err != nil {
		return err
	}
	indexed := s.vdb.DomainSize(domain)
	s.metrics.SetIndexSize(name, indexed)
	if rows == int64(indexed) {
		return nil
	}
	s.metrics.Desync(name)
	s.logger.Warn("index out of sync",
		zap.String("domain", name),
		zap.Int64("rows", rows),
		zap.Int("indexed", indexed))
	return &DesyncWarning{Domain: name, Rows: rows, Indexed: indexed}
}

// inTx runs fn in a transaction, committing when it returns nil.
func (s *Service) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
