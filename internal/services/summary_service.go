package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"finledger/internal/cache"
	"finledger/internal/category"
	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/rollup"
	"finledger/internal/storage"
)

type SummaryConfig struct {
	DefaultDepth int
	// MaxDepth caps the requested depth; it is the category depth bound.
	MaxDepth  int
	CacheSize int
	CacheTTL  time.Duration
}

type SummaryQuery struct {
	CompanyID       string
	Year            int
	Kind            core.RecordKind
	MaxDepth        int
	IncludeForecast bool
}

func (q SummaryQuery) cacheKey(rev int64) string {
	return fmt.Sprintf("%s|%s|%d|%d|%t|%d", q.Kind, q.CompanyID, q.Year, q.MaxDepth, q.IncludeForecast, rev)
}

// SummaryService builds category summaries. Results are cached under the
// store revision they were computed from, so a confirm that commits new
// records is never hidden by a cached tree.
type SummaryService struct {
	store  SummaryStore
	cfg    SummaryConfig
	cache  *cache.LRUCache[*rollup.Summary]
	group  singleflight.Group
	logger *log.Logger
}

func NewSummaryService(store SummaryStore, cfg SummaryConfig, logger *log.Logger) *SummaryService {
	if logger == nil {
		logger = log.Discard()
	}
	if cfg.DefaultDepth < 1 {
		cfg.DefaultDepth = rollup.DefaultMaxDepth
	}
	if cfg.MaxDepth < cfg.DefaultDepth {
		cfg.MaxDepth = cfg.DefaultDepth
	}
	if cfg.CacheSize < 1 {
		cfg.CacheSize = 256
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	return &SummaryService{
		store:  store,
		cfg:    cfg,
		cache:  cache.NewLRUCache[*rollup.Summary](cfg.CacheSize, cfg.CacheTTL),
		logger: logger.WithComponent(log.ComponentSummary),
	}
}

// Cache exposes the summary cache so it can be registered for cleanup.
func (s *SummaryService) Cache() *cache.LRUCache[*rollup.Summary] {
	return s.cache
}

// normalize applies defaults. A depth below one means the default depth and
// a depth above the bound is capped.
func (s *SummaryService) normalize(q SummaryQuery) (SummaryQuery, error) {
	if q.Kind == "" {
		q.Kind = core.Revenue
	}
	kind, err := core.ParseRecordKind(string(q.Kind))
	if err != nil {
		return q, invalidRequest("kind", err)
	}
	if _, ok := kind.ForecastKind(); !ok {
		return q, invalidRequest("kind", fmt.Errorf("%w: summaries cover revenue or expense, got %s", core.ErrUnknownRecordKind, kind))
	}
	q.Kind = kind
	if q.Year < 1 || q.Year > 9999 {
		return q, invalidRequest("year", fmt.Errorf("%w: year %d", core.ErrInvalidDate, q.Year))
	}
	if q.MaxDepth < 1 {
		q.MaxDepth = s.cfg.DefaultDepth
	}
	if q.MaxDepth > s.cfg.MaxDepth {
		q.MaxDepth = s.cfg.MaxDepth
	}
	return q, nil
}

// Summary returns the roll-up tree of one kind and year. Identical concurrent
// requests share a single load.
func (s *SummaryService) Summary(ctx context.Context, q SummaryQuery) (*rollup.Summary, error) {
	q, err := s.normalize(q)
	if err != nil {
		return nil, err
	}

	rev, err := s.store.Revision(ctx)
	if err != nil {
		return nil, err
	}
	if sum, ok := s.cache.Get(q.cacheKey(rev)); ok {
		return sum, nil
	}

	v, err, shared := s.group.Do(q.cacheKey(rev), func() (any, error) {
		// Every waiter shares this load; it must outlive the first caller.
		return s.build(context.WithoutCancel(ctx), q)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.DebugContext(ctx, "Summary load shared", log.FieldYear, q.Year, log.FieldRecordKind, q.Kind)
	}
	return v.(*rollup.Summary), nil
}

func (s *SummaryService) build(ctx context.Context, q SummaryQuery) (*rollup.Summary, error) {
	start := time.Now()
	snap, err := s.store.LoadLedgerSnapshot(ctx, storage.SnapshotQuery{
		Kind:            q.Kind,
		CompanyID:       q.CompanyID,
		Year:            q.Year,
		IncludeForecast: q.IncludeForecast,
	})
	if err != nil {
		return nil, fmt.Errorf("load ledger snapshot: %w", err)
	}

	in := rollup.Snapshot{
		Year:   q.Year,
		Forest: category.Build(q.Kind.CategoryKind(), snap.Categories, s.logger),
	}
	if len(snap.ForecastCategories) > 0 {
		fk, _ := q.Kind.ForecastKind()
		in.ForecastForest = category.Build(fk.CategoryKind(), snap.ForecastCategories, s.logger)
	}
	for _, r := range snap.Actuals {
		in.Actuals = append(in.Actuals, rollup.Item{
			CategoryID: r.CategoryID,
			PathText:   r.CategoryPath,
			Date:       r.OccurredOn,
			Minor:      r.Amount.Minor,
		})
	}
	for _, r := range snap.Forecasts {
		in.Forecasts = append(in.Forecasts, rollup.Item{
			CategoryID: r.CategoryID,
			PathText:   r.CategoryPath,
			Date:       r.TargetDate,
			Minor:      r.Amount.Minor,
			Certainty:  r.Certainty,
		})
	}

	sum, err := rollup.Build(in, rollup.Options{
		MaxDepth:        q.MaxDepth,
		IncludeForecast: q.IncludeForecast,
		Logger:          s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build summary: %w", err)
	}
	// The snapshot revision may be newer than the one checked before the
	// load; caching under it keeps the entry correct for that revision.
	s.cache.Set(q.cacheKey(snap.Revision), &sum)

	s.logger.DebugContext(ctx, "Summary built",
		log.FieldYear, q.Year,
		log.FieldRecordKind, q.Kind,
		log.FieldRevision, snap.Revision,
		"records", len(snap.Actuals),
		"forecasts", len(snap.Forecasts),
		"duration_ms", time.Since(start).Milliseconds())
	return &sum, nil
}

func (s *SummaryService) ListCategories(ctx context.Context, kind core.CategoryKind) ([]core.Category, error) {
	return s.store.ListCategories(ctx, kind)
}

// DisableCategory disables a category and drops every cached summary, since
// disabling does not move the store revision.
func (s *SummaryService) DisableCategory(ctx context.Context, id int64) (core.Category, error) {
	c, err := s.store.DisableCategory(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return core.Category{}, fmt.Errorf("%w: %d", ErrCategoryNotFound, id)
	}
	if err != nil {
		return core.Category{}, err
	}
	s.cache.Purge()
	s.logger.InfoContext(ctx, "Summary cache purged", log.FieldCategoryID, id)
	return c, nil
}
