package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finledger/internal/core"
	"finledger/internal/services"
	mock_services "finledger/internal/services/mocks"
	"finledger/internal/storage"
)

func ptr[T any](v T) *T { return &v }

func revenueSnapshot(rev int64) storage.LedgerSnapshot {
	return storage.LedgerSnapshot{
		Revision: rev,
		Categories: []core.Category{
			{ID: 1, Kind: core.RevenueCategories, Name: "Sales", FullPath: "Sales", Enabled: true},
			{ID: 2, Kind: core.RevenueCategories, ParentID: ptr(int64(1)), Level: 1, Name: "Online", FullPath: "Sales/Online", Enabled: true},
		},
		Actuals: []core.LedgerRecord{
			{Kind: core.Revenue, CategoryID: ptr(int64(2)), OccurredOn: core.NewDate(2025, 1, 10), Amount: core.Money{Minor: 1000}},
			{Kind: core.Revenue, CategoryID: ptr(int64(2)), OccurredOn: core.NewDate(2025, 3, 2), Amount: core.Money{Minor: 500}},
			{Kind: core.Revenue, CategoryPath: "Services", OccurredOn: core.NewDate(2025, 3, 9), Amount: core.Money{Minor: 250}},
		},
	}
}

func newSummaryService(t *testing.T) (*services.SummaryService, *mock_services.MockSummaryStore) {
	ctrl := gomock.NewController(t)
	store := mock_services.NewMockSummaryStore(ctrl)
	svc := services.NewSummaryService(store, services.SummaryConfig{
		DefaultDepth: 2,
		MaxDepth:     4,
		CacheSize:    16,
		CacheTTL:     time.Minute,
	}, nil)
	return svc, store
}

func TestSummaryService_Summary(t *testing.T) {
	svc, store := newSummaryService(t)
	store.EXPECT().Revision(gomock.Any()).Return(int64(3), nil)
	store.EXPECT().LoadLedgerSnapshot(gomock.Any(), storage.SnapshotQuery{Kind: core.Revenue, CompanyID: "acme", Year: 2025}).
		Return(revenueSnapshot(3), nil)

	sum, err := svc.Summary(context.Background(), services.SummaryQuery{CompanyID: "acme", Year: 2025})
	require.NoError(t, err)

	assert.Equal(t, 2, sum.MaxDepth, "default depth applies")
	assert.EqualValues(t, 1750, sum.Totals.Total)
	require.Len(t, sum.Nodes, 2)
	assert.Equal(t, "Sales", sum.Nodes[0].Label)
	assert.EqualValues(t, 1500, sum.Nodes[0].Totals.Total)
	require.Len(t, sum.Nodes[0].Children, 1)
	assert.Equal(t, "Online", sum.Nodes[0].Children[0].Label)
	assert.Equal(t, "Services", sum.Nodes[1].Label)
	assert.EqualValues(t, 250, sum.Nodes[1].Totals.Monthly[2])
}

func TestSummaryService_CachesByRevision(t *testing.T) {
	svc, store := newSummaryService(t)
	ctx := context.Background()
	q := services.SummaryQuery{Year: 2025, Kind: core.Revenue}

	gomock.InOrder(
		store.EXPECT().Revision(gomock.Any()).Return(int64(1), nil).Times(2),
		store.EXPECT().Revision(gomock.Any()).Return(int64(2), nil),
	)
	store.EXPECT().LoadLedgerSnapshot(gomock.Any(), gomock.Any()).Return(revenueSnapshot(1), nil)
	store.EXPECT().LoadLedgerSnapshot(gomock.Any(), gomock.Any()).Return(revenueSnapshot(2), nil)

	first, err := svc.Summary(ctx, q)
	require.NoError(t, err)
	second, err := svc.Summary(ctx, q)
	require.NoError(t, err)
	assert.Same(t, first, second, "same revision is served from cache")

	third, err := svc.Summary(ctx, q)
	require.NoError(t, err)
	assert.NotSame(t, first, third, "a new revision forces a rebuild")

	stats := svc.Cache().Stats()
	assert.EqualValues(t, 1, stats.Hits)
}

func TestSummaryService_DisableCategoryDropsCache(t *testing.T) {
	svc, store := newSummaryService(t)
	ctx := context.Background()
	q := services.SummaryQuery{Year: 2025, Kind: core.Revenue}

	store.EXPECT().Revision(gomock.Any()).Return(int64(4), nil).Times(2)
	store.EXPECT().LoadLedgerSnapshot(gomock.Any(), gomock.Any()).Return(revenueSnapshot(4), nil).Times(2)
	store.EXPECT().DisableCategory(gomock.Any(), int64(2)).
		Return(core.Category{ID: 2, Name: "Online", FullPath: "Sales/Online"}, nil)
	store.EXPECT().DisableCategory(gomock.Any(), int64(9)).Return(core.Category{}, storage.ErrNotFound)

	first, err := svc.Summary(ctx, q)
	require.NoError(t, err)
	require.Equal(t, 1, svc.Cache().Size())

	_, err = svc.DisableCategory(ctx, 2)
	require.NoError(t, err)
	assert.Zero(t, svc.Cache().Size())

	second, err := svc.Summary(ctx, q)
	require.NoError(t, err)
	assert.NotSame(t, first, second, "the tree is rebuilt at the same revision")

	_, err = svc.DisableCategory(ctx, 9)
	assert.ErrorIs(t, err, services.ErrCategoryNotFound)
	assert.Equal(t, 1, svc.Cache().Size(), "a failed disable keeps the cache")
}

func TestSummaryService_CoalescesConcurrentLoads(t *testing.T) {
	svc, store := newSummaryService(t)
	release := make(chan struct{})

	store.EXPECT().Revision(gomock.Any()).Return(int64(7), nil).AnyTimes()
	store.EXPECT().LoadLedgerSnapshot(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, storage.SnapshotQuery) (storage.LedgerSnapshot, error) {
			<-release
			return revenueSnapshot(7), nil
		}).Times(1)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]int64, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sum, err := svc.Summary(context.Background(), services.SummaryQuery{Year: 2025})
			if assert.NoError(t, err) {
				results[i] = sum.Totals.Total
			}
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, total := range results {
		assert.EqualValues(t, 1750, total)
	}
}

func TestSummaryService_QueryValidation(t *testing.T) {
	svc, store := newSummaryService(t)
	ctx := context.Background()

	var verr *core.ValidationError
	_, err := svc.Summary(ctx, services.SummaryQuery{Year: 2025, Kind: core.AccountBalance})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "kind", verr.Field)

	_, err = svc.Summary(ctx, services.SummaryQuery{Year: 0})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "year", verr.Field)

	store.EXPECT().Revision(gomock.Any()).Return(int64(0), nil)
	store.EXPECT().LoadLedgerSnapshot(gomock.Any(), storage.SnapshotQuery{Kind: core.Expense, Year: 2025, IncludeForecast: true}).
		Return(storage.LedgerSnapshot{}, nil)
	sum, err := svc.Summary(ctx, services.SummaryQuery{Year: 2025, Kind: core.Expense, MaxDepth: 9, IncludeForecast: true})
	require.NoError(t, err)
	assert.Equal(t, 4, sum.MaxDepth, "depth is capped at the category bound")
	assert.Empty(t, sum.Nodes)
}

func TestSummaryService_StoreErrors(t *testing.T) {
	svc, store := newSummaryService(t)
	boom := errors.New("disk I/O error")

	store.EXPECT().Revision(gomock.Any()).Return(int64(0), nil)
	store.EXPECT().LoadLedgerSnapshot(gomock.Any(), gomock.Any()).Return(storage.LedgerSnapshot{}, boom)
	_, err := svc.Summary(context.Background(), services.SummaryQuery{Year: 2025})
	assert.ErrorIs(t, err, boom)

	store.EXPECT().DisableCategory(gomock.Any(), int64(42)).Return(core.Category{}, storage.ErrNotFound)
	_, err = svc.DisableCategory(context.Background(), 42)
	assert.ErrorIs(t, err, services.ErrCategoryNotFound)
}
