package application

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/resobyte/ambar-hub-sub004/internal/domain"
	"github.com/resobyte/ambar-hub-sub004/internal/pkg/resilience"
)

type batcherFixture struct {
	batcher  *SyncBatcher
	queue    *fakeQueueRepo
	shelves  *fakeShelfRepo
	products *fakeProductStockRepo
	catalog  *fakeCatalogRepo
	syncLogs *fakeSyncLogRepo
	pusher   *fakePusher
	outbox   *fakeOutboxRepo
}

func testBatcherConfig() *SyncBatcherConfig {
	cfg := DefaultSyncBatcherConfig()
	cfg.ProviderRate = rate.Inf
	cfg.ProviderBurst = 1
	return cfg
}

func newBatcherFixture(cfg *SyncBatcherConfig, resolver domain.StoreProviderResolver, products ...*domain.Product) *batcherFixture {
	f := &batcherFixture{
		queue:    &fakeQueueRepo{},
		shelves:  newFakeShelfRepo(),
		products: newFakeProductStockRepo(),
		catalog:  newFakeCatalogRepo(products...),
		syncLogs: &fakeSyncLogRepo{},
		pusher:   &fakePusher{},
		outbox:   &fakeOutboxRepo{},
	}
	if resolver == nil {
		resolver = &fakeResolver{provider: "trendyol"}
	}
	breaker := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("marketplace-push-test"), testLogger().Logger)
	f.batcher = NewSyncBatcher(
		f.queue, f.shelves, f.products, f.catalog, f.syncLogs,
		resolver, f.pusher, f.outbox, breaker, cfg, testLogger(), nil,
	)
	return f
}

func (f *batcherFixture) enqueue(t *testing.T, id, productID string, priority int) {
	t.Helper()
	entry := domain.NewStockUpdateEntry(id, productID, "S-1", domain.ReasonStockAdded, priority)
	require.NoError(t, f.queue.Enqueue(context.Background(), entry))
}

func TestDrainCoalescesRowsPerProduct(t *testing.T) {
	f := newBatcherFixture(testBatcherConfig(), nil,
		simpleProduct("P-1", "B1"), simpleProduct("P-2", "B2"))
	f.shelves.put("A-1", "P-1", 7, 0)
	require.NoError(t, f.shelves.get("A-1", "P-1").Reserve(2))
	f.shelves.put("A-2", "P-2", 3, 0)

	// three bursts for P-1 must collapse into one push item
	f.enqueue(t, "q1", "P-1", domain.PriorityHigh)
	f.enqueue(t, "q2", "P-1", domain.PriorityNormal)
	f.enqueue(t, "q3", "P-1", domain.PriorityLow)
	f.enqueue(t, "q4", "P-2", domain.PriorityNormal)

	f.batcher.Drain(context.Background())

	require.Equal(t, 1, f.pusher.pushCount())
	items := f.pusher.pushes[0]
	require.Len(t, items, 2)
	assert.Equal(t, StockPushItem{Barcode: "B1", Quantity: 5}, items[0])
	assert.Equal(t, StockPushItem{Barcode: "B2", Quantity: 3}, items[1])

	assert.Len(t, f.queue.byStatus(domain.QueueProcessed), 4)
	assert.Len(t, f.queue.byStatus(domain.QueuePending), 0)

	// the rollup was recomputed from the ledger during the push
	rollup, err := f.products.FindByProduct(context.Background(), "P-1")
	require.NoError(t, err)
	require.NotNil(t, rollup)
	assert.Equal(t, 5, rollup.SellableQuantity)

	last := f.syncLogs.last()
	require.NotNil(t, last)
	assert.Equal(t, domain.SyncSuccess, last.SyncStatus)
	assert.Equal(t, 2, last.TotalItems)
	assert.Equal(t, 2, last.SuccessItems)
}

func TestDrainClaimsByPriority(t *testing.T) {
	cfg := testBatcherConfig()
	cfg.BatchSize = 1
	f := newBatcherFixture(cfg, nil,
		simpleProduct("P-1", "B1"), simpleProduct("P-2", "B2"))
	f.shelves.put("A-1", "P-1", 1, 0)
	f.shelves.put("A-2", "P-2", 1, 0)

	f.enqueue(t, "low", "P-1", domain.PriorityLow)
	f.enqueue(t, "high", "P-2", domain.PriorityHigh)

	f.batcher.Drain(context.Background())

	require.Equal(t, 1, f.pusher.pushCount())
	require.Len(t, f.pusher.pushes[0], 1)
	assert.Equal(t, "B2", f.pusher.pushes[0][0].Barcode)

	pending := f.queue.byStatus(domain.QueuePending)
	require.Len(t, pending, 1)
	assert.Equal(t, "low", pending[0].ID)
}

func TestDrainProviderRateLimitKeepsAttempts(t *testing.T) {
	f := newBatcherFixture(testBatcherConfig(), nil, simpleProduct("P-1", "B1"))
	f.shelves.put("A-1", "P-1", 5, 0)
	f.enqueue(t, "q1", "P-1", domain.PriorityNormal)

	f.pusher.pushFn = func(items []StockPushItem) (*StockPushResult, error) {
		return &StockPushResult{StatusCode: 429},
			fmt.Errorf("%w: provider trendyol", domain.ErrRateLimited)
	}

	f.batcher.Drain(context.Background())

	pending := f.queue.byStatus(domain.QueuePending)
	require.Len(t, pending, 1)
	assert.Equal(t, 0, pending[0].Attempts)
	assert.Empty(t, pending[0].BatchID)

	last := f.syncLogs.last()
	require.NotNil(t, last)
	assert.Equal(t, domain.SyncRateLimited, last.SyncStatus)
	assert.Equal(t, 429, last.StatusCode)
}

func TestDrainLocalThrottleSkipsPush(t *testing.T) {
	cfg := testBatcherConfig()
	cfg.ProviderRate = 0
	cfg.ProviderBurst = 0
	f := newBatcherFixture(cfg, nil, simpleProduct("P-1", "B1"))
	f.shelves.put("A-1", "P-1", 5, 0)
	f.enqueue(t, "q1", "P-1", domain.PriorityNormal)

	f.batcher.Drain(context.Background())

	assert.Equal(t, 0, f.pusher.pushCount())

	pending := f.queue.byStatus(domain.QueuePending)
	require.Len(t, pending, 1)
	assert.Equal(t, 0, pending[0].Attempts)

	last := f.syncLogs.last()
	require.NotNil(t, last)
	assert.Equal(t, domain.SyncRateLimited, last.SyncStatus)
}

func TestDrainHardFailureBurnsAttempt(t *testing.T) {
	f := newBatcherFixture(testBatcherConfig(), nil, simpleProduct("P-1", "B1"))
	f.shelves.put("A-1", "P-1", 5, 0)
	f.enqueue(t, "q1", "P-1", domain.PriorityNormal)

	f.pusher.pushFn = func(items []StockPushItem) (*StockPushResult, error) {
		return nil, errors.New("connection reset")
	}

	f.batcher.Drain(context.Background())

	pending := f.queue.byStatus(domain.QueuePending)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Attempts)

	last := f.syncLogs.last()
	require.NotNil(t, last)
	assert.Equal(t, domain.SyncFailed, last.SyncStatus)
	assert.Contains(t, last.ErrorMessage, "connection reset")
}

func TestDrainPerItemFailuresReleaseOnlyFailedRows(t *testing.T) {
	f := newBatcherFixture(testBatcherConfig(), nil,
		simpleProduct("P-1", "B1"), simpleProduct("P-2", "B2"))
	f.shelves.put("A-1", "P-1", 5, 0)
	f.shelves.put("A-2", "P-2", 5, 0)
	f.enqueue(t, "q1", "P-1", domain.PriorityNormal)
	f.enqueue(t, "q2", "P-2", domain.PriorityNormal)

	f.pusher.pushFn = func(items []StockPushItem) (*StockPushResult, error) {
		return &StockPushResult{StatusCode: 200, FailedBarcodes: []string{"B2"}}, nil
	}

	f.batcher.Drain(context.Background())

	processed := f.queue.byStatus(domain.QueueProcessed)
	require.Len(t, processed, 1)
	assert.Equal(t, "q1", processed[0].ID)

	pending := f.queue.byStatus(domain.QueuePending)
	require.Len(t, pending, 1)
	assert.Equal(t, "q2", pending[0].ID)
	assert.Equal(t, 1, pending[0].Attempts)

	last := f.syncLogs.last()
	require.NotNil(t, last)
	assert.Equal(t, domain.SyncSuccess, last.SyncStatus)
	assert.Equal(t, 1, last.SuccessItems)
	assert.Equal(t, 1, last.FailedItems)
}

func TestDrainSkipsExhaustedRows(t *testing.T) {
	cfg := testBatcherConfig()
	f := newBatcherFixture(cfg, nil, simpleProduct("P-1", "B1"))
	f.shelves.put("A-1", "P-1", 5, 0)

	entry := domain.NewStockUpdateEntry("stuck", "P-1", "S-1", domain.ReasonStockAdded, domain.PriorityNormal)
	entry.Attempts = cfg.MaxAttempts
	require.NoError(t, f.queue.Enqueue(context.Background(), entry))

	f.batcher.Drain(context.Background())
	assert.Equal(t, 0, f.pusher.pushCount())

	stuck, err := f.batcher.Stuck(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, stuck, 1)
	assert.Equal(t, "stuck", stuck[0].ID)
}

func TestDrainUnresolvableStoreReleasesRows(t *testing.T) {
	f := newBatcherFixture(testBatcherConfig(),
		&fakeResolver{err: errors.New("store has no provider")},
		simpleProduct("P-1", "B1"))
	f.shelves.put("A-1", "P-1", 5, 0)
	f.enqueue(t, "q1", "P-1", domain.PriorityNormal)

	f.batcher.Drain(context.Background())

	assert.Equal(t, 0, f.pusher.pushCount())
	pending := f.queue.byStatus(domain.QueuePending)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Attempts)
}
