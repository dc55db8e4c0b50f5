package application

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/resobyte/ambar-hub-sub004/internal/domain"
	"github.com/resobyte/ambar-hub-sub004/internal/pkg/kafka"
	"github.com/resobyte/ambar-hub-sub004/internal/pkg/logging"
	"github.com/resobyte/ambar-hub-sub004/internal/pkg/metrics"
	"github.com/resobyte/ambar-hub-sub004/internal/pkg/outbox"
	"github.com/resobyte/ambar-hub-sub004/internal/pkg/resilience"
)

// SyncBatcherConfig holds configuration for the drain loop
type SyncBatcherConfig struct {
	Interval     time.Duration
	BatchSize    int
	MaxAttempts  int
	PushTimeout  time.Duration
	ProviderRate rate.Limit // pushes per second per provider
	ProviderBurst int
}

// DefaultSyncBatcherConfig returns sensible defaults
func DefaultSyncBatcherConfig() *SyncBatcherConfig {
	return &SyncBatcherConfig{
		Interval:      5 * time.Second,
		BatchSize:     200,
		MaxAttempts:   5,
		PushTimeout:   15 * time.Second,
		ProviderRate:  rate.Limit(2),
		ProviderBurst: 1,
	}
}

// SyncBatcher drains the stock update queue on a timer: claim rows
// atomically, coalesce by product, group per (store, provider), recompute
// sellable from the shelf ledger and push. It is safe to run on multiple
// worker instances because the claim stamps rows before any external call.
type SyncBatcher struct {
	queue      domain.StockUpdateQueueRepository
	shelves    domain.ShelfStockRepository
	products   domain.ProductStockRepository
	catalog    domain.ProductRepository
	syncLogs   domain.StockSyncLogRepository
	resolver   domain.StoreProviderResolver
	pusher     StockPusher
	outboxRepo outbox.Repository
	breaker    *resilience.CircuitBreaker
	config     *SyncBatcherConfig
	logger     *logging.Logger
	metrics    *metrics.Metrics

	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	running   bool
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

// NewSyncBatcher creates a new SyncBatcher
func NewSyncBatcher(
	queue domain.StockUpdateQueueRepository,
	shelves domain.ShelfStockRepository,
	products domain.ProductStockRepository,
	catalog domain.ProductRepository,
	syncLogs domain.StockSyncLogRepository,
	resolver domain.StoreProviderResolver,
	pusher StockPusher,
	outboxRepo outbox.Repository,
	breaker *resilience.CircuitBreaker,
	config *SyncBatcherConfig,
	logger *logging.Logger,
	m *metrics.Metrics,
) *SyncBatcher {
	if config == nil {
		config = DefaultSyncBatcherConfig()
	}
	return &SyncBatcher{
		queue:      queue,
		shelves:    shelves,
		products:   products,
		catalog:    catalog,
		syncLogs:   syncLogs,
		resolver:   resolver,
		pusher:     pusher,
		outboxRepo: outboxRepo,
		breaker:    breaker,
		config:     config,
		logger:     logger,
		metrics:    m,
		limiters:   make(map[string]*rate.Limiter),
		stopCh:     make(chan struct{}),
		stoppedCh:  make(chan struct{}),
	}
}

// Start starts the drain loop
func (b *SyncBatcher) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return fmt.Errorf("sync batcher already running")
	}
	b.running = true
	b.mu.Unlock()

	b.logger.Info("Starting stock sync batcher", "interval", b.config.Interval, "batchSize", b.config.BatchSize)
	go b.run(ctx)
	return nil
}

// Stop stops the drain loop
func (b *SyncBatcher) Stop() error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return fmt.Errorf("sync batcher not running")
	}
	b.mu.Unlock()

	close(b.stopCh)
	<-b.stoppedCh

	b.mu.Lock()
	b.running = false
	b.mu.Unlock()

	b.logger.Info("Stock sync batcher stopped")
	return nil
}

func (b *SyncBatcher) run(ctx context.Context) {
	defer close(b.stoppedCh)

	ticker := time.NewTicker(b.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.Drain(ctx)
		case <-b.stopCh:
			return
		case <-ctx.Done():
			b.logger.Info("Sync batcher context cancelled")
			return
		}
	}
}

// Drain runs one claim-coalesce-push cycle. Exported so tests and the
// worker's manual trigger can run a single cycle.
func (b *SyncBatcher) Drain(ctx context.Context) {
	batchID := uuid.New().String()
	entries, err := b.queue.ClaimBatch(ctx, batchID, b.config.BatchSize, b.config.MaxAttempts)
	if err != nil {
		b.logger.WithError(err).Error("Failed to claim queue batch")
		return
	}

	if b.metrics != nil {
		if pending, err := b.queue.CountPending(ctx); err == nil {
			b.metrics.SetQueueDepth(int(pending))
		}
	}

	if len(entries) == 0 {
		return
	}

	for storeID, group := range groupByStore(entries) {
		b.pushGroup(ctx, batchID, storeID, group)
	}
}

// storeGroup is the coalesced view of one store's claimed rows
type storeGroup struct {
	// entryIDs per product: all rows coalesced into that product's push item
	entriesByProduct map[string][]string
	productIDs       []string
}

func groupByStore(entries []*domain.StockUpdateEntry) map[string]*storeGroup {
	groups := make(map[string]*storeGroup)
	for _, e := range entries {
		g, ok := groups[e.StoreID]
		if !ok {
			g = &storeGroup{entriesByProduct: make(map[string][]string)}
			groups[e.StoreID] = g
		}
		if _, seen := g.entriesByProduct[e.ProductID]; !seen {
			g.productIDs = append(g.productIDs, e.ProductID)
		}
		g.entriesByProduct[e.ProductID] = append(g.entriesByProduct[e.ProductID], e.ID)
	}
	for _, g := range groups {
		sort.Strings(g.productIDs)
	}
	return groups
}

func (b *SyncBatcher) pushGroup(ctx context.Context, batchID, storeID string, group *storeGroup) {
	provider, err := b.resolver.ProviderFor(ctx, storeID)
	if err != nil {
		b.logger.WithError(err).Error("Failed to resolve provider", "storeId", storeID)
		b.releaseGroup(ctx, batchID, group, group.productIDs, true)
		return
	}

	maxBatch := b.pusher.MaxBatchSize(provider)
	if maxBatch <= 0 {
		maxBatch = len(group.productIDs)
	}

	for start := 0; start < len(group.productIDs); start += maxBatch {
		end := start + maxBatch
		if end > len(group.productIDs) {
			end = len(group.productIDs)
		}
		b.pushChunk(ctx, batchID, storeID, provider, group, group.productIDs[start:end])
	}
}

func (b *SyncBatcher) pushChunk(ctx context.Context, batchID, storeID, provider string, group *storeGroup, productIDs []string) {
	items, barcodeToProduct, err := b.buildItems(ctx, productIDs)
	if err != nil {
		b.logger.WithError(err).Error("Failed to build push items", "storeId", storeID)
		b.releaseGroup(ctx, batchID, group, productIDs, true)
		return
	}

	if !b.limiterFor(provider).Allow() {
		// local throttle: put the rows back untouched, next cycle retries
		b.logger.Warn("Provider rate limit reached locally", "provider", provider, "storeId", storeID)
		b.releaseGroup(ctx, batchID, group, productIDs, false)
		b.recordOutcome(ctx, batchID, storeID, provider, len(items), func(l *domain.StockSyncLog) {
			l.RateLimited(0, 0)
		})
		if b.metrics != nil {
			b.metrics.RecordSyncPush(provider, "rate_limited", 0)
		}
		return
	}

	payload, _ := json.Marshal(items)
	syncLog := domain.NewStockSyncLog(uuid.New().String(), batchID, storeID, provider, len(items))
	syncLog.RequestPayload = payload
	if err := b.syncLogs.Save(ctx, syncLog); err != nil {
		b.logger.WithError(err).Error("Failed to open sync log", "batchId", batchID)
	}

	start := time.Now()
	pushCtx, cancel := context.WithTimeout(ctx, b.config.PushTimeout)
	defer cancel()

	resultAny, err := b.breaker.Execute(pushCtx, func() (interface{}, error) {
		return b.pusher.Push(pushCtx, provider, storeID, items)
	})
	duration := time.Since(start)

	switch {
	case err != nil && stderrors.Is(err, domain.ErrRateLimited):
		syncLog.RateLimited(429, duration)
		b.releaseGroup(ctx, batchID, group, productIDs, false)
		if b.metrics != nil {
			b.metrics.RecordSyncPush(provider, "rate_limited", duration)
		}
		b.logger.Warn("Provider rate limited push", "provider", provider, "storeId", storeID, "batchId", batchID)

	case err != nil:
		syncLog.Fail(statusCodeOf(resultAny), err.Error(), duration)
		b.releaseGroup(ctx, batchID, group, productIDs, true)
		if b.metrics != nil {
			b.metrics.RecordSyncPush(provider, "failed", duration)
		}
		b.logger.WithError(err).Error("Stock push failed", "provider", provider, "storeId", storeID, "batchId", batchID)

	default:
		result := resultAny.(*StockPushResult)
		succeeded, failed := b.splitOutcome(group, productIDs, barcodeToProduct, result.FailedBarcodes)
		syncLog.Endpoint = result.Endpoint
		syncLog.Complete(len(items)-len(result.FailedBarcodes), len(result.FailedBarcodes), result.StatusCode, result.RawResponse, duration)

		if len(succeeded) > 0 {
			if err := b.queue.MarkProcessed(ctx, batchID, succeeded); err != nil {
				b.logger.WithError(err).Error("Failed to mark queue rows processed", "batchId", batchID)
			}
		}
		if len(failed) > 0 {
			// provider rejected these items inside an accepted batch; they
			// go back to PENDING for individual retry
			if err := b.queue.ReleaseEntries(ctx, batchID, failed, true); err != nil {
				b.logger.WithError(err).Error("Failed to release failed rows", "batchId", batchID)
			}
		}
		if b.metrics != nil {
			b.metrics.RecordSyncPush(provider, "success", duration)
		}
		b.logger.Info("Pushed stock batch",
			"provider", provider, "storeId", storeID, "batchId", batchID,
			"items", len(items), "failedItems", len(result.FailedBarcodes), "durationMs", duration.Milliseconds())
	}

	if err := b.syncLogs.Update(ctx, syncLog); err != nil {
		b.logger.WithError(err).Error("Failed to update sync log", "batchId", batchID)
	}
	b.publishOutcome(ctx, syncLog)
}

// buildItems recomputes each product's sellable quantity from the shelf
// ledger, persists the refreshed rollup, and maps products to barcodes.
func (b *SyncBatcher) buildItems(ctx context.Context, productIDs []string) ([]StockPushItem, map[string]string, error) {
	items := make([]StockPushItem, 0, len(productIDs))
	barcodeToProduct := make(map[string]string, len(productIDs))

	for _, productID := range productIDs {
		product, err := b.catalog.FindByID(ctx, productID)
		if err != nil {
			return nil, nil, err
		}
		if product == nil {
			return nil, nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, productID)
		}

		rows, err := b.shelves.FindByProduct(ctx, productID)
		if err != nil {
			return nil, nil, err
		}

		rollup, err := b.products.FindByProduct(ctx, productID)
		if err != nil {
			return nil, nil, err
		}
		if rollup == nil {
			rollup = &domain.ProductStock{ID: productID, ProductID: productID}
		}
		rollup.RecomputeFromLedger(rows)
		if err := b.products.Save(ctx, rollup); err != nil {
			return nil, nil, err
		}

		items = append(items, StockPushItem{
			Barcode:  product.Barcode,
			Quantity: rollup.SellableQuantity,
		})
		barcodeToProduct[product.Barcode] = productID
	}

	return items, barcodeToProduct, nil
}

// splitOutcome partitions a chunk's queue rows into processed and
// retryable sets based on the provider's per-item failures.
func (b *SyncBatcher) splitOutcome(group *storeGroup, productIDs []string, barcodeToProduct map[string]string, failedBarcodes []string) (succeeded, failed []string) {
	failedProducts := make(map[string]bool, len(failedBarcodes))
	for _, barcode := range failedBarcodes {
		if productID, ok := barcodeToProduct[barcode]; ok {
			failedProducts[productID] = true
		}
	}

	for _, productID := range productIDs {
		if failedProducts[productID] {
			failed = append(failed, group.entriesByProduct[productID]...)
		} else {
			succeeded = append(succeeded, group.entriesByProduct[productID]...)
		}
	}
	return succeeded, failed
}

func (b *SyncBatcher) releaseGroup(ctx context.Context, batchID string, group *storeGroup, productIDs []string, incrementAttempts bool) {
	entryIDs := make([]string, 0)
	for _, productID := range productIDs {
		entryIDs = append(entryIDs, group.entriesByProduct[productID]...)
	}
	if len(entryIDs) == 0 {
		return
	}
	if err := b.queue.ReleaseEntries(ctx, batchID, entryIDs, incrementAttempts); err != nil {
		b.logger.WithError(err).Error("Failed to release queue rows", "batchId", batchID)
	}
}

func (b *SyncBatcher) recordOutcome(ctx context.Context, batchID, storeID, provider string, totalItems int, apply func(*domain.StockSyncLog)) {
	syncLog := domain.NewStockSyncLog(uuid.New().String(), batchID, storeID, provider, totalItems)
	apply(syncLog)
	if err := b.syncLogs.Save(ctx, syncLog); err != nil {
		b.logger.WithError(err).Error("Failed to record sync outcome", "batchId", batchID)
	}
	b.publishOutcome(ctx, syncLog)
}

func (b *SyncBatcher) publishOutcome(ctx context.Context, syncLog *domain.StockSyncLog) {
	event, err := outbox.NewEvent(syncLog.BatchID, "StockSync", kafka.Topics.StockSync, &domain.StockSyncCompletedEvent{
		BatchID:      syncLog.BatchID,
		StoreID:      syncLog.StoreID,
		Provider:     syncLog.Provider,
		Status:       string(syncLog.SyncStatus),
		TotalItems:   syncLog.TotalItems,
		SuccessItems: syncLog.SuccessItems,
		FailedItems:  syncLog.FailedItems,
		CompletedAt:  time.Now(),
	})
	if err != nil {
		return
	}
	if err := b.outboxRepo.Save(ctx, event); err != nil {
		b.logger.WithError(err).Error("Failed to save sync event", "batchId", syncLog.BatchID)
	}
}

// Stuck returns pending rows that exhausted their attempts, for operators
func (b *SyncBatcher) Stuck(ctx context.Context, limit int) ([]*domain.StockUpdateEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	return b.queue.FindStuck(ctx, b.config.MaxAttempts, limit)
}

// RecentLogs returns recent push batch outcomes
func (b *SyncBatcher) RecentLogs(ctx context.Context, limit int) ([]*SyncLogDTO, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	logs, err := b.syncLogs.FindRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load sync logs: %w", err)
	}
	return ToSyncLogDTOs(logs), nil
}

func (b *SyncBatcher) limiterFor(provider string) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()
	limiter, ok := b.limiters[provider]
	if !ok {
		limiter = rate.NewLimiter(b.config.ProviderRate, b.config.ProviderBurst)
		b.limiters[provider] = limiter
	}
	return limiter
}

func statusCodeOf(resultAny interface{}) int {
	if result, ok := resultAny.(*StockPushResult); ok && result != nil {
		return result.StatusCode
	}
	return 0
}
