package application

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/resobyte/ambar-hub-sub004/internal/domain"
	"github.com/resobyte/ambar-hub-sub004/internal/pkg/logging"
	"github.com/resobyte/ambar-hub-sub004/internal/pkg/outbox"
)

func testLogger() *logging.Logger {
	cfg := logging.DefaultConfig("ambar-hub-test")
	cfg.Level = logging.LevelError
	return logging.New(cfg)
}

// snapshotter lets the fake transaction runner roll fakes back on error
type snapshotter interface {
	snapshot() func()
}

// fakeTx mimics transactional semantics over the in-memory fakes: on a
// callback error every registered store is restored to its pre-call state.
type fakeTx struct {
	stores []snapshotter
}

func (t *fakeTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	restores := make([]func(), len(t.stores))
	for i, s := range t.stores {
		restores[i] = s.snapshot()
	}
	if err := fn(ctx); err != nil {
		for _, restore := range restores {
			restore()
		}
		return err
	}
	return nil
}

// fakeShelfRepo is an in-memory shelf ledger
type fakeShelfRepo struct {
	mu   sync.Mutex
	rows map[string]*domain.ShelfStock // shelfID:productID
}

func newFakeShelfRepo() *fakeShelfRepo {
	return &fakeShelfRepo{rows: make(map[string]*domain.ShelfStock)}
}

func (r *fakeShelfRepo) put(shelfID, productID string, qty, sortOrder int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := shelfID + ":" + productID
	r.rows[key] = domain.NewShelfStock(key, shelfID, productID, qty, sortOrder)
}

func (r *fakeShelfRepo) get(shelfID, productID string) *domain.ShelfStock {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[shelfID+":"+productID]
}

func (r *fakeShelfRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	saved := make(map[string]*domain.ShelfStock, len(r.rows))
	for k, v := range r.rows {
		clone := *v
		saved[k] = &clone
	}
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.rows = saved
	}
}

func (r *fakeShelfRepo) FindByShelfAndProduct(_ context.Context, shelfID, productID string) (*domain.ShelfStock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[shelfID+":"+productID]
	if !ok || row.IsDeleted() {
		return nil, nil
	}
	clone := *row
	return &clone, nil
}

func (r *fakeShelfRepo) FindByProduct(_ context.Context, productID string) ([]*domain.ShelfStock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := make([]*domain.ShelfStock, 0)
	for _, row := range r.rows {
		if row.ProductID == productID && !row.IsDeleted() {
			clone := *row
			rows = append(rows, &clone)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].SortOrder != rows[j].SortOrder {
			return rows[i].SortOrder < rows[j].SortOrder
		}
		return rows[i].ShelfID < rows[j].ShelfID
	})
	return rows, nil
}

func (r *fakeShelfRepo) Save(_ context.Context, stock *domain.ShelfStock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stock.ID == "" {
		stock.ID = stock.ShelfID + ":" + stock.ProductID
	}
	clone := *stock
	r.rows[stock.ID] = &clone
	return nil
}

func (r *fakeShelfRepo) Reserve(_ context.Context, shelfID, productID string, qty int) (*domain.ShelfStock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[shelfID+":"+productID]
	if !ok || row.IsDeleted() {
		return nil, domain.ErrShelfStockNotFound
	}
	if err := row.Reserve(qty); err != nil {
		return nil, err
	}
	clone := *row
	return &clone, nil
}

func (r *fakeShelfRepo) Release(_ context.Context, shelfID, productID string, qty int) (*domain.ShelfStock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[shelfID+":"+productID]
	if !ok || row.IsDeleted() {
		return nil, domain.ErrShelfStockNotFound
	}
	if err := row.Release(qty); err != nil {
		return nil, err
	}
	clone := *row
	return &clone, nil
}

func (r *fakeShelfRepo) Decrement(_ context.Context, shelfID, productID string, qty int) (*domain.ShelfStock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[shelfID+":"+productID]
	if !ok || row.IsDeleted() {
		return nil, domain.ErrShelfStockNotFound
	}
	if err := row.Decrement(qty); err != nil {
		return nil, err
	}
	clone := *row
	return &clone, nil
}

func (r *fakeShelfRepo) Increment(_ context.Context, shelfID, productID string, qty int) (*domain.ShelfStock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := shelfID + ":" + productID
	row, ok := r.rows[key]
	if !ok || row.IsDeleted() {
		row = domain.NewShelfStock(key, shelfID, productID, 0, 0)
		r.rows[key] = row
	}
	if err := row.Increment(qty); err != nil {
		return nil, err
	}
	clone := *row
	return &clone, nil
}

func (r *fakeShelfRepo) SoftDelete(_ context.Context, shelfID, productID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[shelfID+":"+productID]
	if !ok || row.IsDeleted() {
		return domain.ErrShelfStockNotFound
	}
	now := row.UpdatedAt
	row.DeletedAt = &now
	return nil
}

// fakeMovementRepo records inserted movements
type fakeMovementRepo struct {
	mu        sync.Mutex
	movements []*domain.StockMovement
}

func (r *fakeMovementRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	saved := len(r.movements)
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.movements = r.movements[:saved]
	}
}

func (r *fakeMovementRepo) Insert(_ context.Context, movement *domain.StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movements = append(r.movements, movement)
	return nil
}

func (r *fakeMovementRepo) InsertAll(ctx context.Context, movements []*domain.StockMovement) error {
	for _, m := range movements {
		if err := r.Insert(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeMovementRepo) byType(movementType domain.MovementType) []*domain.StockMovement {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.StockMovement, 0)
	for _, m := range r.movements {
		if m.Type == movementType {
			out = append(out, m)
		}
	}
	return out
}

func (r *fakeMovementRepo) FindByProduct(_ context.Context, productID string, limit, offset int) ([]*domain.StockMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.StockMovement, 0)
	for _, m := range r.movements {
		if m.ProductID == productID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMovementRepo) FindByShelf(_ context.Context, shelfID string, limit, offset int) ([]*domain.StockMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.StockMovement, 0)
	for _, m := range r.movements {
		if m.ShelfID == shelfID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMovementRepo) FindByOrder(_ context.Context, orderID string) ([]*domain.StockMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.StockMovement, 0)
	for _, m := range r.movements {
		if m.OrderID == orderID {
			out = append(out, m)
		}
	}
	return out, nil
}

// fakeProductStockRepo is an in-memory rollup store
type fakeProductStockRepo struct {
	mu   sync.Mutex
	rows map[string]*domain.ProductStock
}

func newFakeProductStockRepo() *fakeProductStockRepo {
	return &fakeProductStockRepo{rows: make(map[string]*domain.ProductStock)}
}

func (r *fakeProductStockRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	saved := make(map[string]*domain.ProductStock, len(r.rows))
	for k, v := range r.rows {
		clone := *v
		clone.StoreStocks = append([]domain.StoreStock(nil), v.StoreStocks...)
		saved[k] = &clone
	}
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.rows = saved
	}
}

func (r *fakeProductStockRepo) FindByProduct(_ context.Context, productID string) (*domain.ProductStock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[productID]
	if !ok {
		return nil, nil
	}
	clone := *row
	clone.StoreStocks = append([]domain.StoreStock(nil), row.StoreStocks...)
	return &clone, nil
}

func (r *fakeProductStockRepo) ApplyDelta(_ context.Context, productID, storeID string, delta domain.StockDelta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[productID]
	if !ok {
		row = &domain.ProductStock{ID: productID, ProductID: productID}
		r.rows[productID] = row
	}
	row.Apply(delta)
	if storeID != "" {
		row.ApplyStore(storeID, delta)
	}
	return nil
}

func (r *fakeProductStockRepo) Save(_ context.Context, stock *domain.ProductStock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stock.ID == "" {
		stock.ID = stock.ProductID
	}
	clone := *stock
	clone.StoreStocks = append([]domain.StoreStock(nil), stock.StoreStocks...)
	r.rows[stock.ProductID] = &clone
	return nil
}

// fakeCatalogRepo is an in-memory product catalog
type fakeCatalogRepo struct {
	products map[string]*domain.Product // by id
}

func newFakeCatalogRepo(products ...*domain.Product) *fakeCatalogRepo {
	byID := make(map[string]*domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &fakeCatalogRepo{products: byID}
}

func (r *fakeCatalogRepo) FindByID(_ context.Context, id string) (*domain.Product, error) {
	return r.products[id], nil
}

func (r *fakeCatalogRepo) FindByBarcode(_ context.Context, barcode string) (*domain.Product, error) {
	for _, p := range r.products {
		if p.Barcode == barcode {
			return p, nil
		}
	}
	return nil, nil
}

func (r *fakeCatalogRepo) FindByBarcodes(_ context.Context, barcodes []string) (map[string]*domain.Product, error) {
	out := make(map[string]*domain.Product)
	for _, p := range r.products {
		for _, barcode := range barcodes {
			if p.Barcode == barcode {
				out[barcode] = p
			}
		}
	}
	return out, nil
}

func (r *fakeCatalogRepo) Save(_ context.Context, product *domain.Product) error {
	r.products[product.ID] = product
	return nil
}

// fakeOrderRepo is an in-memory order store with a unique packageId
type fakeOrderRepo struct {
	mu        sync.Mutex
	byID      map[string]*domain.Order
	byPackage map[string]string
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{byID: make(map[string]*domain.Order), byPackage: make(map[string]string)}
}

func (r *fakeOrderRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	savedByID := make(map[string]*domain.Order, len(r.byID))
	for k, v := range r.byID {
		clone := *v
		savedByID[k] = &clone
	}
	savedByPackage := make(map[string]string, len(r.byPackage))
	for k, v := range r.byPackage {
		savedByPackage[k] = v
	}
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.byID = savedByID
		r.byPackage = savedByPackage
	}
}

func (r *fakeOrderRepo) FindByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	clone := *order
	clone.Items = append([]domain.OrderItem(nil), order.Items...)
	return &clone, nil
}

func (r *fakeOrderRepo) FindByPackageID(_ context.Context, packageID string) (*domain.Order, error) {
	r.mu.Lock()
	id, ok := r.byPackage[packageID]
	r.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return r.FindByID(context.Background(), id)
}

func (r *fakeOrderRepo) Save(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byPackage[order.PackageID]; exists {
		return domain.ErrDuplicatePackage
	}
	clone := *order
	clone.Items = append([]domain.OrderItem(nil), order.Items...)
	r.byID[order.ID] = &clone
	r.byPackage[order.PackageID] = order.ID
	return nil
}

func (r *fakeOrderRepo) Update(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[order.ID]; !ok {
		return domain.ErrOrderNotFound
	}
	clone := *order
	clone.Items = append([]domain.OrderItem(nil), order.Items...)
	r.byID[order.ID] = &clone
	return nil
}

// fakeQueueRepo is an in-memory stock update queue
type fakeQueueRepo struct {
	mu      sync.Mutex
	entries []*domain.StockUpdateEntry
}

func (r *fakeQueueRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	saved := make([]*domain.StockUpdateEntry, len(r.entries))
	for i, e := range r.entries {
		clone := *e
		saved[i] = &clone
	}
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.entries = saved
	}
}

func (r *fakeQueueRepo) Enqueue(_ context.Context, entry *domain.StockUpdateEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeQueueRepo) EnqueueAll(ctx context.Context, entries []*domain.StockUpdateEntry) error {
	for _, e := range entries {
		if err := r.Enqueue(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeQueueRepo) ClaimBatch(_ context.Context, batchID string, limit, maxAttempts int) ([]*domain.StockUpdateEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	candidates := make([]*domain.StockUpdateEntry, 0)
	for _, e := range r.entries {
		if e.IsPending() && e.Attempts < maxAttempts {
			candidates = append(candidates, e)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority > candidates[j].Priority
		}
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	claimed := make([]*domain.StockUpdateEntry, 0, len(candidates))
	for _, e := range candidates {
		e.Status = domain.QueueProcessing
		e.BatchID = batchID
		clone := *e
		claimed = append(claimed, &clone)
	}
	return claimed, nil
}

func (r *fakeQueueRepo) MarkProcessed(_ context.Context, batchID string, entryIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := toSet(entryIDs)
	for _, e := range r.entries {
		if e.BatchID == batchID && ids[e.ID] {
			e.Status = domain.QueueProcessed
		}
	}
	return nil
}

func (r *fakeQueueRepo) ReleaseBatch(_ context.Context, batchID string, incrementAttempts bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.BatchID == batchID && e.Status == domain.QueueProcessing {
			e.Status = domain.QueuePending
			e.BatchID = ""
			if incrementAttempts {
				e.Attempts++
			}
		}
	}
	return nil
}

func (r *fakeQueueRepo) ReleaseEntries(_ context.Context, batchID string, entryIDs []string, incrementAttempts bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := toSet(entryIDs)
	for _, e := range r.entries {
		if e.BatchID == batchID && e.Status == domain.QueueProcessing && ids[e.ID] {
			e.Status = domain.QueuePending
			e.BatchID = ""
			if incrementAttempts {
				e.Attempts++
			}
		}
	}
	return nil
}

func (r *fakeQueueRepo) CountPending(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, e := range r.entries {
		if e.IsPending() {
			count++
		}
	}
	return count, nil
}

func (r *fakeQueueRepo) FindStuck(_ context.Context, maxAttempts, limit int) ([]*domain.StockUpdateEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.StockUpdateEntry, 0)
	for _, e := range r.entries {
		if e.IsPending() && e.Attempts >= maxAttempts {
			out = append(out, e)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeQueueRepo) SoftDelete(_ context.Context, entryID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.ID == entryID && e.DeletedAt == nil {
			now := e.CreatedAt
			e.DeletedAt = &now
			return nil
		}
	}
	return domain.ErrNothingToClaim
}

func (r *fakeQueueRepo) byStatus(status domain.QueueStatus) []*domain.StockUpdateEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.StockUpdateEntry, 0)
	for _, e := range r.entries {
		if e.Status == status {
			out = append(out, e)
		}
	}
	return out
}

// fakeFaultyRepo is an in-memory quarantine with a unique packageId
type fakeFaultyRepo struct {
	mu        sync.Mutex
	byID      map[string]*domain.FaultyOrder
	byPackage map[string]string
}

func newFakeFaultyRepo() *fakeFaultyRepo {
	return &fakeFaultyRepo{byID: make(map[string]*domain.FaultyOrder), byPackage: make(map[string]string)}
}

func (r *fakeFaultyRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	savedByID := make(map[string]*domain.FaultyOrder, len(r.byID))
	for k, v := range r.byID {
		clone := *v
		savedByID[k] = &clone
	}
	savedByPackage := make(map[string]string, len(r.byPackage))
	for k, v := range r.byPackage {
		savedByPackage[k] = v
	}
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.byID = savedByID
		r.byPackage = savedByPackage
	}
}

func (r *fakeFaultyRepo) Insert(_ context.Context, faulty *domain.FaultyOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byPackage[faulty.PackageID]; exists {
		return domain.ErrDuplicatePackage
	}
	clone := *faulty
	r.byID[faulty.ID] = &clone
	r.byPackage[faulty.PackageID] = faulty.ID
	return nil
}

func (r *fakeFaultyRepo) FindByID(_ context.Context, id string) (*domain.FaultyOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	clone := *row
	return &clone, nil
}

func (r *fakeFaultyRepo) FindByPackageID(_ context.Context, packageID string) (*domain.FaultyOrder, error) {
	r.mu.Lock()
	id, ok := r.byPackage[packageID]
	r.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return r.FindByID(context.Background(), id)
}

func (r *fakeFaultyRepo) FindAll(_ context.Context, limit, offset int) ([]*domain.FaultyOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.FaultyOrder, 0, len(r.byID))
	for _, row := range r.byID {
		clone := *row
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeFaultyRepo) Update(_ context.Context, faulty *domain.FaultyOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[faulty.ID]; !ok {
		return domain.ErrFaultyOrderNotFound
	}
	clone := *faulty
	r.byID[faulty.ID] = &clone
	return nil
}

func (r *fakeFaultyRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.byID[id]
	if !ok {
		return domain.ErrFaultyOrderNotFound
	}
	delete(r.byID, id)
	delete(r.byPackage, row.PackageID)
	return nil
}

// fakeSyncLogRepo records push outcomes
type fakeSyncLogRepo struct {
	mu   sync.Mutex
	logs []*domain.StockSyncLog
}

func (r *fakeSyncLogRepo) Save(_ context.Context, log *domain.StockSyncLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *log
	r.logs = append(r.logs, &clone)
	return nil
}

func (r *fakeSyncLogRepo) Update(_ context.Context, log *domain.StockSyncLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.logs {
		if existing.ID == log.ID {
			clone := *log
			r.logs[i] = &clone
			return nil
		}
	}
	return fmt.Errorf("sync log %s not found", log.ID)
}

func (r *fakeSyncLogRepo) FindByBatchID(_ context.Context, batchID string) (*domain.StockSyncLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.logs) - 1; i >= 0; i-- {
		if r.logs[i].BatchID == batchID {
			clone := *r.logs[i]
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *fakeSyncLogRepo) FindRecent(_ context.Context, limit int) ([]*domain.StockSyncLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.StockSyncLog, 0, limit)
	for i := len(r.logs) - 1; i >= 0 && len(out) < limit; i-- {
		clone := *r.logs[i]
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeSyncLogRepo) last() *domain.StockSyncLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.logs) == 0 {
		return nil
	}
	return r.logs[len(r.logs)-1]
}

// fakeOutboxRepo collects saved events
type fakeOutboxRepo struct {
	mu     sync.Mutex
	events []*outbox.Event
}

func (r *fakeOutboxRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	saved := len(r.events)
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = r.events[:saved]
	}
}

func (r *fakeOutboxRepo) Save(_ context.Context, event *outbox.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *fakeOutboxRepo) SaveAll(ctx context.Context, events []*outbox.Event) error {
	for _, e := range events {
		if err := r.Save(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *fakeOutboxRepo) FindUnpublished(_ context.Context, limit int) ([]*outbox.Event, error) {
	return nil, nil
}

func (r *fakeOutboxRepo) MarkPublished(_ context.Context, eventID string) error { return nil }

func (r *fakeOutboxRepo) IncrementRetry(_ context.Context, eventID, errorMsg string) error {
	return nil
}

func (r *fakeOutboxRepo) eventTypes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, len(r.events))
	for i, e := range r.events {
		types[i] = e.EventType
	}
	return types
}

// fakeWaybillRepo allocates numbers from an in-memory per-year counter
type fakeWaybillRepo struct {
	mu       sync.Mutex
	seqs     map[int]int64
	waybills map[string]*domain.Waybill
}

func newFakeWaybillRepo() *fakeWaybillRepo {
	return &fakeWaybillRepo{seqs: make(map[int]int64), waybills: make(map[string]*domain.Waybill)}
}

func (r *fakeWaybillRepo) NextNumber(_ context.Context, year int) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seqs[year]++
	return domain.FormatWaybillNumber(year, r.seqs[year]), nil
}

func (r *fakeWaybillRepo) Save(_ context.Context, waybill *domain.Waybill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.waybills[waybill.Number]; exists {
		return fmt.Errorf("duplicate waybill number %s", waybill.Number)
	}
	r.waybills[waybill.Number] = waybill
	return nil
}

func (r *fakeWaybillRepo) FindByNumber(_ context.Context, number string) (*domain.Waybill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.waybills[number], nil
}

// fakeResolver maps every store to one provider
type fakeResolver struct {
	provider string
	err      error
}

func (r *fakeResolver) ProviderFor(_ context.Context, storeID string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return r.provider, nil
}

// fakePusher records pushes and answers from a scripted function
type fakePusher struct {
	mu        sync.Mutex
	pushes    [][]StockPushItem
	pushFn    func(items []StockPushItem) (*StockPushResult, error)
	batchSize int
}

func (p *fakePusher) Push(_ context.Context, provider, storeID string, items []StockPushItem) (*StockPushResult, error) {
	p.mu.Lock()
	p.pushes = append(p.pushes, items)
	p.mu.Unlock()
	if p.pushFn != nil {
		return p.pushFn(items)
	}
	return &StockPushResult{StatusCode: 200}, nil
}

func (p *fakePusher) MaxBatchSize(provider string) int {
	if p.batchSize > 0 {
		return p.batchSize
	}
	return 100
}

func (p *fakePusher) pushCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pushes)
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
