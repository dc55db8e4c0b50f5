package domain

import (
	"context"
	"time"
)

// TxRunner executes fn atomically; any error aborts every write made
// through repositories using the same context.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ShelfStockRepository persists the per-(shelf, product) ledger. The four
// guarded mutations apply atomic conditional updates and return the row
// state after the update; a guard miss returns ErrInsufficientStock.
type ShelfStockRepository interface {
	FindByShelfAndProduct(ctx context.Context, shelfID, productID string) (*ShelfStock, error)
	// FindByProduct returns non-deleted rows ordered by sortOrder then shelfId
	FindByProduct(ctx context.Context, productID string) ([]*ShelfStock, error)
	Save(ctx context.Context, stock *ShelfStock) error
	// Reserve atomically earmarks qty where quantity-reserved >= qty
	Reserve(ctx context.Context, shelfID, productID string, qty int) (*ShelfStock, error)
	// Release atomically returns qty reserved units, zero-flooring reserved
	Release(ctx context.Context, shelfID, productID string, qty int) (*ShelfStock, error)
	// Decrement atomically removes qty where quantity >= qty, zero-flooring reserved
	Decrement(ctx context.Context, shelfID, productID string, qty int) (*ShelfStock, error)
	// Increment atomically adds qty, upserting the row if absent
	Increment(ctx context.Context, shelfID, productID string, qty int) (*ShelfStock, error)
	SoftDelete(ctx context.Context, shelfID, productID string) error
}

// StockMovementRepository is append-only
type StockMovementRepository interface {
	Insert(ctx context.Context, movement *StockMovement) error
	InsertAll(ctx context.Context, movements []*StockMovement) error
	FindByProduct(ctx context.Context, productID string, limit, offset int) ([]*StockMovement, error)
	FindByShelf(ctx context.Context, shelfID string, limit, offset int) ([]*StockMovement, error)
	FindByOrder(ctx context.Context, orderID string) ([]*StockMovement, error)
}

// ProductStockRepository persists the denormalized rollup
type ProductStockRepository interface {
	FindByProduct(ctx context.Context, productID string) (*ProductStock, error)
	// ApplyDelta atomically adjusts the product and store counters, upserting
	ApplyDelta(ctx context.Context, productID, storeID string, delta StockDelta) error
	Save(ctx context.Context, stock *ProductStock) error
}

// ProductRepository resolves marketplace identities to products
type ProductRepository interface {
	FindByID(ctx context.Context, id string) (*Product, error)
	FindByBarcode(ctx context.Context, barcode string) (*Product, error)
	FindByBarcodes(ctx context.Context, barcodes []string) (map[string]*Product, error)
	Save(ctx context.Context, product *Product) error
}

// OrderRepository persists orders with their items
type OrderRepository interface {
	FindByID(ctx context.Context, id string) (*Order, error)
	FindByPackageID(ctx context.Context, packageID string) (*Order, error)
	Save(ctx context.Context, order *Order) error
	Update(ctx context.Context, order *Order) error
}

// StockUpdateQueueRepository is the durable recompute-and-push queue.
// ClaimBatch is the atomic "select and mark PROCESSING" step that makes
// concurrent drain workers safe.
type StockUpdateQueueRepository interface {
	Enqueue(ctx context.Context, entry *StockUpdateEntry) error
	EnqueueAll(ctx context.Context, entries []*StockUpdateEntry) error
	// ClaimBatch atomically stamps up to limit pending rows with batchID and
	// PROCESSING, ordered by priority desc then createdAt asc, and returns
	// the claimed rows. Racing workers lose rows silently.
	ClaimBatch(ctx context.Context, batchID string, limit, maxAttempts int) ([]*StockUpdateEntry, error)
	// MarkProcessed stamps processedAt on the given rows of a batch
	MarkProcessed(ctx context.Context, batchID string, entryIDs []string) error
	// ReleaseBatch returns a batch's unprocessed rows to PENDING;
	// incrementAttempts is false for rate-limit outcomes
	ReleaseBatch(ctx context.Context, batchID string, incrementAttempts bool) error
	// ReleaseEntries returns specific rows of a batch to PENDING (per-item
	// failures inside an otherwise successful push)
	ReleaseEntries(ctx context.Context, batchID string, entryIDs []string, incrementAttempts bool) error
	CountPending(ctx context.Context) (int64, error)
	// FindStuck returns pending rows whose attempts reached maxAttempts
	FindStuck(ctx context.Context, maxAttempts, limit int) ([]*StockUpdateEntry, error)
	SoftDelete(ctx context.Context, entryID string) error
}

// StockSyncLogRepository records push batch outcomes
type StockSyncLogRepository interface {
	Save(ctx context.Context, log *StockSyncLog) error
	Update(ctx context.Context, log *StockSyncLog) error
	FindByBatchID(ctx context.Context, batchID string) (*StockSyncLog, error)
	FindRecent(ctx context.Context, limit int) ([]*StockSyncLog, error)
}

// FaultyOrderRepository is the quarantine table; Insert must surface
// ErrDuplicatePackage on a packageId collision.
type FaultyOrderRepository interface {
	Insert(ctx context.Context, faulty *FaultyOrder) error
	FindByID(ctx context.Context, id string) (*FaultyOrder, error)
	FindByPackageID(ctx context.Context, packageID string) (*FaultyOrder, error)
	FindAll(ctx context.Context, limit, offset int) ([]*FaultyOrder, error)
	Update(ctx context.Context, faulty *FaultyOrder) error
	Delete(ctx context.Context, id string) error
}

// WaybillRepository allocates sequence numbers atomically per year
type WaybillRepository interface {
	// NextNumber atomically advances the year's counter and returns the
	// formatted waybill number
	NextNumber(ctx context.Context, year int) (string, error)
	Save(ctx context.Context, waybill *Waybill) error
	FindByNumber(ctx context.Context, number string) (*Waybill, error)
}

// StoreProviderResolver maps a store to its marketplace provider
type StoreProviderResolver interface {
	ProviderFor(ctx context.Context, storeID string) (string, error)
}

// Clock abstracts time for waybill year scoping in tests
type Clock interface {
	Now() time.Time
}
