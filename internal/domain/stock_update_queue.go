package domain

import (
	"time"
)

// QueueReason says why a product's aggregate needs recomputing and pushing
type QueueReason string

const (
	ReasonOrderCreated   QueueReason = "ORDER_CREATED"
	ReasonOrderCancelled QueueReason = "ORDER_CANCELLED"
	ReasonStockAdded     QueueReason = "STOCK_ADDED"
	ReasonStockRemoved   QueueReason = "STOCK_REMOVED"
	ReasonManual         QueueReason = "MANUAL"
)

// QueueStatus is the queue row lifecycle
type QueueStatus string

const (
	QueuePending    QueueStatus = "PENDING"
	QueueProcessing QueueStatus = "PROCESSING"
	QueueProcessed  QueueStatus = "PROCESSED"
)

// StockUpdateEntry is a debounced "recompute and push" request, not a
// command: multiple rows for the same (product, store) coalesce into one
// push at drain time. Rows are tombstoned, never hard-deleted.
type StockUpdateEntry struct {
	ID          string      `bson:"_id" json:"id"`
	ProductID   string      `bson:"productId" json:"productId"`
	StoreID     string      `bson:"storeId" json:"storeId"`
	Reason      QueueReason `bson:"reason" json:"reason"`
	Priority    int         `bson:"priority" json:"priority"`
	Status      QueueStatus `bson:"status" json:"status"`
	BatchID     string      `bson:"batchId,omitempty" json:"batchId,omitempty"`
	Attempts    int         `bson:"attempts" json:"attempts"`
	CreatedAt   time.Time   `bson:"createdAt" json:"createdAt"`
	ProcessedAt *time.Time  `bson:"processedAt,omitempty" json:"processedAt,omitempty"`
	DeletedAt   *time.Time  `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
}

// Priorities; order transitions outrank background stock moves
const (
	PriorityLow    = 0
	PriorityNormal = 5
	PriorityHigh   = 10
)

// NewStockUpdateEntry enqueues a recompute request
func NewStockUpdateEntry(id, productID, storeID string, reason QueueReason, priority int) *StockUpdateEntry {
	return &StockUpdateEntry{
		ID:        id,
		ProductID: productID,
		StoreID:   storeID,
		Reason:    reason,
		Priority:  priority,
		Status:    QueuePending,
		CreatedAt: time.Now(),
	}
}

// PriorityForReason maps queue reasons to drain priority
func PriorityForReason(reason QueueReason) int {
	switch reason {
	case ReasonOrderCreated, ReasonOrderCancelled:
		return PriorityHigh
	case ReasonStockAdded, ReasonStockRemoved:
		return PriorityNormal
	default:
		return PriorityLow
	}
}

// IsPending reports whether the row is claimable
func (e *StockUpdateEntry) IsPending() bool {
	return e.Status == QueuePending && e.DeletedAt == nil
}
