package domain

import "time"

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// StockMovementRecordedEvent is published for every physical ledger mutation
type StockMovementRecordedEvent struct {
	MovementID     string    `json:"movementId"`
	ShelfID        string    `json:"shelfId"`
	ProductID      string    `json:"productId"`
	Type           string    `json:"type"`
	Direction      string    `json:"direction"`
	Quantity       int       `json:"quantity"`
	QuantityBefore int       `json:"quantityBefore"`
	QuantityAfter  int       `json:"quantityAfter"`
	OrderID        string    `json:"orderId,omitempty"`
	RecordedAt     time.Time `json:"recordedAt"`
}

func (e *StockMovementRecordedEvent) EventType() string     { return "ambar.stock.movement-recorded" }
func (e *StockMovementRecordedEvent) OccurredAt() time.Time { return e.RecordedAt }

// OrderReservedEvent is published when an order fully reserves its stock
type OrderReservedEvent struct {
	OrderID    string    `json:"orderId"`
	PackageID  string    `json:"packageId"`
	StoreID    string    `json:"storeId"`
	ItemCount  int       `json:"itemCount"`
	ReservedAt time.Time `json:"reservedAt"`
}

func (e *OrderReservedEvent) EventType() string     { return "ambar.order.reserved" }
func (e *OrderReservedEvent) OccurredAt() time.Time { return e.ReservedAt }

// OrderCancelledEvent is published when an order item (or order) is cancelled
type OrderCancelledEvent struct {
	OrderID     string    `json:"orderId"`
	PackageID   string    `json:"packageId"`
	ItemID      string    `json:"itemId,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	CancelledAt time.Time `json:"cancelledAt"`
}

func (e *OrderCancelledEvent) EventType() string     { return "ambar.order.cancelled" }
func (e *OrderCancelledEvent) OccurredAt() time.Time { return e.CancelledAt }

// OrderQuarantinedEvent is published when ingestion diverts to quarantine
type OrderQuarantinedEvent struct {
	FaultyOrderID   string    `json:"faultyOrderId"`
	PackageID       string    `json:"packageId"`
	StoreID         string    `json:"storeId"`
	MissingBarcodes []string  `json:"missingBarcodes"`
	Reason          string    `json:"reason"`
	QuarantinedAt   time.Time `json:"quarantinedAt"`
}

func (e *OrderQuarantinedEvent) EventType() string     { return "ambar.order.quarantined" }
func (e *OrderQuarantinedEvent) OccurredAt() time.Time { return e.QuarantinedAt }

// StockSyncCompletedEvent is published after a marketplace push batch settles
type StockSyncCompletedEvent struct {
	BatchID      string    `json:"batchId"`
	StoreID      string    `json:"storeId"`
	Provider     string    `json:"provider"`
	Status       string    `json:"status"`
	TotalItems   int       `json:"totalItems"`
	SuccessItems int       `json:"successItems"`
	FailedItems  int       `json:"failedItems"`
	CompletedAt  time.Time `json:"completedAt"`
}

func (e *StockSyncCompletedEvent) EventType() string     { return "ambar.stock.sync-completed" }
func (e *StockSyncCompletedEvent) OccurredAt() time.Time { return e.CompletedAt }
