package domain

import (
	"time"

	"github.com/google/uuid"
)

// MovementType classifies a physical stock mutation
type MovementType string

const (
	MovementPicking    MovementType = "PICKING"
	MovementPackingIn  MovementType = "PACKING_IN"
	MovementPackingOut MovementType = "PACKING_OUT"
	MovementReceiving  MovementType = "RECEIVING"
	MovementTransfer   MovementType = "TRANSFER"
	MovementAdjustment MovementType = "ADJUSTMENT"
	MovementReturn     MovementType = "RETURN"
	MovementCancel     MovementType = "CANCEL"
)

// IsValid checks if the movement type is valid
func (t MovementType) IsValid() bool {
	switch t {
	case MovementPicking, MovementPackingIn, MovementPackingOut, MovementReceiving,
		MovementTransfer, MovementAdjustment, MovementReturn, MovementCancel:
		return true
	default:
		return false
	}
}

// MovementDirection indicates whether stock entered or left a shelf
type MovementDirection string

const (
	DirectionIn  MovementDirection = "IN"
	DirectionOut MovementDirection = "OUT"
)

// StockMovement is an immutable audit record of a single shelf quantity delta.
// Rows are only ever inserted, in the same transaction as the ledger mutation
// they describe, so the log can never run ahead of the ledger.
type StockMovement struct {
	ID             string            `bson:"_id" json:"id"`
	ShelfID        string            `bson:"shelfId" json:"shelfId"`
	ProductID      string            `bson:"productId" json:"productId"`
	Type           MovementType      `bson:"type" json:"type"`
	Direction      MovementDirection `bson:"direction" json:"direction"`
	Quantity       int               `bson:"quantity" json:"quantity"`
	QuantityBefore int               `bson:"quantityBefore" json:"quantityBefore"`
	QuantityAfter  int               `bson:"quantityAfter" json:"quantityAfter"`
	OrderID        string            `bson:"orderId,omitempty" json:"orderId,omitempty"`
	RouteID        string            `bson:"routeId,omitempty" json:"routeId,omitempty"`
	SourceShelfID  string            `bson:"sourceShelfId,omitempty" json:"sourceShelfId,omitempty"`
	TargetShelfID  string            `bson:"targetShelfId,omitempty" json:"targetShelfId,omitempty"`
	UserID         string            `bson:"userId,omitempty" json:"userId,omitempty"`
	CreatedAt      time.Time         `bson:"createdAt" json:"createdAt"`
}

// MovementRef carries optional correlation identifiers for a movement
type MovementRef struct {
	OrderID       string
	RouteID       string
	SourceShelfID string
	TargetShelfID string
	UserID        string
}

// NewStockMovement builds a movement record from before/after snapshots
func NewStockMovement(shelfID, productID string, movementType MovementType, direction MovementDirection, qty, before, after int, ref MovementRef) *StockMovement {
	return &StockMovement{
		ID:             uuid.New().String(),
		ShelfID:        shelfID,
		ProductID:      productID,
		Type:           movementType,
		Direction:      direction,
		Quantity:       qty,
		QuantityBefore: before,
		QuantityAfter:  after,
		OrderID:        ref.OrderID,
		RouteID:        ref.RouteID,
		SourceShelfID:  ref.SourceShelfID,
		TargetShelfID:  ref.TargetShelfID,
		UserID:         ref.UserID,
		CreatedAt:      time.Now(),
	}
}

// Consistent verifies the audit invariant: the delta between snapshots
// matches the signed quantity for the direction.
func (m *StockMovement) Consistent() bool {
	delta := m.QuantityAfter - m.QuantityBefore
	if m.Direction == DirectionIn {
		return delta == m.Quantity
	}
	return delta == -m.Quantity
}

// QueueReason maps the movement type to the queue reason it enqueues
func (t MovementType) QueueReason() QueueReason {
	switch t {
	case MovementReceiving, MovementReturn, MovementCancel, MovementPackingIn, MovementTransfer:
		return ReasonStockAdded
	case MovementPicking, MovementPackingOut:
		return ReasonStockRemoved
	case MovementAdjustment:
		return ReasonManual
	default:
		return ReasonManual
	}
}
