package domain

import (
	"time"
)

// ShelfStock is the per-(shelf, product) physical ledger row. It is the
// single serialization point for concurrent stock mutation: the repository
// applies every change as a guarded atomic update on this document, and the
// invariant 0 <= reservedQuantity <= quantity must hold after every operation.
type ShelfStock struct {
	ID               string     `bson:"_id" json:"id"`
	ShelfID          string     `bson:"shelfId" json:"shelfId"`
	ProductID        string     `bson:"productId" json:"productId"`
	Quantity         int        `bson:"quantity" json:"quantity"`
	ReservedQuantity int        `bson:"reservedQuantity" json:"reservedQuantity"`
	SortOrder        int        `bson:"sortOrder" json:"sortOrder"`
	CreatedAt        time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time  `bson:"updatedAt" json:"updatedAt"`
	DeletedAt        *time.Time `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
}

// NewShelfStock creates a ledger row on first stock placement
func NewShelfStock(id, shelfID, productID string, quantity, sortOrder int) *ShelfStock {
	now := time.Now()
	return &ShelfStock{
		ID:        id,
		ShelfID:   shelfID,
		ProductID: productID,
		Quantity:  quantity,
		SortOrder: sortOrder,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Available is the physically pickable amount
func (s *ShelfStock) Available() int {
	return s.Quantity - s.ReservedQuantity
}

// IsDeleted reports whether the shelf row is tombstoned
func (s *ShelfStock) IsDeleted() bool {
	return s.DeletedAt != nil
}

// Reserve earmarks qty units without moving them. Never partially reserves.
func (s *ShelfStock) Reserve(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if s.Available() < qty {
		return ErrInsufficientStock
	}
	s.ReservedQuantity += qty
	s.UpdatedAt = time.Now()
	return nil
}

// Release returns earmarked units to the available pool, zero-flooring
// the reservation counter.
func (s *ShelfStock) Release(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	s.ReservedQuantity -= qty
	if s.ReservedQuantity < 0 {
		s.ReservedQuantity = 0
	}
	s.UpdatedAt = time.Now()
	return nil
}

// Decrement physically removes qty units. The reservation counter follows
// by min(qty, reserved) so it can never go negative.
func (s *ShelfStock) Decrement(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if s.Quantity < qty {
		return ErrInsufficientStock
	}
	s.Quantity -= qty
	if s.ReservedQuantity > qty {
		s.ReservedQuantity -= qty
	} else {
		s.ReservedQuantity = 0
	}
	s.UpdatedAt = time.Now()
	return nil
}

// Increment physically adds qty units
func (s *ShelfStock) Increment(qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	s.Quantity += qty
	s.UpdatedAt = time.Now()
	return nil
}

// AdjustTo sets the physical quantity to newQty (cycle counts, corrections)
// and returns the signed delta. Reserved is clamped to the new quantity.
func (s *ShelfStock) AdjustTo(newQty int) (int, error) {
	if newQty < 0 {
		return 0, ErrInvalidQuantity
	}
	delta := newQty - s.Quantity
	s.Quantity = newQty
	if s.ReservedQuantity > s.Quantity {
		s.ReservedQuantity = s.Quantity
	}
	s.UpdatedAt = time.Now()
	return delta, nil
}

// Invariant reports whether 0 <= reserved <= quantity holds
func (s *ShelfStock) Invariant() bool {
	return s.ReservedQuantity >= 0 && s.ReservedQuantity <= s.Quantity
}
