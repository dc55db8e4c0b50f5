package domain

import (
	"testing"
)

func TestShelfStockReserve(t *testing.T) {
	tests := []struct {
		name         string
		quantity     int
		reserved     int
		reserveQty   int
		wantErr      error
		wantReserved int
	}{
		{"reserves within available", 10, 0, 10, nil, 10},
		{"reserves partially available", 10, 4, 6, nil, 10},
		{"fails beyond available", 10, 10, 1, ErrInsufficientStock, 10},
		{"fails when reserved exceeds request headroom", 5, 3, 3, ErrInsufficientStock, 3},
		{"rejects zero quantity", 10, 0, 0, ErrInvalidQuantity, 0},
		{"rejects negative quantity", 10, 0, -1, ErrInvalidQuantity, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewShelfStock("A-1:P-1", "A-1", "P-1", tt.quantity, 0)
			s.ReservedQuantity = tt.reserved

			err := s.Reserve(tt.reserveQty)
			if err != tt.wantErr {
				t.Fatalf("Reserve(%d) error = %v, want %v", tt.reserveQty, err, tt.wantErr)
			}
			if err == nil && s.ReservedQuantity != tt.wantReserved {
				t.Errorf("ReservedQuantity = %d, want %d", s.ReservedQuantity, tt.wantReserved)
			}
			if !s.Invariant() {
				t.Errorf("invariant violated: quantity=%d reserved=%d", s.Quantity, s.ReservedQuantity)
			}
		})
	}
}

func TestShelfStockRelease(t *testing.T) {
	s := NewShelfStock("A-1:P-1", "A-1", "P-1", 10, 0)
	s.ReservedQuantity = 4

	if err := s.Release(3); err != nil {
		t.Fatalf("Release(3) error = %v", err)
	}
	if s.ReservedQuantity != 1 {
		t.Errorf("ReservedQuantity = %d, want 1", s.ReservedQuantity)
	}

	// releasing more than reserved floors at zero
	if err := s.Release(5); err != nil {
		t.Fatalf("Release(5) error = %v", err)
	}
	if s.ReservedQuantity != 0 {
		t.Errorf("ReservedQuantity = %d, want 0", s.ReservedQuantity)
	}
	if !s.Invariant() {
		t.Error("invariant violated after over-release")
	}
}

func TestShelfStockDecrement(t *testing.T) {
	tests := []struct {
		name         string
		quantity     int
		reserved     int
		decrementQty int
		wantErr      error
		wantQuantity int
		wantReserved int
	}{
		{"decrements reserved stock", 10, 10, 10, nil, 0, 0},
		{"reserved follows down", 10, 6, 4, nil, 6, 2},
		{"reserved floors at zero", 10, 2, 5, nil, 5, 0},
		{"fails beyond physical quantity", 3, 0, 4, ErrInsufficientStock, 3, 0},
		{"rejects zero quantity", 10, 0, 0, ErrInvalidQuantity, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewShelfStock("A-1:P-1", "A-1", "P-1", tt.quantity, 0)
			s.ReservedQuantity = tt.reserved

			err := s.Decrement(tt.decrementQty)
			if err != tt.wantErr {
				t.Fatalf("Decrement(%d) error = %v, want %v", tt.decrementQty, err, tt.wantErr)
			}
			if s.Quantity != tt.wantQuantity {
				t.Errorf("Quantity = %d, want %d", s.Quantity, tt.wantQuantity)
			}
			if s.ReservedQuantity != tt.wantReserved {
				t.Errorf("ReservedQuantity = %d, want %d", s.ReservedQuantity, tt.wantReserved)
			}
			if !s.Invariant() {
				t.Errorf("invariant violated: quantity=%d reserved=%d", s.Quantity, s.ReservedQuantity)
			}
		})
	}
}

// A fully reserved shelf admits no further reservation, and picking the
// reserved units drains both counters to zero.
func TestShelfStockFullReservationLifecycle(t *testing.T) {
	s := NewShelfStock("A-1:P-1", "A-1", "P-1", 10, 0)

	if err := s.Reserve(10); err != nil {
		t.Fatalf("Reserve(10) error = %v", err)
	}
	if s.Available() != 0 {
		t.Fatalf("Available() = %d, want 0", s.Available())
	}
	if err := s.Reserve(1); err != ErrInsufficientStock {
		t.Fatalf("Reserve(1) on full shelf error = %v, want ErrInsufficientStock", err)
	}

	before := s.Quantity
	if err := s.Decrement(10); err != nil {
		t.Fatalf("Decrement(10) error = %v", err)
	}
	if before != 10 || s.Quantity != 0 {
		t.Errorf("picking snapshot before=%d after=%d, want 10 and 0", before, s.Quantity)
	}
	if s.ReservedQuantity != 0 {
		t.Errorf("ReservedQuantity = %d, want 0", s.ReservedQuantity)
	}
}

func TestShelfStockAdjustTo(t *testing.T) {
	tests := []struct {
		name         string
		quantity     int
		reserved     int
		newQty       int
		wantErr      error
		wantDelta    int
		wantReserved int
	}{
		{"count up", 10, 0, 14, nil, 4, 0},
		{"count down", 10, 2, 6, nil, -4, 2},
		{"count down clamps reserved", 10, 8, 5, nil, -5, 5},
		{"no change", 10, 0, 10, nil, 0, 0},
		{"rejects negative target", 10, 0, -1, ErrInvalidQuantity, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewShelfStock("A-1:P-1", "A-1", "P-1", tt.quantity, 0)
			s.ReservedQuantity = tt.reserved

			delta, err := s.AdjustTo(tt.newQty)
			if err != tt.wantErr {
				t.Fatalf("AdjustTo(%d) error = %v, want %v", tt.newQty, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if delta != tt.wantDelta {
				t.Errorf("delta = %d, want %d", delta, tt.wantDelta)
			}
			if s.ReservedQuantity != tt.wantReserved {
				t.Errorf("ReservedQuantity = %d, want %d", s.ReservedQuantity, tt.wantReserved)
			}
			if !s.Invariant() {
				t.Errorf("invariant violated: quantity=%d reserved=%d", s.Quantity, s.ReservedQuantity)
			}
		})
	}
}
