package domain

import (
	"testing"
)

func TestDeltaForMovement(t *testing.T) {
	tests := []struct {
		name      string
		mtype     MovementType
		direction MovementDirection
		qty       int
		want      StockDelta
	}{
		{"picking converts reserved to committed", MovementPicking, DirectionOut, 4, StockDelta{Stock: -4, Reserved: -4, Committed: 4}},
		{"receiving creates sellable", MovementReceiving, DirectionIn, 5, StockDelta{Stock: 5, Sellable: 5}},
		{"return creates sellable", MovementReturn, DirectionIn, 2, StockDelta{Stock: 2, Sellable: 2}},
		{"cancel returns sellable", MovementCancel, DirectionIn, 3, StockDelta{Stock: 3, Sellable: 3}},
		{"adjustment down removes sellable", MovementAdjustment, DirectionOut, 2, StockDelta{Stock: -2, Sellable: -2}},
		{"transfer nets to zero at product level", MovementTransfer, DirectionOut, 7, StockDelta{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeltaForMovement(tt.mtype, tt.direction, tt.qty); got != tt.want {
				t.Errorf("DeltaForMovement() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestReserveReleaseDeltasAreInverse(t *testing.T) {
	p := &ProductStock{ProductID: "P-1", StockQuantity: 10, SellableQuantity: 10}

	p.Apply(DeltaForReserve(4))
	if p.SellableQuantity != 6 || p.ReservedQuantity != 4 {
		t.Fatalf("after reserve: sellable=%d reserved=%d, want 6 and 4", p.SellableQuantity, p.ReservedQuantity)
	}

	p.Apply(DeltaForRelease(4))
	if p.SellableQuantity != 10 || p.ReservedQuantity != 0 {
		t.Errorf("after release: sellable=%d reserved=%d, want 10 and 0", p.SellableQuantity, p.ReservedQuantity)
	}
}

func TestApplyClampsDerivedCounters(t *testing.T) {
	p := &ProductStock{ProductID: "P-1", StockQuantity: 2, SellableQuantity: 1}

	ok := p.Apply(StockDelta{Sellable: -5, Reserved: -1})
	if !ok {
		t.Error("Apply returned false for a clamped but consistent state")
	}
	if p.SellableQuantity != 0 || p.ReservedQuantity != 0 {
		t.Errorf("sellable=%d reserved=%d, want both 0", p.SellableQuantity, p.ReservedQuantity)
	}
}

func TestApplyStoreCreatesSliceOnFirstUse(t *testing.T) {
	p := &ProductStock{ProductID: "P-1"}

	p.ApplyStore("S-1", StockDelta{Sellable: 5, Committed: 2})
	p.ApplyStore("S-1", StockDelta{Sellable: -2})
	p.ApplyStore("S-2", StockDelta{Sellable: 1})

	if len(p.StoreStocks) != 2 {
		t.Fatalf("len(StoreStocks) = %d, want 2", len(p.StoreStocks))
	}
	s1 := p.StoreFor("S-1")
	if s1 == nil || s1.SellableQuantity != 3 || s1.CommittedQuantity != 2 {
		t.Errorf("S-1 slice = %+v, want sellable 3 committed 2", s1)
	}
}

func TestRecomputeFromLedger(t *testing.T) {
	deleted := NewShelfStock("C-1:P-1", "C-1", "P-1", 100, 0)
	now := deleted.CreatedAt
	deleted.DeletedAt = &now

	rows := []*ShelfStock{
		{ShelfID: "A-1", ProductID: "P-1", Quantity: 6, ReservedQuantity: 2},
		{ShelfID: "B-1", ProductID: "P-1", Quantity: 4, ReservedQuantity: 1},
		deleted,
	}

	p := &ProductStock{ProductID: "P-1"}
	p.RecomputeFromLedger(rows)

	if p.StockQuantity != 10 {
		t.Errorf("StockQuantity = %d, want 10", p.StockQuantity)
	}
	if p.ReservedQuantity != 3 {
		t.Errorf("ReservedQuantity = %d, want 3", p.ReservedQuantity)
	}
	if p.SellableQuantity != 7 {
		t.Errorf("SellableQuantity = %d, want 7", p.SellableQuantity)
	}
}
