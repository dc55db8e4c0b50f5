package domain

import "time"

// ProductStock is the denormalized per-product rollup of the shelf ledger.
// It is mutated only inside the same transaction as the ledger mutation that
// caused the delta, never directly, so the two cannot diverge under
// concurrency. StoreStocks carries the per-store marketplace view.
type ProductStock struct {
	ID               string       `bson:"_id" json:"id"`
	ProductID        string       `bson:"productId" json:"productId"`
	StockQuantity    int          `bson:"stockQuantity" json:"stockQuantity"`
	SellableQuantity int          `bson:"sellableQuantity" json:"sellableQuantity"`
	ReservedQuantity int          `bson:"reservedQuantity" json:"reservedQuantity"`
	StoreStocks      []StoreStock `bson:"storeStocks" json:"storeStocks"`
	UpdatedAt        time.Time    `bson:"updatedAt" json:"updatedAt"`
}

// StoreStock is the per-store slice of a product's aggregate stock
type StoreStock struct {
	StoreID            string `bson:"storeId" json:"storeId"`
	SellableQuantity   int    `bson:"sellableQuantity" json:"sellableQuantity"`
	ReservableQuantity int    `bson:"reservableQuantity" json:"reservableQuantity"`
	CommittedQuantity  int    `bson:"committedQuantity" json:"committedQuantity"`
}

// StockDelta is the signed adjustment a ledger mutation applies to the rollup
type StockDelta struct {
	Stock     int
	Sellable  int
	Reserved  int
	Committed int
}

// DeltaForMovement derives the rollup delta a physical movement implies.
// Picking converts reserved stock into committed; receiving and returns
// create sellable stock.
func DeltaForMovement(movementType MovementType, direction MovementDirection, qty int) StockDelta {
	signed := qty
	if direction == DirectionOut {
		signed = -qty
	}

	switch movementType {
	case MovementPicking:
		// reserved units physically leave the shelf and become committed
		return StockDelta{Stock: signed, Reserved: -qty, Committed: qty}
	case MovementReceiving, MovementReturn, MovementCancel, MovementAdjustment:
		return StockDelta{Stock: signed, Sellable: signed}
	case MovementPackingIn, MovementPackingOut:
		return StockDelta{Stock: signed, Sellable: signed}
	case MovementTransfer:
		// transfer halves cancel out at product level
		return StockDelta{}
	default:
		return StockDelta{Stock: signed, Sellable: signed}
	}
}

// DeltaForReserve is the rollup delta of reserving qty units (no physical move)
func DeltaForReserve(qty int) StockDelta {
	return StockDelta{Sellable: -qty, Reserved: qty}
}

// DeltaForRelease is the rollup delta of releasing qty reserved units
func DeltaForRelease(qty int) StockDelta {
	return StockDelta{Sellable: qty, Reserved: -qty}
}

// DeltaForShipment is the rollup delta of shipping qty committed units
func DeltaForShipment(qty int) StockDelta {
	return StockDelta{Committed: -qty}
}

// Apply applies a delta to the product-level counters, clamping derived
// counters at zero. Returns false if the resulting state would violate
// sellable + reserved <= stock.
func (p *ProductStock) Apply(delta StockDelta) bool {
	p.StockQuantity += delta.Stock
	p.SellableQuantity += delta.Sellable
	p.ReservedQuantity += delta.Reserved

	if p.SellableQuantity < 0 {
		p.SellableQuantity = 0
	}
	if p.ReservedQuantity < 0 {
		p.ReservedQuantity = 0
	}
	p.UpdatedAt = time.Now()

	return p.StockQuantity >= 0 && p.SellableQuantity+p.ReservedQuantity <= p.StockQuantity
}

// ApplyStore applies a delta to a store's slice, creating the slice on first use
func (p *ProductStock) ApplyStore(storeID string, delta StockDelta) {
	for i := range p.StoreStocks {
		if p.StoreStocks[i].StoreID == storeID {
			p.StoreStocks[i].SellableQuantity += delta.Sellable
			p.StoreStocks[i].ReservableQuantity += delta.Reserved
			p.StoreStocks[i].CommittedQuantity += delta.Committed
			clampStore(&p.StoreStocks[i])
			p.UpdatedAt = time.Now()
			return
		}
	}

	ss := StoreStock{
		StoreID:            storeID,
		SellableQuantity:   delta.Sellable,
		ReservableQuantity: delta.Reserved,
		CommittedQuantity:  delta.Committed,
	}
	clampStore(&ss)
	p.StoreStocks = append(p.StoreStocks, ss)
	p.UpdatedAt = time.Now()
}

func clampStore(s *StoreStock) {
	if s.SellableQuantity < 0 {
		s.SellableQuantity = 0
	}
	if s.ReservableQuantity < 0 {
		s.ReservableQuantity = 0
	}
	if s.CommittedQuantity < 0 {
		s.CommittedQuantity = 0
	}
}

// StoreFor returns the store slice, or nil if absent
func (p *ProductStock) StoreFor(storeID string) *StoreStock {
	for i := range p.StoreStocks {
		if p.StoreStocks[i].StoreID == storeID {
			return &p.StoreStocks[i]
		}
	}
	return nil
}

// RecomputeFromLedger rebuilds the product-level counters from shelf rows.
// Used by the sync path so pushes always reflect the ledger truth.
func (p *ProductStock) RecomputeFromLedger(rows []*ShelfStock) {
	total, reserved := 0, 0
	for _, row := range rows {
		if row.IsDeleted() {
			continue
		}
		total += row.Quantity
		reserved += row.ReservedQuantity
	}
	p.StockQuantity = total
	p.ReservedQuantity = reserved
	p.SellableQuantity = total - reserved
	if p.SellableQuantity < 0 {
		p.SellableQuantity = 0
	}
	p.UpdatedAt = time.Now()
}
