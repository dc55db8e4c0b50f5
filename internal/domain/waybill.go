package domain

import (
	"fmt"
	"time"
)

// WaybillPrefix is the fixed prefix of generated waybill numbers
const WaybillPrefix = "IRS"

// Waybill is the shipping document record; Number is unique per year and
// allocated from an atomic per-year counter, never read-then-write.
type Waybill struct {
	ID        string    `bson:"_id" json:"id"`
	Number    string    `bson:"number" json:"number"`
	StoreID   string    `bson:"storeId" json:"storeId"`
	OrderID   string    `bson:"orderId,omitempty" json:"orderId,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// WaybillCounter is the per-year sequence document. Seq is advanced with an
// atomic increment so concurrent allocations can never collide.
type WaybillCounter struct {
	ID   string `bson:"_id" json:"id"` // "IRS<year>"
	Year int    `bson:"year" json:"year"`
	Seq  int64  `bson:"seq" json:"seq"`
}

// FormatWaybillNumber renders "IRS<year>" + zero-padded 6-digit sequence
func FormatWaybillNumber(year int, seq int64) string {
	return fmt.Sprintf("%s%d%06d", WaybillPrefix, year, seq)
}

// WaybillCounterID is the counter document id for a year
func WaybillCounterID(year int) string {
	return fmt.Sprintf("%s%d", WaybillPrefix, year)
}
