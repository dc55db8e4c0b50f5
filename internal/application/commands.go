package application

import "encoding/json"

// ReceiveStockCommand places stock onto a shelf (purchase receiving)
type ReceiveStockCommand struct {
	ShelfID   string
	ProductID string
	Quantity  int
	RouteID   string
	UserID    string
}

// ReturnStockCommand receives a customer return back onto a shelf
type ReturnStockCommand struct {
	ShelfID   string
	ProductID string
	Quantity  int
	OrderID   string
	UserID    string
}

// TransferStockCommand moves stock between shelves atomically
type TransferStockCommand struct {
	SourceShelfID string
	TargetShelfID string
	ProductID     string
	Quantity      int
	UserID        string
}

// AdjustStockCommand sets a shelf's physical quantity (cycle count)
type AdjustStockCommand struct {
	ShelfID     string
	ProductID   string
	NewQuantity int
	Reason      string
	UserID      string
}

// IngestOrderCommand carries a mapped marketplace order into the
// reservation workflow
type IngestOrderCommand struct {
	IntegrationID string
	StoreID       string
	PackageID     string
	OrderNumber   string
	Currency      string
	CargoProvider string
	DeliveryType  string
	ShippingAddress json.RawMessage
	InvoiceAddress  json.RawMessage
	RawData       json.RawMessage
	Lines         []OrderLine
}

// OrderLine is one marketplace order line keyed by barcode
type OrderLine struct {
	Barcode   string
	Quantity  int
	UnitPrice int64 // smallest currency unit
	VATRate   float64
}

// CancelItemCommand cancels one order item
type CancelItemCommand struct {
	OrderID string
	ItemID  string
	Reason  string
	// ReturnShelfID receives the compensating increment for COMMITTED items
	ReturnShelfID string
	UserID        string
}

// CompletePickingCommand converts an item's reservation into a physical
// shelf decrement
type CompletePickingCommand struct {
	OrderID string
	ItemID  string
	RouteID string
	UserID  string
}

// ShipItemCommand completes a committed item
type ShipItemCommand struct {
	OrderID string
	ItemID  string
}

// RetryFaultyOrderCommand re-runs ingestion for a quarantined order
type RetryFaultyOrderCommand struct {
	FaultyOrderID string
}

// MovementHistoryQuery pages through the movement log
type MovementHistoryQuery struct {
	ProductID string
	ShelfID   string
	OrderID   string
	Limit     int
	Offset    int
}

// ListFaultyOrdersQuery pages through the quarantine
type ListFaultyOrdersQuery struct {
	Limit  int
	Offset int
}
