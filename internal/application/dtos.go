package application

import "time"

// ShelfStockDTO represents one ledger row in responses
type ShelfStockDTO struct {
	ShelfID          string    `json:"shelfId"`
	ProductID        string    `json:"productId"`
	Quantity         int       `json:"quantity"`
	ReservedQuantity int       `json:"reservedQuantity"`
	Available        int       `json:"available"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// StockMovementDTO represents one audit row in responses
type StockMovementDTO struct {
	ID             string    `json:"id"`
	ShelfID        string    `json:"shelfId"`
	ProductID      string    `json:"productId"`
	Type           string    `json:"type"`
	Direction      string    `json:"direction"`
	Quantity       int       `json:"quantity"`
	QuantityBefore int       `json:"quantityBefore"`
	QuantityAfter  int       `json:"quantityAfter"`
	OrderID        string    `json:"orderId,omitempty"`
	SourceShelfID  string    `json:"sourceShelfId,omitempty"`
	TargetShelfID  string    `json:"targetShelfId,omitempty"`
	UserID         string    `json:"userId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// OrderDTO represents an order with its items
type OrderDTO struct {
	ID            string         `json:"id"`
	PackageID     string         `json:"packageId"`
	OrderNumber   string         `json:"orderNumber"`
	StoreID       string         `json:"storeId"`
	Status        string         `json:"status"`
	Currency      string         `json:"currency"`
	WaybillNumber string         `json:"waybillNumber,omitempty"`
	Items         []OrderItemDTO `json:"items"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// OrderItemDTO represents one order line
type OrderItemDTO struct {
	ID             string  `json:"id"`
	ProductID      string  `json:"productId"`
	Barcode        string  `json:"barcode"`
	Quantity       int     `json:"quantity"`
	UnitPrice      string  `json:"unitPrice"`
	VATRate        float64 `json:"vatRate"`
	Status         string  `json:"status"`
	CancelReason   string  `json:"cancelReason,omitempty"`
	IsSetComponent bool    `json:"isSetComponent"`
	SetProductID   string  `json:"setProductId,omitempty"`
}

// IngestResultDTO is the outcome of order ingestion: either a created
// order or a quarantine diversion, never both
type IngestResultDTO struct {
	Quarantined     bool      `json:"quarantined"`
	Order           *OrderDTO `json:"order,omitempty"`
	FaultyOrderID   string    `json:"faultyOrderId,omitempty"`
	MissingBarcodes []string  `json:"missingBarcodes,omitempty"`
}

// FaultyOrderDTO represents a quarantined order
type FaultyOrderDTO struct {
	ID              string    `json:"id"`
	IntegrationID   string    `json:"integrationId"`
	StoreID         string    `json:"storeId"`
	PackageID       string    `json:"packageId"`
	OrderNumber     string    `json:"orderNumber"`
	MissingBarcodes []string  `json:"missingBarcodes"`
	ErrorReason     string    `json:"errorReason"`
	RetryCount      int       `json:"retryCount"`
	CreatedAt       time.Time `json:"createdAt"`
}

// SyncLogDTO represents one push batch outcome
type SyncLogDTO struct {
	BatchID      string    `json:"batchId"`
	StoreID      string    `json:"storeId"`
	Provider     string    `json:"provider"`
	SyncStatus   string    `json:"syncStatus"`
	TotalItems   int       `json:"totalItems"`
	SuccessItems int       `json:"successItems"`
	FailedItems  int       `json:"failedItems"`
	StatusCode   int       `json:"statusCode,omitempty"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	DurationMs   int64     `json:"durationMs"`
	CreatedAt    time.Time `json:"createdAt"`
}
