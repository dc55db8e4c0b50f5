package application

import (
	"context"
	"encoding/json"
)

// StockPushItem is one {barcode, quantity} pair sent to a marketplace
type StockPushItem struct {
	Barcode  string `json:"barcode"`
	Quantity int    `json:"quantity"`
}

// StockPushResult is the provider's per-batch response. FailedBarcodes
// lists items the provider rejected inside an accepted batch.
type StockPushResult struct {
	Endpoint       string
	StatusCode     int
	RawResponse    json.RawMessage
	FailedBarcodes []string
}

// StockPusher is the outbound marketplace seam. Push returns
// domain.ErrRateLimited (wrapped) on HTTP 429 so throttles are retried
// without burning attempts; any other error counts against the rows.
type StockPusher interface {
	Push(ctx context.Context, provider, storeID string, items []StockPushItem) (*StockPushResult, error)
	MaxBatchSize(provider string) int
}
