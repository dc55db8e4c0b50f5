package domain

import (
	"encoding/json"
	"time"
)

// SyncStatus is the outcome of one marketplace push batch
type SyncStatus string

const (
	SyncPending     SyncStatus = "PENDING"
	SyncProcessing  SyncStatus = "PROCESSING"
	SyncSuccess     SyncStatus = "SUCCESS"
	SyncFailed      SyncStatus = "FAILED"
	SyncRateLimited SyncStatus = "RATE_LIMITED"
)

// StockSyncLog records one batch push attempt. Purely observability plus
// retry trigger; it never mutates the shelf ledger.
type StockSyncLog struct {
	ID              string          `bson:"_id" json:"id"`
	BatchID         string          `bson:"batchId" json:"batchId"`
	StoreID         string          `bson:"storeId" json:"storeId"`
	Provider        string          `bson:"provider" json:"provider"`
	SyncStatus      SyncStatus      `bson:"syncStatus" json:"syncStatus"`
	TotalItems      int             `bson:"totalItems" json:"totalItems"`
	SuccessItems    int             `bson:"successItems" json:"successItems"`
	FailedItems     int             `bson:"failedItems" json:"failedItems"`
	Endpoint        string          `bson:"endpoint,omitempty" json:"endpoint,omitempty"`
	RequestPayload  json.RawMessage `bson:"requestPayload,omitempty" json:"requestPayload,omitempty"`
	ResponsePayload json.RawMessage `bson:"responsePayload,omitempty" json:"responsePayload,omitempty"`
	StatusCode      int             `bson:"statusCode,omitempty" json:"statusCode,omitempty"`
	ErrorMessage    string          `bson:"errorMessage,omitempty" json:"errorMessage,omitempty"`
	DurationMs      int64           `bson:"durationMs" json:"durationMs"`
	CreatedAt       time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// NewStockSyncLog opens a log row for a claimed batch
func NewStockSyncLog(id, batchID, storeID, provider string, totalItems int) *StockSyncLog {
	now := time.Now()
	return &StockSyncLog{
		ID:         id,
		BatchID:    batchID,
		StoreID:    storeID,
		Provider:   provider,
		SyncStatus: SyncProcessing,
		TotalItems: totalItems,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Complete records a successful push with per-item counts
func (l *StockSyncLog) Complete(successItems, failedItems, statusCode int, responsePayload json.RawMessage, duration time.Duration) {
	l.SyncStatus = SyncSuccess
	l.SuccessItems = successItems
	l.FailedItems = failedItems
	l.StatusCode = statusCode
	l.ResponsePayload = responsePayload
	l.DurationMs = duration.Milliseconds()
	l.UpdatedAt = time.Now()
}

// Fail records a failed push
func (l *StockSyncLog) Fail(statusCode int, errorMessage string, duration time.Duration) {
	l.SyncStatus = SyncFailed
	l.StatusCode = statusCode
	l.ErrorMessage = errorMessage
	l.DurationMs = duration.Milliseconds()
	l.UpdatedAt = time.Now()
}

// RateLimited records a provider throttle; the batch rows stay pending
func (l *StockSyncLog) RateLimited(statusCode int, duration time.Duration) {
	l.SyncStatus = SyncRateLimited
	l.StatusCode = statusCode
	l.DurationMs = duration.Milliseconds()
	l.UpdatedAt = time.Now()
}
