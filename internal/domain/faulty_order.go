package domain

import (
	"encoding/json"
	"time"
)

// FaultyReason classifies why an order was quarantined
type FaultyReason string

const (
	FaultyMissingProducts FaultyReason = "MISSING_PRODUCTS"
	FaultyInvalidData     FaultyReason = "INVALID_DATA"
	FaultyUnknown         FaultyReason = "UNKNOWN"
)

// FaultyOrder holds an ingested order that could not be fully stocked.
// PackageID carries a unique index; re-ingesting the same marketplace
// package while quarantined is a no-op.
type FaultyOrder struct {
	ID              string          `bson:"_id" json:"id"`
	IntegrationID   string          `bson:"integrationId" json:"integrationId"`
	StoreID         string          `bson:"storeId" json:"storeId"`
	PackageID       string          `bson:"packageId" json:"packageId"`
	OrderNumber     string          `bson:"orderNumber" json:"orderNumber"`
	RawData         json.RawMessage `bson:"rawData" json:"rawData"`
	MissingBarcodes []string        `bson:"missingBarcodes" json:"missingBarcodes"`
	ErrorReason     FaultyReason    `bson:"errorReason" json:"errorReason"`
	RetryCount      int             `bson:"retryCount" json:"retryCount"`
	CreatedAt       time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// NewFaultyOrder quarantines a raw marketplace payload
func NewFaultyOrder(id, integrationID, storeID, packageID, orderNumber string, rawData json.RawMessage, missingBarcodes []string, reason FaultyReason) *FaultyOrder {
	now := time.Now()
	if missingBarcodes == nil {
		missingBarcodes = []string{}
	}
	return &FaultyOrder{
		ID:              id,
		IntegrationID:   integrationID,
		StoreID:         storeID,
		PackageID:       packageID,
		OrderNumber:     orderNumber,
		RawData:         rawData,
		MissingBarcodes: missingBarcodes,
		ErrorReason:     reason,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// RecordRetryFailure bumps the retry counter and refreshes the shortfall,
// which may shrink as stock arrives.
func (f *FaultyOrder) RecordRetryFailure(missingBarcodes []string, reason FaultyReason) {
	f.RetryCount++
	if missingBarcodes != nil {
		f.MissingBarcodes = missingBarcodes
	}
	f.ErrorReason = reason
	f.UpdatedAt = time.Now()
}
