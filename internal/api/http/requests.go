package http

import (
	"encoding/json"
	"fmt"

	"github.com/resobyte/ambar-hub-sub004/internal/application"
)

// toCommand maps the ingest request to the workflow command. The full
// request body is kept as RawData so quarantined orders can be retried
// from what the marketplace actually sent.
func (r *IngestOrderRequest) toCommand() (application.IngestOrderCommand, error) {
	rawData, err := json.Marshal(r)
	if err != nil {
		return application.IngestOrderCommand{}, fmt.Errorf("failed to encode raw order data: %w", err)
	}

	var shippingAddress, invoiceAddress json.RawMessage
	if r.ShippingAddress != nil {
		if shippingAddress, err = json.Marshal(r.ShippingAddress); err != nil {
			return application.IngestOrderCommand{}, fmt.Errorf("failed to encode shipping address: %w", err)
		}
	}
	if r.InvoiceAddress != nil {
		if invoiceAddress, err = json.Marshal(r.InvoiceAddress); err != nil {
			return application.IngestOrderCommand{}, fmt.Errorf("failed to encode invoice address: %w", err)
		}
	}

	lines := make([]application.OrderLine, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = application.OrderLine{
			Barcode:   l.Barcode,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			VATRate:   l.VATRate,
		}
	}

	return application.IngestOrderCommand{
		IntegrationID:   r.IntegrationID,
		StoreID:         r.StoreID,
		PackageID:       r.PackageID,
		OrderNumber:     r.OrderNumber,
		Currency:        r.Currency,
		CargoProvider:   r.CargoProvider,
		DeliveryType:    r.DeliveryType,
		ShippingAddress: shippingAddress,
		InvoiceAddress:  invoiceAddress,
		RawData:         rawData,
		Lines:           lines,
	}, nil
}
