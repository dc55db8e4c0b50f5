package application

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/resobyte/ambar-hub-sub004/internal/domain"
	"github.com/resobyte/ambar-hub-sub004/internal/pkg/errors"
	"github.com/resobyte/ambar-hub-sub004/internal/pkg/logging"
)

// QuarantineService manages the faulty order holding table: listing,
// inspection and retrying ingestion from the stored raw payload.
type QuarantineService struct {
	faulty   domain.FaultyOrderRepository
	workflow *ReservationWorkflow
	logger   *logging.Logger
}

// NewQuarantineService creates a new QuarantineService
func NewQuarantineService(faulty domain.FaultyOrderRepository, workflow *ReservationWorkflow, logger *logging.Logger) *QuarantineService {
	return &QuarantineService{
		faulty:   faulty,
		workflow: workflow,
		logger:   logger,
	}
}

// rawOrderPayload is the slice of the stored marketplace payload the retry
// path needs to rebuild an ingestion command
type rawOrderPayload struct {
	Currency      string `json:"currency"`
	CargoProvider string `json:"cargoProvider"`
	DeliveryType  string `json:"deliveryType"`
	ShippingAddress json.RawMessage `json:"shippingAddress"`
	InvoiceAddress  json.RawMessage `json:"invoiceAddress"`
	Lines         []struct {
		Barcode   string  `json:"barcode"`
		Quantity  int     `json:"quantity"`
		UnitPrice int64   `json:"unitPrice"`
		VATRate   float64 `json:"vatRate"`
	} `json:"lines"`
}

// Retry re-runs the full reservation workflow from rawData. Success
// removes the quarantine row; another shortfall bumps retryCount and
// refreshes the missing barcodes, which may shrink as stock arrives.
func (s *QuarantineService) Retry(ctx context.Context, cmd RetryFaultyOrderCommand) (*IngestResultDTO, error) {
	faultyOrder, err := s.faulty.FindByID(ctx, cmd.FaultyOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load faulty order: %w", err)
	}
	if faultyOrder == nil {
		return nil, errors.ErrNotFound("faulty order")
	}

	ingestCmd, err := s.buildIngestCommand(faultyOrder)
	if err != nil {
		faultyOrder.RecordRetryFailure(nil, domain.FaultyInvalidData)
		if updateErr := s.faulty.Update(ctx, faultyOrder); updateErr != nil {
			s.logger.WithError(updateErr).Error("Failed to update faulty order", "faultyOrderId", faultyOrder.ID)
		}
		return nil, errors.ErrValidation("stored payload cannot be parsed").Wrap(err)
	}

	// the row itself would trip the packageId idempotency guard on a
	// renewed quarantine, so remove it first; a failed retry re-inserts
	// through the workflow with refreshed bookkeeping
	retryCount := faultyOrder.RetryCount
	if err := s.faulty.Delete(ctx, faultyOrder.ID); err != nil {
		return nil, fmt.Errorf("failed to clear quarantine row: %w", err)
	}

	result, err := s.workflow.IngestOrder(ctx, ingestCmd)
	if err != nil {
		// ingestion failed outright; restore the row with the retry recorded
		faultyOrder.RecordRetryFailure(nil, faultyOrder.ErrorReason)
		if insertErr := s.faulty.Insert(ctx, faultyOrder); insertErr != nil {
			s.logger.WithError(insertErr).Error("Failed to restore faulty order", "faultyOrderId", faultyOrder.ID)
		}
		return nil, err
	}

	if result.Quarantined {
		// the workflow created a fresh row; carry the retry history over
		requeued, findErr := s.faulty.FindByID(ctx, result.FaultyOrderID)
		if findErr == nil && requeued != nil {
			requeued.RetryCount = retryCount + 1
			if updateErr := s.faulty.Update(ctx, requeued); updateErr != nil {
				s.logger.WithError(updateErr).Error("Failed to update retry count", "faultyOrderId", requeued.ID)
			}
		}
		s.logger.Warn("Faulty order retry failed",
			"faultyOrderId", cmd.FaultyOrderID, "packageId", faultyOrder.PackageID,
			"retryCount", retryCount+1, "missingBarcodes", result.MissingBarcodes)
		return result, nil
	}

	s.logger.Info("Faulty order recovered",
		"faultyOrderId", cmd.FaultyOrderID, "packageId", faultyOrder.PackageID, "orderId", result.Order.ID)
	return result, nil
}

// List pages through the quarantine
func (s *QuarantineService) List(ctx context.Context, query ListFaultyOrdersQuery) ([]*FaultyOrderDTO, error) {
	limit := query.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.faulty.FindAll(ctx, limit, query.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list faulty orders: %w", err)
	}
	return ToFaultyOrderDTOs(rows), nil
}

// Get returns one quarantined order
func (s *QuarantineService) Get(ctx context.Context, id string) (*FaultyOrderDTO, error) {
	row, err := s.faulty.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load faulty order: %w", err)
	}
	if row == nil {
		return nil, errors.ErrNotFound("faulty order")
	}
	return ToFaultyOrderDTO(row), nil
}

func (s *QuarantineService) buildIngestCommand(f *domain.FaultyOrder) (IngestOrderCommand, error) {
	var payload rawOrderPayload
	if err := json.Unmarshal(f.RawData, &payload); err != nil {
		return IngestOrderCommand{}, err
	}
	if len(payload.Lines) == 0 {
		return IngestOrderCommand{}, fmt.Errorf("payload has no lines")
	}

	lines := make([]OrderLine, len(payload.Lines))
	for i, l := range payload.Lines {
		lines[i] = OrderLine{
			Barcode:   l.Barcode,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			VATRate:   l.VATRate,
		}
	}

	return IngestOrderCommand{
		IntegrationID:   f.IntegrationID,
		StoreID:         f.StoreID,
		PackageID:       f.PackageID,
		OrderNumber:     f.OrderNumber,
		Currency:        payload.Currency,
		CargoProvider:   payload.CargoProvider,
		DeliveryType:    payload.DeliveryType,
		ShippingAddress: payload.ShippingAddress,
		InvoiceAddress:  payload.InvoiceAddress,
		RawData:         f.RawData,
		Lines:           lines,
	}, nil
}
