package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/resobyte/ambar-hub-sub004/internal/domain"
	"github.com/resobyte/ambar-hub-sub004/internal/pkg/errors"
	"github.com/resobyte/ambar-hub-sub004/internal/pkg/logging"
)

// systemClock is the production Clock
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// WaybillService allocates sequential waybill numbers. Numbers are drawn
// from an atomic per-year counter, so concurrent allocations can never
// produce duplicates.
type WaybillService struct {
	waybills domain.WaybillRepository
	orders   domain.OrderRepository
	clock    domain.Clock
	logger   *logging.Logger
}

// NewWaybillService creates a new WaybillService
func NewWaybillService(waybills domain.WaybillRepository, orders domain.OrderRepository, clock domain.Clock, logger *logging.Logger) *WaybillService {
	if clock == nil {
		clock = systemClock{}
	}
	return &WaybillService{
		waybills: waybills,
		orders:   orders,
		clock:    clock,
		logger:   logger,
	}
}

// GenerateForOrder allocates the next waybill number for the current year
// and assigns it to the order.
func (s *WaybillService) GenerateForOrder(ctx context.Context, orderID string) (string, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return "", errors.ErrNotFound("order")
	}
	if order.WaybillNumber != "" {
		return order.WaybillNumber, nil
	}

	number, err := s.Generate(ctx, order.StoreID)
	if err != nil {
		return "", err
	}

	order.WaybillNumber = number
	order.UpdatedAt = s.clock.Now()
	if err := s.orders.Update(ctx, order); err != nil {
		return "", fmt.Errorf("failed to assign waybill: %w", err)
	}

	s.logger.Info("Assigned waybill", "orderId", orderID, "number", number)
	return number, nil
}

// Generate allocates the next waybill number for a store
func (s *WaybillService) Generate(ctx context.Context, storeID string) (string, error) {
	year := s.clock.Now().Year()
	number, err := s.waybills.NextNumber(ctx, year)
	if err != nil {
		return "", fmt.Errorf("failed to allocate waybill number: %w", err)
	}

	waybill := &domain.Waybill{
		ID:        uuid.New().String(),
		Number:    number,
		StoreID:   storeID,
		CreatedAt: s.clock.Now(),
	}
	if err := s.waybills.Save(ctx, waybill); err != nil {
		return "", fmt.Errorf("failed to save waybill: %w", err)
	}

	return number, nil
}
