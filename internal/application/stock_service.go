package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/resobyte/ambar-hub-sub004/internal/domain"
	"github.com/resobyte/ambar-hub-sub004/internal/pkg/errors"
	"github.com/resobyte/ambar-hub-sub004/internal/pkg/kafka"
	"github.com/resobyte/ambar-hub-sub004/internal/pkg/logging"
	"github.com/resobyte/ambar-hub-sub004/internal/pkg/metrics"
	"github.com/resobyte/ambar-hub-sub004/internal/pkg/outbox"
)

// StockService handles physical stock mutations. Every mutation runs as one
// transaction: the guarded ledger update, the movement row, the aggregate
// delta, the queue enqueue and the outbox event commit or abort together.
type StockService struct {
	tx        domain.TxRunner
	shelves   domain.ShelfStockRepository
	movements domain.StockMovementRepository
	products  domain.ProductStockRepository
	queue     domain.StockUpdateQueueRepository
	outboxRepo outbox.Repository
	logger    *logging.Logger
	metrics   *metrics.Metrics
	// storeID scopes queue rows for mutations that carry no order context
	storeID string
}

// NewStockService creates a new StockService
func NewStockService(
	tx domain.TxRunner,
	shelves domain.ShelfStockRepository,
	movements domain.StockMovementRepository,
	products domain.ProductStockRepository,
	queue domain.StockUpdateQueueRepository,
	outboxRepo outbox.Repository,
	logger *logging.Logger,
	m *metrics.Metrics,
	storeID string,
) *StockService {
	return &StockService{
		tx:         tx,
		shelves:    shelves,
		movements:  movements,
		products:   products,
		queue:      queue,
		outboxRepo: outboxRepo,
		logger:     logger,
		metrics:    m,
		storeID:    storeID,
	}
}

// Receive places purchased stock onto a shelf, creating the ledger row on
// first placement.
func (s *StockService) Receive(ctx context.Context, cmd ReceiveStockCommand) (*ShelfStockDTO, error) {
	if cmd.Quantity <= 0 {
		return nil, errors.ErrValidation("quantity must be positive")
	}

	var updated *domain.ShelfStock
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		row, err := s.shelves.Increment(txCtx, cmd.ShelfID, cmd.ProductID, cmd.Quantity)
		if err != nil {
			return err
		}
		updated = row

		movement := domain.NewStockMovement(
			cmd.ShelfID, cmd.ProductID,
			domain.MovementReceiving, domain.DirectionIn,
			cmd.Quantity, row.Quantity-cmd.Quantity, row.Quantity,
			domain.MovementRef{RouteID: cmd.RouteID, UserID: cmd.UserID},
		)
		return s.recordMovement(txCtx, movement, s.storeID)
	})
	if err != nil {
		s.logger.WithError(err).Error("Failed to receive stock", "shelfId", cmd.ShelfID, "productId", cmd.ProductID)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordMovement(string(domain.MovementReceiving), string(domain.DirectionIn))
	}
	s.logger.Info("Received stock", "shelfId", cmd.ShelfID, "productId", cmd.ProductID, "quantity", cmd.Quantity)
	return ToShelfStockDTO(updated), nil
}

// Return receives a customer return back onto a shelf
func (s *StockService) Return(ctx context.Context, cmd ReturnStockCommand) (*ShelfStockDTO, error) {
	if cmd.Quantity <= 0 {
		return nil, errors.ErrValidation("quantity must be positive")
	}

	var updated *domain.ShelfStock
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		row, err := s.shelves.Increment(txCtx, cmd.ShelfID, cmd.ProductID, cmd.Quantity)
		if err != nil {
			return err
		}
		updated = row

		movement := domain.NewStockMovement(
			cmd.ShelfID, cmd.ProductID,
			domain.MovementReturn, domain.DirectionIn,
			cmd.Quantity, row.Quantity-cmd.Quantity, row.Quantity,
			domain.MovementRef{OrderID: cmd.OrderID, UserID: cmd.UserID},
		)
		return s.recordMovement(txCtx, movement, s.storeID)
	})
	if err != nil {
		s.logger.WithError(err).Error("Failed to receive return", "shelfId", cmd.ShelfID, "productId", cmd.ProductID)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordMovement(string(domain.MovementReturn), string(domain.DirectionIn))
	}
	s.logger.Info("Received return", "shelfId", cmd.ShelfID, "productId", cmd.ProductID, "quantity", cmd.Quantity, "orderId", cmd.OrderID)
	return ToShelfStockDTO(updated), nil
}

// Transfer moves stock between shelves. Both halves run in one transaction;
// the target row is created if absent, and either half failing rolls back
// both.
func (s *StockService) Transfer(ctx context.Context, cmd TransferStockCommand) error {
	if cmd.Quantity <= 0 {
		return errors.ErrValidation("quantity must be positive")
	}
	if cmd.SourceShelfID == cmd.TargetShelfID {
		return errors.ErrValidation("source and target shelf must differ")
	}

	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		source, err := s.shelves.Decrement(txCtx, cmd.SourceShelfID, cmd.ProductID, cmd.Quantity)
		if err != nil {
			return err
		}

		target, err := s.shelves.Increment(txCtx, cmd.TargetShelfID, cmd.ProductID, cmd.Quantity)
		if err != nil {
			return err
		}

		ref := domain.MovementRef{
			SourceShelfID: cmd.SourceShelfID,
			TargetShelfID: cmd.TargetShelfID,
			UserID:        cmd.UserID,
		}
		out := domain.NewStockMovement(
			cmd.SourceShelfID, cmd.ProductID,
			domain.MovementTransfer, domain.DirectionOut,
			cmd.Quantity, source.Quantity+cmd.Quantity, source.Quantity, ref,
		)
		in := domain.NewStockMovement(
			cmd.TargetShelfID, cmd.ProductID,
			domain.MovementTransfer, domain.DirectionIn,
			cmd.Quantity, target.Quantity-cmd.Quantity, target.Quantity, ref,
		)
		if err := s.movements.InsertAll(txCtx, []*domain.StockMovement{out, in}); err != nil {
			return err
		}

		// transfer leaves the product rollup unchanged but still triggers a
		// recompute so per-shelf consumers resync
		entry := domain.NewStockUpdateEntry(
			uuid.New().String(), cmd.ProductID, s.storeID,
			domain.ReasonManual, domain.PriorityLow,
		)
		if err := s.queue.Enqueue(txCtx, entry); err != nil {
			return err
		}

		return s.saveMovementEvents(txCtx, out, in)
	})
	if err != nil {
		s.logger.WithError(err).Error("Failed to transfer stock",
			"sourceShelfId", cmd.SourceShelfID, "targetShelfId", cmd.TargetShelfID, "productId", cmd.ProductID)
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordMovement(string(domain.MovementTransfer), string(domain.DirectionOut))
		s.metrics.RecordMovement(string(domain.MovementTransfer), string(domain.DirectionIn))
	}
	s.logger.Info("Transferred stock",
		"sourceShelfId", cmd.SourceShelfID, "targetShelfId", cmd.TargetShelfID,
		"productId", cmd.ProductID, "quantity", cmd.Quantity)
	return nil
}

// Adjust sets a shelf's physical quantity from a cycle count
func (s *StockService) Adjust(ctx context.Context, cmd AdjustStockCommand) (*ShelfStockDTO, error) {
	if cmd.NewQuantity < 0 {
		return nil, errors.ErrValidation("quantity cannot be negative")
	}

	var updated *domain.ShelfStock
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		row, err := s.shelves.FindByShelfAndProduct(txCtx, cmd.ShelfID, cmd.ProductID)
		if err != nil {
			return err
		}
		if row == nil {
			return errors.ErrNotFound("shelf stock")
		}

		before := row.Quantity
		delta, err := row.AdjustTo(cmd.NewQuantity)
		if err != nil {
			return errors.ErrValidation(err.Error())
		}
		if delta == 0 {
			updated = row
			return nil
		}
		if err := s.shelves.Save(txCtx, row); err != nil {
			return err
		}
		updated = row

		direction := domain.DirectionIn
		qty := delta
		if delta < 0 {
			direction = domain.DirectionOut
			qty = -delta
		}
		movement := domain.NewStockMovement(
			cmd.ShelfID, cmd.ProductID,
			domain.MovementAdjustment, direction,
			qty, before, row.Quantity,
			domain.MovementRef{UserID: cmd.UserID},
		)
		return s.recordMovement(txCtx, movement, s.storeID)
	})
	if err != nil {
		s.logger.WithError(err).Error("Failed to adjust stock", "shelfId", cmd.ShelfID, "productId", cmd.ProductID)
		return nil, err
	}

	s.logger.Info("Adjusted stock", "shelfId", cmd.ShelfID, "productId", cmd.ProductID,
		"newQuantity", cmd.NewQuantity, "reason", cmd.Reason)
	return ToShelfStockDTO(updated), nil
}

// GetShelfStock returns one ledger row
func (s *StockService) GetShelfStock(ctx context.Context, shelfID, productID string) (*ShelfStockDTO, error) {
	row, err := s.shelves.FindByShelfAndProduct(ctx, shelfID, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get shelf stock: %w", err)
	}
	if row == nil {
		return nil, errors.ErrNotFound("shelf stock")
	}
	return ToShelfStockDTO(row), nil
}

// MovementHistory pages through the movement log by product, shelf or order
func (s *StockService) MovementHistory(ctx context.Context, query MovementHistoryQuery) ([]*StockMovementDTO, error) {
	limit := query.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var (
		rows []*domain.StockMovement
		err  error
	)
	switch {
	case query.OrderID != "":
		rows, err = s.movements.FindByOrder(ctx, query.OrderID)
	case query.ShelfID != "":
		rows, err = s.movements.FindByShelf(ctx, query.ShelfID, limit, query.Offset)
	case query.ProductID != "":
		rows, err = s.movements.FindByProduct(ctx, query.ProductID, limit, query.Offset)
	default:
		return nil, errors.ErrBadRequest("one of productId, shelfId or orderId is required")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query movements: %w", err)
	}
	return ToStockMovementDTOs(rows), nil
}

// recordMovement persists the movement row, the rollup delta, the queue
// entry and the outbox event inside the caller's transaction.
func (s *StockService) recordMovement(ctx context.Context, movement *domain.StockMovement, storeID string) error {
	if err := s.movements.Insert(ctx, movement); err != nil {
		return err
	}

	delta := domain.DeltaForMovement(movement.Type, movement.Direction, movement.Quantity)
	if err := s.products.ApplyDelta(ctx, movement.ProductID, storeID, delta); err != nil {
		return err
	}

	reason := movement.Type.QueueReason()
	entry := domain.NewStockUpdateEntry(
		uuid.New().String(), movement.ProductID, storeID,
		reason, domain.PriorityForReason(reason),
	)
	if err := s.queue.Enqueue(ctx, entry); err != nil {
		return err
	}

	return s.saveMovementEvents(ctx, movement)
}

func (s *StockService) saveMovementEvents(ctx context.Context, movements ...*domain.StockMovement) error {
	events := make([]*outbox.Event, 0, len(movements))
	for _, m := range movements {
		domainEvent := &domain.StockMovementRecordedEvent{
			MovementID:     m.ID,
			ShelfID:        m.ShelfID,
			ProductID:      m.ProductID,
			Type:           string(m.Type),
			Direction:      string(m.Direction),
			Quantity:       m.Quantity,
			QuantityBefore: m.QuantityBefore,
			QuantityAfter:  m.QuantityAfter,
			OrderID:        m.OrderID,
			RecordedAt:     time.Now(),
		}
		event, err := outbox.NewEvent(m.ShelfID+":"+m.ProductID, "ShelfStock", kafka.Topics.StockMovements, domainEvent)
		if err != nil {
			return err
		}
		events = append(events, event)
	}
	return s.outboxRepo.SaveAll(ctx, events)
}
