package application

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/resobyte/ambar-hub-sub004/internal/domain"
	"github.com/resobyte/ambar-hub-sub004/internal/pkg/errors"
	"github.com/resobyte/ambar-hub-sub004/internal/pkg/kafka"
	"github.com/resobyte/ambar-hub-sub004/internal/pkg/logging"
	"github.com/resobyte/ambar-hub-sub004/internal/pkg/metrics"
	"github.com/resobyte/ambar-hub-sub004/internal/pkg/outbox"
)

// ShelfSelector orders a product's candidate shelves for greedy
// consumption. The strategy must be deterministic so racing ingestions
// contend on the same rows instead of deadlocking across orders.
type ShelfSelector func(rows []*domain.ShelfStock) []*domain.ShelfStock

// SortOrderSelector consumes shelves by sortOrder, then shelfId
func SortOrderSelector(rows []*domain.ShelfStock) []*domain.ShelfStock {
	sorted := make([]*domain.ShelfStock, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].SortOrder != sorted[j].SortOrder {
			return sorted[i].SortOrder < sorted[j].SortOrder
		}
		return sorted[i].ShelfID < sorted[j].ShelfID
	})
	return sorted
}

// ReservationWorkflow drives the order item state machine:
// UNRESERVED -> RESERVED -> COMMITTED -> SHIPPED, with CANCELLED branches.
// Ingestion is all-or-nothing: either every line reserves fully inside one
// transaction, or the order is quarantined with zero stock effects.
type ReservationWorkflow struct {
	tx         domain.TxRunner
	shelves    domain.ShelfStockRepository
	movements  domain.StockMovementRepository
	products   domain.ProductStockRepository
	catalog    domain.ProductRepository
	orders     domain.OrderRepository
	queue      domain.StockUpdateQueueRepository
	faulty     domain.FaultyOrderRepository
	outboxRepo outbox.Repository
	selector   ShelfSelector
	logger     *logging.Logger
	metrics    *metrics.Metrics
}

// NewReservationWorkflow creates a new ReservationWorkflow
func NewReservationWorkflow(
	tx domain.TxRunner,
	shelves domain.ShelfStockRepository,
	movements domain.StockMovementRepository,
	products domain.ProductStockRepository,
	catalog domain.ProductRepository,
	orders domain.OrderRepository,
	queue domain.StockUpdateQueueRepository,
	faulty domain.FaultyOrderRepository,
	outboxRepo outbox.Repository,
	selector ShelfSelector,
	logger *logging.Logger,
	m *metrics.Metrics,
) *ReservationWorkflow {
	if selector == nil {
		selector = SortOrderSelector
	}
	return &ReservationWorkflow{
		tx:         tx,
		shelves:    shelves,
		movements:  movements,
		products:   products,
		catalog:    catalog,
		orders:     orders,
		queue:      queue,
		faulty:     faulty,
		outboxRepo: outboxRepo,
		selector:   selector,
		logger:     logger,
		metrics:    m,
	}
}

// plannedReservation is one shelf consumption decided during planning
type plannedReservation struct {
	itemIndex int
	shelfID   string
	productID string
	quantity  int
}

// IngestOrder maps marketplace lines to products, plans shelf consumption
// and executes the reservation atomically. Any shortfall, at planning time
// or from a racing loss at execution time, diverts the whole order to
// quarantine.
func (w *ReservationWorkflow) IngestOrder(ctx context.Context, cmd IngestOrderCommand) (*IngestResultDTO, error) {
	if cmd.PackageID == "" || len(cmd.Lines) == 0 {
		return w.quarantine(ctx, cmd, nil, domain.FaultyInvalidData)
	}

	if existing, err := w.orders.FindByPackageID(ctx, cmd.PackageID); err != nil {
		return nil, fmt.Errorf("failed to check package: %w", err)
	} else if existing != nil {
		// re-delivery of an already ingested package is a no-op
		return &IngestResultDTO{Order: ToOrderDTO(existing)}, nil
	}

	barcodes := make([]string, 0, len(cmd.Lines))
	for _, line := range cmd.Lines {
		barcodes = append(barcodes, line.Barcode)
	}
	productsByBarcode, err := w.catalog.FindByBarcodes(ctx, barcodes)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve barcodes: %w", err)
	}

	missing := make([]string, 0)
	for _, line := range cmd.Lines {
		if _, ok := productsByBarcode[line.Barcode]; !ok {
			missing = append(missing, line.Barcode)
		}
	}
	if len(missing) > 0 {
		return w.quarantine(ctx, cmd, missing, domain.FaultyMissingProducts)
	}

	order, plan, missing, err := w.plan(ctx, cmd, productsByBarcode)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return w.quarantine(ctx, cmd, missing, domain.FaultyMissingProducts)
	}

	err = w.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		return w.executePlan(txCtx, order, plan)
	})
	if err != nil {
		if stderrors.Is(err, domain.ErrInsufficientStock) {
			// a racing order consumed stock between planning and execution;
			// re-plan against fresh reads to record the actual shortfall
			shortfall := barcodes
			if _, _, replanned, planErr := w.plan(ctx, cmd, productsByBarcode); planErr == nil && len(replanned) > 0 {
				shortfall = replanned
			}
			return w.quarantine(ctx, cmd, shortfall, domain.FaultyMissingProducts)
		}
		w.logger.WithError(err).Error("Failed to ingest order", "packageId", cmd.PackageID)
		return nil, err
	}

	if w.metrics != nil {
		w.metrics.RecordIngestion(cmd.StoreID, "created")
	}
	w.logger.Info("Ingested order", "packageId", cmd.PackageID, "orderId", order.ID, "items", len(order.Items))
	return &IngestResultDTO{Order: ToOrderDTO(order)}, nil
}

// plan expands SET lines into component requirements and greedily assigns
// shelves without mutating anything. Consumption is tracked in-memory so
// two lines needing the same product do not double-count availability.
func (w *ReservationWorkflow) plan(ctx context.Context, cmd IngestOrderCommand, productsByBarcode map[string]*domain.Product) (*domain.Order, []plannedReservation, []string, error) {
	order := domain.NewOrder(uuid.New().String(), cmd.PackageID, cmd.OrderNumber, cmd.IntegrationID, cmd.StoreID, cmd.Currency)
	order.CargoProvider = cmd.CargoProvider
	order.DeliveryType = cmd.DeliveryType
	order.ShippingAddress = cmd.ShippingAddress
	order.InvoiceAddress = cmd.InvoiceAddress

	plan := make([]plannedReservation, 0)
	missing := make([]string, 0)
	consumed := make(map[string]int) // productID -> units already planned

	for _, line := range cmd.Lines {
		product := productsByBarcode[line.Barcode]
		price, err := domain.NewMoney(line.UnitPrice, cmd.Currency)
		if err != nil {
			price = domain.ZeroMoney(cmd.Currency)
		}

		for _, req := range product.ExpandRequirements(line.Quantity) {
			item := domain.OrderItem{
				ID:             uuid.New().String(),
				ProductID:      req.ProductID,
				Barcode:        line.Barcode,
				StockCode:      product.StockCode,
				ContentID:      product.ContentID,
				Quantity:       req.Quantity,
				UnitPrice:      price,
				VATRate:        line.VATRate,
				Status:         domain.ItemUnreserved,
				IsSetComponent: req.SetProductID != "",
				SetProductID:   req.SetProductID,
			}
			itemIndex := len(order.Items)
			order.Items = append(order.Items, item)

			rows, err := w.shelves.FindByProduct(ctx, req.ProductID)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("failed to load shelves: %w", err)
			}

			remaining := req.Quantity
			for _, row := range w.selector(rows) {
				available := row.Available() - consumed[row.ShelfID+":"+row.ProductID]
				if available <= 0 {
					continue
				}
				take := available
				if take > remaining {
					take = remaining
				}
				plan = append(plan, plannedReservation{
					itemIndex: itemIndex,
					shelfID:   row.ShelfID,
					productID: req.ProductID,
					quantity:  take,
				})
				consumed[row.ShelfID+":"+row.ProductID] += take
				remaining -= take
				if remaining == 0 {
					break
				}
			}
			if remaining > 0 {
				missing = append(missing, line.Barcode)
				break
			}
		}
	}

	return order, plan, dedupe(missing), nil
}

// executePlan runs the atomic reservation: order insert, guarded shelf
// reserves, rollup deltas, queue rows and the outbox event.
func (w *ReservationWorkflow) executePlan(ctx context.Context, order *domain.Order, plan []plannedReservation) error {
	perProduct := make(map[string]int)
	for _, p := range plan {
		if _, err := w.shelves.Reserve(ctx, p.shelfID, p.productID, p.quantity); err != nil {
			return err
		}
		order.Items[p.itemIndex].Reservations = append(order.Items[p.itemIndex].Reservations, domain.ShelfReservation{
			ShelfID:  p.shelfID,
			Quantity: p.quantity,
		})
		perProduct[p.productID] += p.quantity
	}

	for i := range order.Items {
		order.Items[i].Status = domain.ItemReserved
	}

	entries := make([]*domain.StockUpdateEntry, 0, len(perProduct))
	for productID, qty := range perProduct {
		if err := w.products.ApplyDelta(ctx, productID, order.StoreID, domain.DeltaForReserve(qty)); err != nil {
			return err
		}
		entries = append(entries, domain.NewStockUpdateEntry(
			uuid.New().String(), productID, order.StoreID,
			domain.ReasonOrderCreated, domain.PriorityHigh,
		))
	}
	if err := w.queue.EnqueueAll(ctx, entries); err != nil {
		return err
	}

	if err := w.orders.Save(ctx, order); err != nil {
		return err
	}

	event, err := outbox.NewEvent(order.ID, "Order", kafka.Topics.OrderEvents, &domain.OrderReservedEvent{
		OrderID:    order.ID,
		PackageID:  order.PackageID,
		StoreID:    order.StoreID,
		ItemCount:  len(order.Items),
		ReservedAt: time.Now(),
	})
	if err != nil {
		return err
	}
	return w.outboxRepo.Save(ctx, event)
}

// quarantine diverts the order with zero stock effects. A duplicate
// packageId means the order is already quarantined and is swallowed.
func (w *ReservationWorkflow) quarantine(ctx context.Context, cmd IngestOrderCommand, missingBarcodes []string, reason domain.FaultyReason) (*IngestResultDTO, error) {
	faultyOrder := domain.NewFaultyOrder(
		uuid.New().String(), cmd.IntegrationID, cmd.StoreID,
		cmd.PackageID, cmd.OrderNumber, cmd.RawData, missingBarcodes, reason,
	)

	if err := w.faulty.Insert(ctx, faultyOrder); err != nil {
		if stderrors.Is(err, domain.ErrDuplicatePackage) {
			w.logger.Warn("Package already quarantined", "packageId", cmd.PackageID)
			existing, findErr := w.faulty.FindByPackageID(ctx, cmd.PackageID)
			if findErr == nil && existing != nil {
				return &IngestResultDTO{
					Quarantined:     true,
					FaultyOrderID:   existing.ID,
					MissingBarcodes: existing.MissingBarcodes,
				}, nil
			}
			return &IngestResultDTO{Quarantined: true}, nil
		}
		return nil, fmt.Errorf("failed to quarantine order: %w", err)
	}

	event, err := outbox.NewEvent(faultyOrder.ID, "FaultyOrder", kafka.Topics.FaultyOrders, &domain.OrderQuarantinedEvent{
		FaultyOrderID:   faultyOrder.ID,
		PackageID:       faultyOrder.PackageID,
		StoreID:         faultyOrder.StoreID,
		MissingBarcodes: faultyOrder.MissingBarcodes,
		Reason:          string(reason),
		QuarantinedAt:   time.Now(),
	})
	if err == nil {
		if saveErr := w.outboxRepo.Save(ctx, event); saveErr != nil {
			w.logger.WithError(saveErr).Error("Failed to save quarantine event", "packageId", cmd.PackageID)
		}
	}

	if w.metrics != nil {
		w.metrics.RecordIngestion(cmd.StoreID, "quarantined")
		w.metrics.OrdersQuarantined.Inc()
	}
	w.logger.Warn("Order quarantined",
		"packageId", cmd.PackageID, "reason", reason, "missingBarcodes", missingBarcodes)

	return &IngestResultDTO{
		Quarantined:     true,
		FaultyOrderID:   faultyOrder.ID,
		MissingBarcodes: faultyOrder.MissingBarcodes,
	}, nil
}

// CancelItem cancels one order item. RESERVED items release their shelf
// reservations; COMMITTED items return stock into the designated return
// shelf with a CANCEL movement.
func (w *ReservationWorkflow) CancelItem(ctx context.Context, cmd CancelItemCommand) error {
	order, err := w.orders.FindByID(ctx, cmd.OrderID)
	if err != nil {
		return fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return errors.ErrNotFound("order")
	}
	item := order.Item(cmd.ItemID)
	if item == nil {
		return errors.ErrNotFound("order item")
	}

	prevStatus := item.Status
	if !prevStatus.CanTransition(domain.ItemCancelled) {
		return errors.ErrConflict(fmt.Sprintf("item in status %s cannot be cancelled", prevStatus))
	}
	if prevStatus == domain.ItemCommitted && cmd.ReturnShelfID == "" {
		return errors.ErrValidation("returnShelfId is required to cancel a picked item")
	}

	err = w.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		switch prevStatus {
		case domain.ItemReserved:
			for _, res := range item.Reservations {
				if _, err := w.shelves.Release(txCtx, res.ShelfID, item.ProductID, res.Quantity); err != nil {
					return err
				}
			}
			if err := w.products.ApplyDelta(txCtx, item.ProductID, order.StoreID, domain.DeltaForRelease(item.Quantity)); err != nil {
				return err
			}

		case domain.ItemCommitted:
			row, err := w.shelves.Increment(txCtx, cmd.ReturnShelfID, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			movement := domain.NewStockMovement(
				cmd.ReturnShelfID, item.ProductID,
				domain.MovementCancel, domain.DirectionIn,
				item.Quantity, row.Quantity-item.Quantity, row.Quantity,
				domain.MovementRef{OrderID: order.ID, UserID: cmd.UserID},
			)
			if err := w.movements.Insert(txCtx, movement); err != nil {
				return err
			}
			delta := domain.StockDelta{Stock: item.Quantity, Sellable: item.Quantity, Committed: -item.Quantity}
			if err := w.products.ApplyDelta(txCtx, item.ProductID, order.StoreID, delta); err != nil {
				return err
			}
		}

		if err := order.CancelItem(cmd.ItemID, cmd.Reason); err != nil {
			return err
		}
		if order.AllItemsIn(domain.ItemCancelled) || len(order.ActiveItems()) == 0 {
			order.Status = domain.OrderCancelled
		}
		if err := w.orders.Update(txCtx, order); err != nil {
			return err
		}

		entry := domain.NewStockUpdateEntry(
			uuid.New().String(), item.ProductID, order.StoreID,
			domain.ReasonOrderCancelled, domain.PriorityHigh,
		)
		if err := w.queue.Enqueue(txCtx, entry); err != nil {
			return err
		}

		event, err := outbox.NewEvent(order.ID, "Order", kafka.Topics.OrderEvents, &domain.OrderCancelledEvent{
			OrderID:     order.ID,
			PackageID:   order.PackageID,
			ItemID:      cmd.ItemID,
			Reason:      cmd.Reason,
			CancelledAt: time.Now(),
		})
		if err != nil {
			return err
		}
		return w.outboxRepo.Save(txCtx, event)
	})
	if err != nil {
		w.logger.WithError(err).Error("Failed to cancel item", "orderId", cmd.OrderID, "itemId", cmd.ItemID)
		return err
	}

	if prevStatus == domain.ItemCommitted && w.metrics != nil {
		w.metrics.RecordMovement(string(domain.MovementCancel), string(domain.DirectionIn))
	}
	w.logger.Info("Cancelled order item", "orderId", cmd.OrderID, "itemId", cmd.ItemID, "previousStatus", prevStatus)
	return nil
}

// CompletePicking converts an item's reservation into physical shelf
// decrements with PICKING movements, moving it RESERVED -> COMMITTED.
func (w *ReservationWorkflow) CompletePicking(ctx context.Context, cmd CompletePickingCommand) error {
	order, err := w.orders.FindByID(ctx, cmd.OrderID)
	if err != nil {
		return fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return errors.ErrNotFound("order")
	}
	item := order.Item(cmd.ItemID)
	if item == nil {
		return errors.ErrNotFound("order item")
	}
	if item.Status != domain.ItemReserved {
		return errors.ErrConflict(fmt.Sprintf("item in status %s cannot be picked", item.Status))
	}

	err = w.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		for _, res := range item.Reservations {
			row, err := w.shelves.Decrement(txCtx, res.ShelfID, item.ProductID, res.Quantity)
			if err != nil {
				return err
			}
			movement := domain.NewStockMovement(
				res.ShelfID, item.ProductID,
				domain.MovementPicking, domain.DirectionOut,
				res.Quantity, row.Quantity+res.Quantity, row.Quantity,
				domain.MovementRef{OrderID: order.ID, RouteID: cmd.RouteID, UserID: cmd.UserID},
			)
			if err := w.movements.Insert(txCtx, movement); err != nil {
				return err
			}
		}

		delta := domain.DeltaForMovement(domain.MovementPicking, domain.DirectionOut, item.Quantity)
		if err := w.products.ApplyDelta(txCtx, item.ProductID, order.StoreID, delta); err != nil {
			return err
		}

		if err := order.TransitionItem(cmd.ItemID, domain.ItemCommitted); err != nil {
			return err
		}
		if order.AllItemsIn(domain.ItemCommitted) {
			order.Status = domain.OrderPacked
		} else {
			order.Status = domain.OrderPicking
		}
		if err := w.orders.Update(txCtx, order); err != nil {
			return err
		}

		entry := domain.NewStockUpdateEntry(
			uuid.New().String(), item.ProductID, order.StoreID,
			domain.ReasonStockRemoved, domain.PriorityNormal,
		)
		return w.queue.Enqueue(txCtx, entry)
	})
	if err != nil {
		w.logger.WithError(err).Error("Failed to complete picking", "orderId", cmd.OrderID, "itemId", cmd.ItemID)
		return err
	}

	if w.metrics != nil {
		w.metrics.RecordMovement(string(domain.MovementPicking), string(domain.DirectionOut))
	}
	w.logger.Info("Completed picking", "orderId", cmd.OrderID, "itemId", cmd.ItemID)
	return nil
}

// ShipItem completes a committed item. No shelf mutation happens; the
// committed counter drains from the rollup.
func (w *ReservationWorkflow) ShipItem(ctx context.Context, cmd ShipItemCommand) error {
	order, err := w.orders.FindByID(ctx, cmd.OrderID)
	if err != nil {
		return fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return errors.ErrNotFound("order")
	}
	item := order.Item(cmd.ItemID)
	if item == nil {
		return errors.ErrNotFound("order item")
	}
	if item.Status != domain.ItemCommitted {
		return errors.ErrConflict(fmt.Sprintf("item in status %s cannot be shipped", item.Status))
	}

	err = w.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := w.products.ApplyDelta(txCtx, item.ProductID, order.StoreID, domain.DeltaForShipment(item.Quantity)); err != nil {
			return err
		}
		if err := order.TransitionItem(cmd.ItemID, domain.ItemShipped); err != nil {
			return err
		}
		if order.AllItemsIn(domain.ItemShipped) {
			order.Status = domain.OrderShipped
		}
		return w.orders.Update(txCtx, order)
	})
	if err != nil {
		w.logger.WithError(err).Error("Failed to ship item", "orderId", cmd.OrderID, "itemId", cmd.ItemID)
		return err
	}

	w.logger.Info("Shipped item", "orderId", cmd.OrderID, "itemId", cmd.ItemID)
	return nil
}

// GetOrder returns an order by id
func (w *ReservationWorkflow) GetOrder(ctx context.Context, orderID string) (*OrderDTO, error) {
	order, err := w.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return nil, errors.ErrNotFound("order")
	}
	return ToOrderDTO(order), nil
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
