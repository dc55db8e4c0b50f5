package application

import "github.com/resobyte/ambar-hub-sub004/internal/domain"

// ToShelfStockDTO converts a ledger row to its DTO
func ToShelfStockDTO(s *domain.ShelfStock) *ShelfStockDTO {
	return &ShelfStockDTO{
		ShelfID:          s.ShelfID,
		ProductID:        s.ProductID,
		Quantity:         s.Quantity,
		ReservedQuantity: s.ReservedQuantity,
		Available:        s.Available(),
		UpdatedAt:        s.UpdatedAt,
	}
}

// ToStockMovementDTO converts a movement row to its DTO
func ToStockMovementDTO(m *domain.StockMovement) *StockMovementDTO {
	return &StockMovementDTO{
		ID:             m.ID,
		ShelfID:        m.ShelfID,
		ProductID:      m.ProductID,
		Type:           string(m.Type),
		Direction:      string(m.Direction),
		Quantity:       m.Quantity,
		QuantityBefore: m.QuantityBefore,
		QuantityAfter:  m.QuantityAfter,
		OrderID:        m.OrderID,
		SourceShelfID:  m.SourceShelfID,
		TargetShelfID:  m.TargetShelfID,
		UserID:         m.UserID,
		CreatedAt:      m.CreatedAt,
	}
}

// ToStockMovementDTOs converts a page of movements
func ToStockMovementDTOs(movements []*domain.StockMovement) []*StockMovementDTO {
	dtos := make([]*StockMovementDTO, len(movements))
	for i, m := range movements {
		dtos[i] = ToStockMovementDTO(m)
	}
	return dtos
}

// ToOrderDTO converts an order with its items
func ToOrderDTO(o *domain.Order) *OrderDTO {
	items := make([]OrderItemDTO, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemDTO{
			ID:             item.ID,
			ProductID:      item.ProductID,
			Barcode:        item.Barcode,
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice.String(),
			VATRate:        item.VATRate,
			Status:         string(item.Status),
			CancelReason:   item.CancelReason,
			IsSetComponent: item.IsSetComponent,
			SetProductID:   item.SetProductID,
		}
	}

	return &OrderDTO{
		ID:            o.ID,
		PackageID:     o.PackageID,
		OrderNumber:   o.OrderNumber,
		StoreID:       o.StoreID,
		Status:        string(o.Status),
		Currency:      o.Currency,
		WaybillNumber: o.WaybillNumber,
		Items:         items,
		CreatedAt:     o.CreatedAt,
	}
}

// ToFaultyOrderDTO converts a quarantined order
func ToFaultyOrderDTO(f *domain.FaultyOrder) *FaultyOrderDTO {
	return &FaultyOrderDTO{
		ID:              f.ID,
		IntegrationID:   f.IntegrationID,
		StoreID:         f.StoreID,
		PackageID:       f.PackageID,
		OrderNumber:     f.OrderNumber,
		MissingBarcodes: f.MissingBarcodes,
		ErrorReason:     string(f.ErrorReason),
		RetryCount:      f.RetryCount,
		CreatedAt:       f.CreatedAt,
	}
}

// ToFaultyOrderDTOs converts a page of quarantined orders
func ToFaultyOrderDTOs(faulty []*domain.FaultyOrder) []*FaultyOrderDTO {
	dtos := make([]*FaultyOrderDTO, len(faulty))
	for i, f := range faulty {
		dtos[i] = ToFaultyOrderDTO(f)
	}
	return dtos
}

// ToSyncLogDTO converts a sync log row
func ToSyncLogDTO(l *domain.StockSyncLog) *SyncLogDTO {
	return &SyncLogDTO{
		BatchID:      l.BatchID,
		StoreID:      l.StoreID,
		Provider:     l.Provider,
		SyncStatus:   string(l.SyncStatus),
		TotalItems:   l.TotalItems,
		SuccessItems: l.SuccessItems,
		FailedItems:  l.FailedItems,
		StatusCode:   l.StatusCode,
		ErrorMessage: l.ErrorMessage,
		DurationMs:   l.DurationMs,
		CreatedAt:    l.CreatedAt,
	}
}

// ToSyncLogDTOs converts a page of sync logs
func ToSyncLogDTOs(logs []*domain.StockSyncLog) []*SyncLogDTO {
	dtos := make([]*SyncLogDTO, len(logs))
	for i, l := range logs {
		dtos[i] = ToSyncLogDTO(l)
	}
	return dtos
}
