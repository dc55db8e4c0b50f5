package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/resobyte/ambar-hub-sub004/internal/application"
	"github.com/resobyte/ambar-hub-sub004/internal/domain"
	apperrors "github.com/resobyte/ambar-hub-sub004/internal/pkg/errors"
	"github.com/resobyte/ambar-hub-sub004/internal/pkg/middleware"
)

// Handlers holds the HTTP handlers for the hub service
type Handlers struct {
	stock      *application.StockService
	orders     *application.ReservationWorkflow
	quarantine *application.QuarantineService
	waybills   *application.WaybillService
	batcher    *application.SyncBatcher
	logger     *slog.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	stock *application.StockService,
	orders *application.ReservationWorkflow,
	quarantine *application.QuarantineService,
	waybills *application.WaybillService,
	batcher *application.SyncBatcher,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		stock:      stock,
		orders:     orders,
		quarantine: quarantine,
		waybills:   waybills,
		batcher:    batcher,
		logger:     logger,
	}
}

// respondError translates domain sentinels into the standard error shape
func (h *Handlers) respondError(c *gin.Context, err error) {
	responder := middleware.NewErrorResponder(c, h.logger)

	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		responder.RespondWithAppError(apperrors.NewAppError(apperrors.CodeInsufficientStock, "insufficient stock", http.StatusConflict))
	case errors.Is(err, domain.ErrInvalidQuantity):
		responder.RespondWithAppError(apperrors.ErrValidation("quantity must be positive"))
	case errors.Is(err, domain.ErrShelfStockNotFound):
		responder.RespondWithAppError(apperrors.ErrNotFound("shelf stock"))
	case errors.Is(err, domain.ErrProductNotFound):
		responder.RespondWithAppError(apperrors.ErrNotFound("product"))
	case errors.Is(err, domain.ErrOrderNotFound):
		responder.RespondWithAppError(apperrors.ErrNotFound("order"))
	case errors.Is(err, domain.ErrFaultyOrderNotFound):
		responder.RespondWithAppError(apperrors.ErrNotFound("faulty order"))
	case errors.Is(err, domain.ErrInvalidTransition):
		responder.RespondWithAppError(apperrors.ErrConflict(err.Error()))
	case errors.Is(err, domain.ErrDuplicatePackage):
		responder.RespondWithAppError(apperrors.ErrConflict("package already ingested"))
	default:
		responder.Respond(err)
	}
}

// ReceiveStockRequest is the request body for receiving stock
type ReceiveStockRequest struct {
	ShelfID   string `json:"shelfId" binding:"required"`
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
	RouteID   string `json:"routeId"`
	UserID    string `json:"userId"`
}

// ReceiveStock handles POST /api/v1/stock/receive
func (h *Handlers) ReceiveStock(c *gin.Context) {
	var req ReceiveStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.NewErrorResponder(c, h.logger).RespondBadRequest(err.Error())
		return
	}

	stock, err := h.stock.Receive(c.Request.Context(), application.ReceiveStockCommand{
		ShelfID:   req.ShelfID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		RouteID:   req.RouteID,
		UserID:    req.UserID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stock)
}

// ReturnStockRequest is the request body for receiving a customer return
type ReturnStockRequest struct {
	ShelfID   string `json:"shelfId" binding:"required"`
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
	OrderID   string `json:"orderId"`
	UserID    string `json:"userId"`
}

// ReturnStock handles POST /api/v1/stock/return
func (h *Handlers) ReturnStock(c *gin.Context) {
	var req ReturnStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.NewErrorResponder(c, h.logger).RespondBadRequest(err.Error())
		return
	}

	stock, err := h.stock.Return(c.Request.Context(), application.ReturnStockCommand{
		ShelfID:   req.ShelfID,
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		OrderID:   req.OrderID,
		UserID:    req.UserID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stock)
}

// TransferStockRequest is the request body for a shelf-to-shelf transfer
type TransferStockRequest struct {
	SourceShelfID string `json:"sourceShelfId" binding:"required"`
	TargetShelfID string `json:"targetShelfId" binding:"required"`
	ProductID     string `json:"productId" binding:"required"`
	Quantity      int    `json:"quantity" binding:"required,gt=0"`
	UserID        string `json:"userId"`
}

// TransferStock handles POST /api/v1/stock/transfer
func (h *Handlers) TransferStock(c *gin.Context) {
	var req TransferStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.NewErrorResponder(c, h.logger).RespondBadRequest(err.Error())
		return
	}
	if req.SourceShelfID == req.TargetShelfID {
		middleware.NewErrorResponder(c, h.logger).RespondBadRequest("source and target shelves must differ")
		return
	}

	err := h.stock.Transfer(c.Request.Context(), application.TransferStockCommand{
		SourceShelfID: req.SourceShelfID,
		TargetShelfID: req.TargetShelfID,
		ProductID:     req.ProductID,
		Quantity:      req.Quantity,
		UserID:        req.UserID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "transferred"})
}

// AdjustStockRequest is the request body for a cycle count adjustment
type AdjustStockRequest struct {
	ShelfID     string `json:"shelfId" binding:"required"`
	ProductID   string `json:"productId" binding:"required"`
	NewQuantity int    `json:"newQuantity" binding:"gte=0"`
	Reason      string `json:"reason"`
	UserID      string `json:"userId"`
}

// AdjustStock handles POST /api/v1/stock/adjust
func (h *Handlers) AdjustStock(c *gin.Context) {
	var req AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.NewErrorResponder(c, h.logger).RespondBadRequest(err.Error())
		return
	}

	stock, err := h.stock.Adjust(c.Request.Context(), application.AdjustStockCommand{
		ShelfID:     req.ShelfID,
		ProductID:   req.ProductID,
		NewQuantity: req.NewQuantity,
		Reason:      req.Reason,
		UserID:      req.UserID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stock)
}

// GetShelfStock handles GET /api/v1/stock/shelves/:shelfId/products/:productId
func (h *Handlers) GetShelfStock(c *gin.Context) {
	stock, err := h.stock.GetShelfStock(c.Request.Context(), c.Param("shelfId"), c.Param("productId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if stock == nil {
		middleware.NewErrorResponder(c, h.logger).RespondNotFound("shelf stock", c.Param("shelfId")+":"+c.Param("productId"))
		return
	}

	c.JSON(http.StatusOK, stock)
}

// GetMovements handles GET /api/v1/stock/movements
func (h *Handlers) GetMovements(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	query := application.MovementHistoryQuery{
		ProductID: c.Query("productId"),
		ShelfID:   c.Query("shelfId"),
		OrderID:   c.Query("orderId"),
		Limit:     limit,
		Offset:    offset,
	}
	if query.ProductID == "" && query.ShelfID == "" && query.OrderID == "" {
		middleware.NewErrorResponder(c, h.logger).RespondBadRequest("one of productId, shelfId or orderId is required")
		return
	}

	movements, err := h.stock.MovementHistory(c.Request.Context(), query)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"movements": movements, "count": len(movements)})
}

// IngestOrderRequest is the request body for order ingestion
type IngestOrderRequest struct {
	IntegrationID   string                  `json:"integrationId" binding:"required"`
	StoreID         string                  `json:"storeId" binding:"required"`
	PackageID       string                  `json:"packageId" binding:"required"`
	OrderNumber     string                  `json:"orderNumber" binding:"required"`
	Currency        string                  `json:"currency"`
	CargoProvider   string                  `json:"cargoProvider"`
	DeliveryType    string                  `json:"deliveryType"`
	ShippingAddress map[string]interface{}  `json:"shippingAddress"`
	InvoiceAddress  map[string]interface{}  `json:"invoiceAddress"`
	Lines           []IngestOrderLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// IngestOrderLineRequest is one marketplace order line
type IngestOrderLineRequest struct {
	Barcode   string  `json:"barcode" binding:"required"`
	Quantity  int     `json:"quantity" binding:"required,gt=0"`
	UnitPrice int64   `json:"unitPrice" binding:"gte=0"`
	VATRate   float64 `json:"vatRate"`
}

// IngestOrder handles POST /api/v1/orders
func (h *Handlers) IngestOrder(c *gin.Context) {
	var req IngestOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.NewErrorResponder(c, h.logger).RespondBadRequest(err.Error())
		return
	}

	cmd, err := req.toCommand()
	if err != nil {
		middleware.NewErrorResponder(c, h.logger).RespondBadRequest(err.Error())
		return
	}

	result, err := h.orders.IngestOrder(c.Request.Context(), cmd)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if result.Quarantined {
		c.JSON(http.StatusAccepted, result)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// GetOrder handles GET /api/v1/orders/:orderId
func (h *Handlers) GetOrder(c *gin.Context) {
	order, err := h.orders.GetOrder(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if order == nil {
		middleware.NewErrorResponder(c, h.logger).RespondNotFound("order", c.Param("orderId"))
		return
	}

	c.JSON(http.StatusOK, order)
}

// CancelItemRequest is the request body for cancelling an order item
type CancelItemRequest struct {
	Reason        string `json:"reason" binding:"required"`
	ReturnShelfID string `json:"returnShelfId"`
	UserID        string `json:"userId"`
}

// CancelItem handles POST /api/v1/orders/:orderId/items/:itemId/cancel
func (h *Handlers) CancelItem(c *gin.Context) {
	var req CancelItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.NewErrorResponder(c, h.logger).RespondBadRequest(err.Error())
		return
	}

	err := h.orders.CancelItem(c.Request.Context(), application.CancelItemCommand{
		OrderID:       c.Param("orderId"),
		ItemID:        c.Param("itemId"),
		Reason:        req.Reason,
		ReturnShelfID: req.ReturnShelfID,
		UserID:        req.UserID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// CompletePickingRequest is the request body for completing a pick
type CompletePickingRequest struct {
	RouteID string `json:"routeId"`
	UserID  string `json:"userId"`
}

// CompletePicking handles POST /api/v1/orders/:orderId/items/:itemId/pick
func (h *Handlers) CompletePicking(c *gin.Context) {
	var req CompletePickingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.NewErrorResponder(c, h.logger).RespondBadRequest(err.Error())
		return
	}

	err := h.orders.CompletePicking(c.Request.Context(), application.CompletePickingCommand{
		OrderID: c.Param("orderId"),
		ItemID:  c.Param("itemId"),
		RouteID: req.RouteID,
		UserID:  req.UserID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "picked"})
}

// ShipItem handles POST /api/v1/orders/:orderId/items/:itemId/ship
func (h *Handlers) ShipItem(c *gin.Context) {
	err := h.orders.ShipItem(c.Request.Context(), application.ShipItemCommand{
		OrderID: c.Param("orderId"),
		ItemID:  c.Param("itemId"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "shipped"})
}

// GenerateWaybill handles POST /api/v1/orders/:orderId/waybill
func (h *Handlers) GenerateWaybill(c *gin.Context) {
	number, err := h.waybills.GenerateForOrder(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"waybillNumber": number})
}

// ListFaultyOrders handles GET /api/v1/faulty-orders
func (h *Handlers) ListFaultyOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	orders, err := h.quarantine.List(c.Request.Context(), application.ListFaultyOrdersQuery{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"faultyOrders": orders, "count": len(orders)})
}

// GetFaultyOrder handles GET /api/v1/faulty-orders/:faultyOrderId
func (h *Handlers) GetFaultyOrder(c *gin.Context) {
	faulty, err := h.quarantine.Get(c.Request.Context(), c.Param("faultyOrderId"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if faulty == nil {
		middleware.NewErrorResponder(c, h.logger).RespondNotFound("faulty order", c.Param("faultyOrderId"))
		return
	}

	c.JSON(http.StatusOK, faulty)
}

// RetryFaultyOrder handles POST /api/v1/faulty-orders/:faultyOrderId/retry
func (h *Handlers) RetryFaultyOrder(c *gin.Context) {
	result, err := h.quarantine.Retry(c.Request.Context(), application.RetryFaultyOrderCommand{
		FaultyOrderID: c.Param("faultyOrderId"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	if result.Quarantined {
		c.JSON(http.StatusAccepted, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListSyncLogs handles GET /api/v1/sync/logs
func (h *Handlers) ListSyncLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	logs, err := h.batcher.RecentLogs(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": logs, "count": len(logs)})
}

// ListStuckUpdates handles GET /api/v1/sync/stuck
func (h *Handlers) ListStuckUpdates(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	entries, err := h.batcher.Stuck(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

// DrainSyncQueue handles POST /api/v1/sync/drain (manual trigger)
func (h *Handlers) DrainSyncQueue(c *gin.Context) {
	h.batcher.Drain(c.Request.Context())
	c.JSON(http.StatusAccepted, gin.H{"status": "drained"})
}
