package http

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all HTTP routes for the hub service
func SetupRoutes(router *gin.Engine, handlers *Handlers) {
	v1 := router.Group("/api/v1")
	{
		stock := v1.Group("/stock")
		{
			stock.POST("/receive", handlers.ReceiveStock)
			stock.POST("/return", handlers.ReturnStock)
			stock.POST("/transfer", handlers.TransferStock)
			stock.POST("/adjust", handlers.AdjustStock)
			stock.GET("/shelves/:shelfId/products/:productId", handlers.GetShelfStock)
			stock.GET("/movements", handlers.GetMovements)
		}

		orders := v1.Group("/orders")
		{
			orders.POST("", handlers.IngestOrder)
			orders.GET("/:orderId", handlers.GetOrder)
			orders.POST("/:orderId/items/:itemId/cancel", handlers.CancelItem)
			orders.POST("/:orderId/items/:itemId/pick", handlers.CompletePicking)
			orders.POST("/:orderId/items/:itemId/ship", handlers.ShipItem)
			orders.POST("/:orderId/waybill", handlers.GenerateWaybill)
		}

		faultyOrders := v1.Group("/faulty-orders")
		{
			faultyOrders.GET("", handlers.ListFaultyOrders)
			faultyOrders.GET("/:faultyOrderId", handlers.GetFaultyOrder)
			faultyOrders.POST("/:faultyOrderId/retry", handlers.RetryFaultyOrder)
		}

		sync := v1.Group("/sync")
		{
			sync.GET("/logs", handlers.ListSyncLogs)
			sync.GET("/stuck", handlers.ListStuckUpdates)
			sync.POST("/drain", handlers.DrainSyncQueue)
		}
	}
}
