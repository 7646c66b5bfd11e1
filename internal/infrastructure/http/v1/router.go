// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"goodsflow/internal/domain/material"
	"goodsflow/internal/domain/product"
	"goodsflow/internal/domain/receipt"
	"goodsflow/internal/domain/registers/finishedstock"
	"goodsflow/internal/domain/registers/materialcost"
	"goodsflow/internal/domain/source"
	"goodsflow/internal/infrastructure/http/v1/handlers"
	"goodsflow/internal/infrastructure/http/v1/middleware"
	"goodsflow/internal/infrastructure/storage/postgres"
	"goodsflow/pkg/logger"
)

// RouterConfig holds the wired services the API exposes.
type RouterConfig struct {
	Pool   *postgres.Pool
	Logger *logger.Logger

	// JWTValidator for token validation; nil disables authentication
	// (local development only).
	JWTValidator middleware.JWTValidator

	Receipts  *receipt.Service
	Sources   *source.Service
	Materials *material.Service
	Products  *product.Service
	Costs     *materialcost.Service
	Finished  *finishedstock.Service
	Audit     *postgres.AuditService
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	v1 := router.Group("/api/v1")
	if cfg.JWTValidator != nil {
		v1.Use(middleware.Auth(cfg.JWTValidator))
	}

	base := handlers.NewBaseHandler()

	// --- Catalogs ---
	{
		handler := handlers.NewMaterialHandler(base, cfg.Materials)
		g := v1.Group("/catalog/material")
		g.POST("", handler.Create)
		g.GET("", handler.List)
		g.GET("/:id", handler.Get)
		g.PUT("/:id", handler.Update)
		g.POST("/:id/deletion-mark", handler.SetDeletionMark)
	}
	{
		handler := handlers.NewProductHandler(base, cfg.Products)
		g := v1.Group("/catalog/product")
		g.POST("", handler.Create)
		g.GET("", handler.List)
		g.GET("/:id", handler.Get)
		g.PUT("/:id", handler.Update)
		g.POST("/:id/deletion-mark", handler.SetDeletionMark)
	}

	// --- Documents ---
	{
		handler := handlers.NewSourceHandler(base, cfg.Sources)
		g := v1.Group("/document/source")
		g.POST("", handler.Create)
		g.GET("", handler.List)
		g.GET("/:id", handler.Get)
		g.PUT("/:id", handler.Update)
		g.POST("/:id/cancel", middleware.RequireRole("supervisor"), handler.Cancel)
	}
	{
		handler := handlers.NewReceiptHandler(base, cfg.Receipts, cfg.Sources, cfg.Audit)
		g := v1.Group("/document/receipt")
		g.POST("", handler.Create)
		g.GET("", handler.List)
		g.GET("/:id", handler.Get)
		g.PUT("/:id", handler.Update)
		g.GET("/:id/history", handler.History)

		// Pending balances live under the source they belong to.
		v1.GET("/source/:id/pending", handler.Pending)
	}

	// --- Registers ---
	{
		handler := handlers.NewStockHandler(base, cfg.Costs, cfg.Finished)
		g := v1.Group("/register")
		g.POST("/material-cost", handler.CreateCostRecord)
		g.GET("/material-cost", handler.ListCostRecords)
		g.GET("/material-cost/record", handler.GetCostRecord)
		g.POST("/material-cost/rebuild", middleware.RequireRole("supervisor"), handler.RebuildCostRecord)

		g.GET("/finished-stock", handler.ListFinishedStock)
		g.GET("/finished-stock/:product", handler.GetFinishedStock)
		g.POST("/finished-stock/:product/add", handler.AddFinishedStock)
		g.POST("/finished-stock/:product/deduct", handler.DeductFinishedStock)
	}

	return router
}
