// Package main is the entry point for the goodsflow API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"goodsflow/internal/domain"
	"goodsflow/internal/domain/audit"
	"goodsflow/internal/domain/auth"
	"goodsflow/internal/domain/effects"
	"goodsflow/internal/domain/material"
	"goodsflow/internal/domain/product"
	"goodsflow/internal/domain/receipt"
	"goodsflow/internal/domain/registers/finishedstock"
	"goodsflow/internal/domain/registers/materialcost"
	"goodsflow/internal/domain/source"
	v1 "goodsflow/internal/infrastructure/http/v1"
	"goodsflow/internal/infrastructure/http/v1/middleware"
	"goodsflow/internal/infrastructure/storage/postgres"
	"goodsflow/internal/infrastructure/storage/postgres/catalog_repo"
	"goodsflow/internal/infrastructure/storage/postgres/document_repo"
	"goodsflow/internal/infrastructure/storage/postgres/register_repo"
	"goodsflow/pkg/logger"
	"goodsflow/pkg/numerator"
)

func main() {
	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting goodsflow server")

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	if maxConns := getEnvInt("DB_MAX_CONNS", 0); maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- Numbering ---
	// The numerator uses its own pool connection so cached ranges survive
	// request transaction rollbacks.
	numbers := numerator.New(pool)

	// --- Repositories ---
	receiptRepo := document_repo.NewReceiptRepo(txManager)
	sourceRepo := document_repo.NewSourceRepo(txManager)
	materialRepo := catalog_repo.NewMaterialRepo(txManager)
	productRepo := catalog_repo.NewProductRepo(txManager)
	costRepo := register_repo.NewMaterialCostRepo(txManager)
	finishedRepo := register_repo.NewFinishedStockRepo(txManager)

	// --- Services ---
	materialService := material.NewService(materialRepo, txManager)
	productService := product.NewService(productRepo, txManager)
	sourceService := source.NewService(sourceRepo, numbers, txManager)
	costService := materialcost.NewService(costRepo)
	finishedService := finishedstock.NewService(finishedRepo, productService)

	// --- Secondary effects ---
	outbox := postgres.NewOutboxWriter(txManager)
	engine := effects.NewEngine(outbox)

	var policy *receipt.AcceptancePolicy
	if expr := getEnv("ACCEPTANCE_POLICY", ""); expr != "" {
		policy, err = receipt.NewAcceptancePolicy(expr)
		if err != nil {
			log.Fatalw("invalid acceptance policy expression", "error", err)
		}
		log.Info("acceptance policy loaded")
	}

	receiptService := receipt.NewService(receiptRepo, sourceRepo, numbers, txManager, engine, policy)
	synchronizer := receipt.NewSynchronizer(sourceRepo, receiptRepo, txManager)

	receipt.RegisterEffectHandlers(engine, costService, finishedService, synchronizer, txManager)

	// --- Audit ---
	auditService, err := postgres.NewAuditService(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit service", "error", err)
	}
	registerAuditHooks(receiptService, sourceService, auditService)

	// --- JWT ---
	// An empty secret disables authentication; local development only.
	var jwtValidator middleware.JWTValidator
	if secret := getEnv("JWT_SECRET", ""); secret != "" {
		jwtValidator = auth.NewJWTService(auth.DefaultJWTConfig(secret))
	} else {
		log.Warn("JWT_SECRET not set, API authentication is disabled")
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:         pool,
		Logger:       log,
		JWTValidator: jwtValidator,
		Receipts:     receiptService,
		Sources:      sourceService,
		Materials:    materialService,
		Products:     productService,
		Costs:        costService,
		Finished:     finishedService,
		Audit:        auditService,
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

// registerAuditHooks stamps audit fields from the request user and writes
// compressed document snapshots after every mutation.
func registerAuditHooks(
	receipts *receipt.Service,
	sources *source.Service,
	audits *postgres.AuditService,
) {
	receipts.Hooks().On(domain.BeforeCreate, func(ctx context.Context, doc *receipt.ReceiptDocument) error {
		audit.EnrichCreatedBy(ctx, &doc.CreatedBy, &doc.UpdatedBy)
		return nil
	})
	receipts.Hooks().On(domain.BeforeUpdate, func(ctx context.Context, doc *receipt.ReceiptDocument) error {
		audit.EnrichUpdatedBy(ctx, &doc.UpdatedBy)
		return nil
	})
	receipts.Hooks().On(domain.AfterCreate, func(ctx context.Context, doc *receipt.ReceiptDocument) error {
		return audits.LogSnapshot(ctx, "receipt", doc.ID, postgres.AuditActionCreate, doc)
	})
	receipts.Hooks().On(domain.AfterUpdate, func(ctx context.Context, doc *receipt.ReceiptDocument) error {
		return audits.LogSnapshot(ctx, "receipt", doc.ID, postgres.AuditActionUpdate, doc)
	})

	sources.Hooks().On(domain.BeforeCreate, func(ctx context.Context, doc *source.SourceDocument) error {
		audit.EnrichCreatedBy(ctx, &doc.CreatedBy, &doc.UpdatedBy)
		return nil
	})
	sources.Hooks().On(domain.BeforeUpdate, func(ctx context.Context, doc *source.SourceDocument) error {
		audit.EnrichUpdatedBy(ctx, &doc.UpdatedBy)
		return nil
	})
	sources.Hooks().On(domain.AfterCreate, func(ctx context.Context, doc *source.SourceDocument) error {
		return audits.LogSnapshot(ctx, "source", doc.ID, postgres.AuditActionCreate, doc)
	})
	sources.Hooks().On(domain.AfterUpdate, func(ctx context.Context, doc *source.SourceDocument) error {
		return audits.LogSnapshot(ctx, "source", doc.ID, postgres.AuditActionUpdate, doc)
	})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
