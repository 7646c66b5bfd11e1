// Package main is the entry point for the goodsflow effects relay.
// It retries secondary effects the API server parked in the outbox.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"goodsflow/internal/domain/effects"
	"goodsflow/internal/domain/product"
	"goodsflow/internal/domain/receipt"
	"goodsflow/internal/domain/registers/finishedstock"
	"goodsflow/internal/domain/registers/materialcost"
	"goodsflow/internal/infrastructure/storage/postgres"
	"goodsflow/internal/infrastructure/storage/postgres/catalog_repo"
	"goodsflow/internal/infrastructure/storage/postgres/document_repo"
	"goodsflow/internal/infrastructure/storage/postgres/register_repo"
	"goodsflow/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting goodsflow effects relay")

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)

	receiptRepo := document_repo.NewReceiptRepo(txManager)
	sourceRepo := document_repo.NewSourceRepo(txManager)
	productRepo := catalog_repo.NewProductRepo(txManager)
	costRepo := register_repo.NewMaterialCostRepo(txManager)
	finishedRepo := register_repo.NewFinishedStockRepo(txManager)

	productService := product.NewService(productRepo, txManager)
	costService := materialcost.NewService(costRepo)
	finishedService := finishedstock.NewService(finishedRepo, productService)
	synchronizer := receipt.NewSynchronizer(sourceRepo, receiptRepo, txManager)

	// No outbox writer here: a failed retry stays in the outbox with its
	// retry count bumped, re-parking it would duplicate the row.
	engine := effects.NewEngine(nil)
	receipt.RegisterEffectHandlers(engine, costService, finishedService, synchronizer, txManager)

	relay := postgres.NewOutboxRelay(
		pool.Unwrap(),
		getEnvInt("OUTBOX_BATCH_SIZE", 50),
		engineHandler{engine: engine},
	)

	pollInterval := getEnvDuration("OUTBOX_POLL_INTERVAL", 5*time.Second)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		run(ctx, log, relay, pollInterval)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down relay...")
	cancel()
	wg.Wait()
	log.Info("relay stopped")
}

// run polls the outbox until the context is cancelled. Exhausted messages
// move to the dead-letter queue hourly.
func run(ctx context.Context, log *logger.Logger, relay *postgres.OutboxRelay, pollInterval time.Duration) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	dlqTicker := time.NewTicker(1 * time.Hour)
	defer dlqTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			processed, err := relay.ProcessBatch(ctx)
			if err != nil {
				log.Errorw("outbox batch failed", "error", err)
				continue
			}
			if processed > 0 {
				log.Infow("processed outbox batch", "count", processed)
			}

		case <-dlqTicker.C:
			moved, err := relay.MoveToDLQ(ctx)
			if err != nil {
				log.Errorw("dead-letter sweep failed", "error", err)
				continue
			}
			if moved > 0 {
				log.Warnw("moved exhausted effects to dead-letter queue", "count", moved)
			}
		}
	}
}

// engineHandler adapts the effects engine to the outbox relay contract.
type engineHandler struct {
	engine *effects.Engine
}

func (h engineHandler) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	return h.engine.Handle(ctx, effects.Kind(msg.Kind), msg.Payload)
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
