// Package main rebuilds every material cost record from its event
// history. Run after manual data fixes or suspected aggregate drift.
package main

import (
	"context"
	"fmt"
	"os"

	"goodsflow/internal/domain"
	"goodsflow/internal/domain/material"
	"goodsflow/internal/domain/registers/materialcost"
	"goodsflow/internal/infrastructure/storage/postgres"
	"goodsflow/internal/infrastructure/storage/postgres/register_repo"
	"goodsflow/pkg/logger"
)

const pageSize = 200

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(mustEnv("DATABASE_URL")))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)
	costs := materialcost.NewService(register_repo.NewMaterialCostRepo(txManager))

	rebuilt, failed := 0, 0

	filter := domain.DefaultListFilter()
	filter.Limit = pageSize
	for {
		page, err := costs.List(ctx, filter)
		if err != nil {
			log.Fatalw("failed to list cost records", "error", err)
		}

		for _, rec := range page.Items {
			if err := costs.Rebuild(ctx, material.RefByID(rec.MaterialID)); err != nil {
				log.Errorw("rebuild failed", "material", rec.MaterialName, "error", err)
				failed++
				continue
			}
			rebuilt++
		}

		if len(page.Items) < pageSize {
			break
		}
		filter.Offset += pageSize
	}

	log.Infow("ledger rebuild finished", "rebuilt", rebuilt, "failed", failed)
	if failed > 0 {
		os.Exit(1)
	}
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
