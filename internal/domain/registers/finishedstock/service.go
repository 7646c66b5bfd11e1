// Package finishedstock provides the finished-goods stock register service.
package finishedstock

import (
	"context"
	"fmt"

	"goodsflow/internal/core/apperror"
	"goodsflow/internal/domain"
	"goodsflow/pkg/logger"
)

// UnitsPerCartonResolver looks up the packing factor for a product name.
// Unknown products resolve to 1.
type UnitsPerCartonResolver interface {
	UnitsPerCarton(ctx context.Context, productName string) (int, error)
}

// Service provides business operations for the finished-goods register.
// Transactions are managed by the caller.
type Service struct {
	repo     Repository
	products UnitsPerCartonResolver
}

// NewService creates a new finished-goods stock service.
func NewService(repo Repository, products UnitsPerCartonResolver) *Service {
	return &Service{repo: repo, products: products}
}

// getOrCreate loads the stock record for a product, creating an empty one
// on first receipt.
func (s *Service) getOrCreate(ctx context.Context, productName string) (*FinishedGoodStock, error) {
	stock, err := s.repo.GetForUpdate(ctx, productName)
	if err == nil {
		return stock, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, err
	}

	upc, err := s.products.UnitsPerCarton(ctx, productName)
	if err != nil {
		return nil, fmt.Errorf("resolve units per carton: %w", err)
	}

	stock = NewFinishedGoodStock(productName, upc)
	if err := s.repo.Create(ctx, stock); err != nil {
		return nil, fmt.Errorf("create stock record: %w", err)
	}
	return stock, nil
}

// Add receives cartons of a finished good.
func (s *Service) Add(ctx context.Context, productName string, cartons float64) error {
	stock, err := s.getOrCreate(ctx, productName)
	if err != nil {
		return err
	}

	if err := stock.Add(cartons); err != nil {
		return err
	}
	stock.Touch()

	if err := s.repo.Update(ctx, stock); err != nil {
		return fmt.Errorf("update stock: %w", err)
	}

	logger.Info(ctx, "added finished goods to stock",
		"product", productName,
		"cartons", cartons,
	)
	return nil
}

// AddDamaged adjusts the damaged pieces reported on receipts. Receipt
// edits send negative deltas to withdraw earlier reports.
func (s *Service) AddDamaged(ctx context.Context, productName string, pieces float64) error {
	if pieces == 0 {
		return nil
	}

	stock, err := s.getOrCreate(ctx, productName)
	if err != nil {
		return err
	}

	stock.AddDamaged(pieces)
	stock.Touch()

	if err := s.repo.Update(ctx, stock); err != nil {
		return fmt.Errorf("update stock: %w", err)
	}

	logger.Info(ctx, "recorded damaged finished goods",
		"product", productName,
		"pieces", pieces,
	)
	return nil
}

// Deduct removes stock in cartons or pieces, breaking cartons as needed.
func (s *Service) Deduct(ctx context.Context, productName string, unit DeductUnit, quantity float64) error {
	stock, err := s.repo.GetForUpdate(ctx, productName)
	if err != nil {
		return err
	}

	if err := stock.Deduct(unit, quantity); err != nil {
		return err
	}
	stock.Touch()

	if err := s.repo.Update(ctx, stock); err != nil {
		return fmt.Errorf("update stock: %w", err)
	}

	logger.Info(ctx, "deducted finished goods from stock",
		"product", productName,
		"unit", unit,
		"quantity", quantity,
	)
	return nil
}

// Get retrieves the stock record for a product.
func (s *Service) Get(ctx context.Context, productName string) (*FinishedGoodStock, error) {
	return s.repo.GetByProduct(ctx, productName)
}

// List retrieves stock records with filtering.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*FinishedGoodStock], error) {
	return s.repo.List(ctx, filter)
}
