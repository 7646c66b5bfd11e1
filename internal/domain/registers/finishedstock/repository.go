package finishedstock

import (
	"context"

	"goodsflow/internal/domain"
)

// Repository defines operations for the finished-goods stock register.
type Repository interface {
	// Create inserts a new stock record
	Create(ctx context.Context, stock *FinishedGoodStock) error

	// GetByProduct retrieves the record for a product name
	GetByProduct(ctx context.Context, productName string) (*FinishedGoodStock, error)

	// GetForUpdate retrieves the record with a row lock
	GetForUpdate(ctx context.Context, productName string) (*FinishedGoodStock, error)

	// Update persists pool counts
	Update(ctx context.Context, stock *FinishedGoodStock) error

	// List retrieves stock records with filtering
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*FinishedGoodStock], error)
}
