package materialcost

import (
	"context"

	"goodsflow/internal/core/id"
	"goodsflow/internal/domain"
	"goodsflow/internal/domain/material"
)

// Repository defines operations for the material cost register.
type Repository interface {
	// Create inserts a new stock record with its history
	Create(ctx context.Context, rec *StockRecord) error

	// GetByMaterial retrieves the record a reference addresses (without history)
	GetByMaterial(ctx context.Context, ref material.Ref) (*StockRecord, error)

	// GetForUpdate retrieves the record with a row lock (without history)
	GetForUpdate(ctx context.Context, ref material.Ref) (*StockRecord, error)

	// Update persists quantity and average price
	Update(ctx context.Context, rec *StockRecord) error

	// GetHistory retrieves the ordered pricing history
	GetHistory(ctx context.Context, recordID id.ID) ([]PriceEvent, error)

	// SaveHistory replaces the pricing history atomically
	SaveHistory(ctx context.Context, recordID id.ID, history []PriceEvent) error

	// List retrieves stock records with filtering
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*StockRecord], error)
}
