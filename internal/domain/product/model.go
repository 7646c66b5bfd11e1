// Package product provides the finished-good Product catalog.
// Products carry the piece-per-carton packing factor used by the
// carton and piece stock converter.
package product

import (
	"context"
	"strings"

	"goodsflow/internal/core/apperror"
	"goodsflow/internal/core/entity"
)

// DefaultUnitsPerCarton is used when a product has no packing factor.
const DefaultUnitsPerCarton = 1

// Product represents a finished good received from job-work processing.
type Product struct {
	entity.BaseCatalog

	// Name is the unique product name
	Name string `db:"name" json:"name"`

	// UnitsPerCarton is the number of pieces packed per carton
	UnitsPerCarton int `db:"units_per_carton" json:"unitsPerCarton"`

	// Description is an optional detailed description
	Description *string `db:"description" json:"description,omitempty"`
}

// New creates a new Product with required fields.
func New(name string, unitsPerCarton int) *Product {
	if unitsPerCarton <= 0 {
		unitsPerCarton = DefaultUnitsPerCarton
	}
	return &Product{
		BaseCatalog:    entity.NewBaseCatalog(),
		Name:           strings.TrimSpace(name),
		UnitsPerCarton: unitsPerCarton,
	}
}

// Validate implements entity.Validatable interface.
func (p *Product) Validate(ctx context.Context) error {
	if strings.TrimSpace(p.Name) == "" {
		return apperror.NewValidation("product name is required").
			WithDetail("field", "name")
	}

	if p.UnitsPerCarton <= 0 {
		return apperror.NewValidation("units per carton must be positive").
			WithDetail("field", "unitsPerCarton").
			WithDetail("value", p.UnitsPerCarton)
	}

	return nil
}
