// Package finishedstock provides the finished-goods stock register.
// Stock is held in three pools per product: whole cartons, loose pieces,
// and pieces from broken (opened) cartons.
package finishedstock

import (
	"context"
	"strings"

	"goodsflow/internal/core/apperror"
	"goodsflow/internal/core/entity"
	"goodsflow/internal/core/types"
)

// DeductUnit selects whether a deduction is expressed in cartons or pieces.
type DeductUnit string

const (
	UnitCartons DeductUnit = "cartons"
	UnitPieces  DeductUnit = "pieces"
)

// FinishedGoodStock is the per-product stock state.
type FinishedGoodStock struct {
	entity.BaseEntity

	// ProductName identifies the finished good
	ProductName string `db:"product_name" json:"productName"`

	// UnitsPerCarton is the packing factor captured at record creation
	UnitsPerCarton int `db:"units_per_carton" json:"unitsPerCarton"`

	// AvailableCartons is the count of unopened cartons
	AvailableCartons float64 `db:"available_cartons" json:"availableCartons"`

	// AvailablePieces is the count of loose pieces
	AvailablePieces float64 `db:"available_pieces" json:"availablePieces"`

	// BrokenCartonPieces is the count of pieces from opened cartons
	BrokenCartonPieces float64 `db:"broken_carton_pieces" json:"brokenCartonPieces"`

	// DamagedPieces accumulates damaged stock reported on receipts
	DamagedPieces float64 `db:"damaged_pieces" json:"damagedPieces"`
}

// NewFinishedGoodStock creates an empty stock record for a product.
func NewFinishedGoodStock(productName string, unitsPerCarton int) *FinishedGoodStock {
	if unitsPerCarton <= 0 {
		unitsPerCarton = 1
	}
	return &FinishedGoodStock{
		BaseEntity:     entity.NewBaseEntity(),
		ProductName:    strings.TrimSpace(productName),
		UnitsPerCarton: unitsPerCarton,
	}
}

// Validate implements entity.Validatable.
func (s *FinishedGoodStock) Validate(ctx context.Context) error {
	if strings.TrimSpace(s.ProductName) == "" {
		return apperror.NewValidation("product name is required").
			WithDetail("field", "productName")
	}
	if s.UnitsPerCarton <= 0 {
		return apperror.NewValidation("units per carton must be positive").
			WithDetail("field", "unitsPerCarton")
	}
	return nil
}

// TotalAvailable returns the total piece count across all pools.
func (s *FinishedGoodStock) TotalAvailable() float64 {
	return s.AvailableCartons*float64(s.UnitsPerCarton) + s.AvailablePieces + s.BrokenCartonPieces
}

// Add receives cartons into stock.
func (s *FinishedGoodStock) Add(cartons float64) error {
	if cartons <= 0 {
		return apperror.NewValidation("cartons to add must be positive").
			WithDetail("product", s.ProductName)
	}
	s.AvailableCartons += cartons
	s.clamp()
	return nil
}

// AddDamaged adjusts the damaged pool, kept apart from sellable stock.
// Negative deltas withdraw earlier reports; the pool floors at zero.
func (s *FinishedGoodStock) AddDamaged(pieces float64) {
	s.DamagedPieces = types.ClampQty(s.DamagedPieces + pieces)
}

// Deduct removes stock expressed in the given unit.
func (s *FinishedGoodStock) Deduct(unit DeductUnit, quantity float64) error {
	if quantity <= 0 {
		return apperror.NewValidation("quantity to deduct must be positive").
			WithDetail("product", s.ProductName)
	}

	switch unit {
	case UnitCartons:
		return s.deductCartons(quantity)
	case UnitPieces:
		return s.deductPieces(quantity)
	default:
		return apperror.NewValidation("invalid deduction unit").
			WithDetail("unit", string(unit))
	}
}

func (s *FinishedGoodStock) deductCartons(quantity float64) error {
	if types.QtyExceeds(quantity, s.AvailableCartons) {
		return apperror.NewInsufficientStock(s.ProductName, quantity, s.AvailableCartons)
	}
	s.AvailableCartons -= quantity
	s.clamp()
	return nil
}

// deductPieces consumes broken-carton pieces first, then loose pieces,
// then breaks whole cartons one at a time until the demand is met.
func (s *FinishedGoodStock) deductPieces(quantity float64) error {
	if types.QtyExceeds(quantity, s.TotalAvailable()) {
		return apperror.NewInsufficientStock(s.ProductName, quantity, s.TotalAvailable())
	}

	owed := quantity

	take := min(owed, s.BrokenCartonPieces)
	s.BrokenCartonPieces -= take
	owed -= take

	take = min(owed, s.AvailablePieces)
	s.AvailablePieces -= take
	owed -= take

	for owed > types.QtyTolerance && s.AvailableCartons >= 1 {
		s.AvailableCartons--
		s.BrokenCartonPieces += float64(s.UnitsPerCarton)

		take = min(owed, s.BrokenCartonPieces)
		s.BrokenCartonPieces -= take
		owed -= take
	}

	s.clamp()

	if owed > types.QtyTolerance {
		return apperror.NewInsufficientStock(s.ProductName, quantity, quantity-owed)
	}
	return nil
}

// clamp keeps every pool non-negative after rounding.
func (s *FinishedGoodStock) clamp() {
	s.AvailableCartons = types.ClampQty(s.AvailableCartons)
	s.AvailablePieces = types.ClampQty(s.AvailablePieces)
	s.BrokenCartonPieces = types.ClampQty(s.BrokenCartonPieces)
	s.DamagedPieces = types.ClampQty(s.DamagedPieces)
}

// ProportionalUsage computes job-work material consumption when a partial
// carton return arrives: usedQty is the sent quantity scaled by the
// returned fraction, remainingQty the rest.
func ProportionalUsage(cartonsReturned, cartonsSent, lineSentQty float64) (usedQty, remainingQty float64) {
	if cartonsSent <= 0 {
		return 0, lineSentQty
	}
	usedQty = cartonsReturned / cartonsSent * lineSentQty
	remainingQty = lineSentQty - usedQty
	return usedQty, types.ClampQty(remainingQty)
}
