// Package material provides the Material catalog.
// Materials are the raw and packing items tracked by the cost ledger.
package material

import (
	"context"
	"strings"

	"goodsflow/internal/core/apperror"
	"goodsflow/internal/core/entity"
	"goodsflow/internal/core/id"
)

// Unit defines the unit of measure for a material.
type Unit string

const (
	UnitPiece Unit = "pcs"
	UnitKg    Unit = "kg"
	UnitMeter Unit = "m"
	UnitLiter Unit = "l"
)

// Kind defines the material category.
type Kind string

const (
	KindRaw     Kind = "raw"
	KindPacking Kind = "packing"
)

// Material represents a raw or packing material.
type Material struct {
	entity.BaseCatalog

	// Name is the unique material name
	Name string `db:"name" json:"name"`

	// Kind is the material category
	Kind Kind `db:"kind" json:"kind"`

	// Unit is the unit of measure
	Unit Unit `db:"unit" json:"unit"`

	// Description is an optional detailed description
	Description *string `db:"description" json:"description,omitempty"`
}

// New creates a new Material with required fields.
func New(name string, kind Kind, unit Unit) *Material {
	return &Material{
		BaseCatalog: entity.NewBaseCatalog(),
		Name:        strings.TrimSpace(name),
		Kind:        kind,
		Unit:        unit,
	}
}

// Validate implements entity.Validatable interface.
func (m *Material) Validate(ctx context.Context) error {
	if strings.TrimSpace(m.Name) == "" {
		return apperror.NewValidation("material name is required").
			WithDetail("field", "name")
	}

	switch m.Kind {
	case KindRaw, KindPacking:
	default:
		return apperror.NewValidation("invalid material kind").
			WithDetail("field", "kind").
			WithDetail("value", string(m.Kind))
	}

	switch m.Unit {
	case UnitPiece, UnitKg, UnitMeter, UnitLiter:
	default:
		return apperror.NewValidation("invalid unit of measure").
			WithDetail("field", "unit").
			WithDetail("value", string(m.Unit))
	}

	return nil
}

// --- Material references ---

// Ref addresses a material either by stable ID (order-based sources) or by
// name (job-work challans, where lines carry only the material name).
// Exactly one of the two fields is set.
type Ref struct {
	ID   *id.ID `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// RefByID creates a reference by stable ID.
func RefByID(materialID id.ID) Ref {
	return Ref{ID: &materialID}
}

// RefByName creates a reference by name.
func RefByName(name string) Ref {
	return Ref{Name: strings.TrimSpace(name)}
}

// IsByID reports whether the reference addresses by stable ID.
func (r Ref) IsByID() bool {
	return r.ID != nil && !id.IsNil(*r.ID)
}

// IsZero reports whether the reference is empty.
func (r Ref) IsZero() bool {
	return !r.IsByID() && strings.TrimSpace(r.Name) == ""
}

// String returns a human-readable representation for errors and logs.
func (r Ref) String() string {
	if r.IsByID() {
		return r.ID.String()
	}
	return r.Name
}

// Validate checks that exactly one addressing scheme is used.
func (r Ref) Validate(ctx context.Context) error {
	if r.IsZero() {
		return apperror.NewValidation("material reference is required").
			WithDetail("field", "material")
	}
	if r.IsByID() && strings.TrimSpace(r.Name) != "" {
		return apperror.NewValidation("material reference must use id or name, not both").
			WithDetail("field", "material")
	}
	return nil
}
