// Package source provides the SourceDocument: the commitment a goods
// receipt reconciles against. Two kinds exist: purchase orders (materials
// ordered from a supplier) and job-work challans (materials sent out for
// subcontracted processing, returned as finished cartons).
package source

import (
	"context"
	"strings"

	"goodsflow/internal/core/apperror"
	"goodsflow/internal/core/entity"
	"goodsflow/internal/core/id"
	"goodsflow/internal/core/types"
	"goodsflow/internal/domain/material"
)

// Kind defines the source document kind.
type Kind string

const (
	KindOrder   Kind = "order"   // purchase order
	KindChallan Kind = "challan" // job-work challan
)

// Status defines the source document lifecycle status.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusPartial   Status = "Partial"
	StatusCompleted Status = "Completed"
	StatusCancelled Status = "Cancelled"
)

// SourceDocument represents a purchase order or a job-work challan.
type SourceDocument struct {
	entity.Document

	// Kind distinguishes orders from challans
	Kind Kind `db:"kind" json:"kind"`

	// PartyName is the supplier (order) or jobber (challan)
	PartyName string `db:"party_name" json:"partyName"`

	// Status is re-derived by the synchronizer after each receipt
	Status Status `db:"status" json:"status"`

	// CartonsSent is the total cartons dispatched (challan only)
	CartonsSent float64 `db:"cartons_sent" json:"cartonsSent,omitempty"`

	// CartonsReturned accumulates across receipts (challan only)
	CartonsReturned float64 `db:"cartons_returned" json:"cartonsReturned,omitempty"`

	// Table part: committed lines
	Lines []Line `db:"-" json:"lines"`
}

// Line represents one committed material or product-group line.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	// Material addressed by ID for orders, by name for challans
	MaterialID   *id.ID `db:"material_id" json:"materialId,omitempty"`
	MaterialName string `db:"material_name" json:"materialName,omitempty"`

	// ProductName groups challan lines under a finished good
	ProductName string `db:"product_name" json:"productName,omitempty"`

	// OrderedQty is the committed quantity (sent quantity for challans)
	OrderedQty float64 `db:"ordered_qty" json:"orderedQty"`

	// ExtraAllowedQty is the over-delivery tolerance (orders only)
	ExtraAllowedQty float64 `db:"extra_allowed_qty" json:"extraAllowedQty"`

	// UnitPrice is the agreed price, used as fallback when a receipt
	// line arrives without one
	UnitPrice types.Money `db:"unit_price" json:"unitPrice"`

	// Aggregates written back by the synchronizer
	ReceivedQty      float64 `db:"received_qty" json:"receivedQty"`
	ExtraReceivedQty float64 `db:"extra_received_qty" json:"extraReceivedQty"`

	// Proportional-usage aggregates (challan only)
	UsedQty      float64 `db:"used_qty" json:"usedQty"`
	RemainingQty float64 `db:"remaining_qty" json:"remainingQty"`
}

// MaterialRef returns the addressing scheme this line uses.
func (l *Line) MaterialRef() material.Ref {
	if l.MaterialID != nil && !id.IsNil(*l.MaterialID) {
		return material.RefByID(*l.MaterialID)
	}
	return material.RefByName(l.MaterialName)
}

// Matches reports whether ref addresses this line's material.
// Orders match by stable ID, challans by normalized name.
func (l *Line) Matches(ref material.Ref) bool {
	if ref.IsByID() {
		return l.MaterialID != nil && *l.MaterialID == *ref.ID
	}
	return strings.EqualFold(
		material.NormalizeName(l.MaterialName),
		material.NormalizeName(ref.Name),
	)
}

// New creates a new SourceDocument.
func New(kind Kind, partyName string) *SourceDocument {
	return &SourceDocument{
		Document:  entity.NewDocument(),
		Kind:      kind,
		PartyName: strings.TrimSpace(partyName),
		Status:    StatusPending,
		Lines:     make([]Line, 0),
	}
}

// AddLine appends a committed line.
func (s *SourceDocument) AddLine(line Line) {
	line.LineID = id.New()
	line.LineNo = len(s.Lines) + 1
	if line.RemainingQty == 0 {
		line.RemainingQty = line.OrderedQty
	}
	s.Lines = append(s.Lines, line)
}

// FindLine locates the line a material reference addresses.
// Returns nil when the material is not committed on this source.
func (s *SourceDocument) FindLine(ref material.Ref) *Line {
	for i := range s.Lines {
		if s.Lines[i].Matches(ref) {
			return &s.Lines[i]
		}
	}
	return nil
}

// CanReceive checks whether a receipt may be recorded against this source.
func (s *SourceDocument) CanReceive() error {
	if s.Status == StatusCancelled {
		return apperror.NewSourceCancelled(s.ID.String())
	}
	return nil
}

// IsFullySatisfied reports whether every commitment is met.
// Orders require exact equality per line; challans compare returned
// cartons against sent cartons within tolerance, since proportional
// splits accumulate rounding.
func (s *SourceDocument) IsFullySatisfied() bool {
	if s.Kind == KindChallan {
		return types.QtyEqual(s.CartonsReturned, s.CartonsSent)
	}
	for i := range s.Lines {
		if s.Lines[i].ReceivedQty != s.Lines[i].OrderedQty {
			return false
		}
	}
	return len(s.Lines) > 0
}

// DeriveStatus recomputes the status from line aggregates.
// Cancelled is sticky and never recomputed.
func (s *SourceDocument) DeriveStatus() Status {
	if s.Status == StatusCancelled {
		return StatusCancelled
	}
	if s.IsFullySatisfied() {
		return StatusCompleted
	}

	anyReceived := s.CartonsReturned > 0
	for i := range s.Lines {
		if s.Lines[i].ReceivedQty > 0 || s.Lines[i].ExtraReceivedQty > 0 {
			anyReceived = true
			break
		}
	}
	if anyReceived {
		return StatusPartial
	}
	return StatusPending
}

// Validate implements entity.Validatable.
func (s *SourceDocument) Validate(ctx context.Context) error {
	if err := s.Document.Validate(ctx); err != nil {
		return err
	}

	switch s.Kind {
	case KindOrder, KindChallan:
	default:
		return apperror.NewValidation("invalid source kind").
			WithDetail("field", "kind").
			WithDetail("value", string(s.Kind))
	}

	if strings.TrimSpace(s.PartyName) == "" {
		return apperror.NewValidation("party name is required").
			WithDetail("field", "partyName")
	}

	if len(s.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	if s.Kind == KindChallan && s.CartonsSent <= 0 {
		return apperror.NewValidation("cartons sent must be positive").
			WithDetail("field", "cartonsSent")
	}

	for i := range s.Lines {
		line := &s.Lines[i]
		if line.MaterialRef().IsZero() {
			return apperror.NewValidation("line material is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if line.OrderedQty <= 0 {
			return apperror.NewValidation("ordered quantity must be positive").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if line.ExtraAllowedQty < 0 {
			return apperror.NewValidation("extra allowed quantity cannot be negative").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if s.Kind == KindChallan && line.ExtraAllowedQty != 0 {
			return apperror.NewValidation("challan lines have no extra allowance").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}

	return nil
}
