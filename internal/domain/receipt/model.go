// Package receipt provides the ReceiptDocument (GRN): the record of
// materials or finished goods physically received against a source
// commitment.
package receipt

import (
	"context"

	"goodsflow/internal/core/apperror"
	"goodsflow/internal/core/entity"
	"goodsflow/internal/core/id"
	"goodsflow/internal/core/types"
	"goodsflow/internal/domain/material"
	"goodsflow/internal/domain/source"
)

// ReceiptDocument represents a goods receipt note.
type ReceiptDocument struct {
	entity.Document

	// SourceID references the order or challan being received against
	SourceID id.ID `db:"source_id" json:"sourceId"`

	// SourceKind is a snapshot of the source document kind
	SourceKind source.Kind `db:"source_kind" json:"sourceKind"`

	// ReceivedBy is the name of the person who received the goods
	ReceivedBy string `db:"received_by" json:"receivedBy"`

	// Status classifies how far the source commitment is satisfied
	Status Status `db:"status" json:"status"`

	// CartonsReturned is the total cartons on this receipt (challan only)
	CartonsReturned float64 `db:"cartons_returned" json:"cartonsReturned,omitempty"`

	// Table part: received lines
	Lines []Line `db:"-" json:"lines"`

	// CartonLines groups returned cartons per finished good (challan only)
	CartonLines []CartonLine `db:"-" json:"cartonLines,omitempty"`
}

// Line represents one received material line.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	// Material addressing, mirrored from the source line
	MaterialID   *id.ID `db:"material_id" json:"materialId,omitempty"`
	MaterialName string `db:"material_name" json:"materialName"`

	// OrderedQty is a snapshot of the source commitment
	OrderedQty float64 `db:"ordered_qty" json:"orderedQty"`

	// PrevReceivedQty is the total received before this receipt
	PrevReceivedQty float64 `db:"prev_received_qty" json:"prevReceivedQty"`

	// ReceivedQty is the quantity received on this receipt
	ReceivedQty float64 `db:"received_qty" json:"receivedQty"`

	// ExtraReceivedQty counts against the over-delivery allowance
	ExtraReceivedQty float64 `db:"extra_received_qty" json:"extraReceivedQty"`

	// DamagedQty is the damaged portion of the received quantity
	DamagedQty float64 `db:"damaged_qty" json:"damagedQty"`

	// BalanceQty is what remains outstanding after this receipt
	BalanceQty float64 `db:"balance_qty" json:"balanceQty"`

	// CumulativeQty is prev + received
	CumulativeQty float64 `db:"cumulative_qty" json:"cumulativeQty"`

	// UnitPrice for the cost ledger; falls back to the source line price
	UnitPrice types.Money `db:"unit_price" json:"unitPrice"`

	// Proportional-usage snapshot (challan receipts)
	UsedQty      float64 `db:"used_qty" json:"usedQty,omitempty"`
	RemainingQty float64 `db:"remaining_qty" json:"remainingQty,omitempty"`
}

// CartonLine records returned cartons for one finished good.
type CartonLine struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	ProductName string  `db:"product_name" json:"productName"`
	Cartons     float64 `db:"cartons" json:"cartons"`

	// DamagedPieces reported within the returned cartons
	DamagedPieces float64 `db:"damaged_pieces" json:"damagedPieces,omitempty"`
}

// MaterialRef returns the addressing scheme of this line.
func (l *Line) MaterialRef() material.Ref {
	if l.MaterialID != nil && !id.IsNil(*l.MaterialID) {
		return material.RefByID(*l.MaterialID)
	}
	return material.RefByName(l.MaterialName)
}

// New creates a receipt shell for a source document.
func New(src *source.SourceDocument, receivedBy string) *ReceiptDocument {
	return &ReceiptDocument{
		Document:   entity.NewDocument(),
		SourceID:   src.ID,
		SourceKind: src.Kind,
		ReceivedBy: receivedBy,
		Status:     StatusPartial,
		Lines:      make([]Line, 0),
	}
}

// Validate implements entity.Validatable.
func (r *ReceiptDocument) Validate(ctx context.Context) error {
	if err := r.Document.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(r.SourceID) {
		return apperror.NewValidation("source document is required").
			WithDetail("field", "sourceId")
	}

	if r.SourceKind == source.KindChallan {
		return r.validateChallan()
	}
	return r.validateOrder()
}

func (r *ReceiptDocument) validateOrder() error {
	if len(r.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	for i := range r.Lines {
		line := &r.Lines[i]
		if line.ReceivedQty < 0 || line.ExtraReceivedQty < 0 {
			return apperror.NewValidation("received quantities cannot be negative").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if line.ReceivedQty == 0 && line.ExtraReceivedQty == 0 {
			return apperror.NewValidation("line must receive a positive quantity").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if types.QtyExceeds(line.DamagedQty, line.ReceivedQty+line.ExtraReceivedQty) {
			return apperror.NewDamagedExceedsReceived(
				line.MaterialName,
				line.DamagedQty,
				line.ReceivedQty+line.ExtraReceivedQty,
			)
		}
		if line.UnitPrice.IsNegative() {
			return apperror.NewValidation("unit price cannot be negative").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}
	return nil
}

func (r *ReceiptDocument) validateChallan() error {
	if r.CartonsReturned <= 0 {
		return apperror.NewValidation("cartons returned must be positive").
			WithDetail("field", "cartonsReturned")
	}

	var total float64
	for i := range r.CartonLines {
		cl := &r.CartonLines[i]
		if cl.ProductName == "" {
			return apperror.NewValidation("carton line product is required").
				WithDetail("field", "cartonLines").
				WithDetail("lineNo", i+1)
		}
		if cl.Cartons <= 0 {
			return apperror.NewValidation("carton line quantity must be positive").
				WithDetail("field", "cartonLines").
				WithDetail("lineNo", i+1)
		}
		total += cl.Cartons
	}
	if len(r.CartonLines) > 0 && !types.QtyEqual(total, r.CartonsReturned) {
		return apperror.NewValidation("carton lines must sum to cartons returned").
			WithDetail("cartonsReturned", r.CartonsReturned).
			WithDetail("cartonLinesTotal", total)
	}
	return nil
}

// CanModify rejects edits once a receipt has left the Partial state.
func (r *ReceiptDocument) CanModify() error {
	if r.Status != StatusPartial {
		return apperror.NewReceiptLocked(r.ID.String(), string(r.Status))
	}
	return r.Document.CanModify()
}
