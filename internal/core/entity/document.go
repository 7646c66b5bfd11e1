package entity

import (
	"context"
	"time"

	"goodsflow/internal/core/apperror"
)

// Document is the base type for business transactions.
// Examples: ReceiptDocument (GRN), SourceDocument (purchase order, challan).
type Document struct {
	BaseDocument

	// Number is the document number (auto-generated, unique within type+year)
	Number string `db:"number" json:"number"`

	// Date is the business date of the document
	Date time.Time `db:"date" json:"date"`

	// Locked marks the document as closed against further edits.
	// Receipts lock when they reach a terminal status or when the
	// source document completes.
	Locked bool `db:"locked" json:"locked"`

	// LockNote explains why the document was locked.
	LockNote string `db:"lock_note" json:"lockNote,omitempty"`

	// Comment is an optional user comment
	Comment string `db:"comment" json:"comment,omitempty"`
}

// NewDocument creates a new Document with generated ID.
func NewDocument() Document {
	return Document{
		BaseDocument: NewBaseDocument(),
		Date:         time.Now().UTC(),
	}
}

// Validate implements Validatable interface.
func (d *Document) Validate(ctx context.Context) error {
	if d.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}
	return nil
}

// CanModify checks if the document can be modified.
// Locked documents reject all edits.
func (d *Document) CanModify() error {
	if d.Locked {
		return apperror.NewBusinessRule(
			apperror.CodeReceiptLocked,
			"document is locked against modification",
		).WithDetail("document_id", d.ID.String()).WithDetail("note", d.LockNote)
	}
	return nil
}

// Lock closes the document against further edits.
func (d *Document) Lock(note string) {
	d.Locked = true
	d.LockNote = note
	d.Touch()
}
