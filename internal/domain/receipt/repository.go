package receipt

import (
	"context"
	"time"

	"goodsflow/internal/core/id"
	"goodsflow/internal/domain"
	"goodsflow/internal/domain/source"
)

// Repository defines operations for receipt documents.
type Repository interface {
	// CRUD operations
	Create(ctx context.Context, doc *ReceiptDocument) error
	GetByID(ctx context.Context, docID id.ID) (*ReceiptDocument, error)
	GetByNumber(ctx context.Context, number string) (*ReceiptDocument, error)
	Update(ctx context.Context, doc *ReceiptDocument) error

	// Line operations
	GetLines(ctx context.Context, docID id.ID) ([]Line, error)
	SaveLines(ctx context.Context, docID id.ID, lines []Line) error
	GetCartonLines(ctx context.Context, docID id.ID) ([]CartonLine, error)
	SaveCartonLines(ctx context.Context, docID id.ID, lines []CartonLine) error

	// ListBySource retrieves every receipt against a source, with lines.
	// Used by the pending calculator and the synchronizer.
	ListBySource(ctx context.Context, sourceID id.ID) ([]*ReceiptDocument, error)

	// List operations
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*ReceiptDocument], error)

	// GetForUpdate retrieves the document with a row lock.
	GetForUpdate(ctx context.Context, docID id.ID) (*ReceiptDocument, error)
}

// ListFilter for filtering receipts.
type ListFilter struct {
	domain.ListFilter

	// Document-specific filters
	SourceID   *id.ID
	SourceKind *source.Kind
	Status     *Status
	ReceivedBy string
	DateFrom   *time.Time
	DateTo     *time.Time
}
