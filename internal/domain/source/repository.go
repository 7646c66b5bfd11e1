package source

import (
	"context"
	"time"

	"goodsflow/internal/core/id"
	"goodsflow/internal/domain"
)

// Repository defines operations for source documents.
type Repository interface {
	// CRUD operations
	Create(ctx context.Context, doc *SourceDocument) error
	GetByID(ctx context.Context, docID id.ID) (*SourceDocument, error)
	GetByNumber(ctx context.Context, number string) (*SourceDocument, error)
	Update(ctx context.Context, doc *SourceDocument) error

	// Line operations
	GetLines(ctx context.Context, docID id.ID) ([]Line, error)
	SaveLines(ctx context.Context, docID id.ID, lines []Line) error

	// List operations
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*SourceDocument], error)

	// GetForUpdate retrieves the document with a row lock, serializing
	// concurrent receipt submissions against the same source.
	GetForUpdate(ctx context.Context, docID id.ID) (*SourceDocument, error)
}

// ListFilter for filtering source documents.
type ListFilter struct {
	domain.ListFilter

	// Document-specific filters
	Kind      *Kind
	Status    *Status
	PartyName string
	DateFrom  *time.Time
	DateTo    *time.Time
}
