package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"goodsflow/internal/core/id"
	"goodsflow/internal/domain"
	"goodsflow/internal/domain/source"
	"goodsflow/internal/infrastructure/storage/postgres"
)

const (
	sourcesTable     = "doc_sources"
	sourceLinesTable = "doc_source_lines"
)

var sourceLineCols = []string{
	"line_id", "line_no", "material_id", "material_name", "product_name",
	"ordered_qty", "extra_allowed_qty", "unit_price",
	"received_qty", "extra_received_qty", "used_qty", "remaining_qty",
}

// SourceRepo implements source.Repository.
type SourceRepo struct {
	*BaseDocumentRepo[*source.SourceDocument]
}

// NewSourceRepo creates a new source document repository.
func NewSourceRepo(txManager *postgres.TxManager) *SourceRepo {
	return &SourceRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			sourcesTable,
			postgres.ExtractDBColumns[source.SourceDocument](),
			func() *source.SourceDocument { return &source.SourceDocument{} },
		),
	}
}

// GetLines retrieves lines for a source document.
func (r *SourceRepo) GetLines(ctx context.Context, docID id.ID) ([]source.Line, error) {
	q := r.Builder().
		Select(sourceLineCols...).
		From(sourceLinesTable).
		Where(squirrel.Eq{"document_id": docID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []source.Line
	if err := pgxscan.Select(ctx, r.querier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}

	return lines, nil
}

// SaveLines replaces lines for a source document (delete existing + insert new).
func (r *SourceRepo) SaveLines(ctx context.Context, docID id.ID, lines []source.Line) error {
	querier := r.querier(ctx)

	deleteSQL := "DELETE FROM " + sourceLinesTable + " WHERE document_id = $1"
	if _, err := querier.Exec(ctx, deleteSQL, docID); err != nil {
		return fmt.Errorf("delete existing lines: %w", err)
	}

	if len(lines) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(sourceLinesTable).
		Columns(append([]string{"document_id"}, sourceLineCols...)...)

	for _, line := range lines {
		q = q.Values(
			docID, line.LineID, line.LineNo, line.MaterialID, line.MaterialName, line.ProductName,
			line.OrderedQty, line.ExtraAllowedQty, line.UnitPrice,
			line.ReceivedQty, line.ExtraReceivedQty, line.UsedQty, line.RemainingQty,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}

	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}

	return nil
}

// List retrieves source documents with document-specific filtering.
func (r *SourceRepo) List(ctx context.Context, filter source.ListFilter) (domain.ListResult[*source.SourceDocument], error) {
	q := r.baseSelect()

	if filter.Kind != nil {
		q = q.Where(squirrel.Eq{"kind": *filter.Kind})
	}

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}

	if filter.PartyName != "" {
		q = q.Where(squirrel.ILike{"party_name": "%" + filter.PartyName + "%"})
	}

	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.DateFrom})
	}

	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"date": *filter.DateTo})
	}

	return r.listQuery(ctx, q, filter.ListFilter)
}

// Ensure interface compliance.
var _ source.Repository = (*SourceRepo)(nil)
