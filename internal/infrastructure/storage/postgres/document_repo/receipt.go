package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"goodsflow/internal/core/id"
	"goodsflow/internal/domain"
	"goodsflow/internal/domain/receipt"
	"goodsflow/internal/infrastructure/storage/postgres"
)

const (
	receiptsTable           = "doc_receipts"
	receiptLinesTable       = "doc_receipt_lines"
	receiptCartonLinesTable = "doc_receipt_carton_lines"
)

var receiptLineCols = []string{
	"line_id", "line_no", "material_id", "material_name",
	"ordered_qty", "prev_received_qty", "received_qty", "extra_received_qty",
	"damaged_qty", "balance_qty", "cumulative_qty", "unit_price",
	"used_qty", "remaining_qty",
}

// ReceiptRepo implements receipt.Repository.
type ReceiptRepo struct {
	*BaseDocumentRepo[*receipt.ReceiptDocument]
}

// NewReceiptRepo creates a new receipt document repository.
func NewReceiptRepo(txManager *postgres.TxManager) *ReceiptRepo {
	return &ReceiptRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txManager,
			receiptsTable,
			postgres.ExtractDBColumns[receipt.ReceiptDocument](),
			func() *receipt.ReceiptDocument { return &receipt.ReceiptDocument{} },
		),
	}
}

// GetLines retrieves material lines for a receipt.
func (r *ReceiptRepo) GetLines(ctx context.Context, docID id.ID) ([]receipt.Line, error) {
	q := r.Builder().
		Select(receiptLineCols...).
		From(receiptLinesTable).
		Where(squirrel.Eq{"document_id": docID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []receipt.Line
	if err := pgxscan.Select(ctx, r.querier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}

	return lines, nil
}

// SaveLines replaces material lines for a receipt (delete existing + insert new).
func (r *ReceiptRepo) SaveLines(ctx context.Context, docID id.ID, lines []receipt.Line) error {
	querier := r.querier(ctx)

	deleteSQL := "DELETE FROM " + receiptLinesTable + " WHERE document_id = $1"
	if _, err := querier.Exec(ctx, deleteSQL, docID); err != nil {
		return fmt.Errorf("delete existing lines: %w", err)
	}

	if len(lines) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(receiptLinesTable).
		Columns(append([]string{"document_id"}, receiptLineCols...)...)

	for _, line := range lines {
		q = q.Values(
			docID, line.LineID, line.LineNo, line.MaterialID, line.MaterialName,
			line.OrderedQty, line.PrevReceivedQty, line.ReceivedQty, line.ExtraReceivedQty,
			line.DamagedQty, line.BalanceQty, line.CumulativeQty, line.UnitPrice,
			line.UsedQty, line.RemainingQty,
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

// GetCartonLines retrieves the per-product carton split for a challan receipt.
func (r *ReceiptRepo) GetCartonLines(ctx context.Context, docID id.ID) ([]receipt.CartonLine, error) {
	q := r.Builder().
		Select("line_id", "line_no", "product_name", "cartons", "damaged_pieces").
		From(receiptCartonLinesTable).
		Where(squirrel.Eq{"document_id": docID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []receipt.CartonLine
	if err := pgxscan.Select(ctx, r.querier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get carton lines: %w", err)
	}

	return lines, nil
}

// SaveCartonLines replaces the carton split for a challan receipt.
func (r *ReceiptRepo) SaveCartonLines(ctx context.Context, docID id.ID, lines []receipt.CartonLine) error {
	querier := r.querier(ctx)

	deleteSQL := "DELETE FROM " + receiptCartonLinesTable + " WHERE document_id = $1"
	if _, err := querier.Exec(ctx, deleteSQL, docID); err != nil {
		return fmt.Errorf("delete existing carton lines: %w", err)
	}

	if len(lines) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(receiptCartonLinesTable).
		Columns("document_id", "line_id", "line_no", "product_name", "cartons", "damaged_pieces")

	for _, line := range lines {
		q = q.Values(docID, line.LineID, line.LineNo, line.ProductName, line.Cartons, line.DamagedPieces)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert carton lines: %w", err)
	}

	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert carton lines: %w", err)
	}

	return nil
}

// ListBySource retrieves every receipt against a source document, lines
// included. Lines for all matched receipts are fetched in one round trip.
func (r *ReceiptRepo) ListBySource(ctx context.Context, sourceID id.ID) ([]*receipt.ReceiptDocument, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"source_id": sourceID}).
		Where(squirrel.Eq{"deletion_mark": false}).
		OrderBy("date", "created_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	querier := r.querier(ctx)

	var docs []*receipt.ReceiptDocument
	if err := pgxscan.Select(ctx, querier, &docs, sql, args...); err != nil {
		return nil, fmt.Errorf("list by source: %w", err)
	}

	if len(docs) == 0 {
		return docs, nil
	}

	docIDs := make([]id.ID, len(docs))
	byID := make(map[id.ID]*receipt.ReceiptDocument, len(docs))
	for i, doc := range docs {
		docIDs[i] = doc.ID
		byID[doc.ID] = doc
	}

	type lineRow struct {
		DocumentID id.ID `db:"document_id"`
		receipt.Line
	}

	lq := r.Builder().
		Select(append([]string{"document_id"}, receiptLineCols...)...).
		From(receiptLinesTable).
		Where(squirrel.Eq{"document_id": docIDs}).
		OrderBy("document_id", "line_no")

	lineSQL, lineArgs, err := lq.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lines query: %w", err)
	}

	var rows []lineRow
	if err := pgxscan.Select(ctx, querier, &rows, lineSQL, lineArgs...); err != nil {
		return nil, fmt.Errorf("list lines by source: %w", err)
	}

	for _, row := range rows {
		if doc, ok := byID[row.DocumentID]; ok {
			doc.Lines = append(doc.Lines, row.Line)
		}
	}

	return docs, nil
}

// List retrieves receipts with document-specific filtering.
func (r *ReceiptRepo) List(ctx context.Context, filter receipt.ListFilter) (domain.ListResult[*receipt.ReceiptDocument], error) {
	q := r.baseSelect()

	if filter.SourceID != nil {
		q = q.Where(squirrel.Eq{"source_id": *filter.SourceID})
	}

	if filter.SourceKind != nil {
		q = q.Where(squirrel.Eq{"source_kind": *filter.SourceKind})
	}

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}

	if filter.ReceivedBy != "" {
		q = q.Where(squirrel.ILike{"received_by": "%" + filter.ReceivedBy + "%"})
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
var _ receipt.Repository = (*ReceiptRepo)(nil)
