// Package register_repo provides PostgreSQL implementations for register repositories.
package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"goodsflow/internal/core/apperror"
	"goodsflow/internal/core/id"
	"goodsflow/internal/domain"
	"goodsflow/internal/domain/material"
	"goodsflow/internal/domain/registers/materialcost"
	"goodsflow/internal/infrastructure/storage/postgres"
)

const (
	materialCostTable       = "reg_material_cost"
	materialCostEventsTable = "reg_material_cost_events"
)

var materialCostCols = []string{
	"id", "deletion_mark", "version",
	"material_id", "material_name", "quantity", "per_unit_price",
}

var priceEventCols = []string{
	"id", "record_id", "seq", "kind", "quantity", "unit_price",
	"receipt_id", "receipt_number", "occurred_at",
}

// MaterialCostRepo implements materialcost.Repository.
type MaterialCostRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewMaterialCostRepo creates a new material cost register repository.
func NewMaterialCostRepo(txManager *postgres.TxManager) *MaterialCostRepo {
	return &MaterialCostRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *MaterialCostRepo) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

// Create inserts a new stock record together with its history.
func (r *MaterialCostRepo) Create(ctx context.Context, rec *materialcost.StockRecord) error {
	q := r.builder.Insert(materialCostTable).
		Columns(materialCostCols...).
		Values(
			rec.ID, rec.DeletionMark, rec.Version,
			rec.MaterialID, rec.MaterialName, rec.Quantity, rec.PerUnitPrice,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert stock record: %w", err)
	}

	if len(rec.History) > 0 {
		return r.SaveHistory(ctx, rec.ID, rec.History)
	}

	return nil
}

// refCondition builds the WHERE clause for a material reference.
// ID references match the material FK, name references match the
// denormalized material name case-insensitively.
func refCondition(ref material.Ref) squirrel.Sqlizer {
	if ref.IsByID() {
		return squirrel.Eq{"material_id": *ref.ID}
	}
	return squirrel.Expr("LOWER(material_name) = LOWER(?)", material.NormalizeName(ref.Name))
}

// GetByMaterial retrieves the record a reference addresses (without history).
func (r *MaterialCostRepo) GetByMaterial(ctx context.Context, ref material.Ref) (*materialcost.StockRecord, error) {
	return r.getByRef(ctx, ref, false)
}

// GetForUpdate retrieves the record with a row lock (without history).
func (r *MaterialCostRepo) GetForUpdate(ctx context.Context, ref material.Ref) (*materialcost.StockRecord, error) {
	return r.getByRef(ctx, ref, true)
}

func (r *MaterialCostRepo) getByRef(ctx context.Context, ref material.Ref, forUpdate bool) (*materialcost.StockRecord, error) {
	q := r.builder.Select(materialCostCols...).
		From(materialCostTable).
		Where(refCondition(ref)).
		Where(squirrel.Eq{"deletion_mark": false})

	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	} else {
		q = q.Limit(1)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rec materialcost.StockRecord
	if err := pgxscan.Get(ctx, r.querier(ctx), &rec, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(materialCostTable, ref.String())
		}
		return nil, fmt.Errorf("get stock record: %w", err)
	}

	return &rec, nil
}

// Update persists quantity and average price with optimistic locking.
func (r *MaterialCostRepo) Update(ctx context.Context, rec *materialcost.StockRecord) error {
	// Services Touch the entity before Update, so rec.Version is already
	// incremented. The version predicate still guards writers that skipped
	// the FOR UPDATE path.
	q := r.builder.Update(materialCostTable).
		Set("material_name", rec.MaterialName).
		Set("quantity", rec.Quantity).
		Set("per_unit_price", rec.PerUnitPrice).
		Set("version", rec.Version).
		Where(squirrel.Eq{"id": rec.ID}).
		Where(squirrel.Lt{"version": rec.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update stock record: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(materialCostTable, rec.ID)
	}

	return nil
}

// GetHistory retrieves the ordered pricing history for a record.
func (r *MaterialCostRepo) GetHistory(ctx context.Context, recordID id.ID) ([]materialcost.PriceEvent, error) {
	q := r.builder.Select(priceEventCols...).
		From(materialCostEventsTable).
		Where(squirrel.Eq{"record_id": recordID}).
		OrderBy("seq")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var history []materialcost.PriceEvent
	if err := pgxscan.Select(ctx, r.querier(ctx), &history, sql, args...); err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}

	return history, nil
}

// SaveHistory replaces the pricing history atomically (delete + insert).
// Callers run this inside the same transaction as Update.
func (r *MaterialCostRepo) SaveHistory(ctx context.Context, recordID id.ID, history []materialcost.PriceEvent) error {
	querier := r.querier(ctx)

	deleteSQL := "DELETE FROM " + materialCostEventsTable + " WHERE record_id = $1"
	if _, err := querier.Exec(ctx, deleteSQL, recordID); err != nil {
		return fmt.Errorf("delete existing history: %w", err)
	}

	if len(history) == 0 {
		return nil
	}

	q := r.builder.Insert(materialCostEventsTable).Columns(priceEventCols...)
	for _, ev := range history {
		q = q.Values(
			ev.ID, recordID, ev.Seq, ev.Kind, ev.Quantity, ev.UnitPrice,
			ev.ReceiptID, ev.ReceiptNumber, ev.OccurredAt,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert history: %w", err)
	}

	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}

	return nil
}

// List retrieves stock records with filtering.
func (r *MaterialCostRepo) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[*materialcost.StockRecord], error) {
	result := domain.ListResult[*materialcost.StockRecord]{
		Limit:  f.Limit,
		Offset: f.Offset,
	}

	q := r.builder.Select(materialCostCols...).
		From(materialCostTable)

	if !f.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}

	if f.Search != "" {
		q = q.Where(squirrel.ILike{"material_name": "%" + f.Search + "%"})
	}

	countQ := r.builder.Select("COUNT(*)").FromSelect(q, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return result, fmt.Errorf("build count: %w", err)
	}

	querier := r.querier(ctx)
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count: %w", err)
	}

	q = q.OrderBy("material_name")

	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return result, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Select(ctx, querier, &result.Items, sql, args...); err != nil {
		return result, fmt.Errorf("select: %w", err)
	}

	return result, nil
}

// Ensure interface compliance.
var _ materialcost.Repository = (*MaterialCostRepo)(nil)
