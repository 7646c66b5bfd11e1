package register_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"goodsflow/internal/core/apperror"
	"goodsflow/internal/domain"
	"goodsflow/internal/domain/registers/finishedstock"
	"goodsflow/internal/infrastructure/storage/postgres"
)

const finishedStockTable = "reg_finished_stock"

var finishedStockCols = []string{
	"id", "deletion_mark", "version",
	"product_name", "units_per_carton",
	"available_cartons", "available_pieces", "broken_carton_pieces", "damaged_pieces",
}

// FinishedStockRepo implements finishedstock.Repository.
type FinishedStockRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewFinishedStockRepo creates a new finished-goods stock repository.
func NewFinishedStockRepo(txManager *postgres.TxManager) *FinishedStockRepo {
	return &FinishedStockRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *FinishedStockRepo) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

// Create inserts a new stock record.
func (r *FinishedStockRepo) Create(ctx context.Context, stock *finishedstock.FinishedGoodStock) error {
	q := r.builder.Insert(finishedStockTable).
		Columns(finishedStockCols...).
		Values(
			stock.ID, stock.DeletionMark, stock.Version,
			stock.ProductName, stock.UnitsPerCarton,
			stock.AvailableCartons, stock.AvailablePieces, stock.BrokenCartonPieces, stock.DamagedPieces,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert finished stock: %w", err)
	}

	return nil
}

// GetByProduct retrieves the record for a product name.
func (r *FinishedStockRepo) GetByProduct(ctx context.Context, productName string) (*finishedstock.FinishedGoodStock, error) {
	return r.getByProduct(ctx, productName, false)
}

// GetForUpdate retrieves the record with a row lock.
func (r *FinishedStockRepo) GetForUpdate(ctx context.Context, productName string) (*finishedstock.FinishedGoodStock, error) {
	return r.getByProduct(ctx, productName, true)
}

func (r *FinishedStockRepo) getByProduct(ctx context.Context, productName string, forUpdate bool) (*finishedstock.FinishedGoodStock, error) {
	q := r.builder.Select(finishedStockCols...).
		From(finishedStockTable).
		Where(squirrel.Expr("LOWER(product_name) = LOWER(?)", productName)).
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

	var stock finishedstock.FinishedGoodStock
	if err := pgxscan.Get(ctx, r.querier(ctx), &stock, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(finishedStockTable, productName)
		}
		return nil, fmt.Errorf("get finished stock: %w", err)
	}

	return &stock, nil
}

// Update persists pool counts. Services Touch the entity before Update,
// so stock.Version is already incremented.
func (r *FinishedStockRepo) Update(ctx context.Context, stock *finishedstock.FinishedGoodStock) error {
	q := r.builder.Update(finishedStockTable).
		Set("units_per_carton", stock.UnitsPerCarton).
		Set("available_cartons", stock.AvailableCartons).
		Set("available_pieces", stock.AvailablePieces).
		Set("broken_carton_pieces", stock.BrokenCartonPieces).
		Set("damaged_pieces", stock.DamagedPieces).
		Set("version", stock.Version).
		Where(squirrel.Eq{"id": stock.ID}).
		Where(squirrel.Lt{"version": stock.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update finished stock: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(finishedStockTable, stock.ID)
	}

	return nil
}

// List retrieves stock records with filtering.
func (r *FinishedStockRepo) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[*finishedstock.FinishedGoodStock], error) {
	result := domain.ListResult[*finishedstock.FinishedGoodStock]{
		Limit:  f.Limit,
		Offset: f.Offset,
	}

	q := r.builder.Select(finishedStockCols...).
		From(finishedStockTable)

	if !f.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}

	if f.Search != "" {
		q = q.Where(squirrel.ILike{"product_name": "%" + f.Search + "%"})
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

	q = q.OrderBy("product_name")

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
var _ finishedstock.Repository = (*FinishedStockRepo)(nil)
