package finishedstock

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goodsflow/internal/core/apperror"
	"goodsflow/internal/domain"
)

type fakeStockRepo struct {
	stocks map[string]*FinishedGoodStock
}

func newFakeStockRepo() *fakeStockRepo {
	return &fakeStockRepo{stocks: make(map[string]*FinishedGoodStock)}
}

func (r *fakeStockRepo) key(productName string) string {
	return strings.ToLower(strings.TrimSpace(productName))
}

func (r *fakeStockRepo) Create(_ context.Context, stock *FinishedGoodStock) error {
	cp := *stock
	r.stocks[r.key(stock.ProductName)] = &cp
	return nil
}

func (r *fakeStockRepo) GetByProduct(_ context.Context, productName string) (*FinishedGoodStock, error) {
	stock, ok := r.stocks[r.key(productName)]
	if !ok {
		return nil, apperror.NewNotFound("finished good stock", productName)
	}
	cp := *stock
	return &cp, nil
}

func (r *fakeStockRepo) GetForUpdate(ctx context.Context, productName string) (*FinishedGoodStock, error) {
	return r.GetByProduct(ctx, productName)
}

func (r *fakeStockRepo) Update(_ context.Context, stock *FinishedGoodStock) error {
	cp := *stock
	r.stocks[r.key(stock.ProductName)] = &cp
	return nil
}

func (r *fakeStockRepo) List(context.Context, domain.ListFilter) (domain.ListResult[*FinishedGoodStock], error) {
	return domain.ListResult[*FinishedGoodStock]{}, nil
}

// fakeResolver counts lookups so tests can assert when the packing factor
// is actually consulted.
type fakeResolver struct {
	upc   int
	calls int
}

func (f *fakeResolver) UnitsPerCarton(context.Context, string) (int, error) {
	f.calls++
	return f.upc, nil
}

func TestAdd_AutoCreatesRecord(t *testing.T) {
	ctx := context.Background()
	repo := newFakeStockRepo()
	resolver := &fakeResolver{upc: 12}
	svc := NewService(repo, resolver)

	require.NoError(t, svc.Add(ctx, "Jar 500g", 40))

	stock, err := svc.Get(ctx, "Jar 500g")
	require.NoError(t, err)
	assert.Equal(t, 40.0, stock.AvailableCartons)
	assert.Equal(t, 12, stock.UnitsPerCarton)
	assert.Equal(t, 1, resolver.calls)

	// Second add reuses the record; the packing factor is not re-resolved.
	require.NoError(t, svc.Add(ctx, "Jar 500g", 10))
	stock, err = svc.Get(ctx, "Jar 500g")
	require.NoError(t, err)
	assert.Equal(t, 50.0, stock.AvailableCartons)
	assert.Equal(t, 1, resolver.calls)
}

func TestAddDamaged_Service(t *testing.T) {
	ctx := context.Background()
	repo := newFakeStockRepo()
	svc := NewService(repo, &fakeResolver{upc: 12})

	// Zero damaged pieces is the common case and must not create a record.
	require.NoError(t, svc.AddDamaged(ctx, "Jar 500g", 0))
	_, err := svc.Get(ctx, "Jar 500g")
	assert.True(t, apperror.IsNotFound(err))

	require.NoError(t, svc.AddDamaged(ctx, "Jar 500g", 5))
	stock, err := svc.Get(ctx, "Jar 500g")
	require.NoError(t, err)
	assert.Equal(t, 5.0, stock.DamagedPieces)

	require.NoError(t, svc.AddDamaged(ctx, "Jar 500g", -2))
	stock, err = svc.Get(ctx, "Jar 500g")
	require.NoError(t, err)
	assert.Equal(t, 3.0, stock.DamagedPieces, "negative delta withdraws an earlier report")
}

func TestDeduct_Service(t *testing.T) {
	ctx := context.Background()
	repo := newFakeStockRepo()
	svc := NewService(repo, &fakeResolver{upc: 12})

	require.NoError(t, svc.Add(ctx, "Jar 500g", 5))
	require.NoError(t, svc.Deduct(ctx, "Jar 500g", UnitPieces, 15))

	stock, err := svc.Get(ctx, "Jar 500g")
	require.NoError(t, err)
	assert.Equal(t, 3.0, stock.AvailableCartons)
	assert.Equal(t, 9.0, stock.BrokenCartonPieces)
}

func TestDeduct_MissingRecord(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeStockRepo(), &fakeResolver{upc: 12})

	// Deduction never auto-creates: issuing from an unknown product is an error.
	err := svc.Deduct(ctx, "Jar 500g", UnitCartons, 1)
	assert.True(t, apperror.IsNotFound(err))
}
