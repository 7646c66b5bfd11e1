package receipt

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goodsflow/internal/core/apperror"
	"goodsflow/internal/core/id"
	"goodsflow/internal/core/types"
	"goodsflow/internal/domain"
	"goodsflow/internal/domain/effects"
	"goodsflow/internal/domain/material"
	"goodsflow/internal/domain/registers/finishedstock"
	"goodsflow/internal/domain/registers/materialcost"
)

// countingTxManager records how many transactions the handlers open.
type countingTxManager struct {
	calls int
}

func (m *countingTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type fakeCostRepo struct {
	records   map[id.ID]*materialcost.StockRecord
	histories map[id.ID][]materialcost.PriceEvent
}

func newFakeCostRepo() *fakeCostRepo {
	return &fakeCostRepo{
		records:   make(map[id.ID]*materialcost.StockRecord),
		histories: make(map[id.ID][]materialcost.PriceEvent),
	}
}

func (r *fakeCostRepo) Create(_ context.Context, rec *materialcost.StockRecord) error {
	cp := *rec
	r.records[rec.ID] = &cp
	r.histories[rec.ID] = append([]materialcost.PriceEvent(nil), rec.History...)
	return nil
}

func (r *fakeCostRepo) GetByMaterial(_ context.Context, ref material.Ref) (*materialcost.StockRecord, error) {
	for _, rec := range r.records {
		if ref.IsByID() && rec.MaterialID == *ref.ID {
			cp := *rec
			cp.History = nil
			return &cp, nil
		}
		if !ref.IsByID() && rec.MaterialName == ref.Name {
			cp := *rec
			cp.History = nil
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("stock record", ref.String())
}

func (r *fakeCostRepo) GetForUpdate(ctx context.Context, ref material.Ref) (*materialcost.StockRecord, error) {
	return r.GetByMaterial(ctx, ref)
}

func (r *fakeCostRepo) Update(_ context.Context, rec *materialcost.StockRecord) error {
	cp := *rec
	r.records[rec.ID] = &cp
	return nil
}

func (r *fakeCostRepo) GetHistory(_ context.Context, recordID id.ID) ([]materialcost.PriceEvent, error) {
	return append([]materialcost.PriceEvent(nil), r.histories[recordID]...), nil
}

func (r *fakeCostRepo) SaveHistory(_ context.Context, recordID id.ID, history []materialcost.PriceEvent) error {
	r.histories[recordID] = append([]materialcost.PriceEvent(nil), history...)
	return nil
}

func (r *fakeCostRepo) List(context.Context, domain.ListFilter) (domain.ListResult[*materialcost.StockRecord], error) {
	return domain.ListResult[*materialcost.StockRecord]{}, nil
}

type fakeStockRepo struct {
	stocks map[string]*finishedstock.FinishedGoodStock
}

func newFakeStockRepo() *fakeStockRepo {
	return &fakeStockRepo{stocks: make(map[string]*finishedstock.FinishedGoodStock)}
}

func (r *fakeStockRepo) Create(_ context.Context, stock *finishedstock.FinishedGoodStock) error {
	cp := *stock
	r.stocks[stock.ProductName] = &cp
	return nil
}

func (r *fakeStockRepo) GetByProduct(_ context.Context, productName string) (*finishedstock.FinishedGoodStock, error) {
	stock, ok := r.stocks[productName]
	if !ok {
		return nil, apperror.NewNotFound("finished stock", productName)
	}
	cp := *stock
	return &cp, nil
}

func (r *fakeStockRepo) GetForUpdate(ctx context.Context, productName string) (*finishedstock.FinishedGoodStock, error) {
	return r.GetByProduct(ctx, productName)
}

func (r *fakeStockRepo) Update(_ context.Context, stock *finishedstock.FinishedGoodStock) error {
	cp := *stock
	r.stocks[stock.ProductName] = &cp
	return nil
}

func (r *fakeStockRepo) List(context.Context, domain.ListFilter) (domain.ListResult[*finishedstock.FinishedGoodStock], error) {
	return domain.ListResult[*finishedstock.FinishedGoodStock]{}, nil
}

type fixedResolver struct {
	unitsPerCarton int
}

func (f fixedResolver) UnitsPerCarton(context.Context, string) (int, error) {
	return f.unitsPerCarton, nil
}

// Register mutations hold row locks across a read-modify-write sequence,
// so every handler must open a transaction around its service call.
func TestEffectHandlers_RunInTransaction(t *testing.T) {
	ctx := context.Background()
	txm := &countingTxManager{}
	costs := materialcost.NewService(newFakeCostRepo())
	finished := finishedstock.NewService(newFakeStockRepo(), fixedResolver{unitsPerCarton: 12})

	engine := effects.NewEngine(nil)
	RegisterEffectHandlers(engine, costs, finished, nil, txm)

	materialID := id.New()
	_, err := costs.CreateRecord(ctx, materialID, "Glass Jar", 100, types.MustMoney("10.00"))
	require.NoError(t, err)

	receiptID := id.New()
	payload, err := json.Marshal(effects.LedgerPostPayload{
		MaterialID:    &materialID,
		MaterialName:  "Glass Jar",
		QuantityAdded: 50,
		UnitPrice:     types.MustMoney("16.00"),
		ReceiptID:     receiptID,
		ReceiptNumber: "GRN-2026-001",
		Date:          time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NoError(t, engine.Handle(ctx, effects.KindLedgerPost, payload))
	assert.Equal(t, 1, txm.calls, "ledger post runs transactionally")

	rec, err := costs.Get(ctx, material.RefByID(materialID))
	require.NoError(t, err)
	assert.Equal(t, 150.0, rec.Quantity)

	payload, err = json.Marshal(effects.LedgerReversePayload{
		MaterialID:   &materialID,
		MaterialName: "Glass Jar",
		ReceiptID:    receiptID,
	})
	require.NoError(t, err)
	require.NoError(t, engine.Handle(ctx, effects.KindLedgerReverse, payload))
	assert.Equal(t, 2, txm.calls, "ledger reverse runs transactionally")

	rec, err = costs.Get(ctx, material.RefByID(materialID))
	require.NoError(t, err)
	assert.Equal(t, 100.0, rec.Quantity, "reversal restores the pre-receipt quantity")

	payload, err = json.Marshal(effects.FinishedAddPayload{ProductName: "Jar 500g", Cartons: 5})
	require.NoError(t, err)
	require.NoError(t, engine.Handle(ctx, effects.KindFinishedAdd, payload))
	assert.Equal(t, 3, txm.calls, "finished add runs transactionally")

	payload, err = json.Marshal(effects.FinishedDamagedPayload{ProductName: "Jar 500g", Pieces: 3})
	require.NoError(t, err)
	require.NoError(t, engine.Handle(ctx, effects.KindFinishedDamaged, payload))
	assert.Equal(t, 4, txm.calls, "finished damaged runs transactionally")

	stock, err := finished.Get(ctx, "Jar 500g")
	require.NoError(t, err)
	assert.Equal(t, 5.0, stock.AvailableCartons)
	assert.Equal(t, 3.0, stock.DamagedPieces)
}
