package materialcost

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goodsflow/internal/core/apperror"
	"goodsflow/internal/core/id"
	"goodsflow/internal/core/types"
	"goodsflow/internal/domain"
	"goodsflow/internal/domain/material"
)

// fakeRepo keeps records and histories in memory.
type fakeRepo struct {
	records   map[id.ID]*StockRecord
	histories map[id.ID][]PriceEvent
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		records:   make(map[id.ID]*StockRecord),
		histories: make(map[id.ID][]PriceEvent),
	}
}

func (r *fakeRepo) Create(_ context.Context, rec *StockRecord) error {
	cp := *rec
	r.records[rec.ID] = &cp
	r.histories[rec.ID] = append([]PriceEvent(nil), rec.History...)
	return nil
}

func (r *fakeRepo) GetByMaterial(_ context.Context, ref material.Ref) (*StockRecord, error) {
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

func (r *fakeRepo) GetForUpdate(ctx context.Context, ref material.Ref) (*StockRecord, error) {
	return r.GetByMaterial(ctx, ref)
}

func (r *fakeRepo) Update(_ context.Context, rec *StockRecord) error {
	cp := *rec
	r.records[rec.ID] = &cp
	return nil
}

func (r *fakeRepo) GetHistory(_ context.Context, recordID id.ID) ([]PriceEvent, error) {
	return append([]PriceEvent(nil), r.histories[recordID]...), nil
}

func (r *fakeRepo) SaveHistory(_ context.Context, recordID id.ID, history []PriceEvent) error {
	r.histories[recordID] = append([]PriceEvent(nil), history...)
	return nil
}

func (r *fakeRepo) List(context.Context, domain.ListFilter) (domain.ListResult[*StockRecord], error) {
	return domain.ListResult[*StockRecord]{}, nil
}

func setup(t *testing.T, initialQty float64, initialPrice string) (*Service, *fakeRepo, id.ID) {
	t.Helper()
	repo := newFakeRepo()
	svc := NewService(repo)

	materialID := id.New()
	_, err := svc.CreateRecord(context.Background(), materialID, "Glass Jar", initialQty, types.MustMoney(initialPrice))
	require.NoError(t, err)
	return svc, repo, materialID
}

func postInput(materialID id.ID, qty float64, price string) PostInput {
	return PostInput{
		Material:      material.RefByID(materialID),
		QuantityAdded: qty,
		UnitPrice:     types.MustMoney(price),
		ReceiptID:     id.New(),
		ReceiptNumber: "GRN-2026-001",
		Date:          time.Now().UTC(),
	}
}

func TestPost_UpdatesWeightedAverage(t *testing.T) {
	ctx := context.Background()
	svc, _, materialID := setup(t, 100, "10.00")

	require.NoError(t, svc.Post(ctx, postInput(materialID, 50, "16.00")))

	rec, err := svc.Get(ctx, material.RefByID(materialID))
	require.NoError(t, err)
	assert.Equal(t, 150.0, rec.Quantity)
	assert.True(t, rec.PerUnitPrice.Equal(types.MustMoney("12.00")), "got %s", rec.PerUnitPrice)

	// History: initial, receipt, trailing average.
	require.Len(t, rec.History, 3)
	assert.Equal(t, EventAveragePrice, rec.History[2].Kind)
	assert.Equal(t, 150.0, rec.History[2].Quantity)
}

func TestPost_ZeroInitialStockTakesReceiptPrice(t *testing.T) {
	ctx := context.Background()
	svc, _, materialID := setup(t, 0, "0")

	require.NoError(t, svc.Post(ctx, postInput(materialID, 50, "10.00")))

	rec, err := svc.Get(ctx, material.RefByID(materialID))
	require.NoError(t, err)
	assert.Equal(t, 50.0, rec.Quantity)
	assert.True(t, rec.PerUnitPrice.Equal(types.MustMoney("10.00")), "got %s", rec.PerUnitPrice)
}

func TestPost_KeepsSingleTrailingAverage(t *testing.T) {
	ctx := context.Background()
	svc, _, materialID := setup(t, 100, "10.00")

	require.NoError(t, svc.Post(ctx, postInput(materialID, 50, "16.00")))
	require.NoError(t, svc.Post(ctx, postInput(materialID, 50, "20.00")))

	rec, err := svc.Get(ctx, material.RefByID(materialID))
	require.NoError(t, err)

	var averages int
	for _, e := range rec.History {
		if e.Kind == EventAveragePrice {
			averages++
		}
	}
	assert.Equal(t, 1, averages)
	assert.Equal(t, len(rec.History), rec.History[len(rec.History)-1].Seq, "history stays densely numbered")
}

// An edited receipt reposts with the same receipt id; the earlier event
// must be replaced, never double-counted.
func TestPost_RepostReplacesEarlierEvent(t *testing.T) {
	ctx := context.Background()
	svc, _, materialID := setup(t, 100, "10.00")

	in := postInput(materialID, 50, "16.00")
	require.NoError(t, svc.Post(ctx, in))

	in.QuantityAdded = 30
	require.NoError(t, svc.Post(ctx, in))

	rec, err := svc.Get(ctx, material.RefByID(materialID))
	require.NoError(t, err)
	assert.Equal(t, 130.0, rec.Quantity)

	var receiptEvents int
	for _, e := range rec.History {
		if e.Kind == EventReceipt {
			receiptEvents++
		}
	}
	assert.Equal(t, 1, receiptEvents)
}

// A receipt edit that drops a material entirely withdraws its event and
// restores the pre-receipt aggregates.
func TestUnpost_WithdrawsReceiptEvents(t *testing.T) {
	ctx := context.Background()
	svc, _, materialID := setup(t, 100, "10.00")

	in := postInput(materialID, 50, "16.00")
	require.NoError(t, svc.Post(ctx, in))

	require.NoError(t, svc.Unpost(ctx, material.RefByID(materialID), in.ReceiptID))

	rec, err := svc.Get(ctx, material.RefByID(materialID))
	require.NoError(t, err)
	assert.Equal(t, 100.0, rec.Quantity)
	assert.True(t, rec.PerUnitPrice.Equal(types.MustMoney("10.00")), "got %s", rec.PerUnitPrice)

	for _, e := range rec.History {
		assert.NotEqual(t, EventReceipt, e.Kind, "no receipt event survives")
	}
	require.NotEmpty(t, rec.History)
	last := rec.History[len(rec.History)-1]
	assert.Equal(t, EventAveragePrice, last.Kind)
	assert.Equal(t, len(rec.History), last.Seq, "history stays densely numbered")
}

func TestUnpost_UnknownReceiptIsNoOp(t *testing.T) {
	ctx := context.Background()
	svc, _, materialID := setup(t, 100, "10.00")
	require.NoError(t, svc.Post(ctx, postInput(materialID, 50, "16.00")))

	before, err := svc.Get(ctx, material.RefByID(materialID))
	require.NoError(t, err)

	require.NoError(t, svc.Unpost(ctx, material.RefByID(materialID), id.New()))

	after, err := svc.Get(ctx, material.RefByID(materialID))
	require.NoError(t, err)
	assert.Equal(t, before.Quantity, after.Quantity)
	assert.Len(t, after.History, len(before.History))
}

func TestPost_Validation(t *testing.T) {
	ctx := context.Background()
	svc, _, materialID := setup(t, 100, "10.00")

	err := svc.Post(ctx, postInput(materialID, 0, "10.00"))
	assert.True(t, apperror.IsValidation(err))

	err = svc.Post(ctx, postInput(materialID, -5, "10.00"))
	assert.True(t, apperror.IsValidation(err))

	in := postInput(materialID, 5, "10.00")
	in.UnitPrice = types.MustMoney("-1")
	assert.True(t, apperror.IsValidation(svc.Post(ctx, in)))
}

func TestPost_UnknownMaterial(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setup(t, 100, "10.00")

	err := svc.Post(ctx, postInput(id.New(), 5, "10.00"))
	assert.True(t, apperror.IsNotFound(err))
}

func TestCreateRecord_RejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := NewService(repo)

	materialID := id.New()
	_, err := svc.CreateRecord(ctx, materialID, "Glass Jar", 100, types.MustMoney("10.00"))
	require.NoError(t, err)

	_, err = svc.CreateRecord(ctx, materialID, "Glass Jar", 0, types.MustMoney("0"))
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeConflict, appErr.Code)
}

func TestRebuild_RepairsDriftedAggregates(t *testing.T) {
	ctx := context.Background()
	svc, repo, materialID := setup(t, 100, "10.00")
	require.NoError(t, svc.Post(ctx, postInput(materialID, 50, "16.00")))

	// Simulate drift from a manual data fix.
	for _, rec := range repo.records {
		rec.Quantity = 999
		rec.PerUnitPrice = types.MustMoney("1.00")
	}

	require.NoError(t, svc.Rebuild(ctx, material.RefByID(materialID)))

	rec, err := svc.Get(ctx, material.RefByID(materialID))
	require.NoError(t, err)
	assert.Equal(t, 150.0, rec.Quantity)
	assert.True(t, rec.PerUnitPrice.Equal(types.MustMoney("12.00")), "got %s", rec.PerUnitPrice)
}
