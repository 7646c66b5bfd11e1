package receipt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goodsflow/internal/core/apperror"
	"goodsflow/internal/core/id"
	"goodsflow/internal/core/numerator"
	"goodsflow/internal/core/types"
	"goodsflow/internal/domain"
	"goodsflow/internal/domain/effects"
	"goodsflow/internal/domain/material"
	"goodsflow/internal/domain/source"
)

// --- fakes ---

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeSourceRepo struct {
	docs map[id.ID]*source.SourceDocument
}

func newFakeSourceRepo(docs ...*source.SourceDocument) *fakeSourceRepo {
	r := &fakeSourceRepo{docs: make(map[id.ID]*source.SourceDocument)}
	for _, d := range docs {
		r.docs[d.ID] = d
	}
	return r
}

func (r *fakeSourceRepo) Create(_ context.Context, doc *source.SourceDocument) error {
	r.docs[doc.ID] = doc
	return nil
}

func (r *fakeSourceRepo) GetByID(_ context.Context, docID id.ID) (*source.SourceDocument, error) {
	doc, ok := r.docs[docID]
	if !ok {
		return nil, apperror.NewNotFound("source document", docID.String())
	}
	cp := *doc
	return &cp, nil
}

func (r *fakeSourceRepo) GetByNumber(_ context.Context, number string) (*source.SourceDocument, error) {
	for _, d := range r.docs {
		if d.Number == number {
			return d, nil
		}
	}
	return nil, apperror.NewNotFound("source document", number)
}

func (r *fakeSourceRepo) Update(_ context.Context, doc *source.SourceDocument) error {
	r.docs[doc.ID] = doc
	return nil
}

func (r *fakeSourceRepo) GetLines(_ context.Context, docID id.ID) ([]source.Line, error) {
	doc, ok := r.docs[docID]
	if !ok {
		return nil, apperror.NewNotFound("source document", docID.String())
	}
	return append([]source.Line(nil), doc.Lines...), nil
}

func (r *fakeSourceRepo) SaveLines(_ context.Context, docID id.ID, lines []source.Line) error {
	if doc, ok := r.docs[docID]; ok {
		doc.Lines = lines
	}
	return nil
}

func (r *fakeSourceRepo) List(context.Context, source.ListFilter) (domain.ListResult[*source.SourceDocument], error) {
	return domain.ListResult[*source.SourceDocument]{}, nil
}

func (r *fakeSourceRepo) GetForUpdate(ctx context.Context, docID id.ID) (*source.SourceDocument, error) {
	return r.GetByID(ctx, docID)
}

type fakeReceiptRepo struct {
	docs map[id.ID]*ReceiptDocument
}

func newFakeReceiptRepo() *fakeReceiptRepo {
	return &fakeReceiptRepo{docs: make(map[id.ID]*ReceiptDocument)}
}

func (r *fakeReceiptRepo) Create(_ context.Context, doc *ReceiptDocument) error {
	r.docs[doc.ID] = doc
	return nil
}

func (r *fakeReceiptRepo) GetByID(_ context.Context, docID id.ID) (*ReceiptDocument, error) {
	doc, ok := r.docs[docID]
	if !ok {
		return nil, apperror.NewNotFound("receipt", docID.String())
	}
	cp := *doc
	return &cp, nil
}

func (r *fakeReceiptRepo) GetByNumber(_ context.Context, number string) (*ReceiptDocument, error) {
	for _, d := range r.docs {
		if d.Number == number {
			return d, nil
		}
	}
	return nil, apperror.NewNotFound("receipt", number)
}

func (r *fakeReceiptRepo) Update(_ context.Context, doc *ReceiptDocument) error {
	r.docs[doc.ID] = doc
	return nil
}

func (r *fakeReceiptRepo) GetLines(_ context.Context, docID id.ID) ([]Line, error) {
	if doc, ok := r.docs[docID]; ok {
		return append([]Line(nil), doc.Lines...), nil
	}
	return nil, nil
}

func (r *fakeReceiptRepo) SaveLines(_ context.Context, docID id.ID, lines []Line) error {
	if doc, ok := r.docs[docID]; ok {
		doc.Lines = lines
	}
	return nil
}

func (r *fakeReceiptRepo) GetCartonLines(_ context.Context, docID id.ID) ([]CartonLine, error) {
	if doc, ok := r.docs[docID]; ok {
		return append([]CartonLine(nil), doc.CartonLines...), nil
	}
	return nil, nil
}

func (r *fakeReceiptRepo) SaveCartonLines(_ context.Context, docID id.ID, lines []CartonLine) error {
	if doc, ok := r.docs[docID]; ok {
		doc.CartonLines = lines
	}
	return nil
}

func (r *fakeReceiptRepo) ListBySource(_ context.Context, sourceID id.ID) ([]*ReceiptDocument, error) {
	var result []*ReceiptDocument
	for _, d := range r.docs {
		if d.SourceID == sourceID {
			result = append(result, d)
		}
	}
	return result, nil
}

func (r *fakeReceiptRepo) List(context.Context, ListFilter) (domain.ListResult[*ReceiptDocument], error) {
	return domain.ListResult[*ReceiptDocument]{}, nil
}

func (r *fakeReceiptRepo) GetForUpdate(ctx context.Context, docID id.ID) (*ReceiptDocument, error) {
	return r.GetByID(ctx, docID)
}

// recordingDispatcher captures dispatched effects for assertions.
type recordingDispatcher struct {
	dispatched []dispatchedEffect
}

type dispatchedEffect struct {
	kind    effects.Kind
	payload any
}

func (d *recordingDispatcher) Dispatch(_ context.Context, kind effects.Kind, payload any) {
	d.dispatched = append(d.dispatched, dispatchedEffect{kind: kind, payload: payload})
}

func (d *recordingDispatcher) byKind(kind effects.Kind) []dispatchedEffect {
	var out []dispatchedEffect
	for _, e := range d.dispatched {
		if e.kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// --- fixtures ---

func newTestService(sources *fakeSourceRepo) (*Service, *fakeReceiptRepo, *recordingDispatcher) {
	repo := newFakeReceiptRepo()
	dispatcher := &recordingDispatcher{}
	svc := NewService(repo, sources, &numerator.MockGenerator{}, fakeTxManager{}, dispatcher, nil)
	return svc, repo, dispatcher
}

func testOrder(materialID id.ID) *source.SourceDocument {
	src := source.New(source.KindOrder, "Acme Supplies")
	src.Number = "PO-001"
	src.AddLine(source.Line{
		MaterialID:      &materialID,
		MaterialName:    "Glass Jar",
		OrderedQty:      100,
		ExtraAllowedQty: 10,
		UnitPrice:       types.MustMoney("12.50"),
	})
	return src
}

func testChallan() *source.SourceDocument {
	src := source.New(source.KindChallan, "Jobber & Co")
	src.Number = "CH-001"
	src.CartonsSent = 100
	src.AddLine(source.Line{
		MaterialName: "Label Roll",
		ProductName:  "Jar 500g",
		OrderedQty:   500,
		UnitPrice:    types.MustMoney("0.80"),
	})
	return src
}

// --- order receipts ---

func TestCreate_PartialOrderReceipt(t *testing.T) {
	ctx := context.Background()
	materialID := id.New()
	src := testOrder(materialID)
	svc, _, dispatcher := newTestService(newFakeSourceRepo(src))

	doc, err := svc.Create(ctx, Input{
		SourceID:   src.ID,
		ReceivedBy: "Ravi",
		Lines: []LineInput{{
			Material:    material.RefByID(materialID),
			ReceivedQty: 60,
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPartial, doc.Status)
	assert.False(t, doc.Locked)
	require.Len(t, doc.Lines, 1)
	assert.Equal(t, 60.0, doc.Lines[0].ReceivedQty)
	assert.Equal(t, 40.0, doc.Lines[0].BalanceQty)
	assert.Equal(t, 60.0, doc.Lines[0].CumulativeQty)
	assert.True(t, doc.Lines[0].UnitPrice.Equal(types.MustMoney("12.50")), "source price is the fallback")

	posts := dispatcher.byKind(effects.KindLedgerPost)
	require.Len(t, posts, 1)
	assert.Equal(t, 60.0, posts[0].payload.(effects.LedgerPostPayload).QuantityAdded)

	require.Len(t, dispatcher.byKind(effects.KindSourceSync), 1)
}

func TestCreate_SecondReceiptCompletesOrder(t *testing.T) {
	ctx := context.Background()
	materialID := id.New()
	src := testOrder(materialID)
	svc, _, _ := newTestService(newFakeSourceRepo(src))

	_, err := svc.Create(ctx, Input{
		SourceID:   src.ID,
		ReceivedBy: "Ravi",
		Lines:      []LineInput{{Material: material.RefByID(materialID), ReceivedQty: 60}},
	})
	require.NoError(t, err)

	doc, err := svc.Create(ctx, Input{
		SourceID:   src.ID,
		ReceivedBy: "Ravi",
		Lines:      []LineInput{{Material: material.RefByID(materialID), ReceivedQty: 40}},
	})
	require.NoError(t, err)

	// Ordered quantity fully met, extra allowance untouched.
	assert.Equal(t, StatusNormalCompleted, doc.Status)
	assert.True(t, doc.Locked, "terminal receipts are locked on creation")
	assert.Equal(t, 60.0, doc.Lines[0].PrevReceivedQty)
	assert.Equal(t, 0.0, doc.Lines[0].BalanceQty)
}

func TestCreate_CompletedWhenExtraExhausted(t *testing.T) {
	ctx := context.Background()
	materialID := id.New()
	src := testOrder(materialID)
	svc, _, _ := newTestService(newFakeSourceRepo(src))

	doc, err := svc.Create(ctx, Input{
		SourceID:   src.ID,
		ReceivedBy: "Ravi",
		Lines: []LineInput{{
			Material:         material.RefByID(materialID),
			ReceivedQty:      100,
			ExtraReceivedQty: 10,
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, doc.Status)
}

func TestCreate_OrderWithoutExtraAllowance(t *testing.T) {
	ctx := context.Background()
	materialID := id.New()
	src := source.New(source.KindOrder, "Acme Supplies")
	src.Number = "PO-002"
	src.AddLine(source.Line{
		MaterialID:   &materialID,
		MaterialName: "Glass Jar",
		OrderedQty:   100,
		UnitPrice:    types.MustMoney("12.50"),
	})
	svc, _, _ := newTestService(newFakeSourceRepo(src))

	doc, err := svc.Create(ctx, Input{
		SourceID:   src.ID,
		ReceivedBy: "Ravi",
		Lines:      []LineInput{{Material: material.RefByID(materialID), ReceivedQty: 60}},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, doc.Status, "short receipt with no allowance stays open")
	assert.False(t, doc.Locked)

	doc, err = svc.Create(ctx, Input{
		SourceID:   src.ID,
		ReceivedBy: "Ravi",
		Lines:      []LineInput{{Material: material.RefByID(materialID), ReceivedQty: 40}},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, doc.Status)
	assert.True(t, doc.Locked)
}

func TestCreate_RejectsOverReceipt(t *testing.T) {
	ctx := context.Background()
	materialID := id.New()
	src := testOrder(materialID)
	svc, _, dispatcher := newTestService(newFakeSourceRepo(src))

	_, err := svc.Create(ctx, Input{
		SourceID:   src.ID,
		ReceivedBy: "Ravi",
		Lines:      []LineInput{{Material: material.RefByID(materialID), ReceivedQty: 110}},
	})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeQuantityExceedsPending, appErr.Code)
	assert.Empty(t, dispatcher.dispatched, "rejected receipts dispatch no effects")
}

func TestCreate_RejectsExtraBeyondAllowance(t *testing.T) {
	ctx := context.Background()
	materialID := id.New()
	src := testOrder(materialID)
	svc, _, _ := newTestService(newFakeSourceRepo(src))

	_, err := svc.Create(ctx, Input{
		SourceID:   src.ID,
		ReceivedBy: "Ravi",
		Lines: []LineInput{{
			Material:         material.RefByID(materialID),
			ReceivedQty:      100,
			ExtraReceivedQty: 11,
		}},
	})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeExtraExceedsPending, appErr.Code)
}

func TestCreate_RejectsDamagedExceedingReceived(t *testing.T) {
	ctx := context.Background()
	materialID := id.New()
	src := testOrder(materialID)
	svc, _, _ := newTestService(newFakeSourceRepo(src))

	_, err := svc.Create(ctx, Input{
		SourceID:   src.ID,
		ReceivedBy: "Ravi",
		Lines: []LineInput{{
			Material:    material.RefByID(materialID),
			ReceivedQty: 10,
			DamagedQty:  11,
		}},
	})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeDamagedExceedsReceived, appErr.Code)
}

func TestCreate_RejectsUnknownMaterial(t *testing.T) {
	ctx := context.Background()
	src := testOrder(id.New())
	svc, _, _ := newTestService(newFakeSourceRepo(src))

	_, err := svc.Create(ctx, Input{
		SourceID:   src.ID,
		ReceivedBy: "Ravi",
		Lines:      []LineInput{{Material: material.RefByID(id.New()), ReceivedQty: 5}},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestCreate_RejectsDuplicateMaterialLines(t *testing.T) {
	ctx := context.Background()
	materialID := id.New()
	src := testOrder(materialID)
	svc, _, _ := newTestService(newFakeSourceRepo(src))

	_, err := svc.Create(ctx, Input{
		SourceID:   src.ID,
		ReceivedBy: "Ravi",
		Lines: []LineInput{
			{Material: material.RefByID(materialID), ReceivedQty: 10},
			{Material: material.RefByID(materialID), ReceivedQty: 20},
		},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestCreate_RejectsCancelledSource(t *testing.T) {
	ctx := context.Background()
	materialID := id.New()
	src := testOrder(materialID)
	src.Status = source.StatusCancelled
	svc, _, _ := newTestService(newFakeSourceRepo(src))

	_, err := svc.Create(ctx, Input{
		SourceID:   src.ID,
		ReceivedBy: "Ravi",
		Lines:      []LineInput{{Material: material.RefByID(materialID), ReceivedQty: 10}},
	})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeSourceCancelled, appErr.Code)
}

func TestCreate_PolicyRejectsLine(t *testing.T) {
	ctx := context.Background()
	materialID := id.New()
	src := testOrder(materialID)

	policy, err := NewAcceptancePolicy(`material != "Glass Jar"`)
	require.NoError(t, err)

	repo := newFakeReceiptRepo()
	svc := NewService(repo, newFakeSourceRepo(src), &numerator.MockGenerator{}, fakeTxManager{}, &recordingDispatcher{}, policy)

	_, err = svc.Create(ctx, Input{
		SourceID:   src.ID,
		ReceivedBy: "Ravi",
		Lines:      []LineInput{{Material: material.RefByID(materialID), ReceivedQty: 10}},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

// --- challan receipts ---

func TestCreate_ChallanProportionalUsage(t *testing.T) {
	ctx := context.Background()
	src := testChallan()
	svc, _, dispatcher := newTestService(newFakeSourceRepo(src))

	doc, err := svc.Create(ctx, Input{
		SourceID:        src.ID,
		ReceivedBy:      "Meena",
		CartonsReturned: 40,
	})
	require.NoError(t, err)

	assert.Equal(t, StatusPartial, doc.Status)
	require.Len(t, doc.Lines, 1)
	assert.InDelta(t, 200.0, doc.Lines[0].UsedQty, types.QtyTolerance)
	assert.InDelta(t, 300.0, doc.Lines[0].RemainingQty, types.QtyTolerance)

	// Single-product challan: the carton split is implied.
	require.Len(t, doc.CartonLines, 1)
	assert.Equal(t, "Jar 500g", doc.CartonLines[0].ProductName)
	assert.Equal(t, 40.0, doc.CartonLines[0].Cartons)

	adds := dispatcher.byKind(effects.KindFinishedAdd)
	require.Len(t, adds, 1)
	assert.Equal(t, 40.0, adds[0].payload.(effects.FinishedAddPayload).Cartons)
}

func TestCreate_ChallanCompletesOnFullReturn(t *testing.T) {
	ctx := context.Background()
	src := testChallan()
	svc, _, _ := newTestService(newFakeSourceRepo(src))

	_, err := svc.Create(ctx, Input{SourceID: src.ID, ReceivedBy: "Meena", CartonsReturned: 40})
	require.NoError(t, err)

	doc, err := svc.Create(ctx, Input{SourceID: src.ID, ReceivedBy: "Meena", CartonsReturned: 60})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, doc.Status)
	assert.True(t, doc.Locked)
}

func TestCreate_ChallanRejectsOverReturn(t *testing.T) {
	ctx := context.Background()
	src := testChallan()
	svc, _, _ := newTestService(newFakeSourceRepo(src))

	_, err := svc.Create(ctx, Input{SourceID: src.ID, ReceivedBy: "Meena", CartonsReturned: 120})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeQuantityExceedsPending, appErr.Code)
}

func TestCreate_MultiProductChallanNeedsSplit(t *testing.T) {
	ctx := context.Background()
	src := testChallan()
	src.AddLine(source.Line{
		MaterialName: "Cap Foil",
		ProductName:  "Jar 250g",
		OrderedQty:   300,
	})
	svc, _, _ := newTestService(newFakeSourceRepo(src))

	_, err := svc.Create(ctx, Input{SourceID: src.ID, ReceivedBy: "Meena", CartonsReturned: 10})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	doc, err := svc.Create(ctx, Input{
		SourceID:        src.ID,
		ReceivedBy:      "Meena",
		CartonsReturned: 10,
		CartonLines: []CartonLineInput{
			{ProductName: "Jar 500g", Cartons: 6},
			{ProductName: "Jar 250g", Cartons: 4, DamagedPieces: 3},
		},
	})
	require.NoError(t, err)
	require.Len(t, doc.CartonLines, 2)
}

func TestCreate_ChallanRejectsUnknownProduct(t *testing.T) {
	ctx := context.Background()
	src := testChallan()
	svc, _, _ := newTestService(newFakeSourceRepo(src))

	_, err := svc.Create(ctx, Input{
		SourceID:        src.ID,
		ReceivedBy:      "Meena",
		CartonsReturned: 10,
		CartonLines:     []CartonLineInput{{ProductName: "Jar 999g", Cartons: 10}},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

// --- updates ---

func TestUpdate_ExcludesOwnQuantities(t *testing.T) {
	ctx := context.Background()
	materialID := id.New()
	src := testOrder(materialID)
	svc, _, _ := newTestService(newFakeSourceRepo(src))

	created, err := svc.Create(ctx, Input{
		SourceID:   src.ID,
		ReceivedBy: "Ravi",
		Lines:      []LineInput{{Material: material.RefByID(materialID), ReceivedQty: 60}},
	})
	require.NoError(t, err)

	// Raising 60 to 100 must succeed: the original 60 does not count
	// against the pending balance during its own update.
	updated, err := svc.Update(ctx, created.ID, Input{
		ReceivedBy: "Ravi",
		Lines:      []LineInput{{Material: material.RefByID(materialID), ReceivedQty: 100}},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusNormalCompleted, updated.Status)
	assert.Equal(t, created.Number, updated.Number, "document number survives updates")
}

func TestUpdate_RejectsTerminalReceipt(t *testing.T) {
	ctx := context.Background()
	materialID := id.New()
	src := testOrder(materialID)
	svc, _, _ := newTestService(newFakeSourceRepo(src))

	created, err := svc.Create(ctx, Input{
		SourceID:   src.ID,
		ReceivedBy: "Ravi",
		Lines: []LineInput{{
			Material:         material.RefByID(materialID),
			ReceivedQty:      100,
			ExtraReceivedQty: 10,
		}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, created.Status)

	_, err = svc.Update(ctx, created.ID, Input{
		ReceivedBy: "Ravi",
		Lines:      []LineInput{{Material: material.RefByID(materialID), ReceivedQty: 50}},
	})
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeReceiptLocked, appErr.Code)
}

func TestUpdate_RejectsSourceChange(t *testing.T) {
	ctx := context.Background()
	materialID := id.New()
	src := testOrder(materialID)
	other := testOrder(id.New())
	svc, _, _ := newTestService(newFakeSourceRepo(src, other))

	created, err := svc.Create(ctx, Input{
		SourceID:   src.ID,
		ReceivedBy: "Ravi",
		Lines:      []LineInput{{Material: material.RefByID(materialID), ReceivedQty: 10}},
	})
	require.NoError(t, err)

	_, err = svc.Update(ctx, created.ID, Input{
		SourceID:   other.ID,
		ReceivedBy: "Ravi",
		Lines:      []LineInput{{Material: material.RefByID(materialID), ReceivedQty: 10}},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))
}

func TestUpdate_ChallanDispatchesStockDelta(t *testing.T) {
	ctx := context.Background()
	src := testChallan()
	svc, _, dispatcher := newTestService(newFakeSourceRepo(src))

	created, err := svc.Create(ctx, Input{SourceID: src.ID, ReceivedBy: "Meena", CartonsReturned: 40})
	require.NoError(t, err)

	dispatcher.dispatched = nil

	_, err = svc.Update(ctx, created.ID, Input{ReceivedBy: "Meena", CartonsReturned: 30})
	require.NoError(t, err)

	adds := dispatcher.byKind(effects.KindFinishedAdd)
	require.Len(t, adds, 1)
	assert.Equal(t, -10.0, adds[0].payload.(effects.FinishedAddPayload).Cartons, "shrinking a return reverses stock")
}

func TestUpdate_ChallanDamagedPiecesDelta(t *testing.T) {
	ctx := context.Background()
	src := testChallan()
	svc, _, dispatcher := newTestService(newFakeSourceRepo(src))

	created, err := svc.Create(ctx, Input{
		SourceID:        src.ID,
		ReceivedBy:      "Meena",
		CartonsReturned: 40,
		CartonLines:     []CartonLineInput{{ProductName: "Jar 500g", Cartons: 40, DamagedPieces: 3}},
	})
	require.NoError(t, err)

	dispatcher.dispatched = nil

	// Re-submitting unchanged values must not move stock or damage again.
	_, err = svc.Update(ctx, created.ID, Input{
		ReceivedBy:      "Meena",
		CartonsReturned: 40,
		CartonLines:     []CartonLineInput{{ProductName: "Jar 500g", Cartons: 40, DamagedPieces: 3}},
	})
	require.NoError(t, err)
	assert.Empty(t, dispatcher.byKind(effects.KindFinishedAdd))
	assert.Empty(t, dispatcher.byKind(effects.KindFinishedDamaged))

	_, err = svc.Update(ctx, created.ID, Input{
		ReceivedBy:      "Meena",
		CartonsReturned: 40,
		CartonLines:     []CartonLineInput{{ProductName: "Jar 500g", Cartons: 40, DamagedPieces: 5}},
	})
	require.NoError(t, err)

	damaged := dispatcher.byKind(effects.KindFinishedDamaged)
	require.Len(t, damaged, 1)
	assert.Equal(t, 2.0, damaged[0].payload.(effects.FinishedDamagedPayload).Pieces, "only the increase is posted")
}

func TestUpdate_DroppedLineReversesLedger(t *testing.T) {
	ctx := context.Background()
	jarID := id.New()
	foilID := id.New()
	src := testOrder(jarID)
	src.AddLine(source.Line{
		MaterialID:   &foilID,
		MaterialName: "Cap Foil",
		OrderedQty:   50,
		UnitPrice:    types.MustMoney("2.00"),
	})
	svc, _, dispatcher := newTestService(newFakeSourceRepo(src))

	created, err := svc.Create(ctx, Input{
		SourceID:   src.ID,
		ReceivedBy: "Ravi",
		Lines: []LineInput{
			{Material: material.RefByID(jarID), ReceivedQty: 60},
			{Material: material.RefByID(foilID), ReceivedQty: 20},
		},
	})
	require.NoError(t, err)

	dispatcher.dispatched = nil

	_, err = svc.Update(ctx, created.ID, Input{
		ReceivedBy: "Ravi",
		Lines:      []LineInput{{Material: material.RefByID(jarID), ReceivedQty: 60}},
	})
	require.NoError(t, err)

	reversals := dispatcher.byKind(effects.KindLedgerReverse)
	require.Len(t, reversals, 1)
	payload := reversals[0].payload.(effects.LedgerReversePayload)
	assert.Equal(t, "Cap Foil", payload.MaterialName)
	assert.Equal(t, created.ID, payload.ReceiptID)

	require.Len(t, dispatcher.byKind(effects.KindLedgerPost), 1, "only the kept line reposts")
}

func TestCreate_DateDefaultsAndOverride(t *testing.T) {
	ctx := context.Background()
	materialID := id.New()
	src := testOrder(materialID)
	svc, _, _ := newTestService(newFakeSourceRepo(src))

	when := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	doc, err := svc.Create(ctx, Input{
		SourceID:   src.ID,
		Date:       when,
		ReceivedBy: "Ravi",
		Lines:      []LineInput{{Material: material.RefByID(materialID), ReceivedQty: 10}},
	})
	require.NoError(t, err)
	assert.True(t, doc.Date.Equal(when))
}
