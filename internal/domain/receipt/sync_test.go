package receipt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goodsflow/internal/core/id"
	"goodsflow/internal/domain/material"
	"goodsflow/internal/domain/source"
)

func TestSync_WritesAggregatesBack(t *testing.T) {
	ctx := context.Background()
	materialID := id.New()
	src := testOrder(materialID)
	sources := newFakeSourceRepo(src)
	svc, repo, _ := newTestService(sources)

	doc, err := svc.Create(ctx, Input{
		SourceID:   src.ID,
		ReceivedBy: "Ravi",
		Lines:      []LineInput{{Material: material.RefByID(materialID), ReceivedQty: 60}},
	})
	require.NoError(t, err)

	sync := NewSynchronizer(sources, repo, fakeTxManager{})
	require.NoError(t, sync.Sync(ctx, src.ID, doc.ID))

	updated := sources.docs[src.ID]
	assert.Equal(t, source.StatusPartial, updated.Status)
	require.Len(t, updated.Lines, 1)
	assert.Equal(t, 60.0, updated.Lines[0].ReceivedQty)
}

func TestSync_CompletionLocksSiblings(t *testing.T) {
	ctx := context.Background()
	materialID := id.New()
	src := testOrder(materialID)
	sources := newFakeSourceRepo(src)
	svc, repo, _ := newTestService(sources)

	first, err := svc.Create(ctx, Input{
		SourceID:   src.ID,
		ReceivedBy: "Ravi",
		Lines:      []LineInput{{Material: material.RefByID(materialID), ReceivedQty: 60}},
	})
	require.NoError(t, err)

	second, err := svc.Create(ctx, Input{
		SourceID:   src.ID,
		ReceivedBy: "Ravi",
		Lines:      []LineInput{{Material: material.RefByID(materialID), ReceivedQty: 40, ExtraReceivedQty: 10}},
	})
	require.NoError(t, err)

	sync := NewSynchronizer(sources, repo, fakeTxManager{})
	require.NoError(t, sync.Sync(ctx, src.ID, second.ID))

	assert.Equal(t, source.StatusCompleted, sources.docs[src.ID].Status)

	locked, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, locked.Locked, "siblings lock when the source completes")
	assert.NotEmpty(t, locked.LockNote)
}

func TestSync_ChallanAggregates(t *testing.T) {
	ctx := context.Background()
	src := testChallan()
	sources := newFakeSourceRepo(src)
	svc, repo, _ := newTestService(sources)

	doc, err := svc.Create(ctx, Input{SourceID: src.ID, ReceivedBy: "Meena", CartonsReturned: 40})
	require.NoError(t, err)

	sync := NewSynchronizer(sources, repo, fakeTxManager{})
	require.NoError(t, sync.Sync(ctx, src.ID, doc.ID))

	updated := sources.docs[src.ID]
	assert.Equal(t, 40.0, updated.CartonsReturned)
	assert.Equal(t, source.StatusPartial, updated.Status)
	require.Len(t, updated.Lines, 1)
	assert.InDelta(t, 200.0, updated.Lines[0].UsedQty, 0.001)
	assert.InDelta(t, 300.0, updated.Lines[0].RemainingQty, 0.001)
}

func TestSync_CancelledStatusIsSticky(t *testing.T) {
	ctx := context.Background()
	materialID := id.New()
	src := testOrder(materialID)
	sources := newFakeSourceRepo(src)
	repo := newFakeReceiptRepo()

	src.Status = source.StatusCancelled

	sync := NewSynchronizer(sources, repo, fakeTxManager{})
	require.NoError(t, sync.Sync(ctx, src.ID, id.New()))

	assert.Equal(t, source.StatusCancelled, sources.docs[src.ID].Status)
}
