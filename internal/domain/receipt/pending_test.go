package receipt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goodsflow/internal/core/entity"
	"goodsflow/internal/core/id"
	"goodsflow/internal/domain/material"
	"goodsflow/internal/domain/source"
)

func orderWithLine(materialID id.ID, name string, ordered, extra float64) *source.SourceDocument {
	src := source.New(source.KindOrder, "Acme Supplies")
	src.AddLine(source.Line{
		MaterialID:      &materialID,
		MaterialName:    name,
		OrderedQty:      ordered,
		ExtraAllowedQty: extra,
	})
	return src
}

func receiptWithLine(materialID *id.ID, name string, received, extra float64) *ReceiptDocument {
	return &ReceiptDocument{
		Document: entity.NewDocument(),
		Lines: []Line{{
			LineID:           id.New(),
			LineNo:           1,
			MaterialID:       materialID,
			MaterialName:     name,
			ReceivedQty:      received,
			ExtraReceivedQty: extra,
		}},
	}
}

func TestCalculatePending_NoReceipts(t *testing.T) {
	materialID := id.New()
	src := orderWithLine(materialID, "Glass Jar", 100, 10)

	pending := CalculatePending(src, nil)

	require.Len(t, pending, 1)
	assert.Equal(t, 100.0, pending[0].PendingQty)
	assert.Equal(t, 10.0, pending[0].PendingExtraQty)
	assert.Equal(t, 0.0, pending[0].PreviouslyReceived)
}

func TestCalculatePending_SumsAcrossReceipts(t *testing.T) {
	materialID := id.New()
	src := orderWithLine(materialID, "Glass Jar", 100, 10)

	others := []*ReceiptDocument{
		receiptWithLine(&materialID, "Glass Jar", 30, 0),
		receiptWithLine(&materialID, "Glass Jar", 30, 4),
	}

	pending := CalculatePending(src, others)

	require.Len(t, pending, 1)
	assert.Equal(t, 60.0, pending[0].PreviouslyReceived)
	assert.Equal(t, 4.0, pending[0].PreviouslyExtraReceived)
	assert.Equal(t, 40.0, pending[0].PendingQty)
	assert.Equal(t, 6.0, pending[0].PendingExtraQty)
}

// The calculator never clamps below zero into negatives: over-receipt from
// legacy data shows up as zero pending, not a negative balance.
func TestCalculatePending_ClampsAtZero(t *testing.T) {
	materialID := id.New()
	src := orderWithLine(materialID, "Glass Jar", 100, 0)

	others := []*ReceiptDocument{receiptWithLine(&materialID, "Glass Jar", 120, 0)}

	pending := CalculatePending(src, others)

	require.Len(t, pending, 1)
	assert.Equal(t, 0.0, pending[0].PendingQty)
}

// A receipt being edited is excluded by the caller; its quantities must
// not count against its own pending balance.
func TestCalculatePending_ExcludesCurrentReceipt(t *testing.T) {
	materialID := id.New()
	src := orderWithLine(materialID, "Glass Jar", 100, 0)

	current := receiptWithLine(&materialID, "Glass Jar", 60, 0)
	sibling := receiptWithLine(&materialID, "Glass Jar", 30, 0)

	withCurrent := CalculatePending(src, []*ReceiptDocument{current, sibling})
	withoutCurrent := CalculatePending(src, []*ReceiptDocument{sibling})

	assert.Equal(t, 10.0, withCurrent[0].PendingQty)
	assert.Equal(t, 70.0, withoutCurrent[0].PendingQty)
}

func TestCalculatePending_MatchesByNameForChallans(t *testing.T) {
	src := source.New(source.KindChallan, "Jobber & Co")
	src.CartonsSent = 100
	src.AddLine(source.Line{
		MaterialName: "Label Roll",
		ProductName:  "Jar 500g",
		OrderedQty:   500,
	})

	// Challan receipt lines carry only the material name, with loose casing.
	others := []*ReceiptDocument{receiptWithLine(nil, "  label roll ", 200, 0)}

	pending := CalculatePending(src, others)

	require.Len(t, pending, 1)
	assert.Equal(t, 200.0, pending[0].PreviouslyReceived)
	assert.Equal(t, 300.0, pending[0].PendingQty)
}

func TestCalculatePending_IDMatchIgnoresName(t *testing.T) {
	materialID := id.New()
	src := orderWithLine(materialID, "Glass Jar", 100, 0)

	// Same ID, renamed material: still the same line.
	renamed := receiptWithLine(&materialID, "Glass Jar 500ml", 25, 0)
	// Same name, different ID: a different material entirely.
	otherID := id.New()
	impostor := receiptWithLine(&otherID, "Glass Jar", 25, 0)

	pending := CalculatePending(src, []*ReceiptDocument{renamed, impostor})

	require.Len(t, pending, 1)
	assert.Equal(t, 25.0, pending[0].PreviouslyReceived)
}

func TestPendingCartons(t *testing.T) {
	src := source.New(source.KindChallan, "Jobber & Co")
	src.CartonsSent = 100

	r1 := &ReceiptDocument{Document: entity.NewDocument(), CartonsReturned: 40}
	r2 := &ReceiptDocument{Document: entity.NewDocument(), CartonsReturned: 35}

	assert.Equal(t, 100.0, PendingCartons(src, nil))
	assert.Equal(t, 60.0, PendingCartons(src, []*ReceiptDocument{r1}))
	assert.Equal(t, 25.0, PendingCartons(src, []*ReceiptDocument{r1, r2}))
}

func TestFindPending(t *testing.T) {
	materialID := id.New()
	pending := []PendingQuantity{
		{Material: material.RefByID(materialID), MaterialName: "Glass Jar"},
		{Material: material.RefByName("Label Roll"), MaterialName: "Label Roll"},
	}

	assert.NotNil(t, findPending(pending, material.RefByID(materialID)))
	assert.NotNil(t, findPending(pending, material.RefByName("LABEL ROLL")))
	assert.Nil(t, findPending(pending, material.RefByID(id.New())))
	assert.Nil(t, findPending(pending, material.RefByName("Glass Jar")), "name lookup must not match an id-addressed line")
}
