package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goodsflow/internal/core/id"
	"goodsflow/internal/core/types"
	"goodsflow/internal/domain/material"
)

func validOrder() *SourceDocument {
	materialID := id.New()
	src := New(KindOrder, "Acme Supplies")
	src.AddLine(Line{
		MaterialID:      &materialID,
		MaterialName:    "Glass Jar",
		OrderedQty:      100,
		ExtraAllowedQty: 10,
		UnitPrice:       types.MustMoney("12.50"),
	})
	return src
}

func validChallan() *SourceDocument {
	src := New(KindChallan, "Jobber & Co")
	src.CartonsSent = 100
	src.AddLine(Line{
		MaterialName: "Label Roll",
		ProductName:  "Jar 500g",
		OrderedQty:   500,
	})
	return src
}

func TestValidate(t *testing.T) {
	ctx := context.Background()

	t.Run("valid order", func(t *testing.T) {
		assert.NoError(t, validOrder().Validate(ctx))
	})

	t.Run("valid challan", func(t *testing.T) {
		assert.NoError(t, validChallan().Validate(ctx))
	})

	t.Run("missing party", func(t *testing.T) {
		src := validOrder()
		src.PartyName = "   "
		assert.Error(t, src.Validate(ctx))
	})

	t.Run("no lines", func(t *testing.T) {
		src := New(KindOrder, "Acme Supplies")
		assert.Error(t, src.Validate(ctx))
	})

	t.Run("challan without cartons sent", func(t *testing.T) {
		src := validChallan()
		src.CartonsSent = 0
		assert.Error(t, src.Validate(ctx))
	})

	t.Run("challan line with extra allowance", func(t *testing.T) {
		src := validChallan()
		src.Lines[0].ExtraAllowedQty = 5
		assert.Error(t, src.Validate(ctx))
	})

	t.Run("non-positive ordered quantity", func(t *testing.T) {
		src := validOrder()
		src.Lines[0].OrderedQty = 0
		assert.Error(t, src.Validate(ctx))
	})
}

func TestAddLine_NumbersAndDefaults(t *testing.T) {
	src := validChallan()
	src.AddLine(Line{MaterialName: "Cap Foil", ProductName: "Jar 250g", OrderedQty: 300})

	require.Len(t, src.Lines, 2)
	assert.Equal(t, 1, src.Lines[0].LineNo)
	assert.Equal(t, 2, src.Lines[1].LineNo)
	assert.False(t, id.IsNil(src.Lines[1].LineID))
	assert.Equal(t, 300.0, src.Lines[1].RemainingQty, "remaining starts at the sent quantity")
}

func TestMatches(t *testing.T) {
	materialID := id.New()
	byID := Line{MaterialID: &materialID, MaterialName: "Glass Jar"}
	byName := Line{MaterialName: "Label  Roll"}

	assert.True(t, byID.Matches(material.RefByID(materialID)))
	assert.False(t, byID.Matches(material.RefByID(id.New())))

	assert.True(t, byName.Matches(material.RefByName("label roll")), "name match is case-insensitive and whitespace-normalized")
	assert.False(t, byName.Matches(material.RefByName("Cap Foil")))
}

func TestDeriveStatus_Order(t *testing.T) {
	src := validOrder()
	assert.Equal(t, StatusPending, src.DeriveStatus())

	src.Lines[0].ReceivedQty = 60
	assert.Equal(t, StatusPartial, src.DeriveStatus())

	src.Lines[0].ReceivedQty = 100
	assert.Equal(t, StatusCompleted, src.DeriveStatus())

	// Orders complete on exact equality, not tolerance.
	src.Lines[0].ReceivedQty = 99.9995
	assert.Equal(t, StatusPartial, src.DeriveStatus())
}

func TestDeriveStatus_Challan(t *testing.T) {
	src := validChallan()
	assert.Equal(t, StatusPending, src.DeriveStatus())

	src.CartonsReturned = 40
	assert.Equal(t, StatusPartial, src.DeriveStatus())

	// Challans tolerate proportional rounding noise.
	src.CartonsReturned = 99.9995
	assert.Equal(t, StatusCompleted, src.DeriveStatus())
}

func TestDeriveStatus_CancelledIsSticky(t *testing.T) {
	src := validOrder()
	src.Status = StatusCancelled
	src.Lines[0].ReceivedQty = 100
	assert.Equal(t, StatusCancelled, src.DeriveStatus())
}

func TestCanReceive(t *testing.T) {
	src := validOrder()
	assert.NoError(t, src.CanReceive())

	src.Status = StatusCancelled
	assert.Error(t, src.CanReceive())
}
