package materialcost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goodsflow/internal/core/id"
	"goodsflow/internal/core/types"
)

func event(kind EventKind, qty float64, price string) PriceEvent {
	return PriceEvent{ID: id.New(), Kind: kind, Quantity: qty, UnitPrice: types.MustMoney(price)}
}

func TestWeightedAverage(t *testing.T) {
	history := []PriceEvent{
		event(EventInitialStock, 100, "10.00"),
		event(EventReceipt, 50, "16.00"),
	}

	qty, avg := WeightedAverage(history)
	assert.Equal(t, 150.0, qty)
	assert.True(t, avg.Equal(types.MustMoney("12.00")), "got %s", avg)
}

func TestWeightedAverage_IgnoresAverageEntries(t *testing.T) {
	history := []PriceEvent{
		event(EventInitialStock, 100, "10.00"),
		event(EventAveragePrice, 100, "10.00"),
		event(EventReceipt, 100, "20.00"),
		event(EventAveragePrice, 200, "15.00"),
	}

	qty, avg := WeightedAverage(history)
	assert.Equal(t, 200.0, qty, "average entries never count as stock")
	assert.True(t, avg.Equal(types.MustMoney("15.00")), "got %s", avg)
}

func TestWeightedAverage_ZeroQuantity(t *testing.T) {
	qty, avg := WeightedAverage([]PriceEvent{event(EventInitialStock, 0, "10.00")})
	assert.Equal(t, 0.0, qty)
	assert.True(t, avg.IsZero())
}

func TestWeightedAverage_ZeroPricedInitialStock(t *testing.T) {
	history := []PriceEvent{
		event(EventInitialStock, 0, "0"),
		event(EventReceipt, 50, "10.00"),
	}

	qty, avg := WeightedAverage(history)
	assert.Equal(t, 50.0, qty)
	assert.True(t, avg.Equal(types.MustMoney("10.00")), "got %s", avg)
}

func TestTrimTrailingAverage(t *testing.T) {
	history := []PriceEvent{
		event(EventInitialStock, 100, "10.00"),
		event(EventReceipt, 50, "16.00"),
		event(EventAveragePrice, 150, "12.00"),
	}

	trimmed := trimTrailingAverage(history)
	require.Len(t, trimmed, 2)
	assert.Equal(t, EventReceipt, trimmed[1].Kind)

	// Already trimmed input is a no-op.
	assert.Len(t, trimTrailingAverage(trimmed), 2)
	assert.Empty(t, trimTrailingAverage(nil))
}

func TestDropReceiptEvents(t *testing.T) {
	receiptID := id.New()
	otherID := id.New()

	mine := event(EventReceipt, 50, "16.00")
	mine.ReceiptID = &receiptID
	theirs := event(EventReceipt, 30, "14.00")
	theirs.ReceiptID = &otherID

	history := []PriceEvent{event(EventInitialStock, 100, "10.00"), mine, theirs}

	kept := dropReceiptEvents(history, receiptID)
	require.Len(t, kept, 2)
	assert.Equal(t, EventInitialStock, kept[0].Kind)
	assert.Equal(t, otherID, *kept[1].ReceiptID)
	assert.Equal(t, 1, kept[0].Seq)
	assert.Equal(t, 2, kept[1].Seq, "remaining events are renumbered")
}

func TestNewStockRecord_SeedsInitialEntry(t *testing.T) {
	rec := NewStockRecord(id.New(), "Glass Jar", 100, types.MustMoney("10.00"))

	assert.Equal(t, 100.0, rec.Quantity)
	require.Len(t, rec.History, 1)
	assert.Equal(t, EventInitialStock, rec.History[0].Kind)
	assert.Equal(t, rec.ID, rec.History[0].RecordID)
}
