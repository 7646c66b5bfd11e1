// Package materialcost provides the weighted-average cost register.
// Each material owns one StockRecord with an ordered pricing history:
// one InitialStock entry, chronological ReceiptEvent entries, and a
// single trailing AveragePrice entry that is recomputed on every post.
package materialcost

import (
	"time"

	"github.com/shopspring/decimal"

	"goodsflow/internal/core/entity"
	"goodsflow/internal/core/id"
	"goodsflow/internal/core/types"
)

// EventKind classifies a pricing history entry.
type EventKind string

const (
	EventInitialStock EventKind = "InitialStock"
	EventReceipt      EventKind = "ReceiptEvent"
	EventAveragePrice EventKind = "AveragePrice"
)

// PriceEvent is one entry in a material's pricing history.
type PriceEvent struct {
	ID       id.ID `db:"id" json:"id"`
	RecordID id.ID `db:"record_id" json:"recordId"`
	Seq      int   `db:"seq" json:"seq"`

	Kind EventKind `db:"kind" json:"kind"`

	// Quantity added by this event. For AveragePrice entries this is the
	// total quantity the average was computed over.
	Quantity float64 `db:"quantity" json:"quantity"`

	// UnitPrice of the added quantity, or the computed average.
	UnitPrice types.Money `db:"unit_price" json:"unitPrice"`

	// ReceiptID links ReceiptEvent entries to their receipt.
	ReceiptID     *id.ID `db:"receipt_id" json:"receiptId,omitempty"`
	ReceiptNumber string `db:"receipt_number" json:"receiptNumber,omitempty"`

	OccurredAt time.Time `db:"occurred_at" json:"occurredAt"`
}

// StockRecord is the per-material cost and quantity state.
type StockRecord struct {
	entity.BaseEntity

	MaterialID   id.ID  `db:"material_id" json:"materialId"`
	MaterialName string `db:"material_name" json:"materialName"`

	// Quantity on hand
	Quantity float64 `db:"quantity" json:"quantity"`

	// PerUnitPrice is the current weighted-average unit price
	PerUnitPrice types.Money `db:"per_unit_price" json:"perUnitPrice"`

	// History is the ordered pricing event log
	History []PriceEvent `db:"-" json:"history,omitempty"`
}

// NewStockRecord creates a record seeded with an InitialStock entry.
func NewStockRecord(materialID id.ID, materialName string, initialQty float64, initialPrice types.Money) *StockRecord {
	rec := &StockRecord{
		BaseEntity:   entity.NewBaseEntity(),
		MaterialID:   materialID,
		MaterialName: materialName,
		Quantity:     initialQty,
		PerUnitPrice: initialPrice,
	}
	rec.History = []PriceEvent{{
		ID:         id.New(),
		RecordID:   rec.ID,
		Seq:        1,
		Kind:       EventInitialStock,
		Quantity:   initialQty,
		UnitPrice:  initialPrice,
		OccurredAt: time.Now().UTC(),
	}}
	return rec
}

// WeightedAverage recomputes quantity and average price strictly from
// InitialStock and ReceiptEvent entries. AveragePrice entries are
// excluded so repeated recomputation never compounds rounding drift.
// Returns average 0 when total quantity is 0.
func WeightedAverage(history []PriceEvent) (totalQty float64, avg types.Money) {
	totalValue := decimal.Zero
	for i := range history {
		e := &history[i]
		if e.Kind != EventInitialStock && e.Kind != EventReceipt {
			continue
		}
		totalQty += e.Quantity
		totalValue = totalValue.Add(e.UnitPrice.Mul(decimal.NewFromFloat(e.Quantity)))
	}

	if types.QtyZero(totalQty) {
		return totalQty, decimal.Zero
	}
	return totalQty, totalValue.Div(decimal.NewFromFloat(totalQty)).Round(4)
}

// trimTrailingAverage removes any trailing AveragePrice entries so the
// history never carries a stale average.
func trimTrailingAverage(history []PriceEvent) []PriceEvent {
	for len(history) > 0 && history[len(history)-1].Kind == EventAveragePrice {
		history = history[:len(history)-1]
	}
	return history
}

// dropReceiptEvents removes ReceiptEvent entries recorded by the given
// receipt and renumbers the remainder.
func dropReceiptEvents(history []PriceEvent, receiptID id.ID) []PriceEvent {
	kept := history[:0]
	for i := range history {
		e := history[i]
		if e.Kind == EventReceipt && e.ReceiptID != nil && *e.ReceiptID == receiptID {
			continue
		}
		e.Seq = len(kept) + 1
		kept = append(kept, e)
	}
	return kept
}
