package effects

import (
	"time"

	"goodsflow/internal/core/id"
	"goodsflow/internal/core/types"
)

// LedgerPostPayload posts a stock increase to the material cost register.
type LedgerPostPayload struct {
	MaterialID    *id.ID      `json:"materialId,omitempty"`
	MaterialName  string      `json:"materialName"`
	QuantityAdded float64     `json:"quantityAdded"`
	UnitPrice     types.Money `json:"unitPrice"`
	ReceiptID     id.ID       `json:"receiptId"`
	ReceiptNumber string      `json:"receiptNumber"`
	Date          time.Time   `json:"date"`
}

// LedgerReversePayload withdraws a receipt's events from a material's
// cost history, used when an edit drops the material from the receipt.
type LedgerReversePayload struct {
	MaterialID   *id.ID `json:"materialId,omitempty"`
	MaterialName string `json:"materialName"`
	ReceiptID    id.ID  `json:"receiptId"`
}

// FinishedAddPayload adds returned cartons to finished-goods stock.
type FinishedAddPayload struct {
	ProductName string  `json:"productName"`
	Cartons     float64 `json:"cartons"`
}

// FinishedDamagedPayload records damaged pieces on finished-goods stock.
type FinishedDamagedPayload struct {
	ProductName string  `json:"productName"`
	Pieces      float64 `json:"pieces"`
}

// SourceSyncPayload triggers source aggregate recomputation after a receipt.
type SourceSyncPayload struct {
	SourceID         id.ID `json:"sourceId"`
	CurrentReceiptID id.ID `json:"currentReceiptId"`
}
