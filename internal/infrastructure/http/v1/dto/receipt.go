package dto

import (
	"time"

	"goodsflow/internal/core/types"
	"goodsflow/internal/domain/receipt"
	"goodsflow/internal/domain/source"
)

// Receipt submissions bind receipt.Input directly; it is the service's
// public input type and already carries JSON tags. Responses are mapped
// here so wire shape stays decoupled from the domain model.

// ReceiptLineResponse is one received material line.
type ReceiptLineResponse struct {
	LineID           string      `json:"lineId"`
	LineNo           int         `json:"lineNo"`
	MaterialID       *string     `json:"materialId,omitempty"`
	MaterialName     string      `json:"materialName"`
	OrderedQty       float64     `json:"orderedQty"`
	PrevReceivedQty  float64     `json:"prevReceivedQty"`
	ReceivedQty      float64     `json:"receivedQty"`
	ExtraReceivedQty float64     `json:"extraReceivedQty"`
	DamagedQty       float64     `json:"damagedQty"`
	BalanceQty       float64     `json:"balanceQty"`
	CumulativeQty    float64     `json:"cumulativeQty"`
	UnitPrice        types.Money `json:"unitPrice"`
	UsedQty          float64     `json:"usedQty,omitempty"`
	RemainingQty     float64     `json:"remainingQty,omitempty"`
}

// CartonLineResponse is one returned carton group.
type CartonLineResponse struct {
	LineID        string  `json:"lineId"`
	LineNo        int     `json:"lineNo"`
	ProductName   string  `json:"productName"`
	Cartons       float64 `json:"cartons"`
	DamagedPieces float64 `json:"damagedPieces,omitempty"`
}

// ReceiptResponse contains a receipt document with lines.
type ReceiptResponse struct {
	ID              string                `json:"id"`
	Version         int                   `json:"version"`
	Number          string                `json:"number"`
	Date            time.Time             `json:"date"`
	SourceID        string                `json:"sourceId"`
	SourceKind      source.Kind           `json:"sourceKind"`
	ReceivedBy      string                `json:"receivedBy"`
	Status          receipt.Status        `json:"status"`
	CartonsReturned float64               `json:"cartonsReturned,omitempty"`
	Comment         string                `json:"comment,omitempty"`
	Locked          bool                  `json:"locked"`
	LockNote        string                `json:"lockNote,omitempty"`
	CreatedAt       time.Time             `json:"createdAt"`
	UpdatedAt       time.Time             `json:"updatedAt"`
	Lines           []ReceiptLineResponse `json:"lines"`
	CartonLines     []CartonLineResponse  `json:"cartonLines,omitempty"`
}

// FromReceipt creates ReceiptResponse from a document.
func FromReceipt(doc *receipt.ReceiptDocument) ReceiptResponse {
	resp := ReceiptResponse{
		ID:              doc.ID.String(),
		Version:         doc.Version,
		Number:          doc.Number,
		Date:            doc.Date,
		SourceID:        doc.SourceID.String(),
		SourceKind:      doc.SourceKind,
		ReceivedBy:      doc.ReceivedBy,
		Status:          doc.Status,
		CartonsReturned: doc.CartonsReturned,
		Comment:         doc.Comment,
		Locked:          doc.Locked,
		LockNote:        doc.LockNote,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
		Lines:           make([]ReceiptLineResponse, 0, len(doc.Lines)),
	}

	for _, line := range doc.Lines {
		lr := ReceiptLineResponse{
			LineID:           line.LineID.String(),
			LineNo:           line.LineNo,
			MaterialName:     line.MaterialName,
			OrderedQty:       line.OrderedQty,
			PrevReceivedQty:  line.PrevReceivedQty,
			ReceivedQty:      line.ReceivedQty,
			ExtraReceivedQty: line.ExtraReceivedQty,
			DamagedQty:       line.DamagedQty,
			BalanceQty:       line.BalanceQty,
			CumulativeQty:    line.CumulativeQty,
			UnitPrice:        line.UnitPrice,
			UsedQty:          line.UsedQty,
			RemainingQty:     line.RemainingQty,
		}
		if line.MaterialID != nil {
			s := line.MaterialID.String()
			lr.MaterialID = &s
		}
		resp.Lines = append(resp.Lines, lr)
	}

	for _, line := range doc.CartonLines {
		resp.CartonLines = append(resp.CartonLines, CartonLineResponse{
			LineID:        line.LineID.String(),
			LineNo:        line.LineNo,
			ProductName:   line.ProductName,
			Cartons:       line.Cartons,
			DamagedPieces: line.DamagedPieces,
		})
	}

	return resp
}

// FromReceiptList maps a slice of documents.
func FromReceiptList(docs []*receipt.ReceiptDocument) []ReceiptResponse {
	out := make([]ReceiptResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, FromReceipt(doc))
	}
	return out
}

// PendingResponse answers "how much is still receivable" for a source.
type PendingResponse struct {
	SourceID string                    `json:"sourceId"`
	Lines    []receipt.PendingQuantity `json:"lines,omitempty"`

	// Challan sources report a single carton balance instead of lines.
	PendingCartons *float64 `json:"pendingCartons,omitempty"`
}
