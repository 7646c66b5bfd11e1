package dto

import (
	"time"

	"goodsflow/internal/core/types"
	"goodsflow/internal/domain/registers/finishedstock"
	"goodsflow/internal/domain/registers/materialcost"
)

// --- Material cost register ---

// CreateStockRecordRequest opens a cost ledger for a material.
type CreateStockRecordRequest struct {
	MaterialID   string      `json:"materialId" binding:"required"`
	MaterialName string      `json:"materialName" binding:"required"`
	InitialQty   float64     `json:"initialQty" binding:"gte=0"`
	InitialPrice types.Money `json:"initialPrice"`
}

// PriceEventResponse is one ledger entry.
type PriceEventResponse struct {
	Seq           int                    `json:"seq"`
	Kind          materialcost.EventKind `json:"kind"`
	Quantity      float64                `json:"quantity"`
	UnitPrice     types.Money            `json:"unitPrice"`
	ReceiptNumber string                 `json:"receiptNumber,omitempty"`
	OccurredAt    time.Time              `json:"occurredAt"`
}

// StockRecordResponse is the cost ledger state for a material.
type StockRecordResponse struct {
	ID           string               `json:"id"`
	MaterialID   string               `json:"materialId"`
	MaterialName string               `json:"materialName"`
	Quantity     float64              `json:"quantity"`
	PerUnitPrice types.Money          `json:"perUnitPrice"`
	History      []PriceEventResponse `json:"history,omitempty"`
}

// FromStockRecord creates StockRecordResponse from a record.
func FromStockRecord(rec *materialcost.StockRecord) StockRecordResponse {
	resp := StockRecordResponse{
		ID:           rec.ID.String(),
		MaterialID:   rec.MaterialID.String(),
		MaterialName: rec.MaterialName,
		Quantity:     rec.Quantity,
		PerUnitPrice: rec.PerUnitPrice,
	}

	for _, ev := range rec.History {
		resp.History = append(resp.History, PriceEventResponse{
			Seq:           ev.Seq,
			Kind:          ev.Kind,
			Quantity:      ev.Quantity,
			UnitPrice:     ev.UnitPrice,
			ReceiptNumber: ev.ReceiptNumber,
			OccurredAt:    ev.OccurredAt,
		})
	}

	return resp
}

// FromStockRecordList maps a slice of records.
func FromStockRecordList(recs []*materialcost.StockRecord) []StockRecordResponse {
	out := make([]StockRecordResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, FromStockRecord(rec))
	}
	return out
}

// --- Finished goods register ---

// DeductFinishedStockRequest removes stock in cartons or pieces.
type DeductFinishedStockRequest struct {
	Unit     finishedstock.DeductUnit `json:"unit" binding:"required"`
	Quantity float64                  `json:"quantity" binding:"required,gt=0"`
}

// AddFinishedStockRequest records produced cartons.
type AddFinishedStockRequest struct {
	Cartons float64 `json:"cartons" binding:"required,gt=0"`
}

// FinishedStockResponse is the stock state for a product.
type FinishedStockResponse struct {
	ID                 string  `json:"id"`
	ProductName        string  `json:"productName"`
	UnitsPerCarton     int     `json:"unitsPerCarton"`
	AvailableCartons   float64 `json:"availableCartons"`
	AvailablePieces    float64 `json:"availablePieces"`
	BrokenCartonPieces float64 `json:"brokenCartonPieces"`
	DamagedPieces      float64 `json:"damagedPieces"`
	TotalAvailable     float64 `json:"totalAvailable"`
}

// FromFinishedStock creates FinishedStockResponse from a record.
func FromFinishedStock(stock *finishedstock.FinishedGoodStock) FinishedStockResponse {
	return FinishedStockResponse{
		ID:                 stock.ID.String(),
		ProductName:        stock.ProductName,
		UnitsPerCarton:     stock.UnitsPerCarton,
		AvailableCartons:   stock.AvailableCartons,
		AvailablePieces:    stock.AvailablePieces,
		BrokenCartonPieces: stock.BrokenCartonPieces,
		DamagedPieces:      stock.DamagedPieces,
		TotalAvailable:     stock.TotalAvailable(),
	}
}

// FromFinishedStockList maps a slice of records.
func FromFinishedStockList(stocks []*finishedstock.FinishedGoodStock) []FinishedStockResponse {
	out := make([]FinishedStockResponse, 0, len(stocks))
	for _, stock := range stocks {
		out = append(out, FromFinishedStock(stock))
	}
	return out
}
