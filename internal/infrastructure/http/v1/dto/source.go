package dto

import (
	"time"

	"goodsflow/internal/core/apperror"
	"goodsflow/internal/core/id"
	"goodsflow/internal/core/types"
	"goodsflow/internal/domain/source"
)

// --- Requests ---

// SourceLineRequest is one commitment line on a source document.
type SourceLineRequest struct {
	MaterialID      *string     `json:"materialId"`
	MaterialName    string      `json:"materialName"`
	ProductName     string      `json:"productName"`
	OrderedQty      float64     `json:"orderedQty" binding:"required,gt=0"`
	ExtraAllowedQty float64     `json:"extraAllowedQty" binding:"gte=0"`
	UnitPrice       types.Money `json:"unitPrice"`
}

func (r SourceLineRequest) toLine() (source.Line, error) {
	line := source.Line{
		MaterialName:    r.MaterialName,
		ProductName:     r.ProductName,
		OrderedQty:      r.OrderedQty,
		ExtraAllowedQty: r.ExtraAllowedQty,
		UnitPrice:       r.UnitPrice,
	}

	if r.MaterialID != nil && *r.MaterialID != "" {
		materialID, err := id.Parse(*r.MaterialID)
		if err != nil {
			return line, apperror.NewValidation("invalid material id").
				WithDetail("materialId", *r.MaterialID)
		}
		line.MaterialID = &materialID
	}

	return line, nil
}

// CreateSourceRequest for creating source documents.
type CreateSourceRequest struct {
	Kind        source.Kind         `json:"kind" binding:"required"`
	PartyName   string              `json:"partyName" binding:"required"`
	Date        *time.Time          `json:"date"`
	Comment     string              `json:"comment"`
	CartonsSent float64             `json:"cartonsSent"`
	Lines       []SourceLineRequest `json:"lines" binding:"required,min=1"`
}

// ToEntity builds a SourceDocument from the request.
func (r CreateSourceRequest) ToEntity() (*source.SourceDocument, error) {
	doc := source.New(r.Kind, r.PartyName)
	if r.Date != nil {
		doc.Date = *r.Date
	}
	doc.Comment = r.Comment
	doc.CartonsSent = r.CartonsSent

	for _, lr := range r.Lines {
		line, err := lr.toLine()
		if err != nil {
			return nil, err
		}
		doc.AddLine(line)
	}

	return doc, nil
}

// UpdateSourceRequest for updating source documents. Nil fields keep the
// current value; lines, when present, replace the committed set.
type UpdateSourceRequest struct {
	PartyName   *string              `json:"partyName"`
	Date        *time.Time           `json:"date"`
	Comment     *string              `json:"comment"`
	CartonsSent *float64             `json:"cartonsSent"`
	Lines       *[]SourceLineRequest `json:"lines"`
	Version     int                  `json:"version" binding:"required,min=1"`
}

// ApplyTo mutates an existing document with the request fields.
func (r UpdateSourceRequest) ApplyTo(doc *source.SourceDocument) error {
	doc.Version = r.Version

	if r.PartyName != nil {
		doc.PartyName = *r.PartyName
	}
	if r.Date != nil {
		doc.Date = *r.Date
	}
	if r.Comment != nil {
		doc.Comment = *r.Comment
	}
	if r.CartonsSent != nil {
		doc.CartonsSent = *r.CartonsSent
	}

	if r.Lines != nil {
		doc.Lines = doc.Lines[:0]
		for _, lr := range *r.Lines {
			line, err := lr.toLine()
			if err != nil {
				return err
			}
			doc.AddLine(line)
		}
	}

	return nil
}

// --- Responses ---

// SourceLineResponse is one commitment line with receipt aggregates.
type SourceLineResponse struct {
	LineID           string      `json:"lineId"`
	LineNo           int         `json:"lineNo"`
	MaterialID       *string     `json:"materialId,omitempty"`
	MaterialName     string      `json:"materialName,omitempty"`
	ProductName      string      `json:"productName,omitempty"`
	OrderedQty       float64     `json:"orderedQty"`
	ExtraAllowedQty  float64     `json:"extraAllowedQty"`
	UnitPrice        types.Money `json:"unitPrice"`
	ReceivedQty      float64     `json:"receivedQty"`
	ExtraReceivedQty float64     `json:"extraReceivedQty"`
	UsedQty          float64     `json:"usedQty"`
	RemainingQty     float64     `json:"remainingQty"`
}

// SourceResponse contains a source document with lines.
type SourceResponse struct {
	ID              string               `json:"id"`
	Version         int                  `json:"version"`
	Number          string               `json:"number"`
	Date            time.Time            `json:"date"`
	Kind            source.Kind          `json:"kind"`
	PartyName       string               `json:"partyName"`
	Status          source.Status        `json:"status"`
	CartonsSent     float64              `json:"cartonsSent,omitempty"`
	CartonsReturned float64              `json:"cartonsReturned,omitempty"`
	Comment         string               `json:"comment,omitempty"`
	Locked          bool                 `json:"locked"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
	Lines           []SourceLineResponse `json:"lines"`
}

// FromSource creates SourceResponse from a document.
func FromSource(doc *source.SourceDocument) SourceResponse {
	resp := SourceResponse{
		ID:              doc.ID.String(),
		Version:         doc.Version,
		Number:          doc.Number,
		Date:            doc.Date,
		Kind:            doc.Kind,
		PartyName:       doc.PartyName,
		Status:          doc.Status,
		CartonsSent:     doc.CartonsSent,
		CartonsReturned: doc.CartonsReturned,
		Comment:         doc.Comment,
		Locked:          doc.Locked,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
		Lines:           make([]SourceLineResponse, 0, len(doc.Lines)),
	}

	for _, line := range doc.Lines {
		lr := SourceLineResponse{
			LineID:           line.LineID.String(),
			LineNo:           line.LineNo,
			MaterialName:     line.MaterialName,
			ProductName:      line.ProductName,
			OrderedQty:       line.OrderedQty,
			ExtraAllowedQty:  line.ExtraAllowedQty,
			UnitPrice:        line.UnitPrice,
			ReceivedQty:      line.ReceivedQty,
			ExtraReceivedQty: line.ExtraReceivedQty,
			UsedQty:          line.UsedQty,
			RemainingQty:     line.RemainingQty,
		}
		if line.MaterialID != nil {
			s := line.MaterialID.String()
			lr.MaterialID = &s
		}
		resp.Lines = append(resp.Lines, lr)
	}

	return resp
}

// FromSourceList maps a slice of documents.
func FromSourceList(docs []*source.SourceDocument) []SourceResponse {
	out := make([]SourceResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, FromSource(doc))
	}
	return out
}
