package receipt

import (
	"strings"

	"goodsflow/internal/core/id"
	"goodsflow/internal/core/types"
	"goodsflow/internal/domain/material"
	"goodsflow/internal/domain/source"
)

// PendingQuantity is the outstanding balance for one source line.
type PendingQuantity struct {
	LineID       id.ID        `json:"lineId"`
	Material     material.Ref `json:"material"`
	MaterialName string       `json:"materialName"`

	OrderedQty      float64 `json:"orderedQty"`
	ExtraAllowedQty float64 `json:"extraAllowedQty"`

	PreviouslyReceived      float64 `json:"previouslyReceived"`
	PreviouslyExtraReceived float64 `json:"previouslyExtraReceived"`

	PendingQty      float64 `json:"pendingQty"`
	PendingExtraQty float64 `json:"pendingExtraQty"`
}

// CalculatePending computes outstanding quantities per source line by
// summing received quantities across the given receipts. The caller is
// responsible for excluding the receipt being updated, so its own
// quantities never count against themselves.
func CalculatePending(src *source.SourceDocument, others []*ReceiptDocument) []PendingQuantity {
	result := make([]PendingQuantity, 0, len(src.Lines))

	for i := range src.Lines {
		srcLine := &src.Lines[i]
		ref := srcLine.MaterialRef()

		var received, extraReceived float64
		for _, other := range others {
			for j := range other.Lines {
				if srcLine.Matches(other.Lines[j].MaterialRef()) {
					received += other.Lines[j].ReceivedQty
					extraReceived += other.Lines[j].ExtraReceivedQty
				}
			}
		}

		result = append(result, PendingQuantity{
			LineID:                  srcLine.LineID,
			Material:                ref,
			MaterialName:            srcLine.MaterialName,
			OrderedQty:              srcLine.OrderedQty,
			ExtraAllowedQty:         srcLine.ExtraAllowedQty,
			PreviouslyReceived:      received,
			PreviouslyExtraReceived: extraReceived,
			PendingQty:              types.ClampQty(srcLine.OrderedQty - received),
			PendingExtraQty:         types.ClampQty(srcLine.ExtraAllowedQty - extraReceived),
		})
	}

	return result
}

// PendingCartons computes the outstanding carton count for a challan by
// summing cartons returned across the given receipts.
func PendingCartons(src *source.SourceDocument, others []*ReceiptDocument) float64 {
	var returned float64
	for _, other := range others {
		returned += other.CartonsReturned
	}
	return types.ClampQty(src.CartonsSent - returned)
}

// findPending locates the pending entry for a material reference.
func findPending(pending []PendingQuantity, ref material.Ref) *PendingQuantity {
	for i := range pending {
		if pending[i].Material.IsByID() && ref.IsByID() {
			if *pending[i].Material.ID == *ref.ID {
				return &pending[i]
			}
			continue
		}
		if !pending[i].Material.IsByID() && !ref.IsByID() {
			if strings.EqualFold(material.NormalizeName(pending[i].Material.Name), material.NormalizeName(ref.Name)) {
				return &pending[i]
			}
		}
	}
	return nil
}
