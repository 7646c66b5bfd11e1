package receipt

import (
	"goodsflow/internal/core/types"
)

// Status classifies a receipt by how far it satisfies the commitment.
type Status string

const (
	// StatusPartial: the commitment is not yet fully met. The only
	// editable state.
	StatusPartial Status = "Partial"

	// StatusCompleted: both the ordered quantities and the full extra
	// allowance have been received.
	StatusCompleted Status = "Completed"

	// StatusNormalCompleted: ordered quantities fully received, extra
	// allowance not (or not fully) used.
	StatusNormalCompleted Status = "NormalCompleted"

	// StatusExtraCompleted: extra allowance exhausted while ordered
	// quantities are still short.
	StatusExtraCompleted Status = "ExtraCompleted"
)

// IsTerminal reports whether the status locks the receipt against edits.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusNormalCompleted || s == StatusExtraCompleted
}

// Evaluate derives the status from the two per-document match flags.
// Pure function of its inputs; re-evaluation is idempotent.
func Evaluate(normalFullyMatched, extraFullyMatched bool) Status {
	switch {
	case normalFullyMatched && extraFullyMatched:
		return StatusCompleted
	case normalFullyMatched:
		return StatusNormalCompleted
	case extraFullyMatched:
		return StatusExtraCompleted
	default:
		return StatusPartial
	}
}

// EvaluateCarton derives the binary status for challan receipts. There is
// no extra concept for cartons: either the pending cartons are used up
// within tolerance or the receipt stays Partial.
func EvaluateCarton(pendingCartons, cartonsReturned float64) Status {
	if types.QtyEqual(pendingCartons-cartonsReturned, 0) {
		return StatusCompleted
	}
	return StatusPartial
}
