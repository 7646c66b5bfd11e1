package receipt

import (
	"context"
	"fmt"

	"goodsflow/internal/core/id"
	"goodsflow/internal/core/tx"
	"goodsflow/internal/domain/registers/finishedstock"
	"goodsflow/internal/domain/source"
	"goodsflow/pkg/logger"
)

// Synchronizer writes receipt aggregates back onto the source document.
// After each accepted receipt it recomputes per-line totals across all
// receipts for the source (not just the latest), re-derives the source
// status, and when the source completes, locks every sibling receipt.
type Synchronizer struct {
	sources   source.Repository
	receipts  Repository
	txManager tx.Manager
}

// NewSynchronizer creates a source document synchronizer.
func NewSynchronizer(sources source.Repository, receipts Repository, txManager tx.Manager) *Synchronizer {
	return &Synchronizer{
		sources:   sources,
		receipts:  receipts,
		txManager: txManager,
	}
}

// Sync recomputes source aggregates after the given receipt was accepted.
// currentReceiptID is spared from sibling locking.
func (s *Synchronizer) Sync(ctx context.Context, sourceID, currentReceiptID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		src, err := s.sources.GetForUpdate(ctx, sourceID)
		if err != nil {
			return fmt.Errorf("get source: %w", err)
		}

		lines, err := s.sources.GetLines(ctx, sourceID)
		if err != nil {
			return fmt.Errorf("get source lines: %w", err)
		}
		src.Lines = lines

		receipts, err := s.receipts.ListBySource(ctx, sourceID)
		if err != nil {
			return fmt.Errorf("list receipts: %w", err)
		}

		s.recompute(src, receipts)

		prevStatus := src.Status
		src.Status = src.DeriveStatus()
		src.Touch()

		if err := s.sources.Update(ctx, src); err != nil {
			return fmt.Errorf("update source: %w", err)
		}
		if err := s.sources.SaveLines(ctx, src.ID, src.Lines); err != nil {
			return fmt.Errorf("save source lines: %w", err)
		}

		if src.Status == source.StatusCompleted && prevStatus != source.StatusCompleted {
			if err := s.lockSiblings(ctx, src, receipts, currentReceiptID); err != nil {
				return err
			}
		}

		logger.Info(ctx, "source document synchronized",
			"source_id", sourceID,
			"status", src.Status,
			"receipts", len(receipts),
		)
		return nil
	})
}

// recompute rebuilds line aggregates from the full receipt set.
func (s *Synchronizer) recompute(src *source.SourceDocument, receipts []*ReceiptDocument) {
	for i := range src.Lines {
		srcLine := &src.Lines[i]

		var received, extraReceived float64
		for _, rcpt := range receipts {
			for j := range rcpt.Lines {
				if srcLine.Matches(rcpt.Lines[j].MaterialRef()) {
					received += rcpt.Lines[j].ReceivedQty
					extraReceived += rcpt.Lines[j].ExtraReceivedQty
				}
			}
		}
		srcLine.ReceivedQty = received
		srcLine.ExtraReceivedQty = extraReceived
	}

	if src.Kind == source.KindChallan {
		var returned float64
		for _, rcpt := range receipts {
			returned += rcpt.CartonsReturned
		}
		src.CartonsReturned = returned

		for i := range src.Lines {
			srcLine := &src.Lines[i]
			srcLine.UsedQty, srcLine.RemainingQty = finishedstock.ProportionalUsage(
				returned, src.CartonsSent, srcLine.OrderedQty,
			)
		}
	}
}

// lockSiblings marks every other receipt locked once the source completes.
func (s *Synchronizer) lockSiblings(ctx context.Context, src *source.SourceDocument, receipts []*ReceiptDocument, currentReceiptID id.ID) error {
	note := fmt.Sprintf("source document %s completed", src.Number)

	for _, rcpt := range receipts {
		if rcpt.ID == currentReceiptID || rcpt.Locked {
			continue
		}
		rcpt.Lock(note)
		if err := s.receipts.Update(ctx, rcpt); err != nil {
			return fmt.Errorf("lock sibling receipt %s: %w", rcpt.Number, err)
		}
	}
	return nil
}
