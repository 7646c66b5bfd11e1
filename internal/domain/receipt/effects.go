package receipt

import (
	"context"
	"encoding/json"
	"fmt"

	"goodsflow/internal/core/id"
	"goodsflow/internal/core/tx"
	"goodsflow/internal/domain/effects"
	"goodsflow/internal/domain/material"
	"goodsflow/internal/domain/registers/finishedstock"
	"goodsflow/internal/domain/registers/materialcost"
)

// RegisterEffectHandlers wires the secondary-effect kinds emitted by the
// receipt service to the register services. The server and the relay
// install the same handlers so parked effects replay identically.
// Register mutations run inside a transaction so their row locks hold
// across the read-modify-write sequence; the source-sync handler is left
// alone because the synchronizer manages its own transaction.
func RegisterEffectHandlers(
	engine *effects.Engine,
	costs *materialcost.Service,
	finished *finishedstock.Service,
	synchronizer *Synchronizer,
	txManager tx.Manager,
) {
	engine.Register(effects.KindLedgerPost, func(ctx context.Context, payload json.RawMessage) error {
		var p effects.LedgerPostPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("decode ledger post payload: %w", err)
		}
		return txManager.RunInTransaction(ctx, func(ctx context.Context) error {
			return costs.Post(ctx, materialcost.PostInput{
				Material:      ledgerMaterialRef(p.MaterialID, p.MaterialName),
				QuantityAdded: p.QuantityAdded,
				UnitPrice:     p.UnitPrice,
				ReceiptID:     p.ReceiptID,
				ReceiptNumber: p.ReceiptNumber,
				Date:          p.Date,
			})
		})
	})

	engine.Register(effects.KindLedgerReverse, func(ctx context.Context, payload json.RawMessage) error {
		var p effects.LedgerReversePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("decode ledger reverse payload: %w", err)
		}
		return txManager.RunInTransaction(ctx, func(ctx context.Context) error {
			return costs.Unpost(ctx, ledgerMaterialRef(p.MaterialID, p.MaterialName), p.ReceiptID)
		})
	})

	engine.Register(effects.KindFinishedAdd, func(ctx context.Context, payload json.RawMessage) error {
		var p effects.FinishedAddPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("decode finished add payload: %w", err)
		}
		return txManager.RunInTransaction(ctx, func(ctx context.Context) error {
			// Negative cartons arrive when a receipt edit shrinks the
			// returned count; they reverse the earlier addition.
			if p.Cartons < 0 {
				return finished.Deduct(ctx, p.ProductName, finishedstock.UnitCartons, -p.Cartons)
			}
			return finished.Add(ctx, p.ProductName, p.Cartons)
		})
	})

	engine.Register(effects.KindFinishedDamaged, func(ctx context.Context, payload json.RawMessage) error {
		var p effects.FinishedDamagedPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("decode finished damaged payload: %w", err)
		}
		return txManager.RunInTransaction(ctx, func(ctx context.Context) error {
			return finished.AddDamaged(ctx, p.ProductName, p.Pieces)
		})
	})

	engine.Register(effects.KindSourceSync, func(ctx context.Context, payload json.RawMessage) error {
		var p effects.SourceSyncPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("decode source sync payload: %w", err)
		}
		return synchronizer.Sync(ctx, p.SourceID, p.CurrentReceiptID)
	})
}

func ledgerMaterialRef(materialID *id.ID, name string) material.Ref {
	if materialID != nil {
		return material.RefByID(*materialID)
	}
	return material.RefByName(name)
}
