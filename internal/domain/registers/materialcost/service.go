// Package materialcost provides the weighted-average cost register service.
package materialcost

import (
	"context"
	"fmt"
	"time"

	"goodsflow/internal/core/apperror"
	"goodsflow/internal/core/id"
	"goodsflow/internal/core/types"
	"goodsflow/internal/domain"
	"goodsflow/internal/domain/material"
	"goodsflow/pkg/logger"
)

// Service provides business operations for the material cost register.
// Transactions are managed by the caller.
type Service struct {
	repo Repository
}

// NewService creates a new material cost register service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// PostInput describes a stock-increase event from an accepted receipt line.
type PostInput struct {
	Material      material.Ref
	QuantityAdded float64
	UnitPrice     types.Money
	ReceiptID     id.ID
	ReceiptNumber string
	Date          time.Time
}

// Post records a stock increase and recomputes the weighted average.
// The history keeps exactly one trailing AveragePrice entry: any stale
// one is dropped, the receipt event appended, and the average recomputed
// from InitialStock and ReceiptEvent entries before re-appending it.
func (s *Service) Post(ctx context.Context, in PostInput) error {
	if in.QuantityAdded <= 0 {
		return apperror.NewValidation("quantity added must be positive").
			WithDetail("material", in.Material.String()).
			WithDetail("quantity", in.QuantityAdded)
	}
	if in.UnitPrice.IsNegative() {
		return apperror.NewValidation("unit price cannot be negative").
			WithDetail("material", in.Material.String())
	}

	rec, err := s.repo.GetForUpdate(ctx, in.Material)
	if err != nil {
		return fmt.Errorf("get stock record for %s: %w", in.Material, err)
	}

	history, err := s.repo.GetHistory(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("get history: %w", err)
	}

	history = trimTrailingAverage(history)

	// An edited receipt reposts; its earlier event is replaced so the
	// same receipt never counts twice.
	history = dropReceiptEvents(history, in.ReceiptID)

	receiptID := in.ReceiptID
	occurredAt := in.Date
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	history = append(history, PriceEvent{
		ID:            id.New(),
		RecordID:      rec.ID,
		Seq:           len(history) + 1,
		Kind:          EventReceipt,
		Quantity:      in.QuantityAdded,
		UnitPrice:     in.UnitPrice,
		ReceiptID:     &receiptID,
		ReceiptNumber: in.ReceiptNumber,
		OccurredAt:    occurredAt,
	})

	totalQty, avg := WeightedAverage(history)

	history = append(history, PriceEvent{
		ID:         id.New(),
		RecordID:   rec.ID,
		Seq:        len(history) + 1,
		Kind:       EventAveragePrice,
		Quantity:   totalQty,
		UnitPrice:  avg,
		OccurredAt: occurredAt,
	})

	rec.Quantity = totalQty
	rec.PerUnitPrice = avg
	rec.Touch()

	if err := s.repo.Update(ctx, rec); err != nil {
		return fmt.Errorf("update stock record: %w", err)
	}
	if err := s.repo.SaveHistory(ctx, rec.ID, history); err != nil {
		return fmt.Errorf("save history: %w", err)
	}

	logger.Info(ctx, "posted material receipt to cost register",
		"material", in.Material.String(),
		"quantity_added", in.QuantityAdded,
		"new_average", avg,
	)

	return nil
}

// Unpost withdraws every event a receipt contributed to a material's
// history and recomputes the aggregates, as when an edit drops the
// material from the receipt. A receipt with no events here is a no-op.
func (s *Service) Unpost(ctx context.Context, ref material.Ref, receiptID id.ID) error {
	rec, err := s.repo.GetForUpdate(ctx, ref)
	if err != nil {
		return fmt.Errorf("get stock record for %s: %w", ref, err)
	}

	history, err := s.repo.GetHistory(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("get history: %w", err)
	}

	trimmed := trimTrailingAverage(history)
	remaining := dropReceiptEvents(trimmed, receiptID)
	if len(remaining) == len(trimmed) {
		return nil
	}

	totalQty, avg := WeightedAverage(remaining)

	remaining = append(remaining, PriceEvent{
		ID:         id.New(),
		RecordID:   rec.ID,
		Seq:        len(remaining) + 1,
		Kind:       EventAveragePrice,
		Quantity:   totalQty,
		UnitPrice:  avg,
		OccurredAt: time.Now().UTC(),
	})

	rec.Quantity = totalQty
	rec.PerUnitPrice = avg
	rec.Touch()

	if err := s.repo.Update(ctx, rec); err != nil {
		return fmt.Errorf("update stock record: %w", err)
	}
	if err := s.repo.SaveHistory(ctx, rec.ID, remaining); err != nil {
		return fmt.Errorf("save history: %w", err)
	}

	logger.Info(ctx, "withdrew receipt from cost register",
		"material", ref.String(),
		"receipt_id", receiptID,
		"new_average", avg,
	)

	return nil
}

// CreateRecord opens a stock record with initial stock.
// Each material has at most one record.
func (s *Service) CreateRecord(ctx context.Context, materialID id.ID, materialName string, initialQty float64, initialPrice types.Money) (*StockRecord, error) {
	if initialQty < 0 {
		return nil, apperror.NewValidation("initial quantity cannot be negative").
			WithDetail("material", materialName)
	}

	existing, err := s.repo.GetByMaterial(ctx, material.RefByID(materialID))
	if err == nil && existing != nil {
		return nil, apperror.NewConflict("stock record already exists for material").
			WithDetail("material", materialName)
	}
	if err != nil && !apperror.IsNotFound(err) {
		return nil, err
	}

	rec := NewStockRecord(materialID, materialName, initialQty, initialPrice)
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create stock record: %w", err)
	}
	return rec, nil
}

// Get retrieves a stock record with its full history.
func (s *Service) Get(ctx context.Context, ref material.Ref) (*StockRecord, error) {
	rec, err := s.repo.GetByMaterial(ctx, ref)
	if err != nil {
		return nil, err
	}

	history, err := s.repo.GetHistory(ctx, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	rec.History = history

	return rec, nil
}

// List retrieves stock records with filtering.
func (s *Service) List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*StockRecord], error) {
	return s.repo.List(ctx, filter)
}

// Rebuild recomputes quantity and average price from the event history,
// repairing records whose aggregates drifted from their events.
func (s *Service) Rebuild(ctx context.Context, ref material.Ref) error {
	rec, err := s.repo.GetForUpdate(ctx, ref)
	if err != nil {
		return fmt.Errorf("get stock record for %s: %w", ref, err)
	}

	history, err := s.repo.GetHistory(ctx, rec.ID)
	if err != nil {
		return fmt.Errorf("get history: %w", err)
	}

	history = trimTrailingAverage(history)
	totalQty, avg := WeightedAverage(history)

	history = append(history, PriceEvent{
		ID:         id.New(),
		RecordID:   rec.ID,
		Seq:        len(history) + 1,
		Kind:       EventAveragePrice,
		Quantity:   totalQty,
		UnitPrice:  avg,
		OccurredAt: time.Now().UTC(),
	})

	rec.Quantity = totalQty
	rec.PerUnitPrice = avg
	rec.Touch()

	if err := s.repo.Update(ctx, rec); err != nil {
		return fmt.Errorf("update stock record: %w", err)
	}
	if err := s.repo.SaveHistory(ctx, rec.ID, history); err != nil {
		return fmt.Errorf("save history: %w", err)
	}

	logger.Info(ctx, "rebuilt material cost record",
		"material", ref.String(),
		"quantity", totalQty,
		"average", avg,
	)

	return nil
}
