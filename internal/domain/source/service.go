// Package source provides the SourceDocument service.
package source

import (
	"context"
	"fmt"
	"time"

	"goodsflow/internal/core/apperror"
	"goodsflow/internal/core/id"
	"goodsflow/internal/core/numerator"
	"goodsflow/internal/core/tx"
	"goodsflow/internal/domain"
	"goodsflow/pkg/logger"
)

// Number prefixes per source kind.
const (
	PrefixOrder   = "PO"
	PrefixChallan = "CHL"
)

// Source documents are internal paperwork, gaps in numbering are acceptable.
var numeratorOpts = &numerator.Options{Strategy: numerator.StrategyCached}

// Service provides business operations for source documents.
type Service struct {
	repo      Repository
	numerator numerator.Generator
	txManager tx.Manager
	hooks     *domain.HookRegistry[*SourceDocument]
}

// NewService creates a new source document service.
func NewService(repo Repository, gen numerator.Generator, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		numerator: gen,
		txManager: txManager,
		hooks:     domain.NewHookRegistry[*SourceDocument](),
	}
}

// Hooks returns the hook registry for registering callbacks.
func (s *Service) Hooks() *domain.HookRegistry[*SourceDocument] {
	return s.hooks
}

// Create creates a new source document with its lines.
func (s *Service) Create(ctx context.Context, doc *SourceDocument) error {
	if err := s.hooks.Run(ctx, domain.BeforeCreate, doc); err != nil {
		return err
	}

	if err := doc.Validate(ctx); err != nil {
		return err
	}

	if doc.Number == "" {
		prefix := PrefixOrder
		if doc.Kind == KindChallan {
			prefix = PrefixChallan
		}
		number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig(prefix), numeratorOpts, time.Now())
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		doc.Number = number
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.hooks.Run(ctx, domain.AfterCreate, doc); err != nil {
		logger.Warn(ctx, "after-create hook failed", "error", err)
	}

	logger.Info(ctx, "source document created",
		"id", doc.ID,
		"number", doc.Number,
		"kind", doc.Kind)

	return nil
}

// GetByID retrieves a source document with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*SourceDocument, error) {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}

	lines, err := s.repo.GetLines(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	doc.Lines = lines

	return doc, nil
}

// Update updates a source document.
func (s *Service) Update(ctx context.Context, doc *SourceDocument) error {
	if err := s.hooks.Run(ctx, domain.BeforeUpdate, doc); err != nil {
		return err
	}

	if err := doc.CanModify(); err != nil {
		return err
	}

	if err := doc.Validate(ctx); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}
		return nil
	})
}

// Cancel marks a source document cancelled. Receipts already recorded
// against it stay untouched, new receipts are rejected.
func (s *Service) Cancel(ctx context.Context, docID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err := s.repo.GetForUpdate(ctx, docID)
		if err != nil {
			return err
		}

		if doc.Status == StatusCompleted {
			return apperror.NewBusinessRule(
				apperror.CodeBusinessRule,
				"completed source document cannot be cancelled",
			).WithDetail("source_id", docID.String())
		}

		doc.Status = StatusCancelled
		doc.Touch()
		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("cancel document: %w", err)
		}

		logger.Info(ctx, "source document cancelled", "id", docID)
		return nil
	})
}

// List retrieves source documents with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*SourceDocument], error) {
	return s.repo.List(ctx, filter)
}
