package material

import (
	"context"
	"strings"

	"goodsflow/internal/core/apperror"
	"goodsflow/internal/core/tx"
	"goodsflow/internal/domain"
)

// Service provides business logic for the Material catalog.
// Uses composition with domain.CatalogService for common CRUD operations.
type Service struct {
	*domain.CatalogService[*Material]
	repo Repository
}

// NewService creates a new Material service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Material]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "material",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
	}

	base.Hooks().On(domain.BeforeCreate, svc.checkNameUnique)
	base.Hooks().On(domain.BeforeUpdate, svc.checkNameUnique)

	return svc
}

// Resolve looks up the material a reference addresses. References by name
// resolve to an existing material only; unknown names are not auto-created
// because a typo would silently fork the cost ledger.
func (s *Service) Resolve(ctx context.Context, ref Ref) (*Material, error) {
	if err := ref.Validate(ctx); err != nil {
		return nil, err
	}

	if ref.IsByID() {
		return s.GetByID(ctx, *ref.ID)
	}
	return s.GetByName(ctx, ref.Name)
}

// checkNameUnique verifies no other material uses the same name.
func (s *Service) checkNameUnique(ctx context.Context, m *Material) error {
	existing, err := s.repo.GetByName(ctx, m.Name)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil
		}
		return err
	}
	if existing.ID != m.ID {
		return apperror.NewConflict("material with this name already exists").
			WithDetail("name", m.Name)
	}
	return nil
}

// NormalizeName trims and collapses whitespace for name-based lookups.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}
