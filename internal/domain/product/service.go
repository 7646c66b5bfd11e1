package product

import (
	"context"

	"goodsflow/internal/core/apperror"
	"goodsflow/internal/core/tx"
	"goodsflow/internal/domain"
)

// Service provides business logic for the Product catalog.
type Service struct {
	*domain.CatalogService[*Product]
	repo Repository
}

// NewService creates a new Product service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	base := domain.NewCatalogService(domain.CatalogServiceConfig[*Product]{
		Repo:       repo,
		TxManager:  txManager,
		EntityName: "product",
	})

	svc := &Service{
		CatalogService: base,
		repo:           repo,
	}

	base.Hooks().On(domain.BeforeCreate, svc.checkNameUnique)
	base.Hooks().On(domain.BeforeUpdate, svc.checkNameUnique)

	return svc
}

// UnitsPerCarton returns the packing factor for a product name.
// Unknown products default to 1 piece per carton.
func (s *Service) UnitsPerCarton(ctx context.Context, name string) (int, error) {
	p, err := s.repo.GetByName(ctx, name)
	if err != nil {
		if apperror.IsNotFound(err) {
			return DefaultUnitsPerCarton, nil
		}
		return 0, err
	}
	if p.UnitsPerCarton <= 0 {
		return DefaultUnitsPerCarton, nil
	}
	return p.UnitsPerCarton, nil
}

// checkNameUnique verifies no other product uses the same name.
func (s *Service) checkNameUnique(ctx context.Context, p *Product) error {
	existing, err := s.repo.GetByName(ctx, p.Name)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil
		}
		return err
	}
	if existing.ID != p.ID {
		return apperror.NewConflict("product with this name already exists").
			WithDetail("name", p.Name)
	}
	return nil
}
