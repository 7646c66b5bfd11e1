package catalog_repo

import (
	"goodsflow/internal/domain/material"
	"goodsflow/internal/infrastructure/storage/postgres"
)

const materialsTable = "cat_materials"

// MaterialRepo implements material.Repository.
type MaterialRepo struct {
	*BaseCatalogRepo[*material.Material]
}

// NewMaterialRepo creates a new material catalog repository.
func NewMaterialRepo(txManager *postgres.TxManager) *MaterialRepo {
	return &MaterialRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			materialsTable,
			postgres.ExtractDBColumns[material.Material](),
			func() *material.Material { return &material.Material{} },
		),
	}
}

// Ensure interface compliance.
var _ material.Repository = (*MaterialRepo)(nil)
