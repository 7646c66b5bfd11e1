package dto

import (
	"goodsflow/internal/domain/material"
	"goodsflow/internal/domain/product"
)

// --- Material catalog ---

// CreateMaterialRequest for creating materials.
type CreateMaterialRequest struct {
	Name        string        `json:"name" binding:"required"`
	Kind        material.Kind `json:"kind" binding:"required"`
	Unit        material.Unit `json:"unit" binding:"required"`
	Description *string       `json:"description"`
}

// ToEntity builds a Material from the request.
func (r CreateMaterialRequest) ToEntity() *material.Material {
	m := material.New(r.Name, r.Kind, r.Unit)
	m.Description = r.Description
	return m
}

// UpdateMaterialRequest for updating materials.
type UpdateMaterialRequest struct {
	Name        *string        `json:"name"`
	Kind        *material.Kind `json:"kind"`
	Unit        *material.Unit `json:"unit"`
	Description *string        `json:"description"`
	Version     int            `json:"version" binding:"required,min=1"`
}

// ApplyTo mutates an existing material with the request fields.
func (r UpdateMaterialRequest) ApplyTo(m *material.Material) {
	m.Version = r.Version
	if r.Name != nil {
		m.Name = *r.Name
	}
	if r.Kind != nil {
		m.Kind = *r.Kind
	}
	if r.Unit != nil {
		m.Unit = *r.Unit
	}
	if r.Description != nil {
		m.Description = r.Description
	}
}

// MaterialResponse contains material fields.
type MaterialResponse struct {
	ID           string        `json:"id"`
	Version      int           `json:"version"`
	DeletionMark bool          `json:"deletionMark"`
	Name         string        `json:"name"`
	Kind         material.Kind `json:"kind"`
	Unit         material.Unit `json:"unit"`
	Description  *string       `json:"description,omitempty"`
}

// FromMaterial creates MaterialResponse from an entity.
func FromMaterial(m *material.Material) MaterialResponse {
	return MaterialResponse{
		ID:           m.ID.String(),
		Version:      m.Version,
		DeletionMark: m.DeletionMark,
		Name:         m.Name,
		Kind:         m.Kind,
		Unit:         m.Unit,
		Description:  m.Description,
	}
}

// FromMaterialList maps a slice of materials.
func FromMaterialList(items []*material.Material) []MaterialResponse {
	out := make([]MaterialResponse, 0, len(items))
	for _, m := range items {
		out = append(out, FromMaterial(m))
	}
	return out
}

// --- Product catalog ---

// CreateProductRequest for creating products.
type CreateProductRequest struct {
	Name           string  `json:"name" binding:"required"`
	UnitsPerCarton int     `json:"unitsPerCarton" binding:"required,min=1"`
	Description    *string `json:"description"`
}

// ToEntity builds a Product from the request.
func (r CreateProductRequest) ToEntity() *product.Product {
	p := product.New(r.Name, r.UnitsPerCarton)
	p.Description = r.Description
	return p
}

// UpdateProductRequest for updating products.
type UpdateProductRequest struct {
	Name           *string `json:"name"`
	UnitsPerCarton *int    `json:"unitsPerCarton"`
	Description    *string `json:"description"`
	Version        int     `json:"version" binding:"required,min=1"`
}

// ApplyTo mutates an existing product with the request fields.
func (r UpdateProductRequest) ApplyTo(p *product.Product) {
	p.Version = r.Version
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.UnitsPerCarton != nil {
		p.UnitsPerCarton = *r.UnitsPerCarton
	}
	if r.Description != nil {
		p.Description = r.Description
	}
}

// ProductResponse contains product fields.
type ProductResponse struct {
	ID             string  `json:"id"`
	Version        int     `json:"version"`
	DeletionMark   bool    `json:"deletionMark"`
	Name           string  `json:"name"`
	UnitsPerCarton int     `json:"unitsPerCarton"`
	Description    *string `json:"description,omitempty"`
}

// FromProduct creates ProductResponse from an entity.
func FromProduct(p *product.Product) ProductResponse {
	return ProductResponse{
		ID:             p.ID.String(),
		Version:        p.Version,
		DeletionMark:   p.DeletionMark,
		Name:           p.Name,
		UnitsPerCarton: p.UnitsPerCarton,
		Description:    p.Description,
	}
}

// FromProductList maps a slice of products.
func FromProductList(items []*product.Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(items))
	for _, p := range items {
		out = append(out, FromProduct(p))
	}
	return out
}
