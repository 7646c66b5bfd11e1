package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"goodsflow/internal/domain/material"
	"goodsflow/internal/domain/registers/finishedstock"
)

func TestExtractDBColumns(t *testing.T) {
	cols := ExtractDBColumns[material.Material]()

	// Embedded BaseCatalog/BaseEntity columns come first
	assert.Contains(t, cols, "id")
	assert.Contains(t, cols, "deletion_mark")
	assert.Contains(t, cols, "version")

	// Own columns
	assert.Contains(t, cols, "name")
	assert.Contains(t, cols, "kind")
	assert.Contains(t, cols, "unit")

	// Untagged and "-" fields are skipped
	assert.NotContains(t, cols, "-")
}

func TestStructToMap(t *testing.T) {
	m := material.New("corrugated sheet", material.KindPacking, material.UnitPiece)

	got := StructToMap(m)

	assert.Equal(t, m.ID, got["id"])
	assert.Equal(t, "corrugated sheet", got["name"])
	assert.Equal(t, material.KindPacking, got["kind"])
	assert.Equal(t, 1, got["version"])
}

func TestStructToMap_EmbeddedDocument(t *testing.T) {
	stock := finishedstock.NewFinishedGoodStock("jam jar 250g", 12)

	got := StructToMap(stock)

	assert.Equal(t, stock.ID, got["id"])
	assert.Equal(t, "jam jar 250g", got["product_name"])
	assert.Equal(t, 12, got["units_per_carton"])
	assert.NotContains(t, got, "history")
}

func TestStructToMap_NonStruct(t *testing.T) {
	assert.Nil(t, StructToMap(42))
	assert.Nil(t, StructToMap("nope"))
}
