package catalog_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goodsflow/internal/domain/filter"
	"goodsflow/internal/domain/material"
	"goodsflow/internal/infrastructure/storage/postgres"
)

func testRepo() *BaseCatalogRepo[*material.Material] {
	return NewBaseCatalogRepo(nil, materialsTable, postgres.ExtractDBColumns[material.Material](), func() *material.Material {
		return &material.Material{}
	})
}

func TestParseOrderBy(t *testing.T) {
	r := testRepo()

	cases := []struct {
		in   string
		want string
	}{
		{"", "name ASC"},
		{"name", "name ASC"},
		{"+name", "name ASC"},
		{"-name", "name DESC"},
		{"-version", "version DESC"},
	}
	for _, c := range cases {
		got, err := r.parseOrderBy(c.in)
		require.NoError(t, err, "orderBy %q", c.in)
		assert.Equal(t, c.want, got, "orderBy %q", c.in)
	}

	_, err := r.parseOrderBy("password; DROP TABLE cat_materials")
	assert.Error(t, err)

	_, err = r.parseOrderBy("-")
	assert.Error(t, err)
}

func TestApplyAdvancedFilters(t *testing.T) {
	r := testRepo()

	q, err := r.applyAdvancedFilters(r.baseSelect(), []filter.Item{
		{Field: "name", Operator: filter.Contains, Value: "jar"},
		{Field: "unit", Operator: filter.Equal, Value: "kg"},
		{Field: "description", Operator: filter.IsNull},
	})
	require.NoError(t, err)

	sql, args, err := q.ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "name ILIKE $")
	assert.Contains(t, sql, "unit = $")
	assert.Contains(t, sql, "description IS NULL")
	assert.Contains(t, args, "%jar%")
	assert.Contains(t, args, "kg")
}

func TestApplyAdvancedFilters_RejectsUnknownColumn(t *testing.T) {
	r := testRepo()

	_, err := r.applyAdvancedFilters(r.baseSelect(), []filter.Item{
		{Field: "pg_sleep(10)", Operator: filter.Equal, Value: 1},
	})
	assert.Error(t, err)
}

func TestApplyAdvancedFilters_RejectsUnknownOperator(t *testing.T) {
	r := testRepo()

	_, err := r.applyAdvancedFilters(r.baseSelect(), []filter.Item{
		{Field: "name", Operator: filter.ComparisonType("between"), Value: 1},
	})
	assert.Error(t, err)
}
