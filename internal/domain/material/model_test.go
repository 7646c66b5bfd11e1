package material

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"goodsflow/internal/core/id"
)

func TestRef_IsByID(t *testing.T) {
	assert.True(t, RefByID(id.New()).IsByID())
	assert.False(t, RefByName("Glass Jar").IsByID())

	nilID := id.Nil()
	ref := Ref{ID: &nilID}
	assert.False(t, ref.IsByID(), "a zero uuid does not address a material")
	assert.True(t, ref.IsZero())
}

func TestRef_Validate(t *testing.T) {
	ctx := context.Background()
	assert.Error(t, Ref{}.Validate(ctx))

	materialID := id.New()
	assert.Error(t, Ref{ID: &materialID, Name: "Glass Jar"}.Validate(ctx), "both addressing schemes at once")
	assert.NoError(t, RefByID(materialID).Validate(ctx))
	assert.NoError(t, RefByName("  Glass Jar ").Validate(ctx))
}
