package receipt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goodsflow/internal/core/apperror"
)

func TestNewAcceptancePolicy_CompileErrors(t *testing.T) {
	_, err := NewAcceptancePolicy("received <==")
	assert.Error(t, err, "syntax errors are rejected at startup")

	_, err = NewAcceptancePolicy("received + pending")
	assert.Error(t, err, "non-boolean expressions are rejected")
}

func TestAcceptancePolicy_Check(t *testing.T) {
	policy, err := NewAcceptancePolicy(`received <= pending && (extra_received == 0.0 || material != "glass jar")`)
	require.NoError(t, err)

	ok := PolicyInput{Material: "glass jar", Ordered: 100, Pending: 40, Received: 40}
	assert.NoError(t, policy.Check(ok))

	rejected := PolicyInput{Material: "glass jar", Ordered: 100, Pending: 40, Received: 40, ExtraReceived: 5}
	err = policy.Check(rejected)
	require.Error(t, err)
	assert.True(t, apperror.IsValidation(err))

	otherMaterial := rejected
	otherMaterial.Material = "label roll"
	assert.NoError(t, policy.Check(otherMaterial))
}

func TestAcceptancePolicy_NilAcceptsEverything(t *testing.T) {
	var policy *AcceptancePolicy
	assert.NoError(t, policy.Check(PolicyInput{Material: "anything", Received: 1e9}))
}
