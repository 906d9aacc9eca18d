package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePIN(t *testing.T) {
	pin, err := GeneratePIN(6)
	require.NoError(t, err)
	require.Len(t, pin, 6)
	for _, r := range pin {
		assert.True(t, r >= '0' && r <= '9')
	}
}

func TestAdminPINRoundTrip(t *testing.T) {
	hash, err := HashAdminPIN("4321")
	require.NoError(t, err)
	assert.NotEqual(t, "4321", hash)

	assert.True(t, CheckAdminPIN(hash, "4321"))
	assert.False(t, CheckAdminPIN(hash, "0000"))
}

func TestGenerateSecretLength(t *testing.T) {
	secret, err := GenerateSecret(32)
	require.NoError(t, err)
	assert.Len(t, secret, 64, "hex encoding doubles the byte count")
}
