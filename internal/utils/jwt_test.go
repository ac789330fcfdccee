package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	InitJWT("test-secret")

	token, err := GenerateJWT("ops@safevend.test")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@safevend.test", claims.Email)
	assert.Equal(t, "safevend-api", claims.Issuer)
}

func TestValidateJWTRejectsTamperedToken(t *testing.T) {
	InitJWT("test-secret")
	token, err := GenerateJWT("ops@safevend.test")
	require.NoError(t, err)

	_, err = ValidateJWT(token + "x")
	assert.Error(t, err)

	InitJWT("other-secret")
	_, err = ValidateJWT(token)
	assert.Error(t, err)
}
