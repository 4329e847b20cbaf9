package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken("507f1f77bcf86cd799439011", "ana", "USER", []string{"leads", "projects"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "507f1f77bcf86cd799439011", claims.UserID)
	assert.Equal(t, "ana", claims.Username)
	assert.Equal(t, "USER", claims.Role)
	assert.Equal(t, []string{"leads", "projects"}, claims.Modules)

	ttl := TokenTTL(claims)
	assert.Greater(t, ttl, 7*time.Hour)
	assert.LessOrEqual(t, ttl, 8*time.Hour)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	_, err := ValidateToken("not.a.token")
	assert.Error(t, err)

	_, err = ValidateToken("")
	assert.Error(t, err)
}
