package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ansar30/pulse/internal/models"
)

func TestGenerateAndParseRoundTrip(t *testing.T) {
	user := &models.User{
		ID:       uuid.New(),
		TenantID: uuid.New(),
		Email:    "ana@acme.test",
		Role:     models.TenantAdmin,
	}

	signed, err := GenerateToken(user, "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(signed, "secret")
	require.NoError(t, err)

	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.TenantID, claims.TenantID)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, models.TenantAdmin, claims.Role)
	assert.Equal(t, "pulse", claims.Issuer)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	user := &models.User{ID: uuid.New(), TenantID: uuid.New(), Role: models.TenantMember}

	signed, err := GenerateToken(user, "secret", time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(signed, "other-secret")
	assert.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	user := &models.User{ID: uuid.New(), TenantID: uuid.New(), Role: models.TenantMember}

	signed, err := GenerateToken(user, "secret", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(signed, "secret")
	assert.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := ParseToken("not-a-jwt", "secret")
	assert.Error(t, err)
}
