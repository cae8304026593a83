package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roads-authority/roadworks-api/internal/models"
	appErrors "github.com/roads-authority/roadworks-api/pkg/errors"
)

func TestValidateToken(t *testing.T) {
	svc := NewAuthService(AuthConfig{AccessTokenSecret: "secret", Issuer: "roads-authority"})
	token, err := svc.IssueToken("user-1", "editor@roads.gov.na", models.RoleEditor, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "editor@roads.gov.na", claims.Email)
	assert.Equal(t, models.RoleEditor, claims.Role)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewAuthService(AuthConfig{AccessTokenSecret: "other"})
	token, err := issuer.IssueToken("user-1", "admin@roads.gov.na", models.RoleAdmin, time.Hour)
	require.NoError(t, err)

	_, err = NewAuthService(AuthConfig{AccessTokenSecret: "secret"}).ValidateToken(token)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestValidateTokenExpired(t *testing.T) {
	svc := NewAuthService(AuthConfig{AccessTokenSecret: "secret"})
	svc.now = func() time.Time { return time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC) }
	token, err := svc.IssueToken("user-1", "admin@roads.gov.na", models.RoleAdmin, time.Minute)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC) }
	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenUnknownRoleForbidden(t *testing.T) {
	svc := NewAuthService(AuthConfig{AccessTokenSecret: "secret"})
	token, err := svc.IssueToken("user-1", "viewer@roads.gov.na", models.Role("viewer"), time.Hour)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestValidateTokenFallsBackToSubject(t *testing.T) {
	claims := &models.JWTClaims{
		Role: models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-9",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	parsed, err := NewAuthService(AuthConfig{AccessTokenSecret: "secret"}).ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-9", parsed.UserID)
}

func TestValidateTokenRejectsOtherAlgorithms(t *testing.T) {
	claims := &models.JWTClaims{UserID: "user-1", Role: models.RoleAdmin}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewAuthService(AuthConfig{AccessTokenSecret: "secret"}).ValidateToken(token)
	assert.Error(t, err)
}
