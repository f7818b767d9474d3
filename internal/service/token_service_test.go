package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/sma-enrollment-api/pkg/errors"
)

func signTestToken(t *testing.T, secret string, method jwt.SigningMethod, claims models.JWTClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestTokenServiceValidateToken(t *testing.T) {
	svc := NewTokenService("secret", nil)
	raw := signTestToken(t, "secret", jwt.SigningMethodHS256, models.JWTClaims{
		UserID:    "user-1",
		Role:      models.RoleStudent,
		StudentID: "stu-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := svc.ValidateToken(raw)
	require.NoError(t, err)
	assert.Equal(t, "stu-1", claims.ActorID())
}

func TestTokenServiceRejectsBadTokens(t *testing.T) {
	svc := NewTokenService("secret", nil)
	expired := signTestToken(t, "secret", jwt.SigningMethodHS256, models.JWTClaims{
		UserID: "user-1",
		Role:   models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	wrongSecret := signTestToken(t, "other", jwt.SigningMethodHS256, models.JWTClaims{UserID: "user-1", Role: models.RoleAdmin})
	wrongAlg := signTestToken(t, "secret", jwt.SigningMethodHS512, models.JWTClaims{UserID: "user-1", Role: models.RoleAdmin})
	studentWithoutID := signTestToken(t, "secret", jwt.SigningMethodHS256, models.JWTClaims{UserID: "user-1", Role: models.RoleStudent})

	for name, raw := range map[string]string{
		"expired":       expired,
		"wrong secret":  wrongSecret,
		"wrong alg":     wrongAlg,
		"student no id": studentWithoutID,
		"garbage":       "not-a-token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(raw)
			require.Error(t, err)
			assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized.Code))
		})
	}
}
