package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *JWTService {
	return NewJWTService(
		"storefront-signing-key-for-unit-tests",
		15*time.Minute,
		7*24*time.Hour,
	)
}

var testIdentity = Identity{UserID: "user-7f3a", Email: "test@example.com"}

func TestNewJWTService(t *testing.T) {
	service := newTestJWTService()
	assert.NotNil(t, service)
	assert.Equal(t, 15*time.Minute, service.GetAccessTokenExpiry())
	assert.Equal(t, 7*24*time.Hour, service.GetRefreshTokenExpiry())
}

func TestJWTService_GenerateAccessToken_Success(t *testing.T) {
	service := newTestJWTService()

	token, expiresAt, err := service.GenerateAccessToken(testIdentity)

	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))
	assert.True(t, expiresAt.Before(time.Now().Add(16*time.Minute)))
}

func TestJWTService_ValidateAccessToken_Valid(t *testing.T) {
	service := newTestJWTService()
	admin := Identity{UserID: "user-456", Email: "admin@example.com", IsAdmin: true}

	token, _, err := service.GenerateAccessToken(admin)
	require.NoError(t, err)

	claims, err := service.ValidateAccessToken(token)

	require.NoError(t, err)
	assert.Equal(t, admin, claims.Identity())
	assert.Equal(t, "user-456", claims.Subject)
}

func TestJWTService_ValidateAccessToken_Expired(t *testing.T) {
	service := NewJWTService("test-secret", 1*time.Millisecond, 7*24*time.Hour)

	token, _, err := service.GenerateAccessToken(testIdentity)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	claims, err := service.ValidateAccessToken(token)

	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.Nil(t, claims)
}

func TestJWTService_ValidateAccessToken_Invalid(t *testing.T) {
	service := newTestJWTService()

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"random string", "not-a-valid-token"},
		{"malformed JWT", "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid.signature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := service.ValidateAccessToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Nil(t, claims)
		})
	}
}

func TestJWTService_ValidateAccessToken_WrongSignature(t *testing.T) {
	service1 := NewJWTService("signing-key-a", 15*time.Minute, 7*24*time.Hour)
	service2 := NewJWTService("signing-key-b", 15*time.Minute, 7*24*time.Hour)

	token, _, err := service1.GenerateAccessToken(testIdentity)
	require.NoError(t, err)

	claims, err := service2.ValidateAccessToken(token)

	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, claims)
}

func TestJWTService_ValidateAccessToken_WrongAlgorithm(t *testing.T) {
	service := newTestJWTService()

	token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		UserID:  "user-7f3a",
		IsAdmin: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   issuer,
			Audience: jwt.ClaimStrings{accessAudience},
		},
	})
	tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	claims, err := service.ValidateAccessToken(tokenString)

	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, claims)
}

func TestJWTService_GenerateRefreshToken_Success(t *testing.T) {
	service := newTestJWTService()

	token, expiresAt, err := service.GenerateRefreshToken("user-789")

	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))
	assert.True(t, expiresAt.Before(time.Now().Add(8*24*time.Hour)))
}

func TestJWTService_ValidateRefreshToken_Valid(t *testing.T) {
	service := newTestJWTService()

	token, _, err := service.GenerateRefreshToken("user-refresh-test")
	require.NoError(t, err)

	userID, err := service.ValidateRefreshToken(token)

	require.NoError(t, err)
	assert.Equal(t, "user-refresh-test", userID)
}

func TestJWTService_ValidateRefreshToken_Expired(t *testing.T) {
	service := NewJWTService("test-secret", 15*time.Minute, 1*time.Millisecond)

	token, _, err := service.GenerateRefreshToken("user-7f3a")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	userID, err := service.ValidateRefreshToken(token)

	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.Empty(t, userID)
}

func TestJWTService_ValidateRefreshToken_WrongSignature(t *testing.T) {
	service1 := NewJWTService("signing-key-a", 15*time.Minute, 7*24*time.Hour)
	service2 := NewJWTService("signing-key-b", 15*time.Minute, 7*24*time.Hour)

	token, _, err := service1.GenerateRefreshToken("user-7f3a")
	require.NoError(t, err)

	userID, err := service2.ValidateRefreshToken(token)

	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Empty(t, userID)
}

func TestJWTService_TokenKindsAreNotInterchangeable(t *testing.T) {
	service := newTestJWTService()

	accessToken, _, err := service.GenerateAccessToken(testIdentity)
	require.NoError(t, err)
	refreshToken, _, err := service.GenerateRefreshToken(testIdentity.UserID)
	require.NoError(t, err)

	claims, err := service.ValidateAccessToken(refreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, claims)

	userID, err := service.ValidateRefreshToken(accessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Empty(t, userID)
}

// ==========================================
// Identity Tests
// ==========================================

func TestIdentity_CanAccess(t *testing.T) {
	tests := []struct {
		name    string
		id      Identity
		owner   string
		allowed bool
	}{
		{"owner", Identity{UserID: "u1"}, "u1", true},
		{"other user", Identity{UserID: "u2"}, "u1", false},
		{"admin", Identity{UserID: "a1", IsAdmin: true}, "u1", true},
		{"anonymous", Identity{}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.id.CanAccess(tt.owner))
		})
	}
}

func TestIdentity_Anonymous(t *testing.T) {
	assert.True(t, Identity{}.Anonymous())
	assert.False(t, testIdentity.Anonymous())
}
