package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/infrastructure/store/mocks"
	"github.com/example/storefront/internal/model"
)

const testSecret = "storefront-signing-key-for-unit-tests"

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(testSecret, 15*time.Minute, 7*24*time.Hour)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_ValidToken_Header(t *testing.T) {
	jwtService := newTestJWTService()
	middleware := AuthMiddleware(jwtService)

	token, _, err := jwtService.GenerateAccessToken(auth.Identity{UserID: "user-7f3a", Email: "test@example.com"})
	require.NoError(t, err)

	var captured auth.Identity
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetIdentity(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	middleware(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-7f3a", captured.UserID)
	assert.Equal(t, "test@example.com", captured.Email)
	assert.False(t, captured.IsAdmin)
}

func TestAuthMiddleware_ValidToken_Cookie(t *testing.T) {
	jwtService := newTestJWTService()
	middleware := AuthMiddleware(jwtService)

	token, _, err := jwtService.GenerateAccessToken(auth.Identity{UserID: "user-456", Email: "cookie@example.com"})
	require.NoError(t, err)

	var capturedClaims *auth.Claims
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedClaims, _ = GetUserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: token})
	rec := httptest.NewRecorder()

	middleware(handler).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, capturedClaims)
	assert.Equal(t, "user-456", capturedClaims.UserID)
}

func TestAuthMiddleware_NoToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()

	AuthMiddleware(newTestJWTService())(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer invalid-token")
	rec := httptest.NewRecorder()

	AuthMiddleware(newTestJWTService())(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid token")
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	jwtService := auth.NewJWTService(testSecret, time.Millisecond, 7*24*time.Hour)
	token, _, err := jwtService.GenerateAccessToken(auth.Identity{UserID: "user-7f3a"})
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	AuthMiddleware(jwtService)(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "token expired")
}

func TestAuthMiddleware_WrongSignature(t *testing.T) {
	other := auth.NewJWTService("a-completely-different-secret-key-value", 15*time.Minute, time.Hour)
	token, _, err := other.GenerateAccessToken(auth.Identity{UserID: "user-7f3a"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	AuthMiddleware(newTestJWTService())(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_RefreshTokenRejected(t *testing.T) {
	jwtService := newTestJWTService()
	refresh, _, err := jwtService.GenerateRefreshToken("user-7f3a")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	rec := httptest.NewRecorder()

	AuthMiddleware(jwtService)(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_CookieTakesPrecedence(t *testing.T) {
	jwtService := newTestJWTService()
	cookieToken, _, err := jwtService.GenerateAccessToken(auth.Identity{UserID: "cookie-user"})
	require.NoError(t, err)
	headerToken, _, err := jwtService.GenerateAccessToken(auth.Identity{UserID: "header-user"})
	require.NoError(t, err)

	var userID string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID = GetUserID(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: cookieToken})
	req.Header.Set("Authorization", "Bearer "+headerToken)

	AuthMiddleware(jwtService)(handler).ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "cookie-user", userID)
}

// ============================================
// RequireAdmin Tests
// ============================================

func newAdminFixture(t *testing.T) (*auth.JWTService, http.Handler, *mocks.MockStore) {
	t.Helper()
	st := mocks.NewMockStore()
	ctx := context.Background()
	require.NoError(t, st.CreateProfile(ctx, &model.Profile{ID: "admin-1", Email: "admin@example.com", IsAdmin: true}))
	require.NoError(t, st.CreateProfile(ctx, &model.Profile{ID: "user-1", Email: "user@example.com"}))

	jwtService := newTestJWTService()
	handler := AuthMiddleware(jwtService)(RequireAdmin(st)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !GetIdentity(r.Context()).IsAdmin {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		w.WriteHeader(http.StatusOK)
	})))
	return jwtService, handler, st
}

func serveAs(t *testing.T, jwtService *auth.JWTService, handler http.Handler, id auth.Identity) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
	if !id.Anonymous() {
		token, _, err := jwtService.GenerateAccessToken(id)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRequireAdmin_AdminProfile(t *testing.T) {
	jwtService, handler, _ := newAdminFixture(t)

	rec := serveAs(t, jwtService, handler, auth.Identity{UserID: "admin-1"})

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdmin_NonAdminIsForbidden(t *testing.T) {
	jwtService, handler, _ := newAdminFixture(t)

	rec := serveAs(t, jwtService, handler, auth.Identity{UserID: "user-1"})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAdmin_TokenClaimIsNotTrusted(t *testing.T) {
	jwtService, handler, _ := newAdminFixture(t)

	rec := serveAs(t, jwtService, handler, auth.Identity{UserID: "user-1", IsAdmin: true})

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAdmin_Anonymous(t *testing.T) {
	jwtService, handler, _ := newAdminFixture(t)

	rec := serveAs(t, jwtService, handler, auth.Identity{})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdmin_DeletedProfile(t *testing.T) {
	jwtService, handler, _ := newAdminFixture(t)

	rec := serveAs(t, jwtService, handler, auth.Identity{UserID: "ghost"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAdmin_NoClaims(t *testing.T) {
	st := mocks.NewMockStore()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	rec := httptest.NewRecorder()

	RequireAdmin(st)(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// ============================================
// Context Helper Tests
// ============================================

func TestGetIdentity_NoClaims(t *testing.T) {
	assert.True(t, GetIdentity(context.Background()).Anonymous())
	assert.Empty(t, GetUserID(context.Background()))
}

func TestGetIdentity_OverrideWins(t *testing.T) {
	ctx := context.WithValue(context.Background(), UserContextKey, &auth.Claims{UserID: "user-1"})
	ctx = WithIdentity(ctx, auth.Identity{UserID: "user-1", IsAdmin: true})

	assert.True(t, GetIdentity(ctx).IsAdmin)
}
