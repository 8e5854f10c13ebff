package api

import (
	"log"
	"net/http"
	"time"

	"github.com/example/storefront/internal/api/middleware"
	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/domain/user"
	"github.com/example/storefront/internal/model"
)

const (
	refreshTokenCookie = "refresh_token"
	refreshCookiePath  = "/api/auth"
)

// AuthHandlers handles authentication-related HTTP requests
type AuthHandlers struct {
	users *user.Service
	jwt   *auth.JWTService
}

func NewAuthHandlers(users *user.Service, jwt *auth.JWTService) *AuthHandlers {
	return &AuthHandlers{users: users, jwt: jwt}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	User    *model.Profile `json:"user"`
	Message string         `json:"message,omitempty"`
}

// Register handles customer registration
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req user.RegisterInput
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.users.Register(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if !h.setAuthCookies(w, r, p) {
		return
	}

	respondJSON(w, http.StatusCreated, AuthResponse{User: p, Message: "Registration successful"})
}

// Login handles user login
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if !h.setAuthCookies(w, r, p) {
		return
	}

	respondJSON(w, http.StatusOK, AuthResponse{User: p, Message: "Login successful"})
}

// Logout clears the auth cookies
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearAuthCookies(w)
	respondJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

// Refresh exchanges a valid refresh token for a new token pair. The profile
// is reloaded so the new access token carries the current admin flag.
func (h *AuthHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshTokenCookie)
	if err != nil {
		respondJSONError(w, "no refresh token", http.StatusUnauthorized)
		return
	}

	userID, err := h.jwt.ValidateRefreshToken(cookie.Value)
	if err != nil {
		h.clearAuthCookies(w)
		respondJSONError(w, "invalid refresh token", http.StatusUnauthorized)
		return
	}

	p, err := h.users.Get(r.Context(), userID)
	if err != nil {
		h.clearAuthCookies(w)
		respondServiceError(w, r, err)
		return
	}
	if !h.setAuthCookies(w, r, p) {
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Token refreshed"})
}

// Me returns the current authenticated user's profile
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	p, err := h.users.Get(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *AuthHandlers) setAuthCookies(w http.ResponseWriter, r *http.Request, p *model.Profile) bool {
	accessToken, accessExpiry, err := h.jwt.GenerateAccessToken(user.IdentityOf(p))
	if err != nil {
		log.Printf("[API] Failed to sign access token for %s: %v", p.ID, err)
		respondJSONError(w, "internal error", http.StatusInternalServerError)
		return false
	}
	refreshToken, refreshExpiry, err := h.jwt.GenerateRefreshToken(p.ID)
	if err != nil {
		log.Printf("[API] Failed to sign refresh token for %s: %v", p.ID, err)
		respondJSONError(w, "internal error", http.StatusInternalServerError)
		return false
	}

	http.SetCookie(w, authCookie(r, middleware.AccessTokenCookie, accessToken, "/", accessExpiry))
	http.SetCookie(w, authCookie(r, refreshTokenCookie, refreshToken, refreshCookiePath, refreshExpiry))
	return true
}

func (h *AuthHandlers) clearAuthCookies(w http.ResponseWriter) {
	for name, path := range map[string]string{
		middleware.AccessTokenCookie: "/",
		refreshTokenCookie:           refreshCookiePath,
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     path,
			MaxAge:   -1,
			HttpOnly: true,
		})
	}
}

func authCookie(r *http.Request, name, value, path string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  expires,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	}
}
