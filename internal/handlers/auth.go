package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/snapcal/apiserver/internal/services"
	"github.com/snapcal/apiserver/types"
)

// AuthHandler provides registration, login, logout, and session
// introspection endpoints.
type AuthHandler struct {
	auth *services.AuthService
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, auth *services.AuthService) {
	handler := NewAuthHandler(auth)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.Post("/logout", handler.Logout)
	r.Get("/current", handler.Current)
}

// RequireAuth constructs middleware that resolves the bearer token to a
// user id and injects it into the request context. Requests that do not
// resolve are rejected before any resource is touched; handlers behind
// this middleware derive the acting user only from context, never from
// client-supplied identifiers.
func RequireAuth(auth *services.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			userID, err := auth.ResolveToken(r.Context(), token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), contextUserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Register creates a new account (or claims a placeholder one) and
// returns the user with a fresh session token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, token, err := h.auth.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrEmailTaken):
			writeError(w, http.StatusBadRequest, "user already exists")
		default:
			writeError(w, http.StatusInternalServerError, "failed to register")
		}
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{User: user, Token: token})
}

// Login verifies credentials and returns a new session token. Existing
// tokens for the user stay valid.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		default:
			writeError(w, http.StatusInternalServerError, "failed to authenticate")
		}
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{User: user, Token: token})
}

// Logout revokes the presented token. It always reports success: an
// absent or already-revoked token is indistinguishable from a fresh one
// to the client.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := optionalBearerToken(r)
	if err := h.auth.Logout(r.Context(), token); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to log out")
		return
	}
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

// Current reports the user behind the presented token, or null for the
// anonymous state. Clients use it to silently detect dead sessions, so it
// never fails on invalid tokens.
func (h *AuthHandler) Current(w http.ResponseWriter, r *http.Request) {
	token := optionalBearerToken(r)
	user, err := h.auth.CurrentUser(r.Context(), token)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	writeJSON(w, http.StatusOK, CurrentUserResponse{User: user})
}

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	User  types.User `json:"user"`
	Token string     `json:"token"`
}

type CurrentUserResponse struct {
	User *types.User `json:"user"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}
