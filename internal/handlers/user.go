package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/snapcal/apiserver/internal/services"
	"github.com/snapcal/apiserver/internal/store"
	"github.com/snapcal/apiserver/types"
)

// UserHandler provides profile endpoints for the authenticated user.
type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// UserRouter registers profile routes on the given router. All routes
// require authentication.
func UserRouter(r chi.Router, users *services.UserService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewUserHandler(users)

	r.With(authMiddleware).Post("/goal", handler.SetGoal)
}

// SetGoal overwrites the dietary goal of the acting user. The target user
// comes from the session, never from the request body.
func (h *UserHandler) SetGoal(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req GoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.users.SetGoal(r.Context(), userID, req.Goal)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to set goal")
		return
	}

	writeJSON(w, http.StatusOK, UserResponse{User: user})
}

type GoalRequest struct {
	Goal string `json:"goal"`
}

type UserResponse struct {
	User types.User `json:"user"`
}
