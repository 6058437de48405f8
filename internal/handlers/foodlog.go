package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/snapcal/apiserver/internal/services"
	"github.com/snapcal/apiserver/types"
)

// FoodLogHandler provides the per-user food log endpoints.
type FoodLogHandler struct {
	logs *services.FoodLogService
}

func NewFoodLogHandler(logs *services.FoodLogService) *FoodLogHandler {
	return &FoodLogHandler{logs: logs}
}

// FoodLogRouter registers food log routes on the given router. All routes
// require authentication.
func FoodLogRouter(r chi.Router, logs *services.FoodLogService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewFoodLogHandler(logs)

	r.With(authMiddleware).Get("/foodlogs", handler.List)
	r.With(authMiddleware).Post("/foodlogs", handler.Append)
}

// List returns the acting user's entries, newest first.
func (h *FoodLogHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	logs, err := h.logs.ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list food logs")
		return
	}

	writeJSON(w, http.StatusOK, FoodLogListResponse{Logs: logs})
}

// Append records a new entry for the acting user. Absent or non-numeric
// macro fields are stored as zeros.
func (h *FoodLogHandler) Append(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req FoodLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	entry := types.FoodLog{
		FoodName: req.FoodName,
		Calories: numberOrZero(req.Calories),
		Protein:  numberOrZero(req.Protein),
		Carbs:    numberOrZero(req.Carbs),
		Fat:      numberOrZero(req.Fat),
	}
	if strings.TrimSpace(req.ImageURL) != "" {
		imageURL := req.ImageURL
		entry.ImageURL = &imageURL
	}

	created, err := h.logs.Append(r.Context(), userID, entry)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create food log")
		return
	}

	writeJSON(w, http.StatusOK, FoodLogResponse{Log: created})
}

// FoodLogRequest is the append payload. Macro fields are loosely typed so
// clients sending strings, nulls, or nothing all coerce to zero instead of
// failing the request.
type FoodLogRequest struct {
	FoodName string `json:"foodName"`
	Calories any    `json:"calories"`
	Protein  any    `json:"protein"`
	Carbs    any    `json:"carbs"`
	Fat      any    `json:"fat"`
	ImageURL string `json:"imageUrl"`
}

type FoodLogResponse struct {
	Log types.FoodLog `json:"log"`
}

type FoodLogListResponse struct {
	Logs []types.FoodLog `json:"logs"`
}

// numberOrZero coerces a decoded JSON value to a float, defaulting to 0
// for anything that is not a number.
func numberOrZero(value any) float64 {
	switch typed := value.(type) {
	case float64:
		return typed
	case json.Number:
		parsed, err := typed.Float64()
		if err != nil {
			return 0
		}
		return parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}
