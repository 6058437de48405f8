package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/snapcal/apiserver/internal/storage"
	"github.com/snapcal/apiserver/internal/vision"
	"github.com/snapcal/apiserver/types"
)

// AnalyzeHandler forwards food photos to the image-analysis service and,
// when photo storage is configured, keeps a copy of the image so the
// resulting food log entry can reference it.
type AnalyzeHandler struct {
	analyzer vision.Analyzer
	photos   *storage.PhotoStore
}

// NewAnalyzeHandler constructs an AnalyzeHandler. photos may be nil; the
// response then carries no imageUrl.
func NewAnalyzeHandler(analyzer vision.Analyzer, photos *storage.PhotoStore) *AnalyzeHandler {
	return &AnalyzeHandler{analyzer: analyzer, photos: photos}
}

// AnalyzeRouter registers the analyze route on the given router. The
// route requires authentication.
func AnalyzeRouter(r chi.Router, analyzer vision.Analyzer, photos *storage.PhotoStore, authMiddleware func(http.Handler) http.Handler) {
	handler := NewAnalyzeHandler(analyzer, photos)

	r.With(authMiddleware).Post("/analyze", handler.Analyze)
}

// Analyze estimates nutrition facts for a base64-encoded food photo. The
// analysis service's failure is recoverable: it is surfaced to the caller
// as a 502 and never retried.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	if _, err := userIDFromContext(r.Context()); err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if strings.TrimSpace(req.Image) == "" {
		writeError(w, http.StatusBadRequest, "image required")
		return
	}

	nutrition, err := h.analyzer.Analyze(r.Context(), req.Image, req.MimeType)
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to analyze image")
		return
	}

	resp := AnalyzeResponse{Nutrition: nutrition}
	if h.photos != nil {
		url, err := h.photos.SavePhoto(r.Context(), req.Image, req.MimeType)
		if err != nil {
			// The estimate is still useful without the stored copy.
			log.Printf("save photo: %v", err)
		} else {
			resp.ImageURL = &url
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

type AnalyzeRequest struct {
	Image    string `json:"image"`
	MimeType string `json:"mimeType"`
}

type AnalyzeResponse struct {
	Nutrition types.Nutrition `json:"nutrition"`
	ImageURL  *string         `json:"imageUrl,omitempty"`
}
