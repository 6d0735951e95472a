package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/iconidentify/ultragrab/internal/domain"
	"github.com/iconidentify/ultragrab/internal/service"
)

// HistoryHandler serves the optional download history.
type HistoryHandler struct {
	historySvc *service.HistoryService
	logger     *slog.Logger
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(historySvc *service.HistoryService, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{
		historySvc: historySvc,
		logger:     logger,
	}
}

// HistoryItem is one entry in a history response.
type HistoryItem struct {
	ID        string `json:"id"`
	MediaID   string `json:"mediaId"`
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Type      string `json:"type"`
	Quality   string `json:"quality,omitempty"`
	Filename  string `json:"filename"`
	Source    string `json:"source"`
	Outcome   string `json:"outcome"`
	Bytes     int64  `json:"bytes"`
	Timestamp string `json:"timestamp"`
}

// HistoryResponse lists history entries, newest first.
type HistoryResponse struct {
	Items []HistoryItem `json:"items"`
	Count int           `json:"count"`
}

// List handles GET /api/history?limit=.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	var params HistoryParams
	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil {
			writeCode(w, http.StatusBadRequest, codeInvalidRequest, "limit must be a number")
			return
		}
		params.Limit = n
	}
	if err := validate.Struct(params); err != nil {
		writeCode(w, http.StatusBadRequest, codeInvalidRequest, validationMessage(err))
		return
	}

	entries, err := h.historySvc.List(r.Context(), params.Limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	items := make([]HistoryItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, toHistoryItem(e))
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Items: items, Count: len(items)})
}

// Clear handles DELETE /api/history.
func (h *HistoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	n, err := h.historySvc.Clear(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"removed": n})
}

func toHistoryItem(e *domain.HistoryEntry) HistoryItem {
	return HistoryItem{
		ID:        e.ID.String(),
		MediaID:   e.MediaID,
		Title:     e.Title,
		Thumbnail: e.Thumbnail,
		Type:      string(e.Kind),
		Quality:   e.Quality,
		Filename:  e.Filename,
		Source:    string(e.Source),
		Outcome:   e.Outcome.String(),
		Bytes:     e.Bytes,
		Timestamp: e.CreatedAt.UTC().Format(time.RFC3339),
	}
}
