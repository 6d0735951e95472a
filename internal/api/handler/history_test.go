package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iconidentify/ultragrab/internal/domain"
	"github.com/iconidentify/ultragrab/internal/service"
)

func newHistoryHandler(repo *mockHistoryRepository) *HistoryHandler {
	if repo == nil {
		return NewHistoryHandler(service.NewHistoryService(nil, testLogger()), testLogger())
	}
	return NewHistoryHandler(service.NewHistoryService(repo, testLogger()), testLogger())
}

func TestHistoryHandler_List(t *testing.T) {
	repo := &mockHistoryRepository{}
	created := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	repo.Record(context.Background(), &domain.HistoryEntry{
		ID:        "h1",
		MediaID:   "dQw4w9WgXcQ",
		Title:     "Test Clip",
		Kind:      domain.KindAudio,
		Quality:   "128kbps",
		Filename:  "UltraGrab_Test_Clip.m4a",
		Source:    domain.SourceFallback,
		Outcome:   domain.OutcomeStreaming,
		Bytes:     42,
		CreatedAt: created,
	})
	h := newHistoryHandler(repo)

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/api/history?limit=10", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp HistoryResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Count != 1 || len(resp.Items) != 1 {
		t.Fatalf("count = %d, items = %d, want 1", resp.Count, len(resp.Items))
	}
	item := resp.Items[0]
	if item.Type != "audio" || item.Source != "fallback" || item.Outcome != "streaming" {
		t.Errorf("item = %+v", item)
	}
	if item.Timestamp != "2026-05-01T10:00:00Z" {
		t.Errorf("timestamp = %q", item.Timestamp)
	}
}

func TestHistoryHandler_List_Empty(t *testing.T) {
	h := newHistoryHandler(&mockHistoryRepository{})

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/api/history", nil))

	var resp HistoryResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Items == nil {
		t.Error("items should be an empty array, not null")
	}
}

func TestHistoryHandler_List_BadLimit(t *testing.T) {
	h := newHistoryHandler(&mockHistoryRepository{})

	for _, q := range []string{"limit=abc", "limit=-5", "limit=100000"} {
		w := httptest.NewRecorder()
		h.List(w, httptest.NewRequest(http.MethodGet, "/api/history?"+q, nil))
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want %d", q, w.Code, http.StatusBadRequest)
		}
	}
}

func TestHistoryHandler_Disabled(t *testing.T) {
	h := newHistoryHandler(nil)

	for _, tc := range []struct {
		method string
		fn     http.HandlerFunc
	}{
		{http.MethodGet, h.List},
		{http.MethodDelete, h.Clear},
	} {
		w := httptest.NewRecorder()
		tc.fn(w, httptest.NewRequest(tc.method, "/api/history", nil))

		if w.Code != http.StatusNotFound {
			t.Errorf("%s: status = %d, want %d", tc.method, w.Code, http.StatusNotFound)
		}
		if resp := decodeError(t, w); resp.Error != "history_disabled" {
			t.Errorf("%s: error = %q, want history_disabled", tc.method, resp.Error)
		}
	}
}

func TestHistoryHandler_Clear(t *testing.T) {
	repo := &mockHistoryRepository{}
	repo.Record(context.Background(), &domain.HistoryEntry{MediaID: "a"})
	repo.Record(context.Background(), &domain.HistoryEntry{MediaID: "b"})
	h := newHistoryHandler(repo)

	w := httptest.NewRecorder()
	h.Clear(w, httptest.NewRequest(http.MethodDelete, "/api/history", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp map[string]int64
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["removed"] != 2 {
		t.Errorf("removed = %d, want 2", resp["removed"])
	}
}
