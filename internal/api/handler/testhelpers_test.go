package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/iconidentify/ultragrab/internal/config"
	"github.com/iconidentify/ultragrab/internal/domain"
	"github.com/iconidentify/ultragrab/internal/extractor"
	"github.com/iconidentify/ultragrab/internal/relay"
	"github.com/iconidentify/ultragrab/internal/service"
)

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockProvider is a test implementation of extractor.Provider.
type mockProvider struct {
	result *extractor.Result
	err    error
	calls  int
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Extract(ctx context.Context, ref domain.MediaReference) (*extractor.Result, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

// mockHistoryRepository is a test implementation of repository.HistoryRepository.
type mockHistoryRepository struct {
	mu      sync.Mutex
	entries []*domain.HistoryEntry
	pingErr error
}

func (m *mockHistoryRepository) Record(ctx context.Context, entry *domain.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	m.entries = append([]*domain.HistoryEntry{entry}, m.entries...)
	return nil
}

func (m *mockHistoryRepository) List(ctx context.Context, limit int) ([]*domain.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > 0 && limit < len(m.entries) {
		return m.entries[:limit], nil
	}
	return m.entries, nil
}

func (m *mockHistoryRepository) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries), nil
}

func (m *mockHistoryRepository) Clear(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.entries))
	m.entries = nil
	return n, nil
}

func (m *mockHistoryRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (m *mockHistoryRepository) Ping(ctx context.Context) error {
	return m.pingErr
}

func (m *mockHistoryRepository) Close() error {
	return nil
}

// mockProber is a test implementation of FallbackProber.
type mockProber struct {
	configured bool
	err        error
}

func (m *mockProber) Probe(ctx context.Context) error { return m.err }

func (m *mockProber) FallbackConfigured() bool { return m.configured }

// originServer serves body with a Content-Length for every request.
func originServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/mp4")
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// failingServer answers every request with status.
func failingServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func sampleResult(sourceURL string) *extractor.Result {
	return &extractor.Result{
		Metadata: domain.MediaMetadata{
			ID:              "dQw4w9WgXcQ",
			Title:           "Test Clip: Part 1",
			Channel:         "",
			DurationSeconds: 125,
			ViewCount:       1234567,
			ThumbnailURL:    "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg",
			URL:             "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		},
		Catalog: domain.Catalog{
			{ID: "18", SourceURL: sourceURL + "/360", Container: "mp4", Label: "360p", Height: 360, HasVideo: true, HasAudio: true, ApproxSize: 1 << 20},
			{ID: "22", SourceURL: sourceURL + "/720", Container: "mp4", Label: "720p", Height: 720, HasVideo: true, HasAudio: true},
			{ID: "140", SourceURL: sourceURL + "/audio", Container: "m4a", Label: "128kbps", Bitrate: 128000, HasAudio: true},
		},
	}
}

// newMediaHandler wires a real relay and service around provider.
func newMediaHandler(provider extractor.Provider, fallbackURL string, history *service.HistoryService) *MediaHandler {
	r := relay.New(config.RelayConfig{
		ChunkSize:     16 << 10,
		DialTimeout:   time.Second,
		HeaderTimeout: 2 * time.Second,
		ReadTimeout:   2 * time.Second,
		FallbackURL:   fallbackURL,
	}, nil)
	r.SetLogger(testLogger())

	svc := service.NewMediaService(provider, r, history, nil, config.ExtractorConfig{Timeout: 5 * time.Second}, testLogger())
	return NewMediaHandler(svc, testLogger())
}

var errBoom = errors.New("boom")
