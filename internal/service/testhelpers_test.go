package service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/iconidentify/ultragrab/internal/domain"
	"github.com/iconidentify/ultragrab/internal/extractor"
	"github.com/iconidentify/ultragrab/internal/relay"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockProvider implements extractor.Provider for testing.
type mockProvider struct {
	result *extractor.Result
	err    error
	// block makes Extract wait for ctx to end.
	block bool

	mu    sync.Mutex
	calls []domain.MediaReference
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Extract(ctx context.Context, ref domain.MediaReference) (*extractor.Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, ref)
	m.mu.Unlock()

	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

// mockStreamer implements Streamer for testing.
type mockStreamer struct {
	result relay.Result
	body   string

	requests []relay.Request
}

func (m *mockStreamer) Stream(ctx context.Context, w http.ResponseWriter, req relay.Request) relay.Result {
	m.requests = append(m.requests, req)
	if m.result.Outcome.Committed() {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, m.body)
	}
	return m.result
}

// mockHistoryRepository implements repository.HistoryRepository for testing.
type mockHistoryRepository struct {
	mu        sync.Mutex
	entries   []*domain.HistoryEntry
	recordErr error
	listErr   error
	pingErr   error
	listLimit int
}

func (m *mockHistoryRepository) Record(ctx context.Context, entry *domain.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.recordErr != nil {
		return m.recordErr
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockHistoryRepository) List(ctx context.Context, limit int) ([]*domain.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listLimit = limit
	if m.listErr != nil {
		return nil, m.listErr
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

func sampleResult() *extractor.Result {
	return &extractor.Result{
		Metadata: domain.MediaMetadata{
			ID:              "dQw4w9WgXcQ",
			Title:           "Never Gonna Give You Up",
			Channel:         "Rick Astley",
			DurationSeconds: 213,
			ViewCount:       1234567,
			ThumbnailURL:    "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg",
			URL:             "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		},
		Catalog: domain.Catalog{
			{ID: "18", SourceURL: "https://origin.test/360", Container: "mp4", Label: "360p", Height: 360, HasVideo: true, HasAudio: true},
			{ID: "22", SourceURL: "https://origin.test/720", Container: "mp4", Label: "720p", Height: 720, HasVideo: true, HasAudio: true},
			{ID: "140", SourceURL: "https://origin.test/a128", Container: "m4a", Label: "128kbps", Bitrate: 128000, HasAudio: true},
		},
	}
}
