// Package service wires extraction, selection and relay into request-level operations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/iconidentify/ultragrab/internal/config"
	"github.com/iconidentify/ultragrab/internal/domain"
	"github.com/iconidentify/ultragrab/internal/extractor"
	"github.com/iconidentify/ultragrab/internal/metrics"
	"github.com/iconidentify/ultragrab/internal/relay"
	"github.com/iconidentify/ultragrab/internal/selector"
)

// historyWriteTimeout bounds the history insert after a relay; the request
// context may already be gone by then.
const historyWriteTimeout = 5 * time.Second

// Streamer relays a chosen rendition to a client.
type Streamer interface {
	Stream(ctx context.Context, w http.ResponseWriter, req relay.Request) relay.Result
}

// MediaService resolves references and relays downloads.
type MediaService struct {
	provider extractor.Provider
	streamer Streamer
	history  *HistoryService
	metrics  *metrics.Metrics
	timeout  time.Duration
	logger   *slog.Logger
}

// NewMediaService creates a new media service. history and m may be nil.
func NewMediaService(
	provider extractor.Provider,
	streamer Streamer,
	history *HistoryService,
	m *metrics.Metrics,
	cfg config.ExtractorConfig,
	logger *slog.Logger,
) *MediaService {
	return &MediaService{
		provider: provider,
		streamer: streamer,
		history:  history,
		metrics:  m,
		timeout:  cfg.Timeout,
		logger:   logger,
	}
}

// DownloadRequest describes one relay request.
type DownloadRequest struct {
	Reference string
	Kind      domain.MediaKind
	// MaxHeight bounds video height; 0 means unbounded.
	MaxHeight int
}

// Resolve returns display-ready metadata for raw.
func (s *MediaService) Resolve(ctx context.Context, raw string) (*domain.MetadataView, error) {
	res, err := s.extract(ctx, raw)
	if err != nil {
		return nil, err
	}
	view := res.Metadata.View()
	return &view, nil
}

// ListRenditions enumerates the selectable qualities for raw.
func (s *MediaService) ListRenditions(ctx context.Context, raw string) (*selector.Qualities, error) {
	res, err := s.extract(ctx, raw)
	if err != nil {
		return nil, err
	}
	if len(res.Catalog) == 0 {
		return nil, domain.NewMediaError(raw, "list renditions", domain.ErrNoRenditionsAvailable)
	}
	q := selector.ListQualities(res.Catalog)
	return &q, nil
}

// Download resolves req, selects a rendition and relays it to w.
//
// When the returned Outcome is FailedBeforeHeaders nothing was written to w
// and Err describes why. Otherwise headers were committed; a non-nil Err
// then wraps domain.ErrMidStream or domain.ErrClientGone.
func (s *MediaService) Download(ctx context.Context, w http.ResponseWriter, req DownloadRequest) relay.Result {
	failed := func(err error) relay.Result {
		return relay.Result{Outcome: domain.OutcomeFailedBeforeHeaders, Err: err}
	}

	res, err := s.extract(ctx, req.Reference)
	if err != nil {
		return failed(err)
	}

	rendition, err := selector.Select(res.Catalog, req.Kind, req.MaxHeight)
	if err != nil {
		return failed(domain.NewMediaError(req.Reference, "select rendition", err))
	}

	filename := domain.AttachmentFilename(res.Metadata.Title, rendition.Extension())
	s.logger.Info("relaying rendition",
		"media_id", res.Metadata.ID,
		"kind", req.Kind,
		"max_height", req.MaxHeight,
		"rendition", rendition.ID,
		"label", rendition.Label,
		"filename", filename,
	)

	out := s.streamer.Stream(ctx, w, relay.Request{
		Rendition: rendition,
		Filename:  filename,
		MediaID:   res.Metadata.ID,
	})
	if !out.Outcome.Committed() {
		out.Err = domain.NewMediaError(req.Reference, "relay", out.Err)
		return out
	}

	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyWriteTimeout)
	defer cancel()
	s.history.Record(hctx, &domain.HistoryEntry{
		MediaID:   res.Metadata.ID,
		Title:     res.Metadata.Title,
		Thumbnail: res.Metadata.ThumbnailURL,
		Kind:      req.Kind,
		Quality:   rendition.Label,
		Filename:  filename,
		Source:    out.Source,
		Outcome:   out.Outcome,
		Bytes:     out.Bytes,
	})

	return out
}

// extract validates raw and runs the provider under the extraction timeout.
func (s *MediaService) extract(ctx context.Context, raw string) (*extractor.Result, error) {
	ref, err := domain.ParseReference(raw)
	if err != nil {
		return nil, domain.NewMediaError(raw, "parse reference", err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := s.provider.Extract(ctx, ref)
	if err != nil && !errors.Is(err, domain.ErrTimeout) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}

	result := "ok"
	if err != nil {
		result = domain.ErrorCode(err)
	}
	s.metrics.ObserveExtraction(s.provider.Name(), result, time.Since(start))

	if err != nil {
		level := slog.LevelWarn
		if errors.Is(err, context.Canceled) {
			level = slog.LevelDebug
		}
		s.logger.Log(ctx, level, "extraction failed",
			"reference", ref.String(),
			"backend", s.provider.Name(),
			"error", err,
		)
		return nil, domain.NewMediaError(ref.String(), "extract", err)
	}

	s.logger.Debug("extraction complete",
		"reference", ref.String(),
		"media_id", res.Metadata.ID,
		"renditions", len(res.Catalog),
		"duration", time.Since(start).String(),
	)
	return res, nil
}
