// Package relay streams a remote rendition to an HTTP client as an attachment.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/iconidentify/ultragrab/internal/config"
	"github.com/iconidentify/ultragrab/internal/domain"
	"github.com/iconidentify/ultragrab/internal/metrics"
)

// Request describes one relay.
type Request struct {
	// Rendition is the chosen rendition; its SourceURL is fetched.
	Rendition domain.Rendition
	// Filename is the attachment filename, already sanitized.
	Filename string
	// MediaID is used for logging only.
	MediaID string
}

// Result is the terminal state of a relay.
type Result struct {
	Outcome domain.RelayOutcome
	Source  domain.RelaySource
	Bytes   int64
	// Err is nil only for OutcomeStreaming. Before headers it wraps
	// domain.ErrUpstreamUnavailable; after headers it wraps domain.ErrMidStream
	// or domain.ErrClientGone.
	Err error
}

// Relay copies origin bytes to clients in fixed-size chunks.
type Relay struct {
	// client has no overall timeout; the dialer, header timeout and stall
	// timer bound each phase instead.
	client      *http.Client
	chunkSize   int
	readTimeout time.Duration
	userAgent   string
	headers     map[string]string
	fallbackURL string
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// New creates a relay from configuration. m may be nil.
func New(cfg config.RelayConfig, m *metrics.Metrics) *Relay {
	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   cfg.DialTimeout,
		ResponseHeaderTimeout: cfg.HeaderTimeout,
		// Bytes are relayed as the origin encoded them.
		DisableCompression:  true,
		ForceAttemptHTTP2:   true,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Relay{
		client:      &http.Client{Transport: transport},
		chunkSize:   cfg.ChunkSize,
		readTimeout: cfg.ReadTimeout,
		userAgent:   cfg.UserAgent,
		headers:     cfg.Headers,
		fallbackURL: cfg.FallbackURL,
		metrics:     m,
		logger:      slog.Default(),
	}
}

// SetLogger sets the logger for relay progress reporting.
func (r *Relay) SetLogger(logger *slog.Logger) {
	r.logger = logger
}

// Stream relays req to w.
//
// Everything up to and including the first body chunk happens before any
// header is written. A failure in that window switches once to the
// configured fallback source. After the first byte is committed the relay
// never falls back and never writes a second response; a later failure
// returns OutcomeFailedMidStream and the caller must abort the connection.
func (r *Relay) Stream(ctx context.Context, w http.ResponseWriter, req Request) Result {
	defer r.metrics.RelayStarted()()

	logger := r.logger.With("media_id", req.MediaID, "rendition", req.Rendition.ID)

	source := domain.SourcePrimary
	up, err := r.open(ctx, req.Rendition.SourceURL, logger)
	if err != nil {
		primaryErr := err
		if r.fallbackURL == "" || ctx.Err() != nil {
			return r.finish(logger, Result{
				Outcome: domain.OutcomeFailedBeforeHeaders,
				Source:  source,
				Err:     fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, primaryErr),
			})
		}

		logger.Warn("primary source failed before headers, switching to fallback", "error", primaryErr)
		r.metrics.RelayFallback()

		source = domain.SourceFallback
		up, err = r.open(ctx, r.fallbackURL, logger)
		if err != nil {
			return r.finish(logger, Result{
				Outcome: domain.OutcomeFailedBeforeHeaders,
				Source:  source,
				Err:     fmt.Errorf("%w: primary: %v; fallback: %v", domain.ErrUpstreamUnavailable, primaryErr, err),
			})
		}
	}
	defer up.Close()

	commitHeaders(w, req.Filename, up.contentLength)
	written, err := r.copy(ctx, w, up)

	res := Result{Outcome: domain.OutcomeStreaming, Source: source, Bytes: written}
	if err != nil {
		res.Outcome = domain.OutcomeFailedMidStream
		res.Err = err
	}
	return r.finish(logger, res)
}

func (r *Relay) finish(logger *slog.Logger, res Result) Result {
	r.metrics.RelayFinished(res.Outcome.String(), string(res.Source), res.Bytes)

	attrs := []any{
		"outcome", res.Outcome.String(),
		"source", res.Source,
		"bytes", res.Bytes,
	}
	switch {
	case res.Err == nil:
		logger.Info("relay complete", attrs...)
	case errors.Is(res.Err, domain.ErrClientGone):
		logger.Info("client disconnected during relay", append(attrs, "error", res.Err)...)
	case res.Outcome == domain.OutcomeFailedMidStream:
		logger.Error("relay failed mid-stream", append(attrs, "error", res.Err)...)
	default:
		logger.Warn("relay failed before headers", append(attrs, "error", res.Err)...)
	}
	return res
}

// commitHeaders writes the attachment headers and status. The origin's
// content type is not forwarded.
func commitHeaders(w http.ResponseWriter, filename string, contentLength int64) {
	h := w.Header()
	h.Set("Content-Type", "application/octet-stream")
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	if contentLength >= 0 {
		h.Set("Content-Length", strconv.FormatInt(contentLength, 10))
	}
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
}

// copy writes the buffered first chunk and then the rest of the body,
// flushing after every chunk.
func (r *Relay) copy(ctx context.Context, w http.ResponseWriter, up *upstream) (int64, error) {
	rc := http.NewResponseController(w)
	var written int64

	emit := func(p []byte) error {
		up.body.hold()
		defer up.body.resume()

		n, err := w.Write(p)
		written += int64(n)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrClientGone, err)
		}
		if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return fmt.Errorf("%w: %v", domain.ErrClientGone, err)
		}
		return nil
	}

	if err := emit(up.first); err != nil {
		return written, err
	}

	buf := up.first[:cap(up.first)]
	rerr := up.firstErr
	for rerr == nil {
		var n int
		n, rerr = up.body.Read(buf)
		if n > 0 {
			if err := emit(buf[:n]); err != nil {
				return written, err
			}
		}
	}

	switch {
	case errors.Is(rerr, io.EOF):
		return written, nil
	case ctx.Err() != nil:
		return written, fmt.Errorf("%w: %v", domain.ErrClientGone, ctx.Err())
	case up.body.stalled():
		return written, fmt.Errorf("%w after %d bytes: no data for %v", domain.ErrMidStream, written, r.readTimeout)
	default:
		return written, fmt.Errorf("%w after %d bytes: %v", domain.ErrMidStream, written, rerr)
	}
}
