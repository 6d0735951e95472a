// Package extractor turns a media reference into metadata and a rendition catalog.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"

	"github.com/iconidentify/ultragrab/internal/config"
	"github.com/iconidentify/ultragrab/internal/domain"
)

// Provider resolves a reference against the origin.
// Implementations do not retry; the caller decides.
type Provider interface {
	// Name identifies the backend in logs and metrics.
	Name() string

	// Extract returns metadata and candidate renditions for ref.
	// Errors wrap domain.ErrNotFound, domain.ErrAccessRestricted,
	// domain.ErrBotCheck, domain.ErrTimeout or domain.ErrInvalidReference.
	Extract(ctx context.Context, ref domain.MediaReference) (*Result, error)
}

// Result is the typed output of one extraction.
type Result struct {
	Metadata domain.MediaMetadata
	Catalog  domain.Catalog
}

// New builds the provider selected by cfg.Backend.
func New(cfg config.ExtractorConfig, logger *slog.Logger) (Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var cookies *CookieSource
	if cfg.CookiesFile != "" {
		cookies = NewCookieSource(cfg.CookiesFile, cfg.CookiesPassphrase)
		if _, err := cookies.Load(); err != nil {
			return nil, fmt.Errorf("load cookies: %w", err)
		}
	}

	switch cfg.Backend {
	case config.BackendYouTube:
		return NewYouTubeProvider(cfg, cookies, logger), nil
	case config.BackendYtDlp:
		return NewYtDlpProvider(cfg, cookies, logger), nil
	default:
		return nil, fmt.Errorf("unknown extractor backend %q", cfg.Backend)
	}
}

// watchURL is the canonical page URL for a bare item id.
func watchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + url.QueryEscape(id)
}

// classifyTransportError maps context and network failures shared by all backends.
// A canceled caller maps to context.Canceled. It returns nil when err is not
// one of them.
func classifyTransportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.ErrTimeout
	}
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return context.Canceled
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return domain.ErrTimeout
		}
		return domain.ErrUpstreamUnavailable
	}
	return nil
}
