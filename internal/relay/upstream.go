package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// StatusError reports a non-success origin response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.Code)
}

// upstream is an opened origin response whose first chunk has been read.
// firstErr is whatever the read of that chunk returned alongside it.
type upstream struct {
	body          *progressReader
	first         []byte
	firstErr      error
	contentLength int64
	cancel        context.CancelFunc
}

func (u *upstream) Close() error {
	err := u.body.Close()
	u.cancel()
	return err
}

// open connects to url, checks the status and reads the first chunk.
// Any error leaves nothing open.
func (r *Relay) open(ctx context.Context, url string, logger *slog.Logger) (*upstream, error) {
	if url == "" {
		return nil, errors.New("rendition has no source URL")
	}

	ctx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create request: %w", err)
	}
	r.setHeaders(req)

	resp, err := r.client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("send request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		cancel()
		return nil, &StatusError{Code: resp.StatusCode}
	}

	body := newProgressReader(resp.Body, resp.ContentLength, r.readTimeout, cancel, logger)
	up := &upstream{
		body:          body,
		first:         make([]byte, 0, r.chunkSize),
		contentLength: resp.ContentLength,
		cancel:        cancel,
	}

	buf := up.first[:cap(up.first)]
	for {
		n, err := body.Read(buf)
		if n > 0 {
			up.first = buf[:n]
			up.firstErr = err
			return up, nil
		}
		if errors.Is(err, io.EOF) {
			up.Close()
			return nil, errors.New("empty response body")
		}
		if err != nil {
			stalled := body.stalled()
			up.Close()
			if stalled {
				return nil, fmt.Errorf("no data for %v", r.readTimeout)
			}
			return nil, fmt.Errorf("read first chunk: %w", err)
		}
	}
}

func (r *Relay) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "*/*")
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
}

// Probe checks whether the fallback source answers a HEAD request.
// It returns nil when no fallback is configured.
func (r *Relay) Probe(ctx context.Context) error {
	if r.fallbackURL == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, r.fallbackURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	r.setHeaders(req)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

// FallbackConfigured reports whether a fallback source is set.
func (r *Relay) FallbackConfigured() bool {
	return r.fallbackURL != ""
}
