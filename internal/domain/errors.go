package domain

import (
	"context"
	"errors"
)

// Domain errors.
var (
	// ErrInvalidReference is returned when the media reference is missing or malformed.
	ErrInvalidReference = errors.New("invalid media reference")

	// ErrNotFound is returned when the origin reports the item does not exist or is private.
	ErrNotFound = errors.New("media not found")

	// ErrAccessRestricted is returned when the origin refuses access (age gate, login wall).
	ErrAccessRestricted = errors.New("media access restricted")

	// ErrBotCheck is returned when the origin demands interactive verification.
	// It always matches ErrAccessRestricted as well.
	ErrBotCheck = &botCheckError{}

	// ErrTimeout is returned when metadata extraction does not finish in time.
	ErrTimeout = errors.New("extraction timed out")

	// ErrNoRenditionsAvailable is returned when no rendition matches the request.
	ErrNoRenditionsAvailable = errors.New("no renditions available")

	// ErrUpstreamUnavailable is returned when neither the chosen rendition nor
	// the fallback source could be opened.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrMidStream is returned when the transfer breaks after headers were committed.
	ErrMidStream = errors.New("relay failed mid-stream")

	// ErrClientGone is returned when the client stops accepting bytes.
	ErrClientGone = errors.New("client disconnected")

	// ErrHistoryDisabled is returned when history is requested but not configured.
	ErrHistoryDisabled = errors.New("download history disabled")
)

type botCheckError struct{}

func (*botCheckError) Error() string { return "origin requested bot verification" }

func (*botCheckError) Is(target error) bool { return target == ErrAccessRestricted }

// MediaError wraps an error with media reference context.
type MediaError struct {
	Reference string
	Op        string
	Err       error
}

func (e *MediaError) Error() string {
	if e.Reference != "" {
		return e.Op + " [" + e.Reference + "]: " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *MediaError) Unwrap() error {
	return e.Err
}

// NewMediaError creates a new MediaError.
func NewMediaError(ref string, op string, err error) *MediaError {
	return &MediaError{
		Reference: ref,
		Op:        op,
		Err:       err,
	}
}

// ErrorCode returns the machine-readable code exposed to API clients.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidReference):
		return "invalid_reference"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrBotCheck):
		return "bot_check"
	case errors.Is(err, ErrAccessRestricted):
		return "access_restricted"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrNoRenditionsAvailable):
		return "no_renditions"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, ErrHistoryDisabled):
		return "history_disabled"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "internal"
	}
}
