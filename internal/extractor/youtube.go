package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"
	"github.com/samber/lo"

	"github.com/iconidentify/ultragrab/internal/config"
	"github.com/iconidentify/ultragrab/internal/domain"
)

// YouTubeProvider extracts through the kkdai/youtube client library.
type YouTubeProvider struct {
	client *youtube.Client
	logger *slog.Logger
}

// NewYouTubeProvider creates a provider whose requests carry the configured
// headers and cookies.
func NewYouTubeProvider(cfg config.ExtractorConfig, cookies *CookieSource, logger *slog.Logger) *YouTubeProvider {
	transport := newHeaderTransport(http.DefaultTransport, cfg.UserAgent, cfg.Headers, cookies)
	return &YouTubeProvider{
		client: &youtube.Client{
			HTTPClient: &http.Client{
				Transport: transport,
				Timeout:   cfg.Timeout,
			},
		},
		logger: logger,
	}
}

// Name implements Provider.
func (p *YouTubeProvider) Name() string {
	return "youtube"
}

// Extract implements Provider.
func (p *YouTubeProvider) Extract(ctx context.Context, ref domain.MediaReference) (*Result, error) {
	video, err := p.client.GetVideoContext(ctx, ref.String())
	if err != nil {
		return nil, domain.NewMediaError(ref.String(), "extract", classifyYouTubeError(ctx, err))
	}

	catalog := make(domain.Catalog, 0, len(video.Formats))
	for i := range video.Formats {
		format := &video.Formats[i]

		streamURL, err := p.client.GetStreamURLContext(ctx, video, format)
		if err != nil {
			if ctx.Err() != nil {
				return nil, domain.NewMediaError(ref.String(), "extract", classifyYouTubeError(ctx, err))
			}
			p.logger.Debug("skipping undecipherable format",
				"media_id", video.ID,
				"itag", format.ItagNo,
				"error", err,
			)
			continue
		}

		r := renditionFromFormat(format)
		r.SourceURL = streamURL
		catalog = append(catalog, r)
	}

	return &Result{
		Metadata: metadataFromVideo(video, ref),
		Catalog:  catalog,
	}, nil
}

// renditionFromFormat maps a library format to a rendition without its URL.
func renditionFromFormat(f *youtube.Format) domain.Rendition {
	mediaType, _, err := mime.ParseMediaType(f.MimeType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(f.MimeType, ";", 2)[0]))
	}

	hasVideo := strings.HasPrefix(mediaType, "video/")
	hasAudio := f.AudioChannels > 0 || strings.HasPrefix(mediaType, "audio/")

	bitrate := f.Bitrate
	if bitrate == 0 {
		bitrate = f.AverageBitrate
	}

	r := domain.Rendition{
		ID:         strconv.Itoa(f.ItagNo),
		Container:  containerFor(mediaType),
		MimeType:   mediaType,
		Label:      f.QualityLabel,
		Height:     f.Height,
		Bitrate:    bitrate,
		HasVideo:   hasVideo,
		HasAudio:   hasAudio,
		ApproxSize: f.ContentLength,
	}
	if !hasVideo {
		r.Height = 0
		if r.Label == "" && bitrate > 0 {
			r.Label = fmt.Sprintf("%dkbps", bitrate/1000)
		}
	}
	return r
}

// containerFor picks the download extension for a MIME type.
func containerFor(mediaType string) string {
	switch mediaType {
	case "video/mp4":
		return "mp4"
	case "audio/mp4":
		return "m4a"
	case "video/webm", "audio/webm":
		return "webm"
	case "video/3gpp":
		return "3gp"
	}
	if _, sub, ok := strings.Cut(mediaType, "/"); ok {
		return sub
	}
	return ""
}

func metadataFromVideo(v *youtube.Video, ref domain.MediaReference) domain.MediaMetadata {
	m := domain.MediaMetadata{
		ID:              v.ID,
		Title:           v.Title,
		Channel:         v.Author,
		DurationSeconds: int(v.Duration / time.Second),
		ViewCount:       int64(v.Views),
		URL:             ref.String(),
	}
	if !ref.IsURL() {
		m.URL = watchURL(v.ID)
	}
	if len(v.Thumbnails) > 0 {
		thumb := lo.MaxBy(v.Thumbnails, func(a, b youtube.Thumbnail) bool { return a.Width > b.Width })
		m.ThumbnailURL = thumb.URL
	}
	return m
}

// classifyYouTubeError maps library errors onto domain errors.
func classifyYouTubeError(ctx context.Context, err error) error {
	if mapped := classifyTransportError(ctx, err); mapped != nil {
		return fmt.Errorf("%w: %v", mapped, err)
	}

	switch {
	case errors.Is(err, youtube.ErrInvalidCharactersInVideoID),
		errors.Is(err, youtube.ErrVideoIDMinLength):
		return fmt.Errorf("%w: %v", domain.ErrInvalidReference, err)
	case errors.Is(err, youtube.ErrVideoPrivate):
		return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
	case errors.Is(err, youtube.ErrLoginRequired),
		errors.Is(err, youtube.ErrNotPlayableInEmbed):
		return fmt.Errorf("%w: %v", domain.ErrAccessRestricted, err)
	}

	var statusErr *youtube.ErrPlayabiltyStatus
	if errors.As(err, &statusErr) {
		return fmt.Errorf("%w: %v", classifyPlayability(statusErr.Status, statusErr.Reason), err)
	}

	return err
}

// classifyPlayability maps an origin playability status and reason.
func classifyPlayability(status, reason string) error {
	lower := strings.ToLower(reason)
	switch {
	case isBotCheckMessage(lower):
		return domain.ErrBotCheck
	case strings.Contains(lower, "private"),
		strings.Contains(lower, "unavailable"),
		strings.Contains(lower, "does not exist"),
		strings.Contains(lower, "removed"):
		return domain.ErrNotFound
	}

	switch strings.ToUpper(status) {
	case "ERROR":
		return domain.ErrNotFound
	default:
		return domain.ErrAccessRestricted
	}
}

// isBotCheckMessage reports whether a lowercased origin message asks the
// client to prove it is human.
func isBotCheckMessage(lower string) bool {
	return strings.Contains(lower, "not a bot") ||
		strings.Contains(lower, "confirm you're not") ||
		strings.Contains(lower, "confirm you’re not") ||
		strings.Contains(lower, "captcha")
}
