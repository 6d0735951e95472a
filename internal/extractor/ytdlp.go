package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os/exec"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/iconidentify/ultragrab/internal/config"
	"github.com/iconidentify/ultragrab/internal/domain"
)

// runFunc executes the binary and returns stdout and stderr.
type runFunc func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

func execRun(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// YtDlpProvider extracts by running yt-dlp in JSON dump mode.
type YtDlpProvider struct {
	binary    string
	userAgent string
	headers   map[string]string
	cookies   *CookieSource
	run       runFunc
	logger    *slog.Logger
}

// NewYtDlpProvider creates a provider that shells out to cfg.YtDlpPath.
func NewYtDlpProvider(cfg config.ExtractorConfig, cookies *CookieSource, logger *slog.Logger) *YtDlpProvider {
	return &YtDlpProvider{
		binary:    cfg.YtDlpPath,
		userAgent: cfg.UserAgent,
		headers:   cfg.Headers,
		cookies:   cookies,
		run:       execRun,
		logger:    logger,
	}
}

// Name implements Provider.
func (p *YtDlpProvider) Name() string {
	return "ytdlp"
}

// ytdlpInfo is the subset of the yt-dlp info dict that is consumed.
type ytdlpInfo struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	Uploader   string        `json:"uploader"`
	Channel    string        `json:"channel"`
	Duration   float64       `json:"duration"`
	ViewCount  *int64        `json:"view_count"`
	Thumbnail  string        `json:"thumbnail"`
	WebpageURL string        `json:"webpage_url"`
	Formats    []ytdlpFormat `json:"formats"`
}

type ytdlpFormat struct {
	FormatID       string   `json:"format_id"`
	URL            string   `json:"url"`
	Ext            string   `json:"ext"`
	Protocol       string   `json:"protocol"`
	FormatNote     string   `json:"format_note"`
	Height         *int     `json:"height"`
	VCodec         string   `json:"vcodec"`
	ACodec         string   `json:"acodec"`
	TBR            *float64 `json:"tbr"`
	ABR            *float64 `json:"abr"`
	Filesize       *int64   `json:"filesize"`
	FilesizeApprox *int64   `json:"filesize_approx"`
}

// Extract implements Provider.
func (p *YtDlpProvider) Extract(ctx context.Context, ref domain.MediaReference) (*Result, error) {
	target := ref.String()
	if !ref.IsURL() {
		target = watchURL(target)
	}

	args := p.args(target)
	stdout, stderr, err := p.run(ctx, p.binary, args...)
	if err != nil {
		classified := classifyYtDlpError(ctx, stderr, err)
		p.logger.Debug("yt-dlp failed",
			"reference", ref.String(),
			"stderr", lastLine(stderr),
			"error", err,
		)
		return nil, domain.NewMediaError(ref.String(), "extract", classified)
	}

	var info ytdlpInfo
	if err := json.Unmarshal(stdout, &info); err != nil {
		return nil, domain.NewMediaError(ref.String(), "extract", fmt.Errorf("decode yt-dlp output: %w", err))
	}

	return &Result{
		Metadata: info.metadata(target),
		Catalog:  info.catalog(),
	}, nil
}

func (p *YtDlpProvider) args(target string) []string {
	args := []string{"-J", "--no-playlist", "--no-warnings", "--skip-download"}
	if p.userAgent != "" {
		args = append(args, "--user-agent", p.userAgent)
	}

	keys := lo.Keys(p.headers)
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--add-header", k+":"+p.headers[k])
	}

	if u, err := url.Parse(target); err == nil {
		if cookie := p.cookies.Header(u.Hostname()); cookie != "" {
			args = append(args, "--add-header", "Cookie:"+cookie)
		}
	}

	return append(args, "--", target)
}

func (info *ytdlpInfo) metadata(target string) domain.MediaMetadata {
	channel := info.Uploader
	if channel == "" {
		channel = info.Channel
	}
	m := domain.MediaMetadata{
		ID:              info.ID,
		Title:           info.Title,
		Channel:         channel,
		DurationSeconds: int(info.Duration),
		ThumbnailURL:    info.Thumbnail,
		URL:             info.WebpageURL,
	}
	if info.ViewCount != nil {
		m.ViewCount = *info.ViewCount
	}
	if m.URL == "" {
		m.URL = target
	}
	return m
}

// catalog keeps directly fetchable formats. Manifest-based protocols need a
// segment fetcher and are skipped.
func (info *ytdlpInfo) catalog() domain.Catalog {
	return lo.FilterMap(info.Formats, func(f ytdlpFormat, _ int) (domain.Rendition, bool) {
		if f.URL == "" || (f.Protocol != "" && f.Protocol != "https" && f.Protocol != "http") {
			return domain.Rendition{}, false
		}
		return f.rendition(), true
	})
}

func (f ytdlpFormat) rendition() domain.Rendition {
	hasVideo := f.VCodec != "" && f.VCodec != "none"
	hasAudio := f.ACodec != "" && f.ACodec != "none"

	r := domain.Rendition{
		ID:        f.FormatID,
		SourceURL: f.URL,
		Container: f.Ext,
		Label:     f.FormatNote,
		HasVideo:  hasVideo,
		HasAudio:  hasAudio,
	}
	if hasVideo && f.Height != nil {
		r.Height = *f.Height
	}
	switch {
	case f.TBR != nil:
		r.Bitrate = int(*f.TBR * 1000)
	case f.ABR != nil:
		r.Bitrate = int(*f.ABR * 1000)
	}
	switch {
	case f.Filesize != nil:
		r.ApproxSize = *f.Filesize
	case f.FilesizeApprox != nil:
		r.ApproxSize = *f.FilesizeApprox
	}
	return r
}

// classifyYtDlpError maps a failed run onto domain errors using its stderr.
func classifyYtDlpError(ctx context.Context, stderr []byte, err error) error {
	if mapped := classifyTransportError(ctx, err); mapped != nil {
		return mapped
	}
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return fmt.Errorf("run yt-dlp: %w", err)
	}

	msg := strings.ToLower(string(stderr))
	switch {
	case isBotCheckMessage(msg):
		return fmt.Errorf("%w: %s", domain.ErrBotCheck, lastLine(stderr))
	case strings.Contains(msg, "unsupported url"):
		return fmt.Errorf("%w: %s", domain.ErrInvalidReference, lastLine(stderr))
	case strings.Contains(msg, "private video"),
		strings.Contains(msg, "video unavailable"),
		strings.Contains(msg, "does not exist"),
		strings.Contains(msg, "http error 404"):
		return fmt.Errorf("%w: %s", domain.ErrNotFound, lastLine(stderr))
	case strings.Contains(msg, "sign in"),
		strings.Contains(msg, "members-only"),
		strings.Contains(msg, "age-restricted"),
		strings.Contains(msg, "http error 403"):
		return fmt.Errorf("%w: %s", domain.ErrAccessRestricted, lastLine(stderr))
	case strings.Contains(msg, "timed out"):
		return fmt.Errorf("%w: %s", domain.ErrTimeout, lastLine(stderr))
	}

	return fmt.Errorf("yt-dlp: %w: %s", err, lastLine(stderr))
}

func lastLine(b []byte) string {
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
