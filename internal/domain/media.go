package domain

import (
	"net/url"
	"regexp"
	"strings"
)

// MediaKind is the requested kind of rendition.
type MediaKind string

const (
	KindVideo MediaKind = "video"
	KindAudio MediaKind = "audio"
)

// ParseMediaKind maps user input to a MediaKind. The legacy container names
// "mp4" and "mp3" are accepted as aliases. Empty input means video.
func ParseMediaKind(s string) (MediaKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "video", "mp4":
		return KindVideo, true
	case "audio", "mp3":
		return KindAudio, true
	default:
		return "", false
	}
}

// MediaReference is a validated caller-supplied pointer to a media item.
// It is either an absolute http(s) URL or a bare item id.
type MediaReference string

// String returns the string representation of the reference.
func (r MediaReference) String() string {
	return string(r)
}

// IsURL reports whether the reference is a URL rather than a bare id.
func (r MediaReference) IsURL() bool {
	return strings.Contains(string(r), "://")
}

var bareIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{6,64}$`)

// ParseReference validates raw input without touching the network.
func ParseReference(raw string) (MediaReference, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > 2048 {
		return "", ErrInvalidReference
	}

	if bareIDPattern.MatchString(raw) {
		return MediaReference(raw), nil
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", ErrInvalidReference
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return "", ErrInvalidReference
	}

	return MediaReference(u.String()), nil
}

// Rendition describes one fetchable encoded variant of a media item.
// SourceURL is short-lived and must not outlive the request that produced it.
type Rendition struct {
	ID         string
	SourceURL  string
	Container  string
	MimeType   string
	Label      string
	Height     int
	Bitrate    int
	HasVideo   bool
	HasAudio   bool
	ApproxSize int64
}

// IsProgressive reports whether the rendition carries audio and video in one file.
func (r Rendition) IsProgressive() bool {
	return r.HasVideo && r.HasAudio
}

// IsAudioOnly reports whether the rendition carries audio and no video.
func (r Rendition) IsAudioOnly() bool {
	return r.HasAudio && !r.HasVideo
}

// Extension returns the file extension used for downloads of this rendition.
func (r Rendition) Extension() string {
	if r.Container != "" {
		return r.Container
	}
	if r.IsAudioOnly() {
		return "m4a"
	}
	return "mp4"
}

// Catalog is the set of candidate renditions for one media item.
type Catalog []Rendition

// MediaMetadata is the descriptive record of a media item.
type MediaMetadata struct {
	ID              string
	Title           string
	Channel         string
	DurationSeconds int
	ViewCount       int64
	ThumbnailURL    string
	URL             string
}

// MetadataView is the display-ready form of MediaMetadata.
type MetadataView struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Channel      string `json:"channel"`
	Duration     string `json:"duration"`
	Views        string `json:"views"`
	ThumbnailURL string `json:"thumbnailUrl"`
	URL          string `json:"url"`
}

// View converts metadata into its display form.
func (m *MediaMetadata) View() MetadataView {
	channel := m.Channel
	if channel == "" {
		channel = "Unknown"
	}
	return MetadataView{
		ID:           m.ID,
		Title:        m.Title,
		Channel:      channel,
		Duration:     FormatDuration(m.DurationSeconds),
		Views:        FormatViews(m.ViewCount),
		ThumbnailURL: m.ThumbnailURL,
		URL:          m.URL,
	}
}
