package domain

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	// FilenamePrefix brands every attachment filename.
	FilenamePrefix = "UltraGrab_"

	// MaxTitleLength bounds the sanitized title stem.
	MaxTitleLength = 50

	// MaxExtensionLength bounds the sanitized extension.
	MaxExtensionLength = 8

	// DefaultTitleStem is used when nothing survives sanitization.
	DefaultTitleStem = "media"

	defaultExtension = "bin"
)

var (
	disallowedChars  = regexp.MustCompile(`[^A-Za-z0-9_-]`)
	underscoreRuns   = regexp.MustCompile(`_{2,}`)
	nonAlphanumerics = regexp.MustCompile(`[^a-z0-9]`)
)

// SanitizeTitle reduces a title to a header- and filesystem-safe stem.
// SanitizeTitle(SanitizeTitle(x)) == SanitizeTitle(x) for every x.
func SanitizeTitle(title string) string {
	s := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, title)
	s = disallowedChars.ReplaceAllString(s, "")
	s = underscoreRuns.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_-")

	if len(s) > MaxTitleLength {
		s = strings.Trim(s[:MaxTitleLength], "_-")
	}
	if s == "" {
		return DefaultTitleStem
	}
	return s
}

// SanitizeExtension reduces an extension to lowercase alphanumerics.
func SanitizeExtension(ext string) string {
	ext = nonAlphanumerics.ReplaceAllString(strings.ToLower(ext), "")
	if len(ext) > MaxExtensionLength {
		ext = ext[:MaxExtensionLength]
	}
	if ext == "" {
		return defaultExtension
	}
	return ext
}

// AttachmentFilename builds the download filename for a title and extension.
func AttachmentFilename(title, ext string) string {
	return FilenamePrefix + SanitizeTitle(title) + "." + SanitizeExtension(ext)
}
