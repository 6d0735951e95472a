package extractor

import (
	"bufio"
	"bytes"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/iconidentify/ultragrab/pkg/sealed"
)

const httpOnlyPrefix = "#HttpOnly_"

// cookieEntry is one line of a Netscape cookie file.
type cookieEntry struct {
	Domain     string
	Subdomains bool
	Path       string
	Secure     bool
	Expires    time.Time
	Name       string
	Value      string
	HTTPOnly   bool
}

func (c cookieEntry) matches(host string, now time.Time) bool {
	if !c.Expires.IsZero() && c.Expires.Before(now) {
		return false
	}
	host = strings.ToLower(host)
	domain := strings.ToLower(strings.TrimPrefix(c.Domain, "."))
	if host == domain {
		return true
	}
	subdomains := c.Subdomains || strings.HasPrefix(c.Domain, ".")
	return subdomains && strings.HasSuffix(host, "."+domain)
}

// parseNetscapeCookies parses the cookies.txt format exported by browsers
// and used by yt-dlp.
func parseNetscapeCookies(data []byte) ([]cookieEntry, error) {
	var entries []cookieEntry

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")

		httpOnly := false
		if strings.HasPrefix(line, httpOnlyPrefix) {
			httpOnly = true
			line = strings.TrimPrefix(line, httpOnlyPrefix)
		}
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != 7 {
			return nil, fmt.Errorf("cookie line %d: expected 7 fields, got %d", lineNo, len(fields))
		}

		var expires time.Time
		if fields[4] != "" && fields[4] != "0" {
			secs, err := strconv.ParseInt(fields[4], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("cookie line %d: invalid expiry %q", lineNo, fields[4])
			}
			expires = time.Unix(secs, 0)
		}

		entries = append(entries, cookieEntry{
			Domain:     fields[0],
			Subdomains: strings.EqualFold(fields[1], "TRUE"),
			Path:       fields[2],
			Secure:     strings.EqualFold(fields[3], "TRUE"),
			Expires:    expires,
			Name:       fields[5],
			Value:      fields[6],
			HTTPOnly:   httpOnly,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan cookies: %w", err)
	}

	return entries, nil
}

// CookieSource serves origin cookies from a file that operators may rotate
// at any time. The file is re-read when its modification time changes and
// may be sealed with pkg/sealed.
type CookieSource struct {
	path       string
	passphrase string

	mu      sync.Mutex
	modTime time.Time
	entries []cookieEntry

	now func() time.Time
}

// NewCookieSource creates a source for path. passphrase is only used when
// the file is sealed.
func NewCookieSource(path, passphrase string) *CookieSource {
	return &CookieSource{
		path:       path,
		passphrase: passphrase,
		now:        time.Now,
	}
}

// Load reads the file if it changed since the last call and returns the
// number of cookies held.
func (s *CookieSource) Load() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if err != nil {
		return 0, fmt.Errorf("stat cookies file: %w", err)
	}
	if s.entries != nil && info.ModTime().Equal(s.modTime) {
		return len(s.entries), nil
	}

	data, err := sealed.ReadFile(s.path, s.passphrase)
	if err != nil {
		return 0, fmt.Errorf("read cookies file: %w", err)
	}
	entries, err := parseNetscapeCookies(data)
	if err != nil {
		return 0, err
	}
	if entries == nil {
		entries = []cookieEntry{}
	}

	s.entries = entries
	s.modTime = info.ModTime()
	return len(entries), nil
}

// Cookies returns the unexpired cookies that apply to host. A failed reload
// keeps serving the previously loaded set.
func (s *CookieSource) Cookies(host string) []*http.Cookie {
	if s == nil {
		return nil
	}
	_, _ = s.Load()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	return lo.FilterMap(s.entries, func(c cookieEntry, _ int) (*http.Cookie, bool) {
		if !c.matches(host, now) {
			return nil, false
		}
		return &http.Cookie{Name: c.Name, Value: c.Value}, true
	})
}

// Header renders the cookies for host as a Cookie header value.
func (s *CookieSource) Header(host string) string {
	cookies := s.Cookies(host)
	parts := lo.Map(cookies, func(c *http.Cookie, _ int) string { return c.String() })
	return strings.Join(parts, "; ")
}
