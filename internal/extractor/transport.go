package extractor

import (
	"net/http"
)

// headerTransport adds configured headers and origin cookies to outgoing
// requests. Headers the caller already set are left alone.
type headerTransport struct {
	base      http.RoundTripper
	userAgent string
	headers   map[string]string
	cookies   *CookieSource
}

func newHeaderTransport(base http.RoundTripper, userAgent string, headers map[string]string, cookies *CookieSource) *headerTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &headerTransport{
		base:      base,
		userAgent: userAgent,
		headers:   headers,
		cookies:   cookies,
	}
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())

	if t.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	for k, v := range t.headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	if req.Header.Get("Cookie") == "" {
		for _, c := range t.cookies.Cookies(req.URL.Hostname()) {
			req.AddCookie(c)
		}
	}

	return t.base.RoundTrip(req)
}
