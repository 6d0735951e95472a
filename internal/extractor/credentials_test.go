package extractor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iconidentify/ultragrab/pkg/sealed"
)

const cookiesFixture = "# Netscape HTTP Cookie File\n" +
	"# This is a generated file!\n" +
	"\n" +
	".youtube.com\tTRUE\t/\tTRUE\t0\tPREF\tf6=40000000\n" +
	"#HttpOnly_.youtube.com\tTRUE\t/\tTRUE\t4102444800\tSID\tsecret-sid\n" +
	"accounts.google.com\tFALSE\t/\tTRUE\t4102444800\tLSID\tgoogle-only\n" +
	".youtube.com\tTRUE\t/\tFALSE\t946684800\tOLD\texpired\n"

func writeCookies(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "cookies.txt")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write cookies: %v", err)
	}
	return path
}

func TestParseNetscapeCookies(t *testing.T) {
	entries, err := parseNetscapeCookies([]byte(cookiesFixture))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("len(entries) = %d, want 4", len(entries))
	}

	sid := entries[1]
	if sid.Name != "SID" || sid.Value != "secret-sid" || !sid.HTTPOnly || sid.Domain != ".youtube.com" {
		t.Errorf("SID entry = %+v", sid)
	}
	if !entries[0].Expires.IsZero() {
		t.Errorf("session cookie should have zero expiry, got %v", entries[0].Expires)
	}
	if entries[2].Subdomains {
		t.Error("LSID should not match subdomains")
	}
}

func TestParseNetscapeCookies_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"too few fields", ".youtube.com\tTRUE\t/\tTRUE\t0\tPREF\n"},
		{"bad expiry", ".youtube.com\tTRUE\t/\tTRUE\tsoon\tPREF\tx\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseNetscapeCookies([]byte(tt.input)); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}

func TestCookieEntry_Matches(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	tests := []struct {
		name  string
		entry cookieEntry
		host  string
		want  bool
	}{
		{"exact host", cookieEntry{Domain: "youtube.com"}, "youtube.com", true},
		{"dot domain matches subdomain", cookieEntry{Domain: ".youtube.com"}, "www.youtube.com", true},
		{"dot domain matches apex", cookieEntry{Domain: ".youtube.com"}, "youtube.com", true},
		{"subdomain flag", cookieEntry{Domain: "youtube.com", Subdomains: true}, "m.youtube.com", true},
		{"host-only cookie", cookieEntry{Domain: "youtube.com"}, "m.youtube.com", false},
		{"suffix is not a subdomain", cookieEntry{Domain: ".youtube.com"}, "notyoutube.com", false},
		{"case insensitive", cookieEntry{Domain: ".YouTube.com"}, "WWW.youtube.COM", true},
		{"expired", cookieEntry{Domain: ".youtube.com", Expires: now.Add(-time.Hour)}, "www.youtube.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.matches(tt.host, now); got != tt.want {
				t.Errorf("matches(%q) = %v, want %v", tt.host, got, tt.want)
			}
		})
	}
}

func TestCookieSource_CookiesForHost(t *testing.T) {
	path := writeCookies(t, t.TempDir(), cookiesFixture)
	src := NewCookieSource(path, "")

	n, err := src.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if n != 4 {
		t.Errorf("Load() = %d, want 4", n)
	}

	cookies := src.Cookies("www.youtube.com")
	if len(cookies) != 2 {
		t.Fatalf("len(cookies) = %d, want 2 (expired and foreign cookies excluded)", len(cookies))
	}
	if got := src.Header("www.youtube.com"); got != "PREF=f6=40000000; SID=secret-sid" {
		t.Errorf("Header() = %q", got)
	}
	if got := src.Header("example.com"); got != "" {
		t.Errorf("Header(example.com) = %q, want empty", got)
	}
}

func TestCookieSource_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := writeCookies(t, dir, ".youtube.com\tTRUE\t/\tTRUE\t0\tSID\tfirst\n")
	src := NewCookieSource(path, "")

	if got := src.Header("www.youtube.com"); got != "SID=first" {
		t.Fatalf("Header() = %q, want SID=first", got)
	}

	writeCookies(t, dir, ".youtube.com\tTRUE\t/\tTRUE\t0\tSID\tsecond\n")
	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	if got := src.Header("www.youtube.com"); got != "SID=second" {
		t.Errorf("Header() after rotation = %q, want SID=second", got)
	}
}

func TestCookieSource_KeepsLastGoodSet(t *testing.T) {
	dir := t.TempDir()
	path := writeCookies(t, dir, ".youtube.com\tTRUE\t/\tTRUE\t0\tSID\tgood\n")
	src := NewCookieSource(path, "")
	if _, err := src.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if got := src.Header("youtube.com"); got != "SID=good" {
		t.Errorf("Header() = %q, want previously loaded SID=good", got)
	}
}

func TestCookieSource_Sealed(t *testing.T) {
	dir := t.TempDir()
	plain := writeCookies(t, dir, cookiesFixture)
	sealedPath := filepath.Join(dir, "cookies.sealed")
	if err := sealed.SealFile(plain, sealedPath, "correct horse"); err != nil {
		t.Fatalf("SealFile failed: %v", err)
	}

	src := NewCookieSource(sealedPath, "correct horse")
	if n, err := src.Load(); err != nil || n != 4 {
		t.Fatalf("Load() = %d, %v; want 4, nil", n, err)
	}

	wrong := NewCookieSource(sealedPath, "wrong")
	if _, err := wrong.Load(); err == nil {
		t.Error("Load with wrong passphrase should fail")
	}
}

func TestCookieSource_Nil(t *testing.T) {
	var src *CookieSource
	if got := src.Cookies("youtube.com"); got != nil {
		t.Errorf("nil source Cookies() = %v, want nil", got)
	}
	if got := src.Header("youtube.com"); got != "" {
		t.Errorf("nil source Header() = %q, want empty", got)
	}
}
