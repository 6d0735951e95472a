package main

import (
	"bufio"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iconidentify/ultragrab/pkg/sealed"
)

func pipePrompter(input string) *prompter {
	return &prompter{
		reader: bufio.NewReader(strings.NewReader(input)),
		out:    io.Discard,
	}
}

func TestPrompter_Confirm(t *testing.T) {
	pass, err := pipePrompter("s3cret pass\ns3cret pass\n").confirm()
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if pass != "s3cret pass" {
		t.Errorf("passphrase = %q", pass)
	}
}

func TestPrompter_ConfirmWithoutTrailingNewline(t *testing.T) {
	pass, err := pipePrompter("abc\r\nabc").confirm()
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if pass != "abc" {
		t.Errorf("passphrase = %q, want abc", pass)
	}
}

func TestPrompter_Mismatch(t *testing.T) {
	if _, err := pipePrompter("one\ntwo\n").confirm(); !errors.Is(err, errMismatch) {
		t.Errorf("error = %v, want errMismatch", err)
	}
}

func TestPrompter_ShortInput(t *testing.T) {
	if _, err := pipePrompter("only-once\n").confirm(); err == nil {
		t.Error("expected error when the second entry is missing")
	}
}

func TestSealCookies(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "cookies.txt")
	out := filepath.Join(dir, "cookies.sealed")
	content := "# Netscape HTTP Cookie File\n.youtube.com\tTRUE\t/\tTRUE\t0\tSID\tabc\n"
	if err := os.WriteFile(in, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	if err := sealCookies(in, out, "pass"); err != nil {
		t.Fatalf("sealCookies failed: %v", err)
	}

	got, err := sealed.ReadFile(out, "pass")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(got) != content {
		t.Errorf("round trip = %q", got)
	}

	if err := sealCookies(out, filepath.Join(dir, "twice.sealed"), "pass"); err == nil {
		t.Error("sealing a sealed file should fail")
	}
	if err := sealCookies(in, out, ""); !errors.Is(err, sealed.ErrEmptyPassphrase) {
		t.Errorf("error = %v, want ErrEmptyPassphrase", err)
	}
	if err := sealCookies(filepath.Join(dir, "missing.txt"), out, "pass"); err == nil {
		t.Error("missing input should fail")
	}
}
