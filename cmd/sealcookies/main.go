// Command sealcookies encrypts a Netscape cookies file for the server's
// extractor. The server opens it with EXTRACTOR_COOKIES_PASSPHRASE.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/iconidentify/ultragrab/pkg/sealed"
)

var Version = "dev"

var errMismatch = errors.New("passphrases do not match")

func main() {
	in := flag.String("in", "", "Path to the plain cookies.txt")
	out := flag.String("out", "", "Path of the sealed output file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("sealcookies %s\n", Version)
		os.Exit(0)
	}
	if *in == "" || *out == "" {
		fmt.Fprintln(os.Stderr, "usage: sealcookies -in cookies.txt -out cookies.sealed")
		os.Exit(2)
	}

	p := newPrompter(os.Stdin, os.Stdout)
	passphrase, err := p.confirm()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading passphrase: %v\n", err)
		os.Exit(1)
	}

	if err := sealCookies(*in, *out, passphrase); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", *out)
}

// sealCookies refuses to seal an already sealed file or an empty passphrase.
func sealCookies(in, out, passphrase string) error {
	if passphrase == "" {
		return sealed.ErrEmptyPassphrase
	}
	data, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("read %s: %w", in, err)
	}
	if sealed.IsSealed(data) {
		return fmt.Errorf("%s is already sealed", in)
	}
	return sealed.SealFile(in, out, passphrase)
}

// prompter reads passphrases without echo from a terminal, or line by line
// from any other input.
type prompter struct {
	fd     int
	isTerm bool
	reader *bufio.Reader
	out    io.Writer
}

func newPrompter(in *os.File, out io.Writer) *prompter {
	fd := int(in.Fd())
	return &prompter{
		fd:     fd,
		isTerm: term.IsTerminal(fd),
		reader: bufio.NewReader(in),
		out:    out,
	}
}

func (p *prompter) read(label string) (string, error) {
	fmt.Fprint(p.out, label)

	if p.isTerm {
		pass, err := term.ReadPassword(p.fd)
		if err != nil {
			return "", err
		}
		fmt.Fprintln(p.out)
		return string(pass), nil
	}

	line, err := p.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// confirm asks twice and returns the passphrase when both entries match.
func (p *prompter) confirm() (string, error) {
	first, err := p.read("Enter passphrase: ")
	if err != nil {
		return "", err
	}
	second, err := p.read("Repeat passphrase: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errMismatch
	}
	return first, nil
}
