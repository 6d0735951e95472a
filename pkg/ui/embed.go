// Package ui provides the embedded web page for ultragrab.
package ui

import (
	_ "embed"
)

// IndexHTML is the single-page client: resolve, pick a quality, download.
// It only talks to the JSON API.
//
//go:embed index.html
var IndexHTML []byte
