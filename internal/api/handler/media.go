package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/iconidentify/ultragrab/internal/domain"
	"github.com/iconidentify/ultragrab/internal/service"
)

// maxExtractBody bounds the POST /api/extract body.
const maxExtractBody = 16 << 10

// MediaHandler serves resolve, list and relay requests.
type MediaHandler struct {
	mediaSvc *service.MediaService
	logger   *slog.Logger
}

// NewMediaHandler creates a new media handler.
func NewMediaHandler(mediaSvc *service.MediaService, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{
		mediaSvc: mediaSvc,
		logger:   logger,
	}
}

// Extract handles POST /api/extract with a JSON body {"url": "..."}.
func (h *MediaHandler) Extract(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxExtractBody)).Decode(&req); err != nil {
		writeCode(w, http.StatusBadRequest, codeInvalidRequest, "invalid request body")
		return
	}
	h.extract(w, r, req)
}

// ExtractQuery handles GET /api/extract?url=.
func (h *MediaHandler) ExtractQuery(w http.ResponseWriter, r *http.Request) {
	h.extract(w, r, ExtractRequest{URL: reference(r)})
}

func (h *MediaHandler) extract(w http.ResponseWriter, r *http.Request, req ExtractRequest) {
	if err := validate.Struct(req); err != nil {
		writeCode(w, http.StatusBadRequest, "invalid_reference", validationMessage(err))
		return
	}

	view, err := h.mediaSvc.Resolve(r.Context(), req.URL)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Formats handles GET /api/formats?url=.
func (h *MediaHandler) Formats(w http.ResponseWriter, r *http.Request) {
	req := ExtractRequest{URL: reference(r)}
	if err := validate.Struct(req); err != nil {
		writeCode(w, http.StatusBadRequest, "invalid_reference", validationMessage(err))
		return
	}

	q, err := h.mediaSvc.ListRenditions(r.Context(), req.URL)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// Download handles GET /api/download?url=|id=&type=&quality=.
//
// Errors before the relay commits are JSON responses. After commit the
// only signal left is the connection itself, so a mid-stream failure
// aborts it.
func (h *MediaHandler) Download(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	kindParam := q.Get("type")
	if kindParam == "" {
		kindParam = q.Get("format")
	}

	quality, err := parseQuality(q.Get("quality"))
	if err != nil {
		writeCode(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	params := DownloadParams{
		Reference: reference(r),
		Type:      kindParam,
		Quality:   quality,
	}
	if err := validate.Struct(params); err != nil {
		code := codeInvalidRequest
		if isReferenceField(err) {
			code = "invalid_reference"
		}
		writeCode(w, http.StatusBadRequest, code, validationMessage(err))
		return
	}

	kind, _ := domain.ParseMediaKind(params.Type)

	res := h.mediaSvc.Download(r.Context(), w, service.DownloadRequest{
		Reference: params.Reference,
		Kind:      kind,
		MaxHeight: params.Quality,
	})

	switch {
	case !res.Outcome.Committed():
		writeError(w, h.logger, res.Err)
	case errors.Is(res.Err, domain.ErrMidStream):
		panic(http.ErrAbortHandler)
	}
}

// reference reads the media reference from ?url= or, failing that, ?id=.
func reference(r *http.Request) string {
	q := r.URL.Query()
	if u := q.Get("url"); u != "" {
		return u
	}
	return q.Get("id")
}
