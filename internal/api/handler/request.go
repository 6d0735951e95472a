package handler

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ExtractRequest is the body of POST /api/extract.
type ExtractRequest struct {
	URL string `json:"url" validate:"required,max=2048"`
}

// DownloadParams are the query parameters of GET /api/download.
type DownloadParams struct {
	Reference string `json:"url" validate:"required,max=2048"`
	Type      string `json:"type" validate:"omitempty,oneof=video audio mp4 mp3"`
	Quality   int    `json:"quality" validate:"gte=0,lte=4320"`
}

// HistoryParams are the query parameters of GET /api/history.
type HistoryParams struct {
	Limit int `json:"limit" validate:"gte=0,lte=500"`
}

// parseQuality accepts "720", "720p", "best" or empty. Empty and "best"
// mean unbounded (0).
func parseQuality(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "best" {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSuffix(s, "p"))
	if err != nil {
		return 0, errors.New("quality must be a height such as 720 or 720p")
	}
	return n, nil
}

// validationMessage renders the first failed field of a validator error.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	case "max", "lte":
		return fe.Field() + " must be at most " + fe.Param()
	case "gte":
		return fe.Field() + " must be at least " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}

// isReferenceField reports whether the first failed field is the media reference.
func isReferenceField(err error) bool {
	var verrs validator.ValidationErrors
	return errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Field() == "url"
}
