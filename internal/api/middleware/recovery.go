package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// Recovery turns handler panics into a 500 response.
// http.ErrAbortHandler is re-raised so net/http drops the connection; the
// download handler uses it to cut a relay that failed after headers.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := wrap(w)

			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("panic recovered",
					"panic", rec,
					"stack", string(debug.Stack()),
					"method", r.Method,
					"path", r.URL.Path,
				)

				if wrapped.wroteHeader {
					panic(http.ErrAbortHandler)
				}
				wrapped.Header().Set("Content-Type", "application/json")
				wrapped.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(wrapped).Encode(map[string]string{
					"error":   "internal",
					"message": "internal server error",
				})
			}()

			next.ServeHTTP(wrapped, r)
		})
	}
}
