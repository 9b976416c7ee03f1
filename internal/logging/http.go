package logging

import (
	"log/slog"
	"net/http"

	"github.com/felixge/httpsnoop"
)

// Middleware logs one line per request with method, path, status and latency.
// Requests that end in a 5xx are logged at error level.
func Middleware(l *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := httpsnoop.CaptureMetrics(next, w, r)

			level := slog.LevelInfo
			if m.Code >= http.StatusInternalServerError {
				level = slog.LevelError
			}

			l.WithContext(r.Context()).LogAttrs(r.Context(), level, "http request",
				Method(r.Method),
				Path(r.URL.Path),
				Status(m.Code),
				Duration(m.Duration),
				Bytes(m.Written),
			)
		})
	}
}
