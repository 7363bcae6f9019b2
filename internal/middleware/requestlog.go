package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

var quietPaths = []string{
	"/health",
	"/docs",
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

// RequestLog creates middleware that logs each request with its status and
// latency. Health and docs probes are skipped to keep the log signal useful.
func RequestLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isQuietPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(recorder, r)

			logger.Info("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

func isQuietPath(path string) bool {
	for _, quiet := range quietPaths {
		if strings.HasPrefix(path, quiet) {
			return true
		}
	}
	return false
}
