package server

import (
	"context"
	"net/http"
	"time"

	"github.com/silentcmz/careate-hot-code-push/internal/logger"
)

// responseRecorder captures the status and size a handler wrote.
type responseRecorder struct {
	http.ResponseWriter

	status int
	bytes  int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(data []byte) (int, error) {
	n, err := r.ResponseWriter.Write(data)
	r.bytes += n

	return n, err
}

// newHandler serves the content directory and logs every request.
func newHandler(ctx context.Context, contentDir string) http.Handler {
	files := http.FileServer(http.Dir(contentDir))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		recorder := &responseRecorder{ResponseWriter: w, status: http.StatusOK}

		files.ServeHTTP(recorder, r)

		logger.InfoKV(ctx, "Request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"duration", time.Since(started).String(),
			"bytes", recorder.bytes)
	})
}
