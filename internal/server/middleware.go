package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	logx "controlcenter/pkg/logx"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// WithRequestID tags every request with an X-Request-ID, honoring one the
// client already sent.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

// WithLogging records method, path, status and latency for every request.
func WithLogging(log logx.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		log.Debug("http request",
			logx.String("method", r.Method),
			logx.String("path", r.URL.Path),
			logx.Int("status", rec.status),
			logx.Duration("elapsed", time.Since(start)),
			logx.String("request_id", w.Header().Get("X-Request-ID")))
	})
}

// WithRecover turns handler panics into 500s instead of dropped connections.
func WithRecover(log logx.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("handler panic",
					logx.String("path", r.URL.Path), logx.Any("panic", rec))
				Internal(w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
