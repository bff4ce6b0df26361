package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const RequestIDHeader = "X-Request-ID"

// RequestLogger assigns a request ID (reusing a caller-supplied one) and
// writes one access log line per request.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, requestID)

		logger := log.With().Str("request_id", requestID).Logger()
		ctx := logger.WithContext(r.Context())

		ww := wrap(w)
		next.ServeHTTP(ww, r.WithContext(ctx))

		evt := logger.Info()
		if ww.statusCode >= http.StatusInternalServerError {
			evt = logger.Error()
		}
		evt.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.statusCode).
			Dur("duration", time.Since(start)).
			Str("remote_addr", r.RemoteAddr).
			Msg("request")
	})
}
