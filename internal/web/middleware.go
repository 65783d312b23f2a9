package web

import (
	"fmt"
	"net/http"
	"regexp"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"wwfm/internal/logging"
	"wwfm/internal/services"
)

const requestIDHeader = "X-Request-ID"

var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{8,64}$`)

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(p)
	r.bytes += n
	return n, err
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// middleware assigns request IDs, recovers panics and writes the access log.
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		id := r.Header.Get(requestIDHeader)
		if !validRequestID.MatchString(id) {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		req := r.WithContext(services.WithRequestID(r.Context(), id))
		rec := &statusRecorder{ResponseWriter: w}

		defer func() {
			if recovered := recover(); recovered != nil {
				logging.ErrorWithContext(logging.WithContext(req.Context(), s.logger), "handler panic", "panic",
					logging.String("panic", fmt.Sprint(recovered)),
					logging.String("stack", string(debug.Stack())),
					logging.String(logging.FieldErrorHint, "inspect the stack trace"),
				)
				if rec.status == 0 {
					http.Error(rec, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}
			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			ctx := services.WithRoute(req.Context(), req.Pattern)
			logger := logging.WithContext(ctx, s.logger)
			attrs := logging.Args(
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Int("status", status),
				logging.Int("bytes", rec.bytes),
				logging.Duration("duration", time.Since(started)),
			)
			if status >= http.StatusInternalServerError {
				logger.Warn("request", attrs...)
				return
			}
			logger.Info("request", attrs...)
		}()

		next.ServeHTTP(rec, req)
	})
}
