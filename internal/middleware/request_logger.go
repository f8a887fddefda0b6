package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/shortreel/backend/internal/logging"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// RequestLogger attaches a request-scoped logger and request id to the
// context, recovers panics as 500s and logs one line per completed request.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := strings.TrimSpace(r.Header.Get(RequestIDHeader))
			if requestID == "" || len(requestID) > 128 {
				requestID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, requestID)

			reqLogger := base.With(
				slog.String("request_id", requestID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
			)

			ctx := logging.WithLogger(r.Context(), reqLogger)
			ctx = logging.WithRequestID(ctx, requestID)

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				if rec := recover(); rec != nil {
					reqLogger.Error("panic recovered", slog.Any("panic", rec))
					if ww.Status() == 0 {
						http.Error(ww, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					}
				}

				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				attrs := []any{
					slog.Int("status", status),
					slog.Int("bytes", ww.BytesWritten()),
					slog.Duration("duration", time.Since(start)),
				}
				if rctx := chi.RouteContext(ctx); rctx != nil && rctx.RoutePattern() != "" {
					attrs = append(attrs, slog.String("route", rctx.RoutePattern()))
				}

				level := slog.LevelInfo
				if status >= http.StatusInternalServerError {
					level = slog.LevelError
				}
				reqLogger.Log(ctx, level, "request completed", attrs...)
			}()

			next.ServeHTTP(ww, r.WithContext(ctx))
		})
	}
}
