package middleware

import (
	"log/slog"
	"net/http"

	"github.com/quillback/mnemo-api/internal/api/shared"
)

// TraceMiddleware stamps a trace ID into the request context. It sits near
// the front of the chain so every downstream handler and log line can carry
// the same ID.
func TraceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := shared.SetTraceID(r.Context())

		slog.With(slog.String("trace_id", shared.GetTraceID(ctx))).Debug("request started",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
