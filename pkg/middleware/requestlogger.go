package middleware

import (
	"log/slog"
	"net/http"

	"github.com/Mark-AImagineers/NoteKo/pkg/logger"
)

// RequestLogger stores a logger enriched with the request ID and trace IDs in
// the request context; handlers fetch it with logger.FromContext.
//
// Mount after RequestLogging and Tracing so both IDs are already present.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
