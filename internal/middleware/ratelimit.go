package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apperrors "github.com/Mark-AImagineers/NoteKo/pkg/errors"
	"github.com/Mark-AImagineers/NoteKo/pkg/httputil"
)

var rateLimitDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "rate_limit_decisions_total",
	Help: "Rate limiter decisions by outcome.",
}, []string{"decision"})

// Admitter is the subset of a rate limit store the middleware needs.
type Admitter interface {
	Admit(ctx context.Context, clientID string, now time.Time) (bool, error)
}

// RateLimitOptions configures RateLimit.
type RateLimitOptions struct {
	// TrustProxy makes X-Forwarded-For and X-Real-IP authoritative. Only
	// enable behind a proxy that overwrites them.
	TrustProxy bool
	Now        func() time.Time
}

// RateLimit rejects callers that exceed the store's limit with 429. When the
// store itself fails the request is let through and the failure logged.
func RateLimit(store Admitter, opts RateLimitOptions, l *slog.Logger) func(http.Handler) http.Handler {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r, opts.TrustProxy)

			ok, err := store.Admit(r.Context(), ip, now())
			if err != nil {
				rateLimitDecisions.WithLabelValues("error").Inc()
				l.ErrorContext(r.Context(), "rate limit store failed, admitting request",
					slog.String("ip", ip),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				rateLimitDecisions.WithLabelValues("rejected").Inc()
				l.WarnContext(r.Context(), "rate limit exceeded",
					slog.String("ip", ip),
					slog.String("path", r.URL.Path),
				)
				httputil.WriteError(w, r, apperrors.TooManyRequests("too many requests"), l)
				return
			}

			rateLimitDecisions.WithLabelValues("admitted").Inc()
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the caller's address. Forwarding headers are only
// consulted when trustProxy is set.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
