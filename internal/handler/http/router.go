package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	gate "github.com/Mark-AImagineers/NoteKo/internal/middleware"
	"github.com/Mark-AImagineers/NoteKo/internal/service"
	"github.com/Mark-AImagineers/NoteKo/pkg/health"
	"github.com/Mark-AImagineers/NoteKo/pkg/httputil"
	"github.com/Mark-AImagineers/NoteKo/pkg/middleware"
)

// RouterConfig carries what the router needs beyond the service itself.
type RouterConfig struct {
	ServiceName string
	Version     string
	APIVersion  string
	CORS        middleware.CORSConfig
	// MetricsAllowedCIDRs restricts /metrics. Empty means no restriction.
	MetricsAllowedCIDRs []string
	RateLimiter         gate.Admitter
	TrustProxyHeaders   bool
}

// NewRouter creates a chi router with all auth service routes registered.
func NewRouter(
	authService *service.AuthService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cfg RouterConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(gate.SecurityHeaders)
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(middleware.CORS(cfg.CORS))

	r.Get("/", infoHandler(cfg))
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Group(func(r chi.Router) {
		if len(cfg.MetricsAllowedCIDRs) > 0 {
			r.Use(middleware.IPAllowlist(cfg.MetricsAllowedCIDRs, logger))
		}
		r.Handle("/metrics", promhttp.Handler())
	})

	authHandler := NewAuthHandler(authService, logger)
	r.Route("/v1/auth", func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(gate.RateLimit(cfg.RateLimiter, gate.RateLimitOptions{TrustProxy: cfg.TrustProxyHeaders}, logger))
		}

		r.With(ContentTypeJSON).Post("/register", authHandler.Register)
		r.With(ContentTypeJSON).Post("/login", authHandler.Login)
		r.With(middleware.RequireBearer).Post("/refresh", authHandler.Refresh)
		r.With(middleware.RequireBearer).Get("/me", authHandler.Me)
	})

	return r
}

type infoResponse struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	APIVersion string `json:"api_version"`
	Status     string `json:"status"`
	Timestamp  int64  `json:"timestamp"`
}

func infoHandler(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, infoResponse{
			Name:       cfg.ServiceName,
			Version:    cfg.Version,
			APIVersion: cfg.APIVersion,
			Status:     "operational",
			Timestamp:  time.Now().Unix(),
		})
	}
}
