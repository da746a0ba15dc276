package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/Mark-AImagineers/NoteKo/internal/auth"
	"github.com/Mark-AImagineers/NoteKo/internal/config"
	"github.com/Mark-AImagineers/NoteKo/internal/event"
	handler "github.com/Mark-AImagineers/NoteKo/internal/handler/http"
	"github.com/Mark-AImagineers/NoteKo/internal/password"
	"github.com/Mark-AImagineers/NoteKo/internal/ratelimit"
	"github.com/Mark-AImagineers/NoteKo/internal/repository"
	"github.com/Mark-AImagineers/NoteKo/internal/repository/memory"
	"github.com/Mark-AImagineers/NoteKo/internal/repository/postgres"
	"github.com/Mark-AImagineers/NoteKo/internal/service"
	"github.com/Mark-AImagineers/NoteKo/migrations"
	"github.com/Mark-AImagineers/NoteKo/pkg/database"
	"github.com/Mark-AImagineers/NoteKo/pkg/health"
	pkgkafka "github.com/Mark-AImagineers/NoteKo/pkg/kafka"
	"github.com/Mark-AImagineers/NoteKo/pkg/middleware"
	"github.com/Mark-AImagineers/NoteKo/pkg/tracing"
)

// ServiceName labels logs, metrics and traces.
const ServiceName = "noteko-auth"

// App wires together all dependencies and runs the auth service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	limiter        *ratelimit.Memory
	stopSweep      context.CancelFunc
	httpServer     *http.Server
	tracerShutdown tracing.ShutdownFunc
}

// NewApp creates a new application instance, initializing all dependencies.
// On failure everything opened so far is closed again.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.closeResources()
		}
	}()

	// Initialize OpenTelemetry tracing.
	a.tracerShutdown, err = tracing.Init(ctx, tracing.Config{
		Enabled:        cfg.OTELEnabled,
		ServiceName:    ServiceName,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		Endpoint:       cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	healthHandler := health.NewHandler()

	users, err := a.initStorage(ctx, healthHandler)
	if err != nil {
		return nil, err
	}

	limiter, err := a.initRateLimiter(ctx, healthHandler)
	if err != nil {
		return nil, err
	}

	var events service.UserEventPublisher
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.ProducerConfig{Brokers: cfg.KafkaBrokers}, logger)
		guarded := pkgkafka.NewBreakerPublisher(a.producer, pkgkafka.DefaultBreakerConfig("kafka-user-events"), logger)
		events = event.NewProducer(guarded, logger)
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Build the dependency graph.
	tokens, err := auth.NewTokenService(auth.Config{
		Secret:     cfg.SecretKey,
		Algorithm:  cfg.JWTAlgorithm,
		AccessTTL:  cfg.AccessTokenExpiry,
		RefreshTTL: cfg.RefreshTokenExpiry,
	})
	if err != nil {
		return nil, fmt.Errorf("init token service: %w", err)
	}
	hasher := password.NewHasher(cfg.BcryptCost)
	authService := service.NewAuthService(users, hasher, tokens, events, logger)

	router := handler.NewRouter(authService, healthHandler, logger, handler.RouterConfig{
		ServiceName: ServiceName,
		Version:     cfg.Version,
		APIVersion:  "v1",
		CORS: middleware.CORSConfig{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowCredentials: true,
		},
		MetricsAllowedCIDRs: cfg.MetricsAllowedCIDRs,
		RateLimiter:         limiter,
		TrustProxyHeaders:   cfg.TrustProxyHeaders,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

func (a *App) initStorage(ctx context.Context, h *health.Handler) (repository.UserRepository, error) {
	cfg := a.cfg
	if cfg.StorageDriver == config.StorageMemory {
		a.logger.Warn("using in-memory user store; accounts are lost on restart")
		return memory.NewUserRepository(), nil
	}

	pool, err := database.NewPostgresPool(ctx, &database.PostgresConfig{
		Host:            cfg.PostgresHost,
		Port:            cfg.PostgresPort,
		User:            cfg.PostgresUser,
		Password:        cfg.PostgresPass,
		DBName:          cfg.PostgresDB,
		SSLMode:         cfg.PostgresSSL,
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: time.Duration(cfg.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(cfg.DBMaxConnIdleTimeMins) * time.Minute,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	a.logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	if err := registerCollector(database.NewPoolStatsCollector(pool, ServiceName)); err != nil {
		return nil, fmt.Errorf("register pool metrics: %w", err)
	}

	if err := database.RunMigrations(ctx, pool, migrations.FS, a.logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	a.logger.Info("database migrations completed")

	h.RegisterCritical("postgres", pool.Ping)

	tracer := &database.QueryTracer{
		Threshold: time.Duration(cfg.SlowQueryThresholdMs) * time.Millisecond,
		Logger:    a.logger,
	}
	return postgres.NewUserRepository(pool, tracer), nil
}

func (a *App) initRateLimiter(ctx context.Context, h *health.Handler) (ratelimit.Store, error) {
	limit := ratelimit.Limit{Calls: a.cfg.RateLimitCalls, Window: a.cfg.RateLimitWindow}

	if a.cfg.RateLimitBackend == config.RateLimitRedis {
		client, err := database.NewRedisClient(ctx, database.RedisConfig{
			Host:     a.cfg.RedisHost,
			Port:     a.cfg.RedisPort,
			Password: a.cfg.RedisPassword,
			DB:       a.cfg.RedisDB,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.redis = client
		h.RegisterNonCritical("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		a.logger.Info("rate limiter using redis", slog.String("addr", client.Options().Addr))
		return ratelimit.NewRedis(client, limit, "noteko:ratelimit:"), nil
	}

	a.limiter = ratelimit.NewMemory(limit)
	return a.limiter, nil
}

// registerCollector registers c with the default registry, tolerating a
// collector that is already there.
func registerCollector(c prometheus.Collector) error {
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return nil
		}
		return err
	}
	return nil
}

// Handler exposes the HTTP handler, for tests.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	if a.limiter != nil {
		sweepCtx, stop := context.WithCancel(context.Background())
		a.stopSweep = stop
		go a.limiter.Run(sweepCtx)
	}

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return errors.Join(err, a.Shutdown())
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order: HTTP server first so
// in-flight requests drain, then the tracer, then the backing clients.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.closeResources(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeResources() error {
	var errs []error

	if a.stopSweep != nil {
		a.stopSweep()
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.pool != nil {
		a.pool.Close()
	}

	return errors.Join(errs...)
}
