package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"

	"github.com/utafrali/bookstore/internal/auth"
	"github.com/utafrali/bookstore/internal/catalog"
	"github.com/utafrali/bookstore/internal/config"
	"github.com/utafrali/bookstore/internal/event"
	handler "github.com/utafrali/bookstore/internal/handler/http"
	"github.com/utafrali/bookstore/internal/store"
	storeredis "github.com/utafrali/bookstore/internal/store/redis"
	"github.com/utafrali/bookstore/internal/storefront"
	"github.com/utafrali/bookstore/internal/upstream"
	"github.com/utafrali/bookstore/pkg/database"
	"github.com/utafrali/bookstore/pkg/health"
	"github.com/utafrali/bookstore/pkg/httpclient"
	pkgkafka "github.com/utafrali/bookstore/pkg/kafka"
	"github.com/utafrali/bookstore/pkg/middleware"
	"github.com/utafrali/bookstore/pkg/tracing"
)

// App wires together all dependencies and runs the storefront.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *goredis.Client
	producer       *pkgkafka.Producer
	registry       *storefront.Registry
	limiter        *middleware.RateLimiter
	shutdownTracer func(context.Context) error
	httpServer     *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	shutdownTracer, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "storefront",
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.shutdownTracer = shutdownTracer

	healthHandler := health.NewHandler(2 * time.Second)

	kv, err := a.openStore(ctx, healthHandler)
	if err != nil {
		return nil, err
	}

	// Collaborators. Each gets its own breaker so a failing auth backend
	// does not trip catalog reads.
	clientCfg := httpclient.DefaultConfig()
	clientCfg.Timeout = cfg.UpstreamTimeout
	catalogHTTP := httpclient.NewCircuitBreakerClient(httpclient.New(clientCfg), httpclient.DefaultCircuitBreakerConfig("catalog"), logger)
	authHTTP := httpclient.NewCircuitBreakerClient(httpclient.New(clientCfg), httpclient.DefaultCircuitBreakerConfig("auth"), logger)

	books := catalog.NewClient(upstream.NewCaller("catalog", cfg.BooksAPIURL, catalogHTTP, logger), logger)
	accounts := auth.NewClient(upstream.NewCaller("auth", cfg.AuthAPIURL, authHTTP, logger), logger)

	healthHandler.RegisterOptional("catalog", breakerCheck(catalogHTTP))
	healthHandler.RegisterOptional("auth", breakerCheck(authHTTP))

	// Events.
	var publisher pkgkafka.Publisher = pkgkafka.NopPublisher{}
	if cfg.EventsEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = a.producer
		healthHandler.RegisterOptional("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	logger.Info("health checks registered", slog.Any("checks", healthHandler.Names()))

	a.registry = storefront.NewRegistry(storefront.Deps{
		KV:               kv,
		Auth:             accounts,
		Catalog:          books,
		Events:           event.NewProducer(publisher, logger),
		Logger:           logger,
		RehydrateTimeout: cfg.RehydrateTimeout,
	}, cfg.SessionIdle, logger)
	a.registry.Run(sweepInterval(cfg.SessionIdle))

	a.limiter = middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst, 10*time.Minute)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSOrigins

	router := handler.NewRouter(handler.RouterConfig{
		Sessions: a.registry,
		Catalog:  books,
		Health:   healthHandler,
		Logger:   logger,
		Cookie: handler.CookieConfig{
			Name:   cfg.CookieName,
			Secure: cfg.CookieSecure,
			MaxAge: cfg.SessionTTL,
		},
		CORS:           corsCfg,
		AuthLimiter:    a.limiter,
		CatalogMaxAge:  cfg.CatalogMaxAge,
		RequestTimeout: cfg.RequestTimeout,
		PprofCIDRs:     cfg.PprofCIDRs,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return a, nil
}

// openStore connects the configured session store and registers its
// readiness check.
func (a *App) openStore(ctx context.Context, h *health.Handler) (store.KV, error) {
	if a.cfg.StoreBackend == config.StoreMemory {
		a.logger.Warn("using in-memory session store; carts are lost on restart")
		return store.NewMemory(a.cfg.SessionTTL), nil
	}

	redisCfg := database.DefaultRedisConfig()
	redisCfg.Host = a.cfg.RedisHost
	redisCfg.Port = a.cfg.RedisPort
	redisCfg.Password = a.cfg.RedisPass
	redisCfg.DB = a.cfg.RedisDB
	redisCfg.PoolSize = a.cfg.RedisPoolSize

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	rdb, err := database.NewRedisClient(pingCtx, redisCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.rdb = rdb
	a.logger.Info("connected to Redis",
		slog.String("addr", redisCfg.Addr()),
		slog.Int("db", redisCfg.DB),
	)

	h.Register("redis", database.RedisChecker(rdb))
	return storeredis.NewKV(rdb, a.cfg.SessionTTL), nil
}

func breakerCheck(c *httpclient.CircuitBreakerClient) health.Checker {
	return func(context.Context) error {
		if c.State() == gobreaker.StateOpen {
			return fmt.Errorf("%s circuit breaker is open", c.Name())
		}
		return nil
	}
}

func sweepInterval(idle time.Duration) time.Duration {
	if d := idle / 2; d > time.Second {
		return d
	}
	return time.Second
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
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
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	a.registry.Close()
	a.limiter.Close()

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}

	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}

	if err := a.shutdownTracer(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}
