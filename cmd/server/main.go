// ===========================================
// Short Links - Main Entry Point
// ===========================================
// Startup order:
//  1. Load configuration and build the logger
//  2. Open storage (Postgres with migrations, or SQLite) and optional Redis
//  3. Wire repositories, services, handlers
//  4. Start the click recorder and the expiry sweep
//  5. Serve until SIGINT/SIGTERM, then drain
//
// Any failure before serving is fatal.
// ===========================================

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/user/shortlinks/internal/auth"
	"github.com/user/shortlinks/internal/config"
	"github.com/user/shortlinks/internal/database"
	"github.com/user/shortlinks/internal/database/migrations"
	"github.com/user/shortlinks/internal/geo"
	"github.com/user/shortlinks/internal/handler"
	"github.com/user/shortlinks/internal/logging"
	"github.com/user/shortlinks/internal/middleware"
	"github.com/user/shortlinks/internal/qr"
	pgrepo "github.com/user/shortlinks/internal/repository/postgres"
	sqliterepo "github.com/user/shortlinks/internal/repository/sqlite"
	"github.com/user/shortlinks/internal/service"
)

// Version is set at build time using ldflags.
// go build -ldflags "-X main.Version=1.0.0"
var Version = "dev"

// storage is the backend selected by DB_DRIVER.
type storage struct {
	links  service.LinkRepository
	clicks service.ClickRepository
	health handler.Pinger
	close  func()
}

func main() {
	// Missing .env is fine in production.
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.Server.Release)
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}
	if cfg.Auth.JWTSecret == "" {
		logger.Warn("JWT_SECRET is empty, authenticated routes will reject every token")
	}
	logger.WithFields(logrus.Fields{
		"version": Version,
		"port":    cfg.Server.Port,
		"driver":  cfg.Database.Driver,
		"policy":  cfg.Shortener.ExpiryPolicy,
	}).Info("Starting short link service")

	startupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// ===========================================
	// Storage
	// ===========================================
	store, err := openStorage(startupCtx, cfg.Database, logging.Module(logger, "database"))
	if err != nil {
		logger.WithError(err).Fatal("Failed to open storage")
	}
	defer store.close()

	healthDeps := map[string]handler.Pinger{cfg.Database.Driver: store.health}

	var (
		cache   service.LinkCache
		counter middleware.Counter
	)
	if cfg.Redis.Enabled() {
		redis, err := database.NewRedisDB(startupCtx, cfg.Redis)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to Redis")
		}
		defer func() { _ = redis.Close() }()

		cache = service.NewRedisLinkCache(redis)
		counter = redis
		healthDeps["redis"] = redis
		logger.Info("Redis connected, link cache and rate limiting enabled")
	} else {
		logger.Warn("REDIS_URL is empty, link cache and rate limiting disabled")
	}

	// ===========================================
	// Services
	// ===========================================
	var locator service.GeoLocator = geo.Noop{}
	if cfg.Analytics.GeoEndpoint != "" {
		locator = geo.NewIPAPIClient(cfg.Analytics.GeoEndpoint, &http.Client{Timeout: cfg.Analytics.GeoTimeout})
	}

	recorder := service.NewRecorder(store.clicks, locator, cfg.Analytics, logging.Module(logger, "recorder"))
	resolver := service.NewResolver(store.links, cache, recorder, cfg.Shortener, logging.Module(logger, "resolver"))
	links := service.NewLinkService(store.links, cache, qr.NewEncoder(0), cfg.Shortener, logging.Module(logger, "links"))
	analytics := service.NewAnalytics(store.clicks)
	sweeper := service.NewSweeper(store.links, cfg.Sweep.Interval, logging.Module(logger, "sweeper"))

	// ===========================================
	// HTTP
	// ===========================================
	if cfg.Server.Release {
		gin.SetMode(gin.ReleaseMode)
	}

	httpLog := logging.Module(logger, "http")
	router := handler.NewRouter(handler.Router{
		Links:       handler.NewLinkHandler(links, analytics, httpLog),
		Redirects:   handler.NewRedirectHandler(resolver, httpLog),
		Pages:       handler.NewPagesHandler(),
		Health:      handler.NewHealthHandler(healthDeps, Version),
		Auth:        middleware.NewAuth(auth.NewVerifier(cfg.Auth.JWTSecret)),
		RateLimiter: middleware.NewRateLimiter(counter, cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Window, logging.Module(logger, "ratelimit")),
		Logger:      httpLog,

		TrustedProxies: cfg.Server.TrustedProxies,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	go sweeper.Run(bgCtx)

	go func() {
		logger.Infof("Server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	// ===========================================
	// Graceful shutdown
	// ===========================================
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	bgCancel()

	// Handlers are done; flush queued click events before storage closes.
	if err := recorder.Close(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Click queue not fully drained")
	}

	logger.Info("Server stopped")
}

func openStorage(ctx context.Context, cfg config.DatabaseConfig, log *logrus.Entry) (*storage, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := database.NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.WithField("path", cfg.SQLitePath).Info("SQLite opened")

		return &storage{
			links:  sqliterepo.NewLinkRepository(db),
			clicks: sqliterepo.NewClickRepository(db),
			health: handler.PingFunc(func(context.Context) error { return database.PingSQLite(db) }),
			close: func() {
				if err := database.CloseSQLite(db); err != nil {
					log.WithError(err).Warn("Failed to close SQLite")
				}
			},
		}, nil

	default:
		if cfg.MigrateOnStart {
			if err := migrate(cfg.URL, log); err != nil {
				return nil, err
			}
		}

		pg, err := database.NewPostgresDB(ctx, cfg)
		if err != nil {
			return nil, err
		}
		log.Info("PostgreSQL connected")

		return &storage{
			links:  pgrepo.NewLinkRepository(pg),
			clicks: pgrepo.NewClickRepository(pg),
			health: pg,
			close:  pg.Close,
		}, nil
	}
}

func migrate(databaseURL string, log *logrus.Entry) error {
	m, err := migrations.New(databaseURL, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.WithError(err).Warn("Failed to close migrator")
		}
	}()
	return m.Up()
}
