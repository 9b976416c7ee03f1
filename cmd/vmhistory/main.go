package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vendlabs/vmhistory/internal/config"
	"github.com/vendlabs/vmhistory/internal/handlers"
	"github.com/vendlabs/vmhistory/internal/logging"
	"github.com/vendlabs/vmhistory/internal/middleware"
	"github.com/vendlabs/vmhistory/internal/mirror"
	"github.com/vendlabs/vmhistory/internal/notify"
	"github.com/vendlabs/vmhistory/internal/ratelimit"
	"github.com/vendlabs/vmhistory/internal/server"
	"github.com/vendlabs/vmhistory/internal/service"
	"github.com/vendlabs/vmhistory/internal/store"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("vmhistory"))
	logging.SetDefault(logger)

	slog.Info("Starting vending machine history service",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Logging.Level),
		slog.String("log_format", cfg.Logging.Format),
	)
	if *configPath != "" {
		slog.Info("Loaded configuration", slog.String("config_path", *configPath))
	}

	// Initialize storage
	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data directory %s: %v", cfg.Storage.DataDir, err)
	}
	docStore := store.New(cfg.Storage.JSONPath(), store.WithLogger(logger))
	transcript := mirror.New(cfg.Storage.TextPath())

	// Initialize event fan-out
	var publisher notify.Publisher = notify.NoOpPublisher{}
	if cfg.NATS.Enabled {
		natsPub, err := notify.NewNATSPublisher(notify.NATSConfig{
			URL:           cfg.NATS.URL,
			SubjectPrefix: cfg.NATS.SubjectPrefix,
		})
		if err != nil {
			slog.Warn("Failed to connect to NATS, continuing without event fan-out",
				slog.String("url", cfg.NATS.URL),
				logging.Error(err),
			)
		} else {
			publisher = natsPub
			slog.Info("Event fan-out enabled",
				slog.String("url", cfg.NATS.URL),
				slog.String("subject_prefix", cfg.NATS.SubjectPrefix),
			)
		}
	}
	defer publisher.Close()

	historyService := service.NewHistoryService(docStore, transcript,
		service.WithLogger(logger),
		service.WithPublisher(publisher),
		service.WithCurrencySymbol(cfg.Mirror.CurrencySymbol),
	)

	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := historyService.Initialize(initCtx); err != nil {
		cancel()
		log.Fatalf("Failed to initialize history storage: %v", err)
	}
	cancel()

	slog.Info("History storage ready",
		slog.String("data_dir", cfg.Storage.DataDir),
		slog.String("json_file", cfg.Storage.JSONPath()),
		slog.String("text_file", cfg.Storage.TextPath()),
	)

	// Initialize rate limiter
	var rateLimiter ratelimit.RateLimiter
	if cfg.Redis.Enabled && cfg.Ingestion.RateLimitEnabled {
		limiter, err := ratelimit.NewRedisRateLimiter(
			cfg.Redis.URL,
			cfg.Ingestion.RateLimitRequests,
			cfg.Ingestion.RateLimitWindow,
		)
		if err != nil {
			slog.Warn("Failed to initialize Redis rate limiter, continuing without rate limiting",
				logging.Error(err),
			)
			rateLimiter = &ratelimit.NoOpRateLimiter{}
		} else {
			rateLimiter = limiter
			slog.Info("Rate limiting enabled",
				slog.Int("requests", cfg.Ingestion.RateLimitRequests),
				slog.Duration("window", cfg.Ingestion.RateLimitWindow),
			)
		}
	} else {
		rateLimiter = &ratelimit.NoOpRateLimiter{}
		if cfg.Ingestion.RateLimitEnabled {
			slog.Warn("Rate limiting needs redis.enabled, continuing without it")
		}
	}
	defer rateLimiter.Close()

	// Initialize HTTP handlers
	handler := handlers.NewHistoryHandler(historyService,
		handlers.WithRateLimiter(rateLimiter),
		handlers.WithMaxBodySize(cfg.Ingestion.MaxEventSize),
		handlers.WithHandlerLogger(logger),
	)

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = cfg.CORS.AllowedOrigins
	router := server.NewRouter(handler, server.RouterConfig{
		StaticDir: cfg.Server.StaticDir,
		CORS:      corsConfig,
		Logger:    logger,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	ln, err := server.Listen(addr)
	if err != nil {
		if errors.Is(err, server.ErrPortInUse) {
			fmt.Fprintf(os.Stderr, "Error: Port %d is already in use.\n", cfg.Server.Port)
			fmt.Fprintln(os.Stderr, "Start the server with a different port, for example: PORT=3001 vmhistory")
			os.Exit(1)
		}
		log.Fatalf("Failed to start server: %v", err)
	}

	// Create server with config values
	srv := &http.Server{
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		slog.Info("History service listening",
			slog.String("addr", ln.Addr().String()),
			slog.String("url", fmt.Sprintf("http://localhost:%d", cfg.Server.Port)),
		)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	slog.Info("Server stopped")
}
