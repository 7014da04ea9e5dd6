package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/otabekov/orderdesk-backend/api/controllers"
	"github.com/otabekov/orderdesk-backend/api/routes"
	"github.com/otabekov/orderdesk-backend/internal/draft"
	"github.com/otabekov/orderdesk-backend/internal/refdata"
	"github.com/otabekov/orderdesk-backend/internal/submit"
	"github.com/otabekov/orderdesk-backend/internal/upstream"
	"github.com/otabekov/orderdesk-backend/pkg/config"
	"github.com/otabekov/orderdesk-backend/pkg/logger"
	"github.com/otabekov/orderdesk-backend/pkg/metrics"
	"github.com/otabekov/orderdesk-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	upstreamMetrics := metrics.NewUpstreamMetrics(prometheus.DefaultRegisterer)

	upstreamClient, err := upstream.NewClient(cfg.Upstream.BaseURL,
		upstream.WithToken(cfg.Upstream.Token),
		upstream.WithMetrics(upstreamMetrics),
		upstream.WithHTTPClient(&http.Client{Timeout: cfg.Upstream.Timeout}),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to build upstream client", err)
		os.Exit(1)
	}

	// Redis is optional; without it the reference cache stays in process
	// memory.
	var store refdata.Store
	var redisClient *redis.Client
	if cfg.Redis.Configured() {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		store = refdata.NewRedisStore(redisClient)
	}

	refdataService, err := refdata.NewService(upstreamClient, refdata.NewCache(store), cfg.Cache)
	if err != nil {
		logg.Error(context.Background(), "failed to build refdata service", err)
		os.Exit(1)
	}

	manager := draft.NewManager()

	submitController, err := submit.NewController(manager, upstreamClient, upstreamMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to build submit controller", err)
		os.Exit(1)
	}

	pingers := map[string]controllers.Pinger{"upstream": upstreamClient}
	if redisClient != nil {
		pingers["redis"] = redisClient
	}

	router := routes.NewRouter(routes.Deps{
		Config:    cfg,
		Logger:    logg,
		Manager:   manager,
		Refdata:   refdataService,
		Submitter: submitController,
		Pingers:   pingers,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting order desk api")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	errs := make(chan error, 1)
	go func() {
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-shutdown:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
