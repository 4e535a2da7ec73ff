// Command pricefeed runs the price service.
//
// Modes:
//
//	pricefeed serve    run the HTTP API with the embedded scheduled collector
//	pricefeed collect  run one collection cycle and exit
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zenon-tools/pricefeed/internal/app"
	"github.com/zenon-tools/pricefeed/internal/cache"
	rediscache "github.com/zenon-tools/pricefeed/internal/cache/redis"
	"github.com/zenon-tools/pricefeed/internal/config"
	"github.com/zenon-tools/pricefeed/internal/metrics"
	"github.com/zenon-tools/pricefeed/internal/services/collector"
	"github.com/zenon-tools/pricefeed/internal/storage/postgres"
	"github.com/zenon-tools/pricefeed/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	mode := "serve"
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		logger.NewDefault("pricefeed").WithError(err).Error("invalid configuration")
		os.Exit(1)
	}

	log := logger.New(logger.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: "stdout",
	}).WithField("service", "pricefeed")

	db, err := postgres.Open(cfg.Database)
	if err != nil {
		log.WithError(err).Error("failed to connect to database")
		os.Exit(1)
	}
	defer db.Close()

	store := postgres.New(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = store.EnsureSchema(ctx)
	cancel()
	if err != nil {
		log.WithError(err).Error("failed to ensure database schema")
		os.Exit(1)
	}

	switch mode {
	case "serve":
		serve(cfg, store, log)
	case "collect":
		collectOnce(cfg, store, log)
	default:
		log.Errorf("unknown mode %q (expected serve or collect)", mode)
		os.Exit(2)
	}
}

func serve(cfg *config.Config, store *postgres.Store, log *logger.Logger) {
	var snapshotCache cache.Cache = cache.Noop{}
	if cfg.Redis.Addr != "" {
		snapshotCache = rediscache.New(rediscache.NewClient(cfg.Redis))
	}

	application, err := app.New(app.Options{
		Config:  cfg,
		Store:   store,
		Cache:   snapshotCache,
		Metrics: metrics.New(),
		Log:     log,
	})
	if err != nil {
		log.WithError(err).Error("failed to initialise application")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		log.WithError(err).Error("server failed")
		os.Exit(1)
	}

	if err := application.Shutdown(context.Background()); err != nil {
		log.WithError(err).Warn("shutdown finished with errors")
	}
}

func collectOnce(cfg *config.Config, store *postgres.Store, log *logger.Logger) {
	client := &http.Client{Timeout: cfg.Collector.RequestTimeout}
	fetcher, err := collector.NewCoinGeckoFetcher(client, cfg.Collector.ProviderURL,
		log.WithField("component", "coingecko-fetcher"))
	if err != nil {
		log.WithError(err).Error("failed to configure price fetcher")
		os.Exit(1)
	}

	svc := collector.New(store, fetcher, nil, log.WithField("component", "collector"))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Collector.RequestTimeout+5*time.Second)
	defer cancel()

	if err := svc.Collect(ctx); err != nil {
		log.WithError(err).Error("collection run failed")
		os.Exit(1)
	}
	if err := svc.Prune(ctx, cfg.Collector.Retention); err != nil {
		log.WithError(err).Warn("retention prune failed")
	}
}
