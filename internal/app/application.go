// Package app wires the service components together and manages their
// lifecycle.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/zenon-tools/pricefeed/internal/cache"
	"github.com/zenon-tools/pricefeed/internal/config"
	"github.com/zenon-tools/pricefeed/internal/httpapi"
	"github.com/zenon-tools/pricefeed/internal/metrics"
	"github.com/zenon-tools/pricefeed/internal/middleware"
	"github.com/zenon-tools/pricefeed/internal/services/collector"
	"github.com/zenon-tools/pricefeed/internal/services/prices"
	"github.com/zenon-tools/pricefeed/internal/storage"
	"github.com/zenon-tools/pricefeed/internal/storage/memory"
	"github.com/zenon-tools/pricefeed/internal/system"
	"github.com/zenon-tools/pricefeed/pkg/logger"
)

// Options carries the injected resource handles. Nil Store falls back to the
// in-memory implementation, nil Cache to the no-op cache; a nil Fetcher is
// built from the provider configuration.
type Options struct {
	Config  *config.Config
	Store   storage.PriceStore
	Cache   cache.Cache
	Fetcher collector.Fetcher
	Metrics *metrics.Metrics
	Log     *logger.Logger
}

// Application ties the collector and query services together.
type Application struct {
	cfg         *config.Config
	log         *logger.Logger
	manager     *system.Manager
	httpServer  *http.Server
	limiterStop func()

	Collector *collector.Service
	Prices    *prices.Service
}

// New builds a fully initialised application.
func New(opts Options) (*Application, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	log := opts.Log
	if log == nil {
		log = logger.NewDefault("app")
	}

	store := opts.Store
	if store == nil {
		store = memory.New()
	}
	snapshotCache := opts.Cache
	if snapshotCache == nil {
		snapshotCache = cache.Noop{}
	}

	fetcher := opts.Fetcher
	if fetcher == nil {
		client := &http.Client{Timeout: cfg.Collector.RequestTimeout}
		var err error
		fetcher, err = collector.NewCoinGeckoFetcher(client, cfg.Collector.ProviderURL,
			log.WithField("component", "coingecko-fetcher"))
		if err != nil {
			return nil, fmt.Errorf("configure price fetcher: %w", err)
		}
	}

	collectorSvc := collector.New(store, fetcher, opts.Metrics,
		log.WithField("component", "collector"))
	pricesSvc := prices.New(store, snapshotCache, cfg.Query.CacheTTL, opts.Metrics,
		log.WithField("component", "prices"))

	manager := system.NewManager()
	runner := collector.NewRunner(collectorSvc, cfg.Collector.Schedule,
		cfg.Collector.RequestTimeout+5*time.Second, cfg.Collector.Retention,
		log.WithField("component", "collector-runner"))
	if err := manager.Register(runner); err != nil {
		return nil, fmt.Errorf("register collector runner: %w", err)
	}

	var dbPinger storage.Pinger
	if p, ok := store.(storage.Pinger); ok {
		dbPinger = p
	}

	handler := httpapi.NewHandler(pricesSvc, dbPinger, snapshotCache, opts.Metrics,
		log.WithField("component", "httpapi"))

	limiter := middleware.NewRateLimiter(cfg.Query.RateLimitRPS, cfg.Query.RateLimitBurst,
		log.WithField("component", "ratelimit"))
	limiterStop := limiter.StartCleanup(time.Minute)

	chained := middleware.RequestID(
		middleware.Logging(log.WithField("component", "http"), opts.Metrics)(
			limiter.Handler(handler)))

	return &Application{
		cfg: cfg,
		log: log,
		httpServer: &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           chained,
			ReadHeaderTimeout: 5 * time.Second,
		},
		manager:     manager,
		limiterStop: limiterStop,
		Collector:   collectorSvc,
		Prices:      pricesSvc,
	}, nil
}

// Handler exposes the full middleware-wrapped handler. Used by tests.
func (a *Application) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run starts the background services and the HTTP server, blocking until the
// context is cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.manager.Start(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("HTTP server listening on %s", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown stops the HTTP server and background services.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var firstErr error
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		firstErr = err
	}
	if err := a.manager.Stop(shutdownCtx); err != nil && firstErr == nil {
		firstErr = err
	}
	if a.limiterStop != nil {
		a.limiterStop()
	}
	return firstErr
}
