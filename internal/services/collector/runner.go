package collector

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/zenon-tools/pricefeed/internal/system"
	"github.com/zenon-tools/pricefeed/pkg/logger"
)

var _ system.Service = (*Runner)(nil)

// Runner drives the collector on a cron schedule. The schedule entry is a
// stateless task invocation: runs do not coordinate with each other, and a
// run that overlaps a slow predecessor is skipped rather than queued.
type Runner struct {
	service    *Service
	log        *logger.Logger
	schedule   string
	runTimeout time.Duration
	retention  time.Duration

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	busy    bool
	running bool
}

// NewRunner creates a lifecycle-managed scheduled collector.
func NewRunner(service *Service, schedule string, runTimeout, retention time.Duration, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.NewDefault("collector-runner")
	}
	if runTimeout <= 0 {
		runTimeout = 15 * time.Second
	}
	return &Runner{
		service:    service,
		log:        log,
		schedule:   schedule,
		runTimeout: runTimeout,
		retention:  retention,
	}
}

func (r *Runner) Name() string { return "collector-runner" }

func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)

	c := cron.New()
	if _, err := c.AddFunc(r.schedule, func() { r.run(runCtx) }); err != nil {
		cancel()
		return err
	}
	c.Start()

	r.cron = c
	r.cancel = cancel
	r.running = true
	r.log.WithField("schedule", r.schedule).Info("collector runner started")
	return nil
}

func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	c := r.cron
	cancel := r.cancel
	r.cron = nil
	r.cancel = nil
	r.running = false
	r.mu.Unlock()

	cancel()

	// cron.Stop returns a context that completes once in-flight jobs drain.
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	r.log.Info("collector runner stopped")
	return nil
}

func (r *Runner) run(ctx context.Context) {
	r.mu.Lock()
	if r.busy {
		r.mu.Unlock()
		r.log.Warn("previous collection still in flight; skipping run")
		return
	}
	r.busy = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.busy = false
		r.mu.Unlock()
	}()

	runCtx, cancel := context.WithTimeout(ctx, r.runTimeout)
	defer cancel()

	if err := r.service.Collect(runCtx); err != nil {
		r.log.WithError(err).Warn("collection run failed")
		return
	}

	if r.retention > 0 {
		if err := r.service.Prune(runCtx, r.retention); err != nil {
			r.log.WithError(err).Warn("retention prune failed")
		}
	}
}
