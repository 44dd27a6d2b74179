// Package maintenance runs the daemon's background ticks: expired-entry
// eviction, metrics publication, and the self health-check, each on its
// own ticker alongside the IPC accept loop.
package maintenance

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"socketpoold/internal/dispatcher"
	"socketpoold/internal/pool"
	"socketpoold/internal/stats"
)

const (
	cleanupInterval = 30 * time.Second
	metricsInterval = 60 * time.Second
)

// Publisher optionally mirrors a stats.Sample to an external sink
// (Redis, MySQL); registered by bootstrap only when those subsystems are
// enabled, to avoid maintenance depending on internal/cache or
// internal/history directly.
type Publisher func(stats.Sample)

// Runner owns the three background tickers. Grounded on
// pkg/monitor.Monitor.Run's ticker + ctx.Done() select loop, split into
// three independently-scheduled tasks instead of one.
type Runner struct {
	Registry  *pool.Registry
	Stats     *stats.Table
	Dispatch  *dispatcher.Dispatcher
	TTL       time.Duration
	HealthInt time.Duration

	Publish Publisher
}

// New builds a Runner; healthInterval falls back to 60s if non-positive.
func New(registry *pool.Registry, statsTable *stats.Table, disp *dispatcher.Dispatcher, ttl, healthInterval time.Duration) *Runner {
	if healthInterval <= 0 {
		healthInterval = 60 * time.Second
	}
	return &Runner{Registry: registry, Stats: statsTable, Dispatch: disp, TTL: ttl, HealthInt: healthInterval}
}

// Run starts the three ticker loops and blocks until ctx is cancelled and
// all of them have exited.
func (r *Runner) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); r.runCleanup(ctx) }()
	go func() { defer wg.Done(); r.runMetrics(ctx) }()
	go func() { defer wg.Done(); r.runHealthCheck(ctx) }()
	wg.Wait()
}

func (r *Runner) runCleanup(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if r.TTL <= 0 {
				continue
			}
			evicted := r.Registry.EvictExpired(time.Now(), r.TTL)
			if evicted > 0 {
				zap.L().Debug("maintenance: expired connections evicted", zap.Int("count", evicted))
			}
		}
	}
}

func (r *Runner) runMetrics(ctx context.Context) {
	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sampleMetrics()
		}
	}
}

func (r *Runner) sampleMetrics() {
	snap := r.Registry.Snapshot()
	sample := stats.Sample{
		Instance:    r.Dispatch.InstanceID,
		PoolSize:    snap.Size,
		PoolMaxSize: snap.MaxSize,
		UptimeS:     time.Since(r.Dispatch.StartedAt).Seconds(),
		Endpoints:   r.Stats.Snapshot(),
	}
	stats.CollectMetrics(sample)
	if r.Publish != nil {
		r.Publish(sample)
	}
}

func (r *Runner) runHealthCheck(ctx context.Context) {
	ticker := time.NewTicker(r.HealthInt)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := r.Registry.Snapshot()
			zap.L().Debug("maintenance: self health-check",
				zap.Int("pool_size", snap.Size), zap.Int("max_pool_size", snap.MaxSize))
		}
	}
}
