package monitoring

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"fleetmon-server/internal/domain"
	"fleetmon-server/internal/logger"
	"fleetmon-server/internal/telemetry"
)

// Collector runs one sampling loop and caches the latest sample.
type Collector struct {
	serverID string
	sampler  Sampler
	interval time.Duration
	log      logger.Logger
	tm       *telemetry.Metrics
	tasks    *atomic.Int64

	mu      sync.RWMutex
	current *domain.ServerMetrics

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCollector builds a stopped collector. tm may be nil.
func NewCollector(serverID string, sampler Sampler, interval time.Duration, tm *telemetry.Metrics, log logger.Logger) *Collector {
	if interval <= 0 {
		interval = time.Second
	}

	return &Collector{
		serverID: serverID,
		sampler:  sampler,
		interval: interval,
		log:      log.With("server_id", serverID),
		tm:       tm,
	}
}

// Start launches the sampling loop. It returns false, and does nothing, when
// the loop is already running.
func (c *Collector) Start(ctx context.Context) bool {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	if c.cancel != nil {
		return false
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done

	if c.tasks != nil {
		c.tasks.Add(1)
	}
	go c.run(loopCtx, done)

	return true
}

// Current returns the cached sample, or nil before the first successful tick.
func (c *Collector) Current() *domain.ServerMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.current
}

// Stop cancels the loop and waits for it to exit. The cached sample is kept.
func (c *Collector) Stop() {
	<-c.halt()
}

func (c *Collector) Running() bool {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	return c.cancel != nil
}

// halt cancels the loop without waiting and returns a channel closed on exit.
func (c *Collector) halt() <-chan struct{} {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	if c.cancel == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}

	c.cancel()
	done := c.done
	c.cancel = nil
	c.done = nil

	return done
}

func (c *Collector) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	if c.tasks != nil {
		defer c.tasks.Add(-1)
	}

	c.log.Debug("collector started", "interval", c.interval)
	defer c.log.Debug("collector stopped")

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

func (c *Collector) tick(ctx context.Context) {
	m, err := c.sampler.Sample(ctx)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		if c.tm != nil {
			c.tm.SamplerFailures.Inc()
		}
		c.log.Warn("failed to sample metrics", "error", err)
		return
	}
	if m == nil {
		return
	}

	c.mu.Lock()
	c.current = m
	c.mu.Unlock()
}
