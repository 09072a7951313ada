package monitoring

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"fleetmon-server/internal/config"
	"fleetmon-server/internal/domain"
	"fleetmon-server/internal/logger"
	"fleetmon-server/internal/telemetry"
)

var ErrRegistryClosed = errors.New("monitoring registry is closed")

const storeTimeout = 10 * time.Second

type Repositories struct {
	Servers domain.ServerRepository
	Metrics domain.MetricsRepository
	Alerts  domain.AlertRepository
}

// monitor is everything running for one server.
type monitor struct {
	collector *Collector
	cancel    context.CancelFunc
	done      chan struct{}
}

// halt cancels both loops and returns their exit channels.
func (m *monitor) halt() []<-chan struct{} {
	m.cancel()
	return []<-chan struct{}{m.collector.halt(), m.done}
}

// Registry owns the server ID to collector map. Loops run on the registry's
// own context, so they outlive the request that started them.
type Registry struct {
	cfg        config.MonitoringConfig
	repos      Repositories
	newSampler SamplerFactory
	tm         *telemetry.Metrics
	log        logger.Logger

	baseCtx context.Context
	stopAll context.CancelFunc
	tasks   atomic.Int64

	// lifecycle orders start, stop and close with their status writes, so the
	// stored online flag always follows the map.
	lifecycle sync.Mutex

	mu       sync.Mutex
	monitors map[string]*monitor
	closed   bool
}

func NewRegistry(cfg config.MonitoringConfig, repos Repositories, newSampler SamplerFactory, tm *telemetry.Metrics, log logger.Logger) *Registry {
	ctx, cancel := context.WithCancel(context.Background())

	return &Registry{
		cfg:        cfg,
		repos:      repos,
		newSampler: newSampler,
		tm:         tm,
		log:        log,

		baseCtx: ctx,
		stopAll: cancel,

		monitors: make(map[string]*monitor),
	}
}

// GetMetrics is a pure read. ok is false when the server is not monitored.
func (r *Registry) GetMetrics(serverID string) (*domain.ServerMetrics, bool) {
	r.mu.Lock()
	m, ok := r.monitors[serverID]
	r.mu.Unlock()

	if !ok {
		return nil, false
	}

	return m.collector.Current(), true
}

// GetOrStartMetrics returns the cached sample and starts monitoring when the
// server has no collector yet. The call that starts the collector always gets
// nil; the sample shows up on a later call.
func (r *Registry) GetOrStartMetrics(ctx context.Context, serverID string) *domain.ServerMetrics {
	if m, ok := r.GetMetrics(serverID); ok {
		return m
	}

	if err := r.start(ctx, serverID, false); err != nil {
		if errors.Is(err, domain.ErrServerNotFound) {
			r.log.Debug("lazy start skipped, unknown server", "server_id", serverID)
		} else {
			r.log.Warn("failed to start monitoring", "server_id", serverID, "error", err)
		}
	}

	return nil
}

// StartMonitoring starts a collector and a persistence loop for the server,
// replacing any that already run for it.
func (r *Registry) StartMonitoring(ctx context.Context, serverID string) error {
	return r.start(ctx, serverID, true)
}

func (r *Registry) start(ctx context.Context, serverID string, replace bool) error {
	if _, err := r.repos.Servers.GetByID(ctx, serverID); err != nil {
		return err
	}

	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	r.mu.Lock()
	closed := r.closed
	_, exists := r.monitors[serverID]
	r.mu.Unlock()

	if closed {
		return ErrRegistryClosed
	}
	if exists && !replace {
		return nil
	}

	if err := r.repos.Servers.UpdateStatus(ctx, serverID, true); err != nil {
		return fmt.Errorf("failed to mark server online: %w", err)
	}

	r.mu.Lock()
	old, exists := r.monitors[serverID]

	var waits []<-chan struct{}
	if exists {
		waits = old.halt()
	}

	m := r.spawn(serverID)
	r.monitors[serverID] = m
	r.mu.Unlock()

	for _, done := range waits {
		<-done
	}

	if exists {
		r.log.Info("monitoring restarted", "server_id", serverID)
	} else {
		r.log.Info("monitoring started", "server_id", serverID)
	}

	return nil
}

// spawn must be called with r.mu held.
func (r *Registry) spawn(serverID string) *monitor {
	c := NewCollector(serverID, r.newSampler(serverID), r.cfg.SampleInterval, r.tm, r.log)
	c.tasks = &r.tasks
	c.Start(r.baseCtx)

	ctx, cancel := context.WithCancel(r.baseCtx)
	done := make(chan struct{})

	r.tasks.Add(1)
	go r.persistLoop(ctx, serverID, c, done)

	return &monitor{collector: c, cancel: cancel, done: done}
}

// StopMonitoring stops and forgets the server's loops and marks it offline.
// Stopping a server that is not monitored does nothing.
func (r *Registry) StopMonitoring(ctx context.Context, serverID string) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	r.mu.Lock()
	m, ok := r.monitors[serverID]
	if !ok {
		r.mu.Unlock()
		return nil
	}

	delete(r.monitors, serverID)
	waits := m.halt()
	r.mu.Unlock()

	for _, done := range waits {
		<-done
	}

	r.log.Info("monitoring stopped", "server_id", serverID)

	err := r.repos.Servers.UpdateStatus(ctx, serverID, false)
	if err != nil && !errors.Is(err, domain.ErrServerNotFound) {
		return fmt.Errorf("failed to mark server offline: %w", err)
	}

	return nil
}

// Processes returns the top processes of the latest sample, starting
// monitoring like GetOrStartMetrics does.
func (r *Registry) Processes(ctx context.Context, serverID string) []domain.ProcessMetrics {
	m := r.GetOrStartMetrics(ctx, serverID)
	if m == nil {
		return []domain.ProcessMetrics{}
	}

	procs := make([]domain.ProcessMetrics, len(m.Processes))
	copy(procs, m.Processes)

	return procs
}

// History returns persisted snapshots in [from, to), oldest first.
func (r *Registry) History(ctx context.Context, serverID string, from, to time.Time) ([]domain.MetricsSnapshot, error) {
	if !to.After(from) {
		return []domain.MetricsSnapshot{}, nil
	}

	snapshots, err := r.repos.Metrics.ListByRange(ctx, serverID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	if snapshots == nil {
		snapshots = []domain.MetricsSnapshot{}
	}

	return snapshots, nil
}

func (r *Registry) Monitored() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.monitors))
	for id := range r.monitors {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	slices.Sort(ids)
	return ids
}

// ActiveTasks counts live background loops, sampling and persistence alike.
func (r *Registry) ActiveTasks() int {
	return int(r.tasks.Load())
}

// Resume restarts monitoring for every server stored as online.
func (r *Registry) Resume(ctx context.Context) error {
	servers, err := r.repos.Servers.ListOnline(ctx)
	if err != nil {
		return fmt.Errorf("failed to list online servers: %w", err)
	}

	for _, s := range servers {
		if err := r.start(ctx, s.ID, false); err != nil {
			r.log.Warn("failed to resume monitoring", "server_id", s.ID, "error", err)
		}
	}

	r.log.Info("monitoring resumed", "count", len(servers))
	return nil
}

// Close stops every loop and marks the servers offline. The registry refuses
// new work afterwards.
func (r *Registry) Close(ctx context.Context) error {
	r.lifecycle.Lock()
	defer r.lifecycle.Unlock()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true

	monitors := r.monitors
	r.monitors = make(map[string]*monitor)

	var waits []<-chan struct{}
	for _, m := range monitors {
		waits = append(waits, m.halt()...)
	}
	r.stopAll()
	r.mu.Unlock()

	for _, done := range waits {
		<-done
	}

	var errs []error
	for id := range monitors {
		if err := r.repos.Servers.UpdateStatus(ctx, id, false); err != nil && !errors.Is(err, domain.ErrServerNotFound) {
			errs = append(errs, fmt.Errorf("server %s: %w", id, err))
		}
	}

	r.log.Info("monitoring registry closed", "stopped", len(monitors))
	return errors.Join(errs...)
}
