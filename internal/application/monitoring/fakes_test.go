package monitoring

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fleetmon-server/internal/config"
	"fleetmon-server/internal/domain"
	"fleetmon-server/internal/logger"
	"fleetmon-server/internal/telemetry"
)

type fakeSampler struct {
	calls atomic.Int64

	mu      sync.Mutex
	cpu     float64
	fail    bool
	delay   time.Duration
	blockAt int64
}

func (s *fakeSampler) Sample(ctx context.Context) (*domain.ServerMetrics, error) {
	n := s.calls.Add(1)

	s.mu.Lock()
	cpu, fail, delay, blockAt := s.cpu, s.fail, s.delay, s.blockAt
	s.mu.Unlock()

	if blockAt > 0 && n >= blockAt {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if fail {
		return nil, errors.New("sampler unavailable")
	}

	return &domain.ServerMetrics{
		CPUUsage:       cpu,
		MemoryUsage:    40,
		DiskUsage:      30,
		NetworkRxBytes: 1024,
		NetworkTxBytes: 512,
		Timestamp:      time.Now().UTC(),
		Processes: []domain.ProcessMetrics{
			{PID: 101, Name: "nginx", CPUUsage: 1.2, MemoryUsage: 10 << 20},
		},
	}, nil
}

func (s *fakeSampler) set(fn func(s *fakeSampler)) {
	s.mu.Lock()
	fn(s)
	s.mu.Unlock()
}

type samplerPool struct {
	mu       sync.Mutex
	samplers map[string][]*fakeSampler
	cpu      float64
}

func newSamplerPool() *samplerPool {
	return &samplerPool{samplers: make(map[string][]*fakeSampler)}
}

func (p *samplerPool) factory(serverID string) Sampler {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := &fakeSampler{cpu: p.cpu}
	p.samplers[serverID] = append(p.samplers[serverID], s)
	return s
}

func (p *samplerPool) get(serverID string) []*fakeSampler {
	p.mu.Lock()
	defer p.mu.Unlock()

	return slices.Clone(p.samplers[serverID])
}

type fakeServerRepo struct {
	mu      sync.Mutex
	servers map[string]*domain.Server
	updates []statusUpdate

	// when set, online writes report on entered and wait for gate
	gate    chan struct{}
	entered chan struct{}
}

type statusUpdate struct {
	id     string
	online bool
}

func newFakeServerRepo(ids ...string) *fakeServerRepo {
	r := &fakeServerRepo{servers: make(map[string]*domain.Server)}
	for _, id := range ids {
		r.servers[id] = &domain.Server{ID: id, Name: id, Hostname: id + ".local"}
	}
	return r
}

func (r *fakeServerRepo) List(ctx context.Context) ([]*domain.Server, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []*domain.Server{}
	for _, s := range r.servers {
		out = append(out, s)
	}
	return out, nil
}

func (r *fakeServerRepo) ListByOwner(ctx context.Context, userID string) ([]*domain.Server, error) {
	return r.List(ctx)
}

func (r *fakeServerRepo) ListOnline(ctx context.Context) ([]*domain.Server, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []*domain.Server{}
	for _, s := range r.servers {
		if s.IsOnline {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeServerRepo) GetByID(ctx context.Context, serverID string) (*domain.Server, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.servers[serverID]
	if !ok {
		return nil, domain.ErrServerNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeServerRepo) GetByHostname(ctx context.Context, hostname string) (*domain.Server, error) {
	return nil, domain.ErrServerNotFound
}

func (r *fakeServerRepo) Create(ctx context.Context, s *domain.Server) (*domain.Server, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.servers[s.ID] = s
	return s, nil
}

func (r *fakeServerRepo) Update(ctx context.Context, s *domain.Server, serverID string) error {
	return nil
}

func (r *fakeServerRepo) UpdateStatus(ctx context.Context, serverID string, isOnline bool) error {
	r.mu.Lock()
	gate, entered := r.gate, r.entered
	r.mu.Unlock()

	if isOnline && gate != nil {
		entered <- struct{}{}
		<-gate
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.servers[serverID]
	if !ok {
		return domain.ErrServerNotFound
	}
	s.IsOnline = isOnline
	r.updates = append(r.updates, statusUpdate{id: serverID, online: isOnline})
	return nil
}

func (r *fakeServerRepo) Delete(ctx context.Context, serverID string) error {
	return nil
}

// holdOnlineWrites blocks the next online write until release is called.
func (r *fakeServerRepo) holdOnlineWrites() (entered <-chan struct{}, release func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	gate := make(chan struct{})
	r.gate = gate
	r.entered = make(chan struct{}, 1)

	return r.entered, func() {
		r.mu.Lock()
		r.gate, r.entered = nil, nil
		r.mu.Unlock()
		close(gate)
	}
}

func (r *fakeServerRepo) online(serverID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.servers[serverID]
	return ok && s.IsOnline
}

func (r *fakeServerRepo) updateCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.updates)
}

type fakeMetricsRepo struct {
	mu    sync.Mutex
	saved []domain.MetricsSnapshot
	err   error
	calls int
}

func (r *fakeMetricsRepo) Save(ctx context.Context, snapshot *domain.MetricsSnapshot) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls++
	if r.err != nil {
		return 0, r.err
	}

	snapshot.ID = int64(len(r.saved) + 1)
	r.saved = append(r.saved, *snapshot)
	return snapshot.ID, nil
}

func (r *fakeMetricsRepo) ListByRange(ctx context.Context, serverID string, from, to time.Time) ([]domain.MetricsSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.MetricsSnapshot
	for _, s := range r.saved {
		if s.ServerID == serverID && !s.Timestamp.Before(from) && s.Timestamp.Before(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeMetricsRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (r *fakeMetricsRepo) count(serverID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, s := range r.saved {
		if s.ServerID == serverID {
			n++
		}
	}
	return n
}

func (r *fakeMetricsRepo) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.calls
}

type fakeAlertRepo struct {
	mu      sync.Mutex
	created []*domain.Alert
	err     error
	calls   int
}

func (r *fakeAlertRepo) Create(ctx context.Context, alert *domain.Alert) (*domain.Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls++
	if r.err != nil {
		return nil, r.err
	}

	alert.ID = int64(len(r.created) + 1)
	r.created = append(r.created, alert)
	return alert, nil
}

func (r *fakeAlertRepo) ListUnacknowledged(ctx context.Context) ([]*domain.Alert, error) {
	return nil, nil
}

func (r *fakeAlertRepo) Acknowledge(ctx context.Context, alertID int64, userID string) error {
	return nil
}

func (r *fakeAlertRepo) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.calls
}

type registryFixture struct {
	reg     *Registry
	servers *fakeServerRepo
	metrics *fakeMetricsRepo
	alerts  *fakeAlertRepo
	pool    *samplerPool
	tm      *telemetry.Metrics
}

func newRegistryFixture(t *testing.T, ids ...string) *registryFixture {
	t.Helper()

	f := &registryFixture{
		servers: newFakeServerRepo(ids...),
		metrics: &fakeMetricsRepo{},
		alerts:  &fakeAlertRepo{},
		pool:    newSamplerPool(),
		tm:      telemetry.New(),
	}

	cfg := config.MonitoringConfig{
		SampleInterval:  5 * time.Millisecond,
		PersistInterval: 10 * time.Millisecond,
		TopProcesses:    10,
		Thresholds:      config.DefaultThresholds(),
	}

	f.reg = NewRegistry(cfg, Repositories{
		Servers: f.servers,
		Metrics: f.metrics,
		Alerts:  f.alerts,
	}, f.pool.factory, f.tm, logger.NewNop())

	t.Cleanup(func() {
		f.reg.Close(context.Background())
	})

	return f
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}
