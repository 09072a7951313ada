package monitoring

import (
	"context"
	"testing"
	"time"

	"fleetmon-server/internal/logger"
	"fleetmon-server/internal/telemetry"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestCollector(s Sampler, interval time.Duration) (*Collector, *telemetry.Metrics) {
	tm := telemetry.New()
	return NewCollector("srv-1", s, interval, tm, logger.NewNop()), tm
}

func TestCollector_CurrentNilBeforeFirstTick(t *testing.T) {
	s := &fakeSampler{cpu: 10, delay: time.Hour}
	c, _ := newTestCollector(s, time.Hour)

	if c.Current() != nil {
		t.Fatal("expected nil before start")
	}

	c.Start(context.Background())
	defer c.Stop()

	if c.Current() != nil {
		t.Fatal("expected nil while the first sample is in flight")
	}
}

func TestCollector_StartIsIdempotent(t *testing.T) {
	s := &fakeSampler{cpu: 10}
	c, _ := newTestCollector(s, 5*time.Millisecond)

	if !c.Start(context.Background()) {
		t.Fatal("first Start should launch the loop")
	}
	if c.Start(context.Background()) {
		t.Fatal("second Start should be a no-op")
	}
	if !c.Running() {
		t.Fatal("collector should be running")
	}

	c.Stop()
	if c.Running() {
		t.Fatal("collector should be stopped")
	}

	if !c.Start(context.Background()) {
		t.Fatal("Start after Stop should launch a new loop")
	}
	c.Stop()
}

func TestCollector_CurrentDoesNotBlockOnSampler(t *testing.T) {
	s := &fakeSampler{cpu: 25, blockAt: 2}
	c, _ := newTestCollector(s, 5*time.Millisecond)

	c.Start(context.Background())
	defer c.Stop()

	waitFor(t, time.Second, func() bool { return c.Current() != nil })
	waitFor(t, time.Second, func() bool { return s.calls.Load() >= 2 })

	start := time.Now()
	m := c.Current()
	elapsed := time.Since(start)

	if m == nil || m.CPUUsage != 25 {
		t.Fatalf("Current() = %+v, want cached sample", m)
	}
	if elapsed > 20*time.Millisecond {
		t.Fatalf("Current() took %v while sampler was blocked", elapsed)
	}
}

func TestCollector_FailureKeepsPreviousSample(t *testing.T) {
	s := &fakeSampler{cpu: 33}
	c, tm := newTestCollector(s, 5*time.Millisecond)

	c.Start(context.Background())
	defer c.Stop()

	waitFor(t, time.Second, func() bool { return c.Current() != nil })
	first := c.Current()

	s.set(func(s *fakeSampler) { s.fail = true })
	waitFor(t, time.Second, func() bool { return testutil.ToFloat64(tm.SamplerFailures) >= 3 })

	if got := c.Current(); got != first {
		t.Fatalf("failed ticks replaced the cached sample: %+v", got)
	}
	if !c.Running() {
		t.Fatal("loop should survive sampler failures")
	}

	s.set(func(s *fakeSampler) { s.fail = false; s.cpu = 44 })
	waitFor(t, time.Second, func() bool { return c.Current().CPUUsage == 44 })
}

func TestCollector_StopKeepsLastValue(t *testing.T) {
	s := &fakeSampler{cpu: 12}
	c, _ := newTestCollector(s, 5*time.Millisecond)

	c.Start(context.Background())
	waitFor(t, time.Second, func() bool { return c.Current() != nil })
	c.Stop()

	last := c.Current()
	calls := s.calls.Load()
	time.Sleep(30 * time.Millisecond)

	if c.Current() != last {
		t.Fatal("Current() changed after Stop")
	}
	if s.calls.Load() != calls {
		t.Fatal("sampler called after Stop returned")
	}
}

func TestCollector_StopWithoutStart(t *testing.T) {
	c, _ := newTestCollector(&fakeSampler{}, time.Second)
	c.Stop()
}

func TestCollector_NilTelemetry(t *testing.T) {
	s := &fakeSampler{fail: true}
	c := NewCollector("srv-1", s, 5*time.Millisecond, nil, logger.NewNop())

	c.Start(context.Background())
	waitFor(t, time.Second, func() bool { return s.calls.Load() >= 3 })
	c.Stop()

	if c.Current() != nil {
		t.Fatal("failed samples produced a value")
	}
}
