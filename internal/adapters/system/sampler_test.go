package system

import (
	"context"
	"runtime"
	"testing"
	"time"

	"fleetmon-server/internal/domain"
	"fleetmon-server/internal/logger"

	"github.com/shirou/gopsutil/v4/cpu"
)

func TestRate(t *testing.T) {
	tests := []struct {
		name      string
		prev, cur uint64
		elapsed   float64
		want      uint64
	}{
		{"steady", 1000, 3000, 2, 1000},
		{"counter reset", 5000, 100, 1, 0},
		{"zero window", 0, 100, 0, 0},
		{"idle", 42, 42, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rate(tt.prev, tt.cur, tt.elapsed); got != tt.want {
				t.Errorf("rate(%d, %d, %v) = %d, want %d", tt.prev, tt.cur, tt.elapsed, got, tt.want)
			}
		})
	}
}

func TestBusyPercent(t *testing.T) {
	prev := cpu.TimesStat{User: 10, System: 10, Idle: 80}
	cur := cpu.TimesStat{User: 30, System: 20, Idle: 150}

	// busy grew by 30 out of 100
	if got := busyPercent(prev, cur); got < 29.99 || got > 30.01 {
		t.Fatalf("busyPercent = %v, want 30", got)
	}

	if got := busyPercent(cur, prev); got != 0 {
		t.Fatalf("busyPercent on going-backwards counters = %v, want 0", got)
	}
}

func TestSelectTop(t *testing.T) {
	procs := []domain.ProcessMetrics{
		{PID: 1, CPUUsage: 5, MemoryUsage: 10},
		{PID: 2, CPUUsage: 150, MemoryUsage: 10},
		{PID: 3, CPUUsage: 5, MemoryUsage: 90},
		{PID: 4, CPUUsage: 0.1},
	}

	got := selectTop(procs, 3)
	want := []int32{2, 3, 1}

	if len(got) != len(want) {
		t.Fatalf("got %d processes, want %d", len(got), len(want))
	}
	for i, pid := range want {
		if got[i].PID != pid {
			t.Errorf("position %d: pid %d, want %d", i, got[i].PID, pid)
		}
	}
}

func TestSampler_SampleLocalHost(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("host sampling checked on linux only")
	}

	s := NewSampler(5, logger.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	first, err := s.Sample(ctx)
	if err != nil {
		t.Fatalf("first sample: %v", err)
	}
	if first.NetworkRxBytes != 0 || first.NetworkTxBytes != 0 {
		t.Errorf("first sample should report zero network rate, got %d/%d", first.NetworkRxBytes, first.NetworkTxBytes)
	}

	time.Sleep(50 * time.Millisecond)

	second, err := s.Sample(ctx)
	if err != nil {
		t.Fatalf("second sample: %v", err)
	}

	for _, m := range []*domain.ServerMetrics{first, second} {
		for name, v := range map[string]float64{"cpu": m.CPUUsage, "memory": m.MemoryUsage, "disk": m.DiskUsage} {
			if v < 0 || v > 100 {
				t.Errorf("%s = %v, want within [0, 100]", name, v)
			}
		}
		if len(m.Processes) > 5 {
			t.Errorf("got %d processes, want at most 5", len(m.Processes))
		}
	}

	if !second.Timestamp.After(first.Timestamp) {
		t.Error("timestamps should increase")
	}
}
