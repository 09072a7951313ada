// Package system
package system

import (
	"context"
	"fmt"
	"slices"
	"time"

	"fleetmon-server/internal/domain"
	"fleetmon-server/internal/logger"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
)

const firstCPUWindow = 200 * time.Millisecond

// Sampler reads the local host through gopsutil. It keeps counters between
// calls, so one instance must serve one collector.
//
// Process CPU follows gopsutil's per-core convention: 100 is one full core.
type Sampler struct {
	topN int
	log  logger.Logger

	lastCPU  *cpu.TimesStat
	lastRx   uint64
	lastTx   uint64
	lastTime time.Time

	procs map[int32]*process.Process
}

func NewSampler(topN int, log logger.Logger) *Sampler {
	if topN <= 0 {
		topN = 10
	}

	return &Sampler{
		topN:  topN,
		log:   log,
		procs: make(map[int32]*process.Process),
	}
}

func (s *Sampler) Sample(ctx context.Context) (*domain.ServerMetrics, error) {
	cpuUsage, err := s.cpuUsage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read cpu: %w", err)
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read memory: %w", err)
	}

	m := &domain.ServerMetrics{
		CPUUsage:    cpuUsage,
		MemoryUsage: vm.UsedPercent,
		Processes:   []domain.ProcessMetrics{},
	}

	if val, err := diskUsage(ctx); err != nil {
		s.log.Warn("sampler: failed to read disk usage", "error", err)
	} else {
		m.DiskUsage = val
	}

	now := time.Now()

	if rx, tx, err := s.networkRates(ctx, now); err != nil {
		s.log.Warn("sampler: failed to read network counters", "error", err)
	} else {
		m.NetworkRxBytes = rx
		m.NetworkTxBytes = tx
	}

	if procs, err := s.topProcesses(ctx); err != nil {
		s.log.Warn("sampler: failed to read processes", "error", err)
	} else {
		m.Processes = procs
	}

	m.Timestamp = now.UTC()
	return m, nil
}

func (s *Sampler) cpuUsage(ctx context.Context) (float64, error) {
	if s.lastCPU == nil {
		pct, err := cpu.PercentWithContext(ctx, firstCPUWindow, false)
		if err != nil {
			return 0, err
		}
		if len(pct) == 0 {
			return 0, fmt.Errorf("no cpu percent")
		}

		if times, err := cpu.TimesWithContext(ctx, false); err == nil && len(times) > 0 {
			s.lastCPU = &times[0]
		}
		return clampPercent(pct[0]), nil
	}

	times, err := cpu.TimesWithContext(ctx, false)
	if err != nil {
		return 0, err
	}
	if len(times) == 0 {
		return 0, fmt.Errorf("no cpu times")
	}

	cur := times[0]
	pct := busyPercent(*s.lastCPU, cur)
	s.lastCPU = &cur

	return pct, nil
}

// busyPercent is the share of non-idle time between two cumulative readings.
func busyPercent(prev, cur cpu.TimesStat) float64 {
	prevBusy, prevTotal := busyTotal(prev)
	curBusy, curTotal := busyTotal(cur)

	if curTotal <= prevTotal {
		return 0
	}
	if curBusy <= prevBusy {
		return 0
	}

	return clampPercent((curBusy - prevBusy) / (curTotal - prevTotal) * 100)
}

func busyTotal(t cpu.TimesStat) (busy, total float64) {
	total = t.User + t.System + t.Idle + t.Nice + t.Iowait + t.Irq + t.Softirq + t.Steal
	busy = total - t.Idle - t.Iowait
	return busy, total
}

// diskUsage aggregates used over total across physical partitions.
func diskUsage(ctx context.Context) (float64, error) {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return 0, err
	}

	var used, total uint64
	seen := make(map[string]bool)

	for _, p := range parts {
		if seen[p.Device] {
			continue
		}
		seen[p.Device] = true

		u, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil || u.Total == 0 {
			continue
		}
		used += u.Used
		total += u.Total
	}

	if total == 0 {
		u, err := disk.UsageWithContext(ctx, "/")
		if err != nil {
			return 0, err
		}
		return clampPercent(u.UsedPercent), nil
	}

	return clampPercent(float64(used) / float64(total) * 100), nil
}

// networkRates returns bytes per second since the previous call; the first
// call only records the counters.
func (s *Sampler) networkRates(ctx context.Context, now time.Time) (rx, tx uint64, err error) {
	counters, err := net.IOCountersWithContext(ctx, false)
	if err != nil {
		return 0, 0, err
	}
	if len(counters) == 0 {
		return 0, 0, fmt.Errorf("no network counters")
	}

	curRx, curTx := counters[0].BytesRecv, counters[0].BytesSent

	if !s.lastTime.IsZero() {
		elapsed := now.Sub(s.lastTime).Seconds()
		rx = rate(s.lastRx, curRx, elapsed)
		tx = rate(s.lastTx, curTx, elapsed)
	}

	s.lastRx = curRx
	s.lastTx = curTx
	s.lastTime = now

	return rx, tx, nil
}

// rate is zero on counter reset or a non-positive window.
func rate(prev, cur uint64, elapsed float64) uint64 {
	if elapsed <= 0 || cur < prev {
		return 0
	}
	return uint64(float64(cur-prev) / elapsed)
}

func (s *Sampler) topProcesses(ctx context.Context) ([]domain.ProcessMetrics, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	alive := make(map[int32]*process.Process, len(procs))
	out := make([]domain.ProcessMetrics, 0, len(procs))

	for _, p := range procs {
		// reuse cached handles so Percent(0) measures since the last tick
		if cached, ok := s.procs[p.Pid]; ok {
			p = cached
		}
		alive[p.Pid] = p

		pct, err := p.PercentWithContext(ctx, 0)
		if err != nil {
			continue
		}
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		memInfo, err := p.MemoryInfoWithContext(ctx)
		if err != nil {
			continue
		}

		out = append(out, domain.ProcessMetrics{
			PID:         p.Pid,
			Name:        name,
			CPUUsage:    pct,
			MemoryUsage: memInfo.RSS,
		})
	}

	s.procs = alive

	return selectTop(out, s.topN), nil
}

// selectTop orders by CPU descending, then memory, and keeps n entries.
func selectTop(procs []domain.ProcessMetrics, n int) []domain.ProcessMetrics {
	slices.SortStableFunc(procs, func(a, b domain.ProcessMetrics) int {
		switch {
		case a.CPUUsage > b.CPUUsage:
			return -1
		case a.CPUUsage < b.CPUUsage:
			return 1
		case a.MemoryUsage > b.MemoryUsage:
			return -1
		case a.MemoryUsage < b.MemoryUsage:
			return 1
		}
		return 0
	})

	if len(procs) > n {
		procs = procs[:n]
	}
	return procs
}

func clampPercent(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
