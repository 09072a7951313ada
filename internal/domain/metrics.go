package domain

import (
	"context"
	"errors"
	"time"
)

var ErrMetricsNotFound = errors.New("metrics not found")

// ServerMetrics is one point-in-time sample of a host. Network fields are
// per-interval rates in bytes per second, not cumulative counters.
type ServerMetrics struct {
	CPUUsage       float64          `json:"cpu_usage"`
	MemoryUsage    float64          `json:"memory_usage"`
	DiskUsage      float64          `json:"disk_usage"`
	NetworkRxBytes uint64           `json:"network_rx_bytes"`
	NetworkTxBytes uint64           `json:"network_tx_bytes"`
	Timestamp      time.Time        `json:"timestamp"`
	Processes      []ProcessMetrics `json:"processes"`
}

func (m *ServerMetrics) NetworkUsage() uint64 {
	return m.NetworkRxBytes + m.NetworkTxBytes
}

// ProcessMetrics.CPUUsage follows the per-core convention: 100 means one full
// core, so values above 100 are normal on multi-core hosts.
type ProcessMetrics struct {
	PID         int32   `json:"pid"`
	Name        string  `json:"name"`
	CPUUsage    float64 `json:"cpu_usage"`
	MemoryUsage uint64  `json:"memory_usage"`
}

type MetricsSnapshot struct {
	ID          int64            `json:"id"`
	ServerID    string           `json:"server_id"`
	CPUUsage    float64          `json:"cpu_usage"`
	MemoryUsage float64          `json:"memory_usage"`
	DiskUsage   float64          `json:"disk_usage"`
	NetworkRx   int64            `json:"network_rx"`
	NetworkTx   int64            `json:"network_tx"`
	Processes   []ProcessMetrics `json:"processes"`
	Timestamp   time.Time        `json:"timestamp"`
}

func NewSnapshot(serverID string, m *ServerMetrics) MetricsSnapshot {
	procs := make([]ProcessMetrics, len(m.Processes))
	copy(procs, m.Processes)

	return MetricsSnapshot{
		ServerID:    serverID,
		CPUUsage:    m.CPUUsage,
		MemoryUsage: m.MemoryUsage,
		DiskUsage:   m.DiskUsage,
		NetworkRx:   int64(m.NetworkRxBytes),
		NetworkTx:   int64(m.NetworkTxBytes),
		Processes:   procs,
		Timestamp:   m.Timestamp.UTC(),
	}
}

type MetricsRepository interface {
	Save(ctx context.Context, snapshot *MetricsSnapshot) (int64, error)
	// ListByRange returns snapshots in [from, to) ordered by timestamp ascending.
	ListByRange(ctx context.Context, serverID string, from, to time.Time) ([]MetricsSnapshot, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type MonitoringService interface {
	GetMetrics(serverID string) (*ServerMetrics, bool)
	GetOrStartMetrics(ctx context.Context, serverID string) *ServerMetrics
	StartMonitoring(ctx context.Context, serverID string) error
	StopMonitoring(ctx context.Context, serverID string) error
	Processes(ctx context.Context, serverID string) []ProcessMetrics
	History(ctx context.Context, serverID string, from, to time.Time) ([]MetricsSnapshot, error)
	Monitored() []string
}
