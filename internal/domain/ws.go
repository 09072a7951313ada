package domain

import "time"

const (
	WsSubscribe   = "subscribe"
	WsUnsubscribe = "unsubscribe"
	WsPing        = "ping"
	WsPong        = "pong"
)

const (
	WsEventResourceMetrics = "resource_metrics"
	WsEventError           = "error"
)

const WsMetricsUnavailable = "Failed to get metrics"

// WsClientMessage is an inbound control frame.
type WsClientMessage struct {
	Type     string `json:"type" cbor:"type"`
	ServerID string `json:"server_id,omitempty" cbor:"server_id,omitempty"`
}

type WsServerEvent struct {
	Type string `json:"type" cbor:"type"`
	Data any    `json:"data,omitempty" cbor:"data,omitempty"`
}

type ResourceMetricsPayload struct {
	ServerID     string                 `json:"serverId" cbor:"serverId"`
	CPUUsage     float64                `json:"cpuUsage" cbor:"cpuUsage"`
	MemoryUsage  float64                `json:"memoryUsage" cbor:"memoryUsage"`
	DiskUsage    float64                `json:"diskUsage" cbor:"diskUsage"`
	NetworkUsage float64                `json:"networkUsage" cbor:"networkUsage"`
	ProcessCount int                    `json:"processCount" cbor:"processCount"`
	Processes    []ProcessMetricsPayload `json:"processes" cbor:"processes"`
	Timestamp    time.Time              `json:"timestamp" cbor:"timestamp"`
}

type ProcessMetricsPayload struct {
	PID         int32   `json:"pid" cbor:"pid"`
	Name        string  `json:"name" cbor:"name"`
	CPUUsage    float64 `json:"cpuUsage" cbor:"cpuUsage"`
	MemoryUsage uint64  `json:"memoryUsage" cbor:"memoryUsage"`
}

type ErrorPayload struct {
	Message  string `json:"message" cbor:"message"`
	ServerID string `json:"serverId,omitempty" cbor:"serverId,omitempty"`
}

func NewResourceMetricsEvent(serverID string, m *ServerMetrics) WsServerEvent {
	procs := make([]ProcessMetricsPayload, len(m.Processes))
	for i, p := range m.Processes {
		procs[i] = ProcessMetricsPayload{
			PID:         p.PID,
			Name:        p.Name,
			CPUUsage:    p.CPUUsage,
			MemoryUsage: p.MemoryUsage,
		}
	}

	return WsServerEvent{
		Type: WsEventResourceMetrics,
		Data: ResourceMetricsPayload{
			ServerID:     serverID,
			CPUUsage:     m.CPUUsage,
			MemoryUsage:  m.MemoryUsage,
			DiskUsage:    m.DiskUsage,
			NetworkUsage: float64(m.NetworkUsage()),
			ProcessCount: len(m.Processes),
			Processes:    procs,
			Timestamp:    m.Timestamp.UTC(),
		},
	}
}

func NewErrorEvent(serverID, message string) WsServerEvent {
	return WsServerEvent{
		Type: WsEventError,
		Data: ErrorPayload{Message: message, ServerID: serverID},
	}
}
