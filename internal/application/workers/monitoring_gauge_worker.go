package workers

import (
	"context"

	"fleetmon-server/internal/telemetry"
)

type monitoredLister interface {
	Monitored() []string
}

// MonitoringGaugeWorker mirrors the registry size into the monitored servers gauge.
type MonitoringGaugeWorker struct {
	registry monitoredLister
	tm       *telemetry.Metrics
}

func NewMonitoringGaugeWorker(registry monitoredLister, tm *telemetry.Metrics) Worker {
	return &MonitoringGaugeWorker{registry: registry, tm: tm}
}

func (w *MonitoringGaugeWorker) Name() string {
	return "monitoring_gauge"
}

func (w *MonitoringGaugeWorker) Run(context.Context) error {
	w.tm.MonitoredServers.Set(float64(len(w.registry.Monitored())))
	return nil
}
