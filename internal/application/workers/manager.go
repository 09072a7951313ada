// Package workers
package workers

import (
	"context"
	"time"

	"fleetmon-server/internal/config"
	"fleetmon-server/internal/domain"
	"fleetmon-server/internal/logger"
	"fleetmon-server/internal/telemetry"
)

const gaugeInterval = 15 * time.Second

type Manager struct {
	scheduler *Scheduler
	cfg       *config.Config
	log       logger.Logger

	services *ManagerServices
}

type ManagerServices struct {
	Metrics    domain.MetricsRepository
	Monitoring domain.MonitoringService
	Telemetry  *telemetry.Metrics
}

type Worker interface {
	Name() string
	Run(ctx context.Context) error
}

func NewManager(scheduler *Scheduler, cfg *config.Config, log logger.Logger, services *ManagerServices) *Manager {
	return &Manager{
		scheduler: scheduler,
		cfg:       cfg,
		log:       log,

		services: services,
	}
}

// Start schedules every worker and returns; Wait blocks until ctx ends and
// the loops have exited.
func (m *Manager) Start(ctx context.Context) {
	m.log.Info("worker: manager started")

	retention := time.Duration(m.cfg.RetentionDays) * 24 * time.Hour
	m.scheduler.RunDaily(ctx, DailySchedule{Hour: 2, Minute: 0}, NewMetricsCleanupWorker(m.services.Metrics, retention, m.log))

	m.scheduler.RunByDuration(ctx, gaugeInterval, NewMonitoringGaugeWorker(m.services.Monitoring, m.services.Telemetry))
}

func (m *Manager) Wait() {
	m.scheduler.Wait()
	m.log.Info("worker: manager stopped")
}
