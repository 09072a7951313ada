package workers

import (
	"context"
	"fmt"
	"time"

	"fleetmon-server/internal/domain"
	"fleetmon-server/internal/logger"
)

type MetricsCleanupWorker struct {
	repo      domain.MetricsRepository
	retention time.Duration
	log       logger.Logger
	now       func() time.Time
}

func NewMetricsCleanupWorker(repo domain.MetricsRepository, retention time.Duration, log logger.Logger) Worker {
	return &MetricsCleanupWorker{
		repo:      repo,
		retention: retention,
		log:       log,
		now:       time.Now,
	}
}

func (w *MetricsCleanupWorker) Name() string {
	return "metrics_cleanup"
}

func (w *MetricsCleanupWorker) Run(ctx context.Context) error {
	if w.retention <= 0 {
		w.log.Debug("worker: retention disabled, skipping", "name", w.Name())
		return nil
	}

	cutoff := w.now().UTC().Add(-w.retention)

	deleted, err := w.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to delete old metrics: %w", err)
	}

	w.log.Info("worker: old metrics deleted", "name", w.Name(), "count", deleted, "cutoff", cutoff)

	return nil
}
