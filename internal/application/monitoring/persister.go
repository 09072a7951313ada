package monitoring

import (
	"context"
	"time"

	"fleetmon-server/internal/domain"
)

func (r *Registry) persistLoop(ctx context.Context, serverID string, c *Collector, done chan struct{}) {
	defer close(done)
	defer r.tasks.Add(-1)

	interval := r.cfg.PersistInterval
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			last = r.persist(ctx, serverID, c, last)
		}
	}
}

// persist saves the current sample unless it was already handled, then
// evaluates thresholds. It returns the timestamp of the handled sample.
func (r *Registry) persist(ctx context.Context, serverID string, c *Collector, last time.Time) time.Time {
	m := c.Current()
	if m == nil || m.Timestamp.Equal(last) {
		return last
	}

	opCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	snapshot := domain.NewSnapshot(serverID, m)
	if _, err := r.repos.Metrics.Save(opCtx, &snapshot); err != nil {
		r.tm.PersistFailures.Inc()
		r.log.Error("failed to save metrics snapshot", "server_id", serverID, "error", err)
	} else {
		r.tm.SnapshotsPersisted.Inc()
	}

	for _, alert := range EvaluateThresholds(serverID, m, r.cfg.Thresholds) {
		if _, err := r.repos.Alerts.Create(opCtx, alert); err != nil {
			r.log.Error("failed to create alert", "server_id", serverID, "alert_type", alert.AlertType, "error", err)
			continue
		}

		r.tm.AlertsRaised.WithLabelValues(alert.AlertType).Inc()
		r.log.Warn("alert raised", "server_id", serverID, "alert_type", alert.AlertType, "message", alert.Message)
	}

	return m.Timestamp
}
