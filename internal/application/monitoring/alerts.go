package monitoring

import (
	"fmt"
	"time"

	"fleetmon-server/internal/config"
	"fleetmon-server/internal/domain"
)

// EvaluateThresholds returns one critical alert per metric strictly above its
// limit. A value equal to the limit does not alert.
func EvaluateThresholds(serverID string, m *domain.ServerMetrics, th config.Thresholds) []*domain.Alert {
	checks := []struct {
		alertType string
		label     string
		value     float64
		limit     float64
	}{
		{domain.AlertTypeCPU, "CPU", m.CPUUsage, th.CPUCritical},
		{domain.AlertTypeMemory, "Memory", m.MemoryUsage, th.MemoryCritical},
		{domain.AlertTypeDisk, "Disk", m.DiskUsage, th.DiskCritical},
	}

	now := time.Now().UTC()
	alerts := []*domain.Alert{}

	for _, chk := range checks {
		if chk.value <= chk.limit {
			continue
		}

		alerts = append(alerts, &domain.Alert{
			ServerID:  serverID,
			AlertType: chk.alertType,
			Severity:  domain.SeverityCritical,
			Message:   fmt.Sprintf("%s usage is critically high: %.2f%%", chk.label, chk.value),
			CreatedAt: now,
		})
	}

	return alerts
}
