package domain

import (
	"context"
	"errors"
	"time"
)

var ErrAlertNotFound = errors.New("alert not found")

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

const (
	AlertTypeCPU    = "cpu_usage"
	AlertTypeMemory = "memory_usage"
	AlertTypeDisk   = "disk_usage"
)

type Alert struct {
	ID             int64      `json:"id"`
	ServerID       string     `json:"server_id"`
	AlertType      string     `json:"alert_type"`
	Severity       Severity   `json:"severity"`
	Message        string     `json:"message"`
	CreatedAt      time.Time  `json:"created_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at"`
	AcknowledgedBy *string    `json:"acknowledged_by"`
}

type AlertRepository interface {
	Create(ctx context.Context, alert *Alert) (*Alert, error)
	ListUnacknowledged(ctx context.Context) ([]*Alert, error)
	// Acknowledge sets acknowledged_at/by once; an already acknowledged alert is left untouched.
	Acknowledge(ctx context.Context, alertID int64, userID string) error
}

type AlertService interface {
	ListUnacknowledged(ctx context.Context) ([]*Alert, error)
	Acknowledge(ctx context.Context, alertID int64, userID string) error
}
