package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fleetmon-server/internal/domain"
)

type AlertRepository struct {
	db *sql.DB
}

func NewAlertRepository(db *sql.DB) domain.AlertRepository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) Create(ctx context.Context, alert *domain.Alert) (*domain.Alert, error) {
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(
		ctx,
		`INSERT INTO alerts (server_id, alert_type, severity, message, created_at) VALUES (?, ?, ?, ?, ?)`,
		alert.ServerID,
		alert.AlertType,
		string(alert.Severity),
		alert.Message,
		toUnix(alert.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read alert id: %w", err)
	}

	alert.ID = id
	return alert, nil
}

func (r *AlertRepository) ListUnacknowledged(ctx context.Context) ([]*domain.Alert, error) {
	query := `
		SELECT id, server_id, alert_type, severity, message, created_at, acknowledged_at, acknowledged_by
		FROM alerts
		WHERE acknowledged_at IS NULL
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	alerts := []*domain.Alert{}
	for rows.Next() {
		var a domain.Alert
		var severity string
		var createdAt int64
		var ackAt sql.NullInt64
		var ackBy sql.NullString

		if err := rows.Scan(&a.ID, &a.ServerID, &a.AlertType, &severity, &a.Message, &createdAt, &ackAt, &ackBy); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}

		a.Severity = domain.Severity(severity)
		a.CreatedAt = fromUnix(createdAt)
		a.AcknowledgedAt = fromNullUnix(ackAt)
		a.AcknowledgedBy = fromNullString(ackBy)

		alerts = append(alerts, &a)
	}

	return alerts, rows.Err()
}

func (r *AlertRepository) Acknowledge(ctx context.Context, alertID int64, userID string) error {
	res, err := r.db.ExecContext(
		ctx,
		`UPDATE alerts SET acknowledged_at = ?, acknowledged_by = ? WHERE id = ? AND acknowledged_at IS NULL`,
		toUnix(time.Now()),
		userID,
		alertID,
	)
	if err != nil {
		return fmt.Errorf("failed to acknowledge alert: %w", err)
	}

	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM alerts WHERE id = ?)`, alertID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check alert: %w", err)
	}
	if !exists {
		return domain.ErrAlertNotFound
	}

	return nil
}
