package postgres

import (
	"context"
	"fmt"
	"time"

	"fleetmon-server/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type AlertRepository struct {
	db *pgxpool.Pool
}

func NewAlertRepository(db *pgxpool.Pool) domain.AlertRepository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) Create(ctx context.Context, alert *domain.Alert) (*domain.Alert, error) {
	query := `
		INSERT INTO alerts (server_id, alert_type, severity, message, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}

	err := r.db.QueryRow(
		ctx,
		query,
		alert.ServerID,
		alert.AlertType,
		alert.Severity,
		alert.Message,
		alert.CreatedAt,
	).Scan(&alert.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}

	return alert, nil
}

func (r *AlertRepository) ListUnacknowledged(ctx context.Context) ([]*domain.Alert, error) {
	query := `
		SELECT id, server_id, alert_type, severity, message, created_at, acknowledged_at, acknowledged_by
		FROM alerts
		WHERE acknowledged_at IS NULL
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	alerts := []*domain.Alert{}
	for rows.Next() {
		var a domain.Alert
		err := rows.Scan(
			&a.ID,
			&a.ServerID,
			&a.AlertType,
			&a.Severity,
			&a.Message,
			&a.CreatedAt,
			&a.AcknowledgedAt,
			&a.AcknowledgedBy,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, &a)
	}

	return alerts, rows.Err()
}

func (r *AlertRepository) Acknowledge(ctx context.Context, alertID int64, userID string) error {
	query := `
		UPDATE alerts
		SET acknowledged_at = $1, acknowledged_by = $2
		WHERE id = $3 AND acknowledged_at IS NULL
	`

	ct, err := r.db.Exec(ctx, query, time.Now().UTC(), userID, alertID)
	if err != nil {
		return fmt.Errorf("failed to acknowledge alert: %w", err)
	}
	if ct.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM alerts WHERE id = $1)`, alertID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check alert: %w", err)
	}
	if !exists {
		return domain.ErrAlertNotFound
	}

	return nil
}
