package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"fleetmon-server/internal/domain"
)

type MetricsRepository struct {
	db *sql.DB
}

func NewMetricsRepository(db *sql.DB) domain.MetricsRepository {
	return &MetricsRepository{db: db}
}

func (r *MetricsRepository) Save(ctx context.Context, snapshot *domain.MetricsSnapshot) (int64, error) {
	procs, err := json.Marshal(snapshot.Processes)
	if err != nil {
		return 0, fmt.Errorf("failed to encode processes: %w", err)
	}

	query := `
		INSERT INTO server_metrics (server_id, cpu_usage, memory_usage, disk_usage, network_rx, network_tx, processes, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := r.db.ExecContext(
		ctx,
		query,
		snapshot.ServerID,
		snapshot.CPUUsage,
		snapshot.MemoryUsage,
		snapshot.DiskUsage,
		snapshot.NetworkRx,
		snapshot.NetworkTx,
		string(procs),
		toUnix(snapshot.Timestamp),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save metrics: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read metrics id: %w", err)
	}

	snapshot.ID = id
	return id, nil
}

func (r *MetricsRepository) ListByRange(ctx context.Context, serverID string, from, to time.Time) ([]domain.MetricsSnapshot, error) {
	query := `
		SELECT id, server_id, cpu_usage, memory_usage, disk_usage, network_rx, network_tx, processes, timestamp
		FROM server_metrics
		WHERE server_id = ? AND timestamp >= ? AND timestamp < ?
		ORDER BY timestamp ASC
	`

	rows, err := r.db.QueryContext(ctx, query, serverID, toUnix(from), toUnix(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics: %w", err)
	}
	defer rows.Close()

	snapshots := []domain.MetricsSnapshot{}
	for rows.Next() {
		var s domain.MetricsSnapshot
		var procs string
		var ts int64

		err := rows.Scan(
			&s.ID,
			&s.ServerID,
			&s.CPUUsage,
			&s.MemoryUsage,
			&s.DiskUsage,
			&s.NetworkRx,
			&s.NetworkTx,
			&procs,
			&ts,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan metrics: %w", err)
		}

		if err := json.Unmarshal([]byte(procs), &s.Processes); err != nil {
			return nil, fmt.Errorf("failed to decode processes: %w", err)
		}
		s.Timestamp = fromUnix(ts)

		snapshots = append(snapshots, s)
	}

	return snapshots, rows.Err()
}

func (r *MetricsRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM server_metrics WHERE timestamp < ?`, toUnix(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to delete old metrics: %w", err)
	}

	return res.RowsAffected()
}
