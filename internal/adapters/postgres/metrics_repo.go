package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fleetmon-server/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

type MetricsRepository struct {
	db *pgxpool.Pool
}

func NewMetricsRepository(db *pgxpool.Pool) domain.MetricsRepository {
	return &MetricsRepository{db: db}
}

func (r *MetricsRepository) Save(ctx context.Context, snapshot *domain.MetricsSnapshot) (int64, error) {
	procs, err := json.Marshal(snapshot.Processes)
	if err != nil {
		return 0, fmt.Errorf("failed to encode processes: %w", err)
	}

	query := `
		INSERT INTO server_metrics (server_id, cpu_usage, memory_usage, disk_usage, network_rx, network_tx, processes, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err = r.db.QueryRow(
		ctx,
		query,
		snapshot.ServerID,
		snapshot.CPUUsage,
		snapshot.MemoryUsage,
		snapshot.DiskUsage,
		snapshot.NetworkRx,
		snapshot.NetworkTx,
		procs,
		snapshot.Timestamp,
	).Scan(&snapshot.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to save metrics: %w", err)
	}

	return snapshot.ID, nil
}

func (r *MetricsRepository) ListByRange(ctx context.Context, serverID string, from, to time.Time) ([]domain.MetricsSnapshot, error) {
	query := `
		SELECT id, server_id, cpu_usage, memory_usage, disk_usage, network_rx, network_tx, processes, timestamp
		FROM server_metrics
		WHERE server_id = $1 AND timestamp >= $2 AND timestamp < $3
		ORDER BY timestamp ASC
	`

	rows, err := r.db.Query(ctx, query, serverID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics: %w", err)
	}
	defer rows.Close()

	snapshots := []domain.MetricsSnapshot{}
	for rows.Next() {
		var s domain.MetricsSnapshot
		var procs []byte

		err := rows.Scan(
			&s.ID,
			&s.ServerID,
			&s.CPUUsage,
			&s.MemoryUsage,
			&s.DiskUsage,
			&s.NetworkRx,
			&s.NetworkTx,
			&procs,
			&s.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan metrics: %w", err)
		}

		if err := json.Unmarshal(procs, &s.Processes); err != nil {
			return nil, fmt.Errorf("failed to decode processes: %w", err)
		}
		s.Timestamp = s.Timestamp.UTC()

		snapshots = append(snapshots, s)
	}

	return snapshots, rows.Err()
}

func (r *MetricsRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ct, err := r.db.Exec(ctx, `DELETE FROM server_metrics WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old metrics: %w", err)
	}

	return ct.RowsAffected(), nil
}
