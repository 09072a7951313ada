package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fleetmon-server/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const logColumns = `id, level, message, component, server_id, timestamp, metadata, stack_trace, source_location, correlation_id`

type LogRepository struct {
	db *pgxpool.Pool
}

func NewLogRepository(db *pgxpool.Pool) domain.LogRepository {
	return &LogRepository{db: db}
}

func scanLog(row pgx.Row) (*domain.LogEntry, error) {
	var e domain.LogEntry
	var metadata []byte

	err := row.Scan(
		&e.ID,
		&e.Level,
		&e.Message,
		&e.Component,
		&e.ServerID,
		&e.Timestamp,
		&metadata,
		&e.StackTrace,
		&e.SourceLocation,
		&e.CorrelationID,
	)
	if err != nil {
		return nil, err
	}

	if len(metadata) > 0 {
		e.Metadata = metadata
	}
	e.Timestamp = e.Timestamp.UTC()

	return &e, nil
}

func (r *LogRepository) Create(ctx context.Context, e *domain.LogEntry) error {
	query := `INSERT INTO logs (` + logColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	var metadata any
	if len(e.Metadata) > 0 {
		metadata = []byte(e.Metadata)
	}

	_, err := r.db.Exec(
		ctx,
		query,
		e.ID,
		e.Level,
		e.Message,
		e.Component,
		e.ServerID,
		e.Timestamp,
		metadata,
		e.StackTrace,
		e.SourceLocation,
		e.CorrelationID,
	)
	if err != nil {
		return fmt.Errorf("failed to create log entry: %w", err)
	}

	return nil
}

func (r *LogRepository) GetByID(ctx context.Context, id string) (*domain.LogEntry, error) {
	query := `SELECT ` + logColumns + ` FROM logs WHERE id = $1`

	e, err := scanLog(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLogNotFound
		}
		return nil, err
	}

	return e, nil
}

func (r *LogRepository) List(ctx context.Context, f domain.LogFilter) ([]*domain.LogEntry, int64, error) {
	where, args := logWhere(f)

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count logs: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM logs%s ORDER BY timestamp DESC LIMIT $%d OFFSET $%d`,
		logColumns, where, len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query logs: %w", err)
	}
	defer rows.Close()

	entries := []*domain.LogEntry{}
	for rows.Next() {
		e, err := scanLog(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan log entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, total, rows.Err()
}

func (r *LogRepository) Delete(ctx context.Context, f domain.LogFilter) (int64, error) {
	where, args := logWhere(f)

	ct, err := r.db.Exec(ctx, `DELETE FROM logs`+where, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete logs: %w", err)
	}

	return ct.RowsAffected(), nil
}

func logWhere(f domain.LogFilter) (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if len(f.Levels) > 0 {
		levels := make([]string, len(f.Levels))
		for i, l := range f.Levels {
			levels[i] = string(l)
		}
		add("level = ANY($%d)", levels)
	}
	if f.From != nil {
		add("timestamp >= $%d", *f.From)
	}
	if f.To != nil {
		add("timestamp < $%d", *f.To)
	}
	if f.ServerID != nil {
		add("server_id = $%d", *f.ServerID)
	}
	if f.Component != nil {
		add("component = $%d", *f.Component)
	}
	if f.Search != "" {
		add("message ILIKE $%d", "%"+f.Search+"%")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
