package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"fleetmon-server/internal/domain"
)

const logColumns = `id, level, message, component, server_id, timestamp, metadata, stack_trace, source_location, correlation_id`

type LogRepository struct {
	db *sql.DB
}

func NewLogRepository(db *sql.DB) domain.LogRepository {
	return &LogRepository{db: db}
}

func scanLog(row scanner) (*domain.LogEntry, error) {
	var e domain.LogEntry
	var level string
	var ts int64
	var serverID, metadata, stack, source, correlation sql.NullString

	err := row.Scan(&e.ID, &level, &e.Message, &e.Component, &serverID, &ts, &metadata, &stack, &source, &correlation)
	if err != nil {
		return nil, err
	}

	e.Level = domain.LogLevel(level)
	e.Timestamp = fromUnix(ts)
	e.ServerID = fromNullString(serverID)
	e.StackTrace = fromNullString(stack)
	e.SourceLocation = fromNullString(source)
	e.CorrelationID = fromNullString(correlation)
	if metadata.Valid {
		e.Metadata = []byte(metadata.String)
	}

	return &e, nil
}

func (r *LogRepository) Create(ctx context.Context, e *domain.LogEntry) error {
	var metadata sql.NullString
	if len(e.Metadata) > 0 {
		metadata = sql.NullString{String: string(e.Metadata), Valid: true}
	}

	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO logs (`+logColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		string(e.Level),
		e.Message,
		e.Component,
		e.ServerID,
		toUnix(e.Timestamp),
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
	e, err := scanLog(r.db.QueryRowContext(ctx, `SELECT `+logColumns+` FROM logs WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrLogNotFound
		}
		return nil, err
	}

	return e, nil
}

func (r *LogRepository) List(ctx context.Context, f domain.LogFilter) ([]*domain.LogEntry, int64, error) {
	where, args := logWhere(f)

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count logs: %w", err)
	}

	query := `SELECT ` + logColumns + ` FROM logs` + where + ` ORDER BY timestamp DESC LIMIT ? OFFSET ?`
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
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

	res, err := r.db.ExecContext(ctx, `DELETE FROM logs`+where, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete logs: %w", err)
	}

	return res.RowsAffected()
}

func logWhere(f domain.LogFilter) (string, []any) {
	var conds []string
	var args []any

	if len(f.Levels) > 0 {
		marks := make([]string, len(f.Levels))
		for i, l := range f.Levels {
			marks[i] = "?"
			args = append(args, string(l))
		}
		conds = append(conds, "level IN ("+strings.Join(marks, ", ")+")")
	}
	if f.From != nil {
		conds = append(conds, "timestamp >= ?")
		args = append(args, toUnix(*f.From))
	}
	if f.To != nil {
		conds = append(conds, "timestamp < ?")
		args = append(args, toUnix(*f.To))
	}
	if f.ServerID != nil {
		conds = append(conds, "server_id = ?")
		args = append(args, *f.ServerID)
	}
	if f.Component != nil {
		conds = append(conds, "component = ?")
		args = append(args, *f.Component)
	}
	if f.Search != "" {
		conds = append(conds, "message LIKE ?")
		args = append(args, "%"+f.Search+"%")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
