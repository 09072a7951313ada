package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"fleetmon-server/internal/domain"

	"github.com/mattn/go-sqlite3"
)

const serverColumns = `id, name, hostname, ip_address, port, username, location, server_type, is_online, created_by, created_at, updated_at`

type ServerRepository struct {
	db *sql.DB
}

func NewServerRepository(db *sql.DB) domain.ServerRepository {
	return &ServerRepository{db: db}
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

type scanner interface {
	Scan(dest ...any) error
}

func scanServer(row scanner) (*domain.Server, error) {
	var s domain.Server
	var createdBy sql.NullString
	var createdAt, updatedAt int64

	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Hostname,
		&s.IPAddress,
		&s.Port,
		&s.Username,
		&s.Location,
		&s.ServerType,
		&s.IsOnline,
		&createdBy,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.CreatedBy = fromNullString(createdBy)
	s.CreatedAt = fromUnix(createdAt)
	s.UpdatedAt = fromUnix(updatedAt)

	return &s, nil
}

func (r *ServerRepository) list(ctx context.Context, where string, args ...any) ([]*domain.Server, error) {
	query := `SELECT ` + serverColumns + ` FROM servers ` + where + ` ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query servers: %w", err)
	}
	defer rows.Close()

	servers := []*domain.Server{}
	for rows.Next() {
		s, err := scanServer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan server: %w", err)
		}
		servers = append(servers, s)
	}

	return servers, rows.Err()
}

func (r *ServerRepository) List(ctx context.Context) ([]*domain.Server, error) {
	return r.list(ctx, "")
}

func (r *ServerRepository) ListByOwner(ctx context.Context, userID string) ([]*domain.Server, error) {
	return r.list(ctx, "WHERE created_by = ?", userID)
}

func (r *ServerRepository) ListOnline(ctx context.Context) ([]*domain.Server, error) {
	return r.list(ctx, "WHERE is_online = 1")
}

func (r *ServerRepository) getOne(ctx context.Context, where string, arg any) (*domain.Server, error) {
	query := `SELECT ` + serverColumns + ` FROM servers WHERE ` + where + ` LIMIT 1`

	s, err := scanServer(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrServerNotFound
		}
		return nil, err
	}

	return s, nil
}

func (r *ServerRepository) GetByID(ctx context.Context, serverID string) (*domain.Server, error) {
	return r.getOne(ctx, "id = ?", serverID)
}

func (r *ServerRepository) GetByHostname(ctx context.Context, hostname string) (*domain.Server, error) {
	return r.getOne(ctx, "hostname = ?", strings.ToLower(hostname))
}

func (r *ServerRepository) Create(ctx context.Context, s *domain.Server) (*domain.Server, error) {
	query := `
		INSERT INTO servers (` + serverColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now().UTC()
	s.Hostname = strings.ToLower(s.Hostname)

	_, err := r.db.ExecContext(
		ctx,
		query,
		s.ID,
		s.Name,
		s.Hostname,
		s.IPAddress,
		s.Port,
		s.Username,
		s.Location,
		s.ServerType,
		s.IsOnline,
		s.CreatedBy,
		toUnix(now),
		toUnix(now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrHostnameTaken
		}
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	s.CreatedAt = now
	s.UpdatedAt = now

	return s, nil
}

func (r *ServerRepository) Update(ctx context.Context, s *domain.Server, serverID string) error {
	query := `
		UPDATE servers
		SET name = ?, hostname = ?, ip_address = ?, port = ?, username = ?,
			location = ?, server_type = ?, updated_at = ?
		WHERE id = ?
	`

	res, err := r.db.ExecContext(
		ctx,
		query,
		s.Name,
		strings.ToLower(s.Hostname),
		s.IPAddress,
		s.Port,
		s.Username,
		s.Location,
		s.ServerType,
		toUnix(time.Now()),
		serverID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrHostnameTaken
		}
		return fmt.Errorf("failed to update server: %w", err)
	}

	return requireRow(res, domain.ErrServerNotFound)
}

func (r *ServerRepository) UpdateStatus(ctx context.Context, serverID string, isOnline bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE servers SET is_online = ?, updated_at = ? WHERE id = ?`, isOnline, toUnix(time.Now()), serverID)
	if err != nil {
		return fmt.Errorf("failed to update server status: %w", err)
	}

	return requireRow(res, domain.ErrServerNotFound)
}

func (r *ServerRepository) Delete(ctx context.Context, serverID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM servers WHERE id = ?`, serverID)
	if err != nil {
		return fmt.Errorf("failed to delete server: %w", err)
	}

	return requireRow(res, domain.ErrServerNotFound)
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
