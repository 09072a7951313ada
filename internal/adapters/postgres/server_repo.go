package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fleetmon-server/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const serverColumns = `id, name, hostname, ip_address, port, username, location, server_type, is_online, created_by, created_at, updated_at`

type ServerRepository struct {
	db *pgxpool.Pool
}

func NewServerRepository(db *pgxpool.Pool) domain.ServerRepository {
	return &ServerRepository{db: db}
}

func scanServer(row pgx.Row) (*domain.Server, error) {
	var s domain.Server
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
		&s.CreatedBy,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *ServerRepository) list(ctx context.Context, where string, args ...any) ([]*domain.Server, error) {
	query := `SELECT ` + serverColumns + ` FROM servers ` + where + ` ORDER BY name ASC`

	rows, err := r.db.Query(ctx, query, args...)
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
	return r.list(ctx, "WHERE created_by = $1", userID)
}

func (r *ServerRepository) ListOnline(ctx context.Context) ([]*domain.Server, error) {
	return r.list(ctx, "WHERE is_online = TRUE")
}

func (r *ServerRepository) GetByID(ctx context.Context, serverID string) (*domain.Server, error) {
	query := `SELECT ` + serverColumns + ` FROM servers WHERE id = $1 LIMIT 1`

	s, err := scanServer(r.db.QueryRow(ctx, query, serverID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrServerNotFound
		}
		return nil, err
	}

	return s, nil
}

func (r *ServerRepository) GetByHostname(ctx context.Context, hostname string) (*domain.Server, error) {
	query := `SELECT ` + serverColumns + ` FROM servers WHERE hostname = $1 LIMIT 1`

	s, err := scanServer(r.db.QueryRow(ctx, query, strings.ToLower(hostname)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrServerNotFound
		}
		return nil, err
	}

	return s, nil
}

func (r *ServerRepository) Create(ctx context.Context, s *domain.Server) (*domain.Server, error) {
	query := `
		INSERT INTO servers (id, name, hostname, ip_address, port, username, location, server_type, is_online, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		RETURNING created_at, updated_at
	`

	now := time.Now().UTC()

	err := r.db.QueryRow(
		ctx,
		query,
		s.ID,
		s.Name,
		strings.ToLower(s.Hostname),
		s.IPAddress,
		s.Port,
		s.Username,
		s.Location,
		s.ServerType,
		s.IsOnline,
		s.CreatedBy,
		now,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, domain.ErrHostnameTaken
		}
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	s.Hostname = strings.ToLower(s.Hostname)
	return s, nil
}

func (r *ServerRepository) Update(ctx context.Context, s *domain.Server, serverID string) error {
	query := `
		UPDATE servers
		SET name = $1, hostname = $2, ip_address = $3, port = $4, username = $5,
			location = $6, server_type = $7, updated_at = $8
		WHERE id = $9
	`

	ct, err := r.db.Exec(
		ctx,
		query,
		s.Name,
		strings.ToLower(s.Hostname),
		s.IPAddress,
		s.Port,
		s.Username,
		s.Location,
		s.ServerType,
		time.Now().UTC(),
		serverID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrHostnameTaken
		}
		return fmt.Errorf("failed to update server: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return domain.ErrServerNotFound
	}

	return nil
}

func (r *ServerRepository) UpdateStatus(ctx context.Context, serverID string, isOnline bool) error {
	query := `UPDATE servers SET is_online = $1, updated_at = $2 WHERE id = $3`

	ct, err := r.db.Exec(ctx, query, isOnline, time.Now().UTC(), serverID)
	if err != nil {
		return fmt.Errorf("failed to update server status: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return domain.ErrServerNotFound
	}

	return nil
}

func (r *ServerRepository) Delete(ctx context.Context, serverID string) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM servers WHERE id = $1`, serverID)
	if err != nil {
		return fmt.Errorf("failed to delete server: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return domain.ErrServerNotFound
	}

	return nil
}
