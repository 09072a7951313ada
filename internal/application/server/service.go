// Package server
package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fleetmon-server/internal/domain"
	"fleetmon-server/internal/logger"

	"github.com/google/uuid"
)

// Monitor is the part of the monitoring registry the server service drives.
type Monitor interface {
	StopMonitoring(ctx context.Context, serverID string) error
}

type Service struct {
	repo    domain.ServerRepository
	monitor Monitor
	tester  domain.ConnectionTester
	log     logger.Logger
}

func NewService(repo domain.ServerRepository, monitor Monitor, tester domain.ConnectionTester, log logger.Logger) domain.ServerService {
	return &Service{
		repo:    repo,
		monitor: monitor,
		tester:  tester,
		log:     log,
	}
}

func (s *Service) List(ctx context.Context, actor *domain.User) ([]*domain.Server, error) {
	if actor.IsAdmin() {
		return s.repo.List(ctx)
	}
	return s.repo.ListByOwner(ctx, actor.ID)
}

func (s *Service) GetByID(ctx context.Context, serverID string) (*domain.Server, error) {
	return s.repo.GetByID(ctx, serverID)
}

func (s *Service) Register(ctx context.Context, req domain.ServerSaveRequest, actor *domain.User) (*domain.Server, error) {
	if err := s.ensureHostnameFree(ctx, req.Hostname, ""); err != nil {
		return nil, err
	}

	data := fromRequest(req)
	data.ID = uuid.NewString()
	data.IsOnline = false
	if actor != nil {
		data.CreatedBy = &actor.ID
	}

	srv, err := s.repo.Create(ctx, data)
	if err != nil {
		return nil, err
	}

	s.log.Info("server registered", "server_id", srv.ID, "hostname", srv.Hostname)

	return srv, nil
}

func (s *Service) Update(ctx context.Context, req domain.ServerSaveRequest, serverID string, actor *domain.User) error {
	if _, err := s.authorize(ctx, serverID, actor); err != nil {
		return err
	}

	if err := s.ensureHostnameFree(ctx, req.Hostname, serverID); err != nil {
		return err
	}

	return s.repo.Update(ctx, fromRequest(req), serverID)
}

func (s *Service) UpdateStatus(ctx context.Context, serverID string, isOnline bool, actor *domain.User) error {
	if _, err := s.authorize(ctx, serverID, actor); err != nil {
		return err
	}

	return s.repo.UpdateStatus(ctx, serverID, isOnline)
}

func (s *Service) Delete(ctx context.Context, serverID string, actor *domain.User) error {
	if _, err := s.authorize(ctx, serverID, actor); err != nil {
		return err
	}

	if err := s.monitor.StopMonitoring(ctx, serverID); err != nil {
		s.log.Warn("failed to stop monitoring before delete", "server_id", serverID, "error", err)
	}

	if err := s.repo.Delete(ctx, serverID); err != nil {
		return err
	}

	s.log.Info("server deleted", "server_id", serverID)

	return nil
}

func (s *Service) TestConnection(ctx context.Context, req domain.TestConnectionRequest) (*domain.TestConnectionResult, error) {
	start := time.Now()
	err := s.tester.Test(ctx, req)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		s.log.Debug("connection test failed", "host", req.Host, "error", err)
		return &domain.TestConnectionResult{
			Success:   false,
			Message:   err.Error(),
			LatencyMS: latency,
		}, nil
	}

	return &domain.TestConnectionResult{
		Success:   true,
		Message:   "Connection successful",
		LatencyMS: latency,
	}, nil
}

// authorize loads the server and checks that actor may change it. Admins may
// change any server, other users only their own.
func (s *Service) authorize(ctx context.Context, serverID string, actor *domain.User) (*domain.Server, error) {
	srv, err := s.repo.GetByID(ctx, serverID)
	if err != nil {
		return nil, err
	}

	if actor.IsAdmin() {
		return srv, nil
	}
	if actor == nil || srv.CreatedBy == nil || *srv.CreatedBy != actor.ID {
		return nil, domain.ErrForbidden
	}

	return srv, nil
}

func (s *Service) ensureHostnameFree(ctx context.Context, hostname, selfID string) error {
	existing, err := s.repo.GetByHostname(ctx, normalizeHostname(hostname))
	if err != nil {
		if errors.Is(err, domain.ErrServerNotFound) {
			return nil
		}
		return fmt.Errorf("failed to check hostname: %w", err)
	}

	if existing.ID != selfID {
		return domain.ErrHostnameTaken
	}
	return nil
}

func fromRequest(req domain.ServerSaveRequest) *domain.Server {
	port := req.Port
	if port == 0 {
		port = 22
	}

	return &domain.Server{
		Name:       strings.TrimSpace(req.Name),
		Hostname:   normalizeHostname(req.Hostname),
		IPAddress:  req.IPAddress,
		Port:       port,
		Username:   req.Username,
		Location:   req.Location,
		ServerType: req.ServerType,
	}
}

func normalizeHostname(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}
