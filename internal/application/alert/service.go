// Package alert
package alert

import (
	"context"

	"fleetmon-server/internal/domain"
	"fleetmon-server/internal/logger"
)

type Service struct {
	repo domain.AlertRepository
	log  logger.Logger
}

func NewService(repo domain.AlertRepository, log logger.Logger) domain.AlertService {
	return &Service{repo: repo, log: log}
}

func (s *Service) ListUnacknowledged(ctx context.Context) ([]*domain.Alert, error) {
	return s.repo.ListUnacknowledged(ctx)
}

func (s *Service) Acknowledge(ctx context.Context, alertID int64, userID string) error {
	if err := s.repo.Acknowledge(ctx, alertID, userID); err != nil {
		return err
	}

	s.log.Info("alert acknowledged", "alert_id", alertID, "user_id", userID)

	return nil
}
