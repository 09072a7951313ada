// Package log
package log

import (
	"context"
	"time"

	"fleetmon-server/internal/domain"

	"github.com/google/uuid"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

type LogService struct {
	repo domain.LogRepository
}

func NewService(repo domain.LogRepository) domain.LogService {
	return &LogService{repo: repo}
}

func (s *LogService) Create(ctx context.Context, req domain.LogCreateRequest) (*domain.LogEntry, error) {
	ts := time.Now().UTC()
	if req.Timestamp != nil {
		ts = req.Timestamp.UTC()
	}

	entry := &domain.LogEntry{
		ID:             uuid.NewString(),
		Level:          req.Level,
		Message:        req.Message,
		Component:      req.Component,
		ServerID:       req.ServerID,
		Timestamp:      ts,
		Metadata:       req.Metadata,
		StackTrace:     req.StackTrace,
		SourceLocation: req.SourceLocation,
		CorrelationID:  req.CorrelationID,
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, err
	}

	return entry, nil
}

func (s *LogService) GetByID(ctx context.Context, id string) (*domain.LogEntry, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *LogService) List(ctx context.Context, filter domain.LogFilter) (*domain.ListResult[*domain.LogEntry], error) {
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultLimit
	case filter.Limit > maxLimit:
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	logs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &domain.ListResult[*domain.LogEntry]{
		Data: logs,
		Meta: domain.CalculateMeta(total, filter.Offset, filter.Limit),
	}, nil
}

func (s *LogService) Delete(ctx context.Context, filter domain.LogFilter) (int64, error) {
	return s.repo.Delete(ctx, filter)
}
