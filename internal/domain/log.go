package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var ErrLogNotFound = errors.New("log entry not found")

type LogLevel string

const (
	LogLevelDebug    LogLevel = "debug"
	LogLevelInfo     LogLevel = "info"
	LogLevelWarning  LogLevel = "warning"
	LogLevelError    LogLevel = "error"
	LogLevelCritical LogLevel = "critical"
)

type LogEntry struct {
	ID             string          `json:"id"`
	Level          LogLevel        `json:"level"`
	Message        string          `json:"message"`
	Component      string          `json:"component"`
	ServerID       *string         `json:"server_id,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	StackTrace     *string         `json:"stack_trace,omitempty"`
	SourceLocation *string         `json:"source_location,omitempty"`
	CorrelationID  *string         `json:"correlation_id,omitempty"`
}

type LogCreateRequest struct {
	Level          LogLevel        `json:"level" validate:"required,oneof=debug info warning error critical"`
	Message        string          `json:"message" validate:"required"`
	Component      string          `json:"component" validate:"required"`
	ServerID       *string         `json:"server_id"`
	Timestamp      *time.Time      `json:"timestamp"`
	Metadata       json.RawMessage `json:"metadata"`
	StackTrace     *string         `json:"stack_trace"`
	SourceLocation *string         `json:"source_location"`
	CorrelationID  *string         `json:"correlation_id"`
}

type LogFilter struct {
	Levels    []LogLevel `json:"levels"`
	From      *time.Time `json:"from"`
	To        *time.Time `json:"to"`
	ServerID  *string    `json:"server_id"`
	Component *string    `json:"component"`
	Search    string     `json:"search"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
}

type LogRepository interface {
	Create(ctx context.Context, entry *LogEntry) error
	GetByID(ctx context.Context, id string) (*LogEntry, error)
	List(ctx context.Context, filter LogFilter) ([]*LogEntry, int64, error)
	Delete(ctx context.Context, filter LogFilter) (int64, error)
}

type LogService interface {
	Create(ctx context.Context, req LogCreateRequest) (*LogEntry, error)
	GetByID(ctx context.Context, id string) (*LogEntry, error)
	List(ctx context.Context, filter LogFilter) (*ListResult[*LogEntry], error)
	Delete(ctx context.Context, filter LogFilter) (int64, error)
}
