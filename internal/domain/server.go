package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrServerNotFound = errors.New("server not found")
	ErrHostnameTaken  = errors.New("server with this hostname already exists")
	ErrForbidden      = errors.New("you don't have permission to access this server")
)

type Server struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Hostname   string    `json:"hostname"`
	IPAddress  string    `json:"ip_address"`
	Port       int       `json:"port"`
	Username   string    `json:"username"`
	Location   string    `json:"location"`
	ServerType string    `json:"server_type"`
	IsOnline   bool      `json:"is_online"`
	CreatedBy  *string   `json:"created_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type ServerSaveRequest struct {
	Name       string `json:"name" validate:"required"`
	Hostname   string `json:"hostname" validate:"required,hostname_rfc1123|ip"`
	IPAddress  string `json:"ip_address" validate:"omitempty,ip"`
	Port       int    `json:"port" validate:"omitempty,min=1,max=65535"`
	Username   string `json:"username"`
	Location   string `json:"location"`
	ServerType string `json:"server_type"`
}

type ServerStatusRequest struct {
	IsOnline bool `json:"is_online"`
}

type TestConnectionRequest struct {
	Host     string `json:"host" validate:"required"`
	Port     int    `json:"port" validate:"required,min=1,max=65535"`
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type TestConnectionResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	LatencyMS int64  `json:"latency_ms"`
}

type ServerRepository interface {
	List(ctx context.Context) ([]*Server, error)
	ListByOwner(ctx context.Context, userID string) ([]*Server, error)
	ListOnline(ctx context.Context) ([]*Server, error)
	GetByID(ctx context.Context, serverID string) (*Server, error)
	GetByHostname(ctx context.Context, hostname string) (*Server, error)
	Create(ctx context.Context, s *Server) (*Server, error)
	Update(ctx context.Context, s *Server, serverID string) error
	UpdateStatus(ctx context.Context, serverID string, isOnline bool) error
	Delete(ctx context.Context, serverID string) error
}

type ServerService interface {
	List(ctx context.Context, actor *User) ([]*Server, error)
	GetByID(ctx context.Context, serverID string) (*Server, error)
	Register(ctx context.Context, req ServerSaveRequest, actor *User) (*Server, error)
	Update(ctx context.Context, req ServerSaveRequest, serverID string, actor *User) error
	UpdateStatus(ctx context.Context, serverID string, isOnline bool, actor *User) error
	Delete(ctx context.Context, serverID string, actor *User) error
	TestConnection(ctx context.Context, req TestConnectionRequest) (*TestConnectionResult, error)
}

// ConnectionTester checks that a host accepts the given credentials.
type ConnectionTester interface {
	Test(ctx context.Context, req TestConnectionRequest) error
}
