package server

import (
	"context"
	"errors"
	"sync"
	"testing"

	"fleetmon-server/internal/domain"
	"fleetmon-server/internal/logger"
)

type fakeRepo struct {
	mu      sync.Mutex
	servers map[string]*domain.Server
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{servers: map[string]*domain.Server{}}
}

func (r *fakeRepo) List(context.Context) ([]*domain.Server, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []*domain.Server{}
	for _, s := range r.servers {
		out = append(out, s)
	}
	return out, nil
}

func (r *fakeRepo) ListByOwner(_ context.Context, userID string) ([]*domain.Server, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []*domain.Server{}
	for _, s := range r.servers {
		if s.CreatedBy != nil && *s.CreatedBy == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListOnline(context.Context) ([]*domain.Server, error) { return nil, nil }

func (r *fakeRepo) GetByID(_ context.Context, id string) (*domain.Server, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.servers[id]; ok {
		return s, nil
	}
	return nil, domain.ErrServerNotFound
}

func (r *fakeRepo) GetByHostname(_ context.Context, hostname string) (*domain.Server, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.servers {
		if s.Hostname == hostname {
			return s, nil
		}
	}
	return nil, domain.ErrServerNotFound
}

func (r *fakeRepo) Create(_ context.Context, s *domain.Server) (*domain.Server, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.servers[s.ID] = s
	return s, nil
}

func (r *fakeRepo) Update(_ context.Context, s *domain.Server, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.servers[id]
	if !ok {
		return domain.ErrServerNotFound
	}
	cur.Name = s.Name
	cur.Hostname = s.Hostname
	return nil
}

func (r *fakeRepo) UpdateStatus(_ context.Context, id string, online bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.servers[id]
	if !ok {
		return domain.ErrServerNotFound
	}
	cur.IsOnline = online
	return nil
}

func (r *fakeRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.servers[id]; !ok {
		return domain.ErrServerNotFound
	}
	delete(r.servers, id)
	return nil
}

type fakeMonitor struct {
	stopped []string
}

func (m *fakeMonitor) StopMonitoring(_ context.Context, id string) error {
	m.stopped = append(m.stopped, id)
	return nil
}

type fakeTester struct {
	err error
}

func (t *fakeTester) Test(context.Context, domain.TestConnectionRequest) error {
	return t.err
}

var (
	admin = &domain.User{ID: "admin-1", Role: domain.RoleAdmin}
	alice = &domain.User{ID: "alice", Role: domain.RoleUser}
	bob   = &domain.User{ID: "bob", Role: domain.RoleUser}
)

func newTestService() (*Service, *fakeRepo, *fakeMonitor, *fakeTester) {
	repo := newFakeRepo()
	mon := &fakeMonitor{}
	tester := &fakeTester{}
	svc := NewService(repo, mon, tester, logger.NewNop()).(*Service)
	return svc, repo, mon, tester
}

func TestRegister(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	srv, err := svc.Register(ctx, domain.ServerSaveRequest{Name: " web ", Hostname: "Web-1.Example.com"}, alice)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if srv.ID == "" || srv.Hostname != "web-1.example.com" || srv.Port != 22 || srv.IsOnline {
		t.Fatalf("unexpected server %+v", srv)
	}
	if srv.CreatedBy == nil || *srv.CreatedBy != "alice" {
		t.Fatal("owner not recorded")
	}

	if _, err := svc.Register(ctx, domain.ServerSaveRequest{Name: "dup", Hostname: "web-1.example.com"}, bob); !errors.Is(err, domain.ErrHostnameTaken) {
		t.Fatalf("err = %v, want ErrHostnameTaken", err)
	}
}

func TestListScopesByOwner(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	svc.Register(ctx, domain.ServerSaveRequest{Name: "a", Hostname: "a"}, alice)
	svc.Register(ctx, domain.ServerSaveRequest{Name: "b", Hostname: "b"}, bob)

	all, _ := svc.List(ctx, admin)
	own, _ := svc.List(ctx, alice)

	if len(all) != 2 || len(own) != 1 || own[0].Hostname != "a" {
		t.Fatalf("admin sees %d, alice sees %v", len(all), own)
	}
}

func TestOwnershipChecks(t *testing.T) {
	svc, _, mon, _ := newTestService()
	ctx := context.Background()

	srv, err := svc.Register(ctx, domain.ServerSaveRequest{Name: "a", Hostname: "a"}, alice)
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.UpdateStatus(ctx, srv.ID, true, bob); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("bob update status: err = %v", err)
	}
	if err := svc.Delete(ctx, srv.ID, bob); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("bob delete: err = %v", err)
	}
	if len(mon.stopped) != 0 {
		t.Fatal("forbidden delete stopped monitoring")
	}

	if err := svc.Update(ctx, domain.ServerSaveRequest{Name: "renamed", Hostname: "a"}, srv.ID, alice); err != nil {
		t.Fatalf("owner update: %v", err)
	}
	if err := svc.Delete(ctx, srv.ID, admin); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if len(mon.stopped) != 1 || mon.stopped[0] != srv.ID {
		t.Fatalf("monitoring not stopped before delete: %v", mon.stopped)
	}

	if err := svc.Delete(ctx, srv.ID, admin); !errors.Is(err, domain.ErrServerNotFound) {
		t.Fatalf("second delete: err = %v", err)
	}
}

func TestUpdateHostnameConflict(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	a, _ := svc.Register(ctx, domain.ServerSaveRequest{Name: "a", Hostname: "a"}, alice)
	svc.Register(ctx, domain.ServerSaveRequest{Name: "b", Hostname: "b"}, alice)

	if err := svc.Update(ctx, domain.ServerSaveRequest{Name: "a", Hostname: "B"}, a.ID, alice); !errors.Is(err, domain.ErrHostnameTaken) {
		t.Fatalf("err = %v, want ErrHostnameTaken", err)
	}
}

func TestTestConnection(t *testing.T) {
	svc, _, _, tester := newTestService()
	ctx := context.Background()
	req := domain.TestConnectionRequest{Host: "10.0.0.1", Port: 22, Username: "root", Password: "x"}

	res, err := svc.TestConnection(ctx, req)
	if err != nil || !res.Success {
		t.Fatalf("TestConnection = %+v, %v", res, err)
	}

	tester.err = errors.New("ssh: handshake failed")
	res, err = svc.TestConnection(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if res.Success || res.Message != "ssh: handshake failed" {
		t.Fatalf("unexpected result %+v", res)
	}
}
