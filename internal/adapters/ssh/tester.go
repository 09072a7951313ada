// Package ssh
package ssh

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"fleetmon-server/internal/domain"

	"golang.org/x/crypto/ssh"
)

const DefaultTimeout = 30 * time.Second

// Tester opens an SSH session with password auth and closes it right away.
type Tester struct {
	timeout time.Duration
}

func NewTester(timeout time.Duration) *Tester {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Tester{timeout: timeout}
}

func (t *Tester) Test(ctx context.Context, req domain.TestConnectionRequest) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	addr := net.JoinHostPort(req.Host, strconv.Itoa(req.Port))

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	cfg := &ssh.ClientConfig{
		User: req.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(req.Password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = req.Password
				}
				return answers, nil
			}),
		},
		// host keys are not pinned for a one-off reachability check
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         t.timeout,
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		return fmt.Errorf("ssh handshake failed: %w", err)
	}
	client := ssh.NewClient(c, chans, reqs)
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	session.Close()

	return nil
}
