package ssh

import (
	"context"
	"net"
	"testing"
	"time"

	"fleetmon-server/internal/domain"
)

func TestTester_UnreachableHost(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()

	err = NewTester(time.Second).Test(context.Background(), domain.TestConnectionRequest{
		Host:     "127.0.0.1",
		Port:     addr.Port,
		Username: "root",
		Password: "x",
	})
	if err == nil {
		t.Fatal("expected connection error")
	}
}

func TestTester_NotAnSSHServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Write([]byte("HTTP/1.1 400 Bad Request\r\n\r\n"))
			conn.Close()
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port

	err = NewTester(2*time.Second).Test(context.Background(), domain.TestConnectionRequest{
		Host:     "127.0.0.1",
		Port:     port,
		Username: "root",
		Password: "x",
	})
	if err == nil {
		t.Fatal("expected handshake error")
	}
}
