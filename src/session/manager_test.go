package session

import (
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/nfshanq/ptyctl/src/backend/sshssh"
)

func newTestManager(maxSessions int) *Manager {
	return NewManager(maxSessions, sshssh.HostKeyStrict, false)
}

func listenLoopback(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	return ln
}

func hostPort(t *testing.T, ln net.Listener) (string, int) {
	t.Helper()
	_, portStr, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("atoi port: %v", err)
	}
	return "127.0.0.1", port
}

func TestManagerOpenTelnetReturnsSecurityWarning(t *testing.T) {
	ln := listenLoopback(t)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			defer conn.Close()
			time.Sleep(50 * time.Millisecond)
		}
	}()

	host, port := hostPort(t, ln)
	m := newTestManager(10)
	defer m.Stop()

	res, err := m.Open(context.Background(), OpenRequest{
		Protocol: ProtocolTelnet,
		Host:     host,
		Port:     port,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if res.SessionID == "" {
		t.Fatal("expected a session id")
	}
	if !strings.Contains(res.SecurityWarning, "cleartext") {
		t.Fatalf("expected a cleartext security warning, got %q", res.SecurityWarning)
	}

	if _, err := m.Get(res.SessionID); err != nil {
		t.Fatalf("expected session to be registered: %v", err)
	}
}

func TestManagerConsoleSessionDedup(t *testing.T) {
	ln := listenLoopback(t)
	defer ln.Close()
	go func() {
		for i := 0; i < 2; i++ {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				time.Sleep(200 * time.Millisecond)
			}()
		}
	}()

	host, port := hostPort(t, ln)
	m := newTestManager(10)
	defer m.Stop()

	first, err := m.Open(context.Background(), OpenRequest{
		Protocol:    ProtocolTelnet,
		Host:        host,
		Port:        port,
		SessionType: TypeConsole,
		DeviceID:    "device-1",
	})
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}

	second, err := m.Open(context.Background(), OpenRequest{
		Protocol:    ProtocolTelnet,
		Host:        host,
		Port:        port,
		SessionType: TypeConsole,
		DeviceID:    "device-1",
		AcquireLock: true,
		TaskID:      "task-x",
	})
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	if second.ExistingSessionID != first.SessionID {
		t.Fatalf("expected second open to return the existing session id, got %+v", second)
	}

	sess, err := m.Get(first.SessionID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if info := sess.LockSnapshot(NowMS()); info != nil {
		t.Fatalf("expected no lock on the existing console session, got %+v", info)
	}
}

func TestManagerCloseIsIdempotent(t *testing.T) {
	ln := listenLoopback(t)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			defer conn.Close()
			time.Sleep(50 * time.Millisecond)
		}
	}()

	host, port := hostPort(t, ln)
	m := newTestManager(10)
	defer m.Stop()

	res, err := m.Open(context.Background(), OpenRequest{Protocol: ProtocolTelnet, Host: host, Port: port})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := m.Close(res.SessionID, true); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := m.Close(res.SessionID, true); err != nil {
		t.Fatalf("second Close (idempotent) should not error: %v", err)
	}
	if _, err := m.Get(res.SessionID); err == nil {
		t.Fatal("expected session to be gone after Close")
	}
}

func TestManagerEnforcesMaxSessions(t *testing.T) {
	ln := listenLoopback(t)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			defer conn.Close()
			time.Sleep(200 * time.Millisecond)
		}
	}()

	host, port := hostPort(t, ln)
	m := newTestManager(1)
	defer m.Stop()

	if _, err := m.Open(context.Background(), OpenRequest{Protocol: ProtocolTelnet, Host: host, Port: port}); err != nil {
		t.Fatalf("first Open: %v", err)
	}

	_, err := m.Open(context.Background(), OpenRequest{Protocol: ProtocolTelnet, Host: host, Port: port})
	if err == nil {
		t.Fatal("expected the second Open to fail once max_sessions is reached")
	}
}
