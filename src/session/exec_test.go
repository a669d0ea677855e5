package session

import (
	"strings"
	"testing"
	"time"
)

// simulatedShell feeds a canned response back into the session's buffer
// shortly after a command is written to the fake backend, mimicking a
// remote shell that echoes sentinel markers.
func simulatedShell(s *Session, handle interface {
	Push([]byte)
}, fb *fakeBackend, response []byte) {
	fb.onWrite = func(p []byte) {
		go func() {
			time.Sleep(5 * time.Millisecond)
			handle.Push(response)
		}()
	}
}

func TestExecRCCapture(t *testing.T) {
	s, fb, handle := newTestSession(TypeNormal)
	simulatedShell(s, handle, fb, []byte("ok\nRC=3\n"))

	res, err := s.Exec(ExecRequest{
		Cmd:       "true",
		TimeoutMS: 2000,
		RCMode:    RCMode{Enabled: true},
	})
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if res.ExitCode == nil || *res.ExitCode != 3 {
		t.Fatalf("expected exit_code=3, got %+v", res.ExitCode)
	}
	if !strings.Contains(res.Stdout, "ok") {
		t.Fatalf("expected stdout to contain ok, got %q", res.Stdout)
	}
	if strings.Contains(res.Stdout, "RC=") {
		t.Fatalf("expected sentinel stripped from stdout, got %q", res.Stdout)
	}
}

func TestExecFallbackRC(t *testing.T) {
	s, fb, handle := newTestSession(TypeNormal)

	var token string
	fb.onWrite = func(p []byte) {
		cmd := string(p)
		idx := strings.Index(cmd, "PTYCTL_RC_")
		if idx < 0 {
			return
		}
		eq := strings.IndexByte(cmd[idx:], '=')
		token = cmd[idx+len("PTYCTL_RC_") : idx+eq]
		go func() {
			time.Sleep(5 * time.Millisecond)
			handle.Push([]byte("ok\nPTYCTL_RC_" + token + "=7:END_" + token + "\n"))
		}()
	}

	res, err := s.Exec(ExecRequest{
		Cmd:       "true",
		TimeoutMS: 2000,
		RCMode:    RCMode{Enabled: true},
	})
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if res.ExitCode == nil || *res.ExitCode != 7 {
		t.Fatalf("expected exit_code=7 via fallback marker, got %+v", res.ExitCode)
	}
	if res.ExitCodeReason != "" {
		t.Fatalf("expected no exit_code_reason on success, got %q", res.ExitCodeReason)
	}
}

func TestExecMarkerNotSeen(t *testing.T) {
	s, fb, handle := newTestSession(TypeNormal)
	simulatedShell(s, handle, fb, []byte("some output with no marker\n"))

	res, err := s.Exec(ExecRequest{
		Cmd:       "true",
		TimeoutMS: 150,
		RCMode:    RCMode{Enabled: true},
	})
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if res.ExitCode != nil {
		t.Fatalf("expected no exit_code, got %v", *res.ExitCode)
	}
	if res.ExitCodeReason != ExitCodeMarkerNotSeen {
		t.Fatalf("expected marker_not_seen, got %q", res.ExitCodeReason)
	}
	if res.DoneReason != DoneTimeout || !res.TimedOut {
		t.Fatalf("expected a timeout done_reason, got %+v", res)
	}
}

func TestExecDisabledRCModeUnsupported(t *testing.T) {
	s, fb, handle := newTestSession(TypeNormal)
	simulatedShell(s, handle, fb, []byte("plain output\n"))

	res, err := s.Exec(ExecRequest{
		Cmd:       "true",
		TimeoutMS: 150,
	})
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if res.ExitCodeReason != ExitCodeUnsupported {
		t.Fatalf("expected unsupported, got %q", res.ExitCodeReason)
	}
}

func TestExecRespectsWriteAccess(t *testing.T) {
	s, _, _ := newTestSession(TypeConsole)

	_, err := s.Exec(ExecRequest{Cmd: "true", TimeoutMS: 100, RCMode: RCMode{Enabled: true}})
	if err == nil {
		t.Fatal("expected Exec on a locked-required console session with no lock to fail")
	}
}
