// Package sshssh implements the SSH backend: it shells out to the system
// ssh binary attached to a PTY. There is no in-process SSH cryptography;
// authentication and encryption are the child process's problem.
package sshssh

import (
	"math"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/nfshanq/ptyctl/src/apierr"
	"github.com/nfshanq/ptyctl/src/backend"
)

// WriteTempKey writes pem to a 0600-permission file under os.TempDir, for
// callers that accept a private key inline rather than a path on disk. The
// caller's session owns removing it via Close, which Backend.Close does
// whenever Config.KeyFile was set this way.
func WriteTempKey(pem string) (string, error) {
	path := os.TempDir() + "/ptyctl-key-" + uuid.NewString()
	if err := os.WriteFile(path, []byte(pem), 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// HostKeyPolicy selects the -o StrictHostKeyChecking value.
type HostKeyPolicy string

const (
	HostKeyStrict    HostKeyPolicy = "yes"
	HostKeyAcceptNew HostKeyPolicy = "accept-new"
	HostKeyDisabled  HostKeyPolicy = "no"
)

// PolicyFromName maps a configuration-level policy name (strict, acceptnew,
// disabled) to its StrictHostKeyChecking value. Unknown names resolve to
// strict, the safest interpretation.
func PolicyFromName(name string) HostKeyPolicy {
	switch strings.ToLower(name) {
	case "acceptnew", "accept_new", "accept-new":
		return HostKeyAcceptNew
	case "disabled":
		return HostKeyDisabled
	default:
		return HostKeyStrict
	}
}

// AuthMethod selects the PreferredAuthentications pin.
type AuthMethod string

const (
	AuthAgent    AuthMethod = "agent"
	AuthPassword AuthMethod = "password"
)

// Config describes how to build the ssh argv.
type Config struct {
	Host           string
	Port           int
	Username       string
	HostKeyPolicy  HostKeyPolicy
	KnownHostsPath string
	DisableConfig  bool
	ConfigPath     string
	AuthMethod     AuthMethod
	ExtraArgs      []string
	ConnectTimeout time.Duration
	KeyFile        string // path to a PEM key already written to disk with 0600 perms
	PTYEnabled     bool
	Cols, Rows     uint16
}

// BuildArgs assembles the ssh argv deterministically; the argument order
// is a compatibility contract, not an accident.
func BuildArgs(cfg Config) []string {
	var args []string

	args = append(args, "-p", strconv.Itoa(cfg.Port))

	if cfg.Username != "" {
		args = append(args, "-l", cfg.Username)
	}

	policy := cfg.HostKeyPolicy
	if policy == "" {
		// Callers resolve the per-request/global layering before this
		// point; an empty policy here still pins the strict default.
		policy = HostKeyStrict
	}
	args = append(args, "-o", "StrictHostKeyChecking="+string(policy))

	if cfg.KnownHostsPath != "" {
		args = append(args, "-o", "UserKnownHostsFile="+cfg.KnownHostsPath)
	}

	if cfg.DisableConfig {
		args = append(args, "-F", "/dev/null")
	} else if cfg.ConfigPath != "" {
		args = append(args, "-F", cfg.ConfigPath)
	}

	switch cfg.AuthMethod {
	case AuthPassword:
		args = append(args, "-o", "PreferredAuthentications=password,keyboard-interactive")
	default:
		args = append(args, "-o", "PreferredAuthentications=publickey")
	}

	args = append(args, cfg.ExtraArgs...)

	connTimeoutSec := int(math.Ceil(cfg.ConnectTimeout.Seconds()))
	if connTimeoutSec < 1 {
		connTimeoutSec = 1
	}
	args = append(args, "-o", "ConnectTimeout="+strconv.Itoa(connTimeoutSec))

	if cfg.KeyFile != "" {
		args = append(args, "-i", cfg.KeyFile)
	}

	if cfg.PTYEnabled {
		args = append(args, "-tt")
	} else {
		args = append(args, "-T")
	}

	args = append(args, cfg.Host)

	return args
}

// Backend is the SSH PTY backend: an ssh child process attached to a PTY,
// with a dedicated reader goroutine pushing everything the child prints
// into the session's output buffer.
type Backend struct {
	ptmx    *os.File
	cmd     *exec.Cmd
	keyFile string

	writeMu sync.Mutex // serializes writes to the PTY master

	mu      sync.Mutex
	closed  bool
	eof     bool
	usePgrp bool
}

// Spawn starts the ssh child process attached to a freshly allocated PTY of
// the requested size, and starts the reader goroutine pushing bytes into
// out.
func Spawn(cfg Config, out *backend.OutputHandle) (*Backend, error) {
	args := BuildArgs(cfg)
	cmd := exec.Command("ssh", args...)
	cmd.Env = append(os.Environ(), "TERM="+ttyTerm())

	usePgrp := runtime.GOOS == "linux"
	if usePgrp {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	}

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: cfg.Cols, Rows: cfg.Rows})
	if err != nil {
		return nil, apierr.ConnectFailedf("ssh pty allocation failed: %v", err)
	}

	b := &Backend{
		ptmx:    ptmx,
		cmd:     cmd,
		keyFile: cfg.KeyFile,
		usePgrp: usePgrp,
	}

	go b.readLoop(out)

	return b, nil
}

func ttyTerm() string {
	return "xterm-256color"
}

// readLoop is the dedicated OS thread (goroutine, pinned by blocking I/O)
// that owns the PTY's reader.
func (b *Backend) readLoop(out *backend.OutputHandle) {
	buf := make([]byte, 4096)
	for {
		n, err := b.ptmx.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			out.Push(chunk)
		}
		if err != nil {
			b.mu.Lock()
			b.eof = true
			b.mu.Unlock()
			out.Push(nil) // wake any waiters blocked on the buffer.
			return
		}
	}
}

// Write writes to the PTY master under writeMu. It is a direct blocking
// write on the fd, made on the calling goroutine of the session write path.
func (b *Backend) Write(p []byte) (int, error) {
	b.writeMu.Lock()
	n, err := b.ptmx.Write(p)
	b.writeMu.Unlock()
	if err != nil {
		return n, apierr.IOErrorf("ssh pty write failed: %v", err)
	}
	return n, nil
}

// Resize changes the PTY window size under the backend's mutex.
func (b *Backend) Resize(cols, rows uint16) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return apierr.IOErrorf("ssh backend closed")
	}
	if err := pty.Setsize(b.ptmx, &pty.Winsize{Cols: cols, Rows: rows}); err != nil {
		return apierr.IOErrorf("ssh pty resize failed: %v", err)
	}
	return nil
}

// IsEOF reports whether the reader observed EOF or a fatal read error.
func (b *Backend) IsEOF() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.eof
}

// Close kills the ssh child (its process group on Linux), closes the PTY,
// and removes the temporary key file if one was written for this session.
// force is accepted for interface symmetry with Telnet; SSH always
// terminates the child outright since there is no graceful-shutdown
// handshake to race against.
func (b *Backend) Close(force bool) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	if b.ptmx != nil {
		_ = b.ptmx.Close()
	}

	if b.cmd != nil && b.cmd.Process != nil {
		pid := b.cmd.Process.Pid
		if b.usePgrp {
			_ = unix.Kill(-pid, unix.SIGKILL)
		} else {
			_ = b.cmd.Process.Kill()
		}
		_ = b.cmd.Wait()
	}

	if b.keyFile != "" {
		if err := os.Remove(b.keyFile); err != nil && !os.IsNotExist(err) {
			logrus.WithError(err).Warn("ssh backend: failed to remove temp key file")
		}
	}

	return nil
}
