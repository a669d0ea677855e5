// Package session implements the per-connection Session type: state,
// ExpectConfig, the write path, and the notifier that the cursor-read
// primitive suspends on. Readers share one monotonic cursor stream, so a
// single wake-all notifier replaces per-reader subscriber channels.
package session

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nfshanq/ptyctl/src/apierr"
	"github.com/nfshanq/ptyctl/src/backend"
	"github.com/nfshanq/ptyctl/src/buffer"
)

// Protocol identifies which backend a session was opened with.
type Protocol string

const (
	ProtocolSSH    Protocol = "ssh"
	ProtocolTelnet Protocol = "telnet"
)

// Type distinguishes ordinary sessions from device-pinned console sessions.
type Type string

const (
	TypeNormal  Type = "normal"
	TypeConsole Type = "console"
)

// State is the monotonic lifecycle state of a Session: open -> closing ->
// closed, with error as a terminal alternative.
type State string

const (
	StateOpen    State = "open"
	StateClosing State = "closing"
	StateClosed  State = "closed"
	StateError   State = "error"
)

// ExpectConfig holds the regexes a caller can attach to a session to detect
// prompts, pagers, and error text in captured output.
type ExpectConfig struct {
	PromptRegex  string
	PagerRegexes []string
	ErrorRegexes []string
}

// Session is one interactive connection: its backend, its output buffer,
// its lock state, and the bookkeeping the facade needs to answer
// session/status queries.
type Session struct {
	ID       string
	Protocol Protocol
	Host     string
	Port     int
	Type     Type
	DeviceID string

	CreatedAtMS int64

	PTYEnabled bool
	Cols, Rows uint16
	LineEnding string // telnet only; empty for ssh

	IdleTimeoutMS int64

	backend backend.Backend
	buf     *buffer.OutputBuffer

	mu             sync.Mutex
	state          State
	lastActivityMS int64
	bytesIn        uint64
	bytesOut       uint64
	expect         ExpectConfig
	lock           *LockInfo

	// recordTxEvents is resolved from manager configuration at open and
	// never changes afterward; individual writes opt in via sensitive.
	recordTxEvents bool

	lockGuardVal *lockGuard

	notifyMu sync.Mutex
	wake     chan struct{}
}

// New builds a session around buf, without a backend. The caller builds an
// OutputHandle from buf and the returned session's AddBytesIn/Notify
// methods, constructs the backend with it, and then calls AttachBackend.
func New(id string, proto Protocol, host string, port int, buf *buffer.OutputBuffer, now int64) *Session {
	s := &Session{
		ID:             id,
		Protocol:       proto,
		Host:           host,
		Port:           port,
		Type:           TypeNormal,
		CreatedAtMS:    now,
		buf:            buf,
		state:          StateOpen,
		lastActivityMS: now,
		wake:           make(chan struct{}),
		lockGuardVal:   &lockGuard{},
	}
	return s
}

// AttachBackend finishes construction once the backend is built; kept
// separate from New so a SessionManager can fail out of backend
// construction before a session is ever registered.
func (s *Session) AttachBackend(b backend.Backend) {
	s.backend = b
}

// Buffer returns the session's output buffer for read-side access.
func (s *Session) Buffer() *buffer.OutputBuffer {
	return s.buf
}

// Notify wakes every reader currently suspended in WaitForWake, by closing
// the current wake channel and swapping in a fresh one. Wake-all with
// post-wake re-snapshot: a waiter that observes the close always re-reads
// the buffer afterward rather than trusting the signal's payload.
func (s *Session) Notify() {
	s.notifyMu.Lock()
	old := s.wake
	s.wake = make(chan struct{})
	s.notifyMu.Unlock()
	close(old)
}

// WaitForWake returns a channel that closes on the next Notify call.
func (s *Session) WaitForWake() <-chan struct{} {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	return s.wake
}

// markActivity updates last-activity under the state mutex.
func (s *Session) markActivity(now int64) {
	s.mu.Lock()
	s.lastActivityMS = now
	s.mu.Unlock()
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// setState transitions state; callers are responsible for only moving it
// forward (open -> closing -> closed, or -> error).
func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// LastActivityMS returns the last-activity timestamp in epoch milliseconds.
func (s *Session) LastActivityMS() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivityMS
}

// Counters returns bytes_in/bytes_out for status reporting.
func (s *Session) Counters() (in, out uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytesIn, s.bytesOut
}

// AddBytesIn is called by the reader goroutine for every chunk it pushes
// into the buffer; the reader is the only place bytes_in is accounted.
func (s *Session) AddBytesIn(n int, now int64) {
	s.mu.Lock()
	s.bytesIn += uint64(n)
	s.lastActivityMS = now
	s.mu.Unlock()
}

// SetExpect replaces the session's ExpectConfig.
func (s *Session) SetExpect(cfg ExpectConfig) {
	s.mu.Lock()
	s.expect = cfg
	s.mu.Unlock()
}

// Expect returns a copy of the current ExpectConfig.
func (s *Session) Expect() ExpectConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expect
}

// Write delegates to the backend, then bumps bytes_out and last_activity.
// A sensitive write emits a one-line structured log when the session was
// opened with record_tx_events enabled; the payload itself is never logged.
func (s *Session) Write(p []byte, sensitive bool, now int64) (int, error) {
	n, err := s.backend.Write(p)
	if err != nil {
		return n, err
	}

	s.mu.Lock()
	s.bytesOut += uint64(n)
	s.lastActivityMS = now
	recordTx := s.recordTxEvents
	s.mu.Unlock()

	if recordTx && sensitive {
		logrus.WithFields(logrus.Fields{
			"session_id": s.ID,
			"bytes":      n,
		}).Info("sensitive session write")
	}

	return n, nil
}

// SendKey looks up the byte sequence for a symbolic key and writes it.
func (s *Session) SendKey(key string, sensitive bool, now int64) (int, error) {
	seq, ok := KeyBytes(key, s.Protocol)
	if !ok {
		return 0, apierr.InvalidArgumentf("unknown key %q", key)
	}
	return s.Write(seq, sensitive, now)
}

// Resize delegates to the backend and updates the stored dimensions
// atomically.
func (s *Session) Resize(cols, rows uint16) error {
	if err := s.backend.Resize(cols, rows); err != nil {
		return err
	}
	s.mu.Lock()
	s.Cols, s.Rows = cols, rows
	s.mu.Unlock()
	return nil
}

// IsEOF reports whether the backend's reader has observed EOF.
func (s *Session) IsEOF() bool {
	return s.backend.IsEOF()
}

// Close transitions the session to closing, asks the backend to tear down,
// then marks closed. Idempotent: closing an already-closed session is a
// no-op.
func (s *Session) Close(force bool) error {
	s.mu.Lock()
	if s.state == StateClosed || s.state == StateClosing {
		s.mu.Unlock()
		return nil
	}
	s.state = StateClosing
	s.mu.Unlock()

	err := s.backend.Close(force)

	s.setState(StateClosed)
	s.Notify()

	return err
}

// NowMS returns the current wall-clock time in epoch milliseconds, the unit
// of every timestamp this package stores.
func NowMS() int64 {
	return time.Now().UnixMilli()
}
