package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nfshanq/ptyctl/src/apierr"
	"github.com/nfshanq/ptyctl/src/backend"
	"github.com/nfshanq/ptyctl/src/backend/sshssh"
	"github.com/nfshanq/ptyctl/src/backend/telnet"
	"github.com/nfshanq/ptyctl/src/buffer"
)

const (
	cleanupInterval = 30 * time.Second

	defaultSSHPort    = 22
	defaultTelnetPort = 23

	defaultPTYCols = 120
	defaultPTYRows = 40
	defaultTerm    = "xterm-256color"

	defaultConnectTimeout = 15 * time.Second
	defaultLockTTLMS      = 60_000

	telnetSecurityWarning = "Telnet transmits all session data, including credentials, in cleartext."
)

// OpenRequest is one ptyctl_session open call.
type OpenRequest struct {
	Protocol Protocol
	Host     string
	Port     int
	Username string

	SessionType Type
	DeviceID    string

	PTYEnabled *bool
	Cols, Rows uint16
	TermType   string

	ConnectTimeoutMS int64
	IdleTimeoutMS    int64

	SSH    sshssh.Config
	Telnet telnet.Config

	AcquireLock bool
	TaskID      string
	LockTTLMS   int64

	MaxBufferBytes int
	MaxBufferLines int
}

// OpenResult is the response to a successful (or deduplicated) open.
type OpenResult struct {
	SessionID         string
	ExistingSessionID string
	Protocol          Protocol
	PTYEnabled        bool
	SecurityWarning   string
}

// Manager owns every live session, the console-session device index, and
// the idle reaper.
type Manager struct {
	mu              sync.RWMutex
	sessions        map[string]*Session
	consoleByDevice map[string]string

	maxSessions int

	// defaultHostKeyPolicy applies to SSH opens that carry no per-request
	// policy; recordTxEvents is inherited by every session at open.
	defaultHostKeyPolicy sshssh.HostKeyPolicy
	recordTxEvents       bool

	reaperOnce sync.Once
	stopCh     chan struct{}
}

// NewManager creates an empty Manager capped at maxSessions concurrent
// sessions. defaultHostKeyPolicy is the configuration-level host key
// policy used when an open request does not name one; recordTxEvents
// enables the sensitive-write log line for every session opened here.
func NewManager(maxSessions int, defaultHostKeyPolicy sshssh.HostKeyPolicy, recordTxEvents bool) *Manager {
	if defaultHostKeyPolicy == "" {
		defaultHostKeyPolicy = sshssh.HostKeyStrict
	}
	return &Manager{
		sessions:             make(map[string]*Session),
		consoleByDevice:      make(map[string]string),
		maxSessions:          maxSessions,
		defaultHostKeyPolicy: defaultHostKeyPolicy,
		recordTxEvents:       recordTxEvents,
		stopCh:               make(chan struct{}),
	}
}

// Open resolves defaults, builds the backend, and registers a new session.
// A console open for a device that already has a live session returns that
// session instead of creating one.
func (m *Manager) Open(ctx context.Context, req OpenRequest) (OpenResult, error) {
	sessionType := req.SessionType
	if sessionType == "" {
		sessionType = TypeNormal
	}

	if sessionType == TypeConsole {
		if req.DeviceID == "" {
			return OpenResult{}, apierr.InvalidArgumentf("device_id is required for console sessions")
		}
		m.mu.RLock()
		existingID, ok := m.consoleByDevice[req.DeviceID]
		var existing *Session
		if ok {
			existing, ok = m.sessions[existingID]
		}
		m.mu.RUnlock()
		if ok && existing != nil && existing.State() != StateClosed {
			return OpenResult{ExistingSessionID: existingID, SessionID: existingID, Protocol: existing.Protocol, PTYEnabled: existing.PTYEnabled}, nil
		}
		if ok {
			m.mu.Lock()
			delete(m.consoleByDevice, req.DeviceID)
			m.mu.Unlock()
		}
	}

	m.mu.RLock()
	count := len(m.sessions)
	m.mu.RUnlock()
	if count >= m.maxSessions {
		return OpenResult{}, apierr.InvalidArgumentf("maximum session count (%d) reached", m.maxSessions)
	}

	port := req.Port
	if port == 0 {
		if req.Protocol == ProtocolTelnet {
			port = defaultTelnetPort
		} else {
			port = defaultSSHPort
		}
	}

	ptyEnabled := true
	if req.PTYEnabled != nil {
		ptyEnabled = *req.PTYEnabled
	}
	cols, rows := req.Cols, req.Rows
	if cols == 0 {
		cols = defaultPTYCols
	}
	if rows == 0 {
		rows = defaultPTYRows
	}
	term := req.TermType
	if term == "" {
		term = defaultTerm
	}

	connectTimeout := time.Duration(req.ConnectTimeoutMS) * time.Millisecond
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}

	id := uuid.NewString()
	maxBytes := req.MaxBufferBytes
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}
	maxLines := req.MaxBufferLines
	if maxLines <= 0 {
		maxLines = 10_000
	}
	buf := buffer.New(maxBytes, maxLines)

	sess := New(id, req.Protocol, req.Host, port, buf, NowMS())
	sess.Type = sessionType
	sess.DeviceID = req.DeviceID
	sess.PTYEnabled = ptyEnabled
	sess.Cols, sess.Rows = cols, rows
	sess.IdleTimeoutMS = req.IdleTimeoutMS
	sess.recordTxEvents = m.recordTxEvents

	handle := backend.NewOutputHandle(buf, func(n int) {
		sess.AddBytesIn(n, NowMS())
		sess.Notify()
	})

	var be backend.Backend
	var err error

	switch req.Protocol {
	case ProtocolSSH:
		cfg := req.SSH
		cfg.Host, cfg.Port = req.Host, port
		cfg.Username = req.Username
		cfg.ConnectTimeout = connectTimeout
		cfg.PTYEnabled = ptyEnabled
		cfg.Cols, cfg.Rows = cols, rows
		if cfg.HostKeyPolicy == "" {
			cfg.HostKeyPolicy = m.defaultHostKeyPolicy
		}
		be, err = sshssh.Spawn(cfg, handle)
	case ProtocolTelnet:
		cfg := req.Telnet
		cfg.Host, cfg.Port = req.Host, port
		cfg.ConnectTimeout = connectTimeout
		cfg.TermType = term
		cfg.Cols, cfg.Rows = cols, rows
		sess.LineEnding = string(cfg.LineEnding)
		var tb *telnet.Backend
		tb, err = telnet.Dial(ctx, cfg, handle)
		be = tb
	default:
		return OpenResult{}, apierr.InvalidArgumentf("unknown protocol %q", req.Protocol)
	}

	if err != nil {
		return OpenResult{}, err
	}

	sess.AttachBackend(be)

	if req.AcquireLock {
		if req.TaskID == "" {
			return OpenResult{}, apierr.InvalidArgumentf("task_id is required when acquire_lock is true")
		}
		ttl := req.LockTTLMS
		if ttl <= 0 {
			ttl = defaultLockTTLMS
		}
		if err := sess.Lock(req.TaskID, ttl, NowMS()); err != nil {
			_ = sess.Close(true)
			return OpenResult{}, err
		}
	}

	m.mu.Lock()
	m.sessions[id] = sess
	if sessionType == TypeConsole {
		m.consoleByDevice[req.DeviceID] = id
	}
	m.mu.Unlock()

	m.startReaper()

	res := OpenResult{
		SessionID:  id,
		Protocol:   req.Protocol,
		PTYEnabled: ptyEnabled,
	}
	if req.Protocol == ProtocolTelnet {
		res.SecurityWarning = telnetSecurityWarning
	}
	return res, nil
}

// Get returns a session by id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, apierr.NotFoundf("session %q not found", id)
	}
	return s, nil
}

// Close is idempotent: it transitions the session's state, tears down the
// backend, and removes the session from both maps.
func (m *Manager) Close(id string, force bool) error {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}

	err := s.Close(force)

	m.mu.Lock()
	delete(m.sessions, id)
	if s.Type == TypeConsole {
		if m.consoleByDevice[s.DeviceID] == id {
			delete(m.consoleByDevice, s.DeviceID)
		}
	}
	m.mu.Unlock()

	return err
}

// List returns a weak snapshot of every live session.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// startReaper starts the idle-reaper background task, once.
func (m *Manager) startReaper() {
	m.reaperOnce.Do(func() {
		go m.reapLoop()
	})
}

func (m *Manager) reapLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.cleanupIdle()
		case <-m.stopCh:
			return
		}
	}
}

// cleanupIdle force-closes every session idle past its timeout.
func (m *Manager) cleanupIdle() {
	now := NowMS()
	for _, s := range m.List() {
		if s.IdleTimeoutMS <= 0 {
			continue
		}
		if now-s.LastActivityMS() > s.IdleTimeoutMS {
			if err := m.Close(s.ID, true); err != nil {
				logrus.WithError(err).WithField("session_id", s.ID).Warn("idle reaper: close failed")
			}
		}
	}
}

// Stop halts the idle reaper. Intended for tests and graceful shutdown.
func (m *Manager) Stop() {
	close(m.stopCh)
}
