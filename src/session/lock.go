package session

import (
	"sync"

	"github.com/nfshanq/ptyctl/src/apierr"
)

// LockInfo is the advisory task lock a session can hold.
type LockInfo struct {
	TaskID              string
	AcquiredAtMS        int64
	ExpiresAtMS         int64
	HeartbeatIntervalMS int64
}

// lockGuard is a separate exclusive lock from the session's state mutex, so
// lock operations never head-of-line block behind buffer or counter access
//.
type lockGuard struct {
	mu   sync.Mutex
	info *LockInfo
}

// pruneLocked clears an expired lock. Caller holds g.mu.
func (g *lockGuard) pruneLocked(nowMS int64) {
	if g.info != nil && g.info.ExpiresAtMS <= nowMS {
		g.info = nil
	}
}

func (s *Session) lg() *lockGuard {
	return s.lockGuardVal
}

// Lock acquires or extends the session's advisory lock for taskID.
func (s *Session) Lock(taskID string, ttlMS int64, nowMS int64) error {
	if taskID == "" {
		return apierr.InvalidArgumentf("task_id is required to acquire a lock")
	}
	g := s.lg()
	g.mu.Lock()
	defer g.mu.Unlock()

	g.pruneLocked(nowMS)

	if g.info != nil {
		if g.info.TaskID == taskID {
			g.info.ExpiresAtMS = nowMS + ttlMS
			g.info.HeartbeatIntervalMS = ttlMS
			return nil
		}
		return apierr.InvalidArgumentf("session is locked by task %q", g.info.TaskID)
	}

	g.info = &LockInfo{
		TaskID:              taskID,
		AcquiredAtMS:        nowMS,
		ExpiresAtMS:         nowMS + ttlMS,
		HeartbeatIntervalMS: ttlMS,
	}
	return nil
}

// Heartbeat extends an already-held lock. ttlMS of 0 reuses the last
// interval.
func (s *Session) Heartbeat(taskID string, ttlMS int64, nowMS int64) error {
	g := s.lg()
	g.mu.Lock()
	defer g.mu.Unlock()

	g.pruneLocked(nowMS)

	if g.info == nil || g.info.TaskID != taskID {
		return apierr.InvalidArgumentf("session is not locked by task %q", taskID)
	}
	if ttlMS <= 0 {
		ttlMS = g.info.HeartbeatIntervalMS
	}
	g.info.ExpiresAtMS = nowMS + ttlMS
	g.info.HeartbeatIntervalMS = ttlMS
	return nil
}

// Unlock clears the lock if held by taskID.
func (s *Session) Unlock(taskID string, nowMS int64) error {
	g := s.lg()
	g.mu.Lock()
	defer g.mu.Unlock()

	g.pruneLocked(nowMS)

	if g.info == nil || g.info.TaskID != taskID {
		return apierr.InvalidArgumentf("session is not locked by task %q", taskID)
	}
	g.info = nil
	return nil
}

// LockSnapshot returns a copy of the current lock, or nil if unlocked (after
// pruning any expired lock).
func (s *Session) LockSnapshot(nowMS int64) *LockInfo {
	g := s.lg()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pruneLocked(nowMS)
	if g.info == nil {
		return nil
	}
	cp := *g.info
	return &cp
}

// EnsureWriteAccess enforces write-access rule: a held lock
// restricts writes to its holder; an unlocked console session rejects all
// writers.
func (s *Session) EnsureWriteAccess(taskID string, nowMS int64) error {
	g := s.lg()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pruneLocked(nowMS)

	if g.info != nil {
		if taskID == "" || taskID != g.info.TaskID {
			return apierr.InvalidArgumentf("session is locked by task %q", g.info.TaskID)
		}
		return nil
	}

	if s.Type == TypeConsole {
		return apierr.InvalidArgumentf("Console sessions require a lock for write access")
	}
	return nil
}
