package mcp

import (
	"context"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nfshanq/ptyctl/src/apierr"
	"github.com/nfshanq/ptyctl/src/backend/sshssh"
	"github.com/nfshanq/ptyctl/src/backend/telnet"
	"github.com/nfshanq/ptyctl/src/session"
)

// registerSessionTool wires the ptyctl_session tool: open/close/list/lock/
// unlock/heartbeat/status.
func (s *Server) registerSessionTool() error {
	gomcp.AddTool(s.mcpServer, &gomcp.Tool{
		Name:        "ptyctl_session",
		Description: "Open, close, list, lock, unlock, heartbeat, or inspect interactive SSH/Telnet terminal sessions.",
	}, LogToolCall("ptyctl_session", s.handleSession))
	return nil
}

func (s *Server) handleSession(ctx context.Context, req *gomcp.CallToolRequest, in SessionInput) (*gomcp.CallToolResult, SessionOutput, error) {
	switch in.Action {
	case "open":
		return s.sessionOpen(ctx, in)
	case "close":
		return s.sessionClose(in)
	case "list":
		return s.sessionList()
	case "lock":
		return s.sessionLock(in)
	case "unlock":
		return s.sessionUnlock(in)
	case "heartbeat":
		return s.sessionHeartbeat(in)
	case "status":
		return s.sessionStatus(in)
	default:
		return nil, SessionOutput{}, apierr.InvalidArgumentf("unknown action %q", in.Action)
	}
}

func (s *Server) sessionOpen(ctx context.Context, in SessionInput) (*gomcp.CallToolResult, SessionOutput, error) {
	if in.Protocol == "" || in.Host == "" {
		return nil, SessionOutput{}, apierr.InvalidArgumentf("open requires protocol and host")
	}

	req := session.OpenRequest{
		Protocol:         session.Protocol(in.Protocol),
		Host:             in.Host,
		Port:             in.Port,
		Username:         in.Username,
		SessionType:      session.Type(in.SessionType),
		DeviceID:         in.DeviceID,
		PTYEnabled:       in.PTYEnabled,
		Cols:             uint16(in.Cols),
		Rows:             uint16(in.Rows),
		TermType:         in.TermType,
		ConnectTimeoutMS: in.ConnectTimeoutMS,
		IdleTimeoutMS:    in.IdleTimeoutMS,
		AcquireLock:      in.AcquireLock,
		TaskID:           in.TaskID,
		LockTTLMS:        in.LockTTLMS,
		SSH: sshssh.Config{
			HostKeyPolicy:  hostKeyPolicy(in.HostKeyPolicy),
			KnownHostsPath: in.KnownHostsPath,
			DisableConfig:  in.DisableConfig,
			ConfigPath:     in.ConfigPath,
			AuthMethod:     sshssh.AuthMethod(in.AuthMethod),
			ExtraArgs:      in.ExtraArgs,
		},
		Telnet: telnet.Config{
			LineEnding: telnet.LineEnding(in.LineEnding),
		},
	}

	if in.KeyPEM != "" {
		keyFile, err := sshssh.WriteTempKey(in.KeyPEM)
		if err != nil {
			return nil, SessionOutput{}, apierr.IOErrorf("writing temporary key file: %v", err)
		}
		req.SSH.KeyFile = keyFile
	}

	res, err := s.manager.Open(ctx, req)
	if err != nil {
		return nil, SessionOutput{}, err
	}

	out := SessionOutput{
		SessionID:         res.SessionID,
		ExistingSessionID: res.ExistingSessionID,
		Protocol:          string(res.Protocol),
		PTYEnabled:        res.PTYEnabled,
		SecurityWarning:   res.SecurityWarning,
	}
	return nil, out, nil
}

func (s *Server) sessionClose(in SessionInput) (*gomcp.CallToolResult, SessionOutput, error) {
	if in.SessionID == "" {
		return nil, SessionOutput{}, apierr.NotFoundf("session_id is required")
	}
	if err := s.manager.Close(in.SessionID, in.Force); err != nil {
		return nil, SessionOutput{}, err
	}
	return nil, SessionOutput{SessionID: in.SessionID}, nil
}

func (s *Server) sessionList() (*gomcp.CallToolResult, SessionOutput, error) {
	entries := make([]SessionEntry, 0)
	for _, sess := range s.manager.List() {
		entries = append(entries, toSessionEntry(sess))
	}
	caps := fixedCapabilities
	return nil, SessionOutput{Sessions: entries, Capabilities: &caps}, nil
}

func (s *Server) sessionLock(in SessionInput) (*gomcp.CallToolResult, SessionOutput, error) {
	sess, err := s.manager.Get(in.SessionID)
	if err != nil {
		return nil, SessionOutput{}, err
	}
	if in.TaskID == "" {
		return nil, SessionOutput{}, apierr.InvalidArgumentf("task_id is required")
	}
	ttl := in.TTLMS
	if ttl <= 0 {
		ttl = in.LockTTLMS
	}
	if err := sess.Lock(in.TaskID, ttl, session.NowMS()); err != nil {
		return nil, SessionOutput{}, err
	}
	entry := toSessionEntry(sess)
	return nil, SessionOutput{Entry: &entry}, nil
}

func (s *Server) sessionUnlock(in SessionInput) (*gomcp.CallToolResult, SessionOutput, error) {
	sess, err := s.manager.Get(in.SessionID)
	if err != nil {
		return nil, SessionOutput{}, err
	}
	if err := sess.Unlock(in.TaskID, session.NowMS()); err != nil {
		return nil, SessionOutput{}, err
	}
	entry := toSessionEntry(sess)
	return nil, SessionOutput{Entry: &entry}, nil
}

func (s *Server) sessionHeartbeat(in SessionInput) (*gomcp.CallToolResult, SessionOutput, error) {
	sess, err := s.manager.Get(in.SessionID)
	if err != nil {
		return nil, SessionOutput{}, err
	}
	if err := sess.Heartbeat(in.TaskID, in.TTLMS, session.NowMS()); err != nil {
		return nil, SessionOutput{}, err
	}
	entry := toSessionEntry(sess)
	return nil, SessionOutput{Entry: &entry}, nil
}

func (s *Server) sessionStatus(in SessionInput) (*gomcp.CallToolResult, SessionOutput, error) {
	sess, err := s.manager.Get(in.SessionID)
	if err != nil {
		return nil, SessionOutput{}, err
	}
	entry := toSessionEntry(sess)
	return nil, SessionOutput{Entry: &entry}, nil
}

// hostKeyPolicy maps the wire-level policy names (strict, acceptnew,
// disabled) onto ssh option values, leaving absence empty so the manager's
// configured default applies.
func hostKeyPolicy(name string) sshssh.HostKeyPolicy {
	if name == "" {
		return ""
	}
	return sshssh.PolicyFromName(name)
}

func toSessionEntry(sess *session.Session) SessionEntry {
	in, out := sess.Counters()
	entry := SessionEntry{
		SessionID:      sess.ID,
		Protocol:       string(sess.Protocol),
		Host:           sess.Host,
		Port:           sess.Port,
		SessionType:    string(sess.Type),
		DeviceID:       sess.DeviceID,
		State:          string(sess.State()),
		PTYEnabled:     sess.PTYEnabled,
		Cols:           int(sess.Cols),
		Rows:           int(sess.Rows),
		CreatedAtMS:    sess.CreatedAtMS,
		LastActivityMS: sess.LastActivityMS(),
		BytesIn:        in,
		BytesOut:       out,
	}
	if lock := sess.LockSnapshot(session.NowMS()); lock != nil {
		entry.LockedByTaskID = lock.TaskID
		entry.LockExpiresAtMS = lock.ExpiresAtMS
	}
	return entry
}
