// Package admin implements the optional local admin socket: a unix stream
// socket exchanging one JSON-RPC object per line, for operators poking at a
// running service without going through the HTTP transport.
package admin

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/nfshanq/ptyctl/src/apierr"
	"github.com/nfshanq/ptyctl/src/config"
	"github.com/nfshanq/ptyctl/src/mcp"
)

// request is one line of the admin socket's wire protocol.
type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// readOnlyActions lists the only {method, action} pairs control_mode =
// readonly permits.
var readOnlyActions = map[string]map[string]bool{
	"ptyctl_session":        {"list": true, "status": true},
	"ptyctl_session_io":     {"read": true},
	"ptyctl_session_config": {"get": true},
}

// SocketPath resolves the admin socket path fallback chain:
// $XDG_RUNTIME_DIR/ptyctl.sock, then /run/user/<uid>/ptyctl.sock, then
// /tmp/ptyctl-<uid>.sock.
func SocketPath(configured string) string {
	if configured != "" {
		return configured
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir + "/ptyctl.sock"
	}
	uid := strconv.Itoa(os.Getuid())
	if fi, err := os.Stat("/run/user/" + uid); err == nil && fi.IsDir() {
		return "/run/user/" + uid + "/ptyctl.sock"
	}
	return "/tmp/ptyctl-" + uid + ".sock"
}

// Server is the admin socket listener.
type Server struct {
	mcp         *mcp.Server
	controlMode config.ControlMode
	path        string
	ln          net.Listener
}

// NewServer builds an admin Server bound to path. ControlMode =
// config.ControlModeDisabled means Serve is never called by the caller;
// this constructor does not itself inspect that flag.
func NewServer(mcpServer *mcp.Server, controlMode config.ControlMode, path string) *Server {
	return &Server{mcp: mcpServer, controlMode: controlMode, path: path}
}

// Listen removes any stale socket file at path and binds a new unix
// listener.
func (s *Server) Listen() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing stale admin socket: %w", err)
	}
	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("binding admin socket: %w", err)
	}
	s.ln = ln
	return nil
}

// Serve accepts connections until the listener is closed.
func (s *Server) Serve(ctx context.Context) error {
	logrus.WithField("path", s.path).WithField("control_mode", s.controlMode).Info("admin socket listening")
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go s.handleConn(ctx, conn)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	enc := json.NewEncoder(conn)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			_ = enc.Encode(response{JSONRPC: "2.0", Error: &rpcError{Code: -32700, Message: "parse error"}})
			continue
		}

		resp := response{JSONRPC: "2.0", ID: req.ID}
		if err := s.authorize(req.Method, req.Params); err != nil {
			resp.Error = &rpcError{Code: -32000, Message: err.Error()}
			_ = enc.Encode(resp)
			continue
		}

		result, err := s.mcp.Dispatch(ctx, req.Method, req.Params)
		if err != nil {
			resp.Error = &rpcError{Code: -32000, Message: fmt.Sprintf("%s: %s", apierr.KindOf(err), err.Error())}
		} else {
			resp.Result = result
		}
		_ = enc.Encode(resp)
	}
}

// authorize enforces control_mode = readonly's method/action allowlist.
func (s *Server) authorize(method string, params json.RawMessage) error {
	if s.controlMode != config.ControlModeReadOnly {
		return nil
	}

	var actionOnly struct {
		Action string `json:"action"`
	}
	_ = json.Unmarshal(params, &actionOnly)

	allowed, ok := readOnlyActions[method]
	if !ok || !allowed[actionOnly.Action] {
		return apierr.Unsupportedf("Control mode is readonly")
	}
	return nil
}
