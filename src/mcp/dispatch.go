package mcp

import (
	"context"
	"encoding/json"

	"github.com/nfshanq/ptyctl/src/apierr"
)

// ToolNames lists the four tool methods, in the order they're registered.
// The admin socket's method set is exactly this set.
var ToolNames = []string{
	"ptyctl_session",
	"ptyctl_session_io",
	"ptyctl_session_config",
	"ptyctl_session_exec",
}

// Dispatch routes a raw JSON-RPC params payload to the tool method's
// handler directly, bypassing the SDK's wire encoding. This is what the
// admin socket (a bare newline-delimited JSON-RPC listener, not a full MCP
// transport) calls after its own control_mode filtering.
func (s *Server) Dispatch(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case "ptyctl_session":
		var in SessionInput
		if err := unmarshalParams(params, &in); err != nil {
			return nil, err
		}
		_, out, err := s.handleSession(ctx, nil, in)
		return out, err
	case "ptyctl_session_io":
		var in IOWriteInput
		if err := unmarshalParams(params, &in); err != nil {
			return nil, err
		}
		_, out, err := s.handleSessionIO(ctx, nil, in)
		return out, err
	case "ptyctl_session_config":
		var in ConfigInput
		if err := unmarshalParams(params, &in); err != nil {
			return nil, err
		}
		_, out, err := s.handleSessionConfig(ctx, nil, in)
		return out, err
	case "ptyctl_session_exec":
		var in ExecInput
		if err := unmarshalParams(params, &in); err != nil {
			return nil, err
		}
		_, out, err := s.handleSessionExec(ctx, nil, in)
		return out, err
	default:
		return nil, apierr.Unsupportedf("unknown method %q", method)
	}
}

func unmarshalParams(params json.RawMessage, dst any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, dst); err != nil {
		return apierr.InvalidArgumentf("invalid params: %v", err)
	}
	return nil
}
