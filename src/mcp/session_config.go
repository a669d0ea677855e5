package mcp

import (
	"context"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nfshanq/ptyctl/src/apierr"
	"github.com/nfshanq/ptyctl/src/session"
)

// registerSessionConfigTool wires the ptyctl_session_config tool: resize,
// expect, and get.
func (s *Server) registerSessionConfigTool() error {
	gomcp.AddTool(s.mcpServer, &gomcp.Tool{
		Name:        "ptyctl_session_config",
		Description: "Resize a session's PTY, attach prompt/pager/error expect regexes, or fetch its current status.",
	}, LogToolCall("ptyctl_session_config", s.handleSessionConfig))
	return nil
}

func (s *Server) handleSessionConfig(ctx context.Context, req *gomcp.CallToolRequest, in ConfigInput) (*gomcp.CallToolResult, ConfigOutput, error) {
	sess, err := s.manager.Get(in.SessionID)
	if err != nil {
		return nil, ConfigOutput{}, err
	}

	switch in.Action {
	case "resize":
		if err := sess.Resize(in.Cols, in.Rows); err != nil {
			return nil, ConfigOutput{}, err
		}
	case "expect":
		sess.SetExpect(session.ExpectConfig{
			PromptRegex:  in.PromptRegex,
			PagerRegexes: in.PagerRegexes,
			ErrorRegexes: in.ErrorRegexes,
		})
	case "get":
		// no mutation; falls through to the status snapshot below.
	default:
		return nil, ConfigOutput{}, apierr.InvalidArgumentf("unknown action %q", in.Action)
	}

	entry := toSessionEntry(sess)
	return nil, ConfigOutput{Entry: &entry}, nil
}
