package mcp

import (
	"context"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nfshanq/ptyctl/src/session"
)

// registerSessionExecTool wires the ptyctl_session_exec tool.
func (s *Server) registerSessionExecTool() error {
	gomcp.AddTool(s.mcpServer, &gomcp.Tool{
		Name:        "ptyctl_session_exec",
		Description: "Run a command in a session and recover its exit code via the sentinel marker protocol.",
	}, LogToolCall("ptyctl_session_exec", s.handleSessionExec))
	return nil
}

func (s *Server) handleSessionExec(ctx context.Context, req *gomcp.CallToolRequest, in ExecInput) (*gomcp.CallToolResult, ExecOutput, error) {
	sess, err := s.manager.Get(in.SessionID)
	if err != nil {
		return nil, ExecOutput{}, err
	}

	rcEnabled := true
	if in.RCModeEnabled != nil {
		rcEnabled = *in.RCModeEnabled
	}

	res, err := sess.Exec(session.ExecRequest{
		Cmd:         in.Cmd,
		TimeoutMS:   in.TimeoutMS,
		UntilIdleMS: in.UntilIdleMS,
		TaskID:      in.TaskID,
		RCMode: session.RCMode{
			Enabled:      rcEnabled,
			MarkerPrefix: in.RCModeMarkerPrefix,
			MarkerSuffix: in.RCModeMarkerSuffix,
		},
		Expect: session.ExpectConfig{
			PromptRegex:  in.PromptRegex,
			ErrorRegexes: in.ErrorRegexes,
		},
	})
	if err != nil {
		return nil, ExecOutput{}, err
	}

	out := ExecOutput{
		Stdout:         res.Stdout,
		Stderr:         res.Stderr,
		ExitCode:       res.ExitCode,
		ExitCodeReason: string(res.ExitCodeReason),
		DoneReason:     string(res.DoneReason),
		TimedOut:       res.TimedOut,
		PromptDetected: res.PromptDetected,
		ErrorHints:     res.ErrorHints,
		DurationMS:     res.DurationMS,
	}
	return nil, out, nil
}
