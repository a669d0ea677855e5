package mcp

import (
	"context"
	"encoding/base64"
	"regexp"
	"strconv"
	"unicode/utf8"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nfshanq/ptyctl/src/apierr"
	"github.com/nfshanq/ptyctl/src/session"
)

// registerSessionIOTool wires the ptyctl_session_io tool: write/read.

func (s *Server) registerSessionIOTool() error {
	gomcp.AddTool(s.mcpServer, &gomcp.Tool{
		Name:        "ptyctl_session_io",
		Description: "Write bytes or a symbolic key to a session, or read captured output by cursor or tail.",
	}, LogToolCall("ptyctl_session_io", s.handleSessionIO))
	return nil
}

func (s *Server) handleSessionIO(ctx context.Context, req *gomcp.CallToolRequest, in IOWriteInput) (*gomcp.CallToolResult, IOOutput, error) {
	sess, err := s.manager.Get(in.SessionID)
	if err != nil {
		return nil, IOOutput{}, err
	}

	switch in.Action {
	case "write":
		return s.ioWrite(sess, in)
	case "read":
		return s.ioRead(sess, in)
	default:
		return nil, IOOutput{}, apierr.InvalidArgumentf("unknown action %q", in.Action)
	}
}

func (s *Server) ioWrite(sess *session.Session, in IOWriteInput) (*gomcp.CallToolResult, IOOutput, error) {
	if err := sess.EnsureWriteAccess(in.TaskID, session.NowMS()); err != nil {
		return nil, IOOutput{}, err
	}

	if in.Data == "" && in.Key == "" {
		return nil, IOOutput{}, apierr.InvalidArgumentf("exactly one of data or key is required")
	}
	if in.Data != "" && in.Key != "" {
		return nil, IOOutput{}, apierr.InvalidArgumentf("exactly one of data or key is required")
	}

	if in.Key != "" {
		n, err := sess.SendKey(in.Key, in.Sensitive, session.NowMS())
		if err != nil {
			return nil, IOOutput{}, err
		}
		return nil, IOOutput{BytesWritten: n}, nil
	}

	payload, err := decodePayload(in.Data, in.Encoding)
	if err != nil {
		return nil, IOOutput{}, err
	}
	n, err := sess.Write(payload, in.Sensitive, session.NowMS())
	if err != nil {
		return nil, IOOutput{}, apierr.IOErrorf("%v", err)
	}
	return nil, IOOutput{BytesWritten: n}, nil
}

func (s *Server) ioRead(sess *session.Session, in IOWriteInput) (*gomcp.CallToolResult, IOOutput, error) {
	mode := in.Mode
	if mode == "" {
		mode = "cursor"
	}

	switch mode {
	case "tail":
		return s.ioReadTail(sess, in)
	case "cursor":
		return s.ioReadCursor(sess, in)
	default:
		return nil, IOOutput{}, apierr.InvalidArgumentf("unknown mode %q", mode)
	}
}

func (s *Server) ioReadTail(sess *session.Session, in IOWriteInput) (*gomcp.CallToolResult, IOOutput, error) {
	maxBytes := in.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 64 * 1024
	}
	sl := sess.Buffer().Tail(maxBytes, in.MaxLines)
	out := encodeReadOutput(sl.Data, in.Encoding)
	out.NextCursor = strconv.FormatUint(sl.NextCursor, 10)
	out.Truncated = sl.Truncated
	out.DroppedBytes = sl.DroppedBytes
	out.BufferedBytes = sl.BufferedBytes
	out.BufferLimit = sl.BufferLimit
	return nil, out, nil
}

func (s *Server) ioReadCursor(sess *session.Session, in IOWriteInput) (*gomcp.CallToolResult, IOOutput, error) {
	var cursor *uint64
	if in.Cursor != "" {
		c, err := parseCursor(in.Cursor)
		if err != nil {
			return nil, IOOutput{}, err
		}
		cursor = &c
	}

	var terminator *regexp.Regexp
	if in.UntilRegex != "" {
		re, err := regexp.Compile(in.UntilRegex)
		if err != nil {
			return nil, IOOutput{}, apierr.InvalidArgumentf("Invalid regex: %v", err)
		}
		terminator = re
	}

	var hints []*regexp.Regexp
	for _, pat := range in.WaitForRegexes {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, IOOutput{}, apierr.InvalidArgumentf("Invalid regex: %v", err)
		}
		hints = append(hints, re)
	}

	res := sess.CursorRead(session.ReadRequest{
		Cursor:       cursor,
		TimeoutMS:    in.TimeoutMS,
		MaxBytes:     in.MaxBytes,
		Terminator:   terminator,
		IncludeMatch: in.IncludeMatch,
		UntilIdleMS:  in.UntilIdleMS,
		InputHints:   hints,
	})

	out := encodeReadOutput(res.Data, in.Encoding)
	out.NextCursor = strconv.FormatUint(res.NextCursor, 10)
	out.Matched = res.Matched
	out.TimedOut = res.TimedOut
	out.IdleReached = res.IdleReached
	out.EOF = res.EOF
	out.Truncated = res.Truncated
	out.DroppedBytes = res.DroppedBytes
	out.WaitingForInput = res.WaitingForInput
	return nil, out, nil
}

// parseCursor rejects anything but decimal digits.
func parseCursor(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, apierr.InvalidArgumentf("Invalid cursor value")
	}
	return v, nil
}

// decodePayload turns a write's data field into raw bytes, accepting the
// utf8/utf_8 aliases for utf-8 alongside base64.
func decodePayload(data, encoding string) ([]byte, error) {
	switch normalizeEncoding(encoding) {
	case "base64":
		b, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, apierr.InvalidArgumentf("Invalid base64 data: %v", err)
		}
		return b, nil
	default:
		return []byte(data), nil
	}
}

// encodeReadOutput encodes data as utf-8 unless it isn't valid UTF-8, in
// which case it silently downgrades to base64 and echoes the encoding
// actually used.
func encodeReadOutput(data []byte, requested string) IOOutput {
	enc := normalizeEncoding(requested)
	if enc != "base64" {
		if utf8.Valid(data) {
			return IOOutput{Data: string(data), Encoding: "utf-8"}
		}
		enc = "base64"
	}
	return IOOutput{Data: base64.StdEncoding.EncodeToString(data), Encoding: "base64"}
}

func normalizeEncoding(e string) string {
	switch e {
	case "utf8", "utf_8", "utf-8", "":
		return "utf-8"
	case "base64":
		return "base64"
	default:
		return e
	}
}
