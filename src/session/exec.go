package session

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nfshanq/ptyctl/src/apierr"
)

const (
	defaultMarkerPrefix = "\x1eRC="
	defaultMarkerSuffix = "\x1f"
)

// DoneReason is why an exec loop stopped.
type DoneReason string

const (
	DoneMarkerSeen  DoneReason = "marker_seen"
	DonePromptSeen  DoneReason = "prompt_seen"
	DoneIdleReached DoneReason = "idle_reached"
	DoneTimeout     DoneReason = "timeout"
	DoneEOF         DoneReason = "eof"
)

// ExitCodeReason explains the absence of a parsed exit code.
type ExitCodeReason string

const (
	ExitCodeUnsupported   ExitCodeReason = "unsupported"
	ExitCodeMarkerNotSeen ExitCodeReason = "marker_not_seen"
)

// RCMode configures rc-capture for a single exec call.
type RCMode struct {
	Enabled      bool
	MarkerPrefix string
	MarkerSuffix string
}

// ExecRequest is one session_exec call.
type ExecRequest struct {
	Cmd         string
	TimeoutMS   int64
	UntilIdleMS *int64
	RCMode      RCMode
	Expect      ExpectConfig
	TaskID      string
}

// ExecResult is the outcome of an exec call.
type ExecResult struct {
	Stdout         string
	Stderr         string
	ExitCode       *int
	ExitCodeReason ExitCodeReason
	DoneReason     DoneReason
	TimedOut       bool
	PromptDetected bool
	ErrorHints     []string
	DurationMS     int64
}

// markerFallback is derived once per exec call when the caller used the
// default markers, so terminals that strip C1 control characters still
// surface a recoverable exit code.
type markerFallback struct {
	prefix string
	suffix string
}

func newMarkerFallback() markerFallback {
	token := uuid.NewString()[:8]
	return markerFallback{
		prefix: "PTYCTL_RC_" + token + "=",
		suffix: ":END_" + token,
	}
}

// Exec runs cmd in the session and recovers its exit code via the sentinel
// marker protocol: the command is wrapped so the remote shell prints the
// exit status between known byte sequences this side can find and strip.
func (s *Session) Exec(req ExecRequest) (ExecResult, error) {
	start := time.Now()

	if err := s.EnsureWriteAccess(req.TaskID, NowMS()); err != nil {
		return ExecResult{}, err
	}

	rcEnabled := req.RCMode.Enabled
	prefix := req.RCMode.MarkerPrefix
	suffix := req.RCMode.MarkerSuffix
	usingDefaults := prefix == "" && suffix == ""
	if usingDefaults {
		prefix = defaultMarkerPrefix
		suffix = defaultMarkerSuffix
	}

	var fb markerFallback
	fallbackActive := rcEnabled && usingDefaults
	if fallbackActive {
		fb = newMarkerFallback()
	}

	startCursor := s.buf.EndCursor()

	cmdLine := req.Cmd
	if rcEnabled {
		cmdLine = fmt.Sprintf("%s; rc=$?; printf \"\\n%s%%d%s\\n\" \"$rc\"", req.Cmd, prefix, suffix)
		if fallbackActive {
			cmdLine += fmt.Sprintf("; printf \"%s%%d%s\\n\" \"$rc\"", fb.prefix, fb.suffix)
		}
	}

	if _, err := s.Write([]byte(cmdLine+"\n"), false, NowMS()); err != nil {
		return ExecResult{}, err
	}

	terminator, err := compileTerminator(rcEnabled, prefix, suffix, fallbackActive, fb, req.Expect.PromptRegex)
	if err != nil {
		return ExecResult{}, err
	}

	deadline := start.Add(time.Duration(req.TimeoutMS) * time.Millisecond)

	var accumulated []byte
	cursor := startCursor
	var doneReason DoneReason
	timedOut := false

	for {
		remaining := time.Until(deadline)
		if remaining < 0 {
			remaining = 0
		}

		c := cursor
		result := s.CursorRead(ReadRequest{
			Cursor:       &c,
			TimeoutMS:    remaining.Milliseconds(),
			MaxBytes:     64 * 1024,
			Terminator:   terminator,
			IncludeMatch: true,
			UntilIdleMS:  req.UntilIdleMS,
		})

		accumulated = append(accumulated, result.Data...)
		cursor = result.NextCursor

		switch {
		case result.Matched:
			if rcEnabled {
				doneReason = DoneMarkerSeen
			} else {
				doneReason = DonePromptSeen
			}
		case result.IdleReached:
			doneReason = DoneIdleReached
		case result.EOF:
			doneReason = DoneEOF
		case result.TimedOut || !time.Now().Before(deadline):
			doneReason = DoneTimeout
			timedOut = true
		default:
			continue
		}
		break
	}

	cleaned, exitCode, reason := parseExitCode(string(accumulated), rcEnabled, usingDefaults, prefix, suffix, fallbackActive, fb)

	var errorHints []string
	for _, pat := range req.Expect.ErrorRegexes {
		re, err := regexp.Compile(pat)
		if err != nil {
			continue
		}
		if re.MatchString(cleaned) {
			errorHints = append(errorHints, pat)
		}
	}

	res := ExecResult{
		Stdout:         cleaned,
		ExitCode:       exitCode,
		ExitCodeReason: reason,
		DoneReason:     doneReason,
		TimedOut:       timedOut,
		ErrorHints:     errorHints,
		DurationMS:     time.Since(start).Milliseconds(),
	}
	if !rcEnabled {
		res.PromptDetected = doneReason == DonePromptSeen
	}
	return res, nil
}

func compileTerminator(rcEnabled bool, prefix, suffix string, fallbackActive bool, fb markerFallback, promptRegex string) (*regexp.Regexp, error) {
	if !rcEnabled {
		if promptRegex == "" {
			return nil, nil
		}
		re, err := regexp.Compile(promptRegex)
		if err != nil {
			return nil, apierr.InvalidArgumentf("Invalid regex: %v", err)
		}
		return re, nil
	}

	primary := regexp.QuoteMeta(prefix) + `\d+` + regexp.QuoteMeta(suffix)
	pattern := primary
	if fallbackActive {
		fallback := regexp.QuoteMeta(fb.prefix) + `\d+` + regexp.QuoteMeta(fb.suffix)
		pattern = "(?:" + primary + ")|(?:" + fallback + ")"
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, apierr.InvalidArgumentf("Invalid regex: %v", err)
	}
	return re, nil
}

// parseExitCode strips sentinel markers from raw and recovers the exit
// code from the first one that matches.
func parseExitCode(raw string, rcEnabled, usingDefaults bool, prefix, suffix string, fallbackActive bool, fb markerFallback) (string, *int, ExitCodeReason) {
	if !rcEnabled {
		return strings.TrimRight(raw, "\n"), nil, ExitCodeUnsupported
	}

	primaryRe := regexp.MustCompile(regexp.QuoteMeta(prefix) + `(\d+)` + regexp.QuoteMeta(suffix))
	cleaned := raw
	var code *int

	if loc := primaryRe.FindStringSubmatchIndex(cleaned); loc != nil {
		n, _ := strconv.Atoi(cleaned[loc[2]:loc[3]])
		code = &n
		cleaned = cleaned[:loc[0]] + cleaned[loc[1]:]
	} else if fallbackActive {
		fallbackRe := regexp.MustCompile(regexp.QuoteMeta(fb.prefix) + `(\d+)` + regexp.QuoteMeta(fb.suffix))
		if loc := fallbackRe.FindStringSubmatchIndex(cleaned); loc != nil {
			n, _ := strconv.Atoi(cleaned[loc[2]:loc[3]])
			code = &n
			cleaned = cleaned[:loc[0]] + cleaned[loc[1]:]
		}
	}

	cleaned = strings.TrimRight(strings.TrimSpace(cleaned), "\n")

	if code == nil {
		return cleaned, nil, ExitCodeMarkerNotSeen
	}
	return cleaned, code, ""
}
