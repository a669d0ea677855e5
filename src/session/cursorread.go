package session

import (
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/nfshanq/ptyctl/src/buffer"
)

// ReadRequest carries the parameters of a single cursor read call.

type ReadRequest struct {
	Cursor       *uint64
	TimeoutMS    int64
	MaxBytes     int
	Terminator   *regexp.Regexp
	IncludeMatch bool
	UntilIdleMS  *int64
	InputHints   []*regexp.Regexp
}

// ReadResult is what a cursor read returns to its caller.
type ReadResult struct {
	Data            []byte
	NextCursor      uint64
	Matched         bool
	TimedOut        bool
	IdleReached     bool
	EOF             bool
	Truncated       bool
	DroppedBytes    uint64
	WaitingForInput bool
}

// CursorRead is the suspension primitive behind every cursor-mode read: it
// returns as soon as data satisfying the terminator arrives, the backend
// hits EOF, the idle gap elapses, or the deadline elapses, whichever
// happens first, suspending on the session's notifier in between.
func (s *Session) CursorRead(req ReadRequest) ReadResult {
	now := time.Now()
	deadline := now.Add(time.Duration(req.TimeoutMS) * time.Millisecond)

	var idleDeadline time.Time
	hasIdle := req.UntilIdleMS != nil
	if hasIdle {
		idleDeadline = now.Add(time.Duration(*req.UntilIdleMS) * time.Millisecond)
	}

	cursor := s.buf.EndCursor()
	if req.Cursor != nil {
		cursor = *req.Cursor
	}

	maxBytes := req.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 64 * 1024
	}

	for {
		sl := s.buf.SliceFrom(cursor, maxBytes)

		if sl.Truncated && len(sl.Data) == 0 {
			// Caller's cursor fell off the front; resume at the oldest
			// surviving byte and resnapshot from there.
			cursor = s.buf.StartCursor()
			sl = s.buf.SliceFrom(cursor, maxBytes)
		}

		if len(sl.Data) > 0 {
			return s.finishRead(req, sl)
		}

		if s.IsEOF() {
			return ReadResult{
				NextCursor:   cursor,
				EOF:          true,
				Truncated:    sl.Truncated,
				DroppedBytes: sl.DroppedBytes,
			}
		}

		nowLoop := time.Now()
		if hasIdle && !nowLoop.Before(idleDeadline) {
			return ReadResult{NextCursor: cursor, IdleReached: true}
		}
		if !nowLoop.Before(deadline) {
			return ReadResult{NextCursor: cursor, TimedOut: true}
		}

		wake := s.WaitForWake()
		wait := deadline.Sub(nowLoop)
		if hasIdle {
			if d := idleDeadline.Sub(nowLoop); d < wait {
				wait = d
			}
		}
		if wait < 0 {
			wait = 0
		}

		timer := time.NewTimer(wait)
		select {
		case <-wake:
			timer.Stop()
		case <-timer.C:
		}

		if c := s.buf.StartCursor(); cursor < c {
			cursor = c
		}
	}
}

// finishRead applies terminator matching and input-hint detection to a
// non-empty slice and builds the final ReadResult.
func (s *Session) finishRead(req ReadRequest, sl buffer.Slice) ReadResult {
	data := sl.Data
	start := sl.NextCursor - uint64(len(sl.Data))
	matched := false

	if req.Terminator != nil {
		if prefix, ok := validUTF8Prefix(data); ok {
			if loc := req.Terminator.FindStringIndex(prefix); loc != nil {
				cut := loc[1]
				if !req.IncludeMatch {
					cut = loc[0]
				}
				data = data[:cut]
				matched = true
			}
		}
	}

	waitingForInput := false
	if len(req.InputHints) > 0 {
		text := string(data)
		for _, hint := range req.InputHints {
			if hint.MatchString(text) {
				waitingForInput = true
				break
			}
		}
	}

	return ReadResult{
		Data:            data,
		NextCursor:      start + uint64(len(data)),
		Matched:         matched,
		Truncated:       sl.Truncated,
		DroppedBytes:    sl.DroppedBytes,
		WaitingForInput: waitingForInput,
	}
}

// validUTF8Prefix returns the longest valid-UTF-8 prefix of p, so a
// terminator regex never matches across a truncated multi-byte rune at the
// tail of a snapshot.
func validUTF8Prefix(p []byte) (string, bool) {
	if utf8.Valid(p) {
		return string(p), true
	}
	for i := len(p); i > 0; i-- {
		if utf8.Valid(p[:i]) {
			return string(p[:i]), true
		}
	}
	return "", false
}
