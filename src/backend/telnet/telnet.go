// Package telnet implements the Telnet backend: a TCP connection paired
// with the byte parser and option negotiator in this package.
package telnet

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nfshanq/ptyctl/src/apierr"
	"github.com/nfshanq/ptyctl/src/backend"
)

// LineEnding selects how outbound '\n' bytes are normalized before IAC
// escaping.
type LineEnding string

const (
	LineEndingCR          LineEnding = "cr"
	LineEndingCRLF        LineEnding = "crlf"
	LineEndingLF          LineEnding = "lf"
	LineEndingPassThrough LineEnding = "pass_through"
)

// outboundKind tags an item on the writer's serialization channel.
type outboundKind int

const (
	outData outboundKind = iota
	outRaw
	outClose
)

type outboundItem struct {
	kind outboundKind
	data []byte
}

// Backend is the Telnet transport backend.
type Backend struct {
	conn net.Conn

	out chan outboundItem

	negotiator *Negotiator
	lineEnding LineEnding

	mu     sync.Mutex
	closed bool
	eof    bool

	done chan struct{}
}

// Config describes how to dial and negotiate a Telnet connection.
type Config struct {
	Host           string
	Port           int
	ConnectTimeout time.Duration
	TermType       string
	Cols, Rows     uint16
	LineEnding     LineEnding
}

// Dial opens a TCP connection to the given host/port and starts the reader
// and writer goroutines. The returned Backend feeds bytes into out.
func Dial(ctx context.Context, cfg Config, out *backend.OutputHandle) (*Backend, error) {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	d := net.Dialer{Timeout: cfg.ConnectTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		var netErr net.Error
		if ctx.Err() != nil || (errors.As(err, &netErr) && netErr.Timeout()) {
			return nil, apierr.ConnectTimeoutf("telnet connect to %s timed out: %v", addr, err)
		}
		return nil, apierr.ConnectFailedf("telnet connect to %s failed: %v", addr, err)
	}

	b := &Backend{
		conn:       conn,
		out:        make(chan outboundItem, 64),
		negotiator: NewNegotiator(cfg.TermType, cfg.Cols, cfg.Rows),
		lineEnding: cfg.LineEnding,
		done:       make(chan struct{}),
	}

	go b.writerLoop()
	go b.readerLoop(out)

	return b, nil
}

func (b *Backend) readerLoop(out *backend.OutputHandle) {
	parser := NewParser()
	buf := make([]byte, 4096)

	for {
		n, err := b.conn.Read(buf)
		if n > 0 {
			data, events := parser.Process(buf[:n])
			if len(data) > 0 {
				out.Push(data)
			}
			for _, ev := range events {
				if reply := b.negotiator.HandleEvent(ev); len(reply) > 0 {
					b.sendRaw(reply)
				}
			}
		}
		if err != nil {
			b.markEOF()
			out.Push(nil)
			return
		}
	}
}

func (b *Backend) writerLoop() {
	for item := range b.out {
		switch item.kind {
		case outData, outRaw:
			if _, err := b.conn.Write(item.data); err != nil {
				logrus.WithError(err).Warn("telnet backend: write failed")
			}
		case outClose:
			_ = b.conn.Close()
			return
		}
	}
}

func (b *Backend) markEOF() {
	b.mu.Lock()
	b.eof = true
	b.mu.Unlock()
}

// IsEOF reports whether the reader observed EOF or a fatal read error.
func (b *Backend) IsEOF() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.eof
}

func (b *Backend) sendRaw(p []byte) {
	select {
	case b.out <- outboundItem{kind: outRaw, data: p}:
	case <-b.done:
	}
}

// Write normalizes the line endings per the session's policy, IAC-escapes
// the result, and enqueues it for the writer goroutine.
func (b *Backend) Write(p []byte) (int, error) {
	normalized := normalizeLineEnding(p, b.lineEnding)
	escaped := EscapeIAC(normalized)

	select {
	case b.out <- outboundItem{kind: outData, data: escaped}:
		return len(p), nil
	case <-b.done:
		return 0, apierr.IOErrorf("telnet backend closed")
	}
}

// Resize updates the stored window size and, if NAWS is enabled, emits the
// subnegotiation announcing it.
func (b *Backend) Resize(cols, rows uint16) error {
	if raw := b.negotiator.SetWindowSize(cols, rows); len(raw) > 0 {
		b.sendRaw(raw)
	}
	return nil
}

// Close shuts down the connection. Telnet has no distinct graceful-vs-force
// mode at the TCP layer, so force is accepted but ignored.
func (b *Backend) Close(force bool) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	close(b.done)
	select {
	case b.out <- outboundItem{kind: outClose}:
	default:
	}
	return b.conn.Close()
}

func normalizeLineEnding(p []byte, le LineEnding) []byte {
	switch le {
	case LineEndingCR:
		out := make([]byte, 0, len(p))
		for _, c := range p {
			if c == '\n' {
				out = append(out, '\r')
			} else {
				out = append(out, c)
			}
		}
		return out
	case LineEndingCRLF:
		out := make([]byte, 0, len(p))
		for _, c := range p {
			if c == '\n' {
				out = append(out, '\r', '\n')
			} else {
				out = append(out, c)
			}
		}
		return out
	default: // lf, pass_through
		return p
	}
}

