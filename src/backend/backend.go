// Package backend defines the transport-specific connection interface that
// SSH and Telnet backends implement, plus the OutputHandle they push bytes
// through.
package backend

import "github.com/nfshanq/ptyctl/src/buffer"

// Backend is the transport-specific owner of a remote connection. It is
// implemented by the SSH PTY backend and the Telnet backend.
type Backend interface {
	Write(p []byte) (int, error)
	Resize(cols, rows uint16) error
	Close(force bool) error
	IsEOF() bool
}

// OutputHandle is the write side of a session's output buffer: a backend's
// reader goroutine pushes bytes through it and it takes care of advancing
// cursors and waking suspended readers. It is the only thing a Backend's
// reader needs to know about Session internals.
type OutputHandle struct {
	buf    *buffer.OutputBuffer
	onPush func(n int)
}

// NewOutputHandle wires a buffer and an onPush callback (invoked with the
// chunk length after every append, including zero-length EOF markers) into
// a handle a backend reader can push bytes through. onPush is the hook a
// Session uses to update bytes_in/last_activity and to wake suspended
// readers.
func NewOutputHandle(buf *buffer.OutputBuffer, onPush func(n int)) *OutputHandle {
	return &OutputHandle{buf: buf, onPush: onPush}
}

// Push appends data (possibly empty, to wake waiters on EOF) to the buffer
// and notifies any suspended readers.
func (h *OutputHandle) Push(data []byte) {
	h.buf.Append(data)
	if h.onPush != nil {
		h.onPush(len(data))
	}
}

// Buffer returns the underlying output buffer for read-side access.
func (h *OutputHandle) Buffer() *buffer.OutputBuffer {
	return h.buf
}
