package session

import (
	"bytes"
	"testing"
)

func TestKeyBytesContract(t *testing.T) {
	cases := []struct {
		key   string
		proto Protocol
		want  []byte
	}{
		{"Enter", ProtocolTelnet, []byte("\r")},
		{"Enter", ProtocolSSH, []byte("\n")},
		{"Tab", ProtocolSSH, []byte("\t")},
		{"Escape", ProtocolSSH, []byte{0x1b}},
		{"Backspace", ProtocolSSH, []byte{0x7f}},
		{"Up", ProtocolSSH, []byte("\x1b[A")},
		{"Down", ProtocolSSH, []byte("\x1b[B")},
		{"Right", ProtocolSSH, []byte("\x1b[C")},
		{"Left", ProtocolSSH, []byte("\x1b[D")},
		{"Home", ProtocolSSH, []byte("\x1b[H")},
		{"End", ProtocolSSH, []byte("\x1b[F")},
		{"PageUp", ProtocolSSH, []byte("\x1b[5~")},
		{"PageDown", ProtocolSSH, []byte("\x1b[6~")},
		{"Delete", ProtocolSSH, []byte("\x1b[3~")},
		{"Ctrl-C", ProtocolSSH, []byte{0x03}},
		{"Ctrl-D", ProtocolSSH, []byte{0x04}},
		{"Ctrl-Z", ProtocolSSH, []byte{0x1a}},
		{"Ctrl-\\", ProtocolSSH, []byte{0x1c}},
		{"Ctrl-A", ProtocolSSH, []byte{0x01}},
		{"Ctrl-E", ProtocolSSH, []byte{0x05}},
		{"Ctrl-K", ProtocolSSH, []byte{0x0b}},
		{"Ctrl-U", ProtocolSSH, []byte{0x15}},
		{"Ctrl-L", ProtocolSSH, []byte{0x0c}},
	}

	for _, c := range cases {
		got, ok := KeyBytes(c.key, c.proto)
		if !ok {
			t.Errorf("KeyBytes(%q, %q): not found", c.key, c.proto)
			continue
		}
		if !bytes.Equal(got, c.want) {
			t.Errorf("KeyBytes(%q, %q) = %x, want %x", c.key, c.proto, got, c.want)
		}
	}
}

func TestKeyBytesUnknown(t *testing.T) {
	if _, ok := KeyBytes("NotAKey", ProtocolSSH); ok {
		t.Fatal("expected unknown key to report ok=false")
	}
}
