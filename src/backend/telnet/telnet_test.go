package telnet

import (
	"bytes"
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/nfshanq/ptyctl/src/backend"
	"github.com/nfshanq/ptyctl/src/buffer"
)

// TestBackendHandshakeAndEcho drives a full handshake against a local peer:
// a server sends DO TTYPE, DO NAWS, then an escaped IAC followed by 'A\n';
// the client must answer WILL TTYPE / WILL NAWS (+ NAWS subnegotiation)
// and the application-visible stream must contain a single 0xff and 'A\n'.
func TestBackendHandshakeAndEcho(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	serverReplies := make(chan []byte, 1)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		conn.Write([]byte{telnetIAC, telnetDO, OptTTYPE})
		conn.Write([]byte{telnetIAC, telnetDO, OptNAWS})
		conn.Write([]byte{telnetIAC, telnetIAC, 'A', '\n'})

		buf := make([]byte, 256)
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, _ := conn.Read(buf)
		serverReplies <- buf[:n]
	}()

	_, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)

	buf := buffer.New(1<<16, 1000)
	handle := backend.NewOutputHandle(buf, func(n int) {})

	b, err := Dial(context.Background(), Config{
		Host:           "127.0.0.1",
		Port:           port,
		ConnectTimeout: 2 * time.Second,
		TermType:       "xterm-256color",
		Cols:           80,
		Rows:           24,
	}, handle)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer b.Close(true)

	select {
	case reply := <-serverReplies:
		if !bytes.Contains(reply, []byte{telnetIAC, telnetWILL, OptTTYPE}) {
			t.Fatalf("expected WILL TTYPE in reply, got %x", reply)
		}
		if !bytes.Contains(reply, []byte{telnetIAC, telnetWILL, OptNAWS}) {
			t.Fatalf("expected WILL NAWS in reply, got %x", reply)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never received a negotiation reply")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		sl := buf.SliceFrom(0, 4096)
		if bytes.Contains(sl.Data, []byte{0xff, 'A', '\n'}) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("application stream never contained the escaped IAC + 'A\\n'")
}
