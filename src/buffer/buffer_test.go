package buffer

import (
	"bytes"
	"testing"
)

func TestAppendReadRoundtrip(t *testing.T) {
	b := New(1<<20, 1<<20)

	chunks := [][]byte{[]byte("hello"), []byte(" "), []byte("world"), []byte("\nline2\n")}
	var want []byte
	for _, c := range chunks {
		want = append(want, c...)
		b.Append(c)
	}

	s := b.SliceFrom(0, len(want)+10)
	if !bytes.Equal(s.Data, want) {
		t.Fatalf("roundtrip mismatch: got %q want %q", s.Data, want)
	}
	if s.NextCursor != uint64(len(want)) {
		t.Fatalf("next cursor = %d, want %d", s.NextCursor, len(want))
	}
}

func TestCursorContinuity(t *testing.T) {
	b := New(1<<20, 1<<20)
	b.Append([]byte("hello"))
	b.Append([]byte("world"))

	s := b.SliceFrom(0, 3)
	if string(s.Data) != "hel" {
		t.Fatalf("got %q", s.Data)
	}

	s = b.SliceFrom(3, 100)
	if string(s.Data) != "loworld" {
		t.Fatalf("got %q", s.Data)
	}

	s = b.SliceFrom(10, 100)
	if len(s.Data) != 0 || s.Truncated {
		t.Fatalf("expected empty, non-truncated slice, got %+v", s)
	}
}

func TestByteCapEviction(t *testing.T) {
	b := New(5, 10)
	b.Append([]byte("hello"))
	b.Append([]byte("world"))

	if b.StartCursor() != 5 {
		t.Fatalf("start cursor = %d, want 5", b.StartCursor())
	}
	if got := b.EndCursor(); got != 10 {
		t.Fatalf("end cursor = %d, want 10", got)
	}

	s := b.SliceFrom(0, 10)
	if string(s.Data) != "world" {
		t.Fatalf("got %q", s.Data)
	}
	if !s.Truncated || s.DroppedBytes != 5 {
		t.Fatalf("expected truncated=true dropped=5, got %+v", s)
	}
}

func TestEvictionMonotonicity(t *testing.T) {
	b := New(16, 1<<20)
	var lastStart uint64
	for i := 0; i < 50; i++ {
		b.Append(bytes.Repeat([]byte{'x'}, 3))
		if b.StartCursor() < lastStart {
			t.Fatalf("start cursor went backwards: %d < %d", b.StartCursor(), lastStart)
		}
		lastStart = b.StartCursor()
		if b.EndCursor()-b.StartCursor() > 16 {
			t.Fatalf("buffered span exceeds max_bytes: %d", b.EndCursor()-b.StartCursor())
		}
	}
}

func TestCursorDropDetection(t *testing.T) {
	b := New(8, 1<<20)
	b.Append([]byte("0123456789")) // evicts to start_cursor=2

	for c := uint64(0); c < b.StartCursor(); c++ {
		s := b.SliceFrom(c, 100)
		if !s.Truncated {
			t.Fatalf("cursor %d: expected truncated", c)
		}
		if s.DroppedBytes != b.StartCursor()-c {
			t.Fatalf("cursor %d: dropped = %d, want %d", c, s.DroppedBytes, b.StartCursor()-c)
		}
	}
}

func TestTailByBytesOnly(t *testing.T) {
	b := New(1<<20, 1<<20)
	b.Append([]byte("abcdefghij"))

	s := b.Tail(4, nil)
	if string(s.Data) != "ghij" {
		t.Fatalf("got %q", s.Data)
	}
}

func TestTailByLines(t *testing.T) {
	b := New(1<<20, 1<<20)
	b.Append([]byte("one\ntwo\nthree\nfour"))

	lines := 2
	s := b.Tail(1<<20, &lines)
	if string(s.Data) != "two\nthree\nfour" {
		t.Fatalf("got %q", s.Data)
	}
}

func TestTailFewerLinesThanRequested(t *testing.T) {
	b := New(1<<20, 1<<20)
	b.Append([]byte("only one line, no newline"))

	lines := 5
	s := b.Tail(1<<20, &lines)
	if string(s.Data) != "only one line, no newline" {
		t.Fatalf("got %q", s.Data)
	}
}

func TestOverflowNeverFails(t *testing.T) {
	b := New(4, 1<<20)
	for i := 0; i < 1000; i++ {
		b.Append([]byte("abcdefgh"))
	}
	if b.TotalDropped() == 0 {
		t.Fatal("expected dropped bytes to accumulate")
	}
}
