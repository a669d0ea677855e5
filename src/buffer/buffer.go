// Package buffer implements the bounded output ring buffer that backs every
// session's byte-cursor read protocol.
package buffer

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// minMaxBytes/minMaxLines are used when a caller asks for a
// pathological zero-capacity buffer; clamping to 1 avoids a buffer that can
// never hold a single byte or line.
const (
	minMaxBytes = 1
	minMaxLines = 1
)

// OutputBuffer is a bounded ring of the most recently appended bytes, with a
// monotonic start cursor tracking how many bytes have been evicted from the
// front. It never fails: overflow is reported through a dropped-bytes
// counter and a structured warning log, never an error return.
type OutputBuffer struct {
	mu sync.Mutex

	data []byte

	startCursor uint64
	maxBytes    int
	maxLines    int
	lineCount   int

	totalDropped uint64
}

// New creates an OutputBuffer capped at maxBytes and maxLines. Both limits
// are clamped to at least 1.
func New(maxBytes, maxLines int) *OutputBuffer {
	if maxBytes < minMaxBytes {
		maxBytes = minMaxBytes
	}
	if maxLines < minMaxLines {
		maxLines = minMaxLines
	}
	return &OutputBuffer{
		maxBytes: maxBytes,
		maxLines: maxLines,
	}
}

// Slice is the result of a cursor read: the bytes themselves plus the
// bookkeeping the caller needs to keep its cursor correct.
type Slice struct {
	Data          []byte
	NextCursor    uint64
	Truncated     bool
	DroppedBytes  uint64
	BufferedBytes int
	BufferLimit   int
}

// EndCursor returns start_cursor + length, i.e. the offset one past the last
// appended byte.
func (b *OutputBuffer) EndCursor() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.endCursorLocked()
}

func (b *OutputBuffer) endCursorLocked() uint64 {
	return b.startCursor + uint64(len(b.data))
}

// StartCursor returns the current start cursor (the offset of the oldest
// surviving byte).
func (b *OutputBuffer) StartCursor() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.startCursor
}

// Append adds bytes to the buffer, evicting from the front if either limit
// is exceeded. It returns the number of bytes evicted by this call.
func (b *OutputBuffer) Append(p []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(p) > 0 {
		b.data = append(b.data, p...)
		b.lineCount += countNewlines(p)
	}

	evicted := 0

	// Byte-limit eviction first.
	if len(b.data) > b.maxBytes {
		over := len(b.data) - b.maxBytes
		evicted += b.evictLocked(over)
	}

	// Then line-limit eviction.
	for b.lineCount > b.maxLines {
		nl := indexNewline(b.data)
		if nl < 0 {
			// lineCount disagrees with the data; stop rather than spin.
			break
		}
		evicted += b.evictLocked(nl + 1)
	}

	if evicted > 0 {
		b.totalDropped += uint64(evicted)
		logrus.WithFields(logrus.Fields{
			"dropped_bytes": evicted,
			"start_cursor":  b.startCursor,
		}).Warn("output buffer overflow, evicting oldest bytes")
	}

	return evicted
}

// evictLocked drops the first n bytes (n <= len(b.data)) and advances
// start_cursor / decrements line_count for every evicted newline. Caller
// holds b.mu.
func (b *OutputBuffer) evictLocked(n int) int {
	if n <= 0 {
		return 0
	}
	if n > len(b.data) {
		n = len(b.data)
	}
	b.lineCount -= countNewlines(b.data[:n])
	if b.lineCount < 0 {
		b.lineCount = 0
	}
	b.data = b.data[n:]
	b.startCursor += uint64(n)
	return n
}

// SliceFrom returns up to maxBytes bytes starting at cursor. A cursor that
// lags start_cursor reads from start_cursor with Truncated set and
// DroppedBytes reporting the gap; a cursor past the end reads empty.
func (b *OutputBuffer) SliceFrom(cursor uint64, maxBytes int) Slice {
	b.mu.Lock()
	defer b.mu.Unlock()

	end := b.endCursorLocked()

	if len(b.data) == 0 {
		truncated := cursor < b.startCursor
		dropped := uint64(0)
		if truncated {
			dropped = b.startCursor - cursor
		}
		return Slice{
			NextCursor:    cursor,
			Truncated:     truncated,
			DroppedBytes:  dropped,
			BufferedBytes: 0,
			BufferLimit:   b.maxBytes,
		}
	}

	truncated := false
	dropped := uint64(0)
	start := cursor
	if cursor < b.startCursor {
		truncated = true
		dropped = b.startCursor - cursor
		start = b.startCursor
	}
	if start > end {
		start = end
	}

	offset := int(start - b.startCursor)
	avail := b.data[offset:]
	if maxBytes >= 0 && len(avail) > maxBytes {
		avail = avail[:maxBytes]
	}

	out := make([]byte, len(avail))
	copy(out, avail)

	return Slice{
		Data:          out,
		NextCursor:    start + uint64(len(out)),
		Truncated:     truncated,
		DroppedBytes:  dropped,
		BufferedBytes: len(b.data),
		BufferLimit:   b.maxBytes,
	}
}

// Tail returns the end of the stream bounded first by maxLines (if given),
// then by maxBytes.
func (b *OutputBuffer) Tail(maxBytes int, maxLines *int) Slice {
	b.mu.Lock()
	defer b.mu.Unlock()

	buffered := len(b.data)
	start := 0

	if maxLines != nil {
		limit := *maxLines
		newlines := 0
		// Scan backwards; stop once we've counted more than limit newlines,
		// excluding the boundary byte itself so the block starts right
		// after it.
		for i := len(b.data) - 1; i >= 0; i-- {
			if b.data[i] == '\n' {
				newlines++
				if newlines > limit {
					start = i + 1
					break
				}
			}
		}
	}

	region := b.data[start:]
	if maxBytes >= 0 && len(region) > maxBytes {
		region = region[len(region)-maxBytes:]
	}

	out := make([]byte, len(region))
	copy(out, region)

	return Slice{
		Data:          out,
		NextCursor:    b.startCursor + uint64(len(b.data)),
		Truncated:     len(out) < buffered,
		BufferedBytes: buffered,
		BufferLimit:   b.maxBytes,
	}
}

// TotalDropped returns the cumulative number of bytes ever evicted.
func (b *OutputBuffer) TotalDropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.totalDropped
}

func countNewlines(p []byte) int {
	n := 0
	for _, c := range p {
		if c == '\n' {
			n++
		}
	}
	return n
}

func indexNewline(p []byte) int {
	for i, c := range p {
		if c == '\n' {
			return i
		}
	}
	return -1
}
