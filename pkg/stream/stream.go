// Package stream layers blocking, delimiter-aware and timeout-aware read
// semantics on top of the fifo and dataport byte buffers.
//
// Write and Read never block and may move fewer bytes than requested; Get is
// the only operation with blocking semantics, implemented as a cooperative
// poll loop with a caller-visible tick interval (see Clock). Bytes are always
// observed in the order they were committed.
package stream

import (
	"errors"
	"fmt"

	"github.com/valyala/bytebufferpool"

	"github.com/srediag/dataport/internal/logging"
)

var (
	// ErrTimeout is returned by Get when the tick budget elapses before the
	// requested length or a delimiter is reached. The byte count returned
	// alongside it is still valid partial progress.
	ErrTimeout = errors.New("stream: timeout elapsed")

	// ErrNoData is returned by GetChar when no byte could be gathered.
	ErrNoData = errors.New("stream: no data")
)

var internalLogger = logging.Default()

// Stream is the capability every buffered stream variant implements.
type Stream interface {
	// Write enqueues up to len(p) bytes without blocking and returns the
	// number accepted.
	Write(p []byte) int
	// Read drains up to len(p) buffered bytes without blocking and returns
	// the number moved.
	Read(p []byte) int
	// Get blocks until len(p) bytes were collected, a delimiter byte was
	// consumed (the delimiter is dropped, not copied out), or timeoutTicks
	// ticks pass without new data. timeoutTicks 0 blocks without bound.
	Get(p []byte, delims []byte, timeoutTicks uint64) (int, error)
	// Available returns the number of bytes ready for Read.
	Available() int
	// Flush blocks until previously written bytes have drained.
	Flush()
	// Skip discards all currently buffered readable bytes.
	Skip()
	// Close releases the stream's resources. Buffered-stream variants flush
	// first, mirroring their Flush contract.
	Close()
}

// WriteAll keeps writing until all of p is accepted, flushing whenever the
// stream stops taking bytes. A stream that accepts nothing even after a flush
// (a read-only stream, or a flush whose stall budget already gave up) is a
// contract violation: fatal in debug mode, otherwise the remainder is dropped.
func WriteAll(s Stream, p []byte) {
	todo := len(p)
	stalled := false
	for todo > 0 {
		n := s.Write(p[len(p)-todo:])
		todo -= n
		if todo == 0 {
			return
		}
		if n == 0 && stalled {
			internalLogger.Failf("stream: write accepts nothing with %d bytes pending", todo)
			return
		}
		stalled = n == 0
		s.Flush()
	}
}

// ReadAll blocks until all of p is filled and returns the count collected,
// which is short only when the stream dies underneath (see FileStream).
func ReadAll(s Stream, p []byte) int {
	n, _ := s.Get(p, nil, 0)
	return n
}

// WriteSync writes once and flushes, returning the accepted count.
func WriteSync(s Stream, p []byte) int {
	n := s.Write(p)
	s.Flush()
	return n
}

// WriteAllSync writes all of p, flushing after every chunk. It bails out
// like WriteAll when a write-plus-flush round accepts nothing twice in a row.
func WriteAllSync(s Stream, p []byte) {
	todo := len(p)
	stalled := false
	for todo > 0 {
		n := WriteSync(s, p[len(p)-todo:])
		todo -= n
		if n == 0 && stalled {
			internalLogger.Failf("stream: write accepts nothing with %d bytes pending", todo)
			return
		}
		stalled = n == 0
	}
}

// PutString writes the whole string synchronously.
func PutString(s Stream, str string) {
	WriteAllSync(s, []byte(str))
}

// PutChar writes one byte and flushes.
func PutChar(s Stream, c byte) {
	s.Write([]byte{c})
	s.Flush()
}

// GetChar blocks until one byte arrives and returns it.
func GetChar(s Stream) (byte, error) {
	var c [1]byte
	got, err := s.Get(c[:], nil, 0)
	if err != nil {
		return 0, err
	}
	if got == 0 {
		return 0, ErrNoData
	}
	return c[0], nil
}

// Printf formats into a transient pooled buffer and writes the result out
// synchronously. It returns the number of formatted bytes.
func Printf(s Stream, format string, a ...interface{}) int {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if _, err := fmt.Fprintf(buf, format, a...); err != nil {
		internalLogger.Warnf("stream: printf format error: %v", err)
		return 0
	}
	WriteAllSync(s, buf.B)
	return buf.Len()
}
