package stream

import (
	"bytes"

	"github.com/srediag/dataport/pkg/fifo"
)

// InboundStream is a read-only buffered stream over a process-private byte
// ring. The lower layer (an interrupt handler, a pump draining a dataport)
// feeds bytes in; application code drains them with Read or Get.
type InboundStream struct {
	fifo  *fifo.Ring
	clock Clock
}

// NewInbound constructs an inbound stream whose read buffer uses the whole
// of readBuf. conf may be nil.
func NewInbound(readBuf []byte, conf *Config) (*InboundStream, error) {
	f, err := fifo.NewBytes(readBuf)
	if err != nil {
		return nil, err
	}
	return &InboundStream{fifo: f, clock: conf.clock()}, nil
}

// Feed pushes up to len(p) bytes into the read buffer and returns the number
// accepted. This is the producer-side entry point for the lower layer.
func (s *InboundStream) Feed(p []byte) int {
	return s.fifo.Write(p)
}

// Write returns 0: an inbound stream does not know how to write.
func (s *InboundStream) Write(p []byte) int {
	return 0
}

// Read drains up to len(p) buffered bytes without blocking.
func (s *InboundStream) Read(p []byte) int {
	return s.fifo.Read(p)
}

// Get collects bytes into p until it is full, a delimiter byte is consumed
// (dropped from the output), or timeoutTicks ticks elapse with the buffer
// exhausted and no new data. It returns the count collected; ErrTimeout
// flags that the tick budget ran out first. timeoutTicks 0 blocks forever.
func (s *InboundStream) Get(p []byte, delims []byte, timeoutTicks uint64) (int, error) {
	collected := 0
	idleSince := s.clock.Now()

	for collected < len(p) {
		c, ok := s.fifo.PopByte()
		if !ok {
			if timeoutTicks != 0 && s.clock.Now()-idleSince >= timeoutTicks {
				return collected, ErrTimeout
			}
			s.clock.DelayTick()
			continue
		}
		idleSince = s.clock.Now()

		if len(delims) > 0 && bytes.IndexByte(delims, c) >= 0 {
			return collected, nil
		}
		p[collected] = c
		collected++
	}
	return collected, nil
}

// Available returns the number of buffered bytes.
func (s *InboundStream) Available() int {
	return s.fifo.Size()
}

// Flush is a no-op: an inbound stream has nothing to drain.
func (s *InboundStream) Flush() {}

// Skip discards everything currently buffered.
func (s *InboundStream) Skip() {
	s.fifo.Clear()
}

// Close is equivalent to Flush for an inbound stream.
func (s *InboundStream) Close() {}

var _ Stream = (*InboundStream)(nil)
