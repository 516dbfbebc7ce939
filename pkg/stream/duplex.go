package stream

import (
	"github.com/cenkalti/backoff/v4"

	"github.com/srediag/dataport/pkg/fifo"
)

// ByteSink is the write side a duplex stream enqueues into. Both *fifo.Ring
// and the dataport types satisfy it, so the outbound buffer can be a private
// ring or the producer side of a shared channel drained by a peer.
type ByteSink interface {
	Write(p []byte) int
	Size() int
	Free() int
}

// DuplexStream composes an inbound stream for the read direction with an
// outbound byte buffer for the write direction.
//
// Flush blocks until the outbound buffer drains. Nothing in this package
// drains it automatically: flushing is only meaningful when the sink is the
// producer side of a dataport consumed by a peer, or when a Pump or platform
// callback empties it. Flushing without such an agent is an unsupported
// pattern; bound it with Config.FlushStallTicks.
type DuplexStream struct {
	*InboundStream

	out        ByteSink
	clock      Clock
	stallTicks uint64
	conf       *Config
}

// NewDuplex constructs a duplex stream with a private outbound ring over
// writeBuf and a read buffer over readBuf. conf may be nil.
func NewDuplex(writeBuf, readBuf []byte, conf *Config) (*DuplexStream, error) {
	out, err := fifo.NewBytes(writeBuf)
	if err != nil {
		return nil, err
	}
	return NewDuplexOver(out, readBuf, conf)
}

// NewDuplexOver constructs a duplex stream writing into an existing sink,
// typically a dataport's producer side.
func NewDuplexOver(out ByteSink, readBuf []byte, conf *Config) (*DuplexStream, error) {
	in, err := NewInbound(readBuf, conf)
	if err != nil {
		return nil, err
	}
	return &DuplexStream{
		InboundStream: in,
		out:           out,
		clock:         conf.clock(),
		stallTicks:    conf.flushStallTicks(),
		conf:          conf,
	}, nil
}

// Outbound returns the write-side sink, letting a draining agent be attached
// to it.
func (s *DuplexStream) Outbound() ByteSink {
	return s.out
}

// Write enqueues up to the outbound buffer's free space and returns the
// accepted count. Callers must re-submit the rejected tail or Flush first.
func (s *DuplexStream) Write(p []byte) int {
	return s.out.Write(p)
}

// Flush blocks, ceding one tick per poll, until the outbound buffer is
// empty. With FlushStallTicks set, a flush that outlives the budget is
// reported as a contract violation instead of blocking forever.
func (s *DuplexStream) Flush() {
	if s.stallTicks == 0 {
		for s.out.Size() > 0 {
			s.clock.DelayTick()
		}
		return
	}

	pending := backoff.Retry(func() error {
		if s.out.Size() > 0 {
			return ErrTimeout
		}
		return nil
	}, backoff.WithMaxRetries(
		backoff.NewConstantBackOff(s.conf.pollInterval()), s.stallTicks))

	if pending != nil {
		internalLogger.Failf(
			"stream: flush stalled for %d ticks with %d bytes pending, no draining agent",
			s.stallTicks, s.out.Size())
	}
}

// Close flushes pending output; the read side needs no release.
func (s *DuplexStream) Close() {
	s.Flush()
}

var _ Stream = (*DuplexStream)(nil)
