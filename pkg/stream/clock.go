package stream

import (
	"time"
)

// DefaultPollInterval is the tick granularity blocking calls poll at unless
// the stream's Config overrides it. Blocking consumes CPU proportionally to
// this interval and bounds responsiveness by it.
const DefaultPollInterval = time.Millisecond

// Clock is the platform collaborator behind ticks: a monotonic tick counter
// and a way to cede the processor for one tick. Tests substitute manual
// implementations.
type Clock interface {
	Now() uint64
	DelayTick()
}

type tickClock struct {
	interval time.Duration
	epoch    time.Time
}

// NewClock returns a Clock ticking every interval of wall time.
func NewClock(interval time.Duration) Clock {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &tickClock{interval: interval, epoch: time.Now()}
}

func (c *tickClock) Now() uint64 {
	return uint64(time.Since(c.epoch) / c.interval)
}

func (c *tickClock) DelayTick() {
	time.Sleep(c.interval)
}

// Config carries the stream-level knobs. The zero value is usable.
type Config struct {
	// PollInterval is the tick length for blocking calls,
	// DefaultPollInterval when zero. Ignored when Clock is set.
	PollInterval time.Duration

	// Clock overrides the tick source entirely.
	Clock Clock

	// FlushStallTicks bounds how many ticks Flush waits without the
	// outbound buffer draining before treating the flush as unsupported
	// (no draining agent). Zero waits without bound.
	FlushStallTicks uint64
}

func (c *Config) clock() Clock {
	if c == nil {
		return NewClock(DefaultPollInterval)
	}
	if c.Clock != nil {
		return c.Clock
	}
	return NewClock(c.PollInterval)
}

func (c *Config) flushStallTicks() uint64 {
	if c == nil {
		return 0
	}
	return c.FlushStallTicks
}

func (c *Config) pollInterval() time.Duration {
	if c == nil || c.PollInterval <= 0 {
		return DefaultPollInterval
	}
	return c.PollInterval
}
