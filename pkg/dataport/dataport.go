// Package dataport implements a lock-free single-producer/single-consumer
// byte FIFO designed to live inside a memory region shared between two
// isolated address spaces, plus contiguous-window accessors for zero-copy
// transfers (memcpy- or DMA-style).
//
// Layout of a dataport inside its region:
//
//	+----+-----+-------+------+----------+------------------------+
//	| in | out | first | last | capacity |        data ...        |
//	+----+-----+-------+------+----------+------------------------+
//	  five little-endian uint64 words          capacity bytes
//
// The five header words followed by the data area are the wire ABI of the
// channel; both sides of the mapping must agree on it. The producer side
// creates (initializes) the block, the consumer side only ever attaches.
//
// Concurrency model: no mutex, no atomic read-modify-write instructions.
// Each header field has exactly one writer for the channel's lifetime: the
// producer owns in and last, the consumer owns out and first. A side reads
// the peer's monotonic counter with a plain load; a stale value only
// under-reports occupancy for one more poll, never corrupts data, because a
// naturally aligned 64-bit store is a single write at the hardware word
// level. The peer's cached *index* field, however, must never be trusted
// mid-update: the window accessors recompute it locally from the monotonic
// counter instead.
package dataport

import (
	"encoding/binary"
	"errors"

	"github.com/srediag/dataport/internal/logging"
)

const (
	headerInOff    = 0
	headerOutOff   = 8
	headerFirstOff = 16
	headerLastOff  = 24
	headerCapOff   = 32

	// HeaderSize is the byte size of the control block preceding the data
	// area inside a region.
	HeaderSize = 40
)

var (
	// ErrRegionTooSmall means the region cannot hold the control block plus
	// at least one data byte.
	ErrRegionTooSmall = errors.New("dataport: region too small")

	// ErrBadHeader means an attached region's control block is inconsistent
	// with the region's size, i.e. it was never initialized by a producer.
	ErrBadHeader = errors.New("dataport: inconsistent control block")
)

var internalLogger = logging.Default()

// Dataport is one endpoint's view of a shared SPSC byte channel. Exactly one
// producer and one consumer may exist per channel for its whole lifetime;
// the struct itself holds no role state, the discipline is the caller's.
type Dataport struct {
	mem  []byte // whole region, header included
	data []byte // data area, mem[HeaderSize:HeaderSize+capacity]
	cap  uint64

	stats *portStats // nil unless instrumented via the registry
}

// Create initializes a dataport over mem, zeroing the control block. Only the
// producer side calls Create. The usable capacity is len(mem) - HeaderSize.
func Create(mem []byte) (*Dataport, error) {
	if len(mem) <= HeaderSize {
		return nil, ErrRegionTooSmall
	}
	capacity := uint64(len(mem) - HeaderSize)
	d := &Dataport{
		mem:  mem,
		data: mem[HeaderSize : HeaderSize+int(capacity)],
		cap:  capacity,
	}
	d.store(headerInOff, 0)
	d.store(headerOutOff, 0)
	d.store(headerFirstOff, 0)
	d.store(headerLastOff, 0)
	d.store(headerCapOff, capacity)
	return d, nil
}

// Attach views an already-initialized dataport in mem. The consumer side
// calls Attach and must never reinitialize the block.
func Attach(mem []byte) (*Dataport, error) {
	if len(mem) <= HeaderSize {
		return nil, ErrRegionTooSmall
	}
	capacity := binary.LittleEndian.Uint64(mem[headerCapOff:])
	if capacity == 0 || capacity > uint64(len(mem)-HeaderSize) {
		return nil, ErrBadHeader
	}
	return &Dataport{
		mem:  mem,
		data: mem[HeaderSize : HeaderSize+int(capacity)],
		cap:  capacity,
	}, nil
}

func (d *Dataport) load(off int) uint64 {
	return binary.LittleEndian.Uint64(d.mem[off:])
}

func (d *Dataport) store(off int, v uint64) {
	binary.LittleEndian.PutUint64(d.mem[off:], v)
}

// Capacity returns the data area size in bytes.
func (d *Dataport) Capacity() int {
	return int(d.cap)
}

// Size returns the bytes currently buffered. Calling it from either role is
// safe; the result may lag the peer's in-flight operation by one step.
func (d *Dataport) Size() int {
	return int(d.load(headerInOff) - d.load(headerOutOff))
}

// Free returns the bytes that could still be written.
func (d *Dataport) Free() int {
	return int(d.cap) - d.Size()
}

// IsEmpty reports whether the channel holds no data.
func (d *Dataport) IsEmpty() bool {
	return d.load(headerInOff) == d.load(headerOutOff)
}

// IsFull reports whether no further byte can be written.
func (d *Dataport) IsFull() bool {
	return d.load(headerInOff)-d.load(headerOutOff) == d.cap
}

// ContiguousData returns the window of buffered bytes starting at the oldest
// one and running until the physical wrap boundary, or nil when empty.
// Consumer-side call. The window may be shorter than Size(); commit consumed
// bytes with Remove.
func (d *Dataport) ContiguousData() []byte {
	// Snapshot the counters first. The producer may append concurrently;
	// working on the snapshot stays correct, it only under-reports.
	in := d.load(headerInOff)
	out := d.load(headerOutOff)
	if in == out {
		return nil
	}

	// first is owned by the consumer (us), reading it directly is safe.
	first := d.load(headerFirstOff)

	// The stored last may be half-updated by the producer right now, so
	// recompute it from the snapshotted in instead.
	last := in % d.cap

	if first < last {
		return d.data[first:last]
	}
	return d.data[first:d.cap]
}

// ContiguousFree returns the window of free space starting at the next write
// position and running until the physical wrap boundary, or nil when full.
// Producer-side call. Commit filled bytes with Add.
func (d *Dataport) ContiguousFree() []byte {
	in := d.load(headerInOff)
	out := d.load(headerOutOff)
	if out+d.cap == in {
		return nil
	}

	// last is owned by the producer (us); the consumer never touches it.
	last := d.load(headerLastOff)

	// The stored first may be mid-update by the consumer, recompute locally.
	first := out % d.cap

	if first > last {
		return d.data[last:first]
	}
	return d.data[last:d.cap]
}

// Remove commits amount consumed bytes, advancing the consumer-owned fields.
// Removing more than Size() is a contract violation: fatal in debug mode,
// logged and ignored otherwise.
func (d *Dataport) Remove(amount int) {
	used := d.Size()
	if amount > used {
		internalLogger.Failf("dataport: Remove amount %d > used %d", amount, used)
		return
	}
	// first stays < capacity, so explicit subtraction replaces the modulo.
	first := d.load(headerFirstOff) + uint64(amount)
	if first >= d.cap {
		first -= d.cap
	}
	d.store(headerFirstOff, first)
	d.store(headerOutOff, d.load(headerOutOff)+uint64(amount))

	if d.stats != nil {
		d.stats.read.Add(float64(amount))
		d.stats.occupancy.Set(float64(d.Size()))
	}
}

// Add commits amount produced bytes, advancing the producer-owned fields.
// Adding more than Free() is a contract violation: fatal in debug mode,
// logged and ignored otherwise.
func (d *Dataport) Add(amount int) {
	free := d.Free()
	if amount > free {
		internalLogger.Failf("dataport: Add amount %d > free %d", amount, free)
		return
	}
	last := d.load(headerLastOff) + uint64(amount)
	if last >= d.cap {
		last -= d.cap
	}
	d.store(headerLastOff, last)
	d.store(headerInOff, d.load(headerInOff)+uint64(amount))

	if d.stats != nil {
		d.stats.written.Add(float64(amount))
		d.stats.occupancy.Set(float64(d.Size()))
	}
}

// Read moves up to len(buf) buffered bytes into buf, committing as it goes,
// and returns the number moved. Non-blocking; consumer-side call.
func (d *Dataport) Read(buf []byte) int {
	read := 0
	for read < len(buf) {
		window := d.ContiguousData()
		if len(window) == 0 {
			break
		}
		n := copy(buf[read:], window)
		d.Remove(n)
		read += n
	}
	return read
}

// Write copies up to len(buf) bytes into the channel, committing as it goes,
// and returns the number accepted. Non-blocking; producer-side call.
func (d *Dataport) Write(buf []byte) int {
	written := 0
	for written < len(buf) {
		window := d.ContiguousFree()
		if len(window) == 0 {
			break
		}
		n := copy(window, buf[written:])
		d.Add(n)
		written += n
	}
	return written
}

func (d *Dataport) instrument(name string) {
	d.stats = newPortStats(name)
}
