// Package fifo implements a fixed-capacity circular buffer of fixed-size
// elements over caller-supplied storage. Because the package never allocates
// the backing array itself, a Ring can manage bytes living anywhere,
// including a shared memory mapping.
package fifo

import (
	"errors"
)

var (
	// ErrZeroCapacity is returned when constructing a ring with no slots.
	ErrZeroCapacity = errors.New("fifo: capacity must be positive")

	// ErrZeroElemSize is returned when constructing a ring with empty elements.
	ErrZeroElemSize = errors.New("fifo: element size must be positive")

	// ErrShortStorage is returned when the supplied storage cannot hold
	// capacity elements.
	ErrShortStorage = errors.New("fifo: storage smaller than capacity*elemSize")
)

// Ring is a single-producer/single-consumer circular buffer.
//
// The monotonic counters in and out are the single source of truth for
// occupancy: size = in - out. first and last cache the wrapped positions of
// in and out so the hot path never divides. The counters are 64 bit wide,
// which makes logical wraparound practically unreachable (pushing one element
// per nanosecond overflows after ~584 years).
//
// The producer role mutates only in and last, the consumer role only out and
// first. That field-ownership discipline is what the dataport package builds
// its lock-free cross-address-space variant on.
type Ring struct {
	storage  []byte
	capacity uint64
	elemSize uint64

	in    uint64 // total elements ever pushed
	out   uint64 // total elements ever popped, out <= in
	first uint64 // wrapped index of the oldest occupied slot, == out % capacity
	last  uint64 // wrapped index of the next free slot, == in % capacity
}

// New constructs a ring of capacity elements of elemSize bytes each over the
// supplied storage. The storage is not owned and must outlive the ring.
func New(storage []byte, capacity, elemSize int) (*Ring, error) {
	if capacity <= 0 {
		return nil, ErrZeroCapacity
	}
	if elemSize <= 0 {
		return nil, ErrZeroElemSize
	}
	if len(storage) < capacity*elemSize {
		return nil, ErrShortStorage
	}
	return &Ring{
		storage:  storage,
		capacity: uint64(capacity),
		elemSize: uint64(elemSize),
	}, nil
}

// NewBytes constructs a byte-granularity ring using the whole of storage.
func NewBytes(storage []byte) (*Ring, error) {
	return New(storage, len(storage), 1)
}

// Size returns the number of elements currently held.
func (r *Ring) Size() int {
	return int(r.in - r.out)
}

// Capacity returns the fixed element capacity.
func (r *Ring) Capacity() int {
	return int(r.capacity)
}

// Free returns the number of free element slots.
func (r *Ring) Free() int {
	return int(r.capacity - (r.in - r.out))
}

// IsEmpty reports whether the ring holds no elements.
func (r *Ring) IsEmpty() bool {
	return r.in == r.out
}

// IsFull reports whether no further element can be pushed.
func (r *Ring) IsFull() bool {
	return r.in-r.out == r.capacity
}

// Push copies one element into the ring. It returns false without mutating
// anything when the ring is full. elem must hold at least elemSize bytes.
func (r *Ring) Push(elem []byte) bool {
	if r.IsFull() {
		return false
	}
	copy(r.slot(r.last), elem[:r.elemSize])
	r.last = r.wrapNext(r.last)
	r.in++
	return true
}

// Pop copies the oldest element into elem and removes it. It returns false
// when the ring is empty. A nil elem discards the element.
func (r *Ring) Pop(elem []byte) bool {
	if r.IsEmpty() {
		return false
	}
	if elem != nil {
		copy(elem[:r.elemSize], r.slot(r.first))
	}
	r.first = r.wrapNext(r.first)
	r.out++
	return true
}

// PeekFirst returns a view of the oldest element without removing it, or nil
// when the ring is empty. The view is invalidated by the next Pop or Clear.
func (r *Ring) PeekFirst() []byte {
	if r.IsEmpty() {
		return nil
	}
	return r.slot(r.first)
}

// Clear pops all remaining elements. Raw bytes need no per-element release,
// so the counters are advanced in one step.
func (r *Ring) Clear() {
	r.out = r.in
	r.first = r.last
}

// PushByte pushes a single byte. Valid only for elemSize 1 rings.
func (r *Ring) PushByte(b byte) bool {
	if r.IsFull() {
		return false
	}
	r.storage[r.last] = b
	r.last = r.wrapNext(r.last)
	r.in++
	return true
}

// PopByte pops a single byte. Valid only for elemSize 1 rings.
func (r *Ring) PopByte() (byte, bool) {
	if r.IsEmpty() {
		return 0, false
	}
	b := r.storage[r.first]
	r.first = r.wrapNext(r.first)
	r.out++
	return b, true
}

// Write copies up to len(p) bytes from p into the ring and returns the number
// accepted, which is less than len(p) when the ring fills up. Valid only for
// elemSize 1 rings.
func (r *Ring) Write(p []byte) int {
	n := 0
	for n < len(p) && r.PushByte(p[n]) {
		n++
	}
	return n
}

// Read moves up to len(p) bytes from the ring into p and returns the number
// moved. Valid only for elemSize 1 rings.
func (r *Ring) Read(p []byte) int {
	n := 0
	for n < len(p) {
		b, ok := r.PopByte()
		if !ok {
			break
		}
		p[n] = b
		n++
	}
	return n
}

func (r *Ring) slot(idx uint64) []byte {
	off := idx * r.elemSize
	return r.storage[off : off+r.elemSize]
}

// wrapNext advances a wrapped index by one slot. Explicit subtraction is
// enough because idx is always < capacity.
func (r *Ring) wrapNext(idx uint64) uint64 {
	idx++
	if idx >= r.capacity {
		idx -= r.capacity
	}
	return idx
}
