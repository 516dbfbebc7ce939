package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srediag/dataport/internal/logging"
	"github.com/srediag/dataport/pkg/dataport"
	"github.com/srediag/dataport/pkg/fifo"
)

func newManualDuplex(t *testing.T, outSize, inSize int) (*DuplexStream, *fifo.Ring, *manualClock) {
	t.Helper()
	clk := &manualClock{}
	out, err := fifo.NewBytes(make([]byte, outSize))
	require.NoError(t, err)
	s, err := NewDuplexOver(out, make([]byte, inSize), &Config{Clock: clk})
	require.NoError(t, err)
	return s, out, clk
}

// TestWriteShortAccept fills the outbound buffer down to 2 free bytes and
// checks a 5-byte write accepts exactly 2, leaving the tail for the caller.
func TestWriteShortAccept(t *testing.T) {
	s, _, _ := newManualDuplex(t, 8, 8)

	require.Equal(t, 6, s.Write([]byte("abcdef")))

	n := s.Write([]byte("vwxyz"))
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, s.Outbound().Free())
	assert.Equal(t, 0, s.Write([]byte("!")))
}

func TestFlushWaitsForDrainingAgent(t *testing.T) {
	s, out, clk := newManualDuplex(t, 8, 8)

	require.Equal(t, 5, s.Write([]byte("hello")))

	// The agent drains one byte per ceded tick.
	drained := make([]byte, 0, 5)
	clk.onTick = func() {
		var one [1]byte
		if out.Read(one[:]) == 1 {
			drained = append(drained, one[0])
		}
	}

	s.Flush()
	assert.Equal(t, "hello", string(drained))
	assert.Equal(t, 0, out.Size())
	assert.Equal(t, uint64(5), clk.now)
}

func TestFlushReturnsImmediatelyWhenEmpty(t *testing.T) {
	s, _, clk := newManualDuplex(t, 8, 8)
	s.Flush()
	assert.Equal(t, uint64(0), clk.now)
}

func TestCloseFlushes(t *testing.T) {
	s, out, clk := newManualDuplex(t, 8, 8)
	s.Write([]byte("xy"))
	clk.onTick = func() { out.Read(make([]byte, 1)) }

	s.Close()
	assert.Equal(t, 0, out.Size())
}

func TestFlushStallIsReported(t *testing.T) {
	defer logging.SetDebugMode(false)

	out, err := fifo.NewBytes(make([]byte, 8))
	require.NoError(t, err)
	s, err := NewDuplexOver(out, make([]byte, 8), &Config{
		PollInterval:    time.Millisecond,
		FlushStallTicks: 3,
	})
	require.NoError(t, err)

	s.Write([]byte("stuck"))

	// Release mode: logged, returns instead of blocking forever.
	logging.SetDebugMode(false)
	s.Flush()
	assert.Equal(t, 5, out.Size())

	// Debug mode: fatal.
	logging.SetDebugMode(true)
	assert.Panics(t, func() { s.Flush() })
}

// TestDuplexOverDataport wires the write side to a shared channel's producer
// view and checks the attached consumer observes the bytes in order, which
// is the deployment where Flush has a real draining peer.
func TestDuplexOverDataport(t *testing.T) {
	mem := make([]byte, dataport.HeaderSize+8)
	producer, err := dataport.Create(mem)
	require.NoError(t, err)
	consumer, err := dataport.Attach(mem)
	require.NoError(t, err)

	clk := &manualClock{}
	s, err := NewDuplexOver(producer, make([]byte, 8), &Config{Clock: clk})
	require.NoError(t, err)

	require.Equal(t, 5, s.Write([]byte("hello")))
	assert.Equal(t, 5, consumer.Size())

	// Peer drains while we flush.
	got := make([]byte, 0, 5)
	clk.onTick = func() {
		var one [1]byte
		if consumer.Read(one[:]) == 1 {
			got = append(got, one[0])
		}
	}
	s.Flush()
	assert.Equal(t, "hello", string(got))
	assert.True(t, producer.IsEmpty())
}

func TestDuplexReadSideIndependent(t *testing.T) {
	s, _, _ := newManualDuplex(t, 8, 8)

	s.Feed([]byte("in"))
	s.Write([]byte("out"))

	buf := make([]byte, 4)
	n := s.Read(buf)
	assert.Equal(t, "in", string(buf[:n]))
	assert.Equal(t, 3, s.Outbound().Size())
}
