package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srediag/dataport/internal/logging"
)

func drainingDuplex(t *testing.T, outSize int) (*DuplexStream, *[]byte) {
	t.Helper()
	s, out, clk := newManualDuplex(t, outSize, 8)
	drained := &[]byte{}
	clk.onTick = func() {
		var one [1]byte
		if out.Read(one[:]) == 1 {
			*drained = append(*drained, one[0])
		}
	}
	return s, drained
}

// TestWriteAllSqueezesThroughTinyBuffer pushes a payload larger than the
// outbound buffer; WriteAll must interleave writes and flushes until the
// draining agent has seen every byte in order.
func TestWriteAllSqueezesThroughTinyBuffer(t *testing.T) {
	s, drained := drainingDuplex(t, 4)

	payload := []byte("a payload much longer than four bytes")
	WriteAll(s, payload)
	s.Flush()

	assert.Equal(t, string(payload), string(*drained))
}

func TestPutStringAndPutChar(t *testing.T) {
	s, drained := drainingDuplex(t, 4)

	PutString(s, "hi")
	PutChar(s, '!')

	assert.Equal(t, "hi!", string(*drained))
}

func TestWriteSyncReportsShortAccept(t *testing.T) {
	s, drained := drainingDuplex(t, 4)

	n := WriteSync(s, []byte("toolong"))
	assert.Equal(t, 4, n)
	assert.Equal(t, "tool", string(*drained))
}

func TestPrintfFormatsThroughStream(t *testing.T) {
	s, drained := drainingDuplex(t, 4)

	n := Printf(s, "port %s seq %d\n", "uart0", 7)
	require.Equal(t, len("port uart0 seq 7\n"), n)
	assert.Equal(t, "port uart0 seq 7\n", string(*drained))
}

// TestWriteAllBailsWhenNothingDrains feeds the write helpers a read-only
// stream, whose Write accepts nothing and whose Flush is a no-op. They must
// report the violation and return instead of spinning.
func TestWriteAllBailsWhenNothingDrains(t *testing.T) {
	defer logging.SetDebugMode(false)

	s, err := NewInbound(make([]byte, 4), &Config{Clock: &manualClock{}})
	require.NoError(t, err)

	logging.SetDebugMode(false)
	WriteAll(s, []byte("dropped"))
	WriteAllSync(s, []byte("dropped"))
	PutString(s, "dropped")
	assert.Equal(t, 0, s.Available())

	logging.SetDebugMode(true)
	assert.Panics(t, func() { WriteAll(s, []byte("fatal")) })
	assert.Panics(t, func() { WriteAllSync(s, []byte("fatal")) })
}

func TestReadAllFillsAcrossFeeds(t *testing.T) {
	clk := &manualClock{}
	s, err := NewInbound(make([]byte, 4), &Config{Clock: clk})
	require.NoError(t, err)

	s.Feed([]byte("ab"))
	clk.onTick = func() { s.Feed([]byte("cd")) }

	buf := make([]byte, 4)
	assert.Equal(t, 4, ReadAll(s, buf))
	assert.Equal(t, "abcd", string(buf))
}

func TestGetCharNoDataTimesOutViaStream(t *testing.T) {
	s, err := NewInbound(make([]byte, 4), &Config{Clock: &manualClock{}})
	require.NoError(t, err)

	_, err = s.Get(make([]byte, 1), nil, 2)
	assert.ErrorIs(t, err, ErrTimeout)
}
