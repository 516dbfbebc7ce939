package stream

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srediag/dataport/pkg/fifo"
)

// syncBuffer is a mutex-guarded sink so the test can poll what the pump's
// worker goroutine has written so far.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) snapshot() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPumpDrainsSourceInOrder(t *testing.T) {
	src, err := fifo.NewBytes(make([]byte, 64))
	require.NoError(t, err)
	payload := []byte("pumped in committed order")
	require.Equal(t, len(payload), src.Write(payload))

	pump, err := NewPump(2, nil)
	require.NoError(t, err)
	defer pump.Close()

	sink := &syncBuffer{}
	require.NoError(t, pump.Drain(src, sink))

	waitFor(t, func() bool { return len(sink.snapshot()) == len(payload) })
	assert.Equal(t, string(payload), sink.snapshot())
}

func TestPumpServesMultipleSources(t *testing.T) {
	pump, err := NewPump(4, nil)
	require.NoError(t, err)
	defer pump.Close()

	var sinks [3]*syncBuffer
	for i := range sinks {
		src, err := fifo.NewBytes(make([]byte, 16))
		require.NoError(t, err)
		src.Write([]byte{byte('a' + i), byte('a' + i)})
		sinks[i] = &syncBuffer{}
		require.NoError(t, pump.Drain(src, sinks[i]))
	}

	waitFor(t, func() bool {
		for _, s := range sinks {
			if len(s.snapshot()) != 2 {
				return false
			}
		}
		return true
	})
	assert.Equal(t, "aa", sinks[0].snapshot())
	assert.Equal(t, "bb", sinks[1].snapshot())
	assert.Equal(t, "cc", sinks[2].snapshot())
}

func TestPumpCloseIsIdempotent(t *testing.T) {
	pump, err := NewPump(1, nil)
	require.NoError(t, err)
	pump.Close()
	pump.Close()
}
