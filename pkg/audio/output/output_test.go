// ABOUTME: Audio output interface tests
// ABOUTME: Verifies backends, the factory and the blocking ring buffer
package output

import (
	"testing"
	"time"

	"github.com/Resonate-Protocol/ambient-go/pkg/audio"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendsImplementOutput(t *testing.T) {
	var _ Output = (*Oto)(nil)
	var _ Output = (*Malgo)(nil)
	var _ Output = (*Pulse)(nil)
	var _ Output = (*PortAudio)(nil)
}

func TestNewBackends(t *testing.T) {
	tests := []struct {
		backend string
		want    interface{}
	}{
		{"", &Oto{}},
		{BackendOto, &Oto{}},
		{BackendPulse, &Pulse{}},
		{BackendMalgo, &Malgo{}},
		{BackendPortAudio, &PortAudio{}},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			out, err := New(tt.backend, "test", zerolog.Nop())
			require.NoError(t, err)
			assert.IsType(t, tt.want, out)
		})
	}
}

func TestNewUnknownBackend(t *testing.T) {
	out, err := New("alsa", "test", zerolog.Nop())
	assert.Error(t, err)
	assert.Nil(t, out)
}

func TestWriteBeforeOpen(t *testing.T) {
	assert.ErrorIs(t, NewOto(zerolog.Nop()).Write([]byte{0, 0}), ErrNotOpen)
	assert.ErrorIs(t, NewMalgo(zerolog.Nop()).Write([]byte{0, 0}), ErrNotOpen)
	assert.ErrorIs(t, NewPulse("test", zerolog.Nop()).Write([]byte{0, 0}), ErrNotOpen)
}

func TestOpenRejectsNon16Bit(t *testing.T) {
	format := audio.Format{SampleRate: 44100, Channels: 2, BitDepth: 24}
	assert.Error(t, NewOto(zerolog.Nop()).Open(format))
	assert.Error(t, NewMalgo(zerolog.Nop()).Open(format))
	assert.Error(t, NewPulse("test", zerolog.Nop()).Open(format))
}

func TestRingBufferReadZeroFills(t *testing.T) {
	rb := NewRingBuffer(8)
	n, err := rb.Write([]byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	out := []byte{9, 9, 9, 9, 9}
	assert.Equal(t, 3, rb.Read(out))
	assert.Equal(t, []byte{1, 2, 3, 0, 0}, out)
	assert.Equal(t, 0, rb.Available())
}

func TestRingBufferWrapsAround(t *testing.T) {
	rb := NewRingBuffer(4)
	_, _ = rb.Write([]byte{1, 2, 3})
	rb.Read(make([]byte, 2))
	_, _ = rb.Write([]byte{4, 5, 6})

	out := make([]byte, 4)
	assert.Equal(t, 4, rb.Read(out))
	assert.Equal(t, []byte{3, 4, 5, 6}, out)
}

func TestRingBufferWriteBlocksUntilRead(t *testing.T) {
	rb := NewRingBuffer(4)
	done := make(chan struct{})

	go func() {
		_, _ = rb.Write([]byte{1, 2, 3, 4, 5, 6})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("write of 6 bytes into a 4-byte ring must block")
	case <-time.After(50 * time.Millisecond):
	}

	rb.Read(make([]byte, 4))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("write did not resume after read")
	}
	assert.Equal(t, 2, rb.Available())
}

func TestRingBufferCloseUnblocksWriter(t *testing.T) {
	rb := NewRingBuffer(2)
	errCh := make(chan error, 1)

	go func() {
		_, err := rb.Write([]byte{1, 2, 3})
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	rb.Close()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrBufferClosed)
	case <-time.After(time.Second):
		t.Fatal("Close did not wake the writer")
	}
}

func TestWaitUntil(t *testing.T) {
	calls := 0
	assert.True(t, waitUntil(time.Second, func() bool { calls++; return calls >= 3 }))
	assert.False(t, waitUntil(30*time.Millisecond, func() bool { return false }))
}
