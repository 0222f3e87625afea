package output

import (
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests exercise OtoSink's queue/byte-conversion logic directly on a
// zero-value struct, without calling NewOtoSink, since opening a real oto
// context requires an actual audio device.

func TestFloat32SliceToBytes_RoundTripsThroughFloat32bits(t *testing.T) {
	buf := []float32{1.0, -1.0, 0.5, 0.0}
	raw := float32SliceToBytes(buf)
	require.Len(t, raw, len(buf)*bytesPerSample)

	for i, want := range buf {
		bits := uint32(raw[i*4]) | uint32(raw[i*4+1])<<8 | uint32(raw[i*4+2])<<16 | uint32(raw[i*4+3])<<24
		got := math.Float32frombits(bits)
		assert.Equal(t, want, got)
	}
}

func TestOtoSink_WriteThenReadDrainsQueue(t *testing.T) {
	sink := &OtoSink{}
	require.NoError(t, sink.Write([]float32{1.0, 1.0}))

	raw := make([]byte, bytesPerSample*2)
	n, err := sink.Read(raw)
	require.NoError(t, err)
	assert.Equal(t, len(raw), n)
	assert.Empty(t, sink.queue)
}

func TestOtoSink_ReadFillsSilenceWhenQueueEmpty(t *testing.T) {
	sink := &OtoSink{}
	raw := make([]byte, 16)
	n, err := sink.Read(raw)
	require.NoError(t, err)
	assert.Equal(t, len(raw), n)
	for _, b := range raw {
		assert.Equal(t, byte(0), b)
	}
}

func TestOtoSink_ReadPadsPartialQueueWithSilence(t *testing.T) {
	sink := &OtoSink{}
	require.NoError(t, sink.Write([]float32{1.0}))

	raw := make([]byte, bytesPerSample*2)
	n, err := sink.Read(raw)
	require.NoError(t, err)
	assert.Equal(t, len(raw), n)
	for i := bytesPerSample; i < len(raw); i++ {
		assert.Equal(t, byte(0), raw[i])
	}
}

func TestOtoSink_CloseStopsFurtherWritesAndReads(t *testing.T) {
	sink := &OtoSink{}
	sink.closed = true

	assert.NoError(t, sink.Write([]float32{1.0}))
	assert.Empty(t, sink.queue)

	_, err := sink.Read(make([]byte, 4))
	assert.Equal(t, io.EOF, err)
}
