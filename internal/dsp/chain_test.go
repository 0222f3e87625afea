package dsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChain_SkipsDisabledStages(t *testing.T) {
	var c Chain
	c.Append(Stage{Kind: StageVolume, Enabled: false, VolumeLinear: 0})
	c.Append(Stage{Kind: StageVolume, Enabled: true, VolumeLinear: 0.5})

	buf := []float32{1, 1, 1, 1}
	c.Process(buf, ProcessContext{SampleRate: 48000, Channels: 2, BufferSize: 2})
	for _, v := range buf {
		assert.Equal(t, float32(0.5), v)
	}
}

func TestChain_EQStageRunsThroughEqualizer(t *testing.T) {
	eq, err := NewEqualizer(48000)
	require.NoError(t, err)

	var c Chain
	c.Append(Stage{Kind: StageEQ, Enabled: true, EQ: eq})

	buf := sineBuffer(48000, 1000, 0.5, 64)
	before := make([]float32, len(buf))
	copy(before, buf)

	c.Process(buf, ProcessContext{SampleRate: 48000, Channels: 2, BufferSize: 64})
	// flat EQ should leave the signal close to unchanged
	for i := range buf {
		assert.InDelta(t, float64(before[i]), float64(buf[i]), 1e-3)
	}
}

func TestChain_SoftClipStageClampsPeaks(t *testing.T) {
	var c Chain
	c.Append(Stage{Kind: StageSoftClip, Enabled: true})

	buf := []float32{2.0, -2.0}
	c.Process(buf, ProcessContext{SampleRate: 48000, Channels: 2, BufferSize: 1})
	assert.Less(t, buf[0], float32(1.0))
	assert.Greater(t, buf[1], float32(-1.0))
}

func TestChain_MaxStagesIgnoresOverflow(t *testing.T) {
	var c Chain
	for i := 0; i < maxStages+4; i++ {
		c.Append(Stage{Kind: StageVolume, Enabled: true, VolumeLinear: 1})
	}
	assert.Equal(t, maxStages, c.count)
}
