package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func monoSine(freqHz, sampleRate float64, frames int) []float32 {
	buf := make([]float32, frames*2)
	for i := 0; i < frames; i++ {
		v := float32(math.Sin(2 * math.Pi * freqHz * float64(i) / sampleRate))
		buf[i*2] = v
		buf[i*2+1] = v
	}
	return buf
}

func TestSpectrumRing_TakeSnapshotOnlyOncePerGeneration(t *testing.T) {
	r := NewSpectrumRing(48000)
	r.Append(monoSine(1000, 48000, FFTSize))

	r.PublishSnapshot()
	first := r.TakeSnapshot()
	require.NotNil(t, first)

	// A second and third publish without an intervening take reuse the two
	// pre-allocated buffer slots round-robin; the worker only ever sees the
	// most recently published generation.
	r.PublishSnapshot()
	r.PublishSnapshot()
	second := r.TakeSnapshot()
	require.NotNil(t, second)

	assert.Nil(t, r.TakeSnapshot())
}

func TestSpectrumRing_TakeSnapshotNilWhenNonePublished(t *testing.T) {
	r := NewSpectrumRing(48000)
	assert.Nil(t, r.TakeSnapshot())
}

func TestAnalyze_OutputLengthMatchesBinCount(t *testing.T) {
	r := NewSpectrumRing(48000)
	r.Append(monoSine(1000, 48000, FFTSize))
	r.PublishSnapshot()
	snap := r.TakeSnapshot()
	require.NotNil(t, snap)

	bins := Analyze(snap, 48000)
	assert.Len(t, bins, NumBins)
}

func TestAnalyze_ToneConcentratesEnergyNearExpectedBin(t *testing.T) {
	r := NewSpectrumRing(48000)
	r.Append(monoSine(1000, 48000, FFTSize))
	r.PublishSnapshot()
	snap := r.TakeSnapshot()
	require.NotNil(t, snap)

	bins := Analyze(snap, 48000)

	expected := 0
	for i := 0; i < NumBins; i++ {
		if binEdges[i] <= 1000 && 1000 < binEdges[i+1] {
			expected = i
			break
		}
	}

	var peak float32
	peakIdx := 0
	for i, v := range bins {
		if v > peak {
			peak = v
			peakIdx = i
		}
	}
	assert.InDelta(t, expected, peakIdx, 1)
}

func TestAnalyze_SilenceProducesNearZeroBins(t *testing.T) {
	r := NewSpectrumRing(48000)
	r.Append(make([]float32, FFTSize*2))
	r.PublishSnapshot()
	snap := r.TakeSnapshot()
	require.NotNil(t, snap)

	bins := Analyze(snap, 48000)
	for _, v := range bins {
		assert.Less(t, v, float32(0.05))
	}
}
