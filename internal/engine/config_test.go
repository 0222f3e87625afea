package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStreamConfig_ValidateRejectsOutOfRangeFields(t *testing.T) {
	cases := []struct {
		name string
		cfg  StreamConfig
	}{
		{"sample rate too low", StreamConfig{SampleRate: 4000, Channels: 2, BufferSize: 512}},
		{"sample rate too high", StreamConfig{SampleRate: 300000, Channels: 2, BufferSize: 512}},
		{"no channels", StreamConfig{SampleRate: 48000, Channels: 0, BufferSize: 512}},
		{"too many channels", StreamConfig{SampleRate: 48000, Channels: 9, BufferSize: 512}},
		{"buffer too small", StreamConfig{SampleRate: 48000, Channels: 2, BufferSize: 16}},
		{"buffer too large", StreamConfig{SampleRate: 48000, Channels: 2, BufferSize: 16384}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Error(t, c.cfg.Validate())
		})
	}
}

func TestStreamConfig_PresetsAreValid(t *testing.T) {
	assert.NoError(t, DefaultStreamConfig().Validate())
	assert.NoError(t, LowLatencyConfig().Validate())
	assert.NoError(t, StableConfig().Validate())
}

func TestStreamConfig_LatencyMSMatchesExpectedRatio(t *testing.T) {
	cfg := StreamConfig{SampleRate: 48000, Channels: 2, BufferSize: 512}
	assert.InDelta(t, 10.6667, cfg.LatencyMS(), 1e-3)
}

func TestEngineConfig_ValidateRequiresRingFloor(t *testing.T) {
	cfg := EngineConfig{Stream: DefaultStreamConfig(), RingBufferFrames: 100}
	assert.Error(t, cfg.Validate())

	cfg.RingBufferFrames = cfg.Stream.BufferSize * 4
	assert.NoError(t, cfg.Validate())
}
