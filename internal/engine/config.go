package engine

import (
	"github.com/geckoaudio/gecko-engine/internal/domain"
)

// StreamConfig is the validated audio stream configuration accepted at
// engine construction (spec.md §3 StreamConfig, §6 Configuration).
type StreamConfig struct {
	SampleRate int
	Channels   int
	BufferSize int
}

// DefaultStreamConfig matches the original project's default: 48kHz stereo
// with a 512-frame buffer (~10.7ms latency).
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{SampleRate: 48000, Channels: 2, BufferSize: 512}
}

// LowLatencyConfig trades stability for a ~2.7ms callback deadline at
// 48kHz/128 frames.
func LowLatencyConfig() StreamConfig {
	return StreamConfig{SampleRate: 48000, Channels: 2, BufferSize: 128}
}

// StableConfig trades latency (~21ms at 48kHz/1024 frames) for headroom on
// slower or more loaded systems.
func StableConfig() StreamConfig {
	return StreamConfig{SampleRate: 48000, Channels: 2, BufferSize: 1024}
}

// LatencyMS returns the nominal per-buffer latency in milliseconds.
func (c StreamConfig) LatencyMS() float64 {
	return (float64(c.BufferSize) / float64(c.SampleRate)) * 1000.0
}

// BytesPerFrame returns the byte footprint of one frame (float32 samples ×
// channels), used for scratch-buffer sizing.
func (c StreamConfig) BytesPerFrame() int {
	return 4 * c.Channels
}

// Validate enforces spec.md §3/§6's accepted ranges.
func (c StreamConfig) Validate() error {
	if c.SampleRate < 8000 || c.SampleRate > 192000 {
		return domain.NewEngineErrorWithDetails(domain.ErrCodeDevice, domain.ErrStreamConfigInvalid.Error(),
			"sample_rate out of range [8000,192000]", domain.ErrStreamConfigInvalid)
	}
	if c.Channels < 1 || c.Channels > 8 {
		return domain.NewEngineErrorWithDetails(domain.ErrCodeDevice, domain.ErrStreamConfigInvalid.Error(),
			"channels out of range [1,8]", domain.ErrStreamConfigInvalid)
	}
	if c.BufferSize < 32 || c.BufferSize > 8192 {
		return domain.NewEngineErrorWithDetails(domain.ErrCodeDevice, domain.ErrStreamConfigInvalid.Error(),
			"buffer_size out of range [32,8192]", domain.ErrStreamConfigInvalid)
	}
	return nil
}

// EngineConfig is the top-level construction-time configuration for the
// audio thread and its capture rings (spec.md §6 "ring_buffer_frames").
type EngineConfig struct {
	Stream           StreamConfig
	RingBufferFrames int
	AutoStart        bool
}

// DefaultEngineConfig pairs DefaultStreamConfig with a 4x ring multiplier.
func DefaultEngineConfig() EngineConfig {
	cfg := DefaultStreamConfig()
	return EngineConfig{Stream: cfg, RingBufferFrames: cfg.BufferSize * 4, AutoStart: false}
}

// Validate checks the stream config and the ring-buffer-frames floor spec.md
// §6 requires (≥ 4 × buffer_size).
func (c EngineConfig) Validate() error {
	if err := c.Stream.Validate(); err != nil {
		return err
	}
	if c.RingBufferFrames < 4*c.Stream.BufferSize {
		return domain.NewEngineErrorWithDetails(domain.ErrCodeDevice, domain.ErrStreamConfigInvalid.Error(),
			"ring_buffer_frames must be >= 4x buffer_size", domain.ErrStreamConfigInvalid)
	}
	return nil
}
