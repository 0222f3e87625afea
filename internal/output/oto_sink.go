// Package output provides the default/fallback audio output sink consumed
// by internal/engine.AudioThread (spec.md §4.10 final paragraph). It is the
// one place in this module that talks to a real audio device outside a
// platform backend.
package output

import (
	"io"
	"math"
	"sync"

	"github.com/hajimehoshi/oto/v3"

	"github.com/geckoaudio/gecko-engine/internal/logger"
)

// bytesPerSample is the float32 sample width oto expects when FormatFloat32LE
// is selected.
const bytesPerSample = 4

// OtoSink adapts the engine's per-callback float32 interleaved buffers to a
// continuous `github.com/hajimehoshi/oto/v3` player. Unlike the single-track
// push-style writer this is adapted from, OtoSink never closes its reader
// between buffers: Write appends to a small internal queue that the oto
// player drains on its own goroutine, so the audio thread's Write call never
// blocks on device I/O for longer than copying into that queue.
type OtoSink struct {
	ctx    *oto.Context
	player *oto.Player

	mu     sync.Mutex
	queue  []byte
	closed bool
}

// NewOtoSink opens an oto context at sampleRate/channels and starts a player
// reading from this sink's internal queue.
func NewOtoSink(sampleRate, channels int) (*OtoSink, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return nil, err
	}
	<-ready

	sink := &OtoSink{ctx: ctx}
	sink.player = ctx.NewPlayer(sink)
	sink.player.Play()
	logger.Info("oto output sink started", logger.Int("sample_rate", sampleRate), logger.Int("channels", channels))
	return sink, nil
}

// Write appends one processed interleaved buffer to the playback queue
// (internal/engine.OutputSink). Called once per audio callback.
func (s *OtoSink) Write(buf []float32) error {
	raw := float32SliceToBytes(buf)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.queue = append(s.queue, raw...)
	return nil
}

// Read implements io.Reader for oto's player goroutine. If the queue is
// empty, it serves silence rather than blocking, so a momentary stall in the
// engine never stalls the OS mixer.
func (s *OtoSink) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, io.EOF
	}
	if len(s.queue) == 0 {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}
	n := copy(p, s.queue)
	s.queue = s.queue[n:]
	if n < len(p) {
		for i := n; i < len(p); i++ {
			p[i] = 0
		}
		return len(p), nil
	}
	return n, nil
}

// Close stops playback and releases the oto context.
func (s *OtoSink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	if s.player != nil {
		_ = s.player.Close()
	}
	return nil
}

func float32SliceToBytes(buf []float32) []byte {
	out := make([]byte, len(buf)*bytesPerSample)
	for i, v := range buf {
		bits := math.Float32bits(v)
		out[i*4+0] = byte(bits)
		out[i*4+1] = byte(bits >> 8)
		out[i*4+2] = byte(bits >> 16)
		out[i*4+3] = byte(bits >> 24)
	}
	return out
}
