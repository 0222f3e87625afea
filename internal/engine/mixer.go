package engine

import (
	"code.hybscloud.com/atomix"

	"github.com/geckoaudio/gecko-engine/internal/dsp"
)

// maxStreams bounds the Mixer's fixed-capacity stream table (spec.md §3
// Mixer "fixed-capacity map ... reuse slots from a free list; no allocation
// on discovery after warm-up").
const maxStreams = 64

// StreamProcessor is one captured application's processing state: its own
// Equalizer, linear volume, and bypass flag (spec.md §3 StreamProcessor,
// §4.6 Per-Stream Processor). Volume and bypass are atomics so the
// controller can update them without going through the coefficient-swap
// protocol.
type StreamProcessor struct {
	ID      StreamID
	AppName string

	eq    *dsp.Equalizer
	chain dsp.Chain // owns this stream's EQ+volume stages (spec.md §4.6)
	ctx   dsp.ProcessContext

	volume  atomix.Float64
	bypass  atomix.Bool

	peakL atomix.Float32
	peakR atomix.Float32

	scratch []float32 // pre-sized to maxBufferFrames*channels, never reallocated
}

// NewStreamProcessor constructs a per-stream processor with unity volume,
// bypass off, and a flat EQ at sampleRate.
func NewStreamProcessor(id StreamID, appName string, sampleRate float64, maxBufferFrames, channels int) (*StreamProcessor, error) {
	eq, err := dsp.NewEqualizer(sampleRate)
	if err != nil {
		return nil, err
	}
	sp := &StreamProcessor{
		ID:      id,
		AppName: appName,
		eq:      eq,
		ctx:     dsp.ProcessContext{SampleRate: sampleRate, Channels: channels, BufferSize: maxBufferFrames},
		scratch: make([]float32, maxBufferFrames*channels),
	}
	sp.chain.Append(dsp.Stage{Kind: dsp.StageEQ, Enabled: true, EQ: eq})
	sp.chain.Append(dsp.Stage{Kind: dsp.StageVolume, Enabled: true, VolumeLinear: 1.0})
	sp.volume.StoreRelaxed(1.0)
	sp.bypass.StoreRelaxed(false)
	return sp, nil
}

// SetVolume sets the linear per-stream gain (0.0-2.0, spec.md §3
// StreamProcessor, §4.8 SetStreamVolume). Safe to call from the controller
// without coefficient-swap overhead.
func (sp *StreamProcessor) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 2.0 {
		v = 2.0
	}
	sp.volume.StoreRelaxed(v)
}

// SetBypass toggles per-stream bypass (spec.md §4.8 SetAppBypass keys on
// app_name; the audio thread applies it to every stream whose AppName
// matches).
func (sp *StreamProcessor) SetBypass(bypassed bool) {
	sp.bypass.StoreRelaxed(bypassed)
}

// EQ exposes the per-stream Equalizer so the audio thread's command
// dispatch can route SetStreamBandGain commands to it.
func (sp *StreamProcessor) EQ() *dsp.Equalizer { return sp.eq }

// Peak returns the most recently measured per-stream peak levels.
func (sp *StreamProcessor) Peak() (float32, float32) {
	return sp.peakL.LoadRelaxed(), sp.peakR.LoadRelaxed()
}

// Process runs this stream's chain over an interleaved stereo buffer in
// place (spec.md §4.6): bypassed or zero-volume takes a fast path that
// skips the EQ entirely; otherwise EQ runs in place and the result is
// scaled by volume. Per-stream peak L/R is recorded either way.
func (sp *StreamProcessor) Process(buf []float32) {
	volume := sp.volume.LoadRelaxed()
	if sp.bypass.LoadRelaxed() || volume == 0 {
		if volume == 0 {
			for i := range buf {
				buf[i] = 0
			}
		}
		sp.updatePeak(buf)
		return
	}
	sp.chain.SetVolumeLinear(volume)
	sp.chain.Process(buf, sp.ctx)
	sp.updatePeak(buf)
}

func (sp *StreamProcessor) updatePeak(buf []float32) {
	var peakL, peakR float32
	for i := 0; i+1 < len(buf); i += 2 {
		l, r := buf[i], buf[i+1]
		if l < 0 {
			l = -l
		}
		if r < 0 {
			r = -r
		}
		if l > peakL {
			peakL = l
		}
		if r > peakR {
			peakR = r
		}
	}
	sp.peakL.StoreRelaxed(peakL)
	sp.peakR.StoreRelaxed(peakR)
}

// Mixer holds every active StreamProcessor plus the master chain state
// (master Equalizer, soft-clip toggle, master volume, metering). It runs
// entirely on the audio thread (spec.md §3 Mixer, §4.7 Mixer & Master
// Stage).
type Mixer struct {
	slots    [maxStreams]*StreamProcessor
	freeList []int

	masterEQ       *dsp.Equalizer
	masterChain    dsp.Chain // EQ -> soft clip -> volume, in that order (spec.md §4.7)
	masterCtx      dsp.ProcessContext
	softClipOn     atomix.Bool
	masterVolume   atomix.Float64
	masterBypassOn atomix.Bool

	meterL atomix.Float32
	meterR atomix.Float32

	accum []float32 // pre-allocated accumulator, sized buffer_size*channels
}

// NewMixer constructs a Mixer with a flat master EQ, soft clip on, and unity
// master volume.
func NewMixer(sampleRate float64, bufferFrames, channels int) (*Mixer, error) {
	masterEQ, err := dsp.NewEqualizer(sampleRate)
	if err != nil {
		return nil, err
	}
	m := &Mixer{
		masterEQ:  masterEQ,
		masterCtx: dsp.ProcessContext{SampleRate: sampleRate, Channels: channels, BufferSize: bufferFrames},
		accum:     make([]float32, bufferFrames*channels),
	}
	m.masterChain.Append(dsp.Stage{Kind: dsp.StageEQ, Enabled: true, EQ: masterEQ})
	m.masterChain.Append(dsp.Stage{Kind: dsp.StageSoftClip, Enabled: true})
	m.masterChain.Append(dsp.Stage{Kind: dsp.StageVolume, Enabled: true, VolumeLinear: 1.0})
	m.softClipOn.StoreRelaxed(true)
	m.masterVolume.StoreRelaxed(1.0)
	m.masterBypassOn.StoreRelaxed(false)
	for i := maxStreams - 1; i >= 0; i-- {
		m.freeList = append(m.freeList, i)
	}
	return m, nil
}

// AddStream inserts sp into a free slot, reusing slots from the free list so
// discovery after warm-up never allocates (spec.md §3 Mixer). Returns false
// if the mixer is at capacity.
func (m *Mixer) AddStream(sp *StreamProcessor) bool {
	if len(m.freeList) == 0 {
		return false
	}
	idx := m.freeList[len(m.freeList)-1]
	m.freeList = m.freeList[:len(m.freeList)-1]
	m.slots[idx] = sp
	return true
}

// RemoveStream releases id's slot back to the free list.
func (m *Mixer) RemoveStream(id StreamID) bool {
	for i, sp := range m.slots {
		if sp != nil && sp.ID == id {
			m.slots[i] = nil
			m.freeList = append(m.freeList, i)
			return true
		}
	}
	return false
}

// Stream returns the processor for id, or nil if not present.
func (m *Mixer) Stream(id StreamID) *StreamProcessor {
	for _, sp := range m.slots {
		if sp != nil && sp.ID == id {
			return sp
		}
	}
	return nil
}

// SetMasterVolume sets the master linear gain (0.0-1.0, spec.md §4.8
// SetMasterVolume).
func (m *Mixer) SetMasterVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1.0 {
		v = 1.0
	}
	m.masterVolume.StoreRelaxed(v)
}

// SetSoftClipEnabled toggles the master soft clipper (spec.md §4.8
// SetSoftClipEnabled).
func (m *Mixer) SetSoftClipEnabled(enabled bool) { m.softClipOn.StoreRelaxed(enabled) }

// SetBypass bypasses the entire master chain (spec.md §4.8 SetBypass):
// when set, MixAndProcess still sums streams but skips master EQ, soft
// clip, and volume scaling.
func (m *Mixer) SetBypass(bypassed bool) { m.masterBypassOn.StoreRelaxed(bypassed) }

// MasterEQ exposes the master Equalizer so the audio thread's command
// dispatch can route UpdateEq/SetBandGain commands to it.
func (m *Mixer) MasterEQ() *dsp.Equalizer { return m.masterEQ }

// Meter returns the most recent master peak levels (spec.md §3 Metering).
func (m *Mixer) Meter() (float32, float32) {
	return m.meterL.LoadRelaxed(), m.meterR.LoadRelaxed()
}

// MixAndProcess drains each active stream's chain into the shared
// accumulator, then runs the master chain (EQ → soft clip → volume, spec.md
// §4.7) and writes the result into out (which may be the accumulator
// itself). Both buffers must already be sized buffer_size*channels; neither
// is reallocated.
func (m *Mixer) MixAndProcess(streamBuffers map[StreamID][]float32, out []float32) {
	for i := range m.accum {
		m.accum[i] = 0
	}
	for _, sp := range m.slots {
		if sp == nil {
			continue
		}
		buf, ok := streamBuffers[sp.ID]
		if !ok {
			continue // missing source counts as silence (spec.md §4.7)
		}
		sp.Process(buf)
		for i, v := range buf {
			if i >= len(m.accum) {
				break
			}
			m.accum[i] += v
		}
	}

	copy(out, m.accum)

	if !m.masterBypassOn.LoadRelaxed() {
		m.masterChain.SetEnabled(dsp.StageSoftClip, m.softClipOn.LoadRelaxed())
		m.masterChain.SetVolumeLinear(m.masterVolume.LoadRelaxed())
		m.masterChain.Process(out, m.masterCtx)
	}

	m.updateMeter(out)
}

func (m *Mixer) updateMeter(buf []float32) {
	var peakL, peakR float32
	for i := 0; i+1 < len(buf); i += 2 {
		l, r := buf[i], buf[i+1]
		if l < 0 {
			l = -l
		}
		if r < 0 {
			r = -r
		}
		if l > peakL {
			peakL = l
		}
		if r > peakR {
			peakR = r
		}
	}
	m.meterL.StoreRelaxed(peakL)
	m.meterR.StoreRelaxed(peakR)
}
