package dsp

// StageKind is the closed set of processor chain stage types. spec.md §9
// explicitly calls for a closed tagged enum here instead of open interface
// dispatch (the shape the teacher's internal/audio/dsp/effects.go Effect
// interface, and the original Rust AudioProcessor trait, both use) so that
// per-sample dispatch stays branch-predictable and heap-indirection-free.
type StageKind int

const (
	StageEQ StageKind = iota
	StageVolume
	StageSoftClip
)

// ProcessContext carries read-only processing parameters (spec.md §4.5).
type ProcessContext struct {
	SampleRate float64
	Channels   int
	BufferSize int
}

// Stage is one slot in a Chain. Exactly one of the StageKind-specific
// fields is meaningful, selected by Kind. This mirrors a tagged union: no
// stage ever needs a vtable, and the chain's hot loop is a closed switch.
type Stage struct {
	Kind    StageKind
	Enabled bool

	// StageEQ
	EQ *Equalizer

	// StageVolume
	VolumeLinear float64

	// StageSoftClip has no extra state — SoftClip is stateless.
}

// maxStages bounds the fixed-capacity stage array (spec.md §4.5: "a small
// fixed-capacity array of stages suffices").
const maxStages = 8

// Chain is an ordered, fixed-capacity sequence of Stages (spec.md §4.5).
// Stages mutate an interleaved stereo buffer in place; disabled stages are
// skipped; nothing here allocates once constructed.
type Chain struct {
	stages [maxStages]Stage
	count  int
}

// Append adds a stage to the end of the chain. Only called during
// construction (controller side), never from the audio thread mid-stream.
func (c *Chain) Append(stage Stage) {
	if c.count >= maxStages {
		return
	}
	c.stages[c.count] = stage
	c.count++
}

// SetVolumeLinear updates the gain of the first StageVolume stage in the
// chain. Stage.VolumeLinear is otherwise fixed at construction, but volume
// is the one stage parameter callers expect to change every buffer (spec.md
// §4.8 SetStreamVolume/SetMasterVolume), so this is the one mutator besides
// SetEnabled that reaches into an existing stage rather than rebuilding it.
func (c *Chain) SetVolumeLinear(linear float64) {
	for i := 0; i < c.count; i++ {
		if c.stages[i].Kind == StageVolume {
			c.stages[i].VolumeLinear = linear
			return
		}
	}
}

// SetEnabled toggles every stage of the given kind. In this engine it is
// called only on the audio thread, where the Mixer copies its atomic
// soft-clip toggle into the master chain once per buffer (see
// internal/engine).
func (c *Chain) SetEnabled(kind StageKind, enabled bool) {
	for i := 0; i < c.count; i++ {
		if c.stages[i].Kind == kind {
			c.stages[i].Enabled = enabled
		}
	}
}

// Process runs every enabled stage, in order, over buf. No allocation.
func (c *Chain) Process(buf []float32, ctx ProcessContext) {
	for i := 0; i < c.count; i++ {
		s := &c.stages[i]
		if !s.Enabled {
			continue
		}
		switch s.Kind {
		case StageEQ:
			if s.EQ != nil {
				_ = s.EQ.ProcessInterleaved(buf)
			}
		case StageVolume:
			applyVolume(buf, s.VolumeLinear)
		case StageSoftClip:
			SoftClipBuffer(buf)
		}
	}
}

// Reset clears state on every stage that has any (currently only EQ
// stages).
func (c *Chain) Reset() {
	for i := 0; i < c.count; i++ {
		if c.stages[i].Kind == StageEQ && c.stages[i].EQ != nil {
			c.stages[i].EQ.Reset()
		}
	}
}

func applyVolume(buf []float32, gain float64) {
	g := float32(gain)
	for i, v := range buf {
		buf[i] = v * g
	}
}
