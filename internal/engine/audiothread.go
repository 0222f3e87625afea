package engine

import (
	"time"

	"code.hybscloud.com/atomix"

	"github.com/geckoaudio/gecko-engine/internal/dsp"
)

// ThreadState is the audio callback thread's state machine (spec.md §4.9):
// only Running processes audio, every other state outputs silence.
type ThreadState int

const (
	StateIdle ThreadState = iota
	StateStarting
	StateRunning
	StateStopping
	StateStopped
	StateFaulted
)

// maxCommandsPerCallback bounds command draining per buffer (spec.md §4.8/
// §4.9 "drain command queue, bounded by 64 messages").
const maxCommandsPerCallback = 64

// spectrumUpdateInterval and levelUpdateInterval are the ~30Hz rate limits
// spec.md §4.3/§4.7/§4.9 specify for metering and spectrum events.
const (
	levelUpdateInterval    = time.Second / 30
	spectrumUpdateInterval = time.Second / 30
	underrunLogInterval    = time.Second
)

// CaptureSource pulls up to n frames of interleaved stereo audio from a
// lock-free ring written by the platform backend's capture thread (spec.md
// §4.9 step 2). Returns the number of frames actually available; a short
// read is padded with silence by the caller and counts as an underrun on
// that stream only.
type CaptureSource interface {
	Pull(buf []float32) (framesRead int)
}

// OutputSink accepts one fully-processed interleaved stereo buffer per
// callback (spec.md §4.9 step 3 "write result to output buffer").
type OutputSink interface {
	Write(buf []float32) error
}

// AudioThread owns the real-time pipeline: the Mixer, the per-stream
// capture sources, and the output sink, exclusively (spec.md §3 Ownership
// model, §4.9 Audio Thread / Callback Core). Every method here except
// lifecycle transitions and DrainSpectrum (which runs on the FFT worker)
// is meant to run on a single dedicated OS thread and
// must not allocate, lock, or perform syscalls beyond the output write.
type AudioThread struct {
	cfg EngineConfig

	state atomix.Uint32 // ThreadState, relaxed

	commands *CommandQueue
	events   *EventQueue

	mixer   *Mixer
	sources map[StreamID]CaptureSource
	sink    OutputSink

	scratch       map[StreamID][]float32
	outBuf        []float32
	spectrum      *dsp.SpectrumRing
	spectrumOn    bool

	lastLevelEmit    time.Time
	lastSpectrumEmit time.Time
	lastUnderrunEmit map[StreamID]time.Time
}

// NewAudioThread constructs the audio thread's owned state. sink may be nil
// for tests that only want to inspect the produced buffer.
func NewAudioThread(cfg EngineConfig, commands *CommandQueue, events *EventQueue, sink OutputSink) (*AudioThread, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mixer, err := NewMixer(float64(cfg.Stream.SampleRate), cfg.Stream.BufferSize, cfg.Stream.Channels)
	if err != nil {
		return nil, err
	}
	at := &AudioThread{
		cfg:              cfg,
		commands:         commands,
		events:           events,
		mixer:            mixer,
		sources:          make(map[StreamID]CaptureSource),
		sink:             sink,
		scratch:          make(map[StreamID][]float32),
		outBuf:           make([]float32, cfg.Stream.BufferSize*cfg.Stream.Channels),
		spectrum:         dsp.NewSpectrumRing(float64(cfg.Stream.SampleRate)),
		spectrumOn:       true,
		lastUnderrunEmit: make(map[StreamID]time.Time),
	}
	at.state.StoreRelaxed(uint32(StateIdle))
	return at, nil
}

// State returns the current thread state.
func (at *AudioThread) State() ThreadState {
	return ThreadState(at.state.LoadRelaxed())
}

func (at *AudioThread) setState(s ThreadState) {
	at.state.StoreRelaxed(uint32(s))
}

// AddSource registers a capture source for a newly discovered stream,
// pre-allocating its scratch buffer (spec.md §3 StreamProcessor "never
// reallocated after construction"). Only ever called from applyCommand, i.e.
// on the audio thread itself, so it is free to mutate sources/scratch/mixer
// state without synchronization (spec.md §3 ownership model).
func (at *AudioThread) AddSource(id StreamID, appName string, src CaptureSource) error {
	sp, err := NewStreamProcessor(id, appName, float64(at.cfg.Stream.SampleRate), at.cfg.Stream.BufferSize, at.cfg.Stream.Channels)
	if err != nil {
		return err
	}
	if !at.mixer.AddStream(sp) {
		return nil // at capacity; spec.md doesn't define a hard failure mode here, stream is simply not mixed
	}
	at.sources[id] = src
	at.scratch[id] = make([]float32, at.cfg.Stream.BufferSize*at.cfg.Stream.Channels)
	return nil
}

// RemoveSource tears down a stream's capture feed and mixer slot. Only ever
// called from applyCommand, on the audio thread.
func (at *AudioThread) RemoveSource(id StreamID) {
	delete(at.sources, id)
	delete(at.scratch, id)
	at.mixer.RemoveStream(id)
}

// RunCallback executes one full callback iteration (spec.md §4.9 "per-
// callback protocol"). Returns the state after the callback, so a caller
// driving the thread in a loop knows when to stop.
func (at *AudioThread) RunCallback(now time.Time) ThreadState {
	at.commands.Drain(maxCommandsPerCallback, at.applyCommand)

	state := at.State()
	if state != StateRunning {
		at.fillSilence()
		at.writeOutput()
		return state
	}

	for id, src := range at.sources {
		buf := at.scratch[id]
		n := src.Pull(buf)
		if n < len(buf)/at.cfg.Stream.Channels {
			for i := n * at.cfg.Stream.Channels; i < len(buf); i++ {
				buf[i] = 0
			}
			at.maybeEmitUnderrun(id, now)
		}
	}

	at.mixer.MixAndProcess(at.scratch, at.outBuf)
	at.spectrum.Append(at.outBuf)

	at.writeOutput()
	at.maybeEmitMetering(now)
	return StateRunning
}

func (at *AudioThread) fillSilence() {
	for i := range at.outBuf {
		at.outBuf[i] = 0
	}
}

func (at *AudioThread) writeOutput() {
	if at.sink == nil {
		return
	}
	if err := at.sink.Write(at.outBuf); err != nil {
		at.events.Publish(ErrorEvent(err))
	}
}

func (at *AudioThread) maybeEmitUnderrun(id StreamID, now time.Time) {
	last, ok := at.lastUnderrunEmit[id]
	if ok && now.Sub(last) < underrunLogInterval {
		return
	}
	at.lastUnderrunEmit[id] = now
	at.events.Publish(Event{Kind: EvtBufferUnderrun})
}

func (at *AudioThread) maybeEmitMetering(now time.Time) {
	if now.Sub(at.lastLevelEmit) >= levelUpdateInterval {
		at.lastLevelEmit = now
		l, r := at.mixer.Meter()
		at.events.Publish(Event{Kind: EvtLevelUpdate, Left: l, Right: r})
	}
	if at.spectrumOn && now.Sub(at.lastSpectrumEmit) >= spectrumUpdateInterval {
		at.lastSpectrumEmit = now
		at.spectrum.PublishSnapshot()
	}
}

// DrainSpectrum is called from the dedicated FFT worker goroutine (spec.md
// §4.3), never from RunCallback. It publishes a SpectrumUpdate event if a
// fresh snapshot is available.
func (at *AudioThread) DrainSpectrum() {
	snap := at.spectrum.TakeSnapshot()
	if snap == nil {
		return
	}
	bins := dsp.Analyze(snap, float64(at.cfg.Stream.SampleRate))
	at.events.Publish(Event{Kind: EvtSpectrumUpdate, Bins: bins})
}

// applyCommand is the closed dispatch over CommandKind (spec.md §4.8 table).
// The audio thread never fails as a result of a command: invalid indices or
// unknown streams are dropped silently or substitute identity behavior,
// per spec.md §4.2/§7.
func (at *AudioThread) applyCommand(cmd Command) {
	switch cmd.Kind {
	case CmdStart:
		at.setState(StateRunning)
		at.events.Publish(Event{Kind: EvtStarted})
	case CmdStop:
		at.setState(StateStopped)
		at.events.Publish(Event{Kind: EvtStopped})
	case CmdUpdateEq:
		at.mixer.MasterEQ().ApplyConfig(cmd.EqConfig)
	case CmdSetBandGain:
		_ = at.mixer.MasterEQ().SetBandGain(cmd.Band, cmd.GainDB)
	case CmdSetStreamBandGain:
		if sp := at.mixer.Stream(cmd.StreamID); sp != nil {
			_ = sp.EQ().SetBandGain(cmd.Band, cmd.GainDB)
		}
	case CmdSetAppBypass:
		for _, sp := range at.mixer.slots {
			if sp != nil && sp.AppName == cmd.AppName {
				sp.SetBypass(cmd.Bypassed)
			}
		}
	case CmdSetStreamVolume:
		if sp := at.mixer.Stream(cmd.StreamID); sp != nil {
			sp.SetVolume(cmd.Volume)
		}
	case CmdSetMasterVolume:
		at.mixer.SetMasterVolume(cmd.Volume)
	case CmdSetBypass:
		at.mixer.SetBypass(cmd.Bypassed)
	case CmdSetSoftClipEnabled:
		at.mixer.SetSoftClipEnabled(cmd.Enabled)
	case CmdUpdateStreamConfig:
		// Sample-rate/buffer changes require a stream rebuild the controller
		// drives (spec.md §4.8); the audio thread only acknowledges here.
		at.events.Publish(Event{Kind: EvtConfigChanged, StreamConfig: cmd.StreamConfig})
	case CmdRequestState:
		l, _ := at.mixer.Meter()
		_ = l
		at.events.Publish(Event{Kind: EvtStateUpdate, State: EngineState{
			IsRunning: at.State() == StateRunning,
		}})
	case CmdShutdown:
		at.setState(StateStopping)
	case CmdStartAppCapture:
		// Registration happens here, on the audio thread, rather than in the
		// controller (spec.md §3 "insertions and deletions happen on the
		// audio thread in response to control messages"). The CaptureSource
		// handle rides along on the command itself (see protocol.go).
		if err := at.AddSource(cmd.StreamID, cmd.AppName, cmd.Source); err != nil {
			at.events.Publish(ErrorEvent(err))
			return
		}
		at.events.Publish(Event{Kind: EvtStreamDiscovered, AppName: cmd.AppName})
	case CmdStopAppCapture:
		at.RemoveSource(cmd.StreamID)
		at.events.Publish(Event{Kind: EvtStreamRemoved, AppName: cmd.AppName})
	case CmdSetInputDevice, CmdSetOutputDevice:
		// These require platform-backend coordination the controller owns;
		// the audio thread's only responsibility is to keep running with
		// whatever sources are currently registered (spec.md §4.10).
	}
}
