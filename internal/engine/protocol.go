package engine

import "github.com/geckoaudio/gecko-engine/internal/dsp"

// StreamID is the stable opaque identifier a platform backend assigns when
// an application stream is discovered (spec.md §3 StreamId).
type StreamID string

// CommandKind is the closed set of controller→audio-thread commands
// (spec.md §4.8). Like dsp.StageKind, this is a tagged struct rather than an
// interface so the audio thread's drain loop is a single closed switch with
// no per-command heap indirection.
type CommandKind int

const (
	CmdStart CommandKind = iota
	CmdStop
	CmdUpdateEq
	CmdSetBandGain
	CmdSetStreamBandGain
	CmdSetAppBypass
	CmdStartAppCapture
	CmdStopAppCapture
	CmdSetStreamVolume
	CmdSetMasterVolume
	CmdSetBypass
	CmdSetSoftClipEnabled
	CmdSetInputDevice
	CmdSetOutputDevice
	CmdUpdateStreamConfig
	CmdRequestState
	CmdShutdown
)

// Command is one controller→audio-thread message. Exactly the fields
// relevant to Kind are populated; the rest are zero. Commands that would
// otherwise require heap allocation (e.g. a Start/StartAppCapture slot) are
// value types so enqueueing them onto the lfq MPSC never allocates on the
// audio thread's behalf (spec.md §4.8 "pre-allocated slots").
type Command struct {
	Kind CommandKind

	EqConfig     dsp.EqConfig
	Band         int
	GainDB       float64
	StreamID     StreamID
	AppName      string
	Bypassed     bool
	PID          uint32
	Volume       float64
	Enabled      bool
	DeviceID     string
	StreamConfig StreamConfig

	// Source carries the live CaptureSource handle for CmdStartAppCapture.
	// An interface value is just a (type, pointer) pair, so this copies as
	// cheaply as any other Command field — no heap allocation is introduced
	// by routing stream registration through the command queue.
	Source CaptureSource
}

// EventKind is the closed set of audio-thread→controller events (spec.md
// §4.8).
type EventKind int

const (
	EvtStarted EventKind = iota
	EvtStopped
	EvtError
	EvtLevelUpdate
	EvtStateUpdate
	EvtDevicesChanged
	EvtBufferUnderrun
	EvtConfigChanged
	EvtStreamDiscovered
	EvtStreamRemoved
	EvtSpectrumUpdate
)

// EngineState is the payload of an EvtStateUpdate event (spec.md §4.8
// StateUpdate).
type EngineState struct {
	IsRunning    bool
	IsBypassed  bool
	MasterVolume float64
	InputDevice  string
	OutputDevice string
}

// Event is one audio-thread→controller message. As with Command, only the
// fields relevant to Kind are meaningful.
type Event struct {
	Kind EventKind

	Message      string
	Left, Right  float32
	State        EngineState
	StreamConfig StreamConfig
	AppName      string
	NodeID       uint32
	Bins         [dsp.NumBins]float32
}

// ErrorEvent builds an EvtError event from any error value (mirrors the
// original project's Event::error helper).
func ErrorEvent(err error) Event {
	return Event{Kind: EvtError, Message: err.Error()}
}
