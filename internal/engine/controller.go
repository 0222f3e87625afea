package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/geckoaudio/gecko-engine/internal/domain"
	"github.com/geckoaudio/gecko-engine/internal/dsp"
	"github.com/geckoaudio/gecko-engine/internal/logger"
)

// Controller is the non-real-time orchestrator (spec.md §2 item 10, §5
// "Controller thread"): it accepts external commands, owns the audio
// thread's lifecycle, and publishes events to subscribers. It never touches
// Mixer/Equalizer state directly — every mutation crosses the command
// queue so the audio thread's ownership invariant (spec.md §3) holds.
type Controller struct {
	mu      sync.Mutex
	running int32

	cfg EngineConfig

	commands *CommandQueue
	events   *EventQueue
	thread   *AudioThread

	subscribers []chan Event
	stopPump    chan struct{}
	pumpDone    chan struct{}

	stopSpectrum chan struct{}
	spectrumDone chan struct{}
}

// NewController constructs a Controller around a validated EngineConfig.
// The audio thread is constructed but left Idle until Start.
func NewController(cfg EngineConfig, sink OutputSink) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	commands := NewCommandQueue()
	events := NewEventQueue()
	thread, err := NewAudioThread(cfg, commands, events, sink)
	if err != nil {
		return nil, err
	}
	return &Controller{
		cfg:      cfg,
		commands: commands,
		events:   events,
		thread:   thread,
	}, nil
}

// Start transitions Idle→Starting→Running and launches the controller's
// event pump and the audio thread's callback loop (spec.md §4.9 "Start →
// Starting → Running on first callback"). Returns domain.ErrAlreadyRunning
// if already started (spec.md §7 Lifecycle errors).
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !atomic.CompareAndSwapInt32(&c.running, 0, 1) {
		return domain.NewEngineError(domain.ErrCodeLifecycle, domain.ErrAlreadyRunning.Error(), domain.ErrAlreadyRunning)
	}

	if err := c.commands.Send(Command{Kind: CmdStart}); err != nil {
		atomic.StoreInt32(&c.running, 0)
		return err
	}
	// Starting until the first callback drains CmdStart and moves to Running.
	c.thread.setState(StateStarting)

	c.stopPump = make(chan struct{})
	c.pumpDone = make(chan struct{})
	c.stopSpectrum = make(chan struct{})
	c.spectrumDone = make(chan struct{})
	go c.pumpEvents()
	go c.driveCallbacks()
	go c.runSpectrumWorker()
	return nil
}

// Stop enqueues Shutdown, which moves the audio thread to Stopping if a
// callback drains it before the loop exits; the thread state is not
// advanced to Stopped. Stop then signals the event pump, the callback loop
// and the spectrum worker to exit, and waits, each with a bounded timeout,
// for the callback loop and the spectrum worker (spec.md §5 "Shutdown
// drains the command queue ... lets the current buffer complete, then
// exits"). Returns domain.ErrNotRunning if not started.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !atomic.CompareAndSwapInt32(&c.running, 1, 0) {
		return domain.NewEngineError(domain.ErrCodeLifecycle, domain.ErrNotRunning.Error(), domain.ErrNotRunning)
	}
	if err := c.commands.Send(Command{Kind: CmdShutdown}); err != nil {
		logger.ErrorLog("failed to send shutdown command", logger.Error(err))
	}
	close(c.stopPump)
	close(c.stopSpectrum)

	select {
	case <-c.pumpDone:
	case <-time.After(2 * time.Second):
		// Controller joins with a bounded timeout; on timeout the thread is
		// orphaned and reported rather than blocking shutdown forever
		// (spec.md §5 "Cancellation/timeout").
		logger.Warn("audio thread did not join within timeout, marking orphaned")
	}
	select {
	case <-c.spectrumDone:
	case <-time.After(2 * time.Second):
		logger.Warn("spectrum worker did not join within timeout, marking orphaned")
	}
	return nil
}

// driveCallbacks runs the audio thread's callback loop at the configured
// buffer cadence until it reaches a terminal state. In production this
// cadence is driven by the platform output callback itself (spec.md §4.9);
// this ticker-based driver is the portable fallback used by the demo
// entry point and by tests that don't wire a real output backend.
func (c *Controller) driveCallbacks() {
	defer close(c.pumpDone)
	interval := time.Duration(c.cfg.Stream.LatencyMS() * float64(time.Millisecond))
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopPump:
			return
		case now := <-ticker.C:
			state := c.thread.RunCallback(now)
			if state == StateStopped || state == StateFaulted {
				return
			}
		}
	}
}

// runSpectrumWorker is the dedicated FFT worker goroutine (spec.md §4.3 "the
// FFT itself... executed on a dedicated worker thread, not the audio
// thread"). It polls at the same ~30Hz cadence spectrum snapshots are
// published at, off the audio callback's goroutine entirely.
func (c *Controller) runSpectrumWorker() {
	defer close(c.spectrumDone)
	ticker := time.NewTicker(spectrumUpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopSpectrum:
			return
		case <-ticker.C:
			c.thread.DrainSpectrum()
		}
	}
}

// pumpEvents drains the event queue and fans each event out to subscribers,
// logging it on their behalf (spec.md §5 "the audio thread never logs
// directly ... the controller logs on the events' behalf").
func (c *Controller) pumpEvents() {
	ticker := time.NewTicker(2 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopPump:
			c.drainRemaining()
			return
		case <-ticker.C:
			for {
				ev, ok := c.events.Receive()
				if !ok {
					break
				}
				c.dispatch(ev)
			}
		}
	}
}

func (c *Controller) drainRemaining() {
	for {
		ev, ok := c.events.Receive()
		if !ok {
			return
		}
		c.dispatch(ev)
	}
}

func (c *Controller) dispatch(ev Event) {
	if ev.Kind == EvtError {
		logger.ErrorLog("engine event error", logger.String("message", ev.Message))
	}
	for _, sub := range c.subscribers {
		select {
		case sub <- ev:
		default:
			// A slow subscriber drops events rather than blocking the pump.
		}
	}
}

// Subscribe registers a channel that receives a copy of every event the
// controller dispatches. The returned channel is buffered and never closed
// by the controller; callers own its lifecycle.
func (c *Controller) Subscribe(buffer int) chan Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan Event, buffer)
	c.subscribers = append(c.subscribers, ch)
	return ch
}

// IsRunning reports whether the engine is currently started.
func (c *Controller) IsRunning() bool { return atomic.LoadInt32(&c.running) == 1 }

// SetMasterVolume enqueues a SetMasterVolume command (spec.md §4.8).
func (c *Controller) SetMasterVolume(v float64) error {
	return c.commands.Send(Command{Kind: CmdSetMasterVolume, Volume: v})
}

// SetStreamVolume enqueues a SetStreamVolume command for id (spec.md §4.8,
// seed scenario 4).
func (c *Controller) SetStreamVolume(id StreamID, v float64) error {
	return c.commands.Send(Command{Kind: CmdSetStreamVolume, StreamID: id, Volume: v})
}

// SetBandGain enqueues a SetBandGain command for the master EQ (spec.md
// §4.8).
func (c *Controller) SetBandGain(band int, gainDB float64) error {
	return c.commands.Send(Command{Kind: CmdSetBandGain, Band: band, GainDB: gainDB})
}

// SetStreamBandGain enqueues a SetStreamBandGain command (spec.md §4.8).
func (c *Controller) SetStreamBandGain(id StreamID, band int, gainDB float64) error {
	return c.commands.Send(Command{Kind: CmdSetStreamBandGain, StreamID: id, Band: band, GainDB: gainDB})
}

// UpdateEq enqueues a full master EqConfig replacement (spec.md §4.8).
func (c *Controller) UpdateEq(cfg dsp.EqConfig) error {
	return c.commands.Send(Command{Kind: CmdUpdateEq, EqConfig: cfg})
}

// SetBypass enqueues a master bypass toggle (spec.md §4.8).
func (c *Controller) SetBypass(bypassed bool) error {
	return c.commands.Send(Command{Kind: CmdSetBypass, Bypassed: bypassed})
}

// SetSoftClipEnabled enqueues a soft-clip toggle (spec.md §4.8).
func (c *Controller) SetSoftClipEnabled(enabled bool) error {
	return c.commands.Send(Command{Kind: CmdSetSoftClipEnabled, Enabled: enabled})
}

// SetAppBypass enqueues a per-app bypass toggle (spec.md §4.8).
func (c *Controller) SetAppBypass(appName string, bypassed bool) error {
	return c.commands.Send(Command{Kind: CmdSetAppBypass, AppName: appName, Bypassed: bypassed})
}

// RequestState enqueues a state-snapshot request (spec.md §4.8).
func (c *Controller) RequestState() error {
	return c.commands.Send(Command{Kind: CmdRequestState})
}

// AddStream enqueues registration of a newly discovered application stream
// (spec.md §4.10 StreamDiscovered). In production this is invoked by the
// platform backend's discovery callback. The CaptureSource handle rides
// along on the Command value itself — it is an interface (type, pointer)
// pair, so this copies as cheaply as any other command field — and the
// actual map/mixer mutation happens only once the audio thread drains the
// command, never on the controller goroutine (spec.md §3 ownership model).
func (c *Controller) AddStream(id StreamID, appName string, src CaptureSource) error {
	return c.commands.Send(Command{Kind: CmdStartAppCapture, StreamID: id, AppName: appName, Source: src})
}

// RemoveStream enqueues teardown of a stream's feed (spec.md §4.10
// StreamRemoved). As with AddStream, the actual removal happens on the
// audio thread when it drains the command.
func (c *Controller) RemoveStream(id StreamID, appName string) error {
	return c.commands.Send(Command{Kind: CmdStopAppCapture, StreamID: id, AppName: appName})
}

// Meter returns the current master peak levels for a polling UI.
func (c *Controller) Meter() (float32, float32) {
	return c.thread.mixer.Meter()
}
