package engine

import (
	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"

	"github.com/geckoaudio/gecko-engine/internal/domain"
)

// commandQueueCapacity and eventQueueCapacity are the bounded capacities
// spec.md §4.8 requires (command MPSC ≥ 64, event SPSC ≥ 128).
const (
	commandQueueCapacity = 64
	eventQueueCapacity   = 128
)

// CommandQueue is the bounded MPSC channel from the controller (and any
// number of its callers) to the single audio thread consumer.
type CommandQueue struct {
	q *lfq.MPSC[Command]
}

// NewCommandQueue constructs a command queue at the spec-mandated capacity.
func NewCommandQueue() *CommandQueue {
	return &CommandQueue{q: lfq.NewMPSC[Command](commandQueueCapacity)}
}

// Send enqueues a command, retrying with a bounded backoff while the queue
// is transiently full (spec.md §5 "command-queue sends ... may block
// briefly if the queue is full"). It never performs a blocking channel
// receive — only try-enqueue plus backoff, so a wedged audio thread cannot
// hang the controller forever; Send still returns an error after the
// backoff gives up rather than spinning indefinitely.
func (cq *CommandQueue) Send(cmd Command) error {
	var backoff iox.Backoff
	for {
		err := cq.q.Enqueue(&cmd)
		if err == nil {
			return nil
		}
		if !lfq.IsWouldBlock(err) {
			return domain.NewEngineError(domain.ErrCodeIPC, domain.ErrChannelSend.Error(), domain.ErrChannelSend)
		}
		if !backoff.Wait() {
			return domain.NewEngineError(domain.ErrCodeIPC, domain.ErrChannelSend.Error(), domain.ErrChannelSend)
		}
	}
}

// Drain pulls up to max commands without blocking, calling fn for each
// (spec.md §4.9 "drain command queue, bounded by 64 messages"). Called only
// from the audio thread.
func (cq *CommandQueue) Drain(max int, fn func(Command)) int {
	n := 0
	for n < max {
		cmd, err := cq.q.Dequeue()
		if err != nil {
			break
		}
		fn(cmd)
		n++
	}
	return n
}

// EventQueue is the bounded SPSC channel from the single audio thread
// producer to the controller's event pump. pendingErr/hasPending are
// producer-side-only bookkeeping: they are read and written exclusively by
// Publish (the audio thread), never by Receive (the controller), so they
// need no synchronization of their own beyond the SPSC queue itself.
type EventQueue struct {
	q *lfq.SPSC[Event]

	pendingErr *Event
	hasPending bool
}

// NewEventQueue constructs an event queue at the spec-mandated capacity.
func NewEventQueue() *EventQueue {
	return &EventQueue{q: lfq.NewSPSC[Event](eventQueueCapacity)}
}

// Publish offers ev to the queue without retrying (spec.md §4.8 "events
// that cannot be enqueued are dropped silently except Error, which
// coalesces with the previous unread Error"). Called only from the audio
// thread — never retries, never blocks.
//
// Coalescing: if a previous Error failed to enqueue (queue was full), it is
// retried here before ev so the latest unread Error is never silently
// replaced by a newer one without at least one more attempt to deliver it.
func (eq *EventQueue) Publish(ev Event) {
	if eq.hasPending {
		if err := eq.q.Enqueue(eq.pendingErr); err == nil {
			eq.hasPending = false
			eq.pendingErr = nil
		}
	}
	if err := eq.q.Enqueue(&ev); err != nil && ev.Kind == EvtError {
		coalesced := ev
		eq.pendingErr = &coalesced
		eq.hasPending = true
	}
}

// Receive pulls the next event if one is ready, for the controller's
// non-real-time event pump. Returns ok=false if the queue is currently
// empty.
func (eq *EventQueue) Receive() (Event, bool) {
	ev, err := eq.q.Dequeue()
	if err != nil {
		return Event{}, false
	}
	return ev, true
}
