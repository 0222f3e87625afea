package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandQueue_SendThenDrainPreservesOrder(t *testing.T) {
	cq := NewCommandQueue()
	require.NoError(t, cq.Send(Command{Kind: CmdSetBandGain, Band: 0}))
	require.NoError(t, cq.Send(Command{Kind: CmdSetBandGain, Band: 1}))
	require.NoError(t, cq.Send(Command{Kind: CmdSetBandGain, Band: 2}))

	var seen []int
	n := cq.Drain(64, func(cmd Command) { seen = append(seen, cmd.Band) })

	assert.Equal(t, 3, n)
	assert.Equal(t, []int{0, 1, 2}, seen)
}

func TestCommandQueue_DrainRespectsMaxBound(t *testing.T) {
	cq := NewCommandQueue()
	// Stay one below capacity: a ring-buffer-backed MPSC may reserve one slot
	// to disambiguate full from empty, so filling to capacity exactly isn't
	// a portable assumption across implementations.
	const sent = commandQueueCapacity - 1
	for i := 0; i < sent; i++ {
		require.NoError(t, cq.Send(Command{Kind: CmdRequestState}))
	}

	n := cq.Drain(5, func(Command) {})
	assert.Equal(t, 5, n)

	remaining := cq.Drain(commandQueueCapacity, func(Command) {})
	assert.Equal(t, sent-5, remaining)
}

func TestEventQueue_PublishThenReceive(t *testing.T) {
	eq := NewEventQueue()
	eq.Publish(Event{Kind: EvtStarted})

	ev, ok := eq.Receive()
	require.True(t, ok)
	assert.Equal(t, EvtStarted, ev.Kind)

	_, ok = eq.Receive()
	assert.False(t, ok)
}

func TestEventQueue_ErrorCoalescesWhenQueueFull(t *testing.T) {
	eq := NewEventQueue()
	// Fill the queue so the next Publish genuinely fails to enqueue, the way
	// a busy event pump would leave it.
	for i := 0; i < eventQueueCapacity; i++ {
		eq.Publish(Event{Kind: EvtLevelUpdate})
	}

	eq.Publish(ErrorEvent(assertError("boom")))
	assert.True(t, eq.hasPending, "a dropped Error should be remembered for coalescing")

	// Free a slot, then make any subsequent Publish call: it should retry
	// the coalesced Error first rather than leaving it stranded.
	_, ok := eq.Receive()
	require.True(t, ok)
	eq.Publish(Event{Kind: EvtLevelUpdate})
	assert.False(t, eq.hasPending, "the coalesced Error should be retried on the next Publish")

	var sawError bool
	for {
		ev, ok := eq.Receive()
		if !ok {
			break
		}
		if ev.Kind == EvtError {
			sawError = true
			assert.Equal(t, "boom", ev.Message)
		}
	}
	assert.True(t, sawError, "the coalesced Error must eventually be delivered, not lost")
}

type assertError string

func (e assertError) Error() string { return string(e) }
