package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipeWireBackend_SupportsVirtualDevicesAndPerAppCapture(t *testing.T) {
	b, err := NewPipeWireBackend()
	require.NoError(t, err)

	assert.True(t, b.SupportsVirtualDevices())
	assert.True(t, b.SupportsPerAppCapture())
	assert.True(t, b.IsConnected())
	assert.Equal(t, "PipeWire", b.Name())
}

func TestPipeWireBackend_CreateAndDestroyVirtualSink(t *testing.T) {
	b, err := NewPipeWireBackend()
	require.NoError(t, err)

	id, err := b.CreateVirtualSink(DefaultVirtualSinkConfig())
	require.NoError(t, err)

	nodes, err := b.ListNodes()
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, id, nodes[0].ID)

	require.NoError(t, b.DestroyVirtualSink(id))
	nodes, err = b.ListNodes()
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestPipeWireBackend_DestroyUnknownSinkFails(t *testing.T) {
	b, err := NewPipeWireBackend()
	require.NoError(t, err)

	err = b.DestroyVirtualSink(999)
	assert.Error(t, err)
}

func TestPipeWireBackend_CreateAndDestroyLink(t *testing.T) {
	b, err := NewPipeWireBackend()
	require.NoError(t, err)

	id, err := b.CreateLink(1, 2)
	require.NoError(t, err)

	links, err := b.ListLinks()
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.True(t, links[0].Active)

	require.NoError(t, b.DestroyLink(id))
	links, err = b.ListLinks()
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestPipeWireBackend_RouteApplicationToSinkLinksInputPorts(t *testing.T) {
	b, err := NewPipeWireBackend()
	require.NoError(t, err)

	sinkID, err := b.CreateVirtualSink(DefaultVirtualSinkConfig())
	require.NoError(t, err)

	b.mu.Lock()
	b.ports = append(b.ports,
		AudioPort{ID: 10, NodeID: sinkID, Name: "in_l", Direction: "input"},
		AudioPort{ID: 11, NodeID: sinkID, Name: "in_r", Direction: "input"},
		AudioPort{ID: 12, NodeID: sinkID, Name: "monitor_l", Direction: "output"},
	)
	b.mu.Unlock()

	linkIDs, err := b.RouteApplicationToSink("firefox", sinkID)
	require.NoError(t, err)
	assert.Len(t, linkIDs, 2)
}
