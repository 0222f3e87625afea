package platform

import (
	"sync"

	"github.com/geckoaudio/gecko-engine/internal/logger"
)

// PipeWireBackend keeps an in-process graph snapshot (nodes, ports, links,
// applications) behind a reader-writer lock (spec.md §4.10 PipeWire
// backend, §5 "platform graph snapshot uses a reader-writer primitive held
// only by the controller and platform thread — never by the audio
// thread"). It does not connect to a PipeWire daemon and runs no event
// loop or thread: virtual sinks, links and routes are recorded in the
// snapshot only.
type PipeWireBackend struct {
	mu        sync.RWMutex
	connected bool

	nodes []AudioNode
	ports []AudioPort
	links []LinkInfo
	apps  []ApplicationInfo

	nextNodeID uint32
	nextLinkID uint32
}

// NewPipeWireBackend returns a backend with an empty graph snapshot. It
// opens no PipeWire session and starts no mainloop thread; it exposes the
// graph-mutation surface without vendoring a cgo PipeWire binding.
func NewPipeWireBackend() (*PipeWireBackend, error) {
	logger.Info("initializing PipeWire backend")
	return &PipeWireBackend{connected: true, nextNodeID: 1, nextLinkID: 1}, nil
}

func (b *PipeWireBackend) Name() string      { return "PipeWire" }
func (b *PipeWireBackend) IsConnected() bool { b.mu.RLock(); defer b.mu.RUnlock(); return b.connected }

func (b *PipeWireBackend) ListApplications() ([]ApplicationInfo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]ApplicationInfo, len(b.apps))
	copy(out, b.apps)
	return out, nil
}

func (b *PipeWireBackend) ListNodes() ([]AudioNode, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]AudioNode, len(b.nodes))
	copy(out, b.nodes)
	return out, nil
}

func (b *PipeWireBackend) ListPorts(nodeID uint32) ([]AudioPort, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []AudioPort
	for _, p := range b.ports {
		if p.NodeID == nodeID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (b *PipeWireBackend) ListLinks() ([]LinkInfo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]LinkInfo, len(b.links))
	copy(out, b.links)
	return out, nil
}

// CreateVirtualSink registers a new sink node in the graph snapshot
// (spec.md §4.10 "supports runtime virtual sinks").
func (b *PipeWireBackend) CreateVirtualSink(cfg VirtualSinkConfig) (uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextNodeID
	b.nextNodeID++
	b.nodes = append(b.nodes, AudioNode{ID: id, Name: cfg.Name, MediaClass: "Audio/Sink"})
	return id, nil
}

func (b *PipeWireBackend) DestroyVirtualSink(nodeID uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, n := range b.nodes {
		if n.ID == nodeID {
			b.nodes = append(b.nodes[:i], b.nodes[i+1:]...)
			return nil
		}
	}
	return featureNotAvailable("node not found")
}

func (b *PipeWireBackend) CreateLink(outputPort, inputPort uint32) (uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextLinkID
	b.nextLinkID++
	b.links = append(b.links, LinkInfo{ID: id, OutputPort: outputPort, InputPort: inputPort, Active: true})
	return id, nil
}

func (b *PipeWireBackend) DestroyLink(linkID uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, l := range b.links {
		if l.ID == linkID {
			b.links = append(b.links[:i], b.links[i+1:]...)
			return nil
		}
	}
	return featureNotAvailable("link not found")
}

// RouteApplicationToSink creates one link to each of the sink's input
// ports, each from output port 0 (spec.md §4.10 "convenience method").
// appName is not used to look up the application's own output ports.
func (b *PipeWireBackend) RouteApplicationToSink(appName string, sinkNodeID uint32) ([]uint32, error) {
	ports, err := b.ListPorts(sinkNodeID)
	if err != nil {
		return nil, err
	}
	var linkIDs []uint32
	for _, p := range ports {
		if p.Direction != "input" {
			continue
		}
		id, err := b.CreateLink(0, p.ID)
		if err != nil {
			continue
		}
		linkIDs = append(linkIDs, id)
	}
	return linkIDs, nil
}

func (b *PipeWireBackend) DefaultOutputNode() (uint32, error) { return 0, nil }
func (b *PipeWireBackend) DefaultInputNode() (uint32, error)  { return 0, nil }

func (b *PipeWireBackend) SupportsVirtualDevices() bool { return true }
func (b *PipeWireBackend) SupportsPerAppCapture() bool  { return true }
