// Package platform defines the abstract capability set spec.md §4.10
// requires from a per-OS audio routing backend, plus the three concrete
// drivers (PipeWire/Linux, WASAPI/Windows, CoreAudio/macOS).
package platform

import "github.com/geckoaudio/gecko-engine/internal/domain"

// ApplicationInfo describes one audio-producing application (spec.md §4.10
// list_applications).
type ApplicationInfo struct {
	PID      uint32
	Name     string
	Icon     string
	IsActive bool
}

// AudioNode is one node in the platform's audio graph (spec.md §4.10
// list_nodes).
type AudioNode struct {
	ID          uint32
	Name        string
	MediaClass  string
	Application *ApplicationInfo
}

// AudioPort is one port on an AudioNode (spec.md §4.10 list_ports).
type AudioPort struct {
	ID        uint32
	NodeID    uint32
	Name      string
	Direction string
	Channel   string
}

// LinkInfo is a connection between two AudioPorts (spec.md §4.10
// list_links).
type LinkInfo struct {
	ID         uint32
	OutputPort uint32
	InputPort  uint32
	Active     bool
}

// VirtualSinkConfig configures a runtime virtual audio sink (spec.md §4.10
// create_virtual_sink).
type VirtualSinkConfig struct {
	Name        string
	Channels    int
	SampleRate  int
	Persistent  bool
}

// DefaultVirtualSinkConfig matches the original project's default.
func DefaultVirtualSinkConfig() VirtualSinkConfig {
	return VirtualSinkConfig{Name: "Gecko Virtual Sink", Channels: 2, SampleRate: 48000, Persistent: false}
}

// Backend is the platform capability set (spec.md §4.10). Every concrete
// driver must be safe to query concurrently with audio processing and must
// never hand out a reference whose validity crosses a callback boundary.
type Backend interface {
	Name() string
	IsConnected() bool

	ListApplications() ([]ApplicationInfo, error)
	ListNodes() ([]AudioNode, error)
	ListPorts(nodeID uint32) ([]AudioPort, error)
	ListLinks() ([]LinkInfo, error)

	CreateVirtualSink(cfg VirtualSinkConfig) (uint32, error)
	DestroyVirtualSink(nodeID uint32) error

	CreateLink(outputPort, inputPort uint32) (uint32, error)
	DestroyLink(linkID uint32) error

	RouteApplicationToSink(appName string, sinkNodeID uint32) ([]uint32, error)

	DefaultOutputNode() (uint32, error)
	DefaultInputNode() (uint32, error)

	// SupportsVirtualDevices and SupportsPerAppCapture are the boolean
	// capability probes spec.md §6 requires ("queried at startup").
	SupportsVirtualDevices() bool
	SupportsPerAppCapture() bool
}

func featureNotAvailable(feature string) error {
	return domain.FeatureNotAvailable(feature)
}
