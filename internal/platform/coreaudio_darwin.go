package platform

import (
	"os"

	"github.com/geckoaudio/gecko-engine/internal/logger"
)

// halPluginPath is where this engine's AudioServerPlugIn would be installed
// if the user has run the HAL-plugin installer (spec.md §4.10 "detects
// installed third-party HAL plugins").
const halPluginPath = "/Library/Audio/Plug-Ins/HAL/GeckoAudioDevice.driver"

// knownVirtualDeviceNames are third-party virtual audio drivers CoreAudio
// might already have installed (BlackHole, Loopback, legacy Soundflower).
var knownVirtualDeviceNames = []string{"BlackHole", "Loopback", "Soundflower"}

// CoreAudioBackend integrates with the macOS CoreAudio HAL. It cannot
// create virtual devices at runtime (that requires a HAL plugin installed
// ahead of time) and does not expose per-application enumeration or capture
// through public APIs (spec.md §4.10 CoreAudio backend).
type CoreAudioBackend struct {
	connected               bool
	installedVirtualDevices []string
	halPluginInstalled      bool
}

// NewCoreAudioBackend checks for the presence of this engine's own HAL
// plugin. It does not probe for third-party virtual audio drivers, so the
// backend it returns records none of them.
func NewCoreAudioBackend() (*CoreAudioBackend, error) {
	logger.Info("initializing CoreAudio backend")
	_, err := os.Stat(halPluginPath)
	return &CoreAudioBackend{
		connected:          true,
		halPluginInstalled: err == nil,
	}, nil
}

func (b *CoreAudioBackend) Name() string      { return "CoreAudio" }
func (b *CoreAudioBackend) IsConnected() bool { return b.connected }

// ListApplications always fails: macOS doesn't expose per-application
// audio enumeration through public APIs (spec.md §4.10). A Process Tap
// (requiring microphone permission) is the only optional path, and it is
// not a list operation.
func (b *CoreAudioBackend) ListApplications() ([]ApplicationInfo, error) {
	return nil, featureNotAvailable("per-application enumeration is not exposed by CoreAudio's public APIs")
}

func (b *CoreAudioBackend) ListNodes() ([]AudioNode, error) { return nil, nil }

func (b *CoreAudioBackend) ListPorts(nodeID uint32) ([]AudioPort, error) { return nil, nil }

func (b *CoreAudioBackend) ListLinks() ([]LinkInfo, error) { return nil, nil }

// CreateVirtualSink fails unless this engine's HAL plugin is already
// installed: CoreAudio virtual devices require an AudioServerPlugIn, which
// cannot be registered at runtime (spec.md §4.10 "does not create virtual
// devices at runtime").
func (b *CoreAudioBackend) CreateVirtualSink(cfg VirtualSinkConfig) (uint32, error) {
	if !b.halPluginInstalled {
		return 0, featureNotAvailable("Gecko HAL plugin not installed; run the installer to enable virtual audio routing")
	}
	return 0, featureNotAvailable("virtual sink creation at runtime is not supported on macOS even with the HAL plugin installed")
}

func (b *CoreAudioBackend) DestroyVirtualSink(nodeID uint32) error {
	return featureNotAvailable("virtual sink lifecycle is owned by the HAL plugin, not this process")
}

func (b *CoreAudioBackend) CreateLink(outputPort, inputPort uint32) (uint32, error) {
	return 0, featureNotAvailable("CoreAudio does not expose arbitrary port linking")
}

func (b *CoreAudioBackend) DestroyLink(linkID uint32) error {
	return featureNotAvailable("CoreAudio does not expose arbitrary port linking")
}

func (b *CoreAudioBackend) RouteApplicationToSink(appName string, sinkNodeID uint32) ([]uint32, error) {
	return nil, featureNotAvailable("per-application routing is not exposed by CoreAudio's public APIs")
}

func (b *CoreAudioBackend) DefaultOutputNode() (uint32, error) { return 0, nil }
func (b *CoreAudioBackend) DefaultInputNode() (uint32, error)  { return 0, nil }

func (b *CoreAudioBackend) SupportsVirtualDevices() bool { return b.halPluginInstalled }
func (b *CoreAudioBackend) SupportsPerAppCapture() bool  { return false }

// VirtualDevices returns a copy of the third-party virtual audio driver
// names recorded on this backend. A backend built by NewCoreAudioBackend
// records none, so the list is empty.
func (b *CoreAudioBackend) VirtualDevices() []string {
	out := make([]string, len(b.installedVirtualDevices))
	copy(out, b.installedVirtualDevices)
	return out
}
