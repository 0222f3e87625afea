package platform

import (
	"golang.org/x/sys/windows"

	"github.com/geckoaudio/gecko-engine/internal/logger"
)

// minProcessLoopbackBuild is the first Windows 10 build exposing per-process
// audio loopback via AUDIOCLIENT_PROCESS_LOOPBACK_PARAMS (spec.md §4.10
// "enables per-process loopback only when build ≥ 20348").
const minProcessLoopbackBuild = 20348

// WasapiBackend integrates with the Windows Audio Session API. It
// initializes COM in apartment-threaded mode once, on the thread that calls
// NewWasapiBackend (other threads are not initialized), and detects the OS
// build via the kernel version info to gate per-process loopback (spec.md
// §4.10 WASAPI backend).
type WasapiBackend struct {
	connected          bool
	processLoopbackOK  bool
}

// NewWasapiBackend initializes COM and probes the OS build for
// per-process-loopback support.
func NewWasapiBackend() (*WasapiBackend, error) {
	logger.Info("initializing WASAPI backend")
	if err := windows.CoInitializeEx(0, windows.COINIT_APARTMENTTHREADED); err != nil {
		return nil, featureNotAvailable("COM apartment-threaded initialization failed: " + err.Error())
	}

	build := windowsBuildNumber()
	return &WasapiBackend{
		connected:         true,
		processLoopbackOK: build >= minProcessLoopbackBuild,
	}, nil
}

func windowsBuildNumber() int {
	major, _, build := windows.RtlGetNtVersionNumbers()
	_ = major
	return int(build)
}

func (b *WasapiBackend) Name() string      { return "WASAPI" }
func (b *WasapiBackend) IsConnected() bool { return b.connected }

// ListApplications always returns an empty set: this port does not
// enumerate processes or audio sessions (spec.md §4.10 "Process
// enumeration").
func (b *WasapiBackend) ListApplications() ([]ApplicationInfo, error) {
	return nil, nil
}

// ListNodes has no WASAPI equivalent of a PipeWire graph node; devices
// stand in for nodes in a full implementation.
func (b *WasapiBackend) ListNodes() ([]AudioNode, error) { return nil, nil }

func (b *WasapiBackend) ListPorts(nodeID uint32) ([]AudioPort, error) { return nil, nil }

func (b *WasapiBackend) ListLinks() ([]LinkInfo, error) { return nil, nil }

// CreateVirtualSink fails: virtual devices on Windows require a kernel
// driver (spec.md §4.10 "does not support virtual sinks ... fails those
// operations with a FeatureNotAvailable error").
func (b *WasapiBackend) CreateVirtualSink(cfg VirtualSinkConfig) (uint32, error) {
	return 0, featureNotAvailable("virtual sink creation requires a driver on Windows; consider installing VB-Cable or Virtual Audio Cable")
}

func (b *WasapiBackend) DestroyVirtualSink(nodeID uint32) error {
	return featureNotAvailable("cannot destroy driver-level virtual sinks")
}

func (b *WasapiBackend) CreateLink(outputPort, inputPort uint32) (uint32, error) {
	return 0, featureNotAvailable("arbitrary port linking is not supported on WASAPI")
}

func (b *WasapiBackend) DestroyLink(linkID uint32) error {
	return featureNotAvailable("arbitrary port linking is not supported on WASAPI")
}

func (b *WasapiBackend) RouteApplicationToSink(appName string, sinkNodeID uint32) ([]uint32, error) {
	return nil, featureNotAvailable("routing is done via process loopback activation, not linking, on WASAPI")
}

func (b *WasapiBackend) DefaultOutputNode() (uint32, error) { return 0, nil }
func (b *WasapiBackend) DefaultInputNode() (uint32, error)  { return 0, nil }

func (b *WasapiBackend) SupportsVirtualDevices() bool { return false }
func (b *WasapiBackend) SupportsPerAppCapture() bool  { return b.processLoopbackOK }

// ActivateProcessLoopback is the per-app capture start for pid (spec.md
// §4.10). It checks the build gate and logs the request; it performs no
// COM activation and starts no capture feed.
func (b *WasapiBackend) ActivateProcessLoopback(pid uint32) error {
	if !b.processLoopbackOK {
		return featureNotAvailable("per-process loopback requires Windows 10 build 20348 or newer")
	}
	logger.Info("activating process loopback", logger.Uint32("pid", pid))
	return nil
}
