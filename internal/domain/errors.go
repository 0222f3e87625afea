package domain

import (
	"errors"
	"fmt"

	"github.com/geckoaudio/gecko-engine/internal/dsp"
)

var (
	// Device and stream errors.
	ErrNoDevicesFound     = errors.New("no audio devices found")
	ErrDeviceNotFound     = errors.New("audio device not found")
	ErrStreamBuildFailed  = errors.New("failed to build audio stream")
	ErrStreamPlayFailed   = errors.New("failed to start audio stream")
	ErrStreamConfigInvalid = errors.New("stream configuration is invalid")

	// Controller lifecycle errors.
	ErrAlreadyRunning = errors.New("engine already running")
	ErrNotRunning     = errors.New("engine not running")

	// Ring buffer errors.
	ErrBufferOverflow  = errors.New("ring buffer overflow, audio thread can't keep up")
	ErrBufferUnderflow = errors.New("ring buffer underflow, not enough data available")

	// Platform backend errors.
	ErrUnsupportedPlatform         = errors.New("platform not supported")
	ErrFeatureNotAvailable         = errors.New("feature not available on this platform")
	ErrConnectionFailed            = errors.New("failed to connect to audio server")
	ErrVirtualDeviceCreationFailed = errors.New("failed to create virtual device")
	ErrApplicationNotFound         = errors.New("application not found")
	ErrLinkCreationFailed          = errors.New("failed to create link")
	ErrNodeNotFound                = errors.New("node not found")
	ErrPortNotFound                = errors.New("port not found")
	ErrPermissionDenied            = errors.New("permission denied")
	ErrInitializationFailed        = errors.New("backend initialization failed")
	ErrInvalidConfiguration        = errors.New("invalid configuration")
	ErrCommandFailed                = errors.New("command failed")

	// Command/event channel errors.
	ErrChannelSend = errors.New("channel send error, receiver dropped")
	ErrChannelRecv = errors.New("channel receive error, sender dropped")
)

// EngineError wraps a sentinel with the identifying detail the sentinel's
// message alone doesn't carry (a device name, node id, frequency), the way
// the sentinel+detail pattern is used across this codebase.
type EngineError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Err     error  `json:"-"`
}

func (e *EngineError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

func NewEngineError(code, message string, err error) *EngineError {
	return &EngineError{Code: code, Message: message, Err: err}
}

func NewEngineErrorWithDetails(code, message, details string, err error) *EngineError {
	return &EngineError{Code: code, Message: message, Details: details, Err: err}
}

// Error codes for consistent error handling across logs and IPC payloads.
const (
	ErrCodeDevice    = "DEVICE"
	ErrCodeLifecycle = "LIFECYCLE"
	ErrCodeBuffer    = "BUFFER"
	ErrCodeDSP       = "DSP"
	ErrCodePlatform  = "PLATFORM"
	ErrCodeIPC       = "IPC"
)

func DeviceNotFound(name string) *EngineError {
	return NewEngineErrorWithDetails(ErrCodeDevice, ErrDeviceNotFound.Error(), name, ErrDeviceNotFound)
}

func StreamBuildFailed(reason string) *EngineError {
	return NewEngineErrorWithDetails(ErrCodeDevice, ErrStreamBuildFailed.Error(), reason, ErrStreamBuildFailed)
}

func FeatureNotAvailable(feature string) *EngineError {
	return NewEngineErrorWithDetails(ErrCodePlatform, ErrFeatureNotAvailable.Error(), feature, ErrFeatureNotAvailable)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNoDevicesFound) || errors.Is(err, ErrDeviceNotFound) ||
		errors.Is(err, ErrApplicationNotFound) || errors.Is(err, ErrNodeNotFound) ||
		errors.Is(err, ErrPortNotFound)
}

func IsLifecycleError(err error) bool {
	return errors.Is(err, ErrAlreadyRunning) || errors.Is(err, ErrNotRunning)
}

func IsBufferError(err error) bool {
	return errors.Is(err, ErrBufferOverflow) || errors.Is(err, ErrBufferUnderflow)
}

// IsDSPError reports whether err originated in, or wraps, the dsp package's
// error taxonomy (dsp.Error implements errors.Unwrap, so dsp's own sentinel
// predicates still apply after unwrapping through here).
func IsDSPError(err error) bool {
	var dspErr *dsp.Error
	return errors.As(err, &dspErr)
}

func IsPlatformError(err error) bool {
	switch {
	case errors.Is(err, ErrUnsupportedPlatform),
		errors.Is(err, ErrFeatureNotAvailable),
		errors.Is(err, ErrConnectionFailed),
		errors.Is(err, ErrVirtualDeviceCreationFailed),
		errors.Is(err, ErrApplicationNotFound),
		errors.Is(err, ErrLinkCreationFailed),
		errors.Is(err, ErrNodeNotFound),
		errors.Is(err, ErrPortNotFound),
		errors.Is(err, ErrPermissionDenied),
		errors.Is(err, ErrInitializationFailed),
		errors.Is(err, ErrInvalidConfiguration),
		errors.Is(err, ErrCommandFailed):
		return true
	default:
		return false
	}
}

func IsChannelError(err error) bool {
	return errors.Is(err, ErrChannelSend) || errors.Is(err, ErrChannelRecv)
}
