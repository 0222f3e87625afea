package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/geckoaudio/gecko-engine/internal/dsp"
)

func TestEngineError_ErrorIncludesCodeAndMessage(t *testing.T) {
	err := NewEngineError(ErrCodeDevice, "thing broke", ErrDeviceNotFound)
	assert.Equal(t, "[DEVICE] thing broke", err.Error())
}

func TestEngineError_ErrorIncludesDetailsWhenPresent(t *testing.T) {
	err := DeviceNotFound("Speakers (Realtek)")
	assert.Equal(t, "[DEVICE] audio device not found: Speakers (Realtek)", err.Error())
}

func TestEngineError_UnwrapReachesSentinel(t *testing.T) {
	err := DeviceNotFound("missing")
	assert.True(t, errors.Is(err, ErrDeviceNotFound))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(DeviceNotFound("x")))
	assert.True(t, IsNotFound(ErrApplicationNotFound))
	assert.False(t, IsNotFound(ErrBufferOverflow))
}

func TestIsLifecycleError(t *testing.T) {
	assert.True(t, IsLifecycleError(ErrAlreadyRunning))
	assert.True(t, IsLifecycleError(ErrNotRunning))
	assert.False(t, IsLifecycleError(ErrDeviceNotFound))
}

func TestIsBufferError(t *testing.T) {
	assert.True(t, IsBufferError(ErrBufferOverflow))
	assert.True(t, IsBufferError(ErrBufferUnderflow))
	assert.False(t, IsBufferError(ErrChannelSend))
}

func TestIsDSPError_UnwrapsThroughEngineError(t *testing.T) {
	eq, err := dsp.NewEqualizer(48000)
	assert.NoError(t, err)
	dspErr := eq.SetBandGain(99, 0)
	assert.True(t, dsp.IsInvalidBandIndex(dspErr))

	wrapped := NewEngineError(ErrCodeDSP, "eq update failed", dspErr)
	assert.True(t, IsDSPError(wrapped))
	assert.False(t, IsDSPError(ErrDeviceNotFound))
}

func TestIsPlatformError(t *testing.T) {
	assert.True(t, IsPlatformError(FeatureNotAvailable("virtual sinks")))
	assert.True(t, IsPlatformError(ErrPermissionDenied))
	assert.False(t, IsPlatformError(ErrBufferOverflow))
}

func TestIsChannelError(t *testing.T) {
	assert.True(t, IsChannelError(ErrChannelSend))
	assert.True(t, IsChannelError(ErrChannelRecv))
	assert.False(t, IsChannelError(ErrDeviceNotFound))
}
