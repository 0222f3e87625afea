package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveCoefficients_AllTypesStable(t *testing.T) {
	types := []BandType{BandTypePeaking, BandTypeLowShelf, BandTypeHighShelf, BandTypeLowPass, BandTypeHighPass, BandTypeNotch}
	for _, bt := range types {
		c, err := deriveCoefficients(bt, 1000, 0.707, 6, 48000)
		require.NoError(t, err, bt.String())
		assert.True(t, stable(c), bt.String())
	}
}

func TestDeriveCoefficients_InvalidSampleRate(t *testing.T) {
	_, err := deriveCoefficients(BandTypePeaking, 1000, 0.707, 0, 0)
	require.Error(t, err)
	assert.True(t, IsInvalidSampleRate(err))
}

func TestDeriveCoefficients_FrequencyClampedNearNyquist(t *testing.T) {
	// A frequency at or above Nyquist must not produce a crash or non-finite
	// coefficients; derivation clamps it just below Nyquist and succeeds.
	c, err := deriveCoefficients(BandTypePeaking, 30000, 0.707, 6, 48000)
	require.NoError(t, err)
	assert.True(t, stable(c))
}

func TestBiquadState_ResetZeroesMemory(t *testing.T) {
	var s BiquadState
	c := BiquadCoefficients{B0: 1, B1: 0.5, B2: 0.1, A1: -0.2, A2: 0.05}
	s.Tick(&c, 1.0)
	s.Tick(&c, -1.0)
	s.Reset()
	assert.Equal(t, BiquadState{}, s)
}

func TestBiquadState_IdentityPassesThroughUnchanged(t *testing.T) {
	var s BiquadState
	for i := 0; i < 10; i++ {
		x := math.Sin(float64(i))
		y := s.Tick(&identityCoefficients, x)
		assert.InDelta(t, x, y, 1e-9)
	}
}
