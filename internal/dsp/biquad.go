package dsp

import "math"

// BandType selects which RBJ cookbook derivation a Band uses. Unlike the
// teacher's equalizer, which only ever derives a peaking filter, every band
// here can be any one of these six shapes (spec.md §3 Band).
type BandType int

const (
	BandTypePeaking BandType = iota
	BandTypeLowShelf
	BandTypeHighShelf
	BandTypeLowPass
	BandTypeHighPass
	BandTypeNotch
)

func (t BandType) String() string {
	switch t {
	case BandTypePeaking:
		return "peaking"
	case BandTypeLowShelf:
		return "low_shelf"
	case BandTypeHighShelf:
		return "high_shelf"
	case BandTypeLowPass:
		return "low_pass"
	case BandTypeHighPass:
		return "high_pass"
	case BandTypeNotch:
		return "notch"
	default:
		return "unknown"
	}
}

// BiquadCoefficients are normalized direct-form-I coefficients (spec.md §3).
type BiquadCoefficients struct {
	B0, B1, B2 float64
	A1, A2     float64
}

// identityCoefficients is the pass-through cascade section used for disabled
// bands and for any derivation spec.md requires to fail safe (§4.2: "the
// audio thread never fails — it substitutes identity coefficients").
var identityCoefficients = BiquadCoefficients{B0: 1}

const minQ = 1e-4

// clampFrequency keeps f0 inside (0, nyquist-ε) per spec.md §4.1.
func clampFrequency(f0, sampleRate float64) float64 {
	nyquist := sampleRate / 2
	epsilon := nyquist * 1e-4
	if epsilon <= 0 {
		epsilon = 1e-6
	}
	if f0 < epsilon {
		return epsilon
	}
	if f0 > nyquist-epsilon {
		return nyquist - epsilon
	}
	return f0
}

func clampQ(q float64) float64 {
	if q < minQ {
		return minQ
	}
	return q
}

// deriveCoefficients computes normalized biquad coefficients for one Band,
// following the RBJ Audio EQ Cookbook formulas. gainDB is denormalized to a
// linear amplitude A = 10^(gainDB/40) for peaking/shelving per spec.md §4.1.
func deriveCoefficients(bandType BandType, f0, q, gainDB, sampleRate float64) (BiquadCoefficients, error) {
	if sampleRate <= 0 {
		return BiquadCoefficients{}, newInvalidSampleRate(sampleRate)
	}
	f0 = clampFrequency(f0, sampleRate)
	q = clampQ(q)

	omega := 2 * math.Pi * f0 / sampleRate
	sinW := math.Sin(omega)
	cosW := math.Cos(omega)
	alpha := sinW / (2 * q)
	a := math.Pow(10, gainDB/40)

	var c BiquadCoefficients
	switch bandType {
	case BandTypePeaking:
		b0 := 1 + alpha*a
		b1 := -2 * cosW
		b2 := 1 - alpha*a
		a0 := 1 + alpha/a
		a1 := -2 * cosW
		a2 := 1 - alpha/a
		c = normalize(b0, b1, b2, a0, a1, a2)

	case BandTypeLowShelf:
		sqrtA := math.Sqrt(a)
		beta := 2 * sqrtA * alpha
		b0 := a * ((a + 1) - (a-1)*cosW + beta)
		b1 := 2 * a * ((a - 1) - (a+1)*cosW)
		b2 := a * ((a + 1) - (a-1)*cosW - beta)
		a0 := (a + 1) + (a-1)*cosW + beta
		a1 := -2 * ((a - 1) + (a+1)*cosW)
		a2 := (a + 1) + (a-1)*cosW - beta
		c = normalize(b0, b1, b2, a0, a1, a2)

	case BandTypeHighShelf:
		sqrtA := math.Sqrt(a)
		beta := 2 * sqrtA * alpha
		b0 := a * ((a + 1) + (a-1)*cosW + beta)
		b1 := -2 * a * ((a - 1) + (a+1)*cosW)
		b2 := a * ((a + 1) + (a-1)*cosW - beta)
		a0 := (a + 1) - (a-1)*cosW + beta
		a1 := 2 * ((a - 1) - (a+1)*cosW)
		a2 := (a + 1) - (a-1)*cosW - beta
		c = normalize(b0, b1, b2, a0, a1, a2)

	case BandTypeLowPass:
		b0 := (1 - cosW) / 2
		b1 := 1 - cosW
		b2 := (1 - cosW) / 2
		a0 := 1 + alpha
		a1 := -2 * cosW
		a2 := 1 - alpha
		c = normalize(b0, b1, b2, a0, a1, a2)

	case BandTypeHighPass:
		b0 := (1 + cosW) / 2
		b1 := -(1 + cosW)
		b2 := (1 + cosW) / 2
		a0 := 1 + alpha
		a1 := -2 * cosW
		a2 := 1 - alpha
		c = normalize(b0, b1, b2, a0, a1, a2)

	case BandTypeNotch:
		b0 := 1.0
		b1 := -2 * cosW
		b2 := 1.0
		a0 := 1 + alpha
		a1 := -2 * cosW
		a2 := 1 - alpha
		c = normalize(b0, b1, b2, a0, a1, a2)

	default:
		return BiquadCoefficients{}, newInvalidCoefficients(f0, sampleRate)
	}

	if !stable(c) {
		return BiquadCoefficients{}, newInvalidCoefficients(f0, sampleRate)
	}
	return c, nil
}

func normalize(b0, b1, b2, a0, a1, a2 float64) BiquadCoefficients {
	return BiquadCoefficients{
		B0: b0 / a0,
		B1: b1 / a0,
		B2: b2 / a0,
		A1: a1 / a0,
		A2: a2 / a0,
	}
}

// stable rejects non-finite coefficients and feedback coefficients of
// implausible magnitude (|a1| or |a2| of 4 or more). It is a coarse bound,
// not an exact unit-circle test: some pole pairs outside the unit circle
// still pass (spec.md §4.2: "InvalidCoefficients if ... unstable pole
// (|a1|, |a2| check)").
func stable(c BiquadCoefficients) bool {
	for _, v := range []float64{c.B0, c.B1, c.B2, c.A1, c.A2} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return math.Abs(c.A1) < 4 && math.Abs(c.A2) < 4
}

// BiquadState holds the two previous inputs and two previous outputs for one
// channel of one band (spec.md §3 BiquadState). Owned exclusively by that
// channel/band pair.
type BiquadState struct {
	x1, x2 float64
	y1, y2 float64
}

// Reset zeros the filter's memory. Called on device change, sample-rate
// change, or explicit reset (spec.md §3).
func (s *BiquadState) Reset() {
	*s = BiquadState{}
}

// denormalBias is added to and then subtracted from each tick's output,
// which flushes values far below its magnitude (denormals included) to
// exactly zero without needing hardware FTZ/DAZ flags (spec.md §9 "Denormal
// handling"). Ordinary sample values pass through unchanged, and a zero
// input yields a zero output.
const denormalBias = 1e-25

// Tick consumes one sample and returns the filtered sample, advancing state.
// y = b0*x + b1*x1 + b2*x2 - a1*y1 - a2*y2 (spec.md §4.1).
func (s *BiquadState) Tick(c *BiquadCoefficients, x float64) float64 {
	y := c.B0*x + c.B1*s.x1 + c.B2*s.x2 - c.A1*s.y1 - c.A2*s.y2
	y += denormalBias
	y -= denormalBias
	s.x2 = s.x1
	s.x1 = x
	s.y2 = s.y1
	s.y1 = y
	return y
}
