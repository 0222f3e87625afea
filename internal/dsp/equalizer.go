package dsp

import (
	"math"

	"code.hybscloud.com/atomix"
)

// NumBands is the fixed band count mandated by spec.md §1 Non-goals ("fixed
// at 10 bands").
const NumBands = 10

// isoBandCenters are the default ISO-style geometric band centers spanning
// ~31 Hz to ~16 kHz (spec.md §3 EqConfig).
var isoBandCenters = [NumBands]float64{31, 62, 125, 250, 500, 1000, 2000, 4000, 8000, 16000}

const (
	minGainDB = -24.0
	maxGainDB = 24.0
	minQValue = 0.1
	maxQValue = 10.0
)

// Band is one filter slot (spec.md §3 Band).
type Band struct {
	Frequency float64
	GainDB    float64
	Q         float64
	Type      BandType
	Enabled   bool
}

func clampGain(db float64) float64 {
	if db < minGainDB {
		return minGainDB
	}
	if db > maxGainDB {
		return maxGainDB
	}
	return db
}

func clampQRange(q float64) float64 {
	if q < minQValue {
		return minQValue
	}
	if q > maxQValue {
		return maxQValue
	}
	return q
}

// EqConfig is an ordered sequence of exactly NumBands Bands plus a
// master-enabled flag (spec.md §3 EqConfig).
type EqConfig struct {
	Bands   [NumBands]Band
	Enabled bool
}

// DefaultEqConfig returns a flat (0 dB, peaking, enabled) configuration at
// the default ISO band centers.
func DefaultEqConfig() EqConfig {
	var cfg EqConfig
	cfg.Enabled = true
	for i := range cfg.Bands {
		cfg.Bands[i] = Band{
			Frequency: isoBandCenters[i],
			GainDB:    0,
			Q:         0.707,
			Type:      BandTypePeaking,
			Enabled:   true,
		}
	}
	return cfg
}

type coefficientTable [NumBands]BiquadCoefficients

// Equalizer is a cascade of NumBands biquads per channel with lock-free
// coefficient swap (spec.md §3/§4.2). The controller calls ApplyConfig /
// SetBandGain / SetBand; the audio thread calls the Process* family.
//
// Coefficient publication follows the generation-counter + double-buffer
// protocol spec.md §9 mandates: the controller writes into one of two
// coefficient-table slots and bumps the generation counter with
// release-ordering; the audio thread, once per buffer, loads the counter
// with acquire-ordering and — only if it changed — copies the published
// slot into its local cascade.
type Equalizer struct {
	sampleRate float64

	config   EqConfig
	tables   [2]coefficientTable
	writeIdx int // which of tables[] the controller will write to next

	generation   atomix.Uint64
	seenGenerate uint64

	cascadeL [NumBands]BiquadCoefficients
	cascadeR [NumBands]BiquadCoefficients
	stateL   [NumBands]BiquadState
	stateR   [NumBands]BiquadState
}

// NewEqualizer constructs an Equalizer for sampleRate with a flat default
// configuration already published and loaded (spec.md §4.2 `new(sample_rate)`).
func NewEqualizer(sampleRate float64) (*Equalizer, error) {
	if sampleRate <= 0 {
		return nil, newInvalidSampleRate(sampleRate)
	}
	eq := &Equalizer{sampleRate: sampleRate}
	eq.publish(DefaultEqConfig())
	eq.refresh()
	return eq, nil
}

// publish recomputes coefficients for all bands and writes them into the
// next table slot, then bumps the generation counter with release
// ordering. Called only from the controller side.
func (eq *Equalizer) publish(cfg EqConfig) {
	idx := eq.writeIdx
	table := &eq.tables[idx]
	eq.config = cfg
	for i, band := range cfg.Bands {
		table[i] = eq.deriveOrIdentity(band)
	}
	eq.writeIdx = 1 - idx
	eq.generation.StoreRelease(eq.generation.LoadAcquire() + 1)
}

func (eq *Equalizer) deriveOrIdentity(band Band) BiquadCoefficients {
	if !band.Enabled || !eq.config.Enabled {
		return identityCoefficients
	}
	c, err := deriveCoefficients(band.Type, band.Frequency, clampQRange(band.Q), clampGain(band.GainDB), eq.sampleRate)
	if err != nil {
		// spec.md §4.2: the audio thread never fails; substitute identity.
		return identityCoefficients
	}
	return c
}

// refresh copies the most recently published table into the local cascade
// if the generation counter has advanced. Called once at the start of every
// buffer from the audio thread (spec.md §4.2/§9).
func (eq *Equalizer) refresh() {
	gen := eq.generation.LoadAcquire()
	if gen == eq.seenGenerate {
		return
	}
	eq.seenGenerate = gen
	// The table the controller just finished writing is the OTHER slot
	// from the one it will write next.
	published := &eq.tables[1-eq.writeIdx]
	eq.cascadeL = *published
	eq.cascadeR = *published
}

// ApplyConfig replaces the full EQ config (spec.md §4.2 `apply_config`).
func (eq *Equalizer) ApplyConfig(cfg EqConfig) {
	eq.publish(cfg)
}

// Config returns the last config applied via ApplyConfig/SetBand/SetBandGain
// (spec.md §4.2 `config()`).
func (eq *Equalizer) Config() EqConfig {
	return eq.config
}

// SetBandGain updates one band's gain and republishes (spec.md §4.2
// `set_band_gain`).
func (eq *Equalizer) SetBandGain(index int, gainDB float64) error {
	if index < 0 || index >= NumBands {
		return newInvalidBandIndex(index, NumBands)
	}
	cfg := eq.config
	cfg.Bands[index].GainDB = clampGain(gainDB)
	eq.publish(cfg)
	return nil
}

// SetBand replaces one band wholesale and republishes (spec.md §4.2
// `set_band`).
func (eq *Equalizer) SetBand(index int, band Band) error {
	if index < 0 || index >= NumBands {
		return newInvalidBandIndex(index, NumBands)
	}
	cfg := eq.config
	cfg.Bands[index] = band
	eq.publish(cfg)
	return nil
}

// Reset clears all filter state without touching the published
// configuration (spec.md §4.2 `reset()`).
func (eq *Equalizer) Reset() {
	for i := range eq.stateL {
		eq.stateL[i].Reset()
		eq.stateR[i].Reset()
	}
}

// ProcessSample runs one stereo sample pair through the cascade (spec.md
// §4.2 `process_sample`).
func (eq *Equalizer) ProcessSample(l, r float64) (float64, float64) {
	for i := 0; i < NumBands; i++ {
		l = eq.stateL[i].Tick(&eq.cascadeL[i], l)
		r = eq.stateR[i].Tick(&eq.cascadeR[i], r)
	}
	return l, r
}

// ProcessInterleaved processes a stereo interleaved buffer (L,R,L,R,...) in
// place (spec.md §4.2 `process_interleaved`). Called once per buffer; it
// calls refresh itself before the first sample, so the whole buffer uses
// one consistent coefficient set (spec.md §5 ordering guarantee).
func (eq *Equalizer) ProcessInterleaved(buf []float32) error {
	eq.refresh()
	if len(buf)%2 != 0 {
		return newBufferSizeMismatch(len(buf)-1, len(buf))
	}
	for i := 0; i < len(buf); i += 2 {
		l, r := eq.ProcessSample(float64(buf[i]), float64(buf[i+1]))
		buf[i] = float32(l)
		buf[i+1] = float32(r)
	}
	return nil
}

// ProcessPlanar processes separate left/right channel buffers in place
// (spec.md §4.2 `process_planar`). Must agree with ProcessInterleaved
// sample-for-sample within 1e-6 (spec.md §8).
func (eq *Equalizer) ProcessPlanar(left, right []float32) error {
	eq.refresh()
	if len(left) != len(right) {
		return newBufferSizeMismatch(len(left), len(right))
	}
	for i := range left {
		l, r := eq.ProcessSample(float64(left[i]), float64(right[i]))
		left[i] = float32(l)
		right[i] = float32(r)
	}
	return nil
}

// Refresh exposes the generation-swap check for callers (e.g. the audio
// thread callback) that want to pull fresh coefficients once at the top of
// a buffer rather than relying on ProcessInterleaved/ProcessPlanar to do it
// implicitly (both call it too, so calling it twice per buffer is harmless).
func (eq *Equalizer) Refresh() {
	eq.refresh()
}

// MaxGainLinear returns the largest linear gain any enabled band in the
// current config could apply, used by callers verifying spec.md §8's
// "|output_sample| ≤ |input_sample| · max_band_gain_linear · master_volume"
// invariant.
func (eq *Equalizer) MaxGainLinear() float64 {
	max := 1.0
	for _, b := range eq.config.Bands {
		if !b.Enabled {
			continue
		}
		g := math.Pow(10, clampGain(b.GainDB)/20)
		if g > max {
			max = g
		}
	}
	return max
}
