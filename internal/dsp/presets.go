package dsp

// Preset is a named 10-gain-vector (dB) used to build an EqConfig at the
// default ISO band centers (spec.md §6 "Presets"). Names and values are
// carried forward verbatim from the original project's preset table
// (original_source/crates/gecko_dsp/src/presets.rs) since the distilled
// spec names the presets but not their gain vectors.
type Preset struct {
	Name  string
	Gains [NumBands]float64
}

// Presets is the built-in named preset table (spec.md §6).
var Presets = []Preset{
	{Name: "Flat", Gains: [NumBands]float64{0, 0, 0, 0, 0, 0, 0, 0, 0, 0}},
	{Name: "Bass Boost", Gains: [NumBands]float64{6, 5, 3, 1, 0, 0, 0, 0, 0, 0}},
	{Name: "Treble Boost", Gains: [NumBands]float64{0, 0, 0, 0, 0, 1, 3, 5, 6, 6}},
	{Name: "Vocal Clarity", Gains: [NumBands]float64{-2, -1, 0, 2, 4, 4, 3, 2, 1, 0}},
	{Name: "Bass Reduce", Gains: [NumBands]float64{-6, -4, -2, 0, 0, 0, 0, 0, 0, 0}},
	{Name: "Loudness", Gains: [NumBands]float64{4, 3, 0, -1, -1, 0, 1, 2, 3, 4}},
	{Name: "Game (FPS)", Gains: [NumBands]float64{-2, -1, 0, 2, 4, 6, 4, 2, 0, -2}},
	{Name: "Electronic", Gains: [NumBands]float64{4, 3, 1, 0, -2, -2, 0, 1, 3, 4}},
}

// PresetByName looks up a built-in preset by name. ok is false if no preset
// has that name.
func PresetByName(name string) (Preset, bool) {
	for _, p := range Presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// EqConfig builds a full EqConfig from the preset, applied on top of the
// default ISO band centers/types, enabled.
func (p Preset) EqConfig() EqConfig {
	cfg := DefaultEqConfig()
	for i := range cfg.Bands {
		cfg.Bands[i].GainDB = p.Gains[i]
	}
	return cfg
}
