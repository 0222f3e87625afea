package dsp

import (
	"math"
	"math/cmplx"

	"code.hybscloud.com/atomix"

	"github.com/madelynnblue/go-dsp/fft"
)

// FFTSize is the ring/transform length (power of two, 1024-4096, default
// 2048 per spec.md §4.3).
const FFTSize = 2048

// NumBins is the number of log-spaced output bins spec.md §4.3 fixes at 32,
// spanning ~20 Hz to ~20 kHz — the same shape as the visualizer this is
// grounded on, generalized from 10 coarse bins to 32.
const NumBins = 32

const (
	minBinHz = 20.0
	maxBinHz = 20000.0
)

// binEdges are the NumBins+1 log-spaced frequency edges.
var binEdges = computeBinEdges()

func computeBinEdges() [NumBins + 1]float64 {
	var edges [NumBins + 1]float64
	logMin := math.Log(minBinHz)
	logMax := math.Log(maxBinHz)
	for i := range edges {
		t := float64(i) / float64(NumBins)
		edges[i] = math.Exp(logMin + t*(logMax-logMin))
	}
	return edges
}

// hannWindow is precomputed once; applying it never allocates.
var hannWindow = computeHannWindow()

func computeHannWindow() [FFTSize]float64 {
	var w [FFTSize]float64
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(FFTSize-1)))
	}
	return w
}

// SpectrumSnapshot is one single-slot handoff from the audio thread to the
// FFT worker: the most recent FFTSize mono-downmixed samples, windowed and
// ready to transform.
type SpectrumSnapshot struct {
	Samples [FFTSize]float64
}

// SpectrumRing maintains the circular buffer of recent downmixed samples
// (spec.md §3 "Spectrum ring") and the double-buffered, allocation-free
// handoff to a dedicated FFT worker (spec.md §4.3/§9 "FFT off the audio
// thread"). The handoff mirrors Equalizer's coefficient-table swap: two
// pre-allocated SpectrumSnapshot slots and a generation counter published
// with a release store, observed with an acquire load, so the audio thread
// never allocates or locks to hand a snapshot to the worker.
//
// Append (called from the audio thread, once per buffer) is allocation-free
// and lock-free: it writes into the ring. PublishSnapshot, also called from
// the audio thread, windows the ring into whichever of the two buffers is
// not currently being read and bumps the generation counter — no mutex, no
// per-call allocation. If the worker hasn't taken the previous snapshot
// before the next-but-one publish reuses its slot, the stale read is
// overwritten — analysis is lossy by design (spec.md §4.3).
type SpectrumRing struct {
	sampleRate float64

	ring     [FFTSize]float64
	writePos int

	buffers [2]SpectrumSnapshot // pre-allocated once; never resized

	// generation counts published snapshots. buffers[(generation-1)%2] is
	// the most recently published snapshot once generation > 0.
	generation atomix.Uint64

	// seenGeneration is the worker's own bookkeeping of the last generation
	// it took; only ever touched by the single FFT worker goroutine.
	seenGeneration uint64
}

// NewSpectrumRing constructs a ring for the given sample rate.
func NewSpectrumRing(sampleRate float64) *SpectrumRing {
	return &SpectrumRing{sampleRate: sampleRate}
}

// Append downmixes one interleaved stereo buffer to mono and appends the
// samples to the ring. Called once per audio callback.
func (r *SpectrumRing) Append(interleaved []float32) {
	for i := 0; i+1 < len(interleaved); i += 2 {
		mono := (float64(interleaved[i]) + float64(interleaved[i+1])) / 2
		r.ring[r.writePos] = mono
		r.writePos = (r.writePos + 1) % FFTSize
	}
}

// PublishSnapshot windows the current ring contents into the next free
// buffer slot and publishes it by bumping the generation counter. Called
// from the audio thread at the 30 Hz rate-limited cadence spec.md §4.9
// describes. Allocates nothing and takes no lock.
func (r *SpectrumRing) PublishSnapshot() {
	gen := r.generation.LoadAcquire()
	slot := &r.buffers[gen%2]
	for i := 0; i < FFTSize; i++ {
		idx := (r.writePos + i) % FFTSize
		slot.Samples[i] = r.ring[idx] * hannWindow[i]
	}
	r.generation.StoreRelease(gen + 1)
}

// TakeSnapshot is called from the FFT worker goroutine; it returns the most
// recently published snapshot, or nil if nothing new has been published
// since the last call.
func (r *SpectrumRing) TakeSnapshot() *SpectrumSnapshot {
	gen := r.generation.LoadAcquire()
	if gen == r.seenGeneration {
		return nil
	}
	r.seenGeneration = gen
	return &r.buffers[(gen-1)%2]
}

// Analyze runs a real FFT over a windowed snapshot and aggregates the
// magnitudes into NumBins log-spaced buckets from minBinHz to maxBinHz
// (spec.md §4.3), normalized so a 0 dBFS sine reads close to 1.0. This is
// the only place in the package that performs unbounded math, and it is
// meant to run on a dedicated worker goroutine, never the audio thread.
func Analyze(snap *SpectrumSnapshot, sampleRate float64) [NumBins]float32 {
	var bins [NumBins]float32
	spectrum := fft.FFTReal(snap.Samples[:])
	binHz := sampleRate / float64(FFTSize)
	halfLen := len(spectrum) / 2

	for b := 0; b < NumBins; b++ {
		loIdx := int(binEdges[b] / binHz)
		hiIdx := int(binEdges[b+1] / binHz)
		if loIdx < 1 {
			loIdx = 1
		}
		if hiIdx >= halfLen {
			hiIdx = halfLen - 1
		}
		if hiIdx < loIdx {
			hiIdx = loIdx
		}

		var sum float64
		count := 0
		for i := loIdx; i <= hiIdx; i++ {
			sum += cmplx.Abs(spectrum[i])
			count++
		}
		if count > 0 {
			sum /= float64(count)
		}
		// Reference normalization: a full-scale sine concentrates its
		// energy in one FFT bin, windowed amplitude ~FFTSize/4 after the
		// Hann window's ~0.5 coherent gain.
		reference := float64(FFTSize) / 4
		level := 0.0
		if sum > 0 && reference > 0 {
			level = sum / reference
		}
		if level < 0 {
			level = 0
		}
		if level > 1 {
			level = 1
		}
		bins[b] = float32(level)
	}
	return bins
}
