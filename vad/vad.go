// Package vad decides whether a window of audio is worth running the
// speech model on, from the power in the telephone speech band.
package vad

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
)

const (
	speechBandLow  = 300.0
	speechBandHigh = 3400.0
)

type Detector struct {
	sampleRate  int
	thresholdDB float64
}

// New returns a detector that treats windows whose speech-band level is at
// least thresholdDB (dBFS) as voiced.
func New(sampleRate int, thresholdDB float64) *Detector {
	return &Detector{
		sampleRate:  sampleRate,
		thresholdDB: thresholdDB,
	}
}

// BandLevel returns the mean power of the 300-3400 Hz band in dBFS, where a
// full-scale sine reads about -3 dB. Silence returns -Inf.
func (d *Detector) BandLevel(samples []float32) float64 {
	n := len(samples)
	if n == 0 {
		return math.Inf(-1)
	}

	x := make([]float64, n)
	for i, s := range samples {
		x[i] = float64(s)
	}

	spectrum := fft.FFTReal(x)

	lo := int(math.Ceil(speechBandLow * float64(n) / float64(d.sampleRate)))
	hi := int(math.Floor(speechBandHigh * float64(n) / float64(d.sampleRate)))
	if hi >= (n+1)/2 {
		hi = (n+1)/2 - 1
	}

	// one-sided spectrum, so each bin counts twice
	var power float64
	for k := lo; k <= hi; k++ {
		re, im := real(spectrum[k]), imag(spectrum[k])
		power += 2 * (re*re + im*im)
	}
	power /= float64(n) * float64(n)

	if power <= 0 {
		return math.Inf(-1)
	}

	return 10 * math.Log10(power)
}

func (d *Detector) IsVoiced(samples []float32) bool {
	return d.BandLevel(samples) >= d.thresholdDB
}
