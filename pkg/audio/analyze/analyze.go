// ABOUTME: Offline analysis of audio blocks
// ABOUTME: Level measurement and dominant frequency detection
package analyze

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/openduplex/duplex-go/pkg/audio"
)

// Measurement summarises a stretch of samples on one channel.
type Measurement struct {
	RMS      float64 // linear, 0..1 relative to full scale
	Peak     float64 // linear, 0..1 relative to full scale
	DCOffset float64 // linear, -1..1
}

// Measure computes level statistics for the given samples.
func Measure(samples []int32) Measurement {
	if len(samples) == 0 {
		return Measurement{}
	}

	var sum, sumSq, peak float64
	for _, s := range samples {
		v := float64(s) / float64(audio.Max24Bit)
		sum += v
		sumSq += v * v
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	n := float64(len(samples))
	return Measurement{
		RMS:      math.Sqrt(sumSq / n),
		Peak:     peak,
		DCOffset: sum / n,
	}
}

// RMSdB returns the RMS level in dBFS. Silence reports -inf.
func (m Measurement) RMSdB() float64 { return toDB(m.RMS) }

// PeakdB returns the peak level in dBFS. Silence reports -inf.
func (m Measurement) PeakdB() float64 { return toDB(m.Peak) }

func toDB(linear float64) float64 {
	if linear <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(linear)
}

// DominantFrequency estimates the strongest frequency component in Hz
// using an FFT over the whole sample slice. It returns 0 for silence or
// when fewer than two samples are given. Resolution is sampleRate/len.
func DominantFrequency(samples []int32, sampleRate float64) float64 {
	if len(samples) < 2 || sampleRate <= 0 {
		return 0
	}

	seq := make([]float64, len(samples))
	for i, s := range samples {
		seq[i] = float64(s) / float64(audio.Max24Bit)
	}

	fft := fourier.NewFFT(len(seq))
	coeffs := fft.Coefficients(nil, seq)

	// Skip bin 0: DC is not a tone.
	best, bestMag := 0, 0.0
	for i := 1; i < len(coeffs); i++ {
		if mag := cmplxAbs(coeffs[i]); mag > bestMag {
			best, bestMag = i, mag
		}
	}
	if bestMag == 0 {
		return 0
	}
	return fft.Freq(best) * sampleRate
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}
