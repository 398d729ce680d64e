// ABOUTME: Tests for audio block analysis
// ABOUTME: Checks level maths and FFT peak picking on synthetic signals
package analyze

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openduplex/duplex-go/pkg/audio"
)

func sine(freq, amp, rate float64, n int) []int32 {
	out := make([]int32, n)
	for i := range out {
		out[i] = int32(amp * float64(audio.Max24Bit) * math.Sin(2*math.Pi*freq*float64(i)/rate))
	}
	return out
}

func TestMeasureSilence(t *testing.T) {
	m := Measure(make([]int32, 1024))
	assert.Equal(t, 0.0, m.RMS)
	assert.Equal(t, 0.0, m.Peak)
	assert.Equal(t, 0.0, m.DCOffset)
	assert.True(t, math.IsInf(m.RMSdB(), -1))
	assert.True(t, math.IsInf(m.PeakdB(), -1))
}

func TestMeasureEmpty(t *testing.T) {
	assert.Equal(t, Measurement{}, Measure(nil))
}

func TestMeasureFullScaleSine(t *testing.T) {
	m := Measure(sine(1000, 1.0, 48000, 4800))

	// A full-scale sine has RMS 1/sqrt(2), about -3.01 dBFS.
	assert.InDelta(t, 1/math.Sqrt2, m.RMS, 0.001)
	assert.InDelta(t, 1.0, m.Peak, 0.001)
	assert.InDelta(t, -3.01, m.RMSdB(), 0.01)
	assert.InDelta(t, 0.0, m.PeakdB(), 0.01)
	assert.InDelta(t, 0.0, m.DCOffset, 0.001)
}

func TestMeasureDCOffset(t *testing.T) {
	samples := make([]int32, 100)
	for i := range samples {
		samples[i] = audio.Max24Bit / 2
	}
	m := Measure(samples)
	assert.InDelta(t, 0.5, m.DCOffset, 0.001)
	assert.InDelta(t, 0.5, m.RMS, 0.001)
}

func TestDominantFrequency(t *testing.T) {
	const rate = 48000.0
	for _, freq := range []float64{440, 1000, 2500, 10000} {
		got := DominantFrequency(sine(freq, 0.5, rate, 4800), rate)
		// Bin resolution is rate/4800 = 10Hz.
		assert.InDelta(t, freq, got, 10.0, "frequency %g", freq)
	}
}

func TestDominantFrequencyPicksLouder(t *testing.T) {
	const rate = 48000.0
	loud := sine(3000, 0.8, rate, 4800)
	quiet := sine(500, 0.1, rate, 4800)
	mixed := make([]int32, len(loud))
	for i := range mixed {
		mixed[i] = audio.Clamp24(int64(loud[i]) + int64(quiet[i]))
	}
	assert.InDelta(t, 3000.0, DominantFrequency(mixed, rate), 10.0)
}

func TestDominantFrequencyIgnoresDC(t *testing.T) {
	samples := sine(1000, 0.2, 48000, 4800)
	for i := range samples {
		samples[i] += audio.Max24Bit / 2
	}
	assert.InDelta(t, 1000.0, DominantFrequency(samples, 48000), 10.0)
}

func TestDominantFrequencyDegenerate(t *testing.T) {
	assert.Equal(t, 0.0, DominantFrequency(nil, 48000))
	assert.Equal(t, 0.0, DominantFrequency(make([]int32, 1), 48000))
	assert.Equal(t, 0.0, DominantFrequency(make([]int32, 1024), 48000))
	assert.Equal(t, 0.0, DominantFrequency(sine(440, 0.5, 48000, 480), 0))
}
