// ABOUTME: Sine test tone callback
// ABOUTME: Renders a fixed-frequency tone onto every output channel
package source

import (
	"math"
	"sync/atomic"

	"github.com/openduplex/duplex-go/pkg/audio"
	"github.com/openduplex/duplex-go/pkg/device"
)

// Tone is a device.Callback that generates a sine wave. The zero value
// is not usable; construct with NewTone.
type Tone struct {
	frequency  float64
	amplitude  float64
	sampleRate float64
	sampleIdx  uint64
	blocks     atomic.Int64
}

// NewTone creates a tone generator. frequency defaults to 440Hz and
// amplitude to 0.5 when out of range.
func NewTone(frequency, amplitude float64) *Tone {
	if frequency <= 0 {
		frequency = 440.0 // A4
	}
	if amplitude <= 0 || amplitude > 1 {
		amplitude = 0.5
	}
	return &Tone{frequency: frequency, amplitude: amplitude}
}

// AboutToStart picks up the device's sample rate.
func (t *Tone) AboutToStart(d device.Device) {
	t.sampleRate = d.CurrentSetup().SampleRate
	t.sampleIdx = 0
}

// ProcessBlock renders the next stretch of sine wave into all outputs.
func (t *Tone) ProcessBlock(in, out [][]int32, frames int) {
	if t.sampleRate <= 0 {
		t.sampleRate = 48000
	}
	scale := t.amplitude * float64(audio.Max24Bit)

	for i := 0; i < frames; i++ {
		ts := float64(t.sampleIdx+uint64(i)) / t.sampleRate
		sample := int32(math.Sin(2*math.Pi*t.frequency*ts) * scale)
		for ch := range out {
			out[ch][i] = sample
		}
	}
	t.sampleIdx += uint64(frames)
	t.blocks.Add(1)
}

// Stopped resets the phase so a restarted tone begins cleanly.
func (t *Tone) Stopped() {
	t.sampleIdx = 0
}

// Blocks returns how many blocks have been rendered.
func (t *Tone) Blocks() int64 { return t.blocks.Load() }
