// ABOUTME: Per-channel output peak meter with decay
// ABOUTME: Feeds the monitor UI without touching the audio path
package manager

import (
	"sync"

	"github.com/openduplex/duplex-go/pkg/audio"
)

// LevelMeter tracks per-channel peak levels in the 0..1 range. Peaks
// decay geometrically per block so the display falls back smoothly.
type LevelMeter struct {
	mu    sync.Mutex
	peaks []float64
	decay float64
}

// NewLevelMeter creates a meter. decay is the per-block multiplier
// applied to old peaks, typically just under 1.
func NewLevelMeter(decay float64) *LevelMeter {
	if decay <= 0 || decay >= 1 {
		decay = 0.85
	}
	return &LevelMeter{decay: decay}
}

// Process folds an output block into the meter. Called from the device
// goroutine; keep it cheap.
func (l *LevelMeter) Process(out [][]int32, frames int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.peaks) != len(out) {
		l.peaks = make([]float64, len(out))
	}

	for ch, block := range out {
		var peak int32
		for i := 0; i < frames && i < len(block); i++ {
			s := block[i]
			if s < 0 {
				s = -s
			}
			if s > peak {
				peak = s
			}
		}
		level := float64(peak) / float64(audio.Max24Bit)
		if level > 1 {
			level = 1
		}
		decayed := l.peaks[ch] * l.decay
		if level > decayed {
			l.peaks[ch] = level
		} else {
			l.peaks[ch] = decayed
		}
	}
}

// Levels returns a copy of the current per-channel peaks.
func (l *LevelMeter) Levels() []float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]float64, len(l.peaks))
	copy(out, l.peaks)
	return out
}

// Reset clears all peaks.
func (l *LevelMeter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.peaks {
		l.peaks[i] = 0
	}
}
