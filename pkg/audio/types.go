// ABOUTME: Audio type definitions
// ABOUTME: Defines stream formats and int32 PCM sample conversions
package audio

import "fmt"

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// Format describes an audio stream format.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// String returns a compact description like "48000Hz 2ch 24bit".
func (f Format) String() string {
	return fmt.Sprintf("%dHz %dch %dbit", f.SampleRate, f.Channels, f.BitDepth)
}

// Valid reports whether the format has usable values.
func (f Format) Valid() bool {
	return f.SampleRate > 0 && f.Channels > 0 &&
		(f.BitDepth == 16 || f.BitDepth == 24 || f.BitDepth == 32)
}

// SampleToInt16 converts int32 sample to int16 (for 16-bit playback)
func SampleToInt16(sample int32) int16 {
	// Right-shift to convert 24-bit (or 16-bit) to 16-bit range
	return int16(sample >> 8)
}

// SampleFromInt16 converts int16 sample to int32 (left-justified in 24-bit)
func SampleFromInt16(sample int16) int32 {
	// Left-shift to position 16-bit value in upper bits
	return int32(sample) << 8
}

// SampleFromBitDepth left-justifies a raw file sample of the given bit
// depth into the int32 24-bit convention. 8-bit WAV samples are unsigned
// with silence at 128, so they are re-centered before shifting.
func SampleFromBitDepth(v, depth int) int32 {
	switch depth {
	case 16:
		return SampleFromInt16(int16(v))
	case 24:
		return int32(v)
	case 32:
		return int32(v >> 8)
	case 8:
		return (int32(v) - 128) << 16
	default:
		return int32(v)
	}
}

// SampleTo24Bit converts int32 to 24-bit packed bytes (little-endian)
func SampleTo24Bit(sample int32) [3]byte {
	return [3]byte{
		byte(sample),
		byte(sample >> 8),
		byte(sample >> 16),
	}
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}

// Clamp24 saturates a value to the 24-bit sample range.
func Clamp24(v int64) int32 {
	if v > Max24Bit {
		return Max24Bit
	}
	if v < Min24Bit {
		return Min24Bit
	}
	return int32(v)
}

// Interleave merges planar channel blocks into a single interleaved buffer.
// All channel slices must have the same length.
func Interleave(planar [][]int32) []int32 {
	if len(planar) == 0 {
		return nil
	}
	frames := len(planar[0])
	out := make([]int32, frames*len(planar))
	for ch, block := range planar {
		for i, s := range block {
			out[i*len(planar)+ch] = s
		}
	}
	return out
}

// Deinterleave splits an interleaved buffer into the supplied planar blocks.
// Frames beyond len(interleaved)/channels are left untouched.
func Deinterleave(interleaved []int32, planar [][]int32) {
	channels := len(planar)
	if channels == 0 {
		return
	}
	frames := len(interleaved) / channels
	for ch := range planar {
		block := planar[ch]
		for i := 0; i < frames && i < len(block); i++ {
			block[i] = interleaved[i*channels+ch]
		}
	}
}
