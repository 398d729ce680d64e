// ABOUTME: Tests for the file playback callback
// ABOUTME: Uses an in-memory decoder to verify channel mapping and end-of-file
package source

import (
	"io"
	"testing"

	"github.com/openduplex/duplex-go/pkg/audio"
)

// memDecoder serves a fixed sequence of interleaved samples.
type memDecoder struct {
	format  audio.Format
	samples []int32
	pos     int
	closed  bool
}

func (m *memDecoder) Format() audio.Format { return m.format }

func (m *memDecoder) Read(dst []int32) (int, error) {
	if m.pos >= len(m.samples) {
		return 0, io.EOF
	}
	n := copy(dst, m.samples[m.pos:])
	m.pos += n
	return n, nil
}

func (m *memDecoder) Close() error {
	m.closed = true
	return nil
}

func TestFilePlayerMonoToStereo(t *testing.T) {
	samples := make([]int32, 128)
	for i := range samples {
		samples[i] = int32(i + 1)
	}
	dec := &memDecoder{
		format:  audio.Format{SampleRate: 48000, Channels: 1, BitDepth: 16},
		samples: samples,
	}
	player := NewFilePlayer(dec)

	out := [][]int32{make([]int32, 128), make([]int32, 128)}
	player.ProcessBlock(nil, out, 128)

	for i := 0; i < 128; i++ {
		want := int32(i + 1)
		if out[0][i] != want || out[1][i] != want {
			t.Fatalf("frame %d: expected %d on both channels, got %d/%d", i, want, out[0][i], out[1][i])
		}
	}
	if player.FramesPlayed() != 128 {
		t.Errorf("expected 128 frames played, got %d", player.FramesPlayed())
	}
}

func TestFilePlayerStereoMapping(t *testing.T) {
	// Interleaved stereo: left 10, right 20.
	samples := make([]int32, 64)
	for i := 0; i < len(samples); i += 2 {
		samples[i] = 10
		samples[i+1] = 20
	}
	dec := &memDecoder{
		format:  audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 16},
		samples: samples,
	}
	player := NewFilePlayer(dec)

	out := [][]int32{make([]int32, 32), make([]int32, 32)}
	player.ProcessBlock(nil, out, 32)

	if out[0][0] != 10 || out[1][0] != 20 {
		t.Errorf("expected 10/20 on channels, got %d/%d", out[0][0], out[1][0])
	}
}

func TestFilePlayerVaryingBlockSizes(t *testing.T) {
	samples := make([]int32, 100)
	for i := range samples {
		samples[i] = int32(i + 1)
	}
	dec := &memDecoder{
		format:  audio.Format{SampleRate: 48000, Channels: 1, BitDepth: 16},
		samples: samples,
	}
	player := NewFilePlayer(dec)

	// Block size changes between callbacks; playback must stay gapless.
	var got []int32
	for _, n := range []int{48, 16, 36} {
		out := [][]int32{make([]int32, n)}
		player.ProcessBlock(nil, out, n)
		got = append(got, out[0]...)
	}

	if len(got) != 100 {
		t.Fatalf("expected 100 samples, got %d", len(got))
	}
	for i, v := range got {
		if v != int32(i+1) {
			t.Fatalf("sample %d: expected %d, got %d", i, i+1, v)
		}
	}
	if player.FramesPlayed() != 100 {
		t.Errorf("expected 100 frames played, got %d", player.FramesPlayed())
	}
}

func TestFilePlayerFinishes(t *testing.T) {
	dec := &memDecoder{
		format:  audio.Format{SampleRate: 48000, Channels: 1, BitDepth: 16},
		samples: make([]int32, 100),
	}
	player := NewFilePlayer(dec)

	out := [][]int32{make([]int32, 64)}
	player.ProcessBlock(nil, out, 64)
	if player.Finished() {
		t.Fatal("player finished too early")
	}

	player.ProcessBlock(nil, out, 64)
	if !player.Finished() {
		t.Fatal("expected player to finish after decoder ran dry")
	}
	select {
	case <-player.Done():
	default:
		t.Error("expected Done channel to be closed")
	}
	if !dec.closed {
		t.Error("expected decoder to be closed at end of file")
	}
	if player.FramesPlayed() != 100 {
		t.Errorf("expected 100 frames played, got %d", player.FramesPlayed())
	}

	// Further blocks stay silent.
	out[0][0] = 999
	player.ProcessBlock(nil, out, 64)
	if out[0][0] != 999 {
		t.Error("expected no writes after playback finished")
	}
}

func TestFilePlayerClose(t *testing.T) {
	dec := &memDecoder{
		format:  audio.Format{SampleRate: 48000, Channels: 1, BitDepth: 16},
		samples: make([]int32, 1000),
	}
	player := NewFilePlayer(dec)
	if err := player.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := player.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}
	if !dec.closed {
		t.Error("expected decoder to be closed")
	}
}
