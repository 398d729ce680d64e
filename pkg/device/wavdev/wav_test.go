// ABOUTME: Tests for the WAV file device
// ABOUTME: Renders and re-reads files to verify both directions of the stream
package wavdev

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/openduplex/duplex-go/pkg/audio"
	"github.com/openduplex/duplex-go/pkg/device"
)

func TestWavImplementsDevice(t *testing.T) {
	var _ device.Device = (*Device)(nil)
}

// writeTestWav writes frames of a 16-bit mono ramp and returns the path.
func writeTestWav(t *testing.T, dir string, frames int) string {
	t.Helper()
	path := filepath.Join(dir, "in.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	enc := wav.NewEncoder(f, 48000, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: 48000},
		SourceBitDepth: 16,
		Data:           make([]int, frames),
	}
	for i := range buf.Data {
		buf.Data[i] = i % 1000
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	f.Close()
	return path
}

func TestOpenValidation(t *testing.T) {
	d := New(Config{})
	err := d.Open(device.Setup{OutputChannels: device.Stereo(), SampleRate: 48000, BufferSize: 256})
	if !errors.Is(err, device.ErrBadSetup) {
		t.Errorf("expected ErrBadSetup with no files, got %v", err)
	}

	dir := t.TempDir()
	in := writeTestWav(t, dir, 480)
	d = New(Config{InputPath: in})
	err = d.Open(device.Setup{InputChannels: device.Mono(), SampleRate: 44100, BufferSize: 256})
	if !errors.Is(err, device.ErrBadSetup) {
		t.Errorf("expected rate mismatch error, got %v", err)
	}
}

// renderCallback fills the output with a constant value.
type renderCallback struct{}

func (renderCallback) AboutToStart(device.Device) {}

func (renderCallback) ProcessBlock(in, out [][]int32, frames int) {
	for ch := range out {
		for i := 0; i < frames; i++ {
			out[ch][i] = 100000
		}
	}
}

func (renderCallback) Stopped() {}

func TestRenderToFile(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.wav")

	d := New(Config{OutputPath: outPath})
	setup := device.Setup{OutputChannels: device.Stereo(), SampleRate: 48000, BufferSize: 128}
	if err := d.Open(setup); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := d.Start(renderCallback{}); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// Freewheeling: a short wait renders plenty of blocks.
	deadline := time.Now().Add(time.Second)
	for d.Stats().Callbacks < 4 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	// Re-read and verify the rendered samples.
	f, err := os.Open(outPath)
	if err != nil {
		t.Fatalf("open rendered file: %v", err)
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Fatal("rendered file is not valid wav")
	}
	buf := &goaudio.IntBuffer{Data: make([]int, 256), Format: &goaudio.Format{}}
	n, err := dec.PCMBuffer(buf)
	if err != nil {
		t.Fatalf("read rendered: %v", err)
	}
	if n == 0 {
		t.Fatal("rendered file is empty")
	}
	for i := 0; i < n; i++ {
		if buf.Data[i] != 100000 {
			t.Fatalf("sample %d: expected 100000, got %d", i, buf.Data[i])
		}
	}
}

func TestRenderExactFrames(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.wav")
	const want = 700 // not a multiple of the buffer size

	d := New(Config{OutputPath: outPath, OutputFrames: want})
	setup := device.Setup{OutputChannels: device.Mono(), SampleRate: 48000, BufferSize: 512}
	if err := d.Open(setup); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := d.Start(renderCallback{}); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for d.IsPlaying() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if d.IsPlaying() {
		t.Fatal("device did not stop at the frame limit")
	}
	d.Stop()
	if d.LastError() != nil {
		t.Errorf("frame limit should not be an error, got %v", d.LastError())
	}
	if err := d.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatalf("open rendered file: %v", err)
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Fatal("rendered file is not valid wav")
	}
	total := 0
	buf := &goaudio.IntBuffer{Data: make([]int, 256), Format: &goaudio.Format{}}
	for {
		n, err := dec.PCMBuffer(buf)
		if err != nil {
			t.Fatalf("read rendered: %v", err)
		}
		if n == 0 {
			break
		}
		total += n
	}
	if total != want {
		t.Errorf("expected exactly %d frames, got %d", want, total)
	}
}

// passthroughCallback copies input channel 0 to all outputs and records it.
type passthroughCallback struct {
	mu      sync.Mutex
	samples []int32
}

func (c *passthroughCallback) AboutToStart(device.Device) {}

func (c *passthroughCallback) ProcessBlock(in, out [][]int32, frames int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(in) > 0 {
		c.samples = append(c.samples, in[0][:frames]...)
	}
}

func (c *passthroughCallback) Stopped() {}

func TestInputStopsAtEOF(t *testing.T) {
	dir := t.TempDir()
	const frames = 512
	in := writeTestWav(t, dir, frames)

	d := New(Config{InputPath: in, StopAtEOF: true})
	setup := device.Setup{InputChannels: device.Mono(), SampleRate: 48000, BufferSize: 128}
	if err := d.Open(setup); err != nil {
		t.Fatalf("open failed: %v", err)
	}

	cb := &passthroughCallback{}
	if err := d.Start(cb); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for d.IsPlaying() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if d.IsPlaying() {
		t.Fatal("device did not stop at EOF")
	}
	d.Stop()

	if d.LastError() != nil {
		t.Errorf("EOF should not be an error, got %v", d.LastError())
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if len(cb.samples) != frames {
		t.Fatalf("expected %d samples, got %d", frames, len(cb.samples))
	}
	// Ramp values are 16-bit in the file, left-justified on read.
	for i, s := range cb.samples {
		want := audio.SampleFromInt16(int16(i % 1000))
		if s != want {
			t.Fatalf("sample %d: expected %d, got %d", i, want, s)
		}
	}
}

func TestInputChannelNamesFromFile(t *testing.T) {
	dir := t.TempDir()
	in := writeTestWav(t, dir, 64)

	d := New(Config{InputPath: in})
	names := d.InputChannelNames()
	if len(names) != 1 {
		t.Errorf("expected 1 input channel for mono file, got %v", names)
	}
	rates := d.AvailableSampleRates()
	if len(rates) != 1 || rates[0] != 48000 {
		t.Errorf("expected file rate 48000 only, got %v", rates)
	}
}
