// ABOUTME: Oto-backed playback device
// ABOUTME: Streams callback output to the system mixer via the oto library
package otodev

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/ebitengine/oto/v3"

	"github.com/openduplex/duplex-go/pkg/audio"
	"github.com/openduplex/duplex-go/pkg/device"
)

// TypeName identifies this backend in the device registry.
const TypeName = "Oto"

// DefaultDeviceName is the single device oto exposes (the system default).
const DefaultDeviceName = "System Default Output"

var (
	sampleRates = []float64{44100, 48000}
	bufferSizes = []int{256, 480, 512, 960, 1024, 2048}
)

// oto allows one context per process, so all devices share it.
var (
	sharedMu       sync.Mutex
	sharedCtx      *oto.Context
	sharedRate     int
	sharedChannels int
)

func acquireContext(sampleRate, channels int) (*oto.Context, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if sharedCtx != nil {
		if sharedRate != sampleRate || sharedChannels != channels {
			log.Printf("Warning: oto context already initialized at %dHz %dch, cannot switch to %dHz %dch",
				sharedRate, sharedChannels, sampleRate, channels)
		}
		return sharedCtx, nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	sharedCtx = ctx
	sharedRate = sampleRate
	sharedChannels = channels
	log.Printf("Audio output initialized: %dHz, %d channels", sampleRate, channels)
	return ctx, nil
}

// Device plays callback output through oto. It is output-only: the input
// mask is always empty and input blocks are never delivered.
type Device struct {
	pump device.Pump

	mu         sync.Mutex
	open       bool
	setup      device.Setup
	player     *oto.Player
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	volume     int
	muted      bool
}

// New creates an oto playback device.
func New() *Device {
	return &Device{volume: 100}
}

func (d *Device) Name() string     { return DefaultDeviceName }
func (d *Device) TypeName() string { return TypeName }

func (d *Device) OutputChannelNames() []string { return []string{"Left", "Right"} }
func (d *Device) InputChannelNames() []string  { return nil }

func (d *Device) AvailableSampleRates() []float64 {
	out := make([]float64, len(sampleRates))
	copy(out, sampleRates)
	return out
}

func (d *Device) AvailableBufferSizes() []int {
	out := make([]int, len(bufferSizes))
	copy(out, bufferSizes)
	return out
}

func (d *Device) DefaultBufferSize() int { return 960 }

// Open creates the shared oto context and a pipe-fed persistent player.
func (d *Device) Open(setup device.Setup) error {
	setup.InputChannels = 0
	setup.OutputChannels = setup.OutputChannels.Limit(2)
	if setup.OutputChannels.Count() == 0 {
		return fmt.Errorf("%w: no output channels enabled", device.ErrBadSetup)
	}
	if setup.SampleRate <= 0 || setup.BufferSize <= 0 {
		return fmt.Errorf("%w: rate %g, buffer %d", device.ErrBadSetup, setup.SampleRate, setup.BufferSize)
	}

	ctx, err := acquireContext(int(setup.SampleRate), setup.OutputChannels.Count())
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open {
		d.closeLocked()
	}

	// Pipe gives us backpressure: writes block until oto drains the data,
	// which paces the pump at the hardware rate.
	d.pipeReader, d.pipeWriter = io.Pipe()
	d.player = ctx.NewPlayer(d.pipeReader)
	d.player.Play()
	d.setup = setup
	d.open = true
	return nil
}

// Close stops streaming and releases the pipe and player. The shared oto
// context stays alive for the rest of the process.
func (d *Device) Close() error {
	d.pump.Stop()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeLocked()
	return nil
}

func (d *Device) closeLocked() {
	if d.pipeWriter != nil {
		d.pipeWriter.Close()
		d.pipeWriter = nil
	}
	if d.player != nil {
		d.player.Close()
		d.player = nil
	}
	if d.pipeReader != nil {
		d.pipeReader.Close()
		d.pipeReader = nil
	}
	d.open = false
}

func (d *Device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// Start begins pulling blocks from the callback and feeding the player.
func (d *Device) Start(cb device.Callback) error {
	d.mu.Lock()
	open, setup := d.open, d.setup
	d.mu.Unlock()

	if !open {
		return device.ErrNotOpen
	}
	return d.pump.Start(d, cb, device.PumpConfig{
		Setup: setup,
		Sink:  d.writeBlock,
	})
}

// writeBlock converts a planar int32 block to interleaved 16-bit LE and
// pushes it down the pipe. Blocks until oto has taken the data.
func (d *Device) writeBlock(out [][]int32, frames int) error {
	d.mu.Lock()
	w := d.pipeWriter
	volume, muted := d.volume, d.muted
	d.mu.Unlock()

	if w == nil {
		return device.ErrNotOpen
	}

	channels := len(out)
	buf := make([]byte, frames*channels*2)
	multiplier := float64(volume) / 100.0
	if muted {
		multiplier = 0
	}

	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			s := audio.Clamp24(int64(float64(out[ch][i]) * multiplier))
			binary.LittleEndian.PutUint16(buf[(i*channels+ch)*2:], uint16(audio.SampleToInt16(s)))
		}
	}

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("pipe write failed: %w", err)
	}
	return nil
}

// Stop halts streaming, flushing any in-flight callback first.
func (d *Device) Stop() { d.pump.Stop() }

func (d *Device) IsPlaying() bool  { return d.pump.Playing() }
func (d *Device) LastError() error { return d.pump.LastError() }

func (d *Device) CurrentSetup() device.Setup {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setup
}

func (d *Device) CurrentBitDepth() int { return 16 }

func (d *Device) OutputLatencyFrames() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	// One block in the pipe plus whatever oto buffers internally; the
	// pipe block is the part we can account for.
	return d.setup.BufferSize
}

func (d *Device) InputLatencyFrames() int { return 0 }

// SetVolume sets the software volume (0-100).
func (d *Device) SetVolume(volume int) {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	d.mu.Lock()
	d.volume = volume
	d.mu.Unlock()
	log.Printf("Volume set to %d", volume)
}

// Volume returns the software volume.
func (d *Device) Volume() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.volume
}

// SetMuted sets the mute state.
func (d *Device) SetMuted(muted bool) {
	d.mu.Lock()
	d.muted = muted
	d.mu.Unlock()
	log.Printf("Muted: %v", muted)
}

// IsMuted returns the mute state.
func (d *Device) IsMuted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.muted
}
