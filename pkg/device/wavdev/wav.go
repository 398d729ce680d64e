// ABOUTME: WAV-file backed audio device
// ABOUTME: Reads input blocks from a WAV file and renders output blocks to another
package wavdev

import (
	"fmt"
	"io"
	"os"
	"sync"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/openduplex/duplex-go/pkg/audio"
	"github.com/openduplex/duplex-go/pkg/device"
)

// TypeName identifies this backend.
const TypeName = "WAV"

const outputBitDepth = 24

var suggestedBufferSizes = []int{64, 128, 256, 512, 1024, 2048, 4096}

// Config describes the files backing the device.
type Config struct {
	Name         string
	InputPath    string // WAV file feeding the input channels, optional
	OutputPath   string // WAV file the output channels render into, optional
	Realtime     bool   // pace at the block rate instead of freewheeling
	StopAtEOF    bool   // end the stream when the input file runs out
	OutputFrames int    // end the stream after exactly this many output frames, 0 = unlimited
}

// Device streams against WAV files instead of hardware. With Realtime off
// it freewheels, which makes it an offline renderer: callbacks run as fast
// as the files can be read and written.
type Device struct {
	cfg  Config
	pump device.Pump

	mu    sync.Mutex
	open  bool
	setup device.Setup

	inFile   *os.File
	decoder  *wav.Decoder
	inDepth  int
	inChans  int
	readBuf  *goaudio.IntBuffer
	eof      bool

	outFile   *os.File
	encoder   *wav.Encoder
	writeBuf  *goaudio.IntBuffer
	outFrames int
}

// New creates a WAV device. At least one of InputPath/OutputPath must be
// set before Open succeeds.
func New(cfg Config) *Device {
	if cfg.Name == "" {
		cfg.Name = "WAV File Device"
	}
	return &Device{cfg: cfg}
}

func (d *Device) Name() string     { return d.cfg.Name }
func (d *Device) TypeName() string { return TypeName }

func (d *Device) OutputChannelNames() []string {
	if d.cfg.OutputPath == "" {
		return nil
	}
	return []string{"File Out 1", "File Out 2"}
}

func (d *Device) InputChannelNames() []string {
	if d.cfg.InputPath == "" {
		return nil
	}
	names := make([]string, d.inputFileChannels())
	for i := range names {
		names[i] = fmt.Sprintf("File In %d", i+1)
	}
	return names
}

// inputFileChannels peeks at the input file's channel count.
func (d *Device) inputFileChannels() int {
	d.mu.Lock()
	chans := d.inChans
	d.mu.Unlock()
	if chans > 0 {
		return chans
	}

	f, err := os.Open(d.cfg.InputPath)
	if err != nil {
		return 2
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if dec.NumChans == 0 {
		return 2
	}
	return int(dec.NumChans)
}

func (d *Device) AvailableSampleRates() []float64 {
	if d.cfg.InputPath != "" {
		f, err := os.Open(d.cfg.InputPath)
		if err == nil {
			defer f.Close()
			dec := wav.NewDecoder(f)
			dec.ReadInfo()
			if dec.SampleRate > 0 {
				return []float64{float64(dec.SampleRate)}
			}
		}
	}
	return []float64{8000, 16000, 22050, 44100, 48000, 96000}
}

func (d *Device) AvailableBufferSizes() []int {
	out := make([]int, len(suggestedBufferSizes))
	copy(out, suggestedBufferSizes)
	return out
}

func (d *Device) DefaultBufferSize() int { return 1024 }

// Open opens the backing files. When an input file is present its sample
// rate must match the setup; resampling is out of scope.
func (d *Device) Open(setup device.Setup) error {
	if d.cfg.InputPath == "" && d.cfg.OutputPath == "" {
		return fmt.Errorf("%w: no input or output file configured", device.ErrBadSetup)
	}
	if setup.SampleRate <= 0 || setup.BufferSize <= 0 {
		return fmt.Errorf("%w: rate %g, buffer %d", device.ErrBadSetup, setup.SampleRate, setup.BufferSize)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open {
		d.closeLocked()
	}

	if d.cfg.InputPath != "" {
		f, err := os.Open(d.cfg.InputPath)
		if err != nil {
			return fmt.Errorf("open input wav: %w", err)
		}
		dec := wav.NewDecoder(f)
		if !dec.IsValidFile() {
			f.Close()
			return fmt.Errorf("%w: %s is not a valid wav file", device.ErrBadSetup, d.cfg.InputPath)
		}
		if float64(dec.SampleRate) != setup.SampleRate {
			f.Close()
			return fmt.Errorf("%w: file rate %d != requested %g", device.ErrBadSetup, dec.SampleRate, setup.SampleRate)
		}
		d.inFile = f
		d.decoder = dec
		d.inDepth = int(dec.BitDepth)
		d.inChans = int(dec.NumChans)
		d.eof = false
		setup.InputChannels = setup.InputChannels.Limit(d.inChans)
	} else {
		setup.InputChannels = 0
	}

	if d.cfg.OutputPath != "" {
		setup.OutputChannels = setup.OutputChannels.Limit(2)
		if setup.OutputChannels.Count() == 0 {
			d.closeLocked()
			return fmt.Errorf("%w: output file configured but no output channels enabled", device.ErrBadSetup)
		}
		f, err := os.Create(d.cfg.OutputPath)
		if err != nil {
			d.closeLocked()
			return fmt.Errorf("create output wav: %w", err)
		}
		d.outFile = f
		d.encoder = wav.NewEncoder(f, int(setup.SampleRate), outputBitDepth, setup.OutputChannels.Count(), 1)
		d.outFrames = 0
	} else {
		setup.OutputChannels = 0
	}

	if setup.InputChannels.Count() == 0 && setup.OutputChannels.Count() == 0 {
		d.closeLocked()
		return fmt.Errorf("%w: no channels enabled", device.ErrBadSetup)
	}

	d.setup = setup
	d.open = true
	return nil
}

// Close stops streaming and finalises the output file header.
func (d *Device) Close() error {
	d.pump.Stop()
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closeLocked()
}

func (d *Device) closeLocked() error {
	var firstErr error
	if d.encoder != nil {
		if err := d.encoder.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("finalise output wav: %w", err)
		}
		d.encoder = nil
	}
	if d.outFile != nil {
		if err := d.outFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		d.outFile = nil
	}
	if d.inFile != nil {
		d.inFile.Close()
		d.inFile = nil
	}
	d.decoder = nil
	d.readBuf = nil
	d.writeBuf = nil
	d.open = false
	return firstErr
}

func (d *Device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// Start begins streaming file blocks through the callback.
func (d *Device) Start(cb device.Callback) error {
	d.mu.Lock()
	open, setup := d.open, d.setup
	d.mu.Unlock()

	if !open {
		return device.ErrNotOpen
	}

	cfg := device.PumpConfig{
		Setup:    setup,
		Realtime: d.cfg.Realtime,
	}
	if setup.InputChannels.Count() > 0 {
		cfg.Source = d.readBlock
	}
	if setup.OutputChannels.Count() > 0 {
		cfg.Sink = d.writeBlock
	}
	return d.pump.Start(d, cb, cfg)
}

// readBlock fills the planar input block from the WAV decoder. After EOF
// it yields silence, or ends the stream when StopAtEOF is set.
func (d *Device) readBlock(in [][]int32, frames int) error {
	if d.eof {
		if d.cfg.StopAtEOF {
			return io.EOF
		}
		zero(in)
		return nil
	}

	if d.readBuf == nil || len(d.readBuf.Data) != frames*d.inChans {
		d.readBuf = &goaudio.IntBuffer{
			Format: &goaudio.Format{NumChannels: d.inChans, SampleRate: int(d.setup.SampleRate)},
			Data:   make([]int, frames*d.inChans),
		}
	}

	n, err := d.decoder.PCMBuffer(d.readBuf)
	if err != nil && err != io.EOF {
		return fmt.Errorf("read input wav: %w", err)
	}
	gotFrames := n / d.inChans
	if gotFrames == 0 {
		d.eof = true
		return d.readBlock(in, frames)
	}

	channels := d.setup.InputChannels.Channels()
	for j, ch := range channels {
		block := in[j]
		for i := 0; i < frames; i++ {
			if i < gotFrames && ch < d.inChans {
				block[i] = audio.SampleFromBitDepth(d.readBuf.Data[i*d.inChans+ch], d.inDepth)
			} else {
				block[i] = 0
			}
		}
	}
	if gotFrames < frames {
		d.eof = true
	}
	return nil
}

// writeBlock renders the planar output block into the WAV encoder. With
// OutputFrames set, the final block is truncated so the file holds exactly
// that many frames, and the stream ends.
func (d *Device) writeBlock(out [][]int32, frames int) error {
	atLimit := false
	if d.cfg.OutputFrames > 0 {
		remaining := d.cfg.OutputFrames - d.outFrames
		if remaining <= 0 {
			return io.EOF
		}
		if frames >= remaining {
			frames = remaining
			atLimit = true
		}
	}

	channels := len(out)
	if d.writeBuf == nil || len(d.writeBuf.Data) != frames*channels {
		d.writeBuf = &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: channels, SampleRate: int(d.setup.SampleRate)},
			SourceBitDepth: outputBitDepth,
			Data:           make([]int, frames*channels),
		}
	}

	for ch := 0; ch < channels; ch++ {
		for i := 0; i < frames; i++ {
			d.writeBuf.Data[i*channels+ch] = int(audio.Clamp24(int64(out[ch][i])))
		}
	}

	if err := d.encoder.Write(d.writeBuf); err != nil {
		return fmt.Errorf("write output wav: %w", err)
	}
	d.outFrames += frames
	if atLimit {
		return io.EOF
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

func (d *Device) CurrentBitDepth() int { return outputBitDepth }

func (d *Device) OutputLatencyFrames() int { return 0 }
func (d *Device) InputLatencyFrames() int  { return 0 }

// Stats exposes the pump counters.
func (d *Device) Stats() device.PumpStats { return d.pump.Stats() }

func zero(blocks [][]int32) {
	for _, b := range blocks {
		for i := range b {
			b[i] = 0
		}
	}
}
