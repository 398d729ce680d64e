// ABOUTME: Null audio device backend
// ABOUTME: Streams silence or loopback without touching any hardware
package nulldev

import (
	"fmt"
	"sync"

	"github.com/openduplex/duplex-go/pkg/audio"
	"github.com/openduplex/duplex-go/pkg/device"
)

// TypeName identifies this backend in the device registry.
const TypeName = "Null"

// DefaultDeviceName is the single device the Null type exposes.
const DefaultDeviceName = "Null Audio Device"

var (
	defaultSampleRates = []float64{22050, 44100, 48000, 88200, 96000}
	defaultBufferSizes = []int{64, 128, 256, 512, 1024, 2048}
)

// Config describes the virtual hardware a null device pretends to be.
type Config struct {
	Name        string
	Inputs      int // channels offered, default 2
	Outputs     int // channels offered, default 2
	SampleRates []float64
	BufferSizes []int
	Realtime    bool // pace callbacks at the block rate instead of freewheeling
	Loopback    bool // feed each output block back into the next input block
}

// Device is an audio device backed by nothing at all. It runs the full
// streaming lifecycle, which makes it the backend of choice for tests and
// for exercising callbacks without hardware.
type Device struct {
	cfg  Config
	pump device.Pump

	mu    sync.Mutex
	open  bool
	setup device.Setup
	rings []*audio.RingBuffer
}

// New creates a null device. Zero-value config fields get sensible
// defaults: stereo in/out, the common sample rates and buffer sizes.
func New(cfg Config) *Device {
	if cfg.Name == "" {
		cfg.Name = DefaultDeviceName
	}
	if cfg.Inputs <= 0 {
		cfg.Inputs = 2
	}
	if cfg.Outputs <= 0 {
		cfg.Outputs = 2
	}
	if len(cfg.SampleRates) == 0 {
		cfg.SampleRates = defaultSampleRates
	}
	if len(cfg.BufferSizes) == 0 {
		cfg.BufferSizes = defaultBufferSizes
	}
	return &Device{cfg: cfg}
}

func (d *Device) Name() string     { return d.cfg.Name }
func (d *Device) TypeName() string { return TypeName }

func (d *Device) OutputChannelNames() []string {
	return channelNames("Out", d.cfg.Outputs)
}

func (d *Device) InputChannelNames() []string {
	return channelNames("In", d.cfg.Inputs)
}

func channelNames(prefix string, n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("%s %d", prefix, i+1)
	}
	return names
}

func (d *Device) AvailableSampleRates() []float64 {
	out := make([]float64, len(d.cfg.SampleRates))
	copy(out, d.cfg.SampleRates)
	return out
}

func (d *Device) AvailableBufferSizes() []int {
	out := make([]int, len(d.cfg.BufferSizes))
	copy(out, d.cfg.BufferSizes)
	return out
}

func (d *Device) DefaultBufferSize() int {
	for _, size := range d.cfg.BufferSizes {
		if size >= 512 {
			return size
		}
	}
	return d.cfg.BufferSizes[len(d.cfg.BufferSizes)-1]
}

// Open validates the setup against the advertised capabilities. Channel
// masks are clipped to the channels the device offers.
func (d *Device) Open(setup device.Setup) error {
	if !containsFloat(d.cfg.SampleRates, setup.SampleRate) {
		return fmt.Errorf("%w: sample rate %g not offered", device.ErrBadSetup, setup.SampleRate)
	}
	if !containsInt(d.cfg.BufferSizes, setup.BufferSize) {
		return fmt.Errorf("%w: buffer size %d not offered", device.ErrBadSetup, setup.BufferSize)
	}

	setup.InputChannels = setup.InputChannels.Limit(d.cfg.Inputs)
	setup.OutputChannels = setup.OutputChannels.Limit(d.cfg.Outputs)
	if setup.InputChannels.Count() == 0 && setup.OutputChannels.Count() == 0 {
		return fmt.Errorf("%w: no channels enabled", device.ErrBadSetup)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.setup = setup
	d.open = true

	// One ring per channel slot the loopback can carry. A read that
	// outruns the writes zero-fills, so the first input block is silent.
	d.rings = nil
	if d.cfg.Loopback {
		n := setup.OutputChannels.Count()
		if in := setup.InputChannels.Count(); in > n {
			n = in
		}
		d.rings = make([]*audio.RingBuffer, n)
		for i := range d.rings {
			d.rings[i] = audio.NewRingBuffer(4 * setup.BufferSize)
		}
	}
	return nil
}

// Close stops streaming and marks the device closed.
func (d *Device) Close() error {
	d.pump.Stop()
	d.mu.Lock()
	d.open = false
	d.mu.Unlock()
	return nil
}

func (d *Device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// Start begins streaming. With Loopback enabled each output block is
// copied into the following input block, channel for channel.
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
	if d.cfg.Loopback {
		cfg.Source = d.loopbackSource
		cfg.Sink = d.loopbackSink
	}
	return d.pump.Start(d, cb, cfg)
}

func (d *Device) loopbackSource(in [][]int32, frames int) error {
	d.mu.Lock()
	rings := d.rings
	d.mu.Unlock()

	for ch := range in {
		if ch < len(rings) {
			rings[ch].Read(in[ch][:frames])
		} else {
			for i := range in[ch] {
				in[ch][i] = 0
			}
		}
	}
	return nil
}

func (d *Device) loopbackSink(out [][]int32, frames int) error {
	d.mu.Lock()
	rings := d.rings
	d.mu.Unlock()

	for ch := range out {
		if ch < len(rings) {
			rings[ch].Write(out[ch][:frames])
		}
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

func (d *Device) CurrentBitDepth() int { return 24 }

func (d *Device) OutputLatencyFrames() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setup.BufferSize
}

func (d *Device) InputLatencyFrames() int { return 0 }

// Stats exposes the pump counters for monitoring.
func (d *Device) Stats() device.PumpStats { return d.pump.Stats() }

func containsFloat(list []float64, v float64) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
