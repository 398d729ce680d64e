// ABOUTME: WebSocket network stream device
// ABOUTME: Plays callback output to a remote sink as PCM or Opus frames
package netdev

import (
	"encoding/binary"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	opus "gopkg.in/hraban/opus.v2"

	"github.com/openduplex/duplex-go/pkg/audio"
	"github.com/openduplex/duplex-go/pkg/device"
)

// TypeName identifies this backend.
const TypeName = "NetStream"

// Opus only accepts specific frame durations; at 48kHz these are the
// usable buffer sizes.
var opusBufferSizes = []int{120, 240, 480, 960, 1920, 2880}

var pcmBufferSizes = []int{128, 256, 480, 512, 960, 1024, 2048}

// Config describes the remote sink a device streams to.
type Config struct {
	Addr       string // host:port of the sink
	Path       string // websocket path, DefaultPath when empty
	Codec      string // CodecPCM (default) or CodecOpus
	Name       string // device name, defaults to the address
	ClientName string // name reported in the hello handshake
}

// Device streams its callback's output channels to a remote websocket
// sink. Output-only; callbacks are paced at the block rate since the
// network gives no backpressure worth trusting.
type Device struct {
	cfg  Config
	pump device.Pump

	mu      sync.Mutex
	open    bool
	setup   device.Setup
	conn    *websocket.Conn
	encoder *opus.Encoder
	pcm16   []int16
	packet  []byte
}

// New creates a network stream device for the given sink.
func New(cfg Config) *Device {
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.Codec == "" {
		cfg.Codec = CodecPCM
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Addr
	}
	if cfg.ClientName == "" {
		cfg.ClientName = "duplex-go"
	}
	return &Device{cfg: cfg}
}

func (d *Device) Name() string     { return d.cfg.Name }
func (d *Device) TypeName() string { return TypeName }

func (d *Device) OutputChannelNames() []string { return []string{"Left", "Right"} }
func (d *Device) InputChannelNames() []string  { return nil }

func (d *Device) AvailableSampleRates() []float64 {
	if d.cfg.Codec == CodecOpus {
		return []float64{48000}
	}
	return []float64{44100, 48000}
}

func (d *Device) AvailableBufferSizes() []int {
	var sizes []int
	if d.cfg.Codec == CodecOpus {
		sizes = opusBufferSizes
	} else {
		sizes = pcmBufferSizes
	}
	out := make([]int, len(sizes))
	copy(out, sizes)
	return out
}

func (d *Device) DefaultBufferSize() int { return 960 }

// Open dials the sink and performs the hello handshake.
func (d *Device) Open(setup device.Setup) error {
	setup.InputChannels = 0
	setup.OutputChannels = setup.OutputChannels.Limit(2)
	channels := setup.OutputChannels.Count()
	if channels == 0 {
		return fmt.Errorf("%w: no output channels enabled", device.ErrBadSetup)
	}
	if !rateAllowed(d.AvailableSampleRates(), setup.SampleRate) {
		return fmt.Errorf("%w: sample rate %g not supported by codec %s", device.ErrBadSetup, setup.SampleRate, d.cfg.Codec)
	}
	if d.cfg.Codec == CodecOpus && !sizeAllowed(opusBufferSizes, setup.BufferSize) {
		return fmt.Errorf("%w: buffer %d is not a valid opus frame", device.ErrBadSetup, setup.BufferSize)
	}
	if setup.BufferSize <= 0 {
		return fmt.Errorf("%w: buffer %d", device.ErrBadSetup, setup.BufferSize)
	}

	u := url.URL{Scheme: "ws", Host: d.cfg.Addr, Path: d.cfg.Path}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	hello := Hello{
		ClientID:   uuid.New().String(),
		Name:       d.cfg.ClientName,
		Codec:      d.cfg.Codec,
		SampleRate: int(setup.SampleRate),
		Channels:   channels,
	}
	if err := conn.WriteJSON(hello); err != nil {
		conn.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	var enc *opus.Encoder
	if d.cfg.Codec == CodecOpus {
		enc, err = opus.NewEncoder(int(setup.SampleRate), channels, opus.AppAudio)
		if err != nil {
			conn.Close()
			return fmt.Errorf("failed to create opus encoder: %w", err)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open {
		d.closeLocked()
	}
	d.conn = conn
	d.encoder = enc
	d.setup = setup
	d.pcm16 = make([]int16, setup.BufferSize*channels)
	d.packet = make([]byte, 4000) // max opus packet
	d.open = true
	return nil
}

// Close stops streaming and closes the connection.
func (d *Device) Close() error {
	d.pump.Stop()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeLocked()
	return nil
}

func (d *Device) closeLocked() {
	if d.conn != nil {
		d.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		d.conn.Close()
		d.conn = nil
	}
	d.encoder = nil
	d.open = false
}

func (d *Device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// Start begins streaming blocks to the sink.
func (d *Device) Start(cb device.Callback) error {
	d.mu.Lock()
	open, setup := d.open, d.setup
	d.mu.Unlock()

	if !open {
		return device.ErrNotOpen
	}
	return d.pump.Start(d, cb, device.PumpConfig{
		Setup:    setup,
		Realtime: true,
		Sink:     d.sendBlock,
	})
}

// sendBlock converts a block to the wire codec and ships it with a
// timestamp.
func (d *Device) sendBlock(out [][]int32, frames int) error {
	d.mu.Lock()
	conn, enc := d.conn, d.encoder
	pcm16, packet := d.pcm16, d.packet
	d.mu.Unlock()

	if conn == nil {
		return device.ErrNotOpen
	}

	channels := len(out)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			pcm16[i*channels+ch] = audio.SampleToInt16(out[ch][i])
		}
	}
	samples := pcm16[:frames*channels]

	var payload []byte
	if enc != nil {
		n, err := enc.Encode(samples, packet)
		if err != nil {
			return fmt.Errorf("opus encode failed: %w", err)
		}
		payload = packet[:n]
	} else {
		payload = make([]byte, len(samples)*2)
		for i, s := range samples {
			binary.LittleEndian.PutUint16(payload[i*2:], uint16(s))
		}
	}

	frame := EncodeFrame(time.Now().UnixMicro(), payload)
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return fmt.Errorf("send frame: %w", err)
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
	// Network latency is unknowable from here; report the block we hold.
	return d.setup.BufferSize
}

func (d *Device) InputLatencyFrames() int { return 0 }

// Stats exposes the pump counters.
func (d *Device) Stats() device.PumpStats { return d.pump.Stats() }

func rateAllowed(rates []float64, rate float64) bool {
	for _, r := range rates {
		if r == rate {
			return true
		}
	}
	return false
}

func sizeAllowed(sizes []int, size int) bool {
	for _, s := range sizes {
		if s == size {
			return true
		}
	}
	return false
}
