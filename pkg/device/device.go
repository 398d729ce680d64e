// ABOUTME: Core audio I/O device contract
// ABOUTME: Defines the Device and Callback interfaces implemented by backends
package device

// Callback is invoked by a running Device to exchange blocks of audio.
//
// ProcessBlock runs on the device's streaming goroutine. in holds one block
// per enabled input channel, out one per enabled output channel, both in
// ascending channel order. out is zeroed before every call, so a silent
// callback may leave it untouched. frames is the block length in frames and
// can vary between calls; callbacks must cope with reasonable changes.
type Callback interface {
	// AboutToStart is called on the device's goroutine just before the
	// first ProcessBlock. The device's CurrentSetup is valid at this point.
	// The Device is only usable until Stopped is delivered.
	AboutToStart(d Device)

	// ProcessBlock consumes the input block and fills the output block.
	ProcessBlock(in, out [][]int32, frames int)

	// Stopped is called after the last ProcessBlock has returned, whether
	// the device was stopped deliberately or died on its own.
	Stopped()
}

// ErrorReporter is optionally implemented by a Callback to be told about
// errors the device hits while streaming. May be called from any goroutine.
type ErrorReporter interface {
	DeviceError(err error)
}

// Setup holds the parameters a device is opened with.
type Setup struct {
	InputChannels  ChannelSet `yaml:"input_channels"`
	OutputChannels ChannelSet `yaml:"output_channels"`
	SampleRate     float64    `yaml:"sample_rate"`
	BufferSize     int        `yaml:"buffer_size"`
}

// Info identifies a device within its backend type.
type Info struct {
	Name     string
	TypeName string
}

// Device is an audio input/output stream with synchronised channels.
// Implementations back it with a concrete transport: a soundcard API, a
// file, a network sink, or nothing at all for testing.
//
// Lifecycle: Open, Start(cb), Stop, Close. Stop returns only once any
// in-flight ProcessBlock has finished and Stopped has been delivered to the
// callback. Close implies Stop. Both are safe to call repeatedly.
type Device interface {
	// Name returns the device's name within its type.
	Name() string

	// TypeName returns the backend type, e.g. "Null" or "Oto".
	TypeName() string

	// OutputChannelNames lists all output channels the device offers.
	OutputChannelNames() []string

	// InputChannelNames lists all input channels the device offers.
	InputChannelNames() []string

	// AvailableSampleRates lists the rates Open will accept.
	AvailableSampleRates() []float64

	// AvailableBufferSizes lists the buffer sizes (frames) Open will accept.
	AvailableBufferSizes() []int

	// DefaultBufferSize returns the preferred buffer size in frames.
	DefaultBufferSize() int

	// Open prepares the device for streaming with the requested setup.
	Open(setup Setup) error

	// Close stops and releases the device. Safe to call when not open.
	Close() error

	// IsOpen reports whether the device is open. A device can close itself
	// if the backend fails, so poll this rather than caching it.
	IsOpen() bool

	// Start begins invoking cb on the device's streaming goroutine.
	Start(cb Callback) error

	// Stop halts streaming. Pending callback invocations are flushed before
	// Stop returns.
	Stop()

	// IsPlaying reports whether the callback is still being invoked.
	IsPlaying() bool

	// LastError returns the most recent streaming failure, or nil.
	LastError() error

	// CurrentSetup returns the effective setup after Open. Meaningless when
	// the device is not open.
	CurrentSetup() Setup

	// CurrentBitDepth returns the physical bit depth while open.
	CurrentBitDepth() int

	// OutputLatencyFrames returns the delay between a callback producing a
	// block and that block hitting the output.
	OutputLatencyFrames() int

	// InputLatencyFrames returns the delay between audio arriving at the
	// input and the callback receiving it.
	InputLatencyFrames() int
}
