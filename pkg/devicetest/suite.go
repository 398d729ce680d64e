// ABOUTME: Reusable compliance suite for device backends
// ABOUTME: Exercises the Device lifecycle contract against any implementation
package devicetest

import (
	"sync/atomic"
	"time"

	"github.com/openduplex/duplex-go/pkg/device"
	"github.com/openduplex/duplex-go/pkg/unittest"
)

// Factory produces a fresh, closed device for each run of the suite.
type Factory func() (device.Device, error)

// Suite checks a device backend against the Device contract: parameter
// enumeration, the open/start/stop/close lifecycle, and the stop-flush
// guarantee. Register one per backend, or run it directly from a test.
type Suite struct {
	label   string
	factory Factory
}

// NewSuite builds a compliance suite for the backend produced by factory.
func NewSuite(label string, factory Factory) *Suite {
	return &Suite{label: label, factory: factory}
}

func (s *Suite) Name() string     { return s.label + " device compliance" }
func (s *Suite) Category() string { return "devices" }

func (s *Suite) Run(t *unittest.T) {
	d, err := s.factory()
	if err != nil {
		t.Expectf(false, "factory failed: %v", err)
		return
	}
	defer d.Close()

	s.checkEnumeration(t, d)
	if t.Aborted() {
		return
	}

	setup, ok := s.checkOpen(t, d)
	if !ok || t.Aborted() {
		return
	}

	s.checkStreaming(t, d, setup)
	if t.Aborted() {
		return
	}

	s.checkClose(t, d)
}

func (s *Suite) checkEnumeration(t *unittest.T, d device.Device) {
	t.Begin("enumeration")

	t.Expect(d.Name() != "", "device reports a name")
	t.Expect(d.TypeName() != "", "device reports a type name")

	rates := d.AvailableSampleRates()
	t.Expect(len(rates) > 0, "at least one sample rate offered")
	for _, r := range rates {
		t.Expectf(r > 0, "sample rate %g is positive", r)
	}

	sizes := d.AvailableBufferSizes()
	t.Expect(len(sizes) > 0, "at least one buffer size offered")
	for _, b := range sizes {
		t.Expectf(b > 0, "buffer size %d is positive", b)
	}

	def := d.DefaultBufferSize()
	found := false
	for _, b := range sizes {
		if b == def {
			found = true
		}
	}
	t.Expectf(found, "default buffer size %d is among the offered sizes", def)

	t.Expect(len(d.OutputChannelNames())+len(d.InputChannelNames()) > 0,
		"device offers at least one channel")

	t.Begin("closed state")
	t.Expect(!d.IsOpen(), "device starts closed")
	t.Expect(!d.IsPlaying(), "device starts stopped")
	t.Expect(d.Start(&probe{}) != nil, "starting a closed device fails")
	t.Expect(d.Close() == nil, "closing a closed device is a no-op")
}

func (s *Suite) checkOpen(t *unittest.T, d device.Device) (device.Setup, bool) {
	t.Begin("open")

	setup := device.Setup{
		InputChannels:  device.FirstChannels(len(d.InputChannelNames())),
		OutputChannels: device.FirstChannels(len(d.OutputChannelNames())),
		SampleRate:     d.AvailableSampleRates()[0],
		BufferSize:     d.DefaultBufferSize(),
	}
	if err := d.Open(setup); err != nil {
		t.Expectf(false, "open with advertised parameters failed: %v", err)
		return setup, false
	}

	t.Expect(d.IsOpen(), "device reports open after Open")
	t.Expect(!d.IsPlaying(), "device not playing before Start")

	current := d.CurrentSetup()
	unittest.ExpectEquals(t, current.SampleRate, setup.SampleRate, "current sample rate")
	unittest.ExpectEquals(t, current.BufferSize, setup.BufferSize, "current buffer size")
	t.Expect(current.OutputChannels.Count() <= len(d.OutputChannelNames()),
		"enabled outputs do not exceed offered channels")

	t.Expect(d.CurrentBitDepth() > 0, "bit depth is positive while open")
	t.Expect(d.OutputLatencyFrames() >= 0, "output latency is not negative")
	t.Expect(d.InputLatencyFrames() >= 0, "input latency is not negative")

	return current, true
}

func (s *Suite) checkStreaming(t *unittest.T, d device.Device, setup device.Setup) {
	t.Begin("streaming")

	p := &probe{
		wantOut: setup.OutputChannels.Count(),
		wantIn:  setup.InputChannels.Count(),
	}
	t.Expect(d.Start(nil) != nil, "starting with a nil callback fails")

	if err := d.Start(p); err != nil {
		t.Expectf(false, "start failed: %v", err)
		return
	}
	t.Expect(d.Start(p) != nil, "second start while playing fails")

	if !p.waitForBlocks(2, 5*time.Second) {
		t.Expect(false, "callback never invoked")
		d.Stop()
		return
	}
	t.Expect(d.IsPlaying(), "device reports playing while streaming")
	t.Expect(p.started.Load() == 1, "AboutToStart delivered exactly once")
	t.Expect(p.startedFirst.Load(), "AboutToStart precedes the first block")
	t.Expect(p.shapeOK.Load(), "block shape matches the enabled channels")

	t.Begin("stop flush")
	d.Stop()
	blocksAtStop := p.blocks.Load()
	t.Expect(p.stopped.Load() == 1, "Stopped delivered before Stop returns")
	t.Expect(!d.IsPlaying(), "device reports stopped after Stop")

	time.Sleep(50 * time.Millisecond)
	unittest.ExpectEquals(t, p.blocks.Load(), blocksAtStop, "no blocks after Stop returned")

	d.Stop() // idempotent
	t.Expect(p.stopped.Load() == 1, "repeated Stop does not re-deliver Stopped")
	t.Expect(d.IsOpen(), "Stop leaves the device open")

	t.Begin("restart")
	p2 := &probe{wantOut: setup.OutputChannels.Count(), wantIn: setup.InputChannels.Count()}
	if err := d.Start(p2); err != nil {
		t.Expectf(false, "restart after Stop failed: %v", err)
		return
	}
	t.Expect(p2.waitForBlocks(1, 5*time.Second), "callback runs again after restart")
	d.Stop()
}

func (s *Suite) checkClose(t *unittest.T, d device.Device) {
	t.Begin("close")

	p := &probe{wantOut: -1, wantIn: -1}
	if err := d.Start(p); err == nil {
		t.Expect(d.Close() == nil, "close while playing succeeds")
		t.Expect(p.stopped.Load() == 1, "Close stops the stream first")
	} else {
		t.Expect(d.Close() == nil, "close succeeds")
	}
	t.Expect(!d.IsOpen(), "device reports closed after Close")
	t.Expect(!d.IsPlaying(), "device not playing after Close")
	t.Expect(d.Close() == nil, "second close is a no-op")
}

// probe is a Callback that records lifecycle ordering and block shapes.
type probe struct {
	wantOut int // -1 skips shape checks
	wantIn  int

	started      atomic.Int32
	stopped      atomic.Int32
	blocks       atomic.Int64
	startedFirst atomic.Bool
	shapeOK      atomic.Bool
}

func (p *probe) AboutToStart(device.Device) {
	p.started.Add(1)
	p.shapeOK.Store(true)
}

func (p *probe) ProcessBlock(in, out [][]int32, frames int) {
	if p.blocks.Load() == 0 {
		p.startedFirst.Store(p.started.Load() > 0)
	}
	if p.wantOut >= 0 && (len(out) != p.wantOut || len(in) != p.wantIn || frames <= 0) {
		p.shapeOK.Store(false)
	}
	p.blocks.Add(1)
}

func (p *probe) Stopped() {
	p.stopped.Add(1)
}

func (p *probe) waitForBlocks(n int64, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if p.blocks.Load() >= n {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return p.blocks.Load() >= n
}
