// ABOUTME: Device manager owning the current device and its callbacks
// ABOUTME: Fans one device out to many callbacks and restarts on setup changes
package manager

import (
	"fmt"
	"log"
	"sync"

	"github.com/openduplex/duplex-go/pkg/audio"
	"github.com/openduplex/duplex-go/pkg/device"
)

// Manager owns at most one open device and shares it between any number
// of callbacks. Callbacks can come and go while the device runs; setup
// changes restart the device transparently.
type Manager struct {
	registry *device.Registry

	mu         sync.Mutex
	current    device.Device
	typeName   string
	deviceName string
	setup      device.Setup
	running    bool

	dispatcher *dispatcher
	levels     *LevelMeter
}

// New creates a manager resolving device names through reg. A nil reg
// uses the process-wide registry.
func New(reg *device.Registry) *Manager {
	m := &Manager{
		registry: reg,
		levels:   NewLevelMeter(0.85),
	}
	m.dispatcher = newDispatcher(m.levels)
	return m
}

// CurrentDevice returns the open device, or nil.
func (m *Manager) CurrentDevice() device.Device {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// CurrentSetup returns the effective setup of the open device.
func (m *Manager) CurrentSetup() device.Setup {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		return m.current.CurrentSetup()
	}
	return m.setup
}

// Levels returns the per-channel output peak meter.
func (m *Manager) Levels() *LevelMeter { return m.levels }

// SetDevice closes any current device, creates typeName/deviceName from
// the registry and opens it with setup. If the manager was running, the
// new device starts immediately.
func (m *Manager) SetDevice(typeName, deviceName string, setup device.Setup) error {
	d, err := m.create(typeName, deviceName)
	if err != nil {
		return err
	}
	if err := d.Open(setup); err != nil {
		return fmt.Errorf("open %s/%s: %w", typeName, deviceName, err)
	}

	m.mu.Lock()
	old, wasRunning := m.current, m.running
	m.current = d
	m.typeName = typeName
	m.deviceName = d.Name()
	m.setup = d.CurrentSetup()
	m.mu.Unlock()

	if old != nil {
		old.Close()
	}
	log.Printf("device set: %s/%s at %gHz", typeName, d.Name(), d.CurrentSetup().SampleRate)

	if wasRunning {
		return m.Start()
	}
	return nil
}

func (m *Manager) create(typeName, deviceName string) (device.Device, error) {
	if m.registry != nil {
		return m.registry.Create(typeName, deviceName)
	}
	return device.Create(typeName, deviceName)
}

// SetSetup reopens the current device with a new setup, restarting the
// stream if it was running.
func (m *Manager) SetSetup(setup device.Setup) error {
	m.mu.Lock()
	d, wasRunning := m.current, m.running
	m.mu.Unlock()

	if d == nil {
		return device.ErrNotOpen
	}

	d.Stop()
	if err := d.Open(setup); err != nil {
		return fmt.Errorf("reopen with new setup: %w", err)
	}

	m.mu.Lock()
	m.setup = d.CurrentSetup()
	m.mu.Unlock()

	if wasRunning {
		return m.Start()
	}
	return nil
}

// AddCallback registers cb. If the device is already running, cb gets
// AboutToStart right away and joins the stream on the next block.
func (m *Manager) AddCallback(cb device.Callback) {
	m.mu.Lock()
	d, running := m.current, m.running
	m.mu.Unlock()

	if running && d != nil {
		cb.AboutToStart(d)
	}
	m.dispatcher.add(cb)
}

// RemoveCallback unregisters cb, waiting for any block it is still
// processing. If the device is running, cb receives Stopped once it is
// guaranteed not to be called again. Must not be called from within a
// callback.
func (m *Manager) RemoveCallback(cb device.Callback) {
	removed := m.dispatcher.remove(cb)

	m.mu.Lock()
	running := m.running
	m.mu.Unlock()

	if removed && running {
		cb.Stopped()
	}
}

// Start opens the stream, feeding all registered callbacks.
func (m *Manager) Start() error {
	m.mu.Lock()
	d := m.current
	m.mu.Unlock()

	if d == nil {
		return device.ErrNotOpen
	}
	if d.IsPlaying() {
		return nil
	}
	if err := d.Start(m.dispatcher); err != nil {
		return err
	}

	m.mu.Lock()
	m.running = true
	m.mu.Unlock()
	return nil
}

// Stop halts the stream. Registered callbacks all receive Stopped.
func (m *Manager) Stop() {
	m.mu.Lock()
	d := m.current
	m.running = false
	m.mu.Unlock()

	if d != nil {
		d.Stop()
	}
}

// Close stops and closes the device. The manager can be reused with
// SetDevice afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	d := m.current
	m.current = nil
	m.running = false
	m.mu.Unlock()

	if d != nil {
		return d.Close()
	}
	return nil
}

// dispatcher is the single device.Callback handed to the device. It
// fans blocks out to every registered callback, mixing their outputs
// with 24-bit saturation, and feeds the level meter.
type dispatcher struct {
	mu      sync.RWMutex
	targets []device.Callback
	scratch [][]int32
	levels  *LevelMeter
	dev     device.Device

	// dispatchMu is held for the duration of every fan-out so that
	// remove can wait for an in-flight block before its caller tells
	// the callback it has stopped.
	dispatchMu sync.Mutex
}

func newDispatcher(levels *LevelMeter) *dispatcher {
	return &dispatcher{levels: levels}
}

func (f *dispatcher) add(cb device.Callback) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.targets = append(f.targets, cb)
}

// remove unregisters cb and then waits for any fan-out that may still
// hold a snapshot containing it. Once remove returns, cb will not be
// called again. Must not be called from the streaming goroutine.
func (f *dispatcher) remove(cb device.Callback) bool {
	f.mu.Lock()
	removed := false
	for i, t := range f.targets {
		if t == cb {
			f.targets = append(f.targets[:i], f.targets[i+1:]...)
			removed = true
			break
		}
	}
	f.mu.Unlock()

	if removed {
		f.dispatchMu.Lock()
		f.dispatchMu.Unlock()
	}
	return removed
}

func (f *dispatcher) AboutToStart(d device.Device) {
	f.dispatchMu.Lock()
	defer f.dispatchMu.Unlock()

	f.mu.Lock()
	f.dev = d
	targets := append([]device.Callback(nil), f.targets...)
	f.mu.Unlock()

	for _, t := range targets {
		t.AboutToStart(d)
	}
}

func (f *dispatcher) ProcessBlock(in, out [][]int32, frames int) {
	f.dispatchMu.Lock()
	defer f.dispatchMu.Unlock()

	f.mu.RLock()
	targets := append([]device.Callback(nil), f.targets...)
	f.mu.RUnlock()

	if len(targets) > 0 {
		// First callback renders straight into the device block.
		targets[0].ProcessBlock(in, out, frames)

		// Later callbacks render into scratch and are mixed in.
		if len(targets) > 1 {
			f.ensureScratch(len(out), frames)
			for _, t := range targets[1:] {
				zeroBlocks(f.scratch)
				t.ProcessBlock(in, f.scratch, frames)
				for ch := range out {
					for i := 0; i < frames; i++ {
						out[ch][i] = audio.Clamp24(int64(out[ch][i]) + int64(f.scratch[ch][i]))
					}
				}
			}
		}
	}

	if f.levels != nil {
		f.levels.Process(out, frames)
	}
}

func (f *dispatcher) Stopped() {
	f.dispatchMu.Lock()
	defer f.dispatchMu.Unlock()

	f.mu.RLock()
	targets := append([]device.Callback(nil), f.targets...)
	f.mu.RUnlock()

	for _, t := range targets {
		t.Stopped()
	}
}

func (f *dispatcher) DeviceError(err error) {
	f.dispatchMu.Lock()
	defer f.dispatchMu.Unlock()

	f.mu.RLock()
	targets := append([]device.Callback(nil), f.targets...)
	f.mu.RUnlock()

	for _, t := range targets {
		if reporter, ok := t.(device.ErrorReporter); ok {
			reporter.DeviceError(err)
		}
	}
}

func (f *dispatcher) ensureScratch(channels, frames int) {
	if len(f.scratch) != channels || (channels > 0 && len(f.scratch[0]) < frames) {
		f.scratch = make([][]int32, channels)
		for ch := range f.scratch {
			f.scratch[ch] = make([]int32, frames)
		}
	}
}

func zeroBlocks(blocks [][]int32) {
	for _, b := range blocks {
		for i := range b {
			b[i] = 0
		}
	}
}
