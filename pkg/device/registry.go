// ABOUTME: Backend type registry for device enumeration
// ABOUTME: Types register themselves so callers can scan and create devices by name
package device

import (
	"fmt"
	"sync"
)

// Type represents one backend family (Null, Oto, WAV file, network...).
// A Type enumerates the devices it can see and creates them by name.
type Type interface {
	// TypeName identifies the backend, e.g. "Oto".
	TypeName() string

	// ScanForDevices refreshes the backend's view of available devices.
	// Must be called before DeviceNames.
	ScanForDevices() error

	// DeviceNames lists the devices found by the last scan.
	DeviceNames() []string

	// DefaultDeviceIndex returns the index into DeviceNames to prefer,
	// or -1 when no device is available.
	DefaultDeviceIndex() int

	// Create builds a Device for one of the scanned names.
	Create(name string) (Device, error)
}

// Registry holds a set of backend Types keyed by type name.
type Registry struct {
	mtx   sync.Mutex
	types map[string]Type
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]Type)}
}

// Register adds a Type, replacing any previous Type of the same name.
func (r *Registry) Register(t Type) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	name := t.TypeName()
	if _, exists := r.types[name]; !exists {
		r.order = append(r.order, name)
	}
	r.types[name] = t
}

// Get returns the Type with the given name.
func (r *Registry) Get(name string) (Type, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	t, ok := r.types[name]
	return t, ok
}

// Types returns all registered Types in registration order.
func (r *Registry) Types() []Type {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	out := make([]Type, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.types[name])
	}
	return out
}

// Create scans the named Type and builds one of its devices. An empty
// device name selects the type's default device.
func (r *Registry) Create(typeName, deviceName string) (Device, error) {
	t, ok := r.Get(typeName)
	if !ok {
		return nil, fmt.Errorf("no such device type %q", typeName)
	}
	if err := t.ScanForDevices(); err != nil {
		return nil, fmt.Errorf("scan %s devices: %w", typeName, err)
	}
	if deviceName == "" {
		names := t.DeviceNames()
		idx := t.DefaultDeviceIndex()
		if idx < 0 || idx >= len(names) {
			return nil, fmt.Errorf("%s: %w", typeName, ErrUnknownDevice)
		}
		deviceName = names[idx]
	}
	return t.Create(deviceName)
}

var defaultRegistry = NewRegistry()

// Register adds a Type to the process-wide registry.
func Register(t Type) { defaultRegistry.Register(t) }

// Types returns the process-wide registry's Types.
func Types() []Type { return defaultRegistry.Types() }

// Create builds a device from the process-wide registry.
func Create(typeName, deviceName string) (Device, error) {
	return defaultRegistry.Create(typeName, deviceName)
}
