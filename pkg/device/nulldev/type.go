// ABOUTME: Registry Type for the null backend
// ABOUTME: Exposes a single always-available virtual device
package nulldev

import (
	"fmt"

	"github.com/openduplex/duplex-go/pkg/device"
)

// Type enumerates null devices. There is always exactly one.
type Type struct {
	cfg Config
}

// NewType creates a Type whose devices use cfg as their template.
func NewType(cfg Config) *Type { return &Type{cfg: cfg} }

func (t *Type) TypeName() string        { return TypeName }
func (t *Type) ScanForDevices() error   { return nil }
func (t *Type) DefaultDeviceIndex() int { return 0 }

func (t *Type) DeviceNames() []string {
	name := t.cfg.Name
	if name == "" {
		name = DefaultDeviceName
	}
	return []string{name}
}

// Create builds the null device. Only the scanned name is accepted.
func (t *Type) Create(name string) (device.Device, error) {
	if name != t.DeviceNames()[0] {
		return nil, fmt.Errorf("%w: %q", device.ErrUnknownDevice, name)
	}
	return New(t.cfg), nil
}
