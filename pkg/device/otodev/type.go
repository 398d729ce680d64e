// ABOUTME: Registry Type for the oto backend
// ABOUTME: Exposes the system default output as a single device
package otodev

import (
	"fmt"

	"github.com/openduplex/duplex-go/pkg/device"
)

// Type enumerates oto devices. oto only ever sees the system default.
type Type struct{}

// NewType creates the oto backend Type.
func NewType() *Type { return &Type{} }

func (t *Type) TypeName() string        { return TypeName }
func (t *Type) ScanForDevices() error   { return nil }
func (t *Type) DeviceNames() []string   { return []string{DefaultDeviceName} }
func (t *Type) DefaultDeviceIndex() int { return 0 }

func (t *Type) Create(name string) (device.Device, error) {
	if name != DefaultDeviceName {
		return nil, fmt.Errorf("%w: %q", device.ErrUnknownDevice, name)
	}
	return New(), nil
}
