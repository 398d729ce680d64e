// ABOUTME: mDNS discovery Type for network stream sinks
// ABOUTME: Enumerates _duplex-io._tcp services as creatable devices
package netdev

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/hashicorp/mdns"

	"github.com/openduplex/duplex-go/pkg/device"
)

// ServiceName is the mDNS service sinks advertise under.
const ServiceName = "_duplex-io._tcp"

// Type discovers network sinks via mDNS and creates devices for them.
type Type struct {
	codec   string
	timeout time.Duration

	mu    sync.Mutex
	found []discovered
}

type discovered struct {
	name string
	addr string
}

// NewType creates a discovery type. codec selects what created devices
// will stream (CodecPCM or CodecOpus).
func NewType(codec string) *Type {
	if codec == "" {
		codec = CodecPCM
	}
	return &Type{codec: codec, timeout: time.Second}
}

func (t *Type) TypeName() string { return TypeName }

// ScanForDevices browses mDNS for sinks. Blocks for the scan timeout.
func (t *Type) ScanForDevices() error {
	entries := make(chan *mdns.ServiceEntry, 16)
	var found []discovered

	done := make(chan struct{})
	go func() {
		defer close(done)
		for entry := range entries {
			addr := fmt.Sprintf("%s:%d", entry.AddrV4, entry.Port)
			found = append(found, discovered{name: entry.Name, addr: addr})
			log.Printf("discovered sink %s at %s", entry.Name, addr)
		}
	}()

	params := mdns.DefaultParams(ServiceName)
	params.Entries = entries
	params.Timeout = t.timeout
	params.DisableIPv6 = true
	err := mdns.Query(params)
	close(entries)
	<-done
	if err != nil {
		return fmt.Errorf("mdns query: %w", err)
	}

	t.mu.Lock()
	t.found = found
	t.mu.Unlock()
	return nil
}

func (t *Type) DeviceNames() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, len(t.found))
	for i, d := range t.found {
		names[i] = d.name
	}
	return names
}

func (t *Type) DefaultDeviceIndex() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.found) == 0 {
		return -1
	}
	return 0
}

// Create builds a streaming device for a discovered sink.
func (t *Type) Create(name string) (device.Device, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, d := range t.found {
		if d.name == name {
			return New(Config{Addr: d.addr, Name: d.name, Codec: t.codec}), nil
		}
	}
	return nil, fmt.Errorf("%w: %q", device.ErrUnknownDevice, name)
}

// Advertise announces a sink on the local network so Type scans can find
// it. Returns a shutdown func.
func Advertise(instance string, port int) (func(), error) {
	host, err := mdns.NewMDNSService(instance, ServiceName, "", "", port, nil, []string{"path=" + DefaultPath})
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: host})
	if err != nil {
		return nil, fmt.Errorf("failed to create mdns server: %w", err)
	}
	log.Printf("Advertising mDNS service: %s on port %d (type: %s)", instance, port, ServiceName)
	return func() { server.Shutdown() }, nil
}
