// ABOUTME: Tests for the prometheus collector
// ABOUTME: Verifies metric emission for open and absent devices
package manager

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/openduplex/duplex-go/pkg/device"
	"github.com/openduplex/duplex-go/pkg/device/nulldev"
)

func collect(c prometheus.Collector) []prometheus.Metric {
	ch := make(chan prometheus.Metric, 32)
	c.Collect(ch)
	close(ch)
	var out []prometheus.Metric
	for m := range ch {
		out = append(out, m)
	}
	return out
}

func TestCollectorNoDevice(t *testing.T) {
	m := New(testRegistry())
	c := NewCollector(m)

	if got := collect(c); len(got) != 0 {
		t.Errorf("expected no metrics without a device, got %d", len(got))
	}
}

func TestCollectorWithDevice(t *testing.T) {
	m := New(testRegistry())
	if err := m.SetDevice(nulldev.TypeName, "", device.Setup{
		OutputChannels: device.Stereo(),
		SampleRate:     48000,
		BufferSize:     256,
	}); err != nil {
		t.Fatalf("SetDevice failed: %v", err)
	}
	defer m.Close()

	c := NewCollector(m)

	descs := make(chan *prometheus.Desc, 16)
	c.Describe(descs)
	close(descs)
	nDescs := 0
	for range descs {
		nDescs++
	}
	if nDescs != 6 {
		t.Errorf("expected 6 descriptors, got %d", nDescs)
	}

	// Null device exposes pump stats, so all six metrics appear.
	if got := collect(c); len(got) != 6 {
		t.Errorf("expected 6 metrics, got %d", len(got))
	}
}
