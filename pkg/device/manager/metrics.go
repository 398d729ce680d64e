// ABOUTME: Prometheus collector for device streaming counters
// ABOUTME: Exposes callbacks, frames, underruns and playing state per device
package manager

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/openduplex/duplex-go/pkg/device"
)

const namespace = "duplex"

var deviceLabelNames = []string{"device", "type"}

func newDeviceMetric(metricName, docString string) *prometheus.Desc {
	return prometheus.NewDesc(prometheus.BuildFQName(namespace, "device", metricName), docString, deviceLabelNames, nil)
}

var (
	callbacksMetric = newDeviceMetric("callbacks_total", "Number of callback invocations since the device started.")
	framesMetric    = newDeviceMetric("frames_total", "Number of audio frames streamed.")
	underrunsMetric = newDeviceMetric("underruns_total", "Number of blocks the backend had to fill with silence.")
	playingMetric   = newDeviceMetric("playing", "Whether the device is currently streaming.")
	rateMetric      = newDeviceMetric("sample_rate_hz", "Sample rate the device is open with.")
	bufferMetric    = newDeviceMetric("buffer_size_frames", "Buffer size the device is open with.")
)

// statsProvider is implemented by backends built on device.Pump.
type statsProvider interface {
	Stats() device.PumpStats
}

// Collector exports the manager's current device as prometheus metrics.
// Register it with prometheus.MustRegister.
type Collector struct {
	manager *Manager
}

// NewCollector creates a collector bound to m.
func NewCollector(m *Manager) *Collector { return &Collector{manager: m} }

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- callbacksMetric
	ch <- framesMetric
	ch <- underrunsMetric
	ch <- playingMetric
	ch <- rateMetric
	ch <- bufferMetric
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	d := c.manager.CurrentDevice()
	if d == nil {
		return
	}
	labels := []string{d.Name(), d.TypeName()}

	playing := 0.0
	if d.IsPlaying() {
		playing = 1.0
	}
	setup := d.CurrentSetup()
	ch <- prometheus.MustNewConstMetric(playingMetric, prometheus.GaugeValue, playing, labels...)
	ch <- prometheus.MustNewConstMetric(rateMetric, prometheus.GaugeValue, setup.SampleRate, labels...)
	ch <- prometheus.MustNewConstMetric(bufferMetric, prometheus.GaugeValue, float64(setup.BufferSize), labels...)

	if sp, ok := d.(statsProvider); ok {
		stats := sp.Stats()
		ch <- prometheus.MustNewConstMetric(callbacksMetric, prometheus.CounterValue, float64(stats.Callbacks), labels...)
		ch <- prometheus.MustNewConstMetric(framesMetric, prometheus.CounterValue, float64(stats.Frames), labels...)
		ch <- prometheus.MustNewConstMetric(underrunsMetric, prometheus.CounterValue, float64(stats.Underruns), labels...)
	}
}
