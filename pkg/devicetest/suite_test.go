// ABOUTME: Runs the compliance suite against the null backend
// ABOUTME: Keeps the suite itself honest with a deliberately broken device
package devicetest

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/openduplex/duplex-go/pkg/device"
	"github.com/openduplex/duplex-go/pkg/device/nulldev"
	"github.com/openduplex/duplex-go/pkg/device/wavdev"
	"github.com/openduplex/duplex-go/pkg/unittest"
)

func runSuite(t *testing.T, s *Suite) *unittest.Runner {
	t.Helper()
	r := &unittest.Runner{Seed: 1, Log: func(format string, args ...any) {
		t.Logf(format, args...)
	}}
	r.RunSuites([]unittest.Suite{s})
	return r
}

func TestNullDevicePasses(t *testing.T) {
	s := NewSuite("null", func() (device.Device, error) {
		return nulldev.New(nulldev.Config{Inputs: 2, Loopback: true}), nil
	})

	r := runSuite(t, s)
	if r.Failures() != 0 {
		for _, res := range r.Results() {
			for _, msg := range res.Messages {
				t.Errorf("%s / %s: %s", res.SuiteName, res.Section, msg)
			}
		}
	}
}

func TestNullDeviceOutputOnlyPasses(t *testing.T) {
	s := NewSuite("null out", func() (device.Device, error) {
		return nulldev.New(nulldev.Config{}), nil
	})
	if r := runSuite(t, s); r.Failures() != 0 {
		t.Errorf("expected a clean run, got %d failures", r.Failures())
	}
}

func TestWavRenderDevicePasses(t *testing.T) {
	out := filepath.Join(t.TempDir(), "compliance.wav")
	s := NewSuite("wav render", func() (device.Device, error) {
		return wavdev.New(wavdev.Config{OutputPath: out}), nil
	})
	if r := runSuite(t, s); r.Failures() != 0 {
		for _, res := range r.Results() {
			for _, msg := range res.Messages {
				t.Errorf("%s / %s: %s", res.SuiteName, res.Section, msg)
			}
		}
	}
}

// brokenDevice claims to be playing while closed, which the suite must catch.
type brokenDevice struct {
	*nulldev.Device
}

func (b *brokenDevice) IsPlaying() bool { return true }

func TestSuiteCatchesViolations(t *testing.T) {
	s := NewSuite("broken", func() (device.Device, error) {
		return &brokenDevice{Device: nulldev.New(nulldev.Config{})}, nil
	})

	r := runSuite(t, s)
	if r.Failures() == 0 {
		t.Fatal("expected the suite to flag a device that is always playing")
	}
	found := false
	for _, res := range r.Results() {
		for _, msg := range res.Messages {
			if strings.Contains(msg, "stopped") {
				found = true
			}
		}
	}
	if !found {
		t.Errorf("expected a stopped-state failure, got %v", r.Results())
	}
}

func TestSuiteCategory(t *testing.T) {
	s := NewSuite("null", nil)
	if s.Category() != "devices" {
		t.Errorf("unexpected category %q", s.Category())
	}
	if s.Name() != "null device compliance" {
		t.Errorf("unexpected name %q", s.Name())
	}
}
