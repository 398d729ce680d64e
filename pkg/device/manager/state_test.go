// ABOUTME: Tests for YAML state persistence
// ABOUTME: Verifies save/load round trips and bad file handling
package manager

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/openduplex/duplex-go/pkg/device"
	"github.com/openduplex/duplex-go/pkg/device/nulldev"
)

func TestSaveStateRequiresDevice(t *testing.T) {
	m := New(testRegistry())
	path := filepath.Join(t.TempDir(), "state.yaml")
	if err := m.SaveState(path); !errors.Is(err, device.ErrNotOpen) {
		t.Errorf("expected ErrNotOpen, got %v", err)
	}
}

func TestStateRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.yaml")

	setup := device.Setup{
		InputChannels:  device.Mono(),
		OutputChannels: device.Stereo(),
		SampleRate:     44100,
		BufferSize:     512,
	}

	m := New(testRegistry())
	if err := m.SetDevice(nulldev.TypeName, "", setup); err != nil {
		t.Fatalf("SetDevice failed: %v", err)
	}
	if err := m.SaveState(path); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}
	m.Close()

	state, err := ReadState(path)
	if err != nil {
		t.Fatalf("ReadState failed: %v", err)
	}
	if state.Type != nulldev.TypeName {
		t.Errorf("expected type %q, got %q", nulldev.TypeName, state.Type)
	}
	if state.Device != nulldev.DefaultDeviceName {
		t.Errorf("expected device %q, got %q", nulldev.DefaultDeviceName, state.Device)
	}
	if state.Setup.SampleRate != 44100 || state.Setup.BufferSize != 512 {
		t.Errorf("setup mangled: %+v", state.Setup)
	}
	if state.Setup.InputChannels != device.Mono() {
		t.Errorf("input mask mangled: %v", state.Setup.InputChannels)
	}

	m2 := New(testRegistry())
	if err := m2.LoadState(path); err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	defer m2.Close()
	got := m2.CurrentSetup()
	if got.SampleRate != 44100 || got.BufferSize != 512 {
		t.Errorf("restored setup wrong: %+v", got)
	}
	if got.OutputChannels != device.Stereo() {
		t.Errorf("restored output mask wrong: %v", got.OutputChannels)
	}
}

func TestReadStateErrors(t *testing.T) {
	if _, err := ReadState(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(bad, []byte(":\n :bad"), 0o644)
	if _, err := ReadState(bad); err == nil {
		t.Error("expected parse error")
	}

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	os.WriteFile(empty, []byte("device: x\n"), 0o644)
	if _, err := ReadState(empty); err == nil {
		t.Error("expected error for missing type")
	}
}
