// ABOUTME: YAML persistence for the manager's device choice and setup
// ABOUTME: Lets applications restore their audio configuration across runs
package manager

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/openduplex/duplex-go/pkg/device"
)

// State is the persisted form of a manager configuration.
type State struct {
	Type   string       `yaml:"type"`
	Device string       `yaml:"device"`
	Setup  device.Setup `yaml:",inline"`
}

// SaveState writes the manager's current device choice and setup to a
// YAML file.
func (m *Manager) SaveState(path string) error {
	m.mu.Lock()
	state := State{
		Type:   m.typeName,
		Device: m.deviceName,
		Setup:  m.setup,
	}
	m.mu.Unlock()

	if state.Type == "" {
		return device.ErrNotOpen
	}

	data, err := yaml.Marshal(&state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// LoadState reads a YAML state file and applies it with SetDevice.
func (m *Manager) LoadState(path string) error {
	state, err := ReadState(path)
	if err != nil {
		return err
	}
	return m.SetDevice(state.Type, state.Device, state.Setup)
}

// ReadState parses a state file without applying it.
func ReadState(path string) (State, error) {
	var state State
	data, err := os.ReadFile(path)
	if err != nil {
		return state, fmt.Errorf("read state: %w", err)
	}
	if err := yaml.Unmarshal(data, &state); err != nil {
		return state, fmt.Errorf("parse state: %w", err)
	}
	if state.Type == "" {
		return state, fmt.Errorf("state file %s has no device type", path)
	}
	return state, nil
}
