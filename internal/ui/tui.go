// ABOUTME: TUI initialization and control
// ABOUTME: Wraps bubbletea and polls the device manager for status
package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/openduplex/duplex-go/pkg/device"
	"github.com/openduplex/duplex-go/pkg/device/manager"
)

// NewModel creates a new monitor model
func NewModel() Model {
	return Model{}
}

// Run starts the monitor TUI
func Run() (*tea.Program, error) {
	p := tea.NewProgram(NewModel(), tea.WithAltScreen())
	return p, nil
}

// Watch polls the manager and feeds status into the program until the
// context is cancelled. Call it on its own goroutine after p.Run starts.
func Watch(ctx context.Context, p *tea.Program, m *manager.Manager, interval time.Duration) {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Send(snapshot(m))
		}
	}
}

// snapshot assembles a StatusMsg from the manager's current state
func snapshot(m *manager.Manager) StatusMsg {
	d := m.CurrentDevice()
	if d == nil {
		open, playing := false, false
		return StatusMsg{Open: &open, Playing: &playing}
	}

	open := d.IsOpen()
	playing := d.IsPlaying()
	setup := m.CurrentSetup()

	msg := StatusMsg{
		DeviceName: d.Name(),
		TypeName:   d.TypeName(),
		Open:       &open,
		Playing:    &playing,
		SampleRate: setup.SampleRate,
		BufferSize: setup.BufferSize,
		BitDepth:   d.CurrentBitDepth(),
		Inputs:     setup.InputChannels.Count(),
		Outputs:    setup.OutputChannels.Count(),
		Levels:     m.Levels().Levels(),
	}
	if err := d.LastError(); err != nil {
		msg.LastError = err.Error()
	}
	if sp, ok := d.(interface{ Stats() device.PumpStats }); ok {
		stats := sp.Stats()
		msg.HasStats = true
		msg.Callbacks = stats.Callbacks
		msg.Frames = stats.Frames
		msg.Underruns = stats.Underruns
	}
	return msg
}
