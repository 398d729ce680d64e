// ABOUTME: Bubbletea model for the device monitor TUI
// ABOUTME: Defines application state and update logic
package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Model represents the monitor state
type Model struct {
	// Device
	deviceName string
	typeName   string
	open       bool
	playing    bool

	// Format
	sampleRate float64
	bufferSize int
	bitDepth   int
	inputs     int
	outputs    int

	// Stats
	callbacks int64
	frames    int64
	underruns int64

	// Levels, one entry per output channel, 0..1
	levels []float64

	// Last streaming error
	lastError string

	// Debug
	showDebug bool

	// Dimensions
	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the monitor
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderFormat()
	s += m.renderLevels()
	s += m.renderStats()

	if m.showDebug {
		s += m.renderDebug()
	}

	s += m.renderHelp()

	return s
}

// renderHeader renders device identity and state
func (m Model) renderHeader() string {
	state := "Closed"
	if m.playing {
		state = "Playing"
	} else if m.open {
		state = "Open"
	}

	name := "(no device)"
	if m.deviceName != "" {
		name = fmt.Sprintf("%s [%s]", truncate(m.deviceName, 32), m.typeName)
	}

	return fmt.Sprintf(`┌─ Duplex Monitor ─────────────────────────────────────┐
│ Device: %-45s │
│ State:  %-45s │
├──────────────────────────────────────────────────────┤
`, name, state)
}

// renderFormat renders the active stream format
func (m Model) renderFormat() string {
	if !m.open {
		return "│ Not open                                             │\n"
	}

	return fmt.Sprintf("│ Format: %gHz, %d frames, %d-bit%-21s │\n"+
		"│ Channels: %d in, %d out%-31s │\n",
		m.sampleRate, m.bufferSize, m.bitDepth, "",
		m.inputs, m.outputs, "")
}

// renderLevels renders one bar per output channel
func (m Model) renderLevels() string {
	if len(m.levels) == 0 {
		return "│                                                      │\n"
	}

	s := "│                                                      │\n"
	for i, level := range m.levels {
		bar := renderBar(int(level*100), 100, 30)
		s += fmt.Sprintf("│ Out %2d: [%s] %3.0f%%%-6s │\n", i, bar, level*100, "")
	}
	return s
}

// renderStats renders streaming counters
func (m Model) renderStats() string {
	errLine := ""
	if m.lastError != "" {
		errLine = fmt.Sprintf("│ Error: %-45s │\n", truncate(m.lastError, 45))
	}

	return fmt.Sprintf(`├──────────────────────────────────────────────────────┤
│ Blocks: %d  Frames: %d  Underruns: %d%-10s │
`, m.callbacks, m.frames, m.underruns, "") + errLine
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return `│ d:Debug  q:Quit                                      │
└──────────────────────────────────────────────────────┘
`
}

// renderDebug renders raw counters
func (m Model) renderDebug() string {
	return fmt.Sprintf(`│ DEBUG:                                               │
│   width=%d height=%d levels=%d                       │
`, m.width, m.height, len(m.levels))
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.DeviceName != "" {
		m.deviceName = msg.DeviceName
		m.typeName = msg.TypeName
	}
	if msg.Open != nil {
		m.open = *msg.Open
	}
	if msg.Playing != nil {
		m.playing = *msg.Playing
	}
	if msg.SampleRate != 0 {
		m.sampleRate = msg.SampleRate
		m.bufferSize = msg.BufferSize
		m.bitDepth = msg.BitDepth
		m.inputs = msg.Inputs
		m.outputs = msg.Outputs
	}
	if msg.Levels != nil {
		m.levels = msg.Levels
	}
	if msg.HasStats {
		m.callbacks = msg.Callbacks
		m.frames = msg.Frames
		m.underruns = msg.Underruns
	}
	if msg.LastError != "" {
		m.lastError = msg.LastError
	}
}

// StatusMsg updates monitor state
type StatusMsg struct {
	DeviceName string
	TypeName   string
	Open       *bool
	Playing    *bool
	SampleRate float64
	BufferSize int
	BitDepth   int
	Inputs     int
	Outputs    int
	Levels     []float64
	HasStats   bool
	Callbacks  int64
	Frames     int64
	Underruns  int64
	LastError  string
}

// Utility functions
func renderBar(value, max, width int) string {
	if value > max {
		value = max
	}
	filled := (value * width) / max
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}
