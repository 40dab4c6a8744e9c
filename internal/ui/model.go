// ABOUTME: Bubbletea model for the daemon status TUI
// ABOUTME: Read-only view of playback, system volume and capture state
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const boxWidth = 54

// Model represents the TUI state
type Model struct {
	// Asset
	asset      string
	codec      string
	sampleRate int
	channels   int
	duration   time.Duration

	// Playback
	playing    bool
	selfOutput bool
	offset     int
	assetBytes int

	// Detection
	volume    float64
	threshold float64
	state     string
	dropped   int64

	// Capture
	backendConnected bool
	attached         bool
	source           string
	attachFailures   int

	showDebug bool
	quit      chan<- struct{}

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
	case AssetMsg:
		m.asset = msg.Name
		m.codec = msg.Codec
		m.sampleRate = msg.SampleRate
		m.channels = msg.Channels
		m.duration = msg.Duration
		m.assetBytes = msg.Bytes
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := m.renderHeader()
	s += m.renderAsset()
	s += m.renderDetection()
	s += m.renderCapture()

	if m.showDebug {
		s += m.renderDebug()
	}

	s += m.renderHelp()
	return s
}

func (m Model) renderHeader() string {
	state := "Paused"
	if m.playing {
		state = "Playing"
	}
	return "┌─ Ambient ────────────────────────────────────────────┐\n" +
		line(fmt.Sprintf("Status: %s", state)) +
		"├──────────────────────────────────────────────────────┤\n"
}

func (m Model) renderAsset() string {
	if m.asset == "" {
		return line("No asset")
	}

	s := line(fmt.Sprintf("Asset:  %s", truncate(m.asset, boxWidth-10)))
	s += line(fmt.Sprintf("Format: %s %dHz %s", m.codec, m.sampleRate, channelName(m.channels)))
	s += line(fmt.Sprintf("Loop:   [%s] %s", renderBar(m.offset, m.assetBytes, 20), m.duration.Round(time.Second)))
	return s
}

// renderDetection shows the smoothed volume against the threshold
func (m Model) renderDetection() string {
	scale := m.threshold * 4
	if scale <= 0 {
		scale = 0.064
	}
	level := int(m.volume / scale * 1000)

	s := line("")
	s += line(fmt.Sprintf("System: [%s] %.4f", renderBar(level, 1000, 20), m.volume))
	s += line(fmt.Sprintf("Thresh: %.4f  State: %s", m.threshold, m.state))
	return s
}

func (m Model) renderCapture() string {
	var capture string
	switch {
	case !m.backendConnected:
		capture = "backend unavailable"
	case m.attached:
		capture = truncate(m.source, boxWidth-10)
	default:
		capture = fmt.Sprintf("detached (%d failures)", m.attachFailures)
	}

	return "├──────────────────────────────────────────────────────┤\n" +
		line(fmt.Sprintf("Capture: %s", capture))
}

func (m Model) renderDebug() string {
	return line("DEBUG:") +
		line(fmt.Sprintf("  Self output: %v", m.selfOutput)) +
		line(fmt.Sprintf("  Offset: %d / %d bytes", m.offset, m.assetBytes)) +
		line(fmt.Sprintf("  Dropped frames: %d", m.dropped))
}

func (m Model) renderHelp() string {
	return line("d:Debug  q:Quit") +
		"└──────────────────────────────────────────────────────┘\n"
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.quit != nil {
			select {
			case m.quit <- struct{}{}:
			default:
			}
		}
		return m, tea.Quit
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

func (m *Model) applyStatus(msg StatusMsg) {
	m.playing = msg.Playing
	m.selfOutput = msg.SelfOutput
	m.offset = msg.Offset
	m.volume = msg.Volume
	m.state = msg.State
	m.dropped = msg.Dropped
	m.backendConnected = msg.BackendConnected
	m.attached = msg.Attached
	m.source = msg.Source
	m.attachFailures = msg.AttachFailures
	if msg.Threshold > 0 {
		m.threshold = msg.Threshold
	}
}

// AssetMsg describes the decoded asset; sent once at startup
type AssetMsg struct {
	Name       string
	Codec      string
	SampleRate int
	Channels   int
	Bytes      int
	Duration   time.Duration
}

// StatusMsg carries a periodic status snapshot
type StatusMsg struct {
	Playing          bool
	SelfOutput       bool
	Offset           int
	Volume           float64
	Threshold        float64
	State            string
	Dropped          int64
	BackendConnected bool
	Attached         bool
	Source           string
	AttachFailures   int
}

// line pads text into one box row
func line(text string) string {
	pad := boxWidth - len([]rune(text)) - 2
	if pad < 0 {
		pad = 0
	}
	return "│ " + text + strings.Repeat(" ", pad) + " │\n"
}

func renderBar(value, max, width int) string {
	if max <= 0 {
		return strings.Repeat("░", width)
	}
	filled := (value * width) / max
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func channelName(channels int) string {
	if channels == 1 {
		return "Mono"
	}
	return "Stereo"
}
