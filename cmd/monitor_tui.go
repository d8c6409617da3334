// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/beacon/pkg/beam"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	brightnessStep  = 10
	maxHistory      = 50
	brightnessWidth = 20
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// logEntry is one line of the event log
type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// telemetry is the latest controller state seen on the link
type telemetry struct {
	laserOn          bool
	brightness       int
	pwm              int
	hasPWM           bool
	version          string
	uptimeMS         int64
	freeHeap         int64
	totalHeap        int64
	analog           int
	voltage          beam.Volts
	hasAnalog        bool
	cpuMHz           int
	heartbeatEnabled bool
	lastHeartbeat    time.Time
	updated          time.Time
}

// monitorModel is the Bubble Tea model for the monitor TUI
type monitorModel struct {
	connMgr  *connectionManager
	connInfo string

	state    *telemetry
	stats    *beam.Statistics
	eventLog []logEntry
	maxLog   int

	input   textinput.Model
	history []string
	histPos int

	pollInterval time.Duration
	lastPoll     time.Time

	width          int
	height         int
	quitting       bool
	connectionLost bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type monitorTickMsg time.Time

type monitorLineMsg struct {
	line             *beam.Line
	msg              *beam.Message
	decodeErr        error
	overlong         error
	validationErrors []beam.ValidationError
}

type monitorBatchMsg struct {
	lines []monitorLineMsg
}

type connectionLostMsg struct{}

type reconnectedMsg struct {
	connInfo string
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialMonitorModel(connMgr *connectionManager, connInfo string, poll time.Duration) monitorModel {
	ti := textinput.New()
	ti.Placeholder = "STATUS"
	ti.Prompt = "> "
	ti.CharLimit = beam.MaxLineLength
	ti.Width = 40
	ti.Focus()

	return monitorModel{
		connMgr:      connMgr,
		connInfo:     connInfo,
		stats:        beam.NewStatistics(),
		eventLog:     make([]logEntry, 0),
		maxLog:       100,
		input:        ti,
		pollInterval: poll,
		lastPoll:     time.Now(),
		width:        80,
		height:       24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(monitorTickCmd(), textinput.Blink)
}

func monitorTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return monitorTickMsg(t)
	})
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-8, 10)

	case monitorTickMsg:
		m.stats.CalculateRates()
		if m.pollInterval > 0 && !m.connectionLost && time.Since(m.lastPoll) >= m.pollInterval {
			m.lastPoll = time.Now()
			if m.connMgr != nil {
				m.connMgr.send(beam.CmdStatus)
			}
		}
		return m, monitorTickCmd()

	case monitorBatchMsg:
		for _, line := range msg.lines {
			m.processLine(line)
		}

	case monitorLineMsg:
		m.processLine(msg)

	case connectionLostMsg:
		m.connectionLost = true
		m.addLogEntry("Connection lost - reconnecting...", true)

	case reconnectedMsg:
		m.connectionLost = false
		m.connInfo = msg.connInfo
		m.addLogEntry("Reconnected", false)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m monitorModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "enter":
		command := strings.TrimSpace(m.input.Value())
		if command == "" {
			return m, nil
		}
		m.input.SetValue("")
		m.pushHistory(command)
		m.sendCommand(command)
		return m, nil

	case "up":
		m.recallHistory(-1)
		return m, nil

	case "down":
		m.recallHistory(1)
		return m, nil

	case "ctrl+t":
		m.sendCommand(beam.CmdLaserToggle)
		return m, nil

	case "pgup", "pgdown":
		if m.state == nil {
			m.addLogEntry("Brightness unknown; waiting for controller state", true)
			return m, nil
		}
		step := brightnessStep
		if msg.String() == "pgdown" {
			step = -step
		}
		target := beam.Clamp(m.state.brightness+step, beam.BrightnessMin, beam.BrightnessMax)
		m.sendCommand(beam.NewSetBrightness(target).String())
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	// Header
	s.WriteString(titleStyle.Render("BEACON MONITOR"))
	s.WriteString(" ")
	connStatus := m.connInfo
	if m.connectionLost {
		connStatus = warningStyle.Render("RECONNECTING...")
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | Ctrl+T=toggle PgUp/PgDn=brightness Esc=quit", connStatus)))
	s.WriteString("\n\n")

	// Laser | telemetry
	half := max((m.width-6)/2, 30)
	laserPanel := boxStyle.Width(half).Render(m.renderLaserPanel(labelStyle, valueStyle, headerStyle, errorStyle))
	telemetryPanel := boxStyle.Width(half).Render(m.renderTelemetryPanel(labelStyle, valueStyle, headerStyle))
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, laserPanel, " ", telemetryPanel))
	s.WriteString("\n")

	s.WriteString(m.renderStatisticsBar(labelStyle, valueStyle, errorStyle, boxStyle))
	s.WriteString("\n")

	s.WriteString(m.renderEventLog(labelStyle, warningStyle, errorStyle, headerStyle, boxStyle))
	s.WriteString("\n")

	s.WriteString(m.input.View())
	s.WriteString("\n")

	return s.String()
}

//////////////////////////////////////////////////////////////
// View Helpers
//////////////////////////////////////////////////////////////

func (m monitorModel) renderLaserPanel(labelStyle, valueStyle, headerStyle, errorStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(labelStyle.Render("LASER"))
	s.WriteString("\n")

	if m.state == nil {
		s.WriteString(headerStyle.Render("Waiting for controller state..."))
		return s.String()
	}

	stateStyle := headerStyle
	if m.state.laserOn {
		stateStyle = errorStyle
	}
	s.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("State:"), stateStyle.Render(beam.OnOff(m.state.laserOn))))
	s.WriteString(fmt.Sprintf("%s %s %s\n", labelStyle.Render("Brightness:"),
		valueStyle.Render(brightnessBar(m.state.brightness, brightnessWidth)),
		valueStyle.Render(fmt.Sprintf("%d%%", m.state.brightness))))

	pwm := "?"
	if m.state.hasPWM {
		pwm = fmt.Sprintf("%d/%d", m.state.pwm, beam.PWMMax)
	}
	s.WriteString(fmt.Sprintf("%s %s", labelStyle.Render("PWM:"), valueStyle.Render(pwm)))

	return s.String()
}

func (m monitorModel) renderTelemetryPanel(labelStyle, valueStyle, headerStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(labelStyle.Render("TELEMETRY"))
	s.WriteString("\n")

	if m.state == nil {
		s.WriteString(headerStyle.Render("No telemetry data"))
		return s.String()
	}

	uptime := time.Duration(m.state.uptimeMS) * time.Millisecond
	s.WriteString(fmt.Sprintf("%s %s  %s %s\n",
		labelStyle.Render("Uptime:"), valueStyle.Render(beam.FormatUptime(uptime)),
		labelStyle.Render("Firmware:"), valueStyle.Render(m.state.version)))

	heap := fmt.Sprintf("%d", m.state.freeHeap)
	if m.state.totalHeap > 0 {
		heap = fmt.Sprintf("%d/%d", m.state.freeHeap, m.state.totalHeap)
	}
	s.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Free heap:"), valueStyle.Render(heap)))

	if m.state.hasAnalog {
		s.WriteString(fmt.Sprintf("%s %s  %s %s\n",
			labelStyle.Render("A0:"), valueStyle.Render(fmt.Sprintf("%d (%s)", m.state.analog, m.state.voltage)),
			labelStyle.Render("CPU:"), valueStyle.Render(fmt.Sprintf("%d MHz", m.state.cpuMHz))))
	}

	heartbeat := "OFF"
	if m.state.heartbeatEnabled {
		heartbeat = "ON"
		if !m.state.lastHeartbeat.IsZero() {
			heartbeat += fmt.Sprintf(" (last %ds ago)", int(time.Since(m.state.lastHeartbeat).Seconds()))
		}
	}
	s.WriteString(fmt.Sprintf("%s %s", labelStyle.Render("Heartbeat:"), valueStyle.Render(heartbeat)))

	return s.String()
}

func (m monitorModel) renderStatisticsBar(labelStyle, valueStyle, errorStyle, boxStyle lipgloss.Style) string {
	m.stats.CalculateRates()
	var validPercent, errorPercent float64
	if m.stats.TotalLines > 0 {
		validPercent = float64(m.stats.ValidMessages) * 100.0 / float64(m.stats.TotalLines)
		totalErrors := m.stats.DecodeErrors + m.stats.OverlongLines + m.stats.AnomalousValues
		errorPercent = float64(totalErrors) * 100.0 / float64(m.stats.TotalLines)
	}

	errors := valueStyle.Render("0.0%")
	if errorPercent > 0 {
		errors = errorStyle.Render(fmt.Sprintf("%.1f%%", errorPercent))
	}

	content := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s  %s %s",
		labelStyle.Render("Lines:"), valueStyle.Render(fmt.Sprintf("%d", m.stats.TotalLines)),
		labelStyle.Render("Valid:"), valueStyle.Render(fmt.Sprintf("%.1f%%", validPercent)),
		labelStyle.Render("Errors:"), errors,
		labelStyle.Render("Reboots:"), valueStyle.Render(fmt.Sprintf("%d", m.stats.Reboots)),
		labelStyle.Render("Rate:"), valueStyle.Render(fmt.Sprintf("%.1f lines/s", m.stats.LineRate)),
	)

	return boxStyle.Width(max(m.width-4, 20)).Render(content)
}

func (m monitorModel) renderEventLog(labelStyle, warningStyle, errorStyle, headerStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(labelStyle.Render("EVENTS"))
	s.WriteString("\n")

	// Whatever the panels above leave, at least 4 rows
	logHeight := max(m.height-22, 4)
	logHeight = min(logHeight, len(m.eventLog))
	startIdx := len(m.eventLog) - logHeight

	if len(m.eventLog) == 0 {
		s.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			icon := "i"
			style := warningStyle
			if entry.isError {
				icon = "x"
				style = errorStyle
			}
			s.WriteString(fmt.Sprintf("%s %s %s\n",
				headerStyle.Render(entry.timestamp.Format("15:04:05.000")),
				style.Render(icon),
				entry.message))
		}
	}

	return boxStyle.Width(max(m.width-4, 20)).Render(strings.TrimRight(s.String(), "\n"))
}

// brightnessBar renders pct as a bar of width cells
func brightnessBar(pct, width int) string {
	filled := beam.Clamp(pct, 0, 100) * width / 100
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

//////////////////////////////////////////////////////////////
// Data Processing
//////////////////////////////////////////////////////////////

func (m *monitorModel) processLine(msg monitorLineMsg) {
	if msg.overlong != nil {
		m.stats.RecordOverlong()
		m.addLogEntry(fmt.Sprintf("DROPPED: %v", msg.overlong), true)
		return
	}

	if msg.decodeErr != nil {
		m.stats.Update(msg.line, nil, msg.decodeErr, nil)
		m.addLogEntry(fmt.Sprintf("DECODE ERROR: %v", msg.decodeErr), true)
		return
	}

	if msg.msg == nil {
		m.stats.Update(msg.line, nil, nil, nil)
		if text := msg.line.Text(); text != "" {
			m.addLogEntry(text, false)
		}
		return
	}

	before := m.stats.Reboots
	m.stats.Update(msg.line, msg.msg, nil, msg.validationErrors)
	if m.stats.Reboots > before {
		m.addLogEntry("Controller restarted (uptime went backwards)", true)
	}

	for _, err := range msg.validationErrors {
		m.addLogEntry(fmt.Sprintf("%s: %s", msg.msg.Type, err.Message), true)
	}

	m.applyMessage(msg.msg)
}

// applyMessage folds a structured message into the displayed state
func (m *monitorModel) applyMessage(msg *beam.Message) {
	if m.state == nil {
		m.state = &telemetry{}
	}
	t := m.state
	t.laserOn, t.brightness = msg.LaserState()
	t.uptimeMS = msg.Uptime()
	t.updated = time.Now()

	switch {
	case msg.InitialState != nil:
		t.version = msg.InitialState.Version
		t.freeHeap = msg.InitialState.FreeHeapBytes
		// pwm is not reported here; derive it rather than show a stale value
		t.pwm = beam.PWMFromBrightness(t.brightness)
		t.hasPWM = true
		m.addLogEntry(fmt.Sprintf("Initial state: laser %s, brightness %d%%", beam.OnOff(t.laserOn), t.brightness), false)

	case msg.Heartbeat != nil:
		t.version = msg.Heartbeat.Version
		t.freeHeap = msg.Heartbeat.FreeHeapBytes
		t.heartbeatEnabled = true
		t.lastHeartbeat = time.Now()

	case msg.Status != nil:
		st := msg.Status
		t.version = st.Version
		t.freeHeap = st.FreeHeapBytes
		t.totalHeap = st.TotalHeapBytes
		t.pwm = st.LaserPWMValue
		t.hasPWM = true
		t.analog = st.AnalogA0
		t.voltage = st.VoltageA0
		t.hasAnalog = true
		t.cpuMHz = st.CPUFreqMHz
		t.heartbeatEnabled = st.HeartbeatEnabled
	}
}

//////////////////////////////////////////////////////////////
// Commands
//////////////////////////////////////////////////////////////

func (m *monitorModel) sendCommand(command string) {
	if m.connectionLost || m.connMgr == nil {
		m.addLogEntry("Cannot send command: connection lost", true)
		return
	}

	if !beam.ParseCommand(command).Valid() {
		m.addLogEntry(fmt.Sprintf("Unknown command %q (sent anyway)", command), true)
	}

	if err := m.connMgr.send(command); err != nil {
		m.addLogEntry(fmt.Sprintf("Failed to send command: %v", err), true)
		return
	}

	m.addLogEntry("> "+command, false)
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

func (m *monitorModel) addLogEntry(message string, isError bool) {
	m.eventLog = append(m.eventLog, logEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})

	if len(m.eventLog) > m.maxLog {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLog:]
	}
}

func (m *monitorModel) pushHistory(command string) {
	if n := len(m.history); n == 0 || m.history[n-1] != command {
		m.history = append(m.history, command)
	}
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
	m.histPos = len(m.history)
}

// recallHistory moves through previously sent commands; moving past the
// newest entry clears the input
func (m *monitorModel) recallHistory(delta int) {
	if len(m.history) == 0 {
		return
	}
	m.histPos = beam.Clamp(m.histPos+delta, 0, len(m.history))
	if m.histPos == len(m.history) {
		m.input.SetValue("")
		return
	}
	m.input.SetValue(m.history[m.histPos])
	m.input.CursorEnd()
}
