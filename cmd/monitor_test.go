// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/Thermoquad/beacon/pkg/beam"
	tea "github.com/charmbracelet/bubbletea"
)

func newTestMonitor() (monitorModel, *bufferConn) {
	conn := &bufferConn{}
	cm := &connectionManager{conn: conn, connInfo: "test", done: make(chan struct{})}
	return initialMonitorModel(cm, "test", 0), conn
}

func lineMsg(text string) monitorLineMsg {
	return decodeLineEvent(lineEvent{line: beam.NewLine(text)})
}

func update(t *testing.T, m monitorModel, msg tea.Msg) monitorModel {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(monitorModel)
}

func TestMonitorAppliesStatus(t *testing.T) {
	m, _ := newTestMonitor()

	status := `{"type":"status","uptime_ms":5000,"free_heap_bytes":1000,"total_heap_bytes":2000,` +
		`"laser_state":true,"laser_brightness":50,"laser_pwm_value":128,"analog_a0":2048,` +
		`"voltage_a0":1.65,"cpu_freq_mhz":240,"timestamp":"0:00:05","version":"5.1","heartbeat_enabled":true}`

	m = update(t, m, monitorBatchMsg{lines: []monitorLineMsg{lineMsg(status)}})

	if m.state == nil {
		t.Fatal("state not set")
	}
	if !m.state.laserOn || m.state.brightness != 50 || m.state.pwm != 128 {
		t.Errorf("got laser=%v brightness=%d pwm=%d", m.state.laserOn, m.state.brightness, m.state.pwm)
	}
	if m.state.analog != 2048 || m.state.voltage != 1.65 || m.state.totalHeap != 2000 {
		t.Errorf("got analog=%d voltage=%v total=%d", m.state.analog, m.state.voltage, m.state.totalHeap)
	}
	if m.stats.Statuses != 1 || m.stats.ValidMessages != 1 {
		t.Errorf("got statuses=%d valid=%d", m.stats.Statuses, m.stats.ValidMessages)
	}
}

func TestMonitorLogsTextAndAnomalies(t *testing.T) {
	m, _ := newTestMonitor()

	bad := `{"type":"initial_state","laser_state":false,"laser_brightness":150,"version":"5.1","uptime_ms":10,"free_heap_bytes":1}`
	m = update(t, m, monitorBatchMsg{lines: []monitorLineMsg{
		lineMsg("Laser ON"),
		lineMsg(bad),
		lineMsg(`{"type":"bogus"}`),
	}})

	var messages []string
	errorCount := 0
	for _, entry := range m.eventLog {
		messages = append(messages, entry.message)
		if entry.isError {
			errorCount++
		}
	}

	joined := strings.Join(messages, "\n")
	if !strings.Contains(joined, "Laser ON") {
		t.Errorf("text reply missing from log:\n%s", joined)
	}
	if errorCount != 2 {
		t.Errorf("got %d error entries, want 2 (anomaly, decode):\n%s", errorCount, joined)
	}
	if m.stats.AnomalousValues != 1 || m.stats.DecodeErrors != 1 || m.stats.TextLines != 1 {
		t.Errorf("got anomalous=%d decode=%d text=%d", m.stats.AnomalousValues, m.stats.DecodeErrors, m.stats.TextLines)
	}
}

func TestMonitorDetectsReboot(t *testing.T) {
	m, _ := newTestMonitor()

	hb := func(uptime string) monitorLineMsg {
		return lineMsg(`{"type":"heartbeat","uptime_ms":` + uptime + `,"free_heap_bytes":1,` +
			`"laser_state":false,"laser_brightness":50,"timestamp":"0:00:00","version":"5.1"}`)
	}

	m = update(t, m, hb("900"))
	m = update(t, m, hb("100"))

	if m.stats.Reboots != 1 {
		t.Errorf("got %d reboots, want 1", m.stats.Reboots)
	}
}

func TestMonitorEnterSendsCommand(t *testing.T) {
	m, conn := newTestMonitor()

	m.input.SetValue("LASER_ON")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if conn.String() != "LASER_ON\n" {
		t.Errorf("sent %q, want %q", conn.String(), "LASER_ON\n")
	}
	if m.input.Value() != "" {
		t.Errorf("input not cleared: %q", m.input.Value())
	}
	if len(m.history) != 1 || m.history[0] != "LASER_ON" {
		t.Errorf("history = %q", m.history)
	}
}

func TestMonitorBrightnessKeys(t *testing.T) {
	m, conn := newTestMonitor()

	// Unknown brightness: nothing is sent
	m = update(t, m, tea.KeyMsg{Type: tea.KeyPgUp})
	if conn.String() != "" {
		t.Fatalf("sent %q before state was known", conn.String())
	}

	m = update(t, m, lineMsg(`{"type":"initial_state","laser_state":true,"laser_brightness":95,"version":"5.1","uptime_ms":1,"free_heap_bytes":1}`))
	m = update(t, m, tea.KeyMsg{Type: tea.KeyPgUp})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyPgDown})

	want := "SET_LASER_BRIGHTNESS:100\nSET_LASER_BRIGHTNESS:85\n"
	if conn.String() != want {
		t.Errorf("sent %q, want %q", conn.String(), want)
	}
}

func TestMonitorHistoryRecall(t *testing.T) {
	m, _ := newTestMonitor()

	for _, c := range []string{"STATUS", "VERSION"} {
		m.input.SetValue(c)
		m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	if m.input.Value() != "VERSION" {
		t.Errorf("got %q, want VERSION", m.input.Value())
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	if m.input.Value() != "STATUS" {
		t.Errorf("got %q, want STATUS", m.input.Value())
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if m.input.Value() != "" {
		t.Errorf("got %q, want empty input past newest entry", m.input.Value())
	}
}

func TestMonitorRefusesSendWhileDisconnected(t *testing.T) {
	m, conn := newTestMonitor()

	m = update(t, m, connectionLostMsg{})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})

	if conn.String() != "" {
		t.Errorf("sent %q while disconnected", conn.String())
	}

	m = update(t, m, reconnectedMsg{connInfo: "again"})
	if m.connectionLost || m.connInfo != "again" {
		t.Errorf("reconnect not applied: lost=%v info=%q", m.connectionLost, m.connInfo)
	}
}

func TestMonitorViewRenders(t *testing.T) {
	m, _ := newTestMonitor()
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})

	view := m.View()
	for _, want := range []string{"BEACON MONITOR", "Waiting for controller state", "EVENTS"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	m = update(t, m, lineMsg(`{"type":"initial_state","laser_state":true,"laser_brightness":50,"version":"5.1","uptime_ms":3661000,"free_heap_bytes":1}`))
	view = m.View()
	if !strings.Contains(view, "ON") || !strings.Contains(view, "50%") {
		t.Errorf("view missing laser state:\n%s", view)
	}
}

func TestBrightnessBar(t *testing.T) {
	tests := []struct {
		pct    int
		filled int
	}{
		{0, 0},
		{50, 10},
		{100, 20},
		{150, 20},
	}
	for _, tt := range tests {
		bar := brightnessBar(tt.pct, 20)
		if got := strings.Count(bar, "█"); got != tt.filled {
			t.Errorf("brightnessBar(%d) filled %d, want %d", tt.pct, got, tt.filled)
		}
		if got := len([]rune(bar)); got != 20 {
			t.Errorf("brightnessBar(%d) width %d, want 20", tt.pct, got)
		}
	}
}

func TestMonitorTickPolls(t *testing.T) {
	m, conn := newTestMonitor()
	m.pollInterval = time.Millisecond
	m.lastPoll = time.Now().Add(-time.Second)

	m = update(t, m, monitorTickMsg(time.Now()))

	if conn.String() != "STATUS\n" {
		t.Errorf("sent %q, want STATUS poll", conn.String())
	}
}
