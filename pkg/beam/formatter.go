// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beam

import (
	"fmt"
	"strings"
	"time"
)

// FormatLine formats a received line into a human-readable string.
// Structured lines are expanded field by field; text lines are printed as-is.
func FormatLine(l *Line) string {
	timestamp := l.timestamp.Format("15:04:05.000")

	msg, err := DecodeMessage(l.text)
	if err == ErrNotStructured {
		return fmt.Sprintf("[%s] TEXT %s\n", timestamp, l.text)
	}
	if err != nil {
		return fmt.Sprintf("[%s] INVALID %s\n  error: %v\n", timestamp, l.text, err)
	}

	return fmt.Sprintf("[%s] %s\n", timestamp, strings.ToUpper(string(msg.Type))) + FormatMessage(msg)
}

// FormatMessage formats the fields of a decoded message, one per line
func FormatMessage(m *Message) string {
	switch {
	case m.InitialState != nil:
		s := m.InitialState
		return fmt.Sprintf("  laser=%s brightness=%d%% version=%s\n", OnOff(s.LaserState), s.LaserBrightness, s.Version) +
			fmt.Sprintf("  uptime=%s free_heap=%d\n", FormatClock(time.Duration(s.UptimeMS)*time.Millisecond), s.FreeHeapBytes)
	case m.Heartbeat != nil:
		h := m.Heartbeat
		return fmt.Sprintf("  laser=%s brightness=%d%% version=%s\n", OnOff(h.LaserState), h.LaserBrightness, h.Version) +
			fmt.Sprintf("  uptime=%s (%dms) free_heap=%d\n", h.Timestamp, h.UptimeMS, h.FreeHeapBytes)
	case m.Status != nil:
		s := m.Status
		return fmt.Sprintf("  laser=%s brightness=%d%% pwm=%d/%d\n", OnOff(s.LaserState), s.LaserBrightness, s.LaserPWMValue, PWMMax) +
			fmt.Sprintf("  a0=%d (%s) cpu=%dMHz\n", s.AnalogA0, s.VoltageA0, s.CPUFreqMHz) +
			fmt.Sprintf("  heap=%d/%d uptime=%s heartbeat=%t version=%s\n",
				s.FreeHeapBytes, s.TotalHeapBytes, s.Timestamp, s.HeartbeatEnabled, s.Version)
	}
	return "  (empty)\n"
}

// OnOff renders a laser state the way the controller reports it
func OnOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
