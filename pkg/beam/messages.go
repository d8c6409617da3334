// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beam

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// MessageType tags structured lines
type MessageType string

const (
	TypeInitialState MessageType = "initial_state"
	TypeHeartbeat    MessageType = "heartbeat"
	TypeStatus       MessageType = "status"
)

// Volts marshals with exactly two decimals
type Volts float64

// MarshalJSON implements json.Marshaler
func (v Volts) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(v), 'f', 2, 64)), nil
}

// String formats the voltage like the text reports, e.g. "1.65V"
func (v Volts) String() string {
	return strconv.FormatFloat(float64(v), 'f', 2, 64) + "V"
}

// InitialState is pushed at boot, on every reconnection and on request
type InitialState struct {
	Type            MessageType `json:"type"`
	LaserState      bool        `json:"laser_state"`
	LaserBrightness int         `json:"laser_brightness"`
	Version         string      `json:"version"`
	UptimeMS        int64       `json:"uptime_ms"`
	FreeHeapBytes   int64       `json:"free_heap_bytes"`
}

// Heartbeat is emitted periodically while enabled
type Heartbeat struct {
	Type            MessageType `json:"type"`
	UptimeMS        int64       `json:"uptime_ms"`
	FreeHeapBytes   int64       `json:"free_heap_bytes"`
	LaserState      bool        `json:"laser_state"`
	LaserBrightness int         `json:"laser_brightness"`
	Timestamp       string      `json:"timestamp"`
	Version         string      `json:"version"`
}

// Status answers the STATUS command
type Status struct {
	Type             MessageType `json:"type"`
	UptimeMS         int64       `json:"uptime_ms"`
	FreeHeapBytes    int64       `json:"free_heap_bytes"`
	TotalHeapBytes   int64       `json:"total_heap_bytes"`
	LaserState       bool        `json:"laser_state"`
	LaserBrightness  int         `json:"laser_brightness"`
	LaserPWMValue    int         `json:"laser_pwm_value"`
	AnalogA0         int         `json:"analog_a0"`
	VoltageA0        Volts       `json:"voltage_a0"`
	CPUFreqMHz       int         `json:"cpu_freq_mhz"`
	Timestamp        string      `json:"timestamp"`
	Version          string      `json:"version"`
	HeartbeatEnabled bool        `json:"heartbeat_enabled"`
}

// Message is a decoded structured line. Exactly one of the typed fields is
// set, matching Type.
type Message struct {
	Type         MessageType
	InitialState *InitialState
	Heartbeat    *Heartbeat
	Status       *Status
}

// ErrNotStructured is returned by DecodeMessage for free-text lines
var ErrNotStructured = fmt.Errorf("line is not a structured message")

// EncodeMessage marshals a structured message onto one line (no terminator)
func EncodeMessage(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	return data, nil
}

// DecodeMessage parses a structured line
func DecodeMessage(text string) (*Message, error) {
	if len(text) == 0 || text[0] != '{' {
		return nil, ErrNotStructured
	}

	var envelope struct {
		Type MessageType `json:"type"`
	}
	if err := json.Unmarshal([]byte(text), &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}

	msg := &Message{Type: envelope.Type}
	var target any
	switch envelope.Type {
	case TypeInitialState:
		msg.InitialState = &InitialState{}
		target = msg.InitialState
	case TypeHeartbeat:
		msg.Heartbeat = &Heartbeat{}
		target = msg.Heartbeat
	case TypeStatus:
		msg.Status = &Status{}
		target = msg.Status
	default:
		return nil, fmt.Errorf("unknown message type %q", envelope.Type)
	}

	if err := json.Unmarshal([]byte(text), target); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", envelope.Type, err)
	}
	return msg, nil
}

// LaserState returns the laser state and brightness carried by any message
// type
func (m *Message) LaserState() (on bool, brightness int) {
	switch {
	case m.InitialState != nil:
		return m.InitialState.LaserState, m.InitialState.LaserBrightness
	case m.Heartbeat != nil:
		return m.Heartbeat.LaserState, m.Heartbeat.LaserBrightness
	case m.Status != nil:
		return m.Status.LaserState, m.Status.LaserBrightness
	}
	return false, 0
}

// Uptime returns the uptime carried by any message type, in milliseconds
func (m *Message) Uptime() int64 {
	switch {
	case m.InitialState != nil:
		return m.InitialState.UptimeMS
	case m.Heartbeat != nil:
		return m.Heartbeat.UptimeMS
	case m.Status != nil:
		return m.Status.UptimeMS
	}
	return 0
}
