// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beam

import (
	"fmt"
	"math"
	"time"
)

// AnomalyType represents different types of message anomalies
type AnomalyType int

const (
	AnomalyBrightnessRange AnomalyType = iota
	AnomalyPWMMismatch
	AnomalyAnalogRange
	AnomalyVoltageMismatch
	AnomalyTimestampMismatch
	AnomalyVersionMismatch
	AnomalyDecodeError
)

// String returns a short name for the anomaly
func (a AnomalyType) String() string {
	switch a {
	case AnomalyBrightnessRange:
		return "brightness_range"
	case AnomalyPWMMismatch:
		return "pwm_mismatch"
	case AnomalyAnalogRange:
		return "analog_range"
	case AnomalyVoltageMismatch:
		return "voltage_mismatch"
	case AnomalyTimestampMismatch:
		return "timestamp_mismatch"
	case AnomalyVersionMismatch:
		return "version_mismatch"
	case AnomalyDecodeError:
		return "decode_error"
	default:
		return "unknown"
	}
}

// ValidationError represents a message validation failure
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// voltageTolerance covers two-decimal rounding of the reported voltage
const voltageTolerance = 0.006

// ValidateMessage checks a decoded message for values the controller should
// never produce. Returns an empty slice for a valid message.
func ValidateMessage(m *Message) []ValidationError {
	errors := []ValidationError{}

	_, brightness := m.LaserState()
	if !Between(brightness, BrightnessMin, BrightnessMax) {
		errors = append(errors, ValidationError{
			Type:    AnomalyBrightnessRange,
			Message: fmt.Sprintf("brightness %d outside %d-%d", brightness, BrightnessMin, BrightnessMax),
			Details: map[string]interface{}{"brightness": brightness},
		})
	}

	switch {
	case m.InitialState != nil:
		errors = append(errors, validateVersion(m.InitialState.Version)...)
	case m.Heartbeat != nil:
		errors = append(errors, validateVersion(m.Heartbeat.Version)...)
		errors = append(errors, validateTimestamp(m.Heartbeat.UptimeMS, m.Heartbeat.Timestamp)...)
	case m.Status != nil:
		errors = append(errors, validateVersion(m.Status.Version)...)
		errors = append(errors, validateTimestamp(m.Status.UptimeMS, m.Status.Timestamp)...)
		errors = append(errors, validateStatus(m.Status)...)
	}

	return errors
}

func validateStatus(s *Status) []ValidationError {
	errors := []ValidationError{}

	if want := PWMFromBrightness(s.LaserBrightness); Between(s.LaserBrightness, BrightnessMin, BrightnessMax) && s.LaserPWMValue != want {
		errors = append(errors, ValidationError{
			Type:    AnomalyPWMMismatch,
			Message: fmt.Sprintf("pwm %d does not match brightness %d%% (want %d)", s.LaserPWMValue, s.LaserBrightness, want),
			Details: map[string]interface{}{"pwm": s.LaserPWMValue, "expected": want},
		})
	}

	if !Between(s.AnalogA0, 0, FullScaleCount) {
		errors = append(errors, ValidationError{
			Type:    AnomalyAnalogRange,
			Message: fmt.Sprintf("analog reading %d outside 0-%d", s.AnalogA0, FullScaleCount),
			Details: map[string]interface{}{"analog": s.AnalogA0},
		})
		return errors
	}

	if want := VoltageFromRaw(s.AnalogA0); math.Abs(float64(s.VoltageA0)-want) > voltageTolerance {
		errors = append(errors, ValidationError{
			Type:    AnomalyVoltageMismatch,
			Message: fmt.Sprintf("voltage %s does not match raw %d (want %.2fV)", s.VoltageA0, s.AnalogA0, want),
			Details: map[string]interface{}{"voltage": float64(s.VoltageA0), "expected": want},
		})
	}

	return errors
}

func validateTimestamp(uptimeMS int64, timestamp string) []ValidationError {
	if want := FormatClock(time.Duration(uptimeMS) * time.Millisecond); want != timestamp {
		return []ValidationError{{
			Type:    AnomalyTimestampMismatch,
			Message: fmt.Sprintf("timestamp %q does not match uptime %dms (want %q)", timestamp, uptimeMS, want),
			Details: map[string]interface{}{"timestamp": timestamp, "expected": want},
		}}
	}
	return nil
}

func validateVersion(version string) []ValidationError {
	if version != FirmwareVersion {
		return []ValidationError{{
			Type:    AnomalyVersionMismatch,
			Message: fmt.Sprintf("firmware version %q, expected %q", version, FirmwareVersion),
			Details: map[string]interface{}{"version": version},
		}}
	}
	return nil
}
