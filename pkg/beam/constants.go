// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package beam implements the Beam line protocol spoken by the beacon laser
// controller.
//
// Beam is a line-oriented ASCII protocol. The host sends one command per
// line; the controller answers with free-form text lines or with JSON
// objects tagged by a "type" field (initial_state, heartbeat, status).
// There is no framing beyond the newline, no checksum and no
// acknowledgement.
package beam

import "time"

// FirmwareVersion is reported in every structured message
const FirmwareVersion = "5.1"

// Line limits
const (
	LineTerminator = '\n'
	MaxLineLength  = 256
)

// Brightness and output limits
const (
	BrightnessMin     = 0
	BrightnessMax     = 100
	DefaultBrightness = 50
	PWMMax            = 255
)

// Heartbeat limits (milliseconds)
const (
	HeartbeatIntervalMin     = 1000
	HeartbeatIntervalMax     = 60000
	DefaultHeartbeatInterval = 5000
)

// Analog front end: 12-bit ADC against a 3.3 V reference
const (
	ReferenceVoltage = 3.3
	FullScaleCount   = 4095
)

// Timing constants
const (
	PresenceTimeout    = 3000 * time.Millisecond
	ConnectSettleDelay = 100 * time.Millisecond
	DiagnosticPulse    = 500 * time.Millisecond
	RestartDelay       = 1000 * time.Millisecond
	DiagnosticLevel    = 10
)

// Output driver configuration
const (
	PWMFrequencyHz    = 1000
	PWMResolutionBits = 8
)

// Store layout
const (
	StoreNamespace = "laser-ctrl"
	KeyBrightness  = "brightness"
)

// Command words
const (
	CmdLaserOn           = "LASER_ON"
	CmdLaserOff          = "LASER_OFF"
	CmdLaserToggle       = "LASER_TOGGLE"
	CmdSetLaserPWM       = "SET_LASER_PWM:"
	CmdSetBrightness     = "SET_LASER_BRIGHTNESS:"
	CmdStatus            = "STATUS"
	CmdSystemInfo        = "SYSTEM_INFO"
	CmdVersion           = "VERSION"
	CmdAnalogRead        = "ANALOG_READ"
	CmdLaserStatus       = "LASER_STATUS"
	CmdGetInitialState   = "GET_INITIAL_STATE"
	CmdHeartbeatOn       = "HEARTBEAT_ON"
	CmdHeartbeatOff      = "HEARTBEAT_OFF"
	CmdHeartbeatInterval = "HEARTBEAT_INTERVAL:"
	CmdDiagnostics       = "DIAGNOSTICS"
	CmdMemoryTest        = "MEMORY_TEST"
	CmdRestart           = "RESTART"
	CmdReboot            = "REBOOT"
	CmdHelp              = "HELP"
)
