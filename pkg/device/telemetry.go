// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"github.com/Thermoquad/beacon/internal/errors"
	"github.com/Thermoquad/beacon/pkg/beam"
)

// InitialState builds the initial_state message
func (c *Controller) InitialState() *beam.InitialState {
	return &beam.InitialState{
		Type:            beam.TypeInitialState,
		LaserState:      c.state.LaserOn,
		LaserBrightness: c.state.Brightness,
		Version:         beam.FirmwareVersion,
		UptimeMS:        c.Uptime().Milliseconds(),
		FreeHeapBytes:   c.deps.Host.FreeHeap(),
	}
}

// Heartbeat builds the heartbeat message
func (c *Controller) Heartbeat() *beam.Heartbeat {
	uptime := c.Uptime()
	return &beam.Heartbeat{
		Type:            beam.TypeHeartbeat,
		UptimeMS:        uptime.Milliseconds(),
		FreeHeapBytes:   c.deps.Host.FreeHeap(),
		LaserState:      c.state.LaserOn,
		LaserBrightness: c.state.Brightness,
		Timestamp:       beam.FormatClock(uptime),
		Version:         beam.FirmwareVersion,
	}
}

// Status builds the status message, sampling the analog input
func (c *Controller) Status() *beam.Status {
	uptime := c.Uptime()
	raw := c.readAnalog()
	return &beam.Status{
		Type:             beam.TypeStatus,
		UptimeMS:         uptime.Milliseconds(),
		FreeHeapBytes:    c.deps.Host.FreeHeap(),
		TotalHeapBytes:   c.deps.Host.HeapSize(),
		LaserState:       c.state.LaserOn,
		LaserBrightness:  c.state.Brightness,
		LaserPWMValue:    c.state.PWM,
		AnalogA0:         raw,
		VoltageA0:        beam.Volts(beam.VoltageFromRaw(raw)),
		CPUFreqMHz:       c.deps.Host.CPUFreqMHz(),
		Timestamp:        beam.FormatClock(uptime),
		Version:          beam.FirmwareVersion,
		HeartbeatEnabled: c.state.HeartbeatEnabled,
	}
}

// SendInitialState pushes the initial state followed by its human summary
func (c *Controller) SendInitialState() {
	c.emitMessage(c.InitialState())
	c.emitf("Device initialized - Laser: %s, Brightness: %d%%", beam.OnOff(c.state.LaserOn), c.state.Brightness)
}

// SendHeartbeat emits one heartbeat
func (c *Controller) SendHeartbeat() {
	c.emitMessage(c.Heartbeat())
}

// SendStatus emits one status message
func (c *Controller) SendStatus() {
	c.emitMessage(c.Status())
}

func (c *Controller) emitMessage(v any) {
	data, err := beam.EncodeMessage(v)
	if err != nil {
		c.log.ErrorWithCode(errors.New().Wrap(ErrEmit, err)).Msg("Failed to encode message")
		return
	}
	c.emit(string(data))
}
