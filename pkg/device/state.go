// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"time"

	"github.com/Thermoquad/beacon/pkg/beam"
)

// State is the mutable device state
type State struct {
	LaserOn           bool
	Brightness        int // percent, persisted
	PWM               int // derived from Brightness
	HeartbeatEnabled  bool
	HeartbeatInterval time.Duration
}

func (s *State) setBrightness(pct int) {
	s.Brightness = beam.Clamp(pct, beam.BrightnessMin, beam.BrightnessMax)
	s.PWM = beam.PWMFromBrightness(s.Brightness)
}

// Duty returns the value the output should be driven to
func (s State) Duty() int {
	if s.LaserOn {
		return s.PWM
	}
	return 0
}

// Presence infers whether a peer is attached from inbound traffic
type Presence struct {
	timeout      time.Duration
	lastActivity time.Time
	seen         bool
	connected    bool
}

// NewPresence creates a tracker that has never seen a line
func NewPresence(timeout time.Duration) *Presence {
	return &Presence{timeout: timeout}
}

// Touch records inbound traffic at now
func (p *Presence) Touch(now time.Time) {
	p.lastActivity = now
	p.seen = true
}

// Update recomputes presence at now and reports a Disconnected to
// Connected transition
func (p *Presence) Update(now time.Time) bool {
	current := p.seen && now.Sub(p.lastActivity) < p.timeout
	connected := current && !p.connected
	p.connected = current
	return connected
}

// Connected returns the state computed by the last Update
func (p *Presence) Connected() bool {
	return p.connected
}

// LastActivity returns the time of the last inbound line
func (p *Presence) LastActivity() time.Time {
	return p.lastActivity
}
