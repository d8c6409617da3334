// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"fmt"
	"io"
	"time"

	"github.com/Thermoquad/beacon/internal/errors"
	"github.com/Thermoquad/beacon/internal/logger"
	"github.com/Thermoquad/beacon/pkg/beam"
)

// Info describes the firmware build
type Info struct {
	BuildDate string
	BuildTime string
	LaserPin  int
}

// Config holds controller settings
type Config struct {
	Info              Info
	HeartbeatEnabled  bool
	HeartbeatInterval time.Duration
	StoreKey          string
}

// DefaultConfig returns the factory settings
func DefaultConfig() Config {
	return Config{
		Info:              Info{BuildDate: "unknown", BuildTime: "unknown", LaserPin: 6},
		HeartbeatEnabled:  true,
		HeartbeatInterval: beam.DefaultHeartbeatInterval * time.Millisecond,
		StoreKey:          beam.KeyBrightness,
	}
}

// Deps are the collaborators of a Controller. Clock and Logger may be nil.
type Deps struct {
	Store     Store
	Output    Output
	Analog    AnalogInput
	Host      HostMetrics
	Restarter Restarter
	Clock     Clock
	Logger    logger.Logger
	// Writer receives protocol output lines
	Writer io.Writer
}

// Controller owns the device state and executes protocol commands
type Controller struct {
	cfg   Config
	state State
	deps  Deps
	log   logger.Logger
	clock Clock

	presence      *Presence
	boot          time.Time
	lastHeartbeat time.Time
	booted        bool
	diagnosing    bool
	halted        bool
}

// NewController creates a controller. Call Boot before dispatching.
func NewController(cfg Config, deps Deps) *Controller {
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = logger.Default()
	}
	if cfg.StoreKey == "" {
		cfg.StoreKey = beam.KeyBrightness
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = beam.DefaultHeartbeatInterval * time.Millisecond
	}

	c := &Controller{
		cfg:      cfg,
		deps:     deps,
		log:      deps.Logger,
		clock:    deps.Clock,
		presence: NewPresence(beam.PresenceTimeout),
	}
	c.state.HeartbeatEnabled = cfg.HeartbeatEnabled
	c.state.HeartbeatInterval = cfg.HeartbeatInterval
	c.state.setBrightness(beam.DefaultBrightness)
	return c
}

// Boot loads persisted settings, drives the output off and announces the
// controller on the link
func (c *Controller) Boot() {
	c.boot = c.clock.Now()
	c.lastHeartbeat = c.boot

	c.loadBrightness()
	c.setLaser(false)

	c.emitf("%s Laser Controller v%s Ready", c.deps.Host.ChipModel(), beam.FirmwareVersion)
	c.emitf("Loaded brightness: %d%%", c.state.Brightness)
	c.SendInitialState()

	c.booted = true
	c.log.Info().
		Int("brightness", c.state.Brightness).
		Bool("heartbeat", c.state.HeartbeatEnabled).
		Dur("heartbeat_interval", c.state.HeartbeatInterval).
		Msg("Controller booted")
}

// Booted reports whether Boot has run
func (c *Controller) Booted() bool {
	return c.booted
}

// Halted reports whether a restart was requested. A halted controller
// ignores further ticks.
func (c *Controller) Halted() bool {
	return c.halted
}

// State returns a copy of the device state
func (c *Controller) State() State {
	return c.state
}

// Connected reports the last computed peer presence
func (c *Controller) Connected() bool {
	return c.presence.Connected()
}

// Uptime returns the time since Boot
func (c *Controller) Uptime() time.Duration {
	return c.clock.Now().Sub(c.boot)
}

// Tick runs one loop iteration. received reports whether line was read from
// the link during this iteration.
func (c *Controller) Tick(line string, received bool) {
	if c.halted {
		return
	}

	if received {
		c.presence.Touch(c.clock.Now())
		if line != "" {
			c.Dispatch(line)
		}
		if c.halted {
			return
		}
	}

	now := c.clock.Now()
	if c.presence.Update(now) {
		c.log.Info().Msg("Peer connected")
		c.emitf("Connection detected - sending device state")
		c.clock.Sleep(beam.ConnectSettleDelay)
		c.SendInitialState()
	}

	now = c.clock.Now()
	if c.state.HeartbeatEnabled && now.Sub(c.lastHeartbeat) >= c.state.HeartbeatInterval {
		c.SendHeartbeat()
		c.lastHeartbeat = now
	}
}

// Dispatch executes one trimmed protocol line. Unknown commands and
// out-of-range arguments are ignored.
func (c *Controller) Dispatch(line string) {
	cmd := beam.ParseCommand(line)
	if !cmd.Valid() {
		c.log.Debug().Str("line", line).Msg("Ignoring command")
		return
	}

	c.log.Debug().Str("command", cmd.Kind.String()).Int("arg", cmd.Arg).Msg("Dispatching command")

	switch cmd.Kind {
	case beam.KindLaserOn:
		c.setLaser(true)
	case beam.KindLaserOff:
		c.setLaser(false)
	case beam.KindLaserToggle:
		c.setLaser(!c.state.LaserOn)
	case beam.KindSetBrightness:
		c.setBrightness(cmd.Arg)
	case beam.KindStatus:
		c.SendStatus()
	case beam.KindSystemInfo:
		c.sendSystemInfo()
	case beam.KindVersion:
		c.sendVersion()
	case beam.KindAnalogRead:
		c.emitf("Analog A0: %s", beam.FormatVoltage(c.readAnalog()))
	case beam.KindLaserStatus:
		c.sendLaserStatus()
	case beam.KindGetInitialState:
		c.SendInitialState()
	case beam.KindHeartbeatOn:
		c.state.HeartbeatEnabled = true
	case beam.KindHeartbeatOff:
		c.state.HeartbeatEnabled = false
	case beam.KindHeartbeatInterval:
		c.state.HeartbeatInterval = time.Duration(cmd.Arg) * time.Millisecond
	case beam.KindDiagnostics:
		c.runDiagnostics()
	case beam.KindMemoryTest:
		c.memoryTest()
	case beam.KindRestart:
		c.restart()
	case beam.KindHelp:
		c.sendHelp()
	}
}

// Shutdown drives the output to 0
func (c *Controller) Shutdown() {
	c.state.LaserOn = false
	c.writeOutput(0)
	c.log.Info().Msg("Laser output off")
}

func (c *Controller) setLaser(on bool) {
	c.state.LaserOn = on
	c.writeOutput(c.state.Duty())
}

func (c *Controller) setBrightness(pct int) {
	c.state.setBrightness(pct)
	c.saveBrightness()
	if c.state.LaserOn {
		c.writeOutput(c.state.PWM)
	}
}

func (c *Controller) restart() {
	c.log.Info().Msg("Restart requested, turning laser off")
	c.setLaser(false)
	c.clock.Sleep(beam.RestartDelay)
	c.halted = true
	c.deps.Restarter.Restart()
}

func (c *Controller) loadBrightness() {
	pct, err := c.deps.Store.GetInt(c.cfg.StoreKey, beam.DefaultBrightness)
	if err != nil {
		c.log.Warn().
			Str("error_code", string(ErrStoreRead)).
			Err(err).
			Str("key", c.cfg.StoreKey).
			Msg("Failed to read saved brightness, using default")
		pct = beam.DefaultBrightness
	}
	c.state.setBrightness(pct)
}

func (c *Controller) saveBrightness() {
	if err := c.deps.Store.PutInt(c.cfg.StoreKey, c.state.Brightness); err != nil {
		c.log.ErrorWithCode(errors.New().Wrap(ErrStoreWrite, err)).
			Int("brightness", c.state.Brightness).
			Msg("Failed to save brightness")
	}
	c.emitf("Brightness saved: %d%%", c.state.Brightness)
}

func (c *Controller) writeOutput(duty int) {
	if err := c.deps.Output.Write(duty); err != nil {
		c.log.ErrorWithCode(errors.New().Wrap(ErrOutputWrite, err)).
			Int("duty", duty).
			Msg("Failed to write output")
	}
}

func (c *Controller) readAnalog() int {
	raw, err := c.deps.Analog.ReadRaw()
	if err != nil {
		c.log.ErrorWithCode(errors.New().Wrap(ErrAnalogRead, err)).Msg("Failed to read analog input")
		return 0
	}
	return beam.Clamp(raw, 0, beam.FullScaleCount)
}

func (c *Controller) emitf(format string, args ...any) {
	c.emit(fmt.Sprintf(format, args...))
}

func (c *Controller) emit(line string) {
	if _, err := io.WriteString(c.deps.Writer, line+string(beam.LineTerminator)); err != nil {
		c.log.ErrorWithCode(errors.New().Wrap(ErrEmit, err)).Msg("Failed to write line")
	}
}
