// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/Thermoquad/beacon/internal/config"
	"github.com/Thermoquad/beacon/internal/errors"
	"github.com/Thermoquad/beacon/internal/hal"
	"github.com/Thermoquad/beacon/internal/logger"
	"github.com/Thermoquad/beacon/internal/mirror"
	"github.com/Thermoquad/beacon/internal/pid"
	"github.com/Thermoquad/beacon/internal/store"
	"github.com/Thermoquad/beacon/pkg/beam"
	"github.com/Thermoquad/beacon/pkg/device"
	"github.com/spf13/cobra"
)

// Build stamp, set with -ldflags "-X github.com/Thermoquad/beacon/cmd.BuildDate=..."
var (
	BuildDate = ""
	BuildTime = ""
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the laser controller",
	Long: `Run the laser controller on a link.

The controller reads Beam commands one line at a time and drives the laser
output. It pushes its initial state on every (re)connection, emits periodic
heartbeats and answers STATUS, SYSTEM_INFO and the other queries.

Links:
  Serial:    --port /dev/ttyGS0 [--baud 115200]
  Stdio:     --stdio (commands on stdin, replies on stdout, logs on stderr)
  WebSocket: --listen :8080 (clients connect to ws://host:8080/beam)

RESTART stops the controller, releases the link and re-executes beacon
with the same arguments.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	f := serveCmd.Flags()
	f.Bool("stdio", false, "Use stdin/stdout as the link")
	f.String("listen", "", "Serve a WebSocket bridge on this address")
	f.String("store", config.BackendSQLite, "Preference store backend (sqlite, file, memory)")
	f.String("store-path", config.DefaultStorePath, "Preference store location")
	f.Bool("heartbeat", true, "Emit heartbeats at boot")
	f.Int("heartbeat-interval", config.DefaultIntervalMS, "Heartbeat interval in milliseconds")
	f.Int("tick", config.DefaultTickMS, "Loop tick in milliseconds")
	f.String("output", config.DriverSim, "Laser output driver (sim, sysfs)")
	f.String("analog", config.DriverSim, "Analog input driver (sim, iio)")
	f.Bool("mqtt", false, "Mirror controller output to MQTT")
	f.String("mqtt-broker", config.DefaultBroker, "MQTT broker URL")
	f.String("mqtt-topic", config.DefaultTopic, "MQTT topic prefix")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reexec := hal.NewReexec(logger.Default())

	err := serve(ctx, cfg, reexec)
	if errors.HasCode(err, errors.ErrRestartRequired) {
		stop()
		if err := reexec.Exec(); err != nil {
			logError(err, "Restart failed")
			return err
		}
		return nil
	}
	if err != nil {
		logError(err, "Controller stopped")
		return err
	}

	logger.Info().Msg("Controller stopped")
	return nil
}

// logError logs err with its code when it carries one
func logError(err error, msg string) {
	var coded errors.Error
	if errors.As(err, &coded) {
		logger.ErrorWithCode(coded).Msg(msg)
		return
	}
	logger.Error().Err(err).Msg(msg)
}

// serve runs the controller until ctx is done, the link closes or a
// restart is requested. Every resource is released before it returns.
func serve(ctx context.Context, cfg *config.Config, restarter device.Restarter) error {
	log := logger.Default()

	link, linkName, err := openDeviceLink(cfg.Link)
	if err != nil {
		return err
	}
	defer link.Close()

	if err := pid.Write(linkName); err != nil {
		return err
	}
	defer pid.Remove(linkName)

	prefs, err := store.Open(store.Config{
		Backend:   cfg.Store.Backend,
		Path:      cfg.Store.Path,
		Namespace: cfg.Store.Namespace,
	}, log)
	if err != nil {
		return err
	}
	defer prefs.Close()

	output, closeOutput, err := openOutput(cfg.Hardware)
	if err != nil {
		return err
	}
	defer closeOutput()

	host := hal.NewHost(hal.HostConfig{
		ChipModel:      cfg.Hardware.ChipModel,
		ChipRevision:   cfg.Hardware.ChipRevision,
		CPUFreqMHz:     cfg.Hardware.CPUFreqMHz,
		FlashSizeBytes: cfg.Hardware.FlashSizeBytes,
		PSRAMSizeBytes: cfg.Hardware.PSRAMSizeBytes,
	}, log)

	var writer io.Writer = link
	if cfg.Mirror.Enabled {
		pub, err := openMirror(cfg.Mirror, host.DeviceID())
		if err != nil {
			// The controller is usable without its mirror
			logger.WarnWithCode(err).Str("broker", cfg.Mirror.Broker).Msg("MQTT mirror disabled")
		} else {
			defer pub.Close()
			writer = mirror.NewTee(link, pub, cfg.Mirror.Topic, log)
		}
	}

	buildDate, buildTime := buildStamp()
	ctl := device.NewController(device.Config{
		Info: device.Info{
			BuildDate: buildDate,
			BuildTime: buildTime,
			LaserPin:  cfg.Hardware.LaserPin,
		},
		HeartbeatEnabled:  cfg.Heartbeat.Enabled,
		HeartbeatInterval: time.Duration(cfg.Heartbeat.IntervalMS) * time.Millisecond,
		StoreKey:          beam.KeyBrightness,
	}, device.Deps{
		Store:     prefs,
		Output:    output,
		Analog:    openAnalog(cfg.Hardware),
		Host:      host,
		Restarter: restarter,
		Logger:    log,
		Writer:    writer,
	})

	logger.Info().
		Str("link", linkName).
		Str("store", cfg.Store.Backend).
		Str("output", cfg.Hardware.Output).
		Str("analog", cfg.Hardware.Analog).
		Int("tick_ms", cfg.Loop.TickMS).
		Msg("Controller starting")

	done := make(chan struct{})
	defer close(done)

	runner := device.NewRunner(ctl, time.Duration(cfg.Loop.TickMS)*time.Millisecond)
	return runner.Run(ctx, commandLines(link, done))
}

// commandLines feeds the runner with trimmed command lines. Lines the
// decoder drops are logged and skipped.
func commandLines(r io.Reader, done <-chan struct{}) <-chan string {
	lines := make(chan string, 64)

	go func() {
		defer close(lines)
		for ev := range streamLines(r, done) {
			if ev.err != nil {
				logger.Warn().Err(ev.err).Msg("Dropped command line")
				continue
			}
			select {
			case lines <- ev.line.Text():
			case <-done:
				return
			}
		}
	}()

	return lines
}

// openDeviceLink opens the controller side of the configured link and
// returns it with the name used for its PID lock
func openDeviceLink(link config.LinkConfig) (Connection, string, error) {
	switch {
	case link.Stdio:
		return NewStdioConnection(), "stdio", nil
	case link.Listen != "":
		bridge, err := ListenWebSocketBridge(link.Listen)
		if err != nil {
			return nil, "", err
		}
		logger.Info().Str("address", link.Listen).Str("path", BridgePath).Msg("WebSocket bridge listening")
		return bridge, "ws-" + link.Listen, nil
	case link.Port != "":
		conn, err := OpenSerialConnection(link.Port, link.Baud)
		if err != nil {
			return nil, "", err
		}
		return conn, link.Port, nil
	}

	return nil, "", errors.New().WithMessage(errors.ErrLinkOpen, "one of --port, --stdio or --listen must be specified")
}

func openOutput(hw config.HardwareConfig) (device.Output, func(), error) {
	if hw.Output == config.DriverSysfs {
		pwm, err := hal.NewSysfsPWM(hw.PWMPath, beam.PWMFrequencyHz)
		if err != nil {
			return nil, nil, err
		}
		return pwm, func() {
			if err := pwm.Close(); err != nil {
				logger.WarnWithCode(err).Msg("Failed to disable PWM channel")
			}
		}, nil
	}

	return hal.NewSimOutput(logger.Default()), func() {}, nil
}

func openAnalog(hw config.HardwareConfig) device.AnalogInput {
	if hw.Analog == config.DriverIIO {
		return hal.NewIIOAnalog(hw.ADCPath)
	}
	return hal.NewSimAnalog(hw.SimAnalogRaw)
}

func openMirror(m config.MirrorConfig, deviceID string) (*mirror.MQTTPublisher, error) {
	clientID := m.ClientID
	if clientID == "" {
		clientID = "beacon-" + deviceID
	}
	return mirror.Dial(m.Broker, clientID, logger.Default())
}

// buildStamp returns the build date and time in the controller's report
// format ("Jan  2 2006", "15:04:05"). Without ldflags it falls back to the
// VCS commit time recorded by the Go toolchain.
func buildStamp() (string, string) {
	if BuildDate != "" && BuildTime != "" {
		return BuildDate, BuildTime
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key != "vcs.time" {
				continue
			}
			if t, err := time.Parse(time.RFC3339, setting.Value); err == nil {
				return t.Format("Jan _2 2006"), t.Format("15:04:05")
			}
		}
	}

	return "unknown", "unknown"
}
