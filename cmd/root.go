// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/Thermoquad/beacon/internal/config"
	"github.com/Thermoquad/beacon/internal/logger"
	"github.com/spf13/cobra"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	configFile string
	logLevel   string

	// cfg is loaded before any subcommand runs
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "beacon",
	Short: "Serial laser controller and Beam protocol tools",
	Long: `Beacon - a laser controller speaking the Beam line protocol, plus the
host-side tools to drive and inspect it.

"beacon serve" runs the controller itself on a serial port, on stdio or
behind a WebSocket bridge. The other commands connect to a running
controller to send commands, log traffic and validate telemetry.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 115200]
  WebSocket: --url ws://host/beam [--username user]

Settings are read from beacon.toml (/etc/beacon, ~/.config/beacon or
$BEACON_CONFIG), then BEACON_* environment variables, then flags.

For WebSocket authentication, the password is read from the BEACON_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", config.DefaultBaud, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default beacon.toml in /etc/beacon or ~/.config/beacon)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "Log level (debug, info, warning, error)")
}

// loadConfig merges file, environment and flags, then sets up logging
func loadConfig(cmd *cobra.Command, args []string) error {
	var opts []config.Option
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}

	loaded, err := config.Load(cmd.Flags(), opts...)
	if err != nil {
		logger.Init(config.DefaultLogLevel, logger.IsService())
		return err
	}
	cfg = loaded

	logger.Init(cfg.LogLevel, logger.IsService())

	// Connection helpers read the package flags; fill them from the
	// merged settings so a config file can name the port
	portName = cfg.Link.Port
	baudRate = cfg.Link.Baud

	logger.Debug().
		Str("command", cmd.Name()).
		Str("log_level", cfg.LogLevel).
		Msg("Configuration loaded")
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
