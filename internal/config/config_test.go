// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Thermoquad/beacon/internal/config"
	"github.com/Thermoquad/beacon/internal/errors"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "beacon.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
log_level = "debug"

[link]
port = "/dev/ttyUSB0"
baud = 57600

[store]
backend = "file"
path = "/tmp/prefs.cbor"

[heartbeat]
enabled = false
interval_ms = 2000

[hardware]
chip_model = "ESP32-S3"
laser_pin = 7

[mirror]
enabled = true
topic = "lab/laser"
`)
	t.Setenv("BEACON_CONFIG", path)

	cfg, err := config.Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Link.Port)
	assert.Equal(t, 57600, cfg.Link.Baud)
	assert.Equal(t, config.BackendFile, cfg.Store.Backend)
	assert.Equal(t, "/tmp/prefs.cbor", cfg.Store.Path)
	assert.False(t, cfg.Heartbeat.Enabled)
	assert.Equal(t, 2000, cfg.Heartbeat.IntervalMS)
	assert.Equal(t, "ESP32-S3", cfg.Hardware.ChipModel)
	assert.Equal(t, 7, cfg.Hardware.LaserPin)
	assert.True(t, cfg.Mirror.Enabled)
	assert.Equal(t, "lab/laser", cfg.Mirror.Topic)
	assert.Equal(t, config.DefaultBroker, cfg.Mirror.Broker)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BEACON_CONFIG", "")

	cfg, err := config.Load(nil, config.WithSearchPaths(t.TempDir()))
	require.NoError(t, err)

	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, config.DefaultBaud, cfg.Link.Baud)
	assert.False(t, cfg.Link.Stdio)
	assert.Equal(t, config.BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, config.DefaultNamespace, cfg.Store.Namespace)
	assert.True(t, cfg.Heartbeat.Enabled)
	assert.Equal(t, config.DefaultIntervalMS, cfg.Heartbeat.IntervalMS)
	assert.Equal(t, config.DefaultTickMS, cfg.Loop.TickMS)
	assert.Equal(t, config.DriverSim, cfg.Hardware.Output)
	assert.Equal(t, 2048, cfg.Hardware.SimAnalogRaw)
	assert.Equal(t, 6, cfg.Hardware.LaserPin)
	assert.False(t, cfg.Mirror.Enabled)
}

func TestLoadSearchPaths(t *testing.T) {
	t.Setenv("BEACON_CONFIG", "")
	dir := filepath.Dir(writeConfig(t, "[link]\nport = \"/dev/ttyACM1\"\n"))

	cfg, err := config.Load(nil, config.WithSearchPaths(t.TempDir(), dir))
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM1", cfg.Link.Port)
}

func TestLoadEnvPrefix(t *testing.T) {
	t.Setenv("LASERCTL_CONFIG", "")
	t.Setenv("LASERCTL_LINK_BAUD", "9600")

	cfg, err := config.Load(nil, config.WithEnvPrefix("LASERCTL"), config.WithSearchPaths())
	require.NoError(t, err)
	assert.Equal(t, 9600, cfg.Link.Baud)
}

func TestLoadRejectsEmptyOptions(t *testing.T) {
	_, err := config.Load(nil, config.WithConfigFile(""))
	assert.True(t, errors.HasCode(err, errors.ErrInvalidConfig))

	_, err = config.Load(nil, config.WithEnvPrefix(""))
	assert.True(t, errors.HasCode(err, errors.ErrInvalidConfig))
}

func TestLoadExplicitFileMissing(t *testing.T) {
	_, err := config.Load(nil, config.WithConfigFile(filepath.Join(t.TempDir(), "missing.toml")))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	t.Setenv("BEACON_CONFIG", writeConfig(t, "This is not a valid TOML file\n"))

	_, err := config.Load(nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
	assert.Contains(t, err.Error(), "Failed to read config file")
}

func TestInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    errors.ErrorCode
	}{
		{"log level", `log_level = "invalid"`, errors.ErrInvalidLogLevel},
		{"interval low", "[heartbeat]\ninterval_ms = 999", errors.ErrInvalidInterval},
		{"interval high", "[heartbeat]\ninterval_ms = 60001", errors.ErrInvalidInterval},
		{"tick", "[loop]\ntick_ms = 0", errors.ErrInvalidInterval},
		{"backend", "[store]\nbackend = \"redis\"", errors.ErrInvalidConfig},
		{"output", "[hardware]\noutput = \"gpio\"", errors.ErrInvalidConfig},
		{"analog", "[hardware]\nanalog = \"spi\"", errors.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BEACON_CONFIG", writeConfig(t, tt.content))
			_, err := config.Load(nil)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestEnvironmentOverride(t *testing.T) {
	t.Setenv("BEACON_CONFIG", "")
	t.Setenv("BEACON_LINK_PORT", "/dev/ttyACM1")
	t.Setenv("BEACON_HEARTBEAT_INTERVAL_MS", "3000")

	cfg, err := config.Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM1", cfg.Link.Port)
	assert.Equal(t, 3000, cfg.Heartbeat.IntervalMS)
}

func TestFlagOverride(t *testing.T) {
	t.Setenv("BEACON_CONFIG", writeConfig(t, "log_level = \"error\"\n[link]\nport = \"/dev/ttyS0\"\n"))

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", config.DefaultLogLevel, "")
	flags.String("port", "", "")
	flags.Bool("stdio", false, "")
	require.NoError(t, flags.Parse([]string{"--log-level", "debug", "--stdio"}))

	cfg, err := config.Load(flags)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel, "set flag wins over file")
	assert.Equal(t, "/dev/ttyS0", cfg.Link.Port, "unset flag keeps file value")
	assert.True(t, cfg.Link.Stdio)
}
