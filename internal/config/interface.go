// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import "fmt"

// Option adjusts how Load locates its sources
type Option func(*options) error

type options struct {
	configPath  string
	envPrefix   string
	searchPaths []string
}

func defaultOptions() *options {
	return &options{
		envPrefix:   DefaultEnvPrefix,
		searchPaths: []string{"/etc/beacon", "$HOME/.config/beacon"},
	}
}

// WithConfigFile reads path instead of searching for beacon.toml
func WithConfigFile(path string) Option {
	return func(o *options) error {
		if path == "" {
			return fmt.Errorf("empty config file path")
		}
		o.configPath = path
		return nil
	}
}

// WithEnvPrefix replaces the BEACON environment prefix
func WithEnvPrefix(prefix string) Option {
	return func(o *options) error {
		if prefix == "" {
			return fmt.Errorf("empty environment prefix")
		}
		o.envPrefix = prefix
		return nil
	}
}

// WithSearchPaths replaces the directories searched for beacon.toml
func WithSearchPaths(paths ...string) Option {
	return func(o *options) error {
		o.searchPaths = paths
		return nil
	}
}

// LogLevel is a configured log level name
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// IsValid reports whether the logger understands l
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError:
		return true
	}
	return false
}

// Store backends
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// Hardware drivers
const (
	DriverSim   = "sim"
	DriverSysfs = "sysfs"
	DriverIIO   = "iio"
)
