// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads beacon settings from a TOML file, BEACON_*
// environment variables and command line flags, in increasing priority.
package config

import (
	"os"
	"runtime"
	"strings"

	"github.com/Thermoquad/beacon/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel   = string(LogLevelInfo)
	DefaultEnvPrefix  = "BEACON"
	DefaultConfigName = "beacon"
	DefaultBaud       = 115200
	DefaultStorePath  = "/var/lib/beacon/prefs.db"
	DefaultNamespace  = "laser-ctrl"
	DefaultIntervalMS = 5000
	DefaultTickMS     = 10
	DefaultBroker     = "tcp://localhost:1883"
	DefaultTopic      = "beacon"

	minIntervalMS = 1000
	maxIntervalMS = 60000
	minTickMS     = 1
	maxTickMS     = 100
)

type Config struct {
	LogLevel  string          `mapstructure:"log_level"`
	Link      LinkConfig      `mapstructure:"link"`
	Store     StoreConfig     `mapstructure:"store"`
	Heartbeat HeartbeatConfig `mapstructure:"heartbeat"`
	Loop      LoopConfig      `mapstructure:"loop"`
	Hardware  HardwareConfig  `mapstructure:"hardware"`
	Mirror    MirrorConfig    `mapstructure:"mirror"`
}

type LinkConfig struct {
	Port   string `mapstructure:"port"`
	Baud   int    `mapstructure:"baud"`
	Stdio  bool   `mapstructure:"stdio"`
	Listen string `mapstructure:"listen"`
}

type StoreConfig struct {
	Backend   string `mapstructure:"backend"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

type HeartbeatConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	IntervalMS int  `mapstructure:"interval_ms"`
}

type LoopConfig struct {
	TickMS int `mapstructure:"tick_ms"`
}

type HardwareConfig struct {
	Output         string `mapstructure:"output"`
	PWMPath        string `mapstructure:"pwm_path"`
	Analog         string `mapstructure:"analog"`
	ADCPath        string `mapstructure:"adc_path"`
	SimAnalogRaw   int    `mapstructure:"sim_analog_raw"`
	LaserPin       int    `mapstructure:"laser_pin"`
	ChipModel      string `mapstructure:"chip_model"`
	ChipRevision   int    `mapstructure:"chip_revision"`
	CPUFreqMHz     int    `mapstructure:"cpu_freq_mhz"`
	FlashSizeBytes int64  `mapstructure:"flash_size_bytes"`
	PSRAMSizeBytes int64  `mapstructure:"psram_size_bytes"`
}

type MirrorConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Broker   string `mapstructure:"broker"`
	Topic    string `mapstructure:"topic"`
	ClientID string `mapstructure:"client_id"`
}

// flagKeys maps config keys to the command line flags that override them
var flagKeys = map[string]string{
	"log_level":             "log-level",
	"link.port":             "port",
	"link.baud":             "baud",
	"link.stdio":            "stdio",
	"link.listen":           "listen",
	"store.backend":         "store",
	"store.path":            "store-path",
	"heartbeat.enabled":     "heartbeat",
	"heartbeat.interval_ms": "heartbeat-interval",
	"loop.tick_ms":          "tick",
	"hardware.output":       "output",
	"hardware.analog":       "analog",
	"mirror.enabled":        "mqtt",
	"mirror.broker":         "mqtt-broker",
	"mirror.topic":          "mqtt-topic",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", DefaultLogLevel)

	v.SetDefault("link.port", "")
	v.SetDefault("link.baud", DefaultBaud)
	v.SetDefault("link.stdio", false)
	v.SetDefault("link.listen", "")

	v.SetDefault("store.backend", BackendSQLite)
	v.SetDefault("store.path", DefaultStorePath)
	v.SetDefault("store.namespace", DefaultNamespace)

	v.SetDefault("heartbeat.enabled", true)
	v.SetDefault("heartbeat.interval_ms", DefaultIntervalMS)

	v.SetDefault("loop.tick_ms", DefaultTickMS)

	v.SetDefault("hardware.output", DriverSim)
	v.SetDefault("hardware.pwm_path", "/sys/class/pwm/pwmchip0/pwm0")
	v.SetDefault("hardware.analog", DriverSim)
	v.SetDefault("hardware.adc_path", "/sys/bus/iio/devices/iio:device0/in_voltage0_raw")
	v.SetDefault("hardware.sim_analog_raw", 2048)
	v.SetDefault("hardware.laser_pin", 6)
	v.SetDefault("hardware.chip_model", runtime.GOOS+"/"+runtime.GOARCH)
	v.SetDefault("hardware.chip_revision", 0)
	v.SetDefault("hardware.cpu_freq_mhz", 240)
	v.SetDefault("hardware.flash_size_bytes", int64(8*1024*1024))
	v.SetDefault("hardware.psram_size_bytes", int64(0))

	v.SetDefault("mirror.enabled", false)
	v.SetDefault("mirror.broker", DefaultBroker)
	v.SetDefault("mirror.topic", DefaultTopic)
	v.SetDefault("mirror.client_id", "")
}

// Load reads the configuration. flags may be nil; only flags that exist in
// the set are bound.
func Load(flags *pflag.FlagSet, opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := o.configPath
	if configPath == "" {
		configPath = os.Getenv(o.envPrefix + "_CONFIG")
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("toml")
		for _, dir := range o.searchPaths {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	if flags != nil {
		for key, name := range flagKeys {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, errFactory.Wrap(errors.ErrBindFlags, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks value ranges and driver names
func (c *Config) Validate() error {
	errFactory := errors.New()

	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	if c.Heartbeat.IntervalMS < minIntervalMS || c.Heartbeat.IntervalMS > maxIntervalMS {
		return errFactory.WithData(errors.ErrInvalidInterval, struct {
			Key   string
			Value int
		}{"heartbeat.interval_ms", c.Heartbeat.IntervalMS})
	}

	if c.Loop.TickMS < minTickMS || c.Loop.TickMS > maxTickMS {
		return errFactory.WithData(errors.ErrInvalidInterval, struct {
			Key   string
			Value int
		}{"loop.tick_ms", c.Loop.TickMS})
	}

	switch c.Store.Backend {
	case BackendSQLite, BackendFile, BackendMemory:
	default:
		return errFactory.WithData(errors.ErrInvalidConfig, "unknown store backend "+c.Store.Backend)
	}

	switch c.Hardware.Output {
	case DriverSim, DriverSysfs:
	default:
		return errFactory.WithData(errors.ErrInvalidConfig, "unknown output driver "+c.Hardware.Output)
	}

	switch c.Hardware.Analog {
	case DriverSim, DriverIIO:
	default:
		return errFactory.WithData(errors.ErrInvalidConfig, "unknown analog driver "+c.Hardware.Analog)
	}

	if c.Link.Baud <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, "baud must be positive")
	}

	return nil
}
