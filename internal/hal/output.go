// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package hal provides host implementations of the controller hardware:
// the laser PWM output, the analog input, host metrics and process restart.
package hal

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/Thermoquad/beacon/internal/errors"
	"github.com/Thermoquad/beacon/internal/logger"
	"github.com/Thermoquad/beacon/pkg/beam"
)

// SimOutput keeps the last duty in memory
type SimOutput struct {
	mu     sync.Mutex
	duty   int
	writes int
	log    logger.Logger
}

func NewSimOutput(log logger.Logger) *SimOutput {
	return &SimOutput{log: log}
}

func (o *SimOutput) Write(duty int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.duty = beam.Clamp(duty, 0, beam.PWMMax)
	o.writes++
	o.log.Debug().Int("duty", o.duty).Msg("Simulated output")
	return nil
}

// Duty returns the last written duty
func (o *SimOutput) Duty() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.duty
}

// Writes returns the number of writes so far
func (o *SimOutput) Writes() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.writes
}

// SysfsPWM drives a Linux PWM channel under /sys/class/pwm
type SysfsPWM struct {
	dir      string
	periodNS int64
}

// NewSysfsPWM exports the channel at dir if needed, sets its period for
// freqHz and enables it with a zero duty cycle
func NewSysfsPWM(dir string, freqHz int) (*SysfsPWM, error) {
	errFactory := errors.New()

	if freqHz <= 0 {
		return nil, errFactory.WithData(ErrPWMInit, "frequency must be positive")
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := export(dir); err != nil {
			return nil, errFactory.Wrap(ErrPWMInit, err)
		}
	}

	p := &SysfsPWM{dir: dir, periodNS: 1_000_000_000 / int64(freqHz)}

	// duty_cycle must not exceed period, so clear it first
	steps := []struct{ file, value string }{
		{"duty_cycle", "0"},
		{"period", strconv.FormatInt(p.periodNS, 10)},
		{"enable", "1"},
	}
	for _, s := range steps {
		if err := p.write(s.file, s.value); err != nil {
			return nil, errFactory.WithData(ErrPWMInit, struct {
				File  string
				Error string
			}{s.file, err.Error()})
		}
	}

	return p, nil
}

// export asks the parent chip to create channel pwmN
func export(dir string) error {
	channel := strings.TrimPrefix(filepath.Base(dir), "pwm")
	if _, err := strconv.Atoi(channel); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(filepath.Dir(dir), "export"), []byte(channel), 0)
}

func (p *SysfsPWM) write(file, value string) error {
	return os.WriteFile(filepath.Join(p.dir, file), []byte(value), 0)
}

// DutyNS converts an 8-bit duty to nanoseconds of the configured period
func (p *SysfsPWM) DutyNS(duty int) int64 {
	return p.periodNS * int64(beam.Clamp(duty, 0, beam.PWMMax)) / beam.PWMMax
}

func (p *SysfsPWM) Write(duty int) error {
	if err := p.write("duty_cycle", strconv.FormatInt(p.DutyNS(duty), 10)); err != nil {
		return errors.New().Wrap(ErrPWMWrite, err)
	}
	return nil
}

// Close zeroes and disables the channel
func (p *SysfsPWM) Close() error {
	if err := p.write("duty_cycle", "0"); err != nil {
		return errors.New().Wrap(ErrPWMWrite, err)
	}
	if err := p.write("enable", "0"); err != nil {
		return errors.New().Wrap(ErrPWMWrite, err)
	}
	return nil
}
