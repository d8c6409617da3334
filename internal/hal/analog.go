// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hal

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/Thermoquad/beacon/internal/errors"
	"github.com/Thermoquad/beacon/pkg/beam"
)

// SimAnalog returns a settable raw value
type SimAnalog struct {
	mu  sync.Mutex
	raw int
}

func NewSimAnalog(raw int) *SimAnalog {
	return &SimAnalog{raw: beam.Clamp(raw, 0, beam.FullScaleCount)}
}

func (a *SimAnalog) ReadRaw() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.raw, nil
}

// Set changes the value returned by ReadRaw
func (a *SimAnalog) Set(raw int) {
	a.mu.Lock()
	a.raw = beam.Clamp(raw, 0, beam.FullScaleCount)
	a.mu.Unlock()
}

// IIOAnalog reads an industrial I/O raw channel file, e.g.
// /sys/bus/iio/devices/iio:device0/in_voltage0_raw
type IIOAnalog struct {
	path string
}

func NewIIOAnalog(path string) *IIOAnalog {
	return &IIOAnalog{path: path}
}

func (a *IIOAnalog) ReadRaw() (int, error) {
	errFactory := errors.New()

	data, err := os.ReadFile(a.path)
	if err != nil {
		return 0, errFactory.Wrap(ErrADCRead, err)
	}

	raw, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, errFactory.Wrap(ErrADCValue, err)
	}
	if !beam.Between(raw, 0, beam.FullScaleCount) {
		return 0, errFactory.WithData(ErrADCValue, raw)
	}

	return raw, nil
}
