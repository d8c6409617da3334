// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package device implements the beacon laser controller: the command
// dispatcher, device state, telemetry and presence tracking that sit behind
// the Beam line protocol.
//
// Hardware, storage and process control are reached through the small
// interfaces declared here. The controller itself is single-threaded; all
// calls must come from the goroutine driving Runner.
package device

import "time"

// Store is durable integer key/value storage. A missing key yields def
// with a nil error.
type Store interface {
	GetInt(key string, def int) (int, error)
	PutInt(key string, value int) error
}

// Output is the PWM output driving the laser, duty 0-255
type Output interface {
	Write(duty int) error
}

// AnalogInput is a sampled analog channel, raw 0-4095
type AnalogInput interface {
	ReadRaw() (int, error)
}

// HostMetrics reports figures about the machine the controller runs on
type HostMetrics interface {
	ChipModel() string
	ChipRevision() int
	CPUFreqMHz() int
	FlashSize() int64
	HeapSize() int64
	FreeHeap() int64
	PSRAMSize() int64
	FreePSRAM() int64
	SDKVersion() string
	DeviceID() string
	// Allocate reports whether a block of n bytes could be obtained
	Allocate(n int) bool
}

// Restarter restarts the controller process
type Restarter interface {
	Restart()
}

// Clock supplies time to the controller. Sleep blocks the caller.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// SystemClock is the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time        { return time.Now() }
func (SystemClock) Sleep(d time.Duration) { time.Sleep(d) }
