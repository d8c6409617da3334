// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hal

import (
	"runtime"

	"github.com/Thermoquad/beacon/internal/errors"
	"github.com/Thermoquad/beacon/internal/logger"
	"github.com/denisbrodbeck/machineid"
)

const deviceIDApp = "beacon"

type HostConfig struct {
	ChipModel      string
	ChipRevision   int
	CPUFreqMHz     int
	FlashSizeBytes int64
	PSRAMSizeBytes int64
}

// Host reports Go runtime memory figures alongside configured board
// figures
type Host struct {
	cfg      HostConfig
	deviceID string
}

// NewHost resolves the machine ID once. Without one the device ID is
// "unknown".
func NewHost(cfg HostConfig, log logger.Logger) *Host {
	id, err := machineid.ProtectedID(deviceIDApp)
	if err != nil {
		log.Warn().
			Str("error_code", string(ErrDeviceID)).
			Err(errors.New().Wrap(ErrDeviceID, err)).
			Msg("Failed to read machine ID")
		id = "unknown"
	}
	return &Host{cfg: cfg, deviceID: id}
}

func (h *Host) ChipModel() string  { return h.cfg.ChipModel }
func (h *Host) ChipRevision() int  { return h.cfg.ChipRevision }
func (h *Host) CPUFreqMHz() int    { return h.cfg.CPUFreqMHz }
func (h *Host) FlashSize() int64   { return h.cfg.FlashSizeBytes }
func (h *Host) PSRAMSize() int64   { return h.cfg.PSRAMSizeBytes }
func (h *Host) FreePSRAM() int64   { return h.cfg.PSRAMSizeBytes }
func (h *Host) SDKVersion() string { return runtime.Version() }
func (h *Host) DeviceID() string   { return h.deviceID }

func (h *Host) HeapSize() int64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return int64(ms.HeapSys)
}

func (h *Host) FreeHeap() int64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return int64(ms.HeapIdle)
}

// Allocate reports whether an n byte block could be allocated and touched
func (h *Host) Allocate(n int) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	block := make([]byte, n)
	for i := range block {
		block[i] = byte(i)
	}
	return len(block) == n
}
