// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"github.com/Thermoquad/beacon/pkg/beam"
)

const allocationProbeBytes = 1000 * 4

func (c *Controller) sendVersion() {
	info := c.cfg.Info
	c.emitf("Firmware Version: %s", beam.FirmwareVersion)
	c.emitf("Build Date: %s %s", info.BuildDate, info.BuildTime)
	c.emitf("Hardware: %s", c.deps.Host.ChipModel())
	c.emitf("Laser Pin: GPIO %d", info.LaserPin)
}

func (c *Controller) sendLaserStatus() {
	c.emitf("Laser State: %s", beam.OnOff(c.state.LaserOn))
	c.emitf("Laser Brightness: %d%%", c.state.Brightness)
	c.emitf("PWM Value: %d/%d", c.state.PWM, beam.PWMMax)
}

func (c *Controller) sendSystemInfo() {
	host := c.deps.Host
	info := c.cfg.Info

	c.emitf("%s Laser Controller System Information v%s", host.ChipModel(), beam.FirmwareVersion)
	c.emitf("Hardware: %s Rev %d", host.ChipModel(), host.ChipRevision())
	c.emitf("Device ID: %s", host.DeviceID())
	c.emitf("CPU Frequency: %d MHz", host.CPUFreqMHz())
	c.emitf("Flash Size: %d MB", host.FlashSize()/1024/1024)
	c.emitf("Heap Size: %d bytes", host.HeapSize())
	c.emitf("Free Heap: %d bytes", host.FreeHeap())
	c.emitf("SDK Version: %s", host.SDKVersion())
	c.emitf("Build: %s %s", info.BuildDate, info.BuildTime)
	c.emitf("Boot Time: %s", beam.FormatUptime(c.Uptime()))
	c.emitf("Laser Pin: GPIO %d", info.LaserPin)
	c.emitf("Laser State: %s", beam.OnOff(c.state.LaserOn))
	c.emitf("Laser Brightness: %d%% (saved in preferences)", c.state.Brightness)
	if c.state.HeartbeatEnabled {
		c.emitf("Heartbeat Interval: %d seconds", c.state.HeartbeatInterval.Milliseconds()/1000)
	}
}

func (c *Controller) runDiagnostics() {
	if c.diagnosing {
		c.log.Warn().Msg("Diagnostics already running")
		return
	}
	c.diagnosing = true
	defer func() { c.diagnosing = false }()

	c.log.Info().Msg("Running diagnostics")
	c.emit("Running Laser Controller Diagnostics")

	wasOn := c.state.LaserOn
	brightness := c.state.Brightness

	c.setBrightness(beam.DiagnosticLevel)
	c.setLaser(true)
	c.clock.Sleep(beam.DiagnosticPulse)
	c.setLaser(false)

	c.setBrightness(brightness)
	c.setLaser(wasOn)

	c.emitf("A0 reading: %s", beam.FormatVoltage(c.readAnalog()))
	c.memoryTest()
	c.emit("Diagnostics completed")
}

func (c *Controller) memoryTest() {
	host := c.deps.Host
	c.emitf("Heap: %d/%d bytes", host.FreeHeap(), host.HeapSize())
	c.emitf("PSRAM: %d/%d bytes", host.FreePSRAM(), host.PSRAMSize())

	if host.Allocate(allocationProbeBytes) {
		c.emit("Memory allocation test passed")
	} else {
		c.log.Warn().Int("bytes", allocationProbeBytes).Msg("Allocation probe failed")
		c.emit("Memory allocation test failed")
	}
}

var helpText = []string{
	"Laser Control:",
	"  LASER_ON                    - Turn on laser",
	"  LASER_OFF                   - Turn off laser",
	"  LASER_TOGGLE                - Toggle laser state",
	"  SET_LASER_PWM:value         - Set laser brightness (0-100%) - SAVED",
	"  SET_LASER_BRIGHTNESS:value  - Set laser brightness (0-100%) - SAVED",
	"  LASER_STATUS                - Show laser status",
	"Reading:",
	"  ANALOG_READ         - Read analog value from A0",
	"System:",
	"  STATUS              - Get device status (JSON)",
	"  SYSTEM_INFO         - Show detailed system info",
	"  VERSION             - Show firmware version",
	"  GET_INITIAL_STATE   - Get current device state (JSON)",
	"  DIAGNOSTICS         - Run system diagnostics",
	"  MEMORY_TEST         - Test memory allocation",
	"  RESTART             - Restart the controller",
	"Heartbeat Control:",
	"  HEARTBEAT_ON        - Enable periodic heartbeat",
	"  HEARTBEAT_OFF       - Disable heartbeat",
	"  HEARTBEAT_INTERVAL:ms - Set heartbeat interval (1000-60000)",
	"Examples:",
	"  SET_LASER_PWM:75          - Set laser to 75% brightness",
	"  HEARTBEAT_INTERVAL:5000   - 5 second heartbeat",
}

func (c *Controller) sendHelp() {
	c.emitf("%s Laser Controller v%s Commands", c.deps.Host.ChipModel(), beam.FirmwareVersion)
	for _, line := range helpText {
		c.emit(line)
	}
	c.emitf("Laser Pin: GPIO %d", c.cfg.Info.LaserPin)
	c.emit("Safety: Laser automatically turns off on restart")
	c.emit("Note: Brightness values are automatically saved and restored on power cycle")
	c.emit("      Device state is automatically sent on connection detection")
}
