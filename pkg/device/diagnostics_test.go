// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"testing"
	"time"

	"github.com/Thermoquad/beacon/pkg/beam"
	"github.com/stretchr/testify/assert"
)

func TestDiagnostics_RestoresState(t *testing.T) {
	for _, wasOn := range []bool{false, true} {
		h := booted(t, quietConfig())
		h.ctl.Dispatch("SET_LASER_BRIGHTNESS:40")
		if wasOn {
			h.ctl.Dispatch("LASER_ON")
		}
		before := h.ctl.State()
		h.out.Reset()
		h.buf.Reset()
		start := h.clock.Now()

		h.ctl.Dispatch("DIAGNOSTICS")

		assert.Equal(t, before, h.ctl.State())
		assert.Equal(t, 40, h.store.values[beam.KeyBrightness])
		assert.GreaterOrEqual(t, h.clock.Now().Sub(start), beam.DiagnosticPulse)

		writes := h.out.Writes()
		assert.Contains(t, writes, beam.PWMFromBrightness(beam.DiagnosticLevel))
		assert.Equal(t, before.Duty(), writes[len(writes)-1])

		lines := h.lines()
		assert.Equal(t, "Running Laser Controller Diagnostics", lines[0])
		assert.Contains(t, lines, "A0 reading: 2048 (1.65V)")
		assert.Contains(t, lines, "Memory allocation test passed")
		assert.Equal(t, "Diagnostics completed", lines[len(lines)-1])
	}
}

func TestDiagnostics_NotReentrant(t *testing.T) {
	h := booted(t, quietConfig())
	h.clock.onSleep = func(d time.Duration) {
		if d == beam.DiagnosticPulse {
			h.ctl.Dispatch("DIAGNOSTICS")
		}
	}

	h.ctl.Dispatch("DIAGNOSTICS")

	assert.Equal(t, 1, h.count("Running Laser Controller Diagnostics"))
	assert.Equal(t, 1, h.count("Diagnostics completed"))
}

func TestMemoryTest(t *testing.T) {
	h := booted(t, quietConfig())
	h.ctl.Dispatch("MEMORY_TEST")
	h.host.allocOK = false
	h.ctl.Dispatch("MEMORY_TEST")

	assert.Equal(t, []string{
		"Heap: 280000/320000 bytes",
		"PSRAM: 0/0 bytes",
		"Memory allocation test passed",
		"Heap: 280000/320000 bytes",
		"PSRAM: 0/0 bytes",
		"Memory allocation test failed",
	}, h.lines())
}
