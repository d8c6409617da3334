// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beam

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Between reports lo <= v && v <= hi
func Between[T constraints.Ordered](v, lo, hi T) bool {
	return v >= lo && v <= hi
}

// PWMFromBrightness maps a brightness percentage onto the 8-bit duty range,
// rounding half up. Input is clamped to [0,100].
func PWMFromBrightness(pct int) int {
	pct = Clamp(pct, BrightnessMin, BrightnessMax)
	return (pct*PWMMax + BrightnessMax/2) / BrightnessMax
}

// VoltageFromRaw converts a raw 12-bit sample to volts
func VoltageFromRaw(raw int) float64 {
	return float64(raw) * ReferenceVoltage / FullScaleCount
}
