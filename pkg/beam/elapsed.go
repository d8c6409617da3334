// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beam

import (
	"fmt"
	"strings"
	"time"
)

// FormatClock formats an elapsed duration as H:MM:SS. Hours are not padded
// and may exceed 23.
func FormatClock(d time.Duration) string {
	total := int64(d / time.Second)
	if total < 0 {
		total = 0
	}
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
}

// FormatUptime formats an elapsed duration as "[Dd ][Hh ][Mm ]Ss". A unit
// is shown once it or any larger unit is non-zero.
func FormatUptime(d time.Duration) string {
	total := int64(d / time.Second)
	if total < 0 {
		total = 0
	}
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	var b strings.Builder
	if days > 0 {
		fmt.Fprintf(&b, "%dd ", days)
	}
	if hours > 0 || days > 0 {
		fmt.Fprintf(&b, "%dh ", hours)
	}
	if minutes > 0 || hours > 0 || days > 0 {
		fmt.Fprintf(&b, "%dm ", minutes)
	}
	fmt.Fprintf(&b, "%ds", seconds)
	return b.String()
}

// FormatVoltage renders a raw sample as "raw (v.vvV)"
func FormatVoltage(raw int) string {
	return fmt.Sprintf("%d (%s)", raw, Volts(VoltageFromRaw(raw)))
}
