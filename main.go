// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Beacon - Serial Laser Controller
//
// Runs the laser controller on a serial, stdio or WebSocket link, and
// provides the host-side tools to drive and inspect it.

package main

import (
	"os"

	"github.com/Thermoquad/beacon/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
