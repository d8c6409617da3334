// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/beacon/internal/errors"
	"github.com/Thermoquad/beacon/internal/logger"
	"github.com/Thermoquad/beacon/pkg/beam"
	"github.com/spf13/cobra"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

var portsProbe bool

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	Long: `List the serial ports on this machine with their USB identifiers.

With --probe, each USB port is opened at --baud and sent GET_INITIAL_STATE;
ports that answer with an initial_state line are marked as controllers.`,
	RunE: runPorts,
}

func init() {
	rootCmd.AddCommand(portsCmd)
	portsCmd.Flags().BoolVar(&portsProbe, "probe", false, "Probe USB ports for a controller")
}

func runPorts(cmd *cobra.Command, args []string) error {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return errors.New().Wrap(errors.ErrOperationFailed, err)
	}

	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}

	for _, port := range ports {
		fmt.Printf("%s\n", port.Name)
		if port.IsUSB {
			fmt.Printf("  USB ID:  %s:%s\n", port.VID, port.PID)
			if port.SerialNumber != "" {
				fmt.Printf("  Serial:  %s\n", port.SerialNumber)
			}
			if port.Product != "" {
				fmt.Printf("  Product: %s\n", port.Product)
			}
		}

		if portsProbe && port.IsUSB {
			if version, ok := probePort(port.Name, baudRate); ok {
				fmt.Printf("  Beacon:  firmware %s\n", version)
			} else {
				fmt.Printf("  Beacon:  no answer\n")
			}
		}
	}

	return nil
}

// probePort asks the port for its initial state and returns the reported
// firmware version
func probePort(name string, baud int) (string, bool) {
	p, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		logger.Debug().Err(err).Str("port", name).Msg("Could not open port to probe")
		return "", false
	}
	defer p.Close()

	if err := p.SetReadTimeout(500 * time.Millisecond); err != nil {
		return "", false
	}
	if err := writeCommand(p, beam.CmdGetInitialState); err != nil {
		return "", false
	}

	// Skip banners and heartbeats until the reply or a quiet read
	reader := bufio.NewReader(p)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		text, err := reader.ReadString('\n')
		if err != nil && text == "" {
			return "", false
		}
		msg, err := beam.DecodeMessage(strings.TrimSpace(text))
		if err == nil && msg.InitialState != nil {
			return msg.InitialState.Version, true
		}
	}

	return "", false
}
