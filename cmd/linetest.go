// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/beacon/pkg/beam"
	"github.com/spf13/cobra"
)

var lineTestTimeout int

var lineTestCmd = &cobra.Command{
	Use:   "line_test",
	Short: "Test connection by waiting for a valid structured line",
	Long: `Wait for a valid Beam message on the connection until timeout.

This command connects to a serial port or WebSocket and waits, without
sending anything, for any line that decodes as a structured message
(usually a heartbeat). Partial and text lines are skipped.

Exit codes:
  0 - Message received before timeout
  1 - Timeout reached without receiving a valid message
  2 - Connection error

Useful for checking a link without disturbing the controller's connection
tracking. Heartbeats must be enabled, or use probe instead.`,
	RunE: runLineTest,
}

func init() {
	rootCmd.AddCommand(lineTestCmd)
	lineTestCmd.Flags().IntVar(&lineTestTimeout, "timeout", 10, "Timeout in seconds to wait for a message")
}

func runLineTest(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Beacon - Line Test\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n", lineTestTimeout)
	fmt.Printf("Waiting for valid message...\n\n")

	done := make(chan struct{})
	defer close(done)
	events := streamLines(conn, done)

	skipped := 0
	deadline := time.After(time.Duration(lineTestTimeout) * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				fmt.Fprintf(os.Stderr, "Read error: connection closed\n")
				os.Exit(2)
			}
			if ev.err != nil {
				skipped++
				continue
			}

			msg, err := beam.DecodeMessage(ev.line.Text())
			if err != nil {
				skipped++
				continue
			}

			if skipped > 0 {
				fmt.Printf("(skipped %d lines before sync)\n", skipped)
			}
			on, brightness := msg.LaserState()
			fmt.Printf("SUCCESS: Received valid message\n")
			fmt.Printf("  Type: %s\n", msg.Type)
			fmt.Printf("  Laser: %s, Brightness: %d%%\n", beam.OnOff(on), brightness)
			fmt.Printf("  Uptime: %s\n", beam.FormatClock(time.Duration(msg.Uptime())*time.Millisecond))
			fmt.Printf("  Length: %d bytes\n", len(ev.line.Text()))
			if problems := beam.ValidateMessage(msg); len(problems) > 0 {
				fmt.Printf("  Anomalies: %d (run validate for details)\n", len(problems))
			}
			return nil

		case <-deadline:
			fmt.Fprintf(os.Stderr, "TIMEOUT: No valid message received within %d seconds\n", lineTestTimeout)
			os.Exit(1)
		}
	}
}
