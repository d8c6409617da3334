// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/Thermoquad/beacon/internal/logger"
	"github.com/Thermoquad/beacon/pkg/beam"
	"github.com/spf13/cobra"
)

var rawLogHello bool

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display the line log in human-readable format",
	Long: `Continuously decode and display Beam lines as they arrive.

Each line is printed with its receive timestamp. Structured lines
(initial_state, heartbeat, status) are expanded field by field; text
replies are printed as-is.

With --hello, GET_INITIAL_STATE is sent on connect so the log starts with
the controller's current state.

Supports both serial and WebSocket connections.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().BoolVar(&rawLogHello, "hello", false, "Request the initial state on connect")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Beacon - Raw Line Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	if rawLogHello {
		if err := writeCommand(conn, beam.CmdGetInitialState); err != nil {
			return err
		}
	}

	done := make(chan struct{})
	defer close(done)

	for ev := range streamLines(conn, done) {
		if ev.err != nil {
			fmt.Printf("[ERROR] %v\n", ev.err)
			continue
		}
		fmt.Print(beam.FormatLine(ev.line))
	}

	logger.Info().Msg("Connection closed")
	return nil
}
