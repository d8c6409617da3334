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

var (
	sendWait  float64
	sendRaw   bool
	sendDelay int
)

var sendCmd = &cobra.Command{
	Use:   "send COMMAND...",
	Short: "Send commands to a controller and print the replies",
	Long: `Send one or more Beam commands and print every line received until
--wait seconds after the last command.

Commands are sent in order, one per line, --delay milliseconds apart so
each lands in its own controller tick. Unknown commands are sent as-is;
the controller ignores them.

Examples:
  beacon send --port /dev/ttyUSB0 LASER_ON STATUS
  beacon send --url ws://bench.local:8080/beam SET_LASER_BRIGHTNESS:75

Exit codes:
  0 - Commands sent
  2 - Connection or write error`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().Float64Var(&sendWait, "wait", 1.5, "Seconds to keep printing replies after the last command")
	sendCmd.Flags().BoolVar(&sendRaw, "raw", false, "Print lines exactly as received")
	sendCmd.Flags().IntVar(&sendDelay, "delay", 50, "Delay between commands in milliseconds")
}

func runSend(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Fprintf(os.Stderr, "Connection: %s\n", connInfo)

	done := make(chan struct{})
	defer close(done)
	events := streamLines(conn, done)

	for i, command := range args {
		parsed := beam.ParseCommand(command)
		if !parsed.Valid() {
			fmt.Fprintf(os.Stderr, "warning: %q is not a known command\n", command)
		}

		if err := writeCommand(conn, command); err != nil {
			fmt.Fprintf(os.Stderr, "SEND FAILED: %v\n", err)
			os.Exit(2)
		}

		if i < len(args)-1 {
			drainLines(events, time.Duration(sendDelay)*time.Millisecond)
		}
	}

	drainLines(events, time.Duration(sendWait*float64(time.Second)))
	return nil
}

// drainLines prints received lines until d has passed or the link closes
func drainLines(events <-chan lineEvent, d time.Duration) {
	deadline := time.After(d)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			printLineEvent(ev)
		case <-deadline:
			return
		}
	}
}

func printLineEvent(ev lineEvent) {
	if ev.err != nil {
		fmt.Printf("[ERROR] %v\n", ev.err)
		return
	}
	if sendRaw {
		fmt.Println(ev.line.Text())
		return
	}
	fmt.Print(beam.FormatLine(ev.line))
}
