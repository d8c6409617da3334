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
	probeTimeout int
	probeCount   int
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check that a controller answers GET_INITIAL_STATE",
	Long: `Send GET_INITIAL_STATE and wait for the initial_state reply.

Each probe reports the laser state, brightness, firmware version and
controller uptime along with the round-trip time. Other lines (heartbeats,
text replies) are ignored.

This is useful for verifying:
  - The link is open and the baud rate matches
  - The controller is running its command loop
  - The WebSocket bridge forwards in both directions

Exit codes:
  0 - All probes answered
  1 - One or more probes failed/timed out
  2 - Connection error`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().IntVar(&probeTimeout, "timeout", 5, "Timeout in seconds for each probe")
	probeCmd.Flags().IntVar(&probeCount, "count", 3, "Number of probes to send")
}

func runProbe(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("Beacon - Controller Probe\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds per probe\n", probeTimeout)
	fmt.Printf("Count: %d probes\n\n", probeCount)

	done := make(chan struct{})
	defer close(done)
	events := streamLines(conn, done)

	successCount := 0
	failCount := 0

	for i := 1; i <= probeCount; i++ {
		fmt.Printf("Probe %d/%d: ", i, probeCount)

		// A reconnection push from an earlier probe must not answer this one
		discardPending(events)

		startTime := time.Now()
		if err := writeCommand(conn, beam.CmdGetInitialState); err != nil {
			fmt.Printf("SEND FAILED: %v\n", err)
			failCount++
			continue
		}

		state, err := awaitInitialState(events, time.Duration(probeTimeout)*time.Second)
		switch {
		case err != nil:
			fmt.Printf("%v\n", err)
			failCount++
		default:
			rtt := time.Since(startTime)
			uptime := time.Duration(state.UptimeMS) * time.Millisecond
			fmt.Printf("laser=%s brightness=%d%% version=%s uptime=%s, rtt=%v\n",
				beam.OnOff(state.LaserState), state.LaserBrightness, state.Version,
				beam.FormatUptime(uptime), rtt.Round(time.Millisecond))
			successCount++
		}

		if i < probeCount {
			time.Sleep(100 * time.Millisecond)
		}
	}

	fmt.Printf("\n--- Probe statistics ---\n")
	fmt.Printf("%d probes sent, %d answered, %.0f%% lost\n",
		probeCount, successCount, float64(failCount)/float64(probeCount)*100)

	if failCount > 0 {
		os.Exit(1)
	}
	return nil
}

// awaitInitialState waits for the next initial_state line
func awaitInitialState(events <-chan lineEvent, timeout time.Duration) (*beam.InitialState, error) {
	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil, fmt.Errorf("READ FAILED: connection closed")
			}
			if ev.err != nil || !ev.line.IsStructured() {
				continue
			}
			msg, err := beam.DecodeMessage(ev.line.Text())
			if err != nil || msg.InitialState == nil {
				continue
			}
			return msg.InitialState, nil

		case <-deadline:
			return nil, fmt.Errorf("TIMEOUT (no initial_state in %v)", timeout)
		}
	}
}

// discardPending drops lines already received
func discardPending(events <-chan lineEvent) {
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
