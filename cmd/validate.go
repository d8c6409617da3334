// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"time"

	"github.com/Thermoquad/beacon/internal/logger"
	"github.com/Thermoquad/beacon/pkg/beam"
	"github.com/spf13/cobra"
)

var (
	showAll       bool
	statsInterval int
	pollInterval  int
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Detect and analyze malformed lines and anomalous telemetry",
	Long: `Track decode errors and anomalous values with statistics.

This command decodes every structured line and detects:
  - Undecodable JSON and unknown message types
  - Over-long lines dropped by the line decoder
  - Brightness outside 0-100 and pwm values that do not match it
  - Analog readings outside the 12-bit range and voltages that do not match
  - Timestamps that disagree with uptime_ms
  - Firmware version changes and controller reboots (uptime going backwards)

By default, only errors are displayed. Use --show-all to display valid lines too.

Lines are validated in real-time, with errors highlighted immediately and
periodic statistics summaries displayed at configurable intervals.

With --poll, STATUS is requested periodically so status fields are checked
as well and the controller keeps the host marked as connected.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all lines (not just errors)")
	validateCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	validateCmd.Flags().IntVar(&pollInterval, "poll", 0, "Send STATUS every N seconds (0 disables)")
}

// printDecodeError prints a decode error in highlighted format
func printDecodeError(line *beam.Line, err error) {
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;31mDECODE ERROR:\033[0m %v\n", timestamp, err)
	if line != nil {
		fmt.Printf("  %s\n", line.Text())
	}
	fmt.Printf("  >>> LINE REJECTED <<<\n\n")
}

// printValidationErrors prints validation errors for a message
func printValidationErrors(line *beam.Line, msg *beam.Message, errors []beam.ValidationError) {
	timestamp := line.Timestamp().Format("15:04:05.000")

	fmt.Printf("[%s] \033[1;33mVALIDATION ERROR:\033[0m %s\n", timestamp, msg.Type)
	fmt.Printf("  JSON: \033[1;32mOK\033[0m\n")

	for i, err := range errors {
		switch err.Type {
		case beam.AnomalyBrightnessRange, beam.AnomalyAnalogRange:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)

		case beam.AnomalyPWMMismatch:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)
			if pwm, ok := err.Details["pwm"].(int); ok {
				if expected, ok := err.Details["expected"].(int); ok {
					fmt.Printf("    pwm=%d, expected=%d\n", pwm, expected)
				}
			}

		case beam.AnomalyVoltageMismatch:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)

		case beam.AnomalyTimestampMismatch:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)
			if ts, ok := err.Details["timestamp"].(string); ok {
				if expected, ok := err.Details["expected"].(string); ok {
					fmt.Printf("    timestamp=%s, expected=%s\n", ts, expected)
				}
			}

		default:
			fmt.Printf("  Issue %d: %s\n", i+1, err.Message)
		}
	}

	on, brightness := msg.LaserState()
	fmt.Printf("  Laser: %s, Brightness: %d%%, Uptime: %dms\n", beam.OnOff(on), brightness, msg.Uptime())
	fmt.Printf("  >>> MESSAGE FLAGGED <<<\n\n")
}

func runValidate(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Beacon - Validation Mode\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All lines\n")
	} else {
		fmt.Printf("Mode: Errors only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	done := make(chan struct{})
	defer close(done)
	events := streamLines(conn, done)

	stats := beam.NewStatistics()

	// The first line may start mid-stream; ignore errors until one decodes
	synchronized := false
	skippedBeforeSync := 0

	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	var poll <-chan time.Time
	if pollInterval > 0 {
		pollTicker := time.NewTicker(time.Duration(pollInterval) * time.Second)
		defer pollTicker.Stop()
		poll = pollTicker.C
		if err := writeCommand(conn, beam.CmdStatus); err != nil {
			return err
		}
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				fmt.Println()
				fmt.Print(stats.String())
				logger.Info().Msg("Connection closed")
				return nil
			}

			if ev.err != nil {
				stats.RecordOverlong()
				printDecodeError(nil, ev.err)
				continue
			}

			line := ev.line
			if !line.IsStructured() {
				stats.Update(line, nil, nil, nil)
				if showAll {
					fmt.Print(beam.FormatLine(line))
				}
				continue
			}

			msg, decodeErr := beam.DecodeMessage(line.Text())
			if decodeErr != nil {
				if !synchronized {
					skippedBeforeSync++
					continue
				}
				stats.Update(line, nil, decodeErr, nil)
				printDecodeError(line, decodeErr)
				continue
			}

			if !synchronized {
				synchronized = true
				if skippedBeforeSync > 0 {
					fmt.Printf("[SYNC] Synchronized after skipping %d partial lines\n\n", skippedBeforeSync)
				} else {
					fmt.Printf("[SYNC] Synchronized\n\n")
				}
			}

			validationErrors := beam.ValidateMessage(msg)
			stats.Update(line, msg, nil, validationErrors)

			if len(validationErrors) > 0 {
				printValidationErrors(line, msg, validationErrors)
			} else if showAll {
				fmt.Print(beam.FormatLine(line))
			}

		case <-poll:
			if err := writeCommand(conn, beam.CmdStatus); err != nil {
				logger.Warn().Err(err).Msg("STATUS poll failed")
			}

		case <-statsTicker.C:
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Println()
		}
	}
}
