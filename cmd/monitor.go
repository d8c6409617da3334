// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/Thermoquad/beacon/internal/errors"
	"github.com/Thermoquad/beacon/pkg/beam"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var monitorPoll int

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Interactive TUI for monitoring and controlling a laser controller",
	Long: `Monitor and control a beacon controller via an interactive terminal UI.

Features:
  - Live laser state, brightness and PWM value
  - Telemetry from heartbeats and STATUS replies
  - Line statistics and anomaly tracking
  - Event log of text replies and errors
  - Command input with history
  - Automatic reconnection on connection loss

STATUS is polled every --poll seconds, which also keeps the controller
treating the host as connected.

Keys:
  Enter        send the typed command
  Up/Down      command history
  Ctrl+T       LASER_TOGGLE
  PgUp/PgDn    brightness +10 / -10
  Ctrl+C, Esc  quit

Supports both serial and WebSocket connections.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().IntVar(&monitorPoll, "poll", 2, "STATUS poll interval in seconds (0 disables)")
}

// connectionManager handles connection lifecycle and reconnection
type connectionManager struct {
	conn     Connection
	connInfo string
	mu       sync.RWMutex
	p        *tea.Program
	done     chan struct{}
}

func (cm *connectionManager) getConn() Connection {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.conn
}

func (cm *connectionManager) setConn(conn Connection, connInfo string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.conn = conn
	cm.connInfo = connInfo
}

// send writes one command line to the current connection
func (cm *connectionManager) send(command string) error {
	conn := cm.getConn()
	if conn == nil {
		return errors.New().New(errors.ErrLinkClosed)
	}
	return writeCommand(conn, command)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("monitor needs a terminal; use raw_log or validate instead")
	}

	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}

	cm := &connectionManager{
		conn:     conn,
		connInfo: connInfo,
		done:     make(chan struct{}),
	}

	m := initialMonitorModel(cm, connInfo, time.Duration(monitorPoll)*time.Second)

	p := tea.NewProgram(m, tea.WithAltScreen())
	cm.p = p

	go cm.readerLoop()

	// Announce ourselves; the controller answers with its initial state
	cm.send(beam.CmdGetInitialState)

	_, err = p.Run()
	close(cm.done)
	if c := cm.getConn(); c != nil {
		c.Close()
	}
	if err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}

// readerLoop handles reading from connection with automatic reconnection
func (cm *connectionManager) readerLoop() {
	for {
		select {
		case <-cm.done:
			return
		default:
		}

		connLost := cm.readFromConnection()

		if connLost {
			cm.p.Send(connectionLostMsg{})

			if !cm.reconnect() {
				return
			}
		}
	}
}

// readFromConnection forwards decoded lines to the TUI in batches until the
// connection fails. Returns true if the connection was lost, false if
// shutdown was requested.
func (cm *connectionManager) readFromConnection() bool {
	conn := cm.getConn()
	if conn == nil {
		return true
	}

	events := streamLines(conn, cm.done)

	// Batch updates so a burst of lines costs one redraw
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	var batch monitorBatchMsg
	for {
		select {
		case <-cm.done:
			return false

		case ev, ok := <-events:
			if !ok {
				if len(batch.lines) > 0 {
					cm.p.Send(batch)
				}
				select {
				case <-cm.done:
					return false
				default:
					return true
				}
			}
			batch.lines = append(batch.lines, decodeLineEvent(ev))

		case <-ticker.C:
			if len(batch.lines) > 0 {
				cm.p.Send(batch)
				batch = monitorBatchMsg{}
			}
		}
	}
}

// decodeLineEvent decodes and validates a received line
func decodeLineEvent(ev lineEvent) monitorLineMsg {
	if ev.err != nil {
		return monitorLineMsg{overlong: ev.err}
	}

	msg := monitorLineMsg{line: ev.line}
	if !ev.line.IsStructured() {
		return msg
	}

	decoded, err := beam.DecodeMessage(ev.line.Text())
	if err != nil {
		msg.decodeErr = err
		return msg
	}
	msg.msg = decoded
	msg.validationErrors = beam.ValidateMessage(decoded)
	return msg
}

// reconnect attempts to reconnect with exponential backoff
// Returns false if shutdown was requested during reconnection
func (cm *connectionManager) reconnect() bool {
	if conn := cm.getConn(); conn != nil {
		conn.Close()
	}

	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-cm.done:
			return false
		case <-time.After(backoff):
		}

		conn, connInfo, err := OpenConnection()
		if err == nil {
			cm.setConn(conn, connInfo)
			cm.p.Send(reconnectedMsg{connInfo: connInfo})
			cm.send(beam.CmdGetInitialState)
			return true
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}
