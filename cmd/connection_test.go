// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Thermoquad/beacon/internal/config"
	"github.com/Thermoquad/beacon/internal/errors"
	"github.com/Thermoquad/beacon/pkg/beam"
	"github.com/gorilla/websocket"
)

func collectLines(t *testing.T, events <-chan lineEvent) ([]string, []error) {
	t.Helper()

	var lines []string
	var errs []error
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return lines, errs
			}
			if ev.err != nil {
				errs = append(errs, ev.err)
				continue
			}
			lines = append(lines, ev.line.Text())
		case <-timeout:
			t.Fatal("line stream did not close")
		}
	}
}

func TestStreamLinesSplitsAndTrims(t *testing.T) {
	r := strings.NewReader("LASER_ON\r\n  STATUS \n\nSET_LASER_BRIGHTNESS:40\npartial")

	done := make(chan struct{})
	defer close(done)

	lines, errs := collectLines(t, streamLines(r, done))

	want := []string{"LASER_ON", "STATUS", "", "SET_LASER_BRIGHTNESS:40"}
	if len(errs) != 0 {
		t.Fatalf("unexpected decode errors: %v", errs)
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines %q, want %d", len(lines), lines, len(want))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestStreamLinesReportsOverlong(t *testing.T) {
	long := strings.Repeat("X", beam.MaxLineLength+10)
	r := strings.NewReader(long + "\nSTATUS\n")

	done := make(chan struct{})
	defer close(done)

	lines, errs := collectLines(t, streamLines(r, done))

	if len(errs) != 1 {
		t.Errorf("got %d decode errors, want 1", len(errs))
	}
	if len(lines) != 1 || lines[0] != "STATUS" {
		t.Errorf("got lines %q, want [STATUS]", lines)
	}
}

func TestStreamLinesStopsOnDone(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	done := make(chan struct{})
	events := streamLines(pr, done)

	go pw.Write([]byte("A\nB\n"))

	first := <-events
	if first.line == nil || first.line.Text() != "A" {
		t.Fatalf("got %+v, want line A", first)
	}

	close(done)
	pw.Close()

	select {
	case <-drain(events):
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop after done")
	}
}

func drain(events <-chan lineEvent) <-chan struct{} {
	finished := make(chan struct{})
	go func() {
		for range events {
		}
		close(finished)
	}()
	return finished
}

func TestCommandLinesSkipsDroppedLines(t *testing.T) {
	long := strings.Repeat("Y", beam.MaxLineLength+1)
	r := strings.NewReader("LASER_ON\n" + long + "\nLASER_OFF\n")

	done := make(chan struct{})
	defer close(done)

	var got []string
	for line := range commandLines(r, done) {
		got = append(got, line)
	}

	if len(got) != 2 || got[0] != "LASER_ON" || got[1] != "LASER_OFF" {
		t.Errorf("got %q, want [LASER_ON LASER_OFF]", got)
	}
}

type bufferConn struct {
	strings.Builder
}

func (b *bufferConn) Read([]byte) (int, error) { return 0, io.EOF }
func (b *bufferConn) Close() error             { return nil }

func TestWriteCommandTerminatesLine(t *testing.T) {
	var conn bufferConn
	if err := writeCommand(&conn, "  STATUS \r"); err != nil {
		t.Fatal(err)
	}
	if conn.String() != "STATUS\n" {
		t.Errorf("got %q, want %q", conn.String(), "STATUS\n")
	}
}

func TestOpenDeviceLinkRequiresLink(t *testing.T) {
	_, _, err := openDeviceLink(config.LinkConfig{})
	if !errors.HasCode(err, errors.ErrLinkOpen) {
		t.Errorf("got %v, want code %s", err, errors.ErrLinkOpen)
	}
}

func TestOpenWebSocketConnectionRejectsScheme(t *testing.T) {
	_, err := OpenWebSocketConnection("http://localhost/beam", "", "", false)
	if !errors.HasCode(err, errors.ErrLinkOpen) {
		t.Errorf("got %v, want code %s", err, errors.ErrLinkOpen)
	}
}

func TestBridgeRelaysBothWays(t *testing.T) {
	bridge := newBridgeConnection("")
	srv := httptest.NewServer(bridge.server.Handler)
	defer srv.Close()
	defer bridge.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + BridgePath
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	if err := client.WriteMessage(websocket.TextMessage, []byte("LASER_ON\n")); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 64)
	n, err := bridge.Read(buf)
	if err != nil {
		t.Fatal(err)
	}
	if string(buf[:n]) != "LASER_ON\n" {
		t.Errorf("bridge read %q", buf[:n])
	}

	if _, err := bridge.Write([]byte("Laser ON\n")); err != nil {
		t.Fatal(err)
	}

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := client.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "Laser ON\n" {
		t.Errorf("client read %q", data)
	}
}

func TestBridgeDropsWritesWithoutClient(t *testing.T) {
	bridge := newBridgeConnection("")
	defer bridge.Close()

	n, err := bridge.Write([]byte("heartbeat\n"))
	if err != nil || n != len("heartbeat\n") {
		t.Errorf("got (%d, %v), want full write without error", n, err)
	}
}

func TestBridgeReadAfterClose(t *testing.T) {
	bridge := newBridgeConnection("")
	bridge.Close()

	_, err := bridge.Read(make([]byte, 8))
	if !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("got %v, want ErrConnectionClosed", err)
	}
}
