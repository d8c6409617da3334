// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Thermoquad/beacon/internal/errors"
	"github.com/Thermoquad/beacon/internal/logger"
	"github.com/Thermoquad/beacon/pkg/beam"
	"github.com/gorilla/websocket"
	"go.bug.st/serial"
	"golang.org/x/term"
)

// BridgePath is the HTTP path served by the WebSocket bridge
const BridgePath = "/beam"

// Connection provides a common interface for reading/writing bytes from serial or WebSocket
type Connection interface {
	io.Reader
	io.Writer
	io.Closer
}

// SerialConnection wraps a serial port
type SerialConnection struct {
	port serial.Port
}

func (s *SerialConnection) Read(p []byte) (int, error) {
	n, err := s.port.Read(p)
	if err == nil && n == 0 {
		// go.bug.st/serial reports a vanished port as a zero read
		return 0, ErrConnectionClosed
	}
	return n, err
}

func (s *SerialConnection) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *SerialConnection) Close() error {
	return s.port.Close()
}

// ErrConnectionClosed is returned when reading from a closed connection
var ErrConnectionClosed = errors.New().New(errors.ErrLinkClosed)

// WebSocketConnection wraps a WebSocket client connection. Each text
// message carries one or more protocol bytes; message boundaries are not
// significant.
type WebSocketConnection struct {
	conn      *websocket.Conn
	buf       []byte
	bufOffset int
	closed    bool
	writeMu   sync.Mutex
}

func (w *WebSocketConnection) Read(p []byte) (int, error) {
	if w.closed {
		return 0, ErrConnectionClosed
	}

	if w.bufOffset < len(w.buf) {
		n := copy(p, w.buf[w.bufOffset:])
		w.bufOffset += n
		return n, nil
	}

	for {
		_, data, err := w.conn.ReadMessage()
		if err != nil {
			w.closed = true
			return 0, ErrConnectionClosed
		}
		if len(data) == 0 {
			continue
		}

		w.buf = data
		w.bufOffset = copy(p, w.buf)
		return w.bufOffset, nil
	}
}

func (w *WebSocketConnection) Write(p []byte) (int, error) {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	if err := w.conn.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WebSocketConnection) Close() error {
	return w.conn.Close()
}

// StdioConnection reads commands from stdin and writes replies to stdout
type StdioConnection struct {
	in  io.Reader
	out io.Writer
}

func NewStdioConnection() *StdioConnection {
	return &StdioConnection{in: os.Stdin, out: os.Stdout}
}

func (s *StdioConnection) Read(p []byte) (int, error) {
	n, err := s.in.Read(p)
	if err == io.EOF {
		return n, ErrConnectionClosed
	}
	return n, err
}

func (s *StdioConnection) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

// Close leaves stdin open so a re-executed controller inherits it
func (s *StdioConnection) Close() error {
	return nil
}

// BridgeConnection is the controller side of the WebSocket bridge. It
// serves one client at a time on BridgePath; a new client replaces the
// previous one. Writes with no client attached are dropped, like bytes on
// an unplugged UART.
type BridgeConnection struct {
	server   *http.Server
	upgrader websocket.Upgrader
	incoming chan []byte
	done     chan struct{}

	mu     sync.Mutex
	client *websocket.Conn

	pending []byte
	once    sync.Once
}

// ListenWebSocketBridge starts serving the bridge on addr
func ListenWebSocketBridge(addr string) (*BridgeConnection, error) {
	b := newBridgeConnection(addr)

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- b.server.ListenAndServe()
	}()

	// Surface bind failures to the caller
	select {
	case err := <-listenErr:
		return nil, errors.New().Wrap(errors.ErrLinkOpen, err)
	case <-time.After(100 * time.Millisecond):
	}

	return b, nil
}

func newBridgeConnection(addr string) *BridgeConnection {
	b := &BridgeConnection{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		incoming: make(chan []byte, 16),
		done:     make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(BridgePath, b.handle)
	b.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return b
}

func (b *BridgeConnection) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("Bridge upgrade failed")
		return
	}

	b.mu.Lock()
	if b.client != nil {
		b.client.Close()
	}
	b.client = conn
	b.mu.Unlock()

	logger.Info().Str("remote", r.RemoteAddr).Msg("Bridge client connected")

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		select {
		case b.incoming <- data:
		case <-b.done:
			return
		}
	}

	b.mu.Lock()
	if b.client == conn {
		b.client = nil
	}
	b.mu.Unlock()
	conn.Close()

	logger.Info().Str("remote", r.RemoteAddr).Msg("Bridge client disconnected")
}

func (b *BridgeConnection) Read(p []byte) (int, error) {
	if len(b.pending) == 0 {
		select {
		case data := <-b.incoming:
			b.pending = data
		case <-b.done:
			return 0, ErrConnectionClosed
		}
	}

	n := copy(p, b.pending)
	b.pending = b.pending[n:]
	return n, nil
}

func (b *BridgeConnection) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client == nil {
		return len(p), nil
	}
	if err := b.client.WriteMessage(websocket.TextMessage, p); err != nil {
		b.client.Close()
		b.client = nil
		logger.Debug().Err(err).Msg("Bridge write failed, dropping client")
	}
	return len(p), nil
}

func (b *BridgeConnection) Close() error {
	var err error
	b.once.Do(func() {
		close(b.done)

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		err = b.server.Shutdown(ctx)

		b.mu.Lock()
		if b.client != nil {
			b.client.Close()
			b.client = nil
		}
		b.mu.Unlock()
	})
	return err
}

// OpenSerialConnection opens a serial port connection
func OpenSerialConnection(portName string, baudRate int) (Connection, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, errors.New().Wrap(errors.ErrLinkOpen, fmt.Errorf("serial port %s: %w", portName, err))
	}

	return &SerialConnection{port: port}, nil
}

// OpenWebSocketConnection opens a WebSocket connection with HTTP Basic auth
func OpenWebSocketConnection(wsURL, username, password string, skipSSLVerify bool) (Connection, error) {
	errFactory := errors.New()

	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrLinkOpen, fmt.Errorf("invalid URL: %w", err))
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, errFactory.WithData(errors.ErrLinkOpen,
			fmt.Sprintf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme))
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, errFactory.Wrap(errors.ErrLinkOpen, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err))
		}
		return nil, errFactory.Wrap(errors.ErrLinkOpen, fmt.Errorf("WebSocket connection failed: %w", err))
	}

	return &WebSocketConnection{conn: conn}, nil
}

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	if pw := os.Getenv("BEACON_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Not a terminal; read a plain line instead
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

var wsPassword string

// OpenConnection opens either a serial or WebSocket client connection based on flags
func OpenConnection() (Connection, string, error) {
	if wsURL != "" {
		// Prompt once; reconnects reuse the answer
		if wsUsername != "" && wsPassword == "" {
			var err error
			wsPassword, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}

		conn, err := OpenWebSocketConnection(wsURL, wsUsername, wsPassword, wsNoSSLVerify)
		if err != nil {
			return nil, "", err
		}

		return conn, fmt.Sprintf("WebSocket: %s", wsURL), nil
	}

	if portName != "" {
		conn, err := OpenSerialConnection(portName, baudRate)
		if err != nil {
			return nil, "", err
		}

		return conn, fmt.Sprintf("Serial: %s @ %d baud", portName, baudRate), nil
	}

	return nil, "", errors.New().WithMessage(errors.ErrLinkOpen, "either --port or --url must be specified")
}

// lineEvent is one decoded line, or the error for a line the decoder dropped
type lineEvent struct {
	line *beam.Line
	err  error
}

// streamLines decodes r into lines on a background goroutine. The channel
// closes when a read fails or done is closed.
func streamLines(r io.Reader, done <-chan struct{}) <-chan lineEvent {
	events := make(chan lineEvent, 64)

	go func() {
		defer close(events)

		decoder := beam.NewLineDecoder()
		buf := make([]byte, 128)
		for {
			n, err := r.Read(buf)
			for i := 0; i < n; i++ {
				line, decodeErr := decoder.DecodeByte(buf[i])
				if decodeErr == nil && line == nil {
					continue
				}
				select {
				case events <- lineEvent{line: line, err: decodeErr}:
				case <-done:
					return
				}
			}
			if err != nil {
				if !errors.Is(err, ErrConnectionClosed) {
					logger.Debug().Err(err).Msg("Read failed")
				}
				return
			}
		}
	}()

	return events
}

// writeCommand sends one command line
func writeCommand(w io.Writer, command string) error {
	_, err := w.Write([]byte(strings.TrimSpace(command) + "\n"))
	return err
}
