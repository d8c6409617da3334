// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package beam

import (
	"fmt"
	"strings"
	"time"
)

// Line is one complete protocol line
type Line struct {
	text      string
	timestamp time.Time
}

// NewLine creates a line stamped with the current time
func NewLine(text string) *Line {
	return &Line{text: text, timestamp: time.Now()}
}

// Text returns the line without terminator or surrounding whitespace
func (l *Line) Text() string {
	return l.text
}

// Timestamp returns when the terminator was decoded
func (l *Line) Timestamp() time.Time {
	return l.timestamp
}

// IsStructured reports whether the line looks like a JSON message
func (l *Line) IsStructured() bool {
	return strings.HasPrefix(l.text, "{")
}

const (
	stateCollect = iota
	stateDiscard
)

// LineDecoder splits a byte stream into trimmed lines. Lines longer than
// MaxLineLength are dropped up to the next terminator.
type LineDecoder struct {
	state  int
	buffer []byte
	max    int
}

// NewLineDecoder creates a decoder with the default line limit
func NewLineDecoder() *LineDecoder {
	return NewLineDecoderSize(MaxLineLength)
}

// NewLineDecoderSize creates a decoder with a custom line limit
func NewLineDecoderSize(max int) *LineDecoder {
	return &LineDecoder{
		state:  stateCollect,
		buffer: make([]byte, 0, max),
		max:    max,
	}
}

// Reset discards any partial line
func (d *LineDecoder) Reset() {
	d.state = stateCollect
	d.buffer = d.buffer[:0]
}

// Pending returns the bytes of the partial line collected so far
func (d *LineDecoder) Pending() []byte {
	return d.buffer
}

// DecodeByte processes a single byte.
// Returns a completed line, or nil if the line is incomplete.
// Returns an error when an over-long line is abandoned.
func (d *LineDecoder) DecodeByte(b byte) (*Line, error) {
	if b == LineTerminator {
		if d.state == stateDiscard {
			d.Reset()
			return nil, nil
		}
		line := NewLine(strings.TrimSpace(string(d.buffer)))
		d.Reset()
		return line, nil
	}

	if d.state == stateDiscard {
		return nil, nil
	}

	if len(d.buffer) >= d.max {
		d.state = stateDiscard
		d.buffer = d.buffer[:0]
		return nil, fmt.Errorf("line exceeds %d bytes, discarding", d.max)
	}

	d.buffer = append(d.buffer, b)
	return nil, nil
}

// Decode feeds p through the decoder and returns all completed lines and
// the decode errors encountered along the way
func (d *LineDecoder) Decode(p []byte) ([]*Line, []error) {
	var lines []*Line
	var errs []error
	for _, b := range p {
		line, err := d.DecodeByte(b)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if line != nil {
			lines = append(lines, line)
		}
	}
	return lines, errs
}
