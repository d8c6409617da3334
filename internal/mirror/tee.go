// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mirror

import (
	"bytes"
	"io"

	"github.com/Thermoquad/beacon/internal/errors"
	"github.com/Thermoquad/beacon/internal/logger"
	"github.com/Thermoquad/beacon/pkg/beam"
)

// TopicText receives free-text lines
const TopicText = "text"

// Tee passes writes to the link unchanged and publishes every complete line.
// Structured lines go to <prefix>/<type>, with initial_state retained; text
// lines go to <prefix>/text. Publish failures are logged and never fail the
// write.
type Tee struct {
	link    io.Writer
	pub     Publisher
	prefix  string
	log     logger.Logger
	decoder *beam.LineDecoder
}

func NewTee(link io.Writer, pub Publisher, prefix string, log logger.Logger) *Tee {
	return &Tee{
		link:    link,
		pub:     pub,
		prefix:  prefix,
		log:     log,
		decoder: beam.NewLineDecoderSize(64 * 1024),
	}
}

func (t *Tee) Write(p []byte) (int, error) {
	n, err := t.link.Write(p)
	if err != nil {
		return n, err
	}

	lines, _ := t.decoder.Decode(p[:n])
	for _, line := range lines {
		t.publish(line)
	}
	return n, nil
}

func (t *Tee) publish(line *beam.Line) {
	text := line.Text()
	if text == "" {
		return
	}

	topic := Topic(t.prefix, TopicText)
	retained := false

	if line.IsStructured() {
		msg, err := beam.DecodeMessage(text)
		if err != nil {
			t.log.Debug().Err(err).Msg("Skipping undecodable line")
			return
		}
		topic = Topic(t.prefix, string(msg.Type))
		retained = msg.Type == beam.TypeInitialState
	}

	if err := t.pub.Publish(topic, retained, bytes.Clone([]byte(text))); err != nil {
		t.log.Warn().
			Str("error_code", string(errors.CodeOf(err))).
			Str("topic", topic).
			Err(err).
			Msg("Failed to mirror line")
	}
}
