// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/Thermoquad/beacon/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("debug"))
	assert.Equal(t, WarnLevel, ParseLevel("warning"))
	assert.Equal(t, WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, ErrorLevel, ParseLevel("error"))
	assert.Equal(t, InfoLevel, ParseLevel("info"))
	assert.Equal(t, InfoLevel, ParseLevel("bogus"))
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "warning", true)
	t.Cleanup(func() { SetLogLevel(InfoLevel) })

	Info().Msg("hidden")
	Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestErrorWithCodeFields(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "debug", true)
	t.Cleanup(func() { SetLogLevel(InfoLevel) })

	err := errors.New().New(errors.ErrLinkOpen)
	Default().ErrorWithCode(err).Msg("open failed")

	out := buf.String()
	assert.Contains(t, out, "open failed")
	assert.Contains(t, out, string(errors.ErrLinkOpen))
}

func TestServiceOutputIsJSON(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "info", true)
	t.Cleanup(func() { SetLogLevel(InfoLevel) })

	Info().Str("link", "stdio").Msg("Controller starting")

	var line map[string]any
	assert.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "stdio", line["link"])
	assert.Equal(t, "Controller starting", line["message"])
}
