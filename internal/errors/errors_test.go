// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package errors_test

import (
	"fmt"
	"testing"

	"github.com/Thermoquad/beacon/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessageFromCode(t *testing.T) {
	err := errors.New().New(errors.ErrLinkOpen)
	assert.Equal(t, "Failed to open link", err.Error())
	assert.Equal(t, errors.ErrLinkOpen, err.Code())
}

func TestWrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("no such device")
	err := errors.New().Wrap(errors.ErrLinkOpen, cause)

	assert.Equal(t, "Failed to open link: no such device", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestWithDataAndMessage(t *testing.T) {
	err := errors.New().WithData(errors.ErrInvalidConfig, "tick_ms=0")
	assert.Equal(t, "Invalid configuration: tick_ms=0", err.Error())
	assert.Equal(t, "tick_ms=0", err.GetData())

	renamed := err.WithMessage("bad loop settings")
	assert.Equal(t, "bad loop settings: tick_ms=0", renamed.Error())
	assert.Equal(t, errors.ErrInvalidConfig, renamed.Code())
}

func TestCodeMatching(t *testing.T) {
	err := fmt.Errorf("serve: %w", errors.New().New(errors.ErrRestartRequired))

	require.True(t, errors.HasCode(err, errors.ErrRestartRequired))
	assert.False(t, errors.HasCode(err, errors.ErrLinkOpen))
	assert.Equal(t, errors.ErrRestartRequired, errors.CodeOf(err))
	assert.Equal(t, errors.ErrInternal, errors.CodeOf(fmt.Errorf("plain")))
	assert.True(t, errors.Is(err, errors.New().New(errors.ErrRestartRequired)))
}

func TestUnknownCodeMessage(t *testing.T) {
	assert.Equal(t, "store_corrupt", errors.GetErrorMessage(errors.ErrorCode("store_corrupt")))
}
