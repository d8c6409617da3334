// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import "github.com/Thermoquad/beacon/internal/errors"

const (
	// Collaborator Errors
	ErrStoreRead   = errors.ErrorCode("device_store_read_failed")
	ErrStoreWrite  = errors.ErrorCode("device_store_write_failed")
	ErrOutputWrite = errors.ErrorCode("device_output_write_failed")
	ErrAnalogRead  = errors.ErrorCode("device_analog_read_failed")
	ErrEmit        = errors.ErrorCode("device_emit_failed")

	// Lifecycle Errors
	ErrLinkClosed      = errors.ErrLinkClosed
	ErrRestartRequired = errors.ErrRestartRequired
)
