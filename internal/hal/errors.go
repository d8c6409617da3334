// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hal

import "github.com/Thermoquad/beacon/internal/errors"

const (
	ErrPWMInit     = errors.ErrorCode("hal_pwm_init_failed")
	ErrPWMWrite    = errors.ErrorCode("hal_pwm_write_failed")
	ErrADCRead     = errors.ErrorCode("hal_adc_read_failed")
	ErrADCValue    = errors.ErrorCode("hal_adc_invalid_value")
	ErrDeviceID    = errors.ErrorCode("hal_device_id_failed")
	ErrRestartExec = errors.ErrRestartFailed
)
