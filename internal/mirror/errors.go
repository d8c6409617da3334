// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package mirror

import "github.com/Thermoquad/beacon/internal/errors"

const (
	ErrInvalidBroker = errors.ErrorCode("mirror_invalid_broker")
	ErrConnect       = errors.ErrorCode("mirror_connect_failed")
	ErrPublish       = errors.ErrorCode("mirror_publish_failed")
	ErrTimeout       = errors.ErrTimeout
)
