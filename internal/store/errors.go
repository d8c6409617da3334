// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package store

import "github.com/Thermoquad/beacon/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig  = errors.ErrInvalidConfig
	ErrInvalidPath    = errors.ErrorCode("store_invalid_path")
	ErrUnknownBackend = errors.ErrorCode("store_unknown_backend")

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("store_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("store_schema_validation_failed")

	// Storage Errors
	ErrStorageInit   = errors.ErrInitFailed
	ErrStorageClose  = errors.ErrShutdownFailed
	ErrStorageRead   = errors.ErrorCode("store_read_failed")
	ErrStorageWrite  = errors.ErrorCode("store_write_failed")
	ErrCorruptRecord = errors.ErrorCode("store_corrupt_record")
)
