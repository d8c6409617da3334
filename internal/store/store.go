// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package store persists controller preferences across restarts.
package store

import (
	"github.com/Thermoquad/beacon/internal/errors"
	"github.com/Thermoquad/beacon/internal/logger"
)

// Open creates the store selected by cfg.Backend
func Open(cfg Config, log logger.Logger) (Store, error) {
	errFactory := errors.New()

	if cfg.Namespace == "" {
		return nil, errFactory.WithData(ErrInvalidConfig, "empty namespace")
	}

	switch cfg.Backend {
	case BackendSQLite:
		return NewSQLiteStore(cfg, log)
	case BackendFile:
		return NewFileStore(cfg, log)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, errFactory.WithData(ErrUnknownBackend, cfg.Backend)
	}
}
