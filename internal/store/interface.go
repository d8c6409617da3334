// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package store

// Store is a namespaced integer preference store
type Store interface {
	// GetInt returns the value for key, or def when the key was never written
	GetInt(key string, def int) (int, error)
	PutInt(key string, value int) error
	Close() error
}

type Config struct {
	Backend   string
	Path      string
	Namespace string
}

const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"

	defaultDirPerm  = 0o755
	defaultFilePerm = 0o644
)
