// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	"github.com/Thermoquad/beacon/internal/errors"
	"github.com/Thermoquad/beacon/internal/logger"
	_ "github.com/mattn/go-sqlite3"
)

type sqliteStore struct {
	db        *sql.DB
	namespace string
	logger    logger.Logger
	mu        sync.Mutex
}

// NewSQLiteStore opens or creates the preference database at cfg.Path
func NewSQLiteStore(cfg Config, log logger.Logger) (Store, error) {
	errFactory := errors.New()

	if cfg.Path == "" {
		return nil, errFactory.New(ErrInvalidPath)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), defaultDirPerm); err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_directory",
			Path:  cfg.Path,
			Error: err.Error(),
		})
	}

	dsn := cfg.Path + "?_journal=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}

	if err := ValidateSchema(db, log); err != nil {
		db.Close()
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "schema_version",
			Error: err.Error(),
		})
	}

	log.Info().
		Str("path", cfg.Path).
		Str("namespace", cfg.Namespace).
		Int("schema_version", SchemaVersion).
		Msg("Preference store opened")

	return &sqliteStore{
		db:        db,
		namespace: cfg.Namespace,
		logger:    log,
	}, nil
}

func (s *sqliteStore) GetInt(key string, def int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var value int64
	err := s.db.QueryRow(selectPrefSQL, s.namespace, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return def, errors.New().Wrap(ErrStorageRead, err)
	}

	return int(value), nil
}

func (s *sqliteStore) PutInt(key string, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(upsertPrefSQL, s.namespace, key, int64(value)); err != nil {
		return errors.New().Wrap(ErrStorageWrite, err)
	}

	s.logger.Debug().Str("key", key).Int("value", value).Msg("Preference saved")
	return nil
}

func (s *sqliteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		s.logger.Debug().Err(err).Msg("Failed to checkpoint WAL")
	}

	if err := s.db.Close(); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}

	s.logger.Info().Msg("Preference store closed")
	return nil
}
