// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package store

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/Thermoquad/beacon/internal/errors"
	"github.com/Thermoquad/beacon/internal/logger"
	"github.com/fxamacker/cbor/v2"
)

// fileRecord is the on-disk layout: namespace -> key -> value
type fileRecord map[string]map[string]int64

type fileStore struct {
	path      string
	namespace string
	logger    logger.Logger

	mu      sync.Mutex
	data    fileRecord
	loadErr error
}

// NewFileStore opens a CBOR preference file at cfg.Path. A missing file is
// an empty store. An undecodable file is kept on disk; reads fail until the
// first write replaces it.
func NewFileStore(cfg Config, log logger.Logger) (Store, error) {
	errFactory := errors.New()

	if cfg.Path == "" {
		return nil, errFactory.New(ErrInvalidPath)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), defaultDirPerm); err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	s := &fileStore{
		path:      cfg.Path,
		namespace: cfg.Namespace,
		logger:    log,
		data:      fileRecord{},
	}

	raw, err := os.ReadFile(cfg.Path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, errFactory.Wrap(ErrStorageInit, err)
	default:
		if err := cbor.Unmarshal(raw, &s.data); err != nil {
			s.loadErr = errFactory.Wrap(ErrCorruptRecord, err)
			s.data = fileRecord{}
			log.Warn().
				Str("error_code", string(ErrCorruptRecord)).
				Str("path", cfg.Path).
				Err(err).
				Msg("Preference file is corrupt")
		}
	}

	log.Info().
		Str("path", cfg.Path).
		Str("namespace", cfg.Namespace).
		Msg("Preference store opened")

	return s, nil
}

func (s *fileStore) GetInt(key string, def int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loadErr != nil {
		return def, s.loadErr
	}

	if v, ok := s.data[s.namespace][key]; ok {
		return int(v), nil
	}
	return def, nil
}

func (s *fileStore) PutInt(key string, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.data[s.namespace]
	if !ok {
		ns = map[string]int64{}
		s.data[s.namespace] = ns
	}
	ns[key] = int64(value)

	if err := s.flush(); err != nil {
		return err
	}
	s.loadErr = nil
	return nil
}

// flush writes the whole record through a temporary file and rename
func (s *fileStore) flush() error {
	errFactory := errors.New()

	raw, err := cbor.Marshal(s.data)
	if err != nil {
		return errFactory.Wrap(ErrStorageWrite, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".prefs-*")
	if err != nil {
		return errFactory.Wrap(ErrStorageWrite, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return errFactory.Wrap(ErrStorageWrite, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errFactory.Wrap(ErrStorageWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return errFactory.Wrap(ErrStorageWrite, err)
	}
	if err := os.Chmod(tmp.Name(), defaultFilePerm); err != nil {
		return errFactory.Wrap(ErrStorageWrite, err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errFactory.Wrap(ErrStorageWrite, err)
	}
	return nil
}

func (s *fileStore) Close() error {
	s.logger.Info().Msg("Preference store closed")
	return nil
}
