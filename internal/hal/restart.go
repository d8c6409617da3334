// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hal

import (
	"os"
	"sync/atomic"
	"syscall"

	"github.com/Thermoquad/beacon/internal/errors"
	"github.com/Thermoquad/beacon/internal/logger"
)

// Reexec records restart requests. The owner of the process calls Exec
// once the controller has stopped and resources are released.
type Reexec struct {
	requested atomic.Bool
	log       logger.Logger
}

func NewReexec(log logger.Logger) *Reexec {
	return &Reexec{log: log}
}

func (r *Reexec) Restart() {
	r.requested.Store(true)
	r.log.Info().Msg("Restart requested")
}

// Requested reports whether Restart was called
func (r *Reexec) Requested() bool {
	return r.requested.Load()
}

// Exec replaces the current process with a fresh copy of itself. It only
// returns on failure.
func (r *Reexec) Exec() error {
	errFactory := errors.New()

	exe, err := os.Executable()
	if err != nil {
		return errFactory.Wrap(ErrRestartExec, err)
	}

	r.log.Info().Str("executable", exe).Msg("Restarting")
	if err := syscall.Exec(exe, os.Args, os.Environ()); err != nil {
		return errFactory.Wrap(ErrRestartExec, err)
	}
	return nil
}
