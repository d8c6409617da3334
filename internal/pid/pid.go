// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package pid guards a link against a second controller process.
package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/Thermoquad/beacon/internal/errors"
)

const pidPrefix = "beacon"

// Path returns the PID file used for a link name such as /dev/ttyUSB0
func Path(link string) string {
	name := strings.Trim(strings.NewReplacer("/", "_", ":", "_", "\\", "_").Replace(link), "_")
	if name == "" {
		name = "default"
	}
	return filepath.Join(os.TempDir(), pidPrefix+"-"+name+".pid")
}

// Write writes the current process ID to the link's PID file. A file owned
// by a live process other than this one fails with ErrAlreadyRunning.
func Write(link string) error {
	errFactory := errors.New()
	path := Path(link)

	if bytes, err := os.ReadFile(path); err == nil {
		pid, err := strconv.Atoi(strings.TrimSpace(string(bytes)))
		if err == nil && pid != os.Getpid() && alive(pid) {
			return errFactory.WithData(errors.ErrAlreadyRunning, struct {
				Link string
				PID  int
			}{link, pid})
		}
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// Remove removes the link's PID file.
func Remove(link string) error {
	errFactory := errors.New()
	path := Path(link)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	if err := os.Remove(path); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

func alive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
