// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package pid

import (
	"os"
	"strconv"
	"testing"

	"github.com/Thermoquad/beacon/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPath(t *testing.T) {
	assert.Contains(t, Path("/dev/ttyUSB0"), "beacon-dev_ttyUSB0.pid")
	assert.Contains(t, Path(""), "beacon-default.pid")
	assert.Contains(t, Path("0.0.0.0:8080"), "beacon-0.0.0.0_8080.pid")
}

func TestWriteRemove(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	link := "/dev/ttyTEST"

	require.NoError(t, Write(link))
	data, err := os.ReadFile(Path(link))
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))

	// Re-entrant for the owning process, e.g. after a re-exec
	require.NoError(t, Write(link))

	require.NoError(t, Remove(link))
	_, err = os.Stat(Path(link))
	assert.True(t, os.IsNotExist(err))
	require.NoError(t, Remove(link))
}

func TestWrite_AlreadyRunning(t *testing.T) {
	if os.Getpid() == 1 {
		t.Skip("running as PID 1")
	}
	t.Setenv("TMPDIR", t.TempDir())
	link := "/dev/ttyBUSY"

	// PID 1 is always alive
	require.NoError(t, os.WriteFile(Path(link), []byte("1"), 0o600))

	err := Write(link)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrAlreadyRunning))
}

func TestWrite_StaleFile(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())
	link := "/dev/ttySTALE"

	require.NoError(t, os.WriteFile(Path(link), []byte("not-a-pid"), 0o600))
	require.NoError(t, Write(link))
}
