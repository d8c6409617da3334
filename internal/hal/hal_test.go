// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Thermoquad/beacon/internal/errors"
	"github.com/Thermoquad/beacon/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.TrimSpace(string(data))
}

func fakePWMDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "pwmchip0", "pwm0")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, f := range []string{"period", "duty_cycle", "enable"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), nil, 0o644))
	}
	return dir
}

func TestSysfsPWM(t *testing.T) {
	dir := fakePWMDir(t)

	p, err := NewSysfsPWM(dir, 1000)
	require.NoError(t, err)
	assert.Equal(t, "1000000", readFile(t, filepath.Join(dir, "period")))
	assert.Equal(t, "1", readFile(t, filepath.Join(dir, "enable")))
	assert.Equal(t, "0", readFile(t, filepath.Join(dir, "duty_cycle")))

	require.NoError(t, p.Write(255))
	assert.Equal(t, "1000000", readFile(t, filepath.Join(dir, "duty_cycle")))

	require.NoError(t, p.Write(128))
	assert.Equal(t, "501960", readFile(t, filepath.Join(dir, "duty_cycle")))

	require.NoError(t, p.Close())
	assert.Equal(t, "0", readFile(t, filepath.Join(dir, "duty_cycle")))
	assert.Equal(t, "0", readFile(t, filepath.Join(dir, "enable")))
}

func TestSysfsPWM_Errors(t *testing.T) {
	_, err := NewSysfsPWM(filepath.Join(t.TempDir(), "missing", "pwmX"), 1000)
	assert.True(t, errors.HasCode(err, ErrPWMInit))

	_, err = NewSysfsPWM(fakePWMDir(t), 0)
	assert.True(t, errors.HasCode(err, ErrPWMInit))
}

func TestSimOutput(t *testing.T) {
	o := NewSimOutput(logger.Default())
	require.NoError(t, o.Write(300))
	assert.Equal(t, 255, o.Duty())
	require.NoError(t, o.Write(0))
	assert.Equal(t, 0, o.Duty())
	assert.Equal(t, 2, o.Writes())
}

func TestIIOAnalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in_voltage0_raw")
	a := NewIIOAnalog(path)

	_, err := a.ReadRaw()
	assert.True(t, errors.HasCode(err, ErrADCRead))

	require.NoError(t, os.WriteFile(path, []byte("2048\n"), 0o644))
	raw, err := a.ReadRaw()
	require.NoError(t, err)
	assert.Equal(t, 2048, raw)

	require.NoError(t, os.WriteFile(path, []byte("5000\n"), 0o644))
	_, err = a.ReadRaw()
	assert.True(t, errors.HasCode(err, ErrADCValue))

	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))
	_, err = a.ReadRaw()
	assert.True(t, errors.HasCode(err, ErrADCValue))
}

func TestSimAnalog(t *testing.T) {
	a := NewSimAnalog(9999)
	raw, err := a.ReadRaw()
	require.NoError(t, err)
	assert.Equal(t, 4095, raw)

	a.Set(100)
	raw, _ = a.ReadRaw()
	assert.Equal(t, 100, raw)
}

func TestHost(t *testing.T) {
	h := NewHost(HostConfig{
		ChipModel:      "linux/arm64",
		ChipRevision:   1,
		CPUFreqMHz:     1500,
		FlashSizeBytes: 16 << 20,
	}, logger.Default())

	assert.Equal(t, "linux/arm64", h.ChipModel())
	assert.Equal(t, 1500, h.CPUFreqMHz())
	assert.Equal(t, int64(16<<20), h.FlashSize())
	assert.Positive(t, h.HeapSize())
	assert.GreaterOrEqual(t, h.FreeHeap(), int64(0))
	assert.NotEmpty(t, h.DeviceID())
	assert.NotEmpty(t, h.SDKVersion())
	assert.True(t, h.Allocate(4000))
}

func TestReexecRequested(t *testing.T) {
	r := NewReexec(logger.Default())
	assert.False(t, r.Requested())
	r.Restart()
	assert.True(t, r.Requested())
}
