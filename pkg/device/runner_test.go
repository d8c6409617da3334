// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"context"
	"testing"
	"time"

	"github.com/Thermoquad/beacon/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startRunner(t *testing.T, h *harness) (chan string, context.CancelFunc, <-chan error) {
	t.Helper()
	lines := make(chan string, 8)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewRunner(h.ctl, time.Millisecond).Run(ctx, lines)
	}()
	t.Cleanup(cancel)
	return lines, cancel, done
}

func TestRunner_CancelForcesOutputOff(t *testing.T) {
	h := newHarness(t, quietConfig(), nil)
	lines, cancel, done := startRunner(t, h)

	lines <- "LASER_ON"
	require.Eventually(t, func() bool { return h.out.Last() == 128 }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
	assert.Equal(t, 0, h.out.Last())
}

func TestRunner_ClosedLink(t *testing.T) {
	h := newHarness(t, quietConfig(), nil)
	lines, _, done := startRunner(t, h)
	close(lines)

	select {
	case err := <-done:
		assert.True(t, errors.HasCode(err, ErrLinkClosed))
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
}

func TestRunner_Restart(t *testing.T) {
	h := newHarness(t, quietConfig(), nil)
	lines, _, done := startRunner(t, h)

	lines <- "LASER_ON"
	lines <- "RESTART"

	select {
	case err := <-done:
		assert.True(t, errors.HasCode(err, ErrRestartRequired))
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
	assert.Equal(t, 1, h.restarter.calls)
	assert.Equal(t, 0, h.restarter.dutyAtReq)
	assert.Equal(t, 0, h.out.Last())
}

func TestRunner_BootsOnce(t *testing.T) {
	h := newHarness(t, quietConfig(), nil)
	h.ctl.Boot()
	_, cancel, done := startRunner(t, h)

	time.Sleep(10 * time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, 1, h.count("Laser Controller v5.1 Ready"))
}
