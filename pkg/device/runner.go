// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"context"
	"time"

	"github.com/Thermoquad/beacon/internal/errors"
)

// DefaultTick is the loop cadence
const DefaultTick = 10 * time.Millisecond

// Runner drives a Controller from a channel of inbound lines
type Runner struct {
	ctl  *Controller
	tick time.Duration
}

// NewRunner creates a runner. A non-positive tick selects DefaultTick.
func NewRunner(ctl *Controller, tick time.Duration) *Runner {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Runner{ctl: ctl, tick: tick}
}

// Run boots the controller and ticks it until ctx is cancelled, the line
// channel closes or a restart is requested. The output is driven to 0
// before Run returns.
//
// A restart request is returned as an error with code ErrRestartRequired;
// a closed channel as ErrLinkClosed. Cancellation returns nil.
func (r *Runner) Run(ctx context.Context, lines <-chan string) error {
	errFactory := errors.New()

	if !r.ctl.Booted() {
		r.ctl.Boot()
	}
	defer r.ctl.Shutdown()

	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		line, received, open := poll(lines)
		if !open {
			return errFactory.New(ErrLinkClosed)
		}

		r.ctl.Tick(line, received)

		if r.ctl.Halted() {
			return errFactory.New(ErrRestartRequired)
		}
	}
}

// poll takes at most one line without blocking
func poll(lines <-chan string) (line string, received bool, open bool) {
	select {
	case l, ok := <-lines:
		if !ok {
			return "", false, false
		}
		return l, true, true
	default:
		return "", false, true
	}
}
