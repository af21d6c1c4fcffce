// Zaparoo Frontpanel
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Zaparoo Frontpanel.
//
// Zaparoo Frontpanel is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Zaparoo Frontpanel is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Zaparoo Frontpanel.  If not, see <http://www.gnu.org/licenses/>.

package display

import (
	"context"
	"fmt"
	"time"

	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/fperr"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/helpers/syncutil"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Status is the externally observable state of an animation worker.
type Status int

const (
	StatusStopped Status = iota
	StatusInit
	StatusRunning
	StatusHalted
)

func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "STOPPED"
	case StatusInit:
		return "INIT"
	case StatusRunning:
		return "RUNNING"
	case StatusHalted:
		return "HALTED"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// DefaultStopTimeout bounds how long Stop waits for a worker to halt.
const DefaultStopTimeout = 2 * time.Second

// StepFunc draws one animation phase. Returning false ends the run after
// this step.
type StepFunc func(ctx context.Context, phase int) (bool, error)

// run is one enabled period of a worker, from Start until it halts.
type run struct {
	ctx    context.Context
	cancel context.CancelFunc
	halted chan struct{}
	step   StepFunc
	period time.Duration
	taken  bool
}

// Worker is a persistent goroutine driving one animated element. It sleeps
// until started, steps until stopped, and goes back to sleep.
type Worker struct {
	clock   clockwork.Clock
	base    context.Context
	quit    context.CancelFunc
	wake    *syncutil.Signal
	current *run
	done    chan struct{}
	name    string
	mu      syncutil.Mutex
	status  Status
}

// NewWorker starts the worker goroutine. A nil clock uses the real clock.
func NewWorker(name string, clock clockwork.Clock) *Worker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	base, quit := context.WithCancel(context.Background())
	w := &Worker{
		name:  name,
		clock: clock,
		base:  base,
		quit:  quit,
		wake:  syncutil.NewSignal(),
		done:  make(chan struct{}),
	}
	go w.loop()
	return w
}

// Status returns the current worker status.
func (w *Worker) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Active reports whether a run is enabled.
func (w *Worker) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current != nil && w.current.ctx.Err() == nil
}

// Start enables the worker with step and period and wakes it. If a run is
// already enabled only the period is updated and Start reports false.
func (w *Worker) Start(step StepFunc, period time.Duration) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.base.Err() != nil {
		return false
	}
	if r := w.current; r != nil {
		if r.ctx.Err() == nil {
			r.period = period
			return false
		}
		if !r.taken {
			// Stopped before the worker ever picked it up.
			r.taken = true
			close(r.halted)
		}
	}
	ctx, cancel := context.WithCancel(w.base)
	w.current = &run{
		ctx:    ctx,
		cancel: cancel,
		halted: make(chan struct{}),
		step:   step,
		period: period,
	}
	w.wake.Notify()
	return true
}

// Stop disables the worker and waits, bounded by timeout, until it has
// halted. Stopping a worker that is not running returns immediately.
func (w *Worker) Stop(timeout time.Duration) error {
	w.mu.Lock()
	r := w.current
	if r == nil {
		w.mu.Unlock()
		return nil
	}
	r.cancel()
	if !r.taken {
		r.taken = true
		w.current = nil
		close(r.halted)
	}
	w.mu.Unlock()

	timer := w.clock.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-r.halted:
		return nil
	case <-timer.Chan():
		return fmt.Errorf("%s worker did not halt: %w", w.name, fperr.ErrTimeout)
	}
}

// Close stops the worker and ends its goroutine. The worker is left
// STOPPED.
func (w *Worker) Close() error {
	err := w.Stop(DefaultStopTimeout)
	w.quit()
	<-w.done
	return err
}

func (w *Worker) setStatus(s Status) {
	w.mu.Lock()
	w.status = s
	w.mu.Unlock()
}

func (w *Worker) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.base.Done():
			return
		case <-w.wake.C():
		}

		w.mu.Lock()
		r := w.current
		if r == nil || r.taken {
			w.mu.Unlock()
			continue
		}
		r.taken = true
		w.status = StatusInit
		w.mu.Unlock()

		w.animate(r)

		w.setStatus(StatusHalted)
		w.mu.Lock()
		if w.current == r {
			w.current = nil
		}
		w.status = StatusStopped
		w.mu.Unlock()
		close(r.halted)
	}
}

func (w *Worker) animate(r *run) {
	if r.ctx.Err() != nil {
		return
	}
	w.setStatus(StatusRunning)
	for phase := 0; ; phase++ {
		// Stop is observed between steps only; a step in flight finishes.
		more, err := r.step(w.base, phase)
		if err != nil {
			log.Warn().Err(err).Str("worker", w.name).Int("phase", phase).Msg("display: animation step failed")
		}
		if !more {
			return
		}

		w.mu.Lock()
		period := r.period
		w.mu.Unlock()
		timer := w.clock.NewTimer(period)
		select {
		case <-r.ctx.Done():
			timer.Stop()
			return
		case <-timer.Chan():
		}
		if r.ctx.Err() != nil {
			return
		}
	}
}
