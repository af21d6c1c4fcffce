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
	"slices"
	"time"

	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/fperr"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/protocol"
)

// ShowSpinner starts the busy spinner with the given step period, or stops
// it when period is zero. A running icon blink is stopped first. Starting a
// spinner that is already running only changes its period.
func (d *Display) ShowSpinner(ctx context.Context, period time.Duration) error {
	if !d.prof.HasSpinner() {
		return fmt.Errorf("spinner: %w", fperr.ErrNotSupported)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.usable(); err != nil {
		return err
	}

	if period <= 0 {
		if !d.spinner.Active() {
			return nil
		}
		if err := d.spinner.Stop(d.opts.StopTimeout); err != nil {
			return err
		}
		return d.emit(ctx, protocol.CmdIcon, d.prof.SpinnerIcon, 0)
	}

	if err := d.stopBlinkLocked(ctx); err != nil {
		return err
	}
	icon := d.prof.SpinnerIcon
	phases := d.prof.SpinnerPhases
	d.spinner.Start(func(ctx context.Context, phase int) (bool, error) {
		level := byte(2 + phase%phases) //nolint:gosec // phases is small
		return true, d.emit(ctx, protocol.CmdIcon, icon, level)
	}, period)
	return nil
}

// Spinner returns the spinner worker status.
func (d *Display) Spinner() Status {
	return d.spinner.Status()
}

// BlinkIcons toggles the given icons together every period. A running
// spinner is stopped first. An empty set or zero period stops blinking.
func (d *Display) BlinkIcons(ctx context.Context, ids []int, period time.Duration) error {
	for _, id := range ids {
		if err := d.checkIcon(id); err != nil {
			return err
		}
	}
	if !d.prof.HasIcons() {
		return fmt.Errorf("icons: %w", fperr.ErrNotSupported)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.usable(); err != nil {
		return err
	}

	if len(ids) == 0 || period <= 0 {
		return d.stopBlinkLocked(ctx)
	}
	if d.blink.Active() && slices.Equal(ids, d.blinked) {
		d.blink.Start(nil, period)
		return nil
	}
	if err := d.stopBlinkLocked(ctx); err != nil {
		return err
	}
	if d.spinner.Active() {
		if err := d.spinner.Stop(d.opts.StopTimeout); err != nil {
			return err
		}
		if err := d.emit(ctx, protocol.CmdIcon, d.prof.SpinnerIcon, 0); err != nil {
			return err
		}
	}

	group := slices.Clone(ids)
	d.blinked = group
	d.blink.Start(func(ctx context.Context, phase int) (bool, error) {
		level := byte(1 - phase%2) //nolint:gosec // 0 or 1
		for _, id := range group {
			if err := d.emit(ctx, protocol.CmdIcon, byte(id), level); err != nil {
				return true, err
			}
		}
		return true, nil
	}, period)
	return nil
}

// Blinking returns the blink worker status.
func (d *Display) Blinking() Status {
	return d.blink.Status()
}

// stopBlinkLocked stops the blink worker and restores the blinked icons to
// their remembered state. Called with mu held.
func (d *Display) stopBlinkLocked(ctx context.Context) error {
	if !d.blink.Active() {
		return nil
	}
	if err := d.blink.Stop(d.opts.StopTimeout); err != nil {
		return err
	}
	group := d.blinked
	d.blinked = nil
	for _, id := range group {
		if err := d.emit(ctx, protocol.CmdIcon, byte(id), boolByte(d.icons[id])); err != nil {
			return err
		}
	}
	return nil
}

// StopAnimations stops the scroll, spinner and blink workers. The last
// scroll window stays on the display and blinked icons are restored.
func (d *Display) StopAnimations(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.usable(); err != nil {
		return err
	}
	if err := d.scroll.Stop(d.opts.StopTimeout); err != nil {
		return err
	}
	if err := d.stopBlinkLocked(ctx); err != nil {
		return err
	}
	if !d.spinner.Active() {
		return nil
	}
	if err := d.spinner.Stop(d.opts.StopTimeout); err != nil {
		return err
	}
	return d.emit(ctx, protocol.CmdIcon, d.prof.SpinnerIcon, 0)
}
