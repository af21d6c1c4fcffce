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

// Package display keeps the front panel display state and drives it through
// the command layer: text with scrolling, brightness, icons, LEDs, and the
// spinner and icon blink animations.
package display

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/fperr"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/protocol"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/helpers/syncutil"
	"github.com/jonboulle/clockwork"
)

// Sender is the command layer as seen by the display.
type Sender interface {
	Send(ctx context.Context, cmd protocol.Command, payload []byte, expectAck bool) error
}

// DefaultScrollDelay is the pause between scroll steps.
const DefaultScrollDelay = 300 * time.Millisecond

// Options tunes a Display. Zero values select the defaults.
type Options struct {
	Clock       clockwork.Clock
	ScrollDelay time.Duration
	ScrollPad   int
	StopTimeout time.Duration
}

// Display is the display state of one panel. Its exported methods are safe
// for concurrent use; they are serialized by mu, and every frame goes out
// through the Sender, which serializes against all other callers.
//
// Workers never take mu, so a method may stop a worker while holding it.
type Display struct {
	prof    *protocol.Profile
	send    Sender
	scroll  *Worker
	spinner *Worker
	blink   *Worker
	text    []byte
	glyphs  []byte
	icons   []bool
	leds    []bool
	blinked []int
	opts    Options
	mu      syncutil.Mutex
	off     atomic.Bool
	bright  int
	closed  bool
}

// New returns a display for prof that sends through s.
func New(prof *protocol.Profile, s Sender, opts Options) *Display {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.ScrollDelay <= 0 {
		opts.ScrollDelay = DefaultScrollDelay
	}
	if opts.ScrollPad < 0 {
		opts.ScrollPad = 0
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = DefaultStopTimeout
	}
	return &Display{
		prof:    prof,
		send:    s,
		opts:    opts,
		bright:  prof.BrightnessMax,
		icons:   make([]bool, prof.Icons+1),
		leds:    make([]bool, prof.LEDs),
		scroll:  NewWorker("scroll", opts.Clock),
		spinner: NewWorker("spinner", opts.Clock),
		blink:   NewWorker("blink", opts.Clock),
	}
}

// Close stops every worker. The display cannot be used afterwards.
func (d *Display) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return errors.Join(d.scroll.Close(), d.spinner.Close(), d.blink.Close())
}

func (d *Display) usable() error {
	if d.closed {
		return fperr.ErrClosed
	}
	return nil
}

// emit sends a frame unless the display is switched off.
func (d *Display) emit(ctx context.Context, cmd protocol.Command, payload ...byte) error {
	if d.off.Load() {
		return nil
	}
	return d.send.Send(ctx, cmd, payload, true)
}

// Brightness returns the current brightness level.
func (d *Display) Brightness() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bright
}

// SetBrightness sets the brightness level, 0 to the profile maximum.
func (d *Display) SetBrightness(ctx context.Context, level int) error {
	if level < 0 || level > d.prof.BrightnessMax {
		return fmt.Errorf("brightness %d not in 0..%d: %w", level, d.prof.BrightnessMax, fperr.ErrBadArgument)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.usable(); err != nil {
		return err
	}
	if err := d.emit(ctx, protocol.CmdBrightness, byte(level)); err != nil {
		return err
	}
	d.bright = level
	return nil
}

// On reports whether the display is switched on.
func (d *Display) On() bool {
	return !d.off.Load()
}

// SetOn switches the display on or off. Switching off keeps all state and
// suppresses output; switching on re-issues the last known state.
func (d *Display) SetOn(ctx context.Context, on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.usable(); err != nil {
		return err
	}
	if !on {
		if d.off.Load() {
			return nil
		}
		if err := d.send.Send(ctx, protocol.CmdDisplayOnOff, []byte{0}, true); err != nil {
			return err
		}
		d.off.Store(true)
		return nil
	}

	if !d.off.Load() {
		return nil
	}
	if err := d.send.Send(ctx, protocol.CmdDisplayOnOff, []byte{1}, true); err != nil {
		return err
	}
	d.off.Store(false)
	return d.reissue(ctx)
}

// reissue sends the remembered state to the panel. Called with mu held.
func (d *Display) reissue(ctx context.Context) error {
	var errs []error
	errs = append(errs, d.emit(ctx, protocol.CmdBrightness, byte(d.bright)))
	if !d.scroll.Active() {
		errs = append(errs, d.showLocked(ctx))
	}
	for id := 1; id < len(d.icons); id++ {
		if d.icons[id] {
			errs = append(errs, d.emit(ctx, protocol.CmdIcon, byte(id), 1))
		}
	}
	for id, on := range d.leds {
		if on {
			errs = append(errs, d.emit(ctx, protocol.CmdLED, byte(id), 1))
		}
	}
	return errors.Join(errs...)
}

// Icon reports whether icon id is lit.
func (d *Display) Icon(id int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id < 1 || id >= len(d.icons) {
		return false
	}
	return d.icons[id]
}

// Icons returns the lit state of icons 1..N, indexed from zero.
func (d *Display) Icons() []bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.icons) <= 1 {
		return nil
	}
	return append([]bool(nil), d.icons[1:]...)
}

func (d *Display) checkIcon(id int) error {
	if !d.prof.HasIcons() {
		return fmt.Errorf("icons: %w", fperr.ErrNotSupported)
	}
	if id < 1 || id > d.prof.Icons {
		return fmt.Errorf("icon %d not in 1..%d: %w", id, d.prof.Icons, fperr.ErrBadArgument)
	}
	return nil
}

// SetIcon lights or clears one icon. A running icon blink is stopped first.
func (d *Display) SetIcon(ctx context.Context, id int, on bool) error {
	if err := d.checkIcon(id); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.usable(); err != nil {
		return err
	}
	if err := d.stopBlinkLocked(ctx); err != nil {
		return err
	}
	if err := d.emit(ctx, protocol.CmdIcon, byte(id), boolByte(on)); err != nil {
		return err
	}
	d.icons[id] = on
	return nil
}

// SetAllIcons lights or clears every icon.
func (d *Display) SetAllIcons(ctx context.Context, on bool) error {
	if !d.prof.HasIcons() {
		return fmt.Errorf("icons: %w", fperr.ErrNotSupported)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.usable(); err != nil {
		return err
	}
	if err := d.stopBlinkLocked(ctx); err != nil {
		return err
	}
	if err := d.emit(ctx, protocol.CmdAllIcons, boolByte(on)); err != nil {
		return err
	}
	for i := 1; i < len(d.icons); i++ {
		d.icons[i] = on
	}
	return nil
}

// LED reports whether LED id is lit.
func (d *Display) LED(id int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id < 0 || id >= len(d.leds) {
		return false
	}
	return d.leds[id]
}

// SetLED lights or clears one front LED.
func (d *Display) SetLED(ctx context.Context, id int, on bool) error {
	if d.prof.LEDs == 0 {
		return fmt.Errorf("leds: %w", fperr.ErrNotSupported)
	}
	if id < 0 || id >= d.prof.LEDs {
		return fmt.Errorf("led %d not in 0..%d: %w", id, d.prof.LEDs-1, fperr.ErrBadArgument)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.usable(); err != nil {
		return err
	}
	if err := d.emit(ctx, protocol.CmdLED, byte(id), boolByte(on)); err != nil {
		return err
	}
	d.leds[id] = on
	return nil
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
