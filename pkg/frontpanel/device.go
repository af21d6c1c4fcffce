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

// Package frontpanel ties the channel, display and clock layers into one
// device context and exposes the boundary operations used by collaborators.
package frontpanel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/display"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/fperr"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/link"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/protocol"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/rtc"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/store"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/helpers/syncutil"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ambiguousWake is passed to the wake reason derivation when the panel
// could not be asked.
const ambiguousWake byte = 0xff

// Config describes one device.
type Config struct {
	Port    link.Port
	Profile *protocol.Profile
	Clock   clockwork.Clock
	// StatePath, when set, names a bolt file the clock and brightness are
	// persisted to and restored from on Start.
	StatePath string
	Link      link.Options
	Display   display.Options
	// RTCOffset is the local minus UTC offset in seconds used until a
	// persisted one is restored.
	RTCOffset int
}

// Device is one attached front panel.
type Device struct {
	prof     *protocol.Profile
	port     link.Port
	link     *link.Link
	disp     *display.Display
	clock    *rtc.Clock
	store    *store.Store
	group    *errgroup.Group
	cancel   context.CancelFunc
	bootTime rtc.DeviceTime
	version  Version
	wake     rtc.WakeReason
	mu       syncutil.Mutex
	displays int
	keysOpen bool
	started  bool
	closed   bool
}

// New builds a device over cfg.Port. Nothing is sent until Start.
func New(cfg Config) (*Device, error) {
	if cfg.Port == nil {
		return nil, fmt.Errorf("%w: no port", fperr.ErrBadArgument)
	}
	if cfg.Profile == nil {
		return nil, fmt.Errorf("%w: no profile", fperr.ErrBadArgument)
	}
	if err := cfg.Profile.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", fperr.ErrBadArgument, err)
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Link.Clock == nil {
		cfg.Link.Clock = cfg.Clock
	}
	if cfg.Display.Clock == nil {
		cfg.Display.Clock = cfg.Clock
	}

	d := &Device{
		prof:  cfg.Profile,
		port:  cfg.Port,
		clock: rtc.NewClock(cfg.Clock, cfg.RTCOffset),
		wake:  rtc.WakeReason{PowerOn: true},
	}
	if cfg.StatePath != "" {
		st, err := store.Open(cfg.StatePath)
		if err != nil {
			return nil, err
		}
		d.store = st
	}
	d.link = link.New(cfg.Port, cfg.Profile, cfg.Link)
	d.disp = display.New(cfg.Profile, d.link.Commander, cfg.Display)
	return d, nil
}

// Profile returns the panel profile.
func (d *Device) Profile() *protocol.Profile {
	return d.prof
}

// Start runs the dispatcher and performs the boot handshake. A handshake
// aborted by a protocol error still succeeds when the profile recovers to
// ready after an abort; a handshake that times out always fails.
func (d *Device) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return fperr.ErrClosed
	}
	if d.started {
		d.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return d.link.Run(gctx)
	})
	d.group = g
	d.cancel = cancel
	d.started = true
	d.mu.Unlock()

	res, err := d.link.Boot(ctx)
	if err != nil {
		if errors.Is(err, fperr.ErrTimeout) || d.link.Dispatcher.Phase() != link.PhaseReady {
			log.Error().Err(err).Str("profile", d.prof.Name).Msg("frontpanel: boot failed")
			d.stop()
			return err
		}
		log.Warn().Err(err).Msg("frontpanel: boot handshake aborted, continuing")
	}

	d.restore(ctx)
	d.applyBoot(ctx, res)
	d.persistClock()

	log.Info().
		Str("profile", d.prof.Name).
		Stringer("version", d.CachedVersion()).
		Stringer("wake", d.WakeupReason()).
		Stringer("time", d.clock.Now()).
		Msg("frontpanel: device ready")
	return nil
}

func (d *Device) restore(ctx context.Context) {
	if d.store == nil {
		return
	}
	if st, err := d.store.LoadClock(); err == nil {
		d.clock.Restore(st)
	} else if !errors.Is(err, store.ErrNotFound) {
		log.Warn().Err(err).Msg("frontpanel: failed to load clock state")
	}
	ds, err := d.store.LoadDisplay()
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		log.Warn().Err(err).Msg("frontpanel: failed to load display state")
	default:
		if err := d.disp.SetBrightness(ctx, ds.Brightness); err != nil {
			log.Warn().Err(err).Int("level", ds.Brightness).Msg("frontpanel: failed to restore brightness")
		}
	}
}

// applyBoot takes version, time and wake reason from the staged responses.
func (d *Device) applyBoot(ctx context.Context, res link.BootResult) {
	if f, ok := res.Frames[protocol.RspVersion]; ok {
		if v, err := ParseVersion(f.Payload); err == nil {
			d.mu.Lock()
			d.version = v
			d.mu.Unlock()
		} else {
			log.Warn().Err(err).Msg("frontpanel: bad version stage")
		}
	}

	bootTime := d.prof.Epoch
	if f, ok := res.Frames[protocol.RspTime]; ok {
		if t, err := rtc.ParseDeviceTime(f.Payload); err == nil {
			bootTime = t
		} else {
			log.Warn().Err(err).Msg("frontpanel: bad time stage")
		}
	}
	if bootTime == d.prof.Epoch {
		// The panel RTC never ran; seed from the host.
		d.clock.SetFromHost()
	} else {
		d.clock.Sample(bootTime)
	}

	reported := ambiguousWake
	f, err := d.link.Commander.Query(ctx, protocol.CmdGetWakeReason, nil, protocol.RspWakeReason)
	if err == nil && len(f.Payload) > 0 {
		reported = f.Payload[0]
	} else if err != nil {
		log.Warn().Err(err).Msg("frontpanel: wake reason query failed")
	}
	wake := rtc.DeriveWakeReason(reported, bootTime, d.prof.Epoch)
	d.clock.SetTimerWake(wake.Timer)

	d.mu.Lock()
	d.bootTime = bootTime
	d.wake = wake
	d.mu.Unlock()
}

func (d *Device) stop() {
	d.mu.Lock()
	cancel, g := d.cancel, d.group
	d.cancel, d.group = nil, nil
	d.started = false
	d.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Warn().Err(err).Msg("frontpanel: dispatcher exited")
	}
}

// Close stops the workers and the dispatcher and releases the port and the
// state file.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	errs := []error{d.disp.Close()}
	d.stop()
	errs = append(errs, d.port.Close())
	if d.store != nil {
		errs = append(errs, d.store.Close())
	}
	return errors.Join(errs...)
}

func (d *Device) ready() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readyLocked()
}

func (d *Device) readyLocked() error {
	switch {
	case d.closed:
		return fperr.ErrClosed
	case !d.started:
		return fperr.ErrNotOpen
	}
	return nil
}

// OpenDisplay takes a reference on the display channel.
func (d *Device) OpenDisplay() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.readyLocked(); err != nil {
		return err
	}
	d.displays++
	return nil
}

// CloseDisplay drops a reference on the display channel.
func (d *Device) CloseDisplay() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.displays == 0 {
		return fmt.Errorf("display: %w", fperr.ErrNotOpen)
	}
	d.displays--
	return nil
}

// DisplayOpens returns the display channel reference count.
func (d *Device) DisplayOpens() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.displays
}

// OpenKeyChannel claims the key channel. Only one opener is allowed at a
// time; events queued before the open are discarded.
func (d *Device) OpenKeyChannel() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.readyLocked(); err != nil {
		return err
	}
	if d.keysOpen {
		return fmt.Errorf("key channel: %w", fperr.ErrConflict)
	}
	d.keysOpen = true
	if n := d.link.Keys.Flush(); n > 0 {
		log.Debug().Int("count", n).Msg("frontpanel: discarded stale key events")
	}
	return nil
}

// CloseKeyChannel releases the key channel.
func (d *Device) CloseKeyChannel() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.keysOpen {
		return fmt.Errorf("key channel: %w", fperr.ErrNotOpen)
	}
	d.keysOpen = false
	return nil
}

// ReadKeyEvent blocks for the next key or remote event. A deadline on ctx
// bounds the wait.
func (d *Device) ReadKeyEvent(ctx context.Context) (link.KeyEvent, error) {
	d.mu.Lock()
	open := d.keysOpen
	d.mu.Unlock()
	if !open {
		return link.KeyEvent{}, fmt.Errorf("key channel: %w", fperr.ErrNotOpen)
	}
	return d.link.Keys.Read(ctx)
}

// WriteText shows b on the display and returns the number of bytes
// accepted. The display channel must be open.
func (d *Device) WriteText(ctx context.Context, b []byte) (int, error) {
	if err := d.displayOpen(); err != nil {
		return 0, err
	}
	return d.disp.WriteText(ctx, b)
}

// LastText returns the text last accepted by WriteText.
func (d *Device) LastText() ([]byte, error) {
	if err := d.displayOpen(); err != nil {
		return nil, err
	}
	return d.disp.LastText(), nil
}

func (d *Device) displayOpen() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.readyLocked(); err != nil {
		return err
	}
	if d.displays == 0 {
		return fmt.Errorf("display: %w", fperr.ErrNotOpen)
	}
	return nil
}

// Brightness returns the current brightness level.
func (d *Device) Brightness() int {
	return d.disp.Brightness()
}

// SetBrightness sets and persists the brightness level.
func (d *Device) SetBrightness(ctx context.Context, level int) error {
	if err := d.ready(); err != nil {
		return err
	}
	if err := d.disp.SetBrightness(ctx, level); err != nil {
		return err
	}
	if d.store != nil {
		if err := d.store.SaveDisplay(store.DisplayState{Brightness: level}); err != nil {
			log.Warn().Err(err).Msg("frontpanel: failed to persist brightness")
		}
	}
	return nil
}

// Icons returns the per-icon state, index 0 unused.
func (d *Device) Icons() []bool {
	return d.disp.Icons()
}

func (d *Device) SetIcon(ctx context.Context, id int, on bool) error {
	if err := d.ready(); err != nil {
		return err
	}
	return d.disp.SetIcon(ctx, id, on)
}

func (d *Device) SetAllIcons(ctx context.Context, on bool) error {
	if err := d.ready(); err != nil {
		return err
	}
	return d.disp.SetAllIcons(ctx, on)
}

// ShowSpinner starts the spinner, or stops it when period is zero.
func (d *Device) ShowSpinner(ctx context.Context, period time.Duration) error {
	if err := d.ready(); err != nil {
		return err
	}
	return d.disp.ShowSpinner(ctx, period)
}

// BlinkIcons blinks ids together, or stops blinking for an empty set.
func (d *Device) BlinkIcons(ctx context.Context, ids []int, period time.Duration) error {
	if err := d.ready(); err != nil {
		return err
	}
	return d.disp.BlinkIcons(ctx, ids, period)
}

// DisplayOn reports whether the display is switched on.
func (d *Device) DisplayOn() bool {
	return d.disp.On()
}

func (d *Device) SetDisplayOnOff(ctx context.Context, on bool) error {
	if err := d.ready(); err != nil {
		return err
	}
	return d.disp.SetOn(ctx, on)
}

func (d *Device) SetLED(ctx context.Context, id int, on bool) error {
	if err := d.ready(); err != nil {
		return err
	}
	return d.disp.SetLED(ctx, id, on)
}

// Stats returns the channel counters.
func (d *Device) Stats() link.StatsSnapshot {
	return d.link.Stats.Snapshot()
}

// Scrolling returns the scroll worker status.
func (d *Device) Scrolling() display.Status {
	return d.disp.Scrolling()
}
