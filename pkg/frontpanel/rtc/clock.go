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

package rtc

import (
	"time"

	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/helpers/syncutil"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// MinWakeLead is how far past the written device time a wake alarm must be
// before the panel is asked to honour it.
const MinWakeLead = time.Minute

// State is the persistable part of the clock.
type State struct {
	Wake      DeviceTime
	Offset    int
	TimerWake bool
}

// Clock tracks device time without a direct "set clock" command.
//
// Device time is modelled as the last sample plus host time elapsed since
// the sample was taken. Sampling happens when the panel reports its time
// and when a caller sets the time; the hardware RTC itself is only written
// by the deep standby command.
type Clock struct {
	sampledAt time.Time
	clock     clockwork.Clock
	sample    DeviceTime
	wake      DeviceTime
	mu        syncutil.Mutex
	offset    int
	timerWake bool
}

// NewClock returns a clock seeded from host time. A nil clock uses the real
// clock.
func NewClock(c clockwork.Clock, offset int) *Clock {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	now := c.Now()
	return &Clock{
		clock:     c,
		offset:    offset,
		sample:    FromTime(now.Add(time.Duration(offset) * time.Second)),
		sampledAt: now,
		wake:      NoAlarm,
	}
}

// Now returns the extrapolated device time.
func (c *Clock) Now() DeviceTime {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nowLocked()
}

func (c *Clock) nowLocked() DeviceTime {
	return c.sample.Add(c.clock.Since(c.sampledAt))
}

// Sample records a time reported by the panel.
func (c *Clock) Sample(t DeviceTime) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sample = t
	c.sampledAt = c.clock.Now()
}

// Set records a caller requested device time. Reads extrapolate from it;
// the panel RTC is written on the next deep standby.
func (c *Clock) Set(t DeviceTime) {
	c.mu.Lock()
	defer c.mu.Unlock()
	log.Debug().Stringer("time", t).Msg("rtc: device time set")
	c.sample = t
	c.sampledAt = c.clock.Now()
}

// SetFromHost resamples device time from host time plus the offset.
func (c *Clock) SetFromHost() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.clock.Now()
	c.sample = FromTime(now.Add(time.Duration(c.offset) * time.Second))
	c.sampledAt = now
}

// Offset returns the local minus UTC offset in seconds.
func (c *Clock) Offset() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offset
}

// SetOffset changes the local minus UTC offset in seconds.
func (c *Clock) SetOffset(seconds int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset = seconds
}

// WakeTime returns the pending wake time, NoAlarm if none.
func (c *Clock) WakeTime() DeviceTime {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wake
}

// SetWakeTime applies the wake policy against the current device time and
// stores the result. It reports whether the alarm was accepted; a rejected
// request leaves NoAlarm pending.
func (c *Clock) SetWakeTime(t DeviceTime) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.nowLocked()
	wake, ok := SelectWakeTime(now, t)
	if !ok && !t.IsNoAlarm() {
		log.Info().
			Stringer("requested", t).
			Stringer("now", now).
			Msg("rtc: wake time too close, no alarm set")
	}
	c.wake = wake
	return ok
}

// TimerWake reports whether the last boot was a timer wake.
func (c *Clock) TimerWake() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timerWake
}

// SetTimerWake records the derived wake reason of the last boot.
func (c *Clock) SetTimerWake(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timerWake = v
}

// Snapshot returns the persistable state.
func (c *Clock) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{Wake: c.wake, Offset: c.offset, TimerWake: c.timerWake}
}

// Restore loads persisted state. A wake time that has already passed is
// dropped.
func (c *Clock) Restore(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset = s.Offset
	c.timerWake = s.TimerWake
	if wake, ok := SelectWakeTime(c.nowLocked(), s.Wake); ok {
		c.wake = wake
	} else {
		c.wake = NoAlarm
	}
}
