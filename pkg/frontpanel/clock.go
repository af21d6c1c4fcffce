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

package frontpanel

import (
	"context"
	"fmt"

	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/fperr"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/protocol"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/rtc"
	"github.com/rs/zerolog/log"
)

// ClockTime returns the current device time.
func (d *Device) ClockTime() rtc.DeviceTime {
	return d.clock.Now()
}

// SetClockTime records t as the device time. The panel RTC is written on
// the next deep standby.
func (d *Device) SetClockTime(t rtc.DeviceTime) error {
	if !t.Valid() || t.IsNoAlarm() {
		return fmt.Errorf("%w: clock time %s", fperr.ErrBadArgument, t)
	}
	d.clock.Set(t)
	return nil
}

// RefreshTime asks the panel for its time and resamples the clock.
func (d *Device) RefreshTime(ctx context.Context) (rtc.DeviceTime, error) {
	if err := d.ready(); err != nil {
		return rtc.DeviceTime{}, err
	}
	f, err := d.link.Commander.Query(ctx, protocol.CmdGetTime, nil, protocol.RspTime)
	if err != nil {
		return rtc.DeviceTime{}, fmt.Errorf("get time: %w", err)
	}
	t, err := rtc.ParseDeviceTime(f.Payload)
	if err != nil {
		return rtc.DeviceTime{}, fmt.Errorf("get time: %w", err)
	}
	d.clock.Sample(t)
	return t, nil
}

// WakeTime returns the pending wake time, rtc.NoAlarm if none.
func (d *Device) WakeTime() rtc.DeviceTime {
	return d.clock.WakeTime()
}

// SetWakeTime requests a wake alarm. It reports whether the alarm was
// accepted; one under a minute ahead of device time is treated as no alarm.
func (d *Device) SetWakeTime(t rtc.DeviceTime) bool {
	ok := d.clock.SetWakeTime(t)
	d.persistClock()
	return ok
}

// RTCOffset returns the local minus UTC offset in seconds.
func (d *Device) RTCOffset() int {
	return d.clock.Offset()
}

func (d *Device) SetRTCOffset(seconds int) {
	d.clock.SetOffset(seconds)
	d.persistClock()
}

// TimerWake reports whether the last boot came from the wake alarm.
func (d *Device) TimerWake() bool {
	return d.clock.TimerWake()
}

// EnterDeepStandby writes the device time and, when one is due at least a
// minute later, the wake alarm, then puts the panel into deep standby. A
// wake of rtc.NoAlarm keeps any pending alarm. Animations are stopped first.
func (d *Device) EnterDeepStandby(ctx context.Context, wake rtc.DeviceTime) error {
	if err := d.ready(); err != nil {
		return err
	}
	if !wake.IsNoAlarm() {
		d.clock.SetWakeTime(wake)
	}
	if err := d.disp.StopAnimations(ctx); err != nil {
		log.Warn().Err(err).Msg("frontpanel: failed to stop animations")
	}

	now := d.clock.Now()
	alarm, ok := rtc.SelectWakeTime(now, d.clock.WakeTime())
	flag := byte(0)
	if ok {
		flag = 1
	}
	payload := make([]byte, 0, 11)
	payload = append(payload, now.Bytes()...)
	payload = append(payload, flag)
	payload = append(payload, alarm.Bytes()...)

	if err := d.link.Commander.Send(ctx, protocol.CmdDeepStandby, payload, true); err != nil {
		return fmt.Errorf("deep standby: %w", err)
	}
	if !ok {
		d.clock.SetWakeTime(rtc.NoAlarm)
	}
	d.persistClock()
	log.Info().
		Stringer("now", now).
		Stringer("wake", alarm).
		Bool("alarm", ok).
		Msg("frontpanel: entered deep standby")
	return nil
}

func (d *Device) persistClock() {
	if d.store == nil {
		return
	}
	if err := d.store.SaveClock(d.clock.Snapshot()); err != nil {
		log.Warn().Err(err).Msg("frontpanel: failed to persist clock state")
	}
}
