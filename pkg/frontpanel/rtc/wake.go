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

// Raw wake states reported by the panel after boot.
const (
	ReportPowerOn byte = 0
	ReportStandby byte = 1
	ReportTimer   byte = 2
)

// WakeReason is why the box last came out of power-off or standby. Exactly
// one field is true.
type WakeReason struct {
	PowerOn     bool
	FromStandby bool
	Timer       bool
}

func (w WakeReason) String() string {
	switch {
	case w.Timer:
		return "timer"
	case w.FromStandby:
		return "standby"
	default:
		return "power-on"
	}
}

// SelectWakeTime decides which alarm to program when entering deep standby
// with device time now. The alarm must lead now by at least MinWakeLead;
// anything closer, and the far future sentinel, means no alarm.
func SelectWakeTime(now, requested DeviceTime) (DeviceTime, bool) {
	if requested.IsNoAlarm() || !requested.Valid() {
		return NoAlarm, false
	}
	if requested.Sub(now) < MinWakeLead {
		return NoAlarm, false
	}
	return requested, true
}

// DeriveWakeReason maps the reported wake state to a WakeReason. An
// ambiguous report falls back to power-on only when the reported boot time
// is exactly the platform epoch sentinel, which a panel whose RTC never ran
// reports, and to a standby wake otherwise.
func DeriveWakeReason(reported byte, bootTime, epoch DeviceTime) WakeReason {
	switch reported {
	case ReportPowerOn:
		return WakeReason{PowerOn: true}
	case ReportStandby:
		return WakeReason{FromStandby: true}
	case ReportTimer:
		return WakeReason{Timer: true}
	}
	if bootTime == epoch {
		return WakeReason{PowerOn: true}
	}
	return WakeReason{FromStandby: true}
}
