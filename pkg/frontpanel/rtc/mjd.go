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

// Package rtc models the front processor real-time clock: Modified Julian
// Date arithmetic, a host-clock extrapolated view of device time, and the
// wake alarm policy applied before deep standby.
package rtc

import (
	"errors"
	"fmt"
	"time"
)

const (
	// UnixEpochMJD is the MJD of 1970-01-01.
	UnixEpochMJD = 40587
	// MaxWireMJD is the largest MJD the two byte wire field can carry. It
	// doubles as the "no alarm" sentinel.
	MaxWireMJD = 0xFFFF

	secondsPerDay = 24 * 60 * 60
)

// ErrShortTime is returned when decoding fewer than five time bytes.
var ErrShortTime = errors.New("time payload too short")

// DateToMJD converts a proleptic Gregorian date to a Modified Julian Date.
func DateToMJD(year int, month time.Month, day int) int {
	days := time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Unix() / secondsPerDay
	return int(days) + UnixEpochMJD
}

// MJDToDate converts a Modified Julian Date back to a calendar date.
func MJDToDate(mjd int) (year int, month time.Month, day int) {
	t := time.Unix(int64(mjd-UnixEpochMJD)*secondsPerDay, 0).UTC()
	return t.Date()
}

// DeviceTime is a front processor timestamp in device local time.
type DeviceTime struct {
	MJD    int
	Hour   uint8
	Minute uint8
	Second uint8
}

// NoAlarm is the far future wake time meaning "do not wake".
var NoAlarm = DeviceTime{MJD: MaxWireMJD}

// IsNoAlarm reports whether t is the far future sentinel.
func (t DeviceTime) IsNoAlarm() bool {
	return t.MJD >= MaxWireMJD
}

// FromTime converts t to device time using t's wall clock fields in UTC.
// Callers apply the local offset before converting.
func FromTime(t time.Time) DeviceTime {
	t = t.UTC()
	y, m, d := t.Date()
	return DeviceTime{
		MJD:    DateToMJD(y, m, d),
		Hour:   uint8(t.Hour()),   //nolint:gosec // 0-23
		Minute: uint8(t.Minute()), //nolint:gosec // 0-59
		Second: uint8(t.Second()), //nolint:gosec // 0-59
	}
}

// Time returns t as a UTC time.Time with the same wall clock fields.
func (t DeviceTime) Time() time.Time {
	y, m, d := MJDToDate(t.MJD)
	return time.Date(y, m, d, int(t.Hour), int(t.Minute), int(t.Second), 0, time.UTC)
}

// Add returns t shifted by d, truncated to whole seconds.
func (t DeviceTime) Add(d time.Duration) DeviceTime {
	return FromTime(t.Time().Add(d).Truncate(time.Second))
}

// Sub returns t-u.
func (t DeviceTime) Sub(u DeviceTime) time.Duration {
	return t.Time().Sub(u.Time())
}

// Valid reports whether the clock fields are in range.
func (t DeviceTime) Valid() bool {
	return t.MJD >= 0 && t.Hour < 24 && t.Minute < 60 && t.Second < 60
}

// Bytes encodes t as the five byte wire form: MJD big endian, H, M, S.
func (t DeviceTime) Bytes() []byte {
	mjd := min(max(t.MJD, 0), MaxWireMJD)
	return []byte{byte(mjd >> 8), byte(mjd), t.Hour, t.Minute, t.Second}
}

// ParseDeviceTime decodes the five byte wire form.
func ParseDeviceTime(b []byte) (DeviceTime, error) {
	if len(b) < 5 {
		return DeviceTime{}, fmt.Errorf("%w: %d bytes", ErrShortTime, len(b))
	}
	t := DeviceTime{
		MJD:    int(b[0])<<8 | int(b[1]),
		Hour:   b[2],
		Minute: b[3],
		Second: b[4],
	}
	if !t.Valid() {
		return DeviceTime{}, fmt.Errorf("invalid device time %02d:%02d:%02d", t.Hour, t.Minute, t.Second)
	}
	return t, nil
}

func (t DeviceTime) String() string {
	if t.IsNoAlarm() {
		return "none"
	}
	y, m, d := MJDToDate(t.MJD)
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d (mjd %d)",
		y, m, d, t.Hour, t.Minute, t.Second, t.MJD)
}
