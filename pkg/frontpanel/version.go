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

	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/protocol"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/rtc"
)

// Version is the panel firmware identification.
type Version struct {
	Major byte
	Minor byte
	Kind  protocol.DisplayKind
	Keys  int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d %s keys=%d", v.Major, v.Minor, v.Kind, v.Keys)
}

// ParseVersion decodes a version response payload.
func ParseVersion(b []byte) (Version, error) {
	if len(b) < 4 {
		return Version{}, fmt.Errorf("version payload too short: %d bytes", len(b))
	}
	return Version{
		Major: b[0],
		Minor: b[1],
		Kind:  protocol.DisplayKind(b[2]),
		Keys:  int(b[3]),
	}, nil
}

// CachedVersion returns the version reported during boot or by the last
// GetVersion.
func (d *Device) CachedVersion() Version {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.version
}

// GetVersion queries the panel version.
func (d *Device) GetVersion(ctx context.Context) (Version, error) {
	if err := d.ready(); err != nil {
		return Version{}, err
	}
	f, err := d.link.Commander.Query(ctx, protocol.CmdGetVersion, nil, protocol.RspVersion)
	if err != nil {
		return Version{}, fmt.Errorf("get version: %w", err)
	}
	v, err := ParseVersion(f.Payload)
	if err != nil {
		return Version{}, err
	}
	d.mu.Lock()
	d.version = v
	d.mu.Unlock()
	return v, nil
}

// WakeupReason returns the wake reason derived after boot or by the last
// GetWakeupReason.
func (d *Device) WakeupReason() rtc.WakeReason {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.wake
}

// GetWakeupReason asks the panel why it last woke.
func (d *Device) GetWakeupReason(ctx context.Context) (rtc.WakeReason, error) {
	if err := d.ready(); err != nil {
		return rtc.WakeReason{}, err
	}
	f, err := d.link.Commander.Query(ctx, protocol.CmdGetWakeReason, nil, protocol.RspWakeReason)
	if err != nil {
		return rtc.WakeReason{}, fmt.Errorf("get wake reason: %w", err)
	}
	reported := ambiguousWake
	if len(f.Payload) > 0 {
		reported = f.Payload[0]
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.wake = rtc.DeriveWakeReason(reported, d.bootTime, d.prof.Epoch)
	d.clock.SetTimerWake(d.wake.Timer)
	return d.wake, nil
}
