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

package link

import "sync/atomic"

// Stats counts channel events that are handled locally and only reach a
// caller indirectly.
type Stats struct {
	RxOverflows    atomic.Uint64
	Resyncs        atomic.Uint64
	ChecksumErrors atomic.Uint64
	Timeouts       atomic.Uint64
	StaleReplies   atomic.Uint64
	KeyDrops       atomic.Uint64
	FramesIn       atomic.Uint64
	FramesOut      atomic.Uint64
}

// StatsSnapshot is a point in time copy of Stats.
type StatsSnapshot struct {
	RxOverflows    uint64 `json:"rxOverflows"`
	Resyncs        uint64 `json:"resyncs"`
	ChecksumErrors uint64 `json:"checksumErrors"`
	Timeouts       uint64 `json:"timeouts"`
	StaleReplies   uint64 `json:"staleReplies"`
	KeyDrops       uint64 `json:"keyDrops"`
	FramesIn       uint64 `json:"framesIn"`
	FramesOut      uint64 `json:"framesOut"`
}

func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		RxOverflows:    s.RxOverflows.Load(),
		Resyncs:        s.Resyncs.Load(),
		ChecksumErrors: s.ChecksumErrors.Load(),
		Timeouts:       s.Timeouts.Load(),
		StaleReplies:   s.StaleReplies.Load(),
		KeyDrops:       s.KeyDrops.Load(),
		FramesIn:       s.FramesIn.Load(),
		FramesOut:      s.FramesOut.Load(),
	}
}
