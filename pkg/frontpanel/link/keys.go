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

import (
	"context"
	"fmt"

	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/protocol"
	"github.com/rs/zerolog/log"
)

// KeyFlagRepeat marks an auto-repeat report of a held key.
const KeyFlagRepeat byte = 0x01

// KeyEvent is one key or remote report.
type KeyEvent struct {
	// Address is the remote control address. Zero for the front keypad.
	Address uint16
	Code    byte
	Flags   byte
	Remote  bool
}

// Repeat reports whether the event is an auto-repeat.
func (k KeyEvent) Repeat() bool {
	return k.Flags&KeyFlagRepeat != 0
}

func (k KeyEvent) String() string {
	if k.Remote {
		return fmt.Sprintf("remote %04x:%02x flags=%02x", k.Address, k.Code, k.Flags)
	}
	return fmt.Sprintf("key %02x flags=%02x", k.Code, k.Flags)
}

// ParseKeyEvent decodes a key or remote frame.
func ParseKeyEvent(f protocol.Frame) (KeyEvent, error) {
	p := f.Payload
	switch f.Response() {
	case protocol.RspKey:
		if len(p) < 2 {
			return KeyEvent{}, fmt.Errorf("short key report: %d bytes", len(p))
		}
		return KeyEvent{Code: p[0], Flags: p[1]}, nil
	case protocol.RspRemote:
		if len(p) < 4 {
			return KeyEvent{}, fmt.Errorf("short remote report: %d bytes", len(p))
		}
		return KeyEvent{
			Remote:  true,
			Address: uint16(p[0])<<8 | uint16(p[1]),
			Code:    p[2],
			Flags:   p[3],
		}, nil
	default:
		return KeyEvent{}, fmt.Errorf("not a key report: %s", f.Response())
	}
}

// KeyQueue is the bounded FIFO between the dispatcher and key readers.
// When it is full new events are dropped and counted.
type KeyQueue struct {
	ch    chan KeyEvent
	stats *Stats
}

// NewKeyQueue returns a queue holding up to size events.
func NewKeyQueue(size int, stats *Stats) *KeyQueue {
	if stats == nil {
		stats = &Stats{}
	}
	return &KeyQueue{ch: make(chan KeyEvent, max(size, 1)), stats: stats}
}

// Push queues ev without blocking.
func (q *KeyQueue) Push(ev KeyEvent) bool {
	select {
	case q.ch <- ev:
		return true
	default:
		q.stats.KeyDrops.Add(1)
		log.Warn().Stringer("event", ev).Msg("link: key queue full, event dropped")
		return false
	}
}

// Read blocks until an event is available or ctx is done.
func (q *KeyQueue) Read(ctx context.Context) (KeyEvent, error) {
	select {
	case ev := <-q.ch:
		return ev, nil
	case <-ctx.Done():
		return KeyEvent{}, ctx.Err()
	}
}

// Flush discards queued events and returns how many were dropped.
func (q *KeyQueue) Flush() int {
	n := 0
	for {
		select {
		case <-q.ch:
			n++
		default:
			return n
		}
	}
}

// Len returns the number of queued events.
func (q *KeyQueue) Len() int {
	return len(q.ch)
}
