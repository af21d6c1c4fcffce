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
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/protocol"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/helpers/syncutil"
)

// Pending is the single outstanding command slot. The command layer arms
// it before transmitting and the dispatcher completes it.
//
// A generic acknowledgement completes the slot only when it echoes the
// armed command id, and a typed response only when its id is the reply the
// command expects. Anything else is stale.
type Pending struct {
	done   chan protocol.Frame
	mu     syncutil.Mutex
	cmd    protocol.Command
	reply  protocol.Response
	active bool
}

// NewPending returns an idle slot.
func NewPending() *Pending {
	return &Pending{}
}

// Arm prepares the slot for cmd answered by reply, which is RspAck for
// commands acknowledged by echo. The returned channel receives the
// completing frame.
func (p *Pending) Arm(cmd protocol.Command, reply protocol.Response) <-chan protocol.Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done = make(chan protocol.Frame, 1)
	p.cmd = cmd
	p.reply = reply
	p.active = true
	return p.done
}

// Disarm clears the slot. A reply arriving afterwards is stale.
func (p *Pending) Disarm() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = false
}

// Complete hands f to the waiting caller if it answers the armed command,
// and reports whether it did.
func (p *Pending) Complete(f protocol.Frame) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active || !p.matches(f) {
		return false
	}
	p.active = false
	p.done <- f
	return true
}

func (p *Pending) matches(f protocol.Frame) bool {
	if f.Response() != p.reply {
		return false
	}
	if p.reply == protocol.RspAck {
		return len(f.Payload) > 0 && protocol.Command(f.Payload[0]) == p.cmd
	}
	return true
}

// Active reports whether a command is waiting.
func (p *Pending) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}
