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

package sim

import (
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/protocol"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/rtc"
)

// Mute stops the panel answering cmd.
func (p *Panel) Mute(cmd protocol.Command) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.muted[cmd] = true
}

// Unmute undoes Mute.
func (p *Panel) Unmute(cmd protocol.Command) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.muted, cmd)
}

// MuteAll stops or resumes every reply.
func (p *Panel) MuteAll(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.muteAll = on
}

// CorruptNext flips the checksum byte of the next n responses.
func (p *Panel) CorruptNext(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.corrupt = n
}

// BreakBoot makes the first preamble of each boot announce the wrong stage.
func (p *Panel) BreakBoot(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.badBoot = on
}

// StallInput stops or resumes the panel accepting host bytes. Stalled bytes
// stay queued on the host side.
func (p *Panel) StallInput(on bool) {
	p.mu.Lock()
	p.stalled = on
	p.mu.Unlock()
	if !on {
		p.wake.Notify()
	}
}

// StallFinalAck makes the panel stall its input right after sending the
// last boot stage, so the host cannot deliver the final acknowledgement.
func (p *Panel) StallFinalAck(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stallFinal = on
}

// Inject sends raw bytes to the host.
func (p *Panel) Inject(raw []byte) {
	p.mu.Lock()
	p.out = append(p.out, raw...)
	p.mu.Unlock()
	p.wake.Notify()
}

// InjectFrame sends a well formed response frame to the host.
func (p *Panel) InjectFrame(id protocol.Response, payload []byte) {
	p.queue(id, payload)
	p.wake.Notify()
}

// PressKey reports a front keypad key.
func (p *Panel) PressKey(code, flags byte) {
	p.InjectFrame(protocol.RspKey, []byte{code, flags})
}

// PressRemote reports an IR remote key.
func (p *Panel) PressRemote(addr uint16, code, flags byte) {
	p.InjectFrame(protocol.RspRemote, []byte{byte(addr >> 8), byte(addr), code, flags})
}

// SetTime sets the panel RTC.
func (p *Panel) SetTime(t rtc.DeviceTime) {
	p.clock.Sample(t)
}

// Now returns the panel RTC.
func (p *Panel) Now() rtc.DeviceTime {
	return p.clock.Now()
}

// Wire returns every byte the host has transmitted.
func (p *Panel) Wire() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.wire...)
}

// Frames returns the host frames received so far.
func (p *Panel) Frames() []protocol.Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]protocol.Frame(nil), p.frames...)
}

// FramesOf returns the received host frames with command cmd.
func (p *Panel) FramesOf(cmd protocol.Command) []protocol.Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []protocol.Frame
	for _, f := range p.frames {
		if f.Command() == cmd {
			out = append(out, f)
		}
	}
	return out
}

// ResetLog clears the wire and frame logs.
func (p *Panel) ResetLog() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.wire = nil
	p.frames = nil
}

// State returns a copy of the panel state.
func (p *Panel) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.state
	st.Text = append([]byte(nil), st.Text...)
	st.Icons = append([]byte(nil), st.Icons...)
	st.LEDs = append([]bool(nil), st.LEDs...)
	return st
}
