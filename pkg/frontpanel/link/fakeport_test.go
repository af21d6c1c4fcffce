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
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/helpers/syncutil"
)

// fakePort is a synchronous Port: tests call feed and pump to play the
// receive and transmit interrupts on their own goroutine.
type fakePort struct {
	h    Handler
	in   []byte
	out  []byte
	mu   syncutil.Mutex
	txOn bool
}

func (p *fakePort) Attach(h Handler) { p.h = h }

func (p *fakePort) Pop() (byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.in) == 0 {
		return 0, false
	}
	b := p.in[0]
	p.in = p.in[1:]
	return b, true
}

func (p *fakePort) Push(b byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = append(p.out, b)
	return true
}

func (p *fakePort) SetTxNotify(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.txOn = on
}

func (*fakePort) Close() error { return nil }

func (p *fakePort) txEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.txOn
}

// feed delivers b as one receive notification.
func (p *fakePort) feed(b []byte) {
	p.mu.Lock()
	p.in = append(p.in, b...)
	p.mu.Unlock()
	p.h.RxReady()
}

// pump plays transmit interrupts until the transport switches them off and
// returns what was transmitted.
func (p *fakePort) pump() []byte {
	for p.txEnabled() {
		p.h.TxReady()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.out
	p.out = nil
	return out
}
