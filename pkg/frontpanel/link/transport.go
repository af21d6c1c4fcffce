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

	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/fperr"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/ring"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

// Transport moves bytes between the port and the two rings.
//
// The port's notification context is the only producer on RX and the only
// consumer on TX. The dispatcher is the only RX consumer. TX producers are
// serialized by txMu, which is a leaf lock: nothing else is acquired while
// holding it.
type Transport struct {
	port    Port
	rx      *ring.Ring
	tx      *ring.Ring
	rxReady *syncutil.Signal
	txSpace *syncutil.Signal
	txIdle  *syncutil.Signal
	stats   *Stats
	txMu    syncutil.Mutex
}

// NewTransport attaches a transport to port.
func NewTransport(port Port, rxCap, txCap int, stats *Stats) *Transport {
	if stats == nil {
		stats = &Stats{}
	}
	t := &Transport{
		port:    port,
		rx:      ring.New(rxCap),
		tx:      ring.New(txCap),
		rxReady: syncutil.NewSignal(),
		txSpace: syncutil.NewSignal(),
		txIdle:  syncutil.NewSignal(),
		stats:   stats,
	}
	port.Attach(t)
	return t
}

// RxReady drains the port into RX. When RX is full the byte is dropped and
// counted, and draining continues so the hardware never stalls.
func (t *Transport) RxReady() {
	got, dropped := 0, 0
	for {
		b, ok := t.port.Pop()
		if !ok {
			break
		}
		if t.rx.Put(b) {
			got++
		} else {
			dropped++
		}
	}
	if dropped > 0 {
		t.stats.RxOverflows.Add(uint64(dropped)) //nolint:gosec // positive count
		log.Warn().Int("dropped", dropped).Msg("link: rx ring overflow, input truncated")
	}
	if got > 0 {
		t.rxReady.Notify()
	}
}

// TxReady pushes the next pending byte into the port. Once TX is empty the
// transmit notification is switched off; a writer switches it back on.
func (t *Transport) TxReady() {
	if b, ok := t.tx.Peek(0); ok && t.port.Push(b) {
		t.tx.Discard(1)
		t.txSpace.Notify()
	}
	if !t.tx.Empty() {
		return
	}
	t.txIdle.Notify()
	t.port.SetTxNotify(false)
	// A writer may have queued bytes and enabled notifications between the
	// emptiness check and the disable above.
	if !t.tx.Empty() {
		t.port.SetTxNotify(true)
	}
}

// Write queues frame on TX as one contiguous run and arms the transmitter.
// It waits for ring space if necessary.
func (t *Transport) Write(ctx context.Context, frame []byte) error {
	if len(frame) > t.tx.Cap() {
		return fmt.Errorf("%w: %d byte frame exceeds tx ring", fperr.ErrFrameTooLong, len(frame))
	}
	t.txMu.Lock()
	defer t.txMu.Unlock()

	for t.tx.Free() < len(frame) {
		t.port.SetTxNotify(true)
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for tx space: %w", ctx.Err())
		case <-t.txSpace.C():
		}
	}
	t.tx.Write(frame)
	t.stats.FramesOut.Add(1)
	t.port.SetTxNotify(true)
	return nil
}

// RxSignal is notified whenever new bytes land in RX.
func (t *Transport) RxSignal() <-chan struct{} {
	return t.rxReady.C()
}

// RxLen returns the number of unconsumed RX bytes.
func (t *Transport) RxLen() int {
	return t.rx.Len()
}

// WaitIdle blocks until every queued byte has been handed to the port.
func (t *Transport) WaitIdle(ctx context.Context) error {
	for !t.tx.Empty() {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for tx to drain: %w", ctx.Err())
		case <-t.txIdle.C():
		}
	}
	return nil
}

// TxLen returns the number of bytes waiting to be transmitted.
func (t *Transport) TxLen() int {
	return t.tx.Len()
}
