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

// Package link implements the byte channel to the front processor: the
// transport between the hardware port and the RX/TX rings, the frame
// dispatcher with its boot handshake, and the serialized command layer.
package link

// Handler receives hardware notifications. Both methods run in the port's
// notification context and must return quickly.
type Handler interface {
	// RxReady is called when received bytes are waiting in the port.
	RxReady()
	// TxReady is called when the port can accept another byte, as long as
	// transmit notifications are enabled.
	TxReady()
}

// Port is the hardware side of the byte channel.
type Port interface {
	// Attach registers the notification handler. It is called once, before
	// any notification is delivered.
	Attach(h Handler)
	// Pop returns the next received byte, or false when none is waiting.
	Pop() (byte, bool)
	// Push hands one byte to the transmitter. It returns false when the
	// transmitter cannot take a byte right now.
	Push(b byte) bool
	// SetTxNotify enables or disables transmit-ready notifications.
	SetTxNotify(on bool)
	Close() error
}
