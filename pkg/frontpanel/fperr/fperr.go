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

// Package fperr holds the error taxonomy shared by every layer of the
// front panel core. Callers compare with errors.Is; layers wrap these with
// context using fmt.Errorf and %w.
package fperr

import "errors"

var (
	// ErrTimeout means no acknowledgement arrived within the bounded wait.
	// The command may be retried by the caller; nothing retries it
	// automatically.
	ErrTimeout = errors.New("front processor did not answer in time")

	// ErrBadArgument is returned before any frame is sent when an icon id,
	// brightness level or LED id is out of range.
	ErrBadArgument = errors.New("argument out of range")

	// ErrNotSupported is returned for operations that are meaningless for the
	// attached display type.
	ErrNotSupported = errors.New("unsupported on this device")

	// ErrConflict is returned to the second opener of the exclusive key
	// channel.
	ErrConflict = errors.New("channel already open")

	// ErrChecksum marks a frame whose checksum did not verify. Depending on
	// the checksum policy it is only logged, or the frame is dropped.
	ErrChecksum = errors.New("frame checksum mismatch")

	// ErrNotOpen is returned when closing a channel nobody opened.
	ErrNotOpen = errors.New("channel not open")

	// ErrClosed is returned for operations on a device that was shut down.
	ErrClosed = errors.New("device closed")

	// ErrBootFailed means the boot handshake did not complete.
	ErrBootFailed = errors.New("boot handshake failed")

	// ErrFrameTooLong is returned when a payload exceeds the frame limit.
	ErrFrameTooLong = errors.New("frame payload too long")
)
