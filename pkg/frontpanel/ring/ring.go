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

// Package ring implements the fixed-capacity byte rings that sit between
// the byte transport and the frame dispatcher.
//
// A Ring has exactly one producer and one consumer. Cursors are free-running
// counters masked into a power-of-two backing array, so Len is always
// head-tail without a separate full flag. The producer only stores head and
// the consumer only stores tail; both are atomics so the two sides may run on
// different goroutines without any further locking.
package ring

import "sync/atomic"

// MaxCapacity bounds the backing array.
const MaxCapacity = 1 << 16

// Ring is a single-producer single-consumer byte FIFO.
type Ring struct {
	buf  []byte
	mask uint32
	head atomic.Uint32 // next write position, producer owned
	tail atomic.Uint32 // next read position, consumer owned
}

// New returns a ring holding at least size bytes, rounded up to the next
// power of two and clamped to [2, MaxCapacity].
func New(size int) *Ring {
	n := 2
	for n < size && n < MaxCapacity {
		n <<= 1
	}
	return &Ring{
		buf:  make([]byte, n),
		mask: uint32(n - 1), //nolint:gosec // n is bounded by MaxCapacity
	}
}

// Cap returns the ring capacity in bytes.
func (r *Ring) Cap() int {
	return len(r.buf)
}

// Len returns the number of unconsumed bytes.
func (r *Ring) Len() int {
	return int(r.head.Load() - r.tail.Load())
}

// Free returns the number of bytes the producer can still append.
func (r *Ring) Free() int {
	return r.Cap() - r.Len()
}

// Empty reports whether there is nothing to consume.
func (r *Ring) Empty() bool {
	return r.Len() == 0
}

// Put appends one byte. It returns false, dropping the byte, when the ring
// is full. Producer side only.
func (r *Ring) Put(b byte) bool {
	head := r.head.Load()
	if head-r.tail.Load() >= uint32(len(r.buf)) { //nolint:gosec // bounded
		return false
	}
	r.buf[head&r.mask] = b
	r.head.Store(head + 1)
	return true
}

// Write appends as much of p as fits and returns the count written.
// Producer side only.
func (r *Ring) Write(p []byte) int {
	for i, b := range p {
		if !r.Put(b) {
			return i
		}
	}
	return len(p)
}

// Get removes and returns the oldest byte. Consumer side only.
func (r *Ring) Get() (byte, bool) {
	tail := r.tail.Load()
	if tail == r.head.Load() {
		return 0, false
	}
	b := r.buf[tail&r.mask]
	r.tail.Store(tail + 1)
	return b, true
}

// Peek returns the byte at offset i from the consumer cursor without
// consuming it. Consumer side only.
func (r *Ring) Peek(i int) (byte, bool) {
	if i < 0 || i >= r.Len() {
		return 0, false
	}
	tail := r.tail.Load()
	return r.buf[(tail+uint32(i))&r.mask], true //nolint:gosec // i < Len
}

// PeekInto copies up to len(dst) unconsumed bytes into dst without consuming
// them and returns the count copied. Consumer side only.
func (r *Ring) PeekInto(dst []byte) int {
	n := min(len(dst), r.Len())
	tail := r.tail.Load()
	for i := range n {
		dst[i] = r.buf[(tail+uint32(i))&r.mask] //nolint:gosec // i < n
	}
	return n
}

// Discard advances the consumer cursor by n bytes, or by Len if fewer are
// buffered, and returns the count discarded. Consumer side only.
func (r *Ring) Discard(n int) int {
	n = max(0, min(n, r.Len()))
	r.tail.Add(uint32(n)) //nolint:gosec // n <= Len
	return n
}

// DiscardAll moves the consumer cursor onto the producer cursor and returns
// the count of bytes thrown away. Consumer side only.
func (r *Ring) DiscardAll() int {
	head := r.head.Load()
	n := int(head - r.tail.Load())
	r.tail.Store(head)
	return n
}
