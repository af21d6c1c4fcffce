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

package display

import (
	"bytes"
	"context"
	"unicode/utf8"

	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/protocol"
	"github.com/rs/zerolog/log"
)

// normalize cuts b to the accepted prefix and strips a trailing newline.
// It returns the accepted byte count and the text to show.
func (d *Display) normalize(b []byte) (int, []byte) {
	n := len(b)
	if n > d.prof.MaxText {
		n = d.prof.MaxText
		for n > 0 && !utf8.RuneStart(b[n]) {
			n--
		}
	}
	text := b[:n]
	text = bytes.TrimSuffix(text, []byte("\n"))
	text = bytes.TrimSuffix(text, []byte("\r"))
	return n, append([]byte(nil), text...)
}

// frame renders glyphs into a ShowText payload of exactly the display width.
func (d *Display) frame(glyphs []byte) []byte {
	out := make([]byte, d.prof.Width)
	for i := range out {
		g := protocol.Blank
		if i < len(glyphs) {
			g = glyphs[i]
		}
		out[i] = d.prof.Segments(g)
	}
	return out
}

// Windows returns the sliding windows shown for glyphs wider than the
// display: the glyphs plus pad blanks, advanced one cell per step, ending on
// the last width cells.
func Windows(glyphs []byte, width, pad int) [][]byte {
	padded := make([]byte, 0, len(glyphs)+pad)
	padded = append(padded, glyphs...)
	padded = append(padded, bytes.Repeat([]byte{protocol.Blank}, pad)...)
	if len(padded) <= width {
		return [][]byte{padded}
	}
	steps := len(padded) - width + 1
	out := make([][]byte, steps)
	for i := range steps {
		out[i] = padded[i : i+width]
	}
	return out
}

// WriteText shows b. Text that fits is shown at once; longer text scrolls
// on the scroll worker and WriteText returns without waiting for it. It
// returns the number of bytes accepted.
func (d *Display) WriteText(ctx context.Context, b []byte) (int, error) {
	n, text := d.normalize(b)
	glyphs := d.prof.Glyphs.Encode(text)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.usable(); err != nil {
		return 0, err
	}

	if d.scroll.Active() {
		if bytes.Equal(text, d.text) {
			return n, nil
		}
		if err := d.scroll.Stop(d.opts.StopTimeout); err != nil {
			return 0, err
		}
	}

	d.text = text
	d.glyphs = glyphs
	if len(glyphs) <= d.prof.Width {
		if err := d.showLocked(ctx); err != nil {
			return 0, err
		}
		return n, nil
	}

	windows := Windows(glyphs, d.prof.Width, d.opts.ScrollPad)
	frames := make([][]byte, len(windows))
	for i, w := range windows {
		frames[i] = d.frame(w)
	}
	log.Debug().Int("steps", len(frames)).Msg("display: scrolling text")
	d.scroll.Start(func(ctx context.Context, phase int) (bool, error) {
		return phase+1 < len(frames), d.emit(ctx, protocol.CmdShowText, frames[phase]...)
	}, d.opts.ScrollDelay)
	return n, nil
}

// showLocked shows the current text without scrolling. Text wider than the
// display shows its final window. Called with mu held.
func (d *Display) showLocked(ctx context.Context) error {
	glyphs := d.glyphs
	if len(glyphs) > d.prof.Width {
		windows := Windows(glyphs, d.prof.Width, d.opts.ScrollPad)
		glyphs = windows[len(windows)-1]
	}
	return d.emit(ctx, protocol.CmdShowText, d.frame(glyphs)...)
}

// LastText returns the accepted text last written, without padding.
func (d *Display) LastText() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.text...)
}

// Scrolling returns the scroll worker status.
func (d *Display) Scrolling() Status {
	return d.scroll.Status()
}

// StopScroll stops a scroll in progress and waits until it has halted.
func (d *Display) StopScroll() error {
	return d.scroll.Stop(d.opts.StopTimeout)
}
