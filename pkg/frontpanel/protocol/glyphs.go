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

package protocol

import (
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Blank is the glyph shown for anything the display cannot render.
const Blank byte = ' '

// GlyphEncoder turns UTF-8 text into one glyph index per displayed cell.
type GlyphEncoder interface {
	Encode(text []byte) []byte
}

// SegmentMapper converts a glyph index to the code put on the wire.
type SegmentMapper func(glyph byte) byte

// IdentitySegments is used by dot-matrix displays that take glyph indices
// directly.
func IdentitySegments(glyph byte) byte { return glyph }

func isControl(b byte) bool {
	return b < 0x20 || b == 0x7f
}

// CharmapGlyphs encodes through a single byte code page. Runes outside the
// code page, control characters and invalid UTF-8 become blanks.
type CharmapGlyphs struct {
	Charmap *charmap.Charmap
}

func (c CharmapGlyphs) Encode(text []byte) []byte {
	out := make([]byte, 0, len(text))
	for len(text) > 0 {
		r, size := utf8.DecodeRune(text)
		text = text[size:]
		if r == utf8.RuneError && size <= 1 {
			out = append(out, Blank)
			continue
		}
		if r < 0x80 && isControl(byte(r)) || r >= 0x80 && r < 0xa0 {
			out = append(out, Blank)
			continue
		}
		b, ok := c.Charmap.EncodeRune(r)
		if !ok {
			b = Blank
		}
		out = append(out, b)
	}
	return out
}

// TableGlyphs maps multi-byte sequences through substitution tables indexed
// by the sequence's lead byte, with the continuation byte's low six bits
// selecting the glyph. ASCII passes through unchanged. Sequences whose lead
// byte has no table, and table entries left zero, render as blanks, and so
// do three and four byte sequences.
type TableGlyphs struct {
	Tables map[byte]*[64]byte
}

func (t TableGlyphs) Encode(text []byte) []byte {
	out := make([]byte, 0, len(text))
	for i := 0; i < len(text); {
		b := text[i]
		if b < utf8.RuneSelf {
			if isControl(b) {
				b = Blank
			}
			out = append(out, b)
			i++
			continue
		}
		_, size := utf8.DecodeRune(text[i:])
		if size == 2 {
			glyph := Blank
			if table := t.Tables[b]; table != nil && table[text[i+1]&0x3f] != 0 {
				glyph = table[text[i+1]&0x3f]
			}
			out = append(out, glyph)
		} else {
			out = append(out, Blank)
		}
		i += size
	}
	return out
}

// LatinTableGlyphs folds the Latin-1 supplement onto plain letters, which is
// the best a seven-segment digit can do.
func LatinTableGlyphs() TableGlyphs {
	var c2, c3 [64]byte
	// U+00B0..U+00BF
	c2[0x30] = 'o' // degree sign
	c2[0x37] = '-' // middle dot
	// U+00C0..U+00FF: the continuation byte runs 0x80..0xbf.
	for i, s := range []string{
		"AAAAAAACEEEEIIII", // U+00C0
		"DNOOOOOxOUUUUYPs", // U+00D0
		"aaaaaaaceeeeiiii", // U+00E0
		"dnooooo-ouuuuypy", // U+00F0
	} {
		for j := range len(s) {
			c3[i*16+j] = s[j]
		}
	}
	return TableGlyphs{Tables: map[byte]*[64]byte{0xc2: &c2, 0xc3: &c3}}
}

// Segment bits: a=0x01 b=0x02 c=0x04 d=0x08 e=0x10 f=0x20 g=0x40.
var sevenSegment = [128]byte{
	'0': 0x3f, '1': 0x06, '2': 0x5b, '3': 0x4f, '4': 0x66,
	'5': 0x6d, '6': 0x7d, '7': 0x07, '8': 0x7f, '9': 0x6f,
	'A': 0x77, 'B': 0x7c, 'C': 0x39, 'D': 0x5e, 'E': 0x79, 'F': 0x71,
	'G': 0x3d, 'H': 0x76, 'I': 0x30, 'J': 0x1e, 'K': 0x75, 'L': 0x38,
	'M': 0x37, 'N': 0x54, 'O': 0x5c, 'P': 0x73, 'Q': 0x67, 'R': 0x50,
	'S': 0x6d, 'T': 0x78, 'U': 0x3e, 'V': 0x1c, 'W': 0x2a, 'X': 0x76,
	'Y': 0x6e, 'Z': 0x5b,
	'-': 0x40, '_': 0x08, '=': 0x48, '?': 0x53, '\'': 0x20, '"': 0x22,
	'[': 0x39, ']': 0x0f, '(': 0x39, ')': 0x0f, '/': 0x52, '\\': 0x64,
}

// SevenSegments maps a glyph to segment bits. Letters are case folded and
// anything without a shape is dark.
func SevenSegments(glyph byte) byte {
	if glyph >= 'a' && glyph <= 'z' {
		glyph -= 'a' - 'A'
	}
	if glyph >= 0x80 {
		return 0
	}
	return sevenSegment[glyph]
}
