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
	"testing"

	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/fperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_ChecksumKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want []byte
		sum  ChecksumKind
	}{
		{name: "none", sum: ChecksumNone, want: []byte{0x11, 0x01, 0x05}},
		{name: "xor", sum: ChecksumXOR, want: []byte{0x11, 0x01, 0x05, 0x11 ^ 0x01 ^ 0x05}},
		{name: "sum8", sum: ChecksumSum8, want: []byte{0x11, 0x01, 0x05, 0x17}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Encode(byte(CmdBrightness), []byte{5}, tt.sum)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncode_TooLong(t *testing.T) {
	t.Parallel()

	_, err := Encode(byte(CmdShowText), make([]byte, MaxPayload+1), ChecksumNone)
	require.ErrorIs(t, err, fperr.ErrFrameTooLong)
}

func TestDecode_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			p, err := Lookup(name)
			require.NoError(t, err)

			raw, err := p.EncodeResponse(RspTime, []byte{0xeb, 0xd1, 12, 30, 0})
			require.NoError(t, err)

			d, err := p.Decode(raw)
			require.NoError(t, err)
			assert.Equal(t, len(raw), d.Len)
			assert.True(t, d.ChecksumOK)
			assert.Equal(t, RspTime, d.Frame.Response())
			assert.Equal(t, KindData, d.Spec.Kind)
			assert.Equal(t, []byte{0xeb, 0xd1, 12, 30, 0}, d.Frame.Payload)
		})
	}
}

func TestDecode_EveryPrefixIsIncomplete(t *testing.T) {
	t.Parallel()

	p := VFD16()
	raw, err := p.EncodeResponse(RspVersion, []byte{1, 2, 0, 7})
	require.NoError(t, err)

	for n := range len(raw) {
		_, err := p.Decode(raw[:n])
		require.ErrorIs(t, err, ErrIncomplete, "prefix of %d bytes", n)
	}
}

func TestDecode_Preamble(t *testing.T) {
	t.Parallel()

	p := VFD16()
	d, err := p.Decode(append(EncodePreamble(RspVersion), 0xff))
	require.NoError(t, err)
	assert.Equal(t, 2, d.Len)
	assert.Equal(t, KindPreamble, d.Spec.Kind)
	assert.Equal(t, []byte{byte(RspVersion)}, d.Frame.Payload)
}

func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	p := VFD16()

	_, err := p.Decode([]byte{0x42, 0x00})
	require.ErrorIs(t, err, ErrUnknownID)

	_, err = p.Decode([]byte{byte(RspAck), 0x03, 1, 2, 3})
	require.ErrorIs(t, err, ErrLengthMismatch)

	raw, err := p.EncodeResponse(RspAck, []byte{byte(CmdBrightness)})
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff
	d, err := p.Decode(raw)
	require.NoError(t, err)
	assert.False(t, d.ChecksumOK)
	assert.Equal(t, len(raw), d.Len)
}

func TestParseChecksumPolicy(t *testing.T) {
	t.Parallel()

	pol, err := ParseChecksumPolicy("Reject")
	require.NoError(t, err)
	assert.Equal(t, ChecksumReject, pol)

	pol, err = ParseChecksumPolicy("")
	require.NoError(t, err)
	assert.Equal(t, ChecksumLogOnly, pol)

	_, err = ParseChecksumPolicy("resend")
	require.Error(t, err)
}

func TestProfiles_Valid(t *testing.T) {
	t.Parallel()

	for _, name := range Names() {
		p, err := Lookup(name)
		require.NoError(t, err)
		require.NoError(t, p.Validate(), name)
	}

	_, err := Lookup("oled128")
	require.Error(t, err)
}

func TestProfile_CloneIsIndependent(t *testing.T) {
	t.Parallel()

	p := VFD16()
	c := p.Clone()
	c.BootStages[0].NeedsAck = false
	c.Width = 8

	assert.True(t, p.BootStages[0].NeedsAck)
	assert.Equal(t, 16, p.Width)
}

func TestCharmapGlyphs(t *testing.T) {
	t.Parallel()

	enc := VFD16().Glyphs
	assert.Equal(t, []byte("HELLO"), enc.Encode([]byte("HELLO")))
	assert.Equal(t, []byte{'C', 'a', 'f', 0xe9}, enc.Encode([]byte("Café")))
	assert.Equal(t, []byte{'a', ' ', 'b'}, enc.Encode([]byte("a\tb")))
	assert.Equal(t, []byte{' ', 'x'}, enc.Encode([]byte("€x")), "outside latin-1")
	assert.Equal(t, []byte{' ', 'x'}, enc.Encode([]byte{0xff, 'x'}), "invalid utf-8")
}

func TestTableGlyphs(t *testing.T) {
	t.Parallel()

	enc := LatinTableGlyphs()
	assert.Equal(t, []byte("Cafe"), enc.Encode([]byte("Café")))
	assert.Equal(t, []byte("20o"), enc.Encode([]byte("20°")))
	assert.Equal(t, []byte("EUR "), enc.Encode([]byte("EUR€")), "three byte sequence")
	assert.Equal(t, []byte("a b"), enc.Encode([]byte("a\x01b")))
	assert.Equal(t, []byte(" "), enc.Encode([]byte("Ā")), "no table for lead byte")
}

func TestSevenSegments(t *testing.T) {
	t.Parallel()

	assert.Equal(t, byte(0x3f), SevenSegments('0'))
	assert.Equal(t, SevenSegments('E'), SevenSegments('e'))
	assert.Equal(t, byte(0), SevenSegments(' '))
	assert.Equal(t, byte(0), SevenSegments(0xe9))
}

func TestCommandStrings(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "CMD_ShowText", CmdShowText.String())
	assert.Equal(t, "CMD_UNKNOWN_0x7e", Command(0x7e).String())
	assert.Equal(t, "RSP_Ack", RspAck.String())
	assert.Equal(t, "RPT_Key", RspKey.String())
}
