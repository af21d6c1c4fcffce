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

// Package protocol defines the framing used on the byte channel between the
// host and the front processor, and the device profiles that capture the
// differences between panel families.
//
// Frame layout, both directions:
//
//	[id][length][payload...][checksum?]
//
// length counts payload bytes only. Whether a checksum byte follows is a
// property of the profile: families without one terminate frames implicitly
// by length. The boot preamble is a fixed two byte frame, [0xA0][next id],
// with neither length nor checksum.
package protocol

import (
	"errors"
	"fmt"

	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/fperr"
)

// MaxPayload is the largest payload any frame may carry.
const MaxPayload = 32

// MaxFrameLen is the longest possible encoded frame.
const MaxFrameLen = 2 + MaxPayload + 1

var (
	// ErrIncomplete means the buffer holds a valid frame prefix and more
	// bytes are needed. It is never a protocol error.
	ErrIncomplete = errors.New("incomplete frame")
	// ErrUnknownID means the leading identity byte is not in the profile's
	// response table.
	ErrUnknownID = errors.New("unrecognized frame id")
	// ErrLengthMismatch means the declared length disagrees with the length
	// expected for the frame id.
	ErrLengthMismatch = errors.New("declared length does not match frame id")
)

// Frame is one decoded protocol message.
type Frame struct {
	Payload []byte
	ID      byte
}

// Response returns the id as a panel response.
func (f Frame) Response() Response {
	return Response(f.ID)
}

// Command returns the id as a host command.
func (f Frame) Command() Command {
	return Command(f.ID)
}

func (f Frame) String() string {
	if len(f.Payload) == 0 {
		return fmt.Sprintf("0x%02x <no data>", f.ID)
	}
	return fmt.Sprintf("0x%02x [%02d]data=% x", f.ID, len(f.Payload), f.Payload)
}

// Encode serializes a host frame using the checksum kind of the profile.
func Encode(id byte, payload []byte, sum ChecksumKind) ([]byte, error) {
	if len(payload) > MaxPayload {
		return nil, fmt.Errorf("%w: %d bytes", fperr.ErrFrameTooLong, len(payload))
	}
	buf := make([]byte, 0, 3+len(payload))
	buf = append(buf, id, byte(len(payload)))
	buf = append(buf, payload...)
	if sum != ChecksumNone {
		buf = append(buf, sum.Compute(buf))
	}
	return buf, nil
}

// EncodePreamble serializes the two byte preamble announcing next.
func EncodePreamble(next Response) []byte {
	return []byte{byte(RspPreamble), byte(next)}
}

// Decoded is the result of decoding one frame from the head of a buffer.
type Decoded struct {
	Frame Frame
	Spec  ResponseSpec
	// Len is the number of bytes the frame occupies, trailer included.
	Len int
	// ChecksumOK is false when a checksum was present and did not verify.
	ChecksumOK bool
}

// Decode parses one panel to host frame from the head of buf.
//
// It returns ErrIncomplete when buf is a prefix of a valid frame, which the
// caller must treat as "wait for more bytes" and never as an error. A
// checksum mismatch is reported through Decoded.ChecksumOK so the caller can
// apply its own policy; the frame length is still valid in that case.
func (p *Profile) Decode(buf []byte) (Decoded, error) {
	if len(buf) == 0 {
		return Decoded{}, ErrIncomplete
	}
	spec, ok := p.responseSpec(Response(buf[0]))
	if !ok {
		return Decoded{}, fmt.Errorf("%w: 0x%02x", ErrUnknownID, buf[0])
	}

	if spec.Fixed {
		total := 1 + spec.Payload
		if len(buf) < total {
			return Decoded{}, ErrIncomplete
		}
		return Decoded{
			Frame:      Frame{ID: buf[0], Payload: clone(buf[1:total])},
			Spec:       spec,
			Len:        total,
			ChecksumOK: true,
		}, nil
	}

	if len(buf) < 2 {
		return Decoded{}, ErrIncomplete
	}
	declared := int(buf[1])
	if declared != spec.Payload {
		return Decoded{}, fmt.Errorf(
			"%w: %s declared %d, want %d",
			ErrLengthMismatch, spec.ID, declared, spec.Payload,
		)
	}
	trailer := 0
	if p.Checksum != ChecksumNone {
		trailer = 1
	}
	total := 2 + declared + trailer
	if len(buf) < total {
		return Decoded{}, ErrIncomplete
	}

	d := Decoded{
		Frame:      Frame{ID: buf[0], Payload: clone(buf[2 : 2+declared])},
		Spec:       spec,
		Len:        total,
		ChecksumOK: true,
	}
	if trailer == 1 {
		d.ChecksumOK = p.Checksum.Compute(buf[:2+declared]) == buf[total-1]
	}
	return d, nil
}

// EncodeResponse serializes a panel to host frame. It is the inverse of
// Decode and is used by the simulator and tests.
func (p *Profile) EncodeResponse(id Response, payload []byte) ([]byte, error) {
	spec, ok := p.responseSpec(id)
	if ok && spec.Fixed {
		out := make([]byte, 0, 1+len(payload))
		out = append(out, byte(id))
		return append(out, payload...), nil
	}
	return Encode(byte(id), payload, p.Checksum)
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
