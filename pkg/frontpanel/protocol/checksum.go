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
	"fmt"
	"strings"
)

// ChecksumKind selects the frame trailer used by a panel family.
type ChecksumKind int

const (
	// ChecksumNone frames end where their declared length says.
	ChecksumNone ChecksumKind = iota
	// ChecksumXOR is the XOR of id, length and payload.
	ChecksumXOR
	// ChecksumSum8 is the 8-bit sum of id, length and payload.
	ChecksumSum8
)

// Compute returns the trailer byte for b.
func (c ChecksumKind) Compute(b []byte) byte {
	var v byte
	switch c {
	case ChecksumXOR:
		for _, x := range b {
			v ^= x
		}
	case ChecksumSum8:
		for _, x := range b {
			v += x
		}
	case ChecksumNone:
	}
	return v
}

func (c ChecksumKind) String() string {
	switch c {
	case ChecksumNone:
		return "none"
	case ChecksumXOR:
		return "xor"
	case ChecksumSum8:
		return "sum8"
	default:
		return "unknown"
	}
}

// ChecksumPolicy decides what the dispatcher does with a frame whose
// checksum does not verify. Panel families disagree here: some drivers log
// the mismatch and use the data anyway, others drop the frame.
type ChecksumPolicy int

const (
	// ChecksumLogOnly logs the mismatch and delivers the frame.
	ChecksumLogOnly ChecksumPolicy = iota
	// ChecksumReject logs the mismatch and drops the frame. A caller waiting
	// for it eventually times out.
	ChecksumReject
)

func (c ChecksumPolicy) String() string {
	if c == ChecksumReject {
		return "reject"
	}
	return "log"
}

// ParseChecksumPolicy parses the config spelling of a policy.
func ParseChecksumPolicy(s string) (ChecksumPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "log":
		return ChecksumLogOnly, nil
	case "reject":
		return ChecksumReject, nil
	default:
		return ChecksumLogOnly, fmt.Errorf("unknown checksum policy: %q", s)
	}
}
