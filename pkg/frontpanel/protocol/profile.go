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
	"sort"
	"strings"

	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/rtc"
	"golang.org/x/text/encoding/charmap"
)

// DisplayKind is the display technology reported in the version response.
type DisplayKind byte

const (
	DisplayVFD DisplayKind = iota
	DisplayLED
	DisplayLCD
)

func (d DisplayKind) String() string {
	switch d {
	case DisplayVFD:
		return "vfd"
	case DisplayLED:
		return "led"
	case DisplayLCD:
		return "lcd"
	default:
		return fmt.Sprintf("kind(%d)", byte(d))
	}
}

// BootStage is one staged response expected after the boot command.
type BootStage struct {
	ID       Response
	NeedsAck bool
}

// Profile captures everything that differs between panel families. The
// transport, dispatcher, command layer and renderer take one and never
// branch on the model themselves.
type Profile struct {
	Glyphs   GlyphEncoder
	Segments SegmentMapper

	Name       string
	BootStages []BootStage
	Responses  []ResponseSpec
	// Epoch is the time a panel whose RTC never ran reports at boot.
	Epoch rtc.DeviceTime

	Width         int
	MaxText       int
	Icons         int
	SpinnerPhases int
	LEDs          int
	BrightnessMax int
	// MaxPreambles bounds the preambles accepted during one boot handshake.
	MaxPreambles int

	Checksum       ChecksumKind
	ChecksumPolicy ChecksumPolicy
	Kind           DisplayKind
	SpinnerIcon    byte
	// RecoverOnAbort sends the dispatcher to Ready after an aborted boot
	// handshake instead of leaving it idle until the next boot command.
	RecoverOnAbort bool
}

func (p *Profile) responseSpec(id Response) (ResponseSpec, bool) {
	table := p.Responses
	if len(table) == 0 {
		table = DefaultResponses
	}
	for _, spec := range table {
		if spec.ID == id {
			return spec, true
		}
	}
	return ResponseSpec{}, false
}

// Spec returns the response spec for id.
func (p *Profile) Spec(id Response) (ResponseSpec, bool) {
	return p.responseSpec(id)
}

// HasIcons reports whether the display has addressable icons.
func (p *Profile) HasIcons() bool {
	return p.Icons > 0
}

// HasSpinner reports whether the display has a rotating busy indicator.
func (p *Profile) HasSpinner() bool {
	return p.SpinnerPhases > 0
}

// Validate checks a profile for internal consistency.
func (p *Profile) Validate() error {
	switch {
	case p.Name == "":
		return fmt.Errorf("profile has no name")
	case p.Width <= 0 || p.Width > MaxPayload:
		return fmt.Errorf("profile %s: width %d out of range", p.Name, p.Width)
	case p.MaxText < p.Width:
		return fmt.Errorf("profile %s: max text %d shorter than width", p.Name, p.MaxText)
	case p.Glyphs == nil:
		return fmt.Errorf("profile %s: no glyph encoder", p.Name)
	case p.MaxPreambles < len(p.BootStages):
		return fmt.Errorf("profile %s: max preambles below stage count", p.Name)
	}
	for _, st := range p.BootStages {
		spec, ok := p.responseSpec(st.ID)
		if !ok || spec.Kind != KindData {
			return fmt.Errorf("profile %s: boot stage %s is not a data response", p.Name, st.ID)
		}
	}
	return nil
}

// Clone returns a copy that may be modified without touching the original.
func (p *Profile) Clone() *Profile {
	c := *p
	c.BootStages = append([]BootStage(nil), p.BootStages...)
	c.Responses = append([]ResponseSpec(nil), p.Responses...)
	return &c
}

var profiles = map[string]func() *Profile{
	"vfd16": VFD16,
	"led4":  LED4,
}

// Lookup returns a fresh copy of the named built-in profile.
func Lookup(name string) (*Profile, error) {
	mk, ok := profiles[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown panel profile %q (have %s)", name, strings.Join(Names(), ", "))
	}
	return mk(), nil
}

// Names lists the built-in profiles.
func Names() []string {
	names := make([]string, 0, len(profiles))
	for k := range profiles {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// VFD16 is a 16 character dot-matrix VFD with icons and a spinner ring.
func VFD16() *Profile {
	return &Profile{
		Name:          "vfd16",
		Kind:          DisplayVFD,
		Width:         16,
		MaxText:       64,
		Icons:         45,
		SpinnerIcon:   46,
		SpinnerPhases: 8,
		LEDs:          2,
		BrightnessMax: 7,
		Checksum:      ChecksumXOR,
		BootStages: []BootStage{
			{ID: RspVersion, NeedsAck: true},
			{ID: RspTime, NeedsAck: true},
			{ID: RspPrivate, NeedsAck: true},
		},
		MaxPreambles:   6,
		RecoverOnAbort: true,
		Epoch:          rtc.DeviceTime{MJD: rtc.DateToMJD(2000, 1, 1)},
		Glyphs:         CharmapGlyphs{Charmap: charmap.ISO8859_1},
		Segments:       IdentitySegments,
	}
}

// LED4 is a four digit seven-segment display without icons.
func LED4() *Profile {
	return &Profile{
		Name:          "led4",
		Kind:          DisplayLED,
		Width:         4,
		MaxText:       32,
		LEDs:          1,
		BrightnessMax: 7,
		Checksum:      ChecksumNone,
		BootStages: []BootStage{
			{ID: RspVersion, NeedsAck: true},
			{ID: RspTime},
		},
		MaxPreambles: 3,
		Epoch:        rtc.DeviceTime{MJD: rtc.UnixEpochMJD},
		Glyphs:       LatinTableGlyphs(),
		Segments:     SevenSegments,
	}
}
