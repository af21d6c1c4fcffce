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
	"errors"
	"fmt"

	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/fperr"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/protocol"
)

// Phase is the dispatcher's position in the channel lifecycle.
type Phase int

const (
	// PhaseIdle means no handshake is running and boot has not completed.
	PhaseIdle Phase = iota
	// PhaseBootWait means staged boot responses are expected.
	PhaseBootWait
	// PhaseReady is normal operation.
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseBootWait:
		return "boot-wait"
	case PhaseReady:
		return "ready"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

var (
	errUnexpectedStage = errors.New("preamble announced unexpected stage")
	errTooManyPreamble = errors.New("too many preambles")
)

// BootResult is delivered once per boot handshake.
type BootResult struct {
	// Frames holds the staged responses by id.
	Frames map[protocol.Response]protocol.Frame
	Err    error
}

// handshake tracks one boot handshake. It is created by BeginBoot and
// destroyed on completion or abort.
type handshake struct {
	done      chan BootResult
	frames    map[protocol.Response]protocol.Frame
	stages    []protocol.BootStage
	max       int
	stage     int
	preambles int
	announced protocol.Response
}

func newHandshake(p *protocol.Profile) *handshake {
	return &handshake{
		done:   make(chan BootResult, 1),
		frames: make(map[protocol.Response]protocol.Frame, len(p.BootStages)),
		stages: p.BootStages,
		max:    p.MaxPreambles,
	}
}

// expected returns the stage the handshake is waiting for.
func (h *handshake) expected() protocol.BootStage {
	return h.stages[h.stage]
}

// preamble records an announcement and returns an abort error if the
// handshake cannot continue.
func (h *handshake) preamble(next protocol.Response) error {
	h.preambles++
	if h.preambles > h.max {
		return fmt.Errorf("%w: %d", errTooManyPreamble, h.preambles)
	}
	if want := h.expected().ID; next != want {
		return fmt.Errorf("%w: got %s, want %s", errUnexpectedStage, next, want)
	}
	h.announced = next
	return nil
}

// accepts reports whether f is the announced staged response.
func (h *handshake) accepts(f protocol.Frame) bool {
	return h.announced != 0 && f.Response() == h.announced
}

// advance records the staged frame and reports whether that was the last
// stage.
func (h *handshake) advance(f protocol.Frame) bool {
	h.frames[f.Response()] = f
	h.stage++
	h.announced = 0
	return h.stage == len(h.stages)
}

func (h *handshake) finish(err error) {
	if err != nil {
		err = fmt.Errorf("%w: %w", fperr.ErrBootFailed, err)
	}
	h.done <- BootResult{Frames: h.frames, Err: err}
}
