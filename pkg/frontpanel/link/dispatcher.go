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
	"context"
	"errors"

	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/fperr"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/protocol"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

// Dispatcher is the single consumer of RX. It cuts frames, runs the boot
// handshake and routes everything else to the key queue or the pending
// command slot.
type Dispatcher struct {
	tr      *Transport
	prof    *protocol.Profile
	keys    *KeyQueue
	pending *Pending
	stats   *Stats
	boot    *handshake
	tap     func(protocol.Frame)
	scratch []byte
	mu      syncutil.Mutex // guards phase, boot and tap
	phase   Phase
	policy  protocol.ChecksumPolicy
}

// NewDispatcher wires a dispatcher between tr and its consumers.
func NewDispatcher(
	tr *Transport,
	prof *protocol.Profile,
	keys *KeyQueue,
	pending *Pending,
	stats *Stats,
) *Dispatcher {
	return &Dispatcher{
		tr:      tr,
		prof:    prof,
		keys:    keys,
		pending: pending,
		stats:   stats,
		policy:  prof.ChecksumPolicy,
		scratch: make([]byte, protocol.MaxFrameLen),
	}
}

// Phase returns the current lifecycle phase.
func (d *Dispatcher) Phase() Phase {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.phase
}

// SetTap registers fn to observe every accepted frame before it is routed.
// fn runs on the dispatcher goroutine and must not block.
func (d *Dispatcher) SetTap(fn func(protocol.Frame)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tap = fn
}

// BeginBoot resets any handshake in progress and starts a new one. The
// returned channel receives exactly one result.
func (d *Dispatcher) BeginBoot() <-chan BootResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.boot != nil {
		log.Warn().Msg("link: boot restarted, previous handshake discarded")
	}
	h := newHandshake(d.prof)
	d.boot = h
	d.phase = PhaseBootWait
	if len(h.stages) == 0 {
		d.completeBoot(nil)
	}
	return h.done
}

// AbortBoot ends a running handshake with err. It does nothing when no
// handshake is running.
func (d *Dispatcher) AbortBoot(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.boot != nil {
		d.completeBoot(err)
	}
}

func (d *Dispatcher) completeBoot(err error) {
	h := d.boot
	d.boot = nil
	switch {
	case err == nil:
		d.phase = PhaseReady
		log.Info().Int("stages", len(h.stages)).Msg("link: boot handshake complete")
	case d.prof.RecoverOnAbort:
		d.phase = PhaseReady
		log.Error().Err(err).Msg("link: boot handshake aborted, continuing")
	default:
		d.phase = PhaseIdle
		log.Error().Err(err).Msg("link: boot handshake aborted")
	}
	h.finish(err)
}

// Run consumes RX until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		d.drain(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-d.tr.RxSignal():
		}
	}
}

// drain handles every complete frame currently in RX. A partial frame is
// left in place for the next wake.
func (d *Dispatcher) drain(ctx context.Context) {
	for {
		n := d.tr.rx.PeekInto(d.scratch)
		if n == 0 {
			return
		}
		dec, err := d.prof.Decode(d.scratch[:n])
		if errors.Is(err, protocol.ErrIncomplete) {
			return
		}
		if err != nil {
			dropped := d.tr.rx.DiscardAll()
			d.stats.Resyncs.Add(1)
			log.Warn().Err(err).Int("dropped", dropped).Msg("link: resync, rx discarded")
			continue
		}
		d.tr.rx.Discard(dec.Len)
		d.stats.FramesIn.Add(1)

		if !dec.ChecksumOK {
			d.stats.ChecksumErrors.Add(1)
			if d.policy == protocol.ChecksumReject {
				log.Warn().Err(fperr.ErrChecksum).Stringer("frame", dec.Frame).Msg("link: frame dropped")
				continue
			}
			log.Warn().Err(fperr.ErrChecksum).Stringer("frame", dec.Frame).Msg("link: frame used")
		}
		log.Debug().Stringer("id", dec.Frame.Response()).Stringer("frame", dec.Frame).Msg("link: rx")
		d.route(ctx, dec)
	}
}

func (d *Dispatcher) route(ctx context.Context, dec protocol.Decoded) {
	f := dec.Frame
	d.mu.Lock()
	tap := d.tap
	d.mu.Unlock()
	if tap != nil {
		tap(f)
	}

	if dec.Spec.Kind == protocol.KindKey {
		ev, err := ParseKeyEvent(f)
		if err != nil {
			log.Warn().Err(err).Msg("link: bad key report")
			return
		}
		d.keys.Push(ev)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.boot != nil {
		d.routeBoot(ctx, dec)
		return
	}

	switch dec.Spec.Kind {
	case protocol.KindPreamble:
		log.Warn().Stringer("frame", f).Msg("link: preamble outside boot handshake")
	case protocol.KindAck, protocol.KindData:
		if !d.pending.Complete(f) {
			d.stats.StaleReplies.Add(1)
			log.Warn().Stringer("frame", f).Msg("link: stale reply dropped")
		}
	case protocol.KindKey, protocol.KindUnknown:
	}
}

// routeBoot runs the handshake state machine. Called with d.mu held.
func (d *Dispatcher) routeBoot(ctx context.Context, dec protocol.Decoded) {
	h := d.boot
	f := dec.Frame
	switch {
	case dec.Spec.Kind == protocol.KindPreamble:
		if err := h.preamble(protocol.Response(f.Payload[0])); err != nil {
			d.completeBoot(err)
		}
	case h.accepts(f):
		stage := h.expected()
		if stage.NeedsAck {
			ack, err := protocol.Encode(byte(protocol.CmdBootAck), []byte{byte(stage.ID)}, d.prof.Checksum)
			if err == nil {
				err = d.tr.Write(ctx, ack)
			}
			if err != nil {
				d.completeBoot(err)
				return
			}
		}
		log.Debug().Stringer("stage", stage.ID).Int("index", h.stage).Msg("link: boot stage received")
		if h.advance(f) {
			d.completeBoot(nil)
		}
	default:
		// A command issued before boot finishes may still be waiting.
		if !d.pending.Complete(f) {
			d.stats.StaleReplies.Add(1)
			log.Warn().Stringer("frame", f).Msg("link: unexpected frame during boot dropped")
		}
	}
}
