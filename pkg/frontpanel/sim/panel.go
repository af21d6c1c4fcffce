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

// Package sim is a simulated front processor. It implements link.Port, so a
// device can be driven end to end without hardware, and it records every
// byte the host transmits so tests can inspect the wire.
package sim

import (
	"context"
	"sync"

	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/link"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/protocol"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/rtc"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/helpers/syncutil"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Options configures a simulated panel.
type Options struct {
	Clock clockwork.Clock
	// Chunk limits how many bytes are offered per receive notification.
	// Zero offers everything at once.
	Chunk      int
	Major      byte
	Minor      byte
	Keys       byte
	WakeReport byte
	// BootTime is the time reported during the boot handshake. The zero
	// value reports the current simulated time.
	BootTime rtc.DeviceTime
}

// Panel is a simulated front processor.
type Panel struct {
	prof    *protocol.Profile
	h       link.Handler
	wake    *syncutil.Signal
	clock   *rtc.Clock
	cancel  context.CancelFunc
	muted   map[protocol.Command]bool
	state   State
	opts    Options
	out     []byte
	in      []byte
	wire    []byte
	frames  []protocol.Frame
	stages  []protocol.BootStage
	wg      sync.WaitGroup
	mu      syncutil.Mutex
	offer   int
	corrupt int
	txOn    bool
	muteAll bool
	badBoot bool
	stalled bool
	// stallFinal stalls input once the last boot stage is sent.
	stallFinal bool
}

// State is the display and power state the panel has been told to show.
type State struct {
	WrittenTime rtc.DeviceTime
	Alarm       rtc.DeviceTime
	Icons       []byte
	LEDs        []bool
	Text        []byte
	Brightness  byte
	DisplayOn   bool
	Standby     bool
	Booted      bool
}

// New returns a panel speaking prof.
func New(prof *protocol.Profile, opts Options) *Panel {
	if opts.Major == 0 && opts.Minor == 0 {
		opts.Major, opts.Minor = 1, 4
	}
	return &Panel{
		prof:  prof,
		opts:  opts,
		wake:  syncutil.NewSignal(),
		clock: rtc.NewClock(opts.Clock, 0),
		muted: make(map[protocol.Command]bool),
		state: State{
			Icons:     make([]byte, max(prof.Icons, int(prof.SpinnerIcon))+1),
			LEDs:      make([]bool, prof.LEDs),
			DisplayOn: true,
			Alarm:     rtc.NoAlarm,
		},
	}
}

// Attach starts the simulated interrupt goroutine.
func (p *Panel) Attach(h link.Handler) {
	p.h = h
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.wg.Add(1)
	go p.run(ctx)
}

// Close stops the interrupt goroutine.
func (p *Panel) Close() error {
	if p.cancel != nil {
		p.cancel()
		p.wg.Wait()
		p.cancel = nil
	}
	return nil
}

func (p *Panel) run(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.wake.C():
		}
		for p.service() {
			if ctx.Err() != nil {
				return
			}
		}
	}
}

// service runs one round of simulated interrupts and reports whether more
// work is pending.
func (p *Panel) service() bool {
	for p.txEnabled() && !p.inputStalled() {
		p.h.TxReady()
	}
	p.processHost()

	p.mu.Lock()
	pending := len(p.out)
	if pending == 0 {
		p.mu.Unlock()
		return false
	}
	p.offer = pending
	if p.opts.Chunk > 0 {
		p.offer = min(pending, p.opts.Chunk)
	}
	p.mu.Unlock()

	p.h.RxReady()
	return true
}

func (p *Panel) txEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.txOn
}

func (p *Panel) inputStalled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stalled
}

// Pop returns the next panel to host byte within the current offer.
func (p *Panel) Pop() (byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.offer == 0 || len(p.out) == 0 {
		return 0, false
	}
	b := p.out[0]
	p.out = p.out[1:]
	p.offer--
	return b, true
}

// Push receives one host byte.
func (p *Panel) Push(b byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stalled {
		return false
	}
	p.in = append(p.in, b)
	p.wire = append(p.wire, b)
	return true
}

// SetTxNotify enables or disables transmit notifications.
func (p *Panel) SetTxNotify(on bool) {
	p.mu.Lock()
	p.txOn = on
	p.mu.Unlock()
	if on {
		p.wake.Notify()
	}
}

// processHost cuts complete host frames out of the input buffer.
func (p *Panel) processHost() {
	trailer := 0
	if p.prof.Checksum != protocol.ChecksumNone {
		trailer = 1
	}
	for {
		p.mu.Lock()
		if len(p.in) < 2 {
			p.mu.Unlock()
			return
		}
		total := 2 + int(p.in[1]) + trailer
		if len(p.in) < total {
			p.mu.Unlock()
			return
		}
		raw := append([]byte(nil), p.in[:total]...)
		p.in = p.in[total:]
		p.mu.Unlock()

		f := protocol.Frame{ID: raw[0], Payload: raw[2 : 2+int(raw[1])]}
		if trailer == 1 && p.prof.Checksum.Compute(raw[:total-1]) != raw[total-1] {
			log.Warn().Stringer("frame", f).Msg("sim: host frame checksum mismatch")
		}
		p.handle(f)
	}
}

// queue appends a response frame for the host.
func (p *Panel) queue(id protocol.Response, payload []byte) {
	raw, err := p.prof.EncodeResponse(id, payload)
	if err != nil {
		log.Error().Err(err).Msg("sim: encoding response")
		return
	}
	p.mu.Lock()
	if p.corrupt > 0 && len(raw) > 2 && p.prof.Checksum != protocol.ChecksumNone {
		raw[len(raw)-1] ^= 0xff
		p.corrupt--
	}
	p.out = append(p.out, raw...)
	p.mu.Unlock()
}

func (p *Panel) handle(f protocol.Frame) {
	cmd := f.Command()
	p.mu.Lock()
	p.frames = append(p.frames, protocol.Frame{ID: f.ID, Payload: append([]byte(nil), f.Payload...)})
	silent := p.muteAll || p.muted[cmd]
	p.mu.Unlock()
	log.Debug().Stringer("cmd", cmd).Stringer("frame", f).Msg("sim: host frame")

	if silent {
		return
	}

	switch cmd {
	case protocol.CmdBoot:
		p.boot()
	case protocol.CmdBootAck:
		p.bootAck(f)
	case protocol.CmdGetTime:
		p.queue(protocol.RspTime, p.clock.Now().Bytes())
	case protocol.CmdGetVersion:
		p.queue(protocol.RspVersion, p.version())
	case protocol.CmdGetWakeReason:
		p.queue(protocol.RspWakeReason, []byte{p.opts.WakeReport})
	case protocol.CmdShowText,
		protocol.CmdBrightness,
		protocol.CmdIcon,
		protocol.CmdAllIcons,
		protocol.CmdDisplayOnOff,
		protocol.CmdLED,
		protocol.CmdDeepStandby:
		p.apply(cmd, f.Payload)
		p.queue(protocol.RspAck, []byte{byte(cmd)})
	default:
		log.Warn().Stringer("cmd", cmd).Msg("sim: unknown command ignored")
	}
}

func (p *Panel) version() []byte {
	return []byte{p.opts.Major, p.opts.Minor, byte(p.prof.Kind), p.opts.Keys}
}

func (p *Panel) apply(cmd protocol.Command, b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := &p.state
	switch cmd {
	case protocol.CmdShowText:
		st.Text = append([]byte(nil), b...)
	case protocol.CmdBrightness:
		if len(b) > 0 {
			st.Brightness = b[0]
		}
	case protocol.CmdIcon:
		if len(b) > 1 && int(b[0]) < len(st.Icons) {
			st.Icons[b[0]] = b[1]
		}
	case protocol.CmdAllIcons:
		if len(b) > 0 {
			for i := 1; i < len(st.Icons); i++ {
				st.Icons[i] = b[0]
			}
		}
	case protocol.CmdDisplayOnOff:
		if len(b) > 0 {
			st.DisplayOn = b[0] != 0
		}
	case protocol.CmdLED:
		if len(b) > 1 && int(b[0]) < len(st.LEDs) {
			st.LEDs[b[0]] = b[1] != 0
		}
	case protocol.CmdDeepStandby:
		if len(b) < 11 {
			return
		}
		if now, err := rtc.ParseDeviceTime(b[0:5]); err == nil {
			st.WrittenTime = now
			p.clock.Sample(now)
		}
		st.Alarm = rtc.NoAlarm
		if b[5] != 0 {
			if wake, err := rtc.ParseDeviceTime(b[6:11]); err == nil {
				st.Alarm = wake
			}
		}
		st.Standby = true
	default:
	}
}

func (p *Panel) boot() {
	p.mu.Lock()
	p.stages = append([]protocol.BootStage(nil), p.prof.BootStages...)
	p.state.Booted = false
	p.state.Standby = false
	p.mu.Unlock()
	p.nextStage()
}

// nextStage sends staged responses until one needs an acknowledgement.
func (p *Panel) nextStage() {
	for {
		p.mu.Lock()
		if len(p.stages) == 0 {
			p.state.Booted = true
			p.mu.Unlock()
			return
		}
		st := p.stages[0]
		announce := st.ID
		if p.badBoot {
			announce = protocol.RspPrivate
			if st.ID == protocol.RspPrivate {
				announce = protocol.RspVersion
			}
		}
		if !st.NeedsAck {
			p.stages = p.stages[1:]
		} else if len(p.stages) == 1 && p.stallFinal {
			p.stalled = true
		}
		p.mu.Unlock()

		p.queue(protocol.RspPreamble, []byte{byte(announce)})
		p.queue(st.ID, p.stagePayload(st.ID))
		if st.NeedsAck {
			return
		}
	}
}

func (p *Panel) bootAck(f protocol.Frame) {
	if len(f.Payload) == 0 {
		return
	}
	p.mu.Lock()
	ok := len(p.stages) > 0 && p.stages[0].NeedsAck && byte(p.stages[0].ID) == f.Payload[0]
	if ok {
		p.stages = p.stages[1:]
	}
	p.mu.Unlock()
	if !ok {
		log.Warn().Stringer("frame", f).Msg("sim: unexpected boot ack")
		return
	}
	p.nextStage()
}

func (p *Panel) stagePayload(id protocol.Response) []byte {
	switch id {
	case protocol.RspVersion:
		return p.version()
	case protocol.RspTime:
		if p.opts.BootTime != (rtc.DeviceTime{}) {
			return p.opts.BootTime.Bytes()
		}
		return p.clock.Now().Bytes()
	case protocol.RspWakeReason:
		return []byte{p.opts.WakeReport}
	default:
		spec, _ := p.prof.Spec(id)
		return make([]byte, spec.Payload)
	}
}
