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

package sim_test

import (
	"sync"
	"testing"
	"time"

	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/protocol"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/rtc"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/sim"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// host is a minimal byte level peer for the panel.
type host struct {
	panel *sim.Panel
	prof  *protocol.Profile
	rx    []byte
	tx    []byte
	mu    sync.Mutex
}

func (h *host) RxReady() {
	for {
		b, ok := h.panel.Pop()
		if !ok {
			return
		}
		h.mu.Lock()
		h.rx = append(h.rx, b)
		h.mu.Unlock()
	}
}

func (h *host) TxReady() {
	h.mu.Lock()
	if len(h.tx) == 0 {
		h.panel.SetTxNotify(false)
		h.mu.Unlock()
		return
	}
	b := h.tx[0]
	h.tx = h.tx[1:]
	h.mu.Unlock()
	h.panel.Push(b)
}

func (h *host) send(t *testing.T, cmd protocol.Command, payload ...byte) {
	t.Helper()
	raw, err := protocol.Encode(byte(cmd), payload, h.prof.Checksum)
	require.NoError(t, err)
	h.mu.Lock()
	h.tx = append(h.tx, raw...)
	h.mu.Unlock()
	h.panel.SetTxNotify(true)
}

func (h *host) decoded() []protocol.Decoded {
	h.mu.Lock()
	buf := append([]byte(nil), h.rx...)
	h.mu.Unlock()
	var out []protocol.Decoded
	for len(buf) > 0 {
		d, err := h.prof.Decode(buf)
		if err != nil {
			break
		}
		out = append(out, d)
		buf = buf[d.Len:]
	}
	return out
}

// expect waits for n frames in total and returns them.
func (h *host) expect(t *testing.T, n int) []protocol.Decoded {
	t.Helper()
	require.Eventually(t, func() bool { return len(h.decoded()) >= n }, time.Second, 2*time.Millisecond)
	return h.decoded()
}

func newPanel(t *testing.T, prof *protocol.Profile, opts sim.Options) (*sim.Panel, *host) {
	t.Helper()
	p := sim.New(prof, opts)
	h := &host{panel: p, prof: prof}
	p.Attach(h)
	t.Cleanup(func() { _ = p.Close() })
	return p, h
}

func ids(ds []protocol.Decoded) []protocol.Response {
	out := make([]protocol.Response, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.Frame.Response())
	}
	return out
}

func TestPanel_BootHandshake(t *testing.T) {
	t.Parallel()

	prof := protocol.LED4()
	boot := rtc.DeviceTime{MJD: rtc.DateToMJD(2025, time.June, 1), Hour: 8}
	p, h := newPanel(t, prof, sim.Options{Major: 3, Minor: 1, Keys: 2, BootTime: boot})

	h.send(t, protocol.CmdBoot)
	got := h.expect(t, 2)
	require.Len(t, got, 2)
	assert.Equal(t, []protocol.Response{protocol.RspPreamble, protocol.RspVersion}, ids(got))
	assert.Equal(t, []byte{byte(protocol.RspVersion)}, got[0].Frame.Payload)
	assert.Equal(t, []byte{3, 1, byte(prof.Kind), 2}, got[1].Frame.Payload)
	assert.False(t, p.State().Booted)

	h.send(t, protocol.CmdBootAck, byte(protocol.RspVersion))
	got = h.expect(t, 4)
	assert.Equal(t, protocol.RspTime, got[3].Frame.Response())
	assert.Equal(t, boot.Bytes(), got[3].Frame.Payload)
	require.Eventually(t, func() bool { return p.State().Booted }, time.Second, 2*time.Millisecond)
}

func TestPanel_WrongBootAckIgnored(t *testing.T) {
	t.Parallel()

	p, h := newPanel(t, protocol.VFD16(), sim.Options{})
	h.send(t, protocol.CmdBoot)
	h.expect(t, 2)

	h.send(t, protocol.CmdBootAck, byte(protocol.RspTime))
	require.Eventually(t, func() bool { return len(p.FramesOf(protocol.CmdBootAck)) == 1 },
		time.Second, 2*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, h.decoded(), 2)
	assert.False(t, p.State().Booted)
}

func TestPanel_BreakBoot(t *testing.T) {
	t.Parallel()

	p, h := newPanel(t, protocol.VFD16(), sim.Options{})
	p.BreakBoot(true)
	h.send(t, protocol.CmdBoot)
	got := h.expect(t, 2)
	assert.Equal(t, []byte{byte(protocol.RspPrivate)}, got[0].Frame.Payload)
	assert.Equal(t, protocol.RspVersion, got[1].Frame.Response())
}

func TestPanel_AppliesCommands(t *testing.T) {
	t.Parallel()

	prof := protocol.VFD16()
	p, h := newPanel(t, prof, sim.Options{})

	h.send(t, protocol.CmdShowText, 'H', 'I')
	h.send(t, protocol.CmdBrightness, 3)
	h.send(t, protocol.CmdIcon, 5, 1)
	h.send(t, protocol.CmdLED, 1, 1)
	h.send(t, protocol.CmdDisplayOnOff, 0)
	got := h.expect(t, 5)

	for i, cmd := range []protocol.Command{
		protocol.CmdShowText,
		protocol.CmdBrightness,
		protocol.CmdIcon,
		protocol.CmdLED,
		protocol.CmdDisplayOnOff,
	} {
		assert.Equal(t, protocol.RspAck, got[i].Frame.Response())
		assert.Equal(t, []byte{byte(cmd)}, got[i].Frame.Payload)
		assert.True(t, got[i].ChecksumOK)
	}

	st := p.State()
	assert.Equal(t, []byte("HI"), st.Text)
	assert.Equal(t, byte(3), st.Brightness)
	assert.Equal(t, byte(1), st.Icons[5])
	assert.Equal(t, []bool{false, true}, st.LEDs)
	assert.False(t, st.DisplayOn)

	h.send(t, protocol.CmdAllIcons, 1)
	h.expect(t, 6)
	for i := 1; i <= prof.Icons; i++ {
		assert.Equal(t, byte(1), p.State().Icons[i], "icon %d", i)
	}
}

func TestPanel_Queries(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClockAt(time.Date(2025, time.January, 2, 3, 4, 5, 0, time.UTC))
	p, h := newPanel(t, protocol.VFD16(), sim.Options{Clock: clock, WakeReport: 1})
	now := rtc.DeviceTime{MJD: rtc.DateToMJD(2025, time.January, 2), Hour: 3, Minute: 4, Second: 5}
	assert.Equal(t, now, p.Now())

	h.send(t, protocol.CmdGetTime)
	h.send(t, protocol.CmdGetWakeReason)
	h.send(t, protocol.CmdGetVersion)
	got := h.expect(t, 3)

	assert.Equal(t, now.Bytes(), got[0].Frame.Payload)
	assert.Equal(t, []byte{1}, got[1].Frame.Payload)
	assert.Equal(t, []byte{1, 4, byte(protocol.DisplayVFD), 0}, got[2].Frame.Payload)
}

func TestPanel_DeepStandby(t *testing.T) {
	t.Parallel()

	p, h := newPanel(t, protocol.VFD16(), sim.Options{})
	now := rtc.DeviceTime{MJD: rtc.DateToMJD(2025, time.March, 3), Hour: 22}
	alarm := now.Add(9 * time.Hour)

	payload := append(now.Bytes(), 1)
	payload = append(payload, alarm.Bytes()...)
	h.send(t, protocol.CmdDeepStandby, payload...)
	h.expect(t, 1)

	st := p.State()
	assert.True(t, st.Standby)
	assert.Equal(t, now, st.WrittenTime)
	assert.Equal(t, alarm, st.Alarm)

	payload[5] = 0
	h.send(t, protocol.CmdDeepStandby, payload...)
	h.expect(t, 2)
	assert.Equal(t, rtc.NoAlarm, p.State().Alarm)
}

func TestPanel_MuteAndUnmute(t *testing.T) {
	t.Parallel()

	p, h := newPanel(t, protocol.VFD16(), sim.Options{})
	p.Mute(protocol.CmdBrightness)
	h.send(t, protocol.CmdBrightness, 2)
	h.send(t, protocol.CmdLED, 0, 1)
	got := h.expect(t, 1)
	assert.Equal(t, []byte{byte(protocol.CmdLED)}, got[0].Frame.Payload)
	assert.Len(t, p.FramesOf(protocol.CmdBrightness), 1)

	p.Unmute(protocol.CmdBrightness)
	h.send(t, protocol.CmdBrightness, 2)
	got = h.expect(t, 2)
	assert.Equal(t, []byte{byte(protocol.CmdBrightness)}, got[1].Frame.Payload)

	p.MuteAll(true)
	h.send(t, protocol.CmdGetTime)
	require.Eventually(t, func() bool { return len(p.FramesOf(protocol.CmdGetTime)) == 1 },
		time.Second, 2*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, h.decoded(), 2)
}

func TestPanel_CorruptNext(t *testing.T) {
	t.Parallel()

	p, h := newPanel(t, protocol.VFD16(), sim.Options{})
	p.CorruptNext(1)
	h.send(t, protocol.CmdGetTime)
	h.send(t, protocol.CmdGetTime)
	got := h.expect(t, 2)
	assert.False(t, got[0].ChecksumOK)
	assert.True(t, got[1].ChecksumOK)
}

func TestPanel_ChunkedDelivery(t *testing.T) {
	t.Parallel()

	p, h := newPanel(t, protocol.VFD16(), sim.Options{Chunk: 1})
	p.PressKey(0x22, 0)
	p.PressRemote(0x0420, 0x10, 1)
	got := h.expect(t, 2)
	assert.Equal(t, []byte{0x22, 0}, got[0].Frame.Payload)
	assert.Equal(t, []byte{0x04, 0x20, 0x10, 1}, got[1].Frame.Payload)
}

func TestPanel_WireLog(t *testing.T) {
	t.Parallel()

	prof := protocol.VFD16()
	p, h := newPanel(t, prof, sim.Options{})
	h.send(t, protocol.CmdBrightness, 4)
	h.expect(t, 1)

	want, err := protocol.Encode(byte(protocol.CmdBrightness), []byte{4}, prof.Checksum)
	require.NoError(t, err)
	assert.Equal(t, want, p.Wire())
	require.Len(t, p.Frames(), 1)

	p.ResetLog()
	assert.Empty(t, p.Wire())
	assert.Empty(t, p.Frames())
}

func TestPanel_InjectRaw(t *testing.T) {
	t.Parallel()

	p, h := newPanel(t, protocol.LED4(), sim.Options{})
	p.Inject(protocol.EncodePreamble(protocol.RspTime))
	got := h.expect(t, 1)
	assert.Equal(t, protocol.RspPreamble, got[0].Frame.Response())
}
