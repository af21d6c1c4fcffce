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
	"bytes"
	"context"
	"testing"

	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/fperr"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/protocol"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type harness struct {
	port    *fakePort
	tr      *Transport
	d       *Dispatcher
	keys    *KeyQueue
	pending *Pending
	stats   *Stats
	prof    *protocol.Profile
	seen    []protocol.Frame
}

func newHarness(prof *protocol.Profile) *harness {
	h := &harness{port: &fakePort{}, stats: &Stats{}, prof: prof}
	h.tr = NewTransport(h.port, 4096, 256, h.stats)
	h.keys = NewKeyQueue(256, h.stats)
	h.pending = NewPending()
	h.d = NewDispatcher(h.tr, prof, h.keys, h.pending, h.stats)
	h.d.SetTap(func(f protocol.Frame) { h.seen = append(h.seen, f) })
	return h
}

func (h *harness) deliver(b []byte) {
	h.port.feed(b)
	h.d.drain(context.Background())
}

func (h *harness) frame(t require.TestingT, id protocol.Response, payload []byte) []byte {
	raw, err := h.prof.EncodeResponse(id, payload)
	require.NoError(t, err)
	return raw
}

// TestPropertyFrameExtractionAnyChunking verifies that a stream of valid
// frames yields exactly those frames, in order, however it is split across
// receive notifications.
func TestPropertyFrameExtractionAnyChunking(t *testing.T) {
	t.Parallel()

	var specs []protocol.ResponseSpec
	for _, s := range protocol.DefaultResponses {
		if s.Kind != protocol.KindPreamble {
			specs = append(specs, s)
		}
	}

	rapid.Check(t, func(t *rapid.T) {
		prof, err := protocol.Lookup(rapid.SampledFrom(protocol.Names()).Draw(t, "profile"))
		require.NoError(t, err)
		h := newHarness(prof)

		count := rapid.IntRange(1, 24).Draw(t, "frames")
		var (
			want   []protocol.Frame
			stream []byte
		)
		for range count {
			spec := rapid.SampledFrom(specs).Draw(t, "spec")
			payload := rapid.SliceOfN(rapid.Byte(), spec.Payload, spec.Payload).Draw(t, "payload")
			want = append(want, protocol.Frame{ID: byte(spec.ID), Payload: payload})
			stream = append(stream, h.frame(t, spec.ID, payload)...)
		}

		for pos := 0; pos < len(stream); {
			n := min(rapid.IntRange(1, 9).Draw(t, "chunk"), len(stream)-pos)
			h.deliver(stream[pos : pos+n])
			pos += n
		}

		require.Equal(t, want, h.seen)
		require.Equal(t, 0, h.tr.RxLen())
		require.Equal(t, uint64(0), h.stats.Resyncs.Load())
	})
}

func TestDispatcher_PartialFrameStaysBuffered(t *testing.T) {
	t.Parallel()

	h := newHarness(protocol.VFD16())
	raw := h.frame(t, protocol.RspKey, []byte{0x11, 0})

	h.deliver(raw[:2])
	assert.Equal(t, 2, h.tr.RxLen())
	assert.Empty(t, h.seen)

	h.deliver(raw[2:])
	assert.Equal(t, 0, h.tr.RxLen())
	require.Len(t, h.seen, 1)

	ev, err := h.keys.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, KeyEvent{Code: 0x11}, ev)
}

func TestDispatcher_ResyncOnUnknownID(t *testing.T) {
	t.Parallel()

	h := newHarness(protocol.VFD16())
	good := h.frame(t, protocol.RspKey, []byte{0x22, 0})

	h.deliver(append([]byte{0x42, 0x01, 0x02}, good...))
	assert.Equal(t, uint64(1), h.stats.Resyncs.Load())
	assert.Equal(t, 0, h.tr.RxLen(), "resync discards everything buffered")
	assert.Empty(t, h.seen)

	h.deliver(good)
	assert.Len(t, h.seen, 1, "channel recovers with the next clean frame")
}

func TestDispatcher_ResyncOnLengthMismatch(t *testing.T) {
	t.Parallel()

	h := newHarness(protocol.LED4())
	h.deliver([]byte{byte(protocol.RspTime), 0x02, 0xaa, 0xbb})

	assert.Equal(t, uint64(1), h.stats.Resyncs.Load())
	assert.Equal(t, 0, h.tr.RxLen())
}

func TestDispatcher_ChecksumPolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		policy    protocol.ChecksumPolicy
		delivered bool
	}{
		{name: "log only", policy: protocol.ChecksumLogOnly, delivered: true},
		{name: "reject", policy: protocol.ChecksumReject, delivered: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			prof := protocol.VFD16()
			prof.ChecksumPolicy = tt.policy
			h := newHarness(prof)

			raw := h.frame(t, protocol.RspKey, []byte{0x05, 0})
			raw[len(raw)-1] ^= 0x5a
			h.deliver(raw)

			assert.Equal(t, uint64(1), h.stats.ChecksumErrors.Load())
			assert.Equal(t, tt.delivered, h.keys.Len() == 1)
			assert.Equal(t, 0, h.tr.RxLen())
		})
	}
}

//nolint:paralleltest // replaces the global logger
func TestDispatcher_ChecksumMismatchLogged(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf)

	prof := protocol.VFD16()
	prof.ChecksumPolicy = protocol.ChecksumReject
	h := newHarness(prof)
	raw := h.frame(t, protocol.RspKey, []byte{0x05, 0})
	raw[len(raw)-1] ^= 0x5a
	h.deliver(raw)

	assert.Contains(t, buf.String(), `"error":"`+fperr.ErrChecksum.Error()+`"`)
	assert.Contains(t, buf.String(), "link: frame dropped")
}

func TestDispatcher_AckMatchesOnlyEchoedCommand(t *testing.T) {
	t.Parallel()

	h := newHarness(protocol.VFD16())
	done := h.pending.Arm(protocol.CmdBrightness, protocol.RspAck)

	h.deliver(h.frame(t, protocol.RspAck, []byte{byte(protocol.CmdIcon)}))
	assert.True(t, h.pending.Active(), "ack for another command must not complete the slot")
	assert.Equal(t, uint64(1), h.stats.StaleReplies.Load())

	h.deliver(h.frame(t, protocol.RspTime, []byte{0, 0, 0, 0, 0}))
	assert.True(t, h.pending.Active(), "typed reply must not complete an ack wait")

	h.deliver(h.frame(t, protocol.RspAck, []byte{byte(protocol.CmdBrightness)}))
	select {
	case f := <-done:
		assert.Equal(t, protocol.RspAck, f.Response())
	default:
		t.Fatal("matching ack did not complete the slot")
	}
	assert.False(t, h.pending.Active())
}

func TestDispatcher_TypedReplyCompletesQuery(t *testing.T) {
	t.Parallel()

	h := newHarness(protocol.VFD16())
	done := h.pending.Arm(protocol.CmdGetVersion, protocol.RspVersion)

	h.deliver(h.frame(t, protocol.RspVersion, []byte{1, 2, 0, 5}))
	f := <-done
	assert.Equal(t, []byte{1, 2, 0, 5}, f.Payload)
}

func TestDispatcher_RemoteReport(t *testing.T) {
	t.Parallel()

	h := newHarness(protocol.VFD16())
	h.deliver(h.frame(t, protocol.RspRemote, []byte{0x20, 0xdf, 0x0c, KeyFlagRepeat}))

	ev, err := h.keys.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, KeyEvent{Remote: true, Address: 0x20df, Code: 0x0c, Flags: KeyFlagRepeat}, ev)
	assert.True(t, ev.Repeat())
}

func TestHandshake_CompletesAllStages(t *testing.T) {
	t.Parallel()

	h := newHarness(protocol.VFD16())
	done := h.d.BeginBoot()
	assert.Equal(t, PhaseBootWait, h.d.Phase())

	payloads := map[protocol.Response][]byte{
		protocol.RspVersion: {1, 4, 0, 7},
		protocol.RspTime:    {0xeb, 0xd1, 8, 0, 0},
		protocol.RspPrivate: {1, 2, 3, 4, 5, 6, 7, 8},
	}
	for _, st := range h.prof.BootStages {
		h.deliver(h.frame(t, protocol.RspPreamble, []byte{byte(st.ID)}))
		h.deliver(h.frame(t, st.ID, payloads[st.ID]))

		ack, err := protocol.Encode(byte(protocol.CmdBootAck), []byte{byte(st.ID)}, h.prof.Checksum)
		require.NoError(t, err)
		assert.Equal(t, ack, h.port.pump(), "stage %s must be acknowledged", st.ID)
	}

	res := <-done
	require.NoError(t, res.Err)
	assert.Equal(t, PhaseReady, h.d.Phase())
	assert.Equal(t, payloads[protocol.RspTime], res.Frames[protocol.RspTime].Payload)
	assert.Len(t, res.Frames, 3)
}

func TestHandshake_UnackedStageSendsNothing(t *testing.T) {
	t.Parallel()

	h := newHarness(protocol.LED4())
	done := h.d.BeginBoot()

	h.deliver(h.frame(t, protocol.RspPreamble, []byte{byte(protocol.RspVersion)}))
	h.deliver(h.frame(t, protocol.RspVersion, []byte{1, 0, 1, 4}))
	assert.NotEmpty(t, h.port.pump())

	h.deliver(h.frame(t, protocol.RspPreamble, []byte{byte(protocol.RspTime)}))
	h.deliver(h.frame(t, protocol.RspTime, []byte{0x9e, 0x8b, 0, 0, 0}))
	assert.Empty(t, h.port.pump(), "time stage is not acknowledged on this family")

	require.NoError(t, (<-done).Err)
}

func TestHandshake_Abort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		prof      func() *protocol.Profile
		preambles []protocol.Response
		after     Phase
	}{
		{
			name:      "wrong stage recovers",
			prof:      protocol.VFD16,
			preambles: []protocol.Response{protocol.RspTime},
			after:     PhaseReady,
		},
		{
			name:      "wrong stage stays idle",
			prof:      protocol.LED4,
			preambles: []protocol.Response{protocol.RspPrivate},
			after:     PhaseIdle,
		},
		{
			name: "too many preambles",
			prof: protocol.LED4,
			preambles: []protocol.Response{
				protocol.RspVersion, protocol.RspVersion,
				protocol.RspVersion, protocol.RspVersion,
			},
			after: PhaseIdle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(tt.prof())
			done := h.d.BeginBoot()
			for _, id := range tt.preambles {
				h.deliver(h.frame(t, protocol.RspPreamble, []byte{byte(id)}))
			}
			res := <-done
			require.ErrorIs(t, res.Err, fperr.ErrBootFailed)
			assert.Equal(t, tt.after, h.d.Phase())
		})
	}
}

func TestHandshake_ExternalAbort(t *testing.T) {
	t.Parallel()

	h := newHarness(protocol.VFD16())
	done := h.d.BeginBoot()
	h.d.AbortBoot(fperr.ErrTimeout)

	res := <-done
	require.ErrorIs(t, res.Err, fperr.ErrBootFailed)
	require.ErrorIs(t, res.Err, fperr.ErrTimeout)

	h.d.AbortBoot(fperr.ErrTimeout) // no handshake running
}

func TestHandshake_KeysFlowDuringBoot(t *testing.T) {
	t.Parallel()

	h := newHarness(protocol.VFD16())
	h.d.BeginBoot()
	h.deliver(h.frame(t, protocol.RspKey, []byte{0x01, 0}))
	assert.Equal(t, 1, h.keys.Len())
	assert.Equal(t, PhaseBootWait, h.d.Phase())
}
