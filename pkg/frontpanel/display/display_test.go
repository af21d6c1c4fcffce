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

package display

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/fperr"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/protocol"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/helpers/syncutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"pgregory.net/rapid"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type sent struct {
	payload []byte
	cmd     protocol.Command
}

type recorder struct {
	fail map[protocol.Command]error
	log  []sent
	mu   syncutil.Mutex
}

func (r *recorder) Send(_ context.Context, cmd protocol.Command, payload []byte, _ bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail[cmd]; err != nil {
		return err
	}
	r.log = append(r.log, sent{cmd: cmd, payload: append([]byte(nil), payload...)})
	return nil
}

func (r *recorder) of(cmd protocol.Command) [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out [][]byte
	for _, s := range r.log {
		if s.cmd == cmd {
			out = append(out, s.payload)
		}
	}
	return out
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.log)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = nil
}

// narrow is an eight cell dot-matrix profile.
func narrow() *protocol.Profile {
	p := protocol.VFD16()
	p.Width = 8
	return p
}

func newDisplay(t *testing.T, prof *protocol.Profile, opts Options) (*Display, *recorder) {
	t.Helper()
	rec := &recorder{}
	if opts.ScrollDelay == 0 {
		opts.ScrollDelay = time.Millisecond
	}
	d := New(prof, rec, opts)
	t.Cleanup(func() { _ = d.Close() })
	return d, rec
}

func TestWriteText_ShortTextRoundTrip(t *testing.T) {
	t.Parallel()

	d, rec := newDisplay(t, narrow(), Options{})
	n, err := d.WriteText(context.Background(), []byte("HELLO"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []byte("HELLO"), d.LastText())

	frames := rec.of(protocol.CmdShowText)
	require.Len(t, frames, 1)
	assert.Equal(t, []byte("HELLO   "), frames[0], "wire frame is padded to width")
}

// TestPropertyShortTextRoundTrip verifies that any printable text that fits
// is read back exactly as written.
func TestPropertyShortTextRoundTrip(t *testing.T) {
	t.Parallel()

	prof := narrow()
	d, _ := newDisplay(t, prof, Options{})
	printable := rapid.ByteRange(0x20, 0x7e)

	rapid.Check(t, func(t *rapid.T) {
		s := rapid.SliceOfN(printable, 0, prof.Width).Draw(t, "text")
		n, err := d.WriteText(context.Background(), s)
		if err != nil {
			t.Fatalf("write: %v", err)
		}
		if n != len(s) {
			t.Fatalf("accepted %d of %d", n, len(s))
		}
		if got := d.LastText(); string(got) != string(s) {
			t.Fatalf("read back %q, wrote %q", got, s)
		}
	})
}

func TestWriteText_StripsNewlineAndTruncates(t *testing.T) {
	t.Parallel()

	prof := narrow()
	prof.MaxText = 10
	d, _ := newDisplay(t, prof, Options{})

	n, err := d.WriteText(context.Background(), []byte("HI\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte("HI"), d.LastText())

	n, err = d.WriteText(context.Background(), []byte(strings.Repeat("A", 9)+"é"))
	require.NoError(t, err)
	assert.Equal(t, 9, n, "multi-byte rune straddling the limit is not split")
	require.NoError(t, d.StopScroll())
}

func TestWriteText_ScrollStepCount(t *testing.T) {
	t.Parallel()

	d, rec := newDisplay(t, narrow(), Options{})
	_, err := d.WriteText(context.Background(), []byte("HELLO WORLD"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return d.Scrolling() == StatusStopped && len(rec.of(protocol.CmdShowText)) == 4
	}, 2*time.Second, time.Millisecond)

	frames := rec.of(protocol.CmdShowText)
	assert.Equal(t, [][]byte{
		[]byte("HELLO WO"),
		[]byte("ELLO WOR"),
		[]byte("LLO WORL"),
		[]byte("LO WORLD"),
	}, frames)
	assert.Equal(t, []byte("HELLO WORLD"), d.LastText())
}

func TestWindows_Padding(t *testing.T) {
	t.Parallel()

	w := Windows([]byte("ABCDEF"), 4, 2)
	require.Len(t, w, 5)
	assert.Equal(t, []byte("ABCD"), w[0])
	assert.Equal(t, []byte("EF  "), w[4])

	assert.Len(t, Windows([]byte("AB"), 4, 0), 1)
}

// TestPropertyScrollWindows verifies k+1 windows for width+k glyphs, the last
// being the final width cells.
func TestPropertyScrollWindows(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		width := rapid.IntRange(1, 20).Draw(t, "width")
		k := rapid.IntRange(1, 40).Draw(t, "k")
		glyphs := rapid.SliceOfN(rapid.ByteRange('A', 'Z'), width+k, width+k).Draw(t, "glyphs")

		w := Windows(glyphs, width, 0)
		if len(w) != k+1 {
			t.Fatalf("got %d windows, want %d", len(w), k+1)
		}
		if string(w[len(w)-1]) != string(glyphs[k:]) {
			t.Fatalf("last window %q, want %q", w[len(w)-1], glyphs[k:])
		}
	})
}

func TestWriteText_IdenticalScrollIsNoop(t *testing.T) {
	t.Parallel()

	d, rec := newDisplay(t, narrow(), Options{ScrollDelay: 50 * time.Millisecond})
	long := []byte("A LONGER MESSAGE")

	_, err := d.WriteText(context.Background(), long)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return d.Scrolling() == StatusRunning }, time.Second, time.Millisecond)

	_, err = d.WriteText(context.Background(), long)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, d.Scrolling(), "same text must not restart the scroll")

	_, err = d.WriteText(context.Background(), []byte("SHORT"))
	require.NoError(t, err)
	assert.Equal(t, StatusStopped, d.Scrolling(), "new text stops the scroll before showing")
	frames := rec.of(protocol.CmdShowText)
	assert.Equal(t, []byte("SHORT   "), frames[len(frames)-1])
	first := frames[0]
	assert.Equal(t, []byte("A LONGER"), first)
}

func TestSetBrightness(t *testing.T) {
	t.Parallel()

	d, rec := newDisplay(t, protocol.VFD16(), Options{})
	require.NoError(t, d.SetBrightness(context.Background(), 3))
	assert.Equal(t, 3, d.Brightness())

	err := d.SetBrightness(context.Background(), 8)
	require.ErrorIs(t, err, fperr.ErrBadArgument)
	require.ErrorIs(t, d.SetBrightness(context.Background(), -1), fperr.ErrBadArgument)
	assert.Len(t, rec.of(protocol.CmdBrightness), 1, "rejected levels send nothing")
}

func TestSetBrightness_FailureKeepsState(t *testing.T) {
	t.Parallel()

	d, rec := newDisplay(t, protocol.VFD16(), Options{})
	rec.fail = map[protocol.Command]error{protocol.CmdBrightness: fperr.ErrTimeout}

	err := d.SetBrightness(context.Background(), 2)
	require.ErrorIs(t, err, fperr.ErrTimeout)
	assert.Equal(t, protocol.VFD16().BrightnessMax, d.Brightness())
}

func TestIcons(t *testing.T) {
	t.Parallel()

	d, rec := newDisplay(t, protocol.VFD16(), Options{})
	ctx := context.Background()

	require.NoError(t, d.SetIcon(ctx, 1, true))
	require.NoError(t, d.SetIcon(ctx, 45, true))
	assert.True(t, d.Icon(45))
	require.ErrorIs(t, d.SetIcon(ctx, 0, true), fperr.ErrBadArgument)
	require.ErrorIs(t, d.SetIcon(ctx, 46, true), fperr.ErrBadArgument)
	assert.Equal(t, [][]byte{{1, 1}, {45, 1}}, rec.of(protocol.CmdIcon))

	require.NoError(t, d.SetAllIcons(ctx, false))
	for _, on := range d.Icons() {
		assert.False(t, on)
	}
	assert.Len(t, d.Icons(), 45)
}

func TestIcons_NotSupportedOnSegmentDisplay(t *testing.T) {
	t.Parallel()

	d, rec := newDisplay(t, protocol.LED4(), Options{})
	ctx := context.Background()

	require.ErrorIs(t, d.SetIcon(ctx, 1, true), fperr.ErrNotSupported)
	require.ErrorIs(t, d.SetAllIcons(ctx, true), fperr.ErrNotSupported)
	require.ErrorIs(t, d.ShowSpinner(ctx, time.Millisecond), fperr.ErrNotSupported)
	require.ErrorIs(t, d.BlinkIcons(ctx, []int{1}, time.Millisecond), fperr.ErrNotSupported)
	assert.Equal(t, 0, rec.count())
}

func TestSetLED(t *testing.T) {
	t.Parallel()

	d, rec := newDisplay(t, protocol.VFD16(), Options{})
	ctx := context.Background()

	require.NoError(t, d.SetLED(ctx, 1, true))
	assert.True(t, d.LED(1))
	require.ErrorIs(t, d.SetLED(ctx, 2, true), fperr.ErrBadArgument)
	require.ErrorIs(t, d.SetLED(ctx, -1, true), fperr.ErrBadArgument)
	assert.Equal(t, [][]byte{{1, 1}}, rec.of(protocol.CmdLED))
}

func TestSetOn_PreservesAndReissuesState(t *testing.T) {
	t.Parallel()

	d, rec := newDisplay(t, narrow(), Options{})
	ctx := context.Background()

	_, err := d.WriteText(ctx, []byte("MENU"))
	require.NoError(t, err)
	require.NoError(t, d.SetIcon(ctx, 7, true))
	require.NoError(t, d.SetLED(ctx, 0, true))
	require.NoError(t, d.SetBrightness(ctx, 4))

	require.NoError(t, d.SetOn(ctx, false))
	assert.False(t, d.On())
	rec.reset()

	_, err = d.WriteText(ctx, []byte("OFF"))
	require.NoError(t, err)
	require.NoError(t, d.SetIcon(ctx, 8, true))
	assert.Equal(t, 0, rec.count(), "output is suppressed while off")
	assert.Equal(t, []byte("OFF"), d.LastText())

	require.NoError(t, d.SetOn(ctx, true))
	assert.Equal(t, [][]byte{{1}}, rec.of(protocol.CmdDisplayOnOff))
	assert.Equal(t, [][]byte{{4}}, rec.of(protocol.CmdBrightness))
	assert.Equal(t, [][]byte{[]byte("OFF     ")}, rec.of(protocol.CmdShowText))
	assert.Equal(t, [][]byte{{7, 1}, {8, 1}}, rec.of(protocol.CmdIcon))
	assert.Equal(t, [][]byte{{0, 1}}, rec.of(protocol.CmdLED))

	require.NoError(t, d.SetOn(ctx, true), "already on")
	assert.Len(t, rec.of(protocol.CmdDisplayOnOff), 1)
}

func TestSpinner_StartIsIdempotent(t *testing.T) {
	t.Parallel()

	d, rec := newDisplay(t, protocol.VFD16(), Options{})
	ctx := context.Background()

	require.NoError(t, d.ShowSpinner(ctx, 5*time.Millisecond))
	require.Eventually(t, func() bool { return d.Spinner() == StatusRunning }, time.Second, time.Millisecond)
	require.NoError(t, d.ShowSpinner(ctx, 5*time.Millisecond))
	assert.Equal(t, StatusRunning, d.Spinner())

	require.Eventually(t, func() bool { return len(rec.of(protocol.CmdIcon)) >= 10 }, 2*time.Second, time.Millisecond)
	require.NoError(t, d.ShowSpinner(ctx, 0))
	assert.Equal(t, StatusStopped, d.Spinner())

	frames := rec.of(protocol.CmdIcon)
	assert.Equal(t, []byte{46, 0}, frames[len(frames)-1], "stopping clears the spinner icon")
	for i, f := range frames[:len(frames)-1] {
		assert.Equal(t, byte(46), f[0])
		assert.Equal(t, byte(2+i%8), f[1], "phases advance one at a time, no duplicate runner")
	}

	require.NoError(t, d.ShowSpinner(ctx, 0), "stopping a stopped spinner returns at once")
}

func TestBlinkAndSpinnerAreExclusive(t *testing.T) {
	t.Parallel()

	d, _ := newDisplay(t, protocol.VFD16(), Options{})
	ctx := context.Background()

	require.NoError(t, d.SetIcon(ctx, 3, true))
	require.NoError(t, d.BlinkIcons(ctx, []int{3, 4}, 5*time.Millisecond))
	require.Eventually(t, func() bool { return d.Blinking() == StatusRunning }, time.Second, time.Millisecond)

	require.NoError(t, d.ShowSpinner(ctx, 5*time.Millisecond))
	assert.Equal(t, StatusStopped, d.Blinking())
	assert.True(t, d.Icon(3), "remembered icon state survives the blink")
	assert.False(t, d.Icon(4))

	require.NoError(t, d.BlinkIcons(ctx, []int{5}, 5*time.Millisecond))
	assert.Equal(t, StatusStopped, d.Spinner())

	require.NoError(t, d.SetIcon(ctx, 5, true))
	assert.Equal(t, StatusStopped, d.Blinking(), "direct icon writes stop the blink")
	require.ErrorIs(t, d.BlinkIcons(ctx, []int{99}, time.Millisecond), fperr.ErrBadArgument)
}

func TestClose_StopsWorkersAndRejectsUse(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	d := New(protocol.VFD16(), rec, Options{ScrollDelay: time.Millisecond})
	require.NoError(t, d.ShowSpinner(context.Background(), time.Millisecond))
	require.NoError(t, d.Close())
	require.NoError(t, d.Close())

	assert.Equal(t, StatusStopped, d.Spinner())
	_, err := d.WriteText(context.Background(), []byte("X"))
	require.ErrorIs(t, err, fperr.ErrClosed)
}

func TestStopAnimations(t *testing.T) {
	t.Parallel()

	d, rec := newDisplay(t, narrow(), Options{ScrollDelay: 20 * time.Millisecond})
	ctx := context.Background()

	_, err := d.WriteText(ctx, []byte("A LONG SCROLLING LINE"))
	require.NoError(t, err)
	require.NoError(t, d.ShowSpinner(ctx, 5*time.Millisecond))
	require.Eventually(t, func() bool { return d.Spinner() == StatusRunning }, time.Second, time.Millisecond)

	require.NoError(t, d.StopAnimations(ctx))
	assert.Equal(t, StatusStopped, d.Scrolling())
	assert.Equal(t, StatusStopped, d.Spinner())
	assert.Equal(t, StatusStopped, d.Blinking())

	frames := rec.of(protocol.CmdIcon)
	require.NotEmpty(t, frames)
	assert.Equal(t, []byte{46, 0}, frames[len(frames)-1])

	n := rec.count()
	require.NoError(t, d.StopAnimations(ctx), "nothing running")
	assert.Equal(t, n, rec.count())
}
