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
	"fmt"
	"time"

	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/fperr"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/protocol"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Options sizes and times a Link. Zero values select the defaults.
type Options struct {
	Clock            clockwork.Clock
	RxCapacity       int
	TxCapacity       int
	KeyQueue         int
	AckTimeout       time.Duration
	BootTimeout      time.Duration
	MinFrameInterval time.Duration
}

const (
	DefaultRxCapacity  = 256
	DefaultTxCapacity  = 256
	DefaultKeyQueue    = 16
	DefaultBootTimeout = 3 * time.Second
)

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.RxCapacity <= 0 {
		o.RxCapacity = DefaultRxCapacity
	}
	if o.TxCapacity <= 0 {
		o.TxCapacity = DefaultTxCapacity
	}
	if o.KeyQueue <= 0 {
		o.KeyQueue = DefaultKeyQueue
	}
	if o.AckTimeout <= 0 {
		o.AckTimeout = DefaultAckTimeout
	}
	if o.BootTimeout <= 0 {
		o.BootTimeout = DefaultBootTimeout
	}
	return o
}

// Link bundles the channel layers for one port.
type Link struct {
	Transport  *Transport
	Dispatcher *Dispatcher
	Commander  *Commander
	Keys       *KeyQueue
	Stats      *Stats
	opts       Options
}

// New assembles a link over port for the given profile.
func New(port Port, prof *protocol.Profile, opts Options) *Link {
	opts = opts.withDefaults()
	stats := &Stats{}
	pending := NewPending()
	tr := NewTransport(port, opts.RxCapacity, opts.TxCapacity, stats)
	keys := NewKeyQueue(opts.KeyQueue, stats)
	return &Link{
		Transport:  tr,
		Dispatcher: NewDispatcher(tr, prof, keys, pending, stats),
		Commander:  NewCommander(tr, pending, prof, opts.AckTimeout, opts.MinFrameInterval, opts.Clock, stats),
		Keys:       keys,
		Stats:      stats,
		opts:       opts,
	}
}

// Run runs the dispatcher until ctx is done.
func (l *Link) Run(ctx context.Context) error {
	return l.Dispatcher.Run(ctx)
}

// Boot sends the boot command and waits for the staged handshake. The
// dispatcher must be running. Boot returns once the last acknowledgement
// has left TX. On timeout the handshake is aborted and the error wraps both
// fperr.ErrBootFailed and fperr.ErrTimeout.
func (l *Link) Boot(ctx context.Context) (BootResult, error) {
	done := l.Dispatcher.BeginBoot()
	if err := l.Commander.Send(ctx, protocol.CmdBoot, nil, false); err != nil {
		l.Dispatcher.AbortBoot(err)
		res := <-done
		return res, res.Err
	}

	bootCtx, cancel := clockwork.WithTimeout(ctx, l.opts.Clock, l.opts.BootTimeout)
	defer cancel()
	select {
	case res := <-done:
		if res.Err != nil {
			return res, res.Err
		}
		return l.flushBoot(ctx, bootCtx, res)
	case <-bootCtx.Done():
		if ctx.Err() != nil {
			l.Dispatcher.AbortBoot(ctx.Err())
		} else {
			l.Stats.Timeouts.Add(1)
			l.Dispatcher.AbortBoot(fperr.ErrTimeout)
		}
	}
	res := <-done
	if res.Err == nil {
		// Completed while the abort was racing in.
		return l.flushBoot(ctx, bootCtx, res)
	}
	return res, fmt.Errorf("after %s: %w", l.opts.BootTimeout, res.Err)
}

// flushBoot waits for the final boot acknowledgement to reach the port. The
// front processor only leaves its handshake once it has read that byte.
func (l *Link) flushBoot(ctx, bootCtx context.Context, res BootResult) (BootResult, error) {
	err := l.Transport.WaitIdle(bootCtx)
	if err == nil {
		return res, nil
	}
	if ctx.Err() == nil {
		l.Stats.Timeouts.Add(1)
		err = fmt.Errorf("final acknowledgement still queued after %s: %w", l.opts.BootTimeout, fperr.ErrTimeout)
	}
	res.Err = fmt.Errorf("%w: %w", fperr.ErrBootFailed, err)
	log.Warn().Err(res.Err).Int("queued", l.Transport.TxLen()).Msg("link: boot acknowledgement not sent")
	return res, res.Err
}
