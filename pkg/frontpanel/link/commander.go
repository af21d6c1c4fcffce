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
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/helpers/syncutil"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// DefaultAckTimeout bounds the wait for an acknowledgement.
const DefaultAckTimeout = 300 * time.Millisecond

// Commander is the only sanctioned way to talk to the front processor. It
// holds one lock across transmit and wait, so at most one command is in
// flight and its reply cannot be attributed to any other command.
type Commander struct {
	tr      *Transport
	pending *Pending
	prof    *protocol.Profile
	limiter *rate.Limiter
	clock   clockwork.Clock
	stats   *Stats
	timeout time.Duration
	mu      syncutil.Mutex
}

// NewCommander returns a command layer over tr. minGap is the dead time
// enforced between the starts of consecutive frames, zero for none. A nil
// clock uses the real clock.
func NewCommander(
	tr *Transport,
	pending *Pending,
	prof *protocol.Profile,
	timeout, minGap time.Duration,
	clock clockwork.Clock,
	stats *Stats,
) *Commander {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if timeout <= 0 {
		timeout = DefaultAckTimeout
	}
	limit := rate.Inf
	if minGap > 0 {
		limit = rate.Every(minGap)
	}
	return &Commander{
		tr:      tr,
		pending: pending,
		prof:    prof,
		limiter: rate.NewLimiter(limit, 1),
		clock:   clock,
		stats:   stats,
		timeout: timeout,
	}
}

// Send transmits cmd with payload. When expectAck is set it waits for the
// acknowledgement echoing cmd and returns fperr.ErrTimeout if none arrives
// in time. Nothing is retried.
func (c *Commander) Send(ctx context.Context, cmd protocol.Command, payload []byte, expectAck bool) error {
	reply := protocol.RspAck
	if !expectAck {
		reply = 0
	}
	_, err := c.exchange(ctx, cmd, payload, reply)
	return err
}

// Query transmits cmd and waits for the typed reply.
func (c *Commander) Query(
	ctx context.Context,
	cmd protocol.Command,
	payload []byte,
	reply protocol.Response,
) (protocol.Frame, error) {
	return c.exchange(ctx, cmd, payload, reply)
}

func (c *Commander) exchange(
	ctx context.Context,
	cmd protocol.Command,
	payload []byte,
	reply protocol.Response,
) (protocol.Frame, error) {
	frame, err := protocol.Encode(byte(cmd), payload, c.prof.Checksum)
	if err != nil {
		return protocol.Frame{}, fmt.Errorf("encoding %s: %w", cmd, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.limiter.Wait(ctx); err != nil {
		return protocol.Frame{}, fmt.Errorf("%s: %w", cmd, err)
	}

	var done <-chan protocol.Frame
	if reply != 0 {
		done = c.pending.Arm(cmd, reply)
		defer c.pending.Disarm()
	}
	if err := c.tr.Write(ctx, frame); err != nil {
		return protocol.Frame{}, fmt.Errorf("%s: %w", cmd, err)
	}
	log.Debug().Stringer("cmd", cmd).Hex("frame", frame).Msg("link: tx")
	if done == nil {
		return protocol.Frame{}, nil
	}

	timer := c.clock.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case f := <-done:
		return f, nil
	case <-timer.Chan():
		c.stats.Timeouts.Add(1)
		log.Warn().Stringer("cmd", cmd).Dur("timeout", c.timeout).Msg("link: no reply")
		return protocol.Frame{}, fmt.Errorf("%s: %w", cmd, fperr.ErrTimeout)
	case <-ctx.Done():
		return protocol.Frame{}, fmt.Errorf("%s: %w", cmd, ctx.Err())
	}
}
