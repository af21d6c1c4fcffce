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

//go:build deadlock

// Package syncutil provides the locks and wake-up primitives shared by the
// front panel layers. Build with -tags=deadlock to detect lock ordering
// mistakes during development.
package syncutil

import (
	"os"
	"time"

	"github.com/rs/zerolog/log"
	deadlock "github.com/sasha-s/go-deadlock"
)

const DeadlockEnabled = true

// lockTimeout is well above the longest bounded wait a caller holds a lock
// across: a boot handshake or one acknowledged command.
const lockTimeout = 10 * time.Second

func init() {
	deadlock.Opts.DeadlockTimeout = lockTimeout
	deadlock.Opts.OnPotentialDeadlock = func() {
		log.Error().Dur("timeout", lockTimeout).Msg("syncutil: potential deadlock")
		os.Exit(2)
	}
}

type Mutex struct {
	deadlock.Mutex
}

type RWMutex struct {
	deadlock.RWMutex
}
