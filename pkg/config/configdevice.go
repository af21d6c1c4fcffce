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

package config

import (
	"path/filepath"
	"time"
)

func (c *Instance) DevicePort() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Device.Port
}

func (c *Instance) SetDevicePort(port string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Device.Port = port
}

func (c *Instance) DeviceBaud() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Device.Baud
}

func (c *Instance) Profile() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Device.Profile
}

func (c *Instance) SetProfile(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Device.Profile = name
}

func (c *Instance) Simulate() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Device.Simulate
}

func (c *Instance) SetSimulate(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Device.Simulate = enabled
}

// Brightness returns the configured start up brightness, if one is set.
func (c *Instance) Brightness() (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Display.Brightness == nil {
		return 0, false
	}
	return *c.vals.Display.Brightness, true
}

func (c *Instance) SetBrightness(level int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Display.Brightness = &level
}

func (c *Instance) ScrollDelay() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.vals.Display.ScrollDelayMs) * time.Millisecond
}

func (c *Instance) ScrollPad() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Display.ScrollPad
}

func (c *Instance) AckTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.vals.Protocol.AckTimeoutMs) * time.Millisecond
}

func (c *Instance) BootTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.vals.Protocol.BootTimeoutMs) * time.Millisecond
}

func (c *Instance) MinFrameInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.vals.Protocol.MinFrameIntervalMs) * time.Millisecond
}

// ChecksumPolicy returns "log" or "reject".
func (c *Instance) ChecksumPolicy() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Protocol.ChecksumPolicy == "" {
		return ChecksumPolicyLog
	}
	return c.vals.Protocol.ChecksumPolicy
}

func (c *Instance) RxCapacity() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Protocol.RxCapacity
}

func (c *Instance) TxCapacity() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Protocol.TxCapacity
}

func (c *Instance) KeyQueue() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Protocol.KeyQueue
}

func (c *Instance) RTCOffset() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Clock.RTCOffset
}

func (c *Instance) SetRTCOffset(seconds int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Clock.RTCOffset = seconds
}

// StatePath returns the state file path. A relative path is resolved
// against the config file's directory; empty disables persistence.
func (c *Instance) StatePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p := c.vals.State.Path
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(c.cfgPath), p)
}
