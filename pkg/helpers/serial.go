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

package helpers

import (
	"fmt"
	"runtime"
	"strings"

	"go.bug.st/serial"
)

// portPrefixes are the device names front panels show up under: on-board
// UARTs and USB serial adapters.
var portPrefixes = map[string][]string{
	"linux":   {"/dev/ttyS", "/dev/ttyAMA", "/dev/ttyUSB", "/dev/ttyACM"},
	"darwin":  {"/dev/tty.usbserial", "/dev/cu.usbserial"},
	"windows": {"COM"},
}

func filterPorts(goos string, ports []string) []string {
	prefixes, ok := portPrefixes[goos]
	if !ok {
		return ports
	}
	devices := make([]string, 0, len(ports))
	for _, p := range ports {
		for _, prefix := range prefixes {
			if strings.HasPrefix(p, prefix) {
				devices = append(devices, p)
				break
			}
		}
	}
	return devices
}

// GetSerialDeviceList lists serial ports a panel may be attached to.
func GetSerialDeviceList() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to get serial ports list on %s: %w", runtime.GOOS, err)
	}
	return filterPorts(runtime.GOOS, ports), nil
}
