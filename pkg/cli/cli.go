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

// Package cli holds the flags and actions of the fpctl command.
package cli

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/config"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/rtc"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/helpers"
)

type Flags struct {
	Port       *string
	Profile    *string
	Text       *string
	Brightness *int
	Spinner    *time.Duration
	Icon       *string
	LED        *string
	Display    *string
	SetClock   *string
	Wake       *string
	Offset     *int
	Sim        *bool
	Keys       *bool
	Clock      *bool
	Info       *bool
	Standby    *bool
	Ports      *bool
	Version    *bool
	Debug      *bool
	fs         *flag.FlagSet
}

// SetupFlags defines the fpctl flags on fs.
func SetupFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		fs:      fs,
		Port:    fs.String("port", "", "serial port the panel is attached to (overrides config)"),
		Profile: fs.String("profile", "", "panel profile name (overrides config)"),
		Sim:     fs.Bool("sim", false, "drive a simulated panel instead of a serial port"),
		Text:    fs.String("text", "", "show text, scrolling if wider than the display"),
		Brightness: fs.Int(
			"brightness",
			-1,
			"set display brightness level",
		),
		Spinner: fs.Duration(
			"spinner",
			0,
			"show the busy spinner with the given step period until interrupted",
		),
		Icon:     fs.String("icon", "", "set an icon, as id=on|off or all=on|off"),
		LED:      fs.String("led", "", "set a front LED, as id=on|off"),
		Display:  fs.String("display", "", "switch the display on or off"),
		Keys:     fs.Bool("keys", false, "print key and remote events until interrupted"),
		Clock:    fs.Bool("clock", false, "print the panel clock and pending wake time"),
		SetClock: fs.String("set-clock", "", "set device time, as \"2006-01-02 15:04:05\""),
		Wake:     fs.String("wake", "", "request a wake alarm, as \"2006-01-02 15:04:05\""),
		Offset:   fs.Int("rtc-offset", 0, "set the local minus UTC offset in seconds"),
		Standby:  fs.Bool("standby", false, "enter deep standby, programming -wake if given"),
		Info:     fs.Bool("info", false, "print version, wake reason and link counters"),
		Ports:    fs.Bool("ports", false, "list serial ports and exit"),
		Version:  fs.Bool("version", false, "print version and exit"),
		Debug:    fs.Bool("debug", false, "enable debug logging"),
	}
}

func (f *Flags) isFlagPassed(name string) bool {
	found := false
	f.fs.Visit(func(fl *flag.Flag) {
		if fl.Name == name {
			found = true
		}
	})
	return found
}

// Pre parses args and handles the flags that need no device. It reports
// whether the command is finished.
func (f *Flags) Pre(args []string, out io.Writer) (bool, error) {
	if err := f.fs.Parse(args); err != nil {
		return true, fmt.Errorf("failed to parse flags: %w", err)
	}
	switch {
	case *f.Version:
		_, _ = fmt.Fprintf(out, "%s v%s\n", config.AppName, config.AppVersion)
		return true, nil
	case *f.Ports:
		ports, err := helpers.GetSerialDeviceList()
		if err != nil {
			return true, err
		}
		for _, p := range ports {
			_, _ = fmt.Fprintln(out, p)
		}
		return true, nil
	}
	return false, nil
}

// Apply copies the device flags that were passed over the config values.
func (f *Flags) Apply(cfg *config.Instance) {
	if f.isFlagPassed("port") {
		cfg.SetDevicePort(*f.Port)
	}
	if f.isFlagPassed("profile") {
		cfg.SetProfile(*f.Profile)
	}
	if f.isFlagPassed("sim") {
		cfg.SetSimulate(*f.Sim)
	}
	if f.isFlagPassed("debug") {
		cfg.SetDebugLogging(*f.Debug)
	}
}

const timeLayout = "2006-01-02 15:04:05"

// ParseDeviceTime reads a device local time given on the command line.
func ParseDeviceTime(s string) (rtc.DeviceTime, error) {
	t, err := time.Parse(timeLayout, strings.TrimSpace(s))
	if err != nil {
		return rtc.DeviceTime{}, fmt.Errorf("invalid time %q, want %q: %w", s, timeLayout, err)
	}
	return rtc.FromTime(t), nil
}

// parseSwitch reads an "id=on" style argument. An id of "all" returns -1.
func parseSwitch(s string) (int, bool, error) {
	key, val, ok := strings.Cut(s, "=")
	if !ok {
		return 0, false, fmt.Errorf("invalid switch %q, want id=on|off", s)
	}
	on, err := parseOnOff(val)
	if err != nil {
		return 0, false, err
	}
	if strings.EqualFold(key, "all") {
		return -1, on, nil
	}
	id, err := strconv.Atoi(key)
	if err != nil {
		return 0, false, fmt.Errorf("invalid id %q: %w", key, err)
	}
	return id, on, nil
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	default:
		return false, fmt.Errorf("invalid state %q, want on or off", s)
	}
}
