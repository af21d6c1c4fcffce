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

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/config"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/display"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/link"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/protocol"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/rtc"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/sim"
	"github.com/rs/zerolog/log"
)

// PortOpener opens the serial port a panel is attached to.
type PortOpener func(path string, baud int) (link.Port, error)

func openSerial(path string, baud int) (link.Port, error) {
	port, err := link.OpenSerial(path, baud, nil)
	if err != nil {
		//nolint:wrapcheck // OpenSerial already names the port
		return nil, err
	}
	return port, nil
}

// defaultOpener is used by OpenDevice when no opener is given. It can be
// replaced in tests to avoid touching real ports.
var defaultOpener PortOpener = openSerial

// DeviceConfig builds the device configuration from cfg, without a port.
func DeviceConfig(cfg *config.Instance) (frontpanel.Config, error) {
	prof, err := protocol.Lookup(cfg.Profile())
	if err != nil {
		return frontpanel.Config{}, fmt.Errorf("failed to load profile: %w", err)
	}
	policy, err := protocol.ParseChecksumPolicy(cfg.ChecksumPolicy())
	if err != nil {
		return frontpanel.Config{}, fmt.Errorf("invalid checksum policy: %w", err)
	}
	prof.ChecksumPolicy = policy

	return frontpanel.Config{
		Profile:   prof,
		StatePath: cfg.StatePath(),
		RTCOffset: cfg.RTCOffset(),
		Link: link.Options{
			RxCapacity:       cfg.RxCapacity(),
			TxCapacity:       cfg.TxCapacity(),
			KeyQueue:         cfg.KeyQueue(),
			AckTimeout:       cfg.AckTimeout(),
			BootTimeout:      cfg.BootTimeout(),
			MinFrameInterval: cfg.MinFrameInterval(),
		},
		Display: display.Options{
			ScrollDelay: cfg.ScrollDelay(),
			ScrollPad:   cfg.ScrollPad(),
		},
	}, nil
}

// OpenDevice builds a device over the configured serial port, or over a
// simulated panel when simulation is enabled. A nil opener opens real
// serial ports.
func OpenDevice(cfg *config.Instance, open PortOpener) (*frontpanel.Device, error) {
	fc, err := DeviceConfig(cfg)
	if err != nil {
		return nil, err
	}
	if open == nil {
		open = defaultOpener
	}

	switch {
	case cfg.Simulate():
		log.Info().Str("profile", fc.Profile.Name).Msg("using simulated panel")
		fc.Port = sim.New(fc.Profile, sim.Options{})
	case cfg.DevicePort() == "":
		return nil, errors.New("no device port configured, use -port or -sim")
	default:
		port, err := open(cfg.DevicePort(), cfg.DeviceBaud())
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", cfg.DevicePort(), err)
		}
		fc.Port = port
	}

	dev, err := frontpanel.New(fc)
	if err != nil {
		_ = fc.Port.Close()
		return nil, fmt.Errorf("failed to create device: %w", err)
	}
	return dev, nil
}

// scrollPoll is how often a scrolling write is checked for completion.
const scrollPoll = 50 * time.Millisecond

// Run starts dev and performs the actions selected by f. Waiting actions
// return cleanly when ctx is cancelled.
func Run(ctx context.Context, cfg *config.Instance, dev *frontpanel.Device, f *Flags, out io.Writer) error {
	if err := dev.Start(ctx); err != nil {
		return fmt.Errorf("failed to start device: %w", err)
	}
	if level, ok := cfg.Brightness(); ok && !f.isFlagPassed("brightness") {
		if err := dev.SetBrightness(ctx, level); err != nil {
			log.Warn().Err(err).Int("level", level).Msg("failed to apply configured brightness")
		}
	}

	if *f.Info {
		if err := printInfo(ctx, dev, out); err != nil {
			return err
		}
	}
	if err := runSettings(ctx, cfg, dev, f, out); err != nil {
		return err
	}
	if f.isFlagPassed("text") {
		if err := showText(ctx, dev, *f.Text, out); err != nil {
			return err
		}
	}

	var wake rtc.DeviceTime
	if *f.Wake != "" {
		t, err := ParseDeviceTime(*f.Wake)
		if err != nil {
			return err
		}
		wake = t
		if !*f.Standby {
			if dev.SetWakeTime(wake) {
				_, _ = fmt.Fprintf(out, "wake: %s\n", wake)
			} else {
				_, _ = fmt.Fprintln(out, "wake: rejected, not in the future")
			}
		}
	}
	if *f.Clock {
		printClock(dev, out)
	}

	if *f.Spinner > 0 {
		if err := spin(ctx, dev, *f.Spinner); err != nil {
			return err
		}
	}
	if *f.Keys {
		if err := readKeys(ctx, dev, out); err != nil {
			return err
		}
	}

	if *f.Standby {
		if *f.Wake == "" {
			wake = rtc.NoAlarm
		}
		if err := dev.EnterDeepStandby(ctx, wake); err != nil {
			return fmt.Errorf("failed to enter deep standby: %w", err)
		}
		_, _ = fmt.Fprintf(out, "standby: wake %s\n", dev.WakeTime())
	}
	return nil
}

func runSettings(ctx context.Context, cfg *config.Instance, dev *frontpanel.Device, f *Flags, out io.Writer) error {
	if f.isFlagPassed("rtc-offset") {
		dev.SetRTCOffset(*f.Offset)
		cfg.SetRTCOffset(*f.Offset)
		if err := cfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
	}
	if *f.SetClock != "" {
		t, err := ParseDeviceTime(*f.SetClock)
		if err != nil {
			return err
		}
		if err := dev.SetClockTime(t); err != nil {
			return fmt.Errorf("failed to set clock: %w", err)
		}
		_, _ = fmt.Fprintf(out, "clock: %s\n", t)
	}
	if f.isFlagPassed("brightness") {
		if err := dev.SetBrightness(ctx, *f.Brightness); err != nil {
			return fmt.Errorf("failed to set brightness: %w", err)
		}
	}
	if *f.Display != "" {
		on, err := parseOnOff(*f.Display)
		if err != nil {
			return err
		}
		if err := dev.SetDisplayOnOff(ctx, on); err != nil {
			return fmt.Errorf("failed to switch display: %w", err)
		}
	}
	if *f.Icon != "" {
		id, on, err := parseSwitch(*f.Icon)
		if err != nil {
			return err
		}
		if id < 0 {
			err = dev.SetAllIcons(ctx, on)
		} else {
			err = dev.SetIcon(ctx, id, on)
		}
		if err != nil {
			return fmt.Errorf("failed to set icon: %w", err)
		}
	}
	if *f.LED != "" {
		id, on, err := parseSwitch(*f.LED)
		if err != nil {
			return err
		}
		if id < 0 {
			return errors.New("led does not accept all")
		}
		if err := dev.SetLED(ctx, id, on); err != nil {
			return fmt.Errorf("failed to set led: %w", err)
		}
	}
	return nil
}

func showText(ctx context.Context, dev *frontpanel.Device, text string, out io.Writer) error {
	if err := dev.OpenDisplay(); err != nil {
		return fmt.Errorf("failed to open display: %w", err)
	}
	defer func() {
		_ = dev.CloseDisplay()
	}()

	n, err := dev.WriteText(ctx, []byte(text))
	if err != nil {
		return fmt.Errorf("failed to write text: %w", err)
	}
	_, _ = fmt.Fprintf(out, "text: %d bytes\n", n)

	ticker := time.NewTicker(scrollPoll)
	defer ticker.Stop()
	for dev.Scrolling() != display.StatusStopped {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}

func spin(ctx context.Context, dev *frontpanel.Device, period time.Duration) error {
	if err := dev.ShowSpinner(ctx, period); err != nil {
		return fmt.Errorf("failed to start spinner: %w", err)
	}
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := dev.ShowSpinner(stopCtx, 0); err != nil {
		log.Warn().Err(err).Msg("failed to stop spinner")
	}
	return nil
}

func readKeys(ctx context.Context, dev *frontpanel.Device, out io.Writer) error {
	if err := dev.OpenKeyChannel(); err != nil {
		return fmt.Errorf("failed to open key channel: %w", err)
	}
	defer func() {
		_ = dev.CloseKeyChannel()
	}()

	for {
		ev, err := dev.ReadKeyEvent(ctx)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil
		case err != nil:
			return fmt.Errorf("failed to read key: %w", err)
		}
		_, _ = fmt.Fprintln(out, ev)
	}
}

func printClock(dev *frontpanel.Device, out io.Writer) {
	_, _ = fmt.Fprintf(out, "time: %s\n", dev.ClockTime())
	_, _ = fmt.Fprintf(out, "wake: %s\n", dev.WakeTime())
	_, _ = fmt.Fprintf(out, "rtc offset: %ds\n", dev.RTCOffset())
}

func printInfo(ctx context.Context, dev *frontpanel.Device, out io.Writer) error {
	v, err := dev.GetVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get version: %w", err)
	}
	wake, err := dev.GetWakeupReason(ctx)
	if err != nil {
		return fmt.Errorf("failed to get wake reason: %w", err)
	}
	stats, err := json.Marshal(dev.Stats())
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}

	_, _ = fmt.Fprintf(out, "profile: %s\n", dev.Profile().Name)
	_, _ = fmt.Fprintf(out, "version: %s\n", v)
	_, _ = fmt.Fprintf(out, "wake reason: %s\n", wake)
	_, _ = fmt.Fprintf(out, "stats: %s\n", stats)
	return nil
}
