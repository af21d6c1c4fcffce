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

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ZaparooProject/zaparoo-frontpanel/internal/telemetry"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/cli"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/config"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/helpers"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func configDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to find config directory: %w", err)
	}
	return filepath.Join(base, "frontpanel"), nil
}

func run() error {
	fs := flag.NewFlagSet(config.AppName, flag.ContinueOnError)
	flags := cli.SetupFlags(fs)
	done, err := flags.Pre(os.Args[1:], os.Stdout)
	if err != nil || done {
		return err
	}

	dir, err := configDir()
	if err != nil {
		return err
	}

	var logWriters []io.Writer
	if *flags.Debug {
		logWriters = []io.Writer{os.Stderr}
	}
	if err := helpers.InitLogging(dir, logWriters); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	defaults := config.BaseDefaults
	defaults.State.Path = config.StateFile
	cfg, err := config.NewConfig(nil, dir, defaults)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	flags.Apply(cfg)
	helpers.SetDebugLogging(cfg.DebugLogging())
	log.Info().Str("version", config.AppVersion).Str("config", cfg.ConfigPath()).Msg("fpctl starting")

	reporting, dsn := cfg.ErrorReporting()
	if err := telemetry.Init(telemetry.Options{
		Enabled:    reporting,
		DSN:        dsn,
		InstanceID: cfg.InstanceID(),
		AppVersion: config.AppVersion,
		Profile:    cfg.Profile(),
	}); err != nil {
		log.Warn().Err(err).Msg("error reporting unavailable")
	}
	defer telemetry.Close()
	log.Logger = log.With().Str("instance_id", cfg.InstanceID()).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dev, err := cli.OpenDevice(cfg, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := dev.Close(); err != nil {
			log.Error().Err(err).Msg("error closing device")
		}
	}()

	return cli.Run(ctx, cfg, dev, flags, os.Stdout)
}
