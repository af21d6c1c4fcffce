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
	"io"
	"os"
	"path/filepath"

	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

var logWriter io.Writer = os.Stderr

// LogWriter returns the writer the global logger was set up with.
func LogWriter() io.Writer {
	return logWriter
}

// InitLogging sends the global logger to a rotated file in logDir plus any
// extra writers. An empty logDir logs only to the writers.
func InitLogging(logDir string, writers []io.Writer) error {
	var logWriters []io.Writer
	if logDir != "" {
		err := os.MkdirAll(logDir, 0o750)
		if err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		logWriters = append(logWriters, &lumberjack.Logger{
			Filename:   filepath.Join(logDir, config.LogFile),
			MaxSize:    1,
			MaxBackups: 2,
		})
	}

	if len(writers) > 0 {
		logWriters = append(logWriters, writers...)
	}
	if len(logWriters) == 0 {
		logWriters = append(logWriters, io.Discard)
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	logWriter = io.MultiWriter(logWriters...)
	log.Logger = log.Output(logWriter).
		With().Timestamp().Caller().Logger()

	return nil
}

// SetDebugLogging switches the global level between debug and info.
func SetDebugLogging(enabled bool) {
	if enabled {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}
