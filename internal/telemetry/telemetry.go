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

// Package telemetry provides opt-in error reporting via Sentry. Paths and
// serial adapter identities are stripped before transmission.
package telemetry

import (
	"fmt"
	"net/http"
	"regexp"
	"runtime"
	"sync"
	"time"

	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/helpers"
	"github.com/getsentry/sentry-go"
	sentryzerolog "github.com/getsentry/sentry-go/zerolog"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const flushTimeout = 2 * time.Second

// Options selects where reports go and how they are tagged.
type Options struct {
	DSN        string
	InstanceID string
	AppVersion string
	Profile    string
	Enabled    bool
}

var (
	enabled      bool
	sentryWriter *sentryzerolog.Writer
	closeOnce    sync.Once
)

type scrubber struct {
	re   *regexp.Regexp
	repl string
}

// scrubbers run in order over every reported string.
var scrubbers = []scrubber{
	{regexp.MustCompile(`(?i)/home/[^/]+/`), "/home/<user>/"},
	{regexp.MustCompile(`(?i)/Users/[^/]+/`), "/Users/<user>/"},
	{regexp.MustCompile(`(?i)[a-zA-Z]:\\Users\\[^\\]+\\`), `C:\Users\<user>\`},
	// by-id names embed the adapter serial number
	{regexp.MustCompile(`/dev/serial/by-id/[^\s:]+`), "/dev/serial/by-id/<adapter>"},
}

// Init starts error reporting when enabled with a DSN. Error and fatal log
// events are then sent alongside the regular log output.
func Init(opts Options) error {
	if !opts.Enabled || opts.DSN == "" {
		log.Debug().Msg("error reporting disabled")
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              opts.DSN,
		Release:          "frontpanel@" + opts.AppVersion,
		Environment:      opts.Profile,
		AttachStacktrace: true,
		SendDefaultPII:   false,
		ServerName:       "",
		MaxBreadcrumbs:   0,
		HTTPClient:       &http.Client{Timeout: 30 * time.Second},
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return sanitizeEvent(event)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize sentry: %w", err)
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetUser(sentry.User{ID: opts.InstanceID})
		scope.SetTag("profile", opts.Profile)
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
	})

	sentryWriter, err = sentryzerolog.NewWithHub(sentry.CurrentHub(), sentryzerolog.Options{
		Levels:          []zerolog.Level{zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel},
		FlushTimeout:    flushTimeout,
		WithBreadcrumbs: false,
	})
	if err != nil {
		return fmt.Errorf("failed to create sentry zerolog writer: %w", err)
	}

	log.Logger = log.Output(zerolog.MultiLevelWriter(
		helpers.LogWriter(),
		sentryWriter,
	)).With().Timestamp().Caller().Logger()

	enabled = true
	log.Info().Msg("error reporting enabled")
	return nil
}

// Close flushes pending events and shuts down reporting. Safe to call more
// than once.
func Close() {
	if !enabled {
		return
	}
	closeOnce.Do(func() {
		_ = sentryWriter.Close()
		sentry.Flush(flushTimeout)
	})
}

// Enabled reports whether error reporting is active.
func Enabled() bool {
	return enabled
}

func sanitizeEvent(event *sentry.Event) *sentry.Event {
	event.ServerName = ""
	for i := range event.Exception {
		event.Exception[i].Value = scrub(event.Exception[i].Value)
		if event.Exception[i].Stacktrace == nil {
			continue
		}
		for j := range event.Exception[i].Stacktrace.Frames {
			frame := &event.Exception[i].Stacktrace.Frames[j]
			frame.AbsPath = scrub(frame.AbsPath)
			frame.Filename = scrub(frame.Filename)
		}
	}
	event.Message = scrub(event.Message)
	for k, v := range event.Extra {
		if s, ok := v.(string); ok {
			event.Extra[k] = scrub(s)
		}
	}
	return event
}

func scrub(s string) string {
	if s == "" {
		return s
	}
	for _, sc := range scrubbers {
		s = sc.re.ReplaceAllString(s, sc.repl)
	}
	return s
}
