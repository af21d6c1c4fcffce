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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/helpers/syncutil"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	SchemaVersion        = 1
	CfgEnv               = "FRONTPANEL_CFG"
	ChecksumPolicyLog    = "log"
	ChecksumPolicyReject = "reject"
	DefaultBaud          = 115200
	DefaultProfile       = "vfd16"
)

type Values struct {
	InstanceID   string         `toml:"instance_id"`
	Device       Device         `toml:"device"`
	State        State          `toml:"state,omitempty"`
	Protocol     Protocol       `toml:"protocol"`
	Display      Display        `toml:"display"`
	Clock        Clock          `toml:"clock"`
	Reporting    ErrorReporting `toml:"error_reporting,omitempty"`
	ConfigSchema int            `toml:"config_schema"`
	DebugLogging bool           `toml:"debug_logging"`
}

// ErrorReporting is opt-in and needs a DSN to send anything.
type ErrorReporting struct {
	DSN     string `toml:"dsn,omitempty" validate:"omitempty,url"`
	Enabled bool   `toml:"enabled"`
}

type Device struct {
	Port     string `toml:"port,omitempty"`
	Profile  string `toml:"profile" validate:"required"`
	Baud     int    `toml:"baud" validate:"gt=0"`
	Simulate bool   `toml:"simulate"`
}

type Display struct {
	Brightness    *int `toml:"brightness,omitempty" validate:"omitempty,gte=0,lte=15"`
	ScrollDelayMs int  `toml:"scroll_delay_ms" validate:"gte=0"`
	ScrollPad     int  `toml:"scroll_pad" validate:"gte=0,lte=32"`
}

type Protocol struct {
	ChecksumPolicy     string `toml:"checksum_policy,omitempty" validate:"omitempty,oneof=log reject"`
	AckTimeoutMs       int    `toml:"ack_timeout_ms,omitempty" validate:"gte=0"`
	BootTimeoutMs      int    `toml:"boot_timeout_ms,omitempty" validate:"gte=0"`
	MinFrameIntervalMs int    `toml:"min_frame_interval_ms,omitempty" validate:"gte=0"`
	RxCapacity         int    `toml:"rx_capacity,omitempty" validate:"omitempty,gte=16"`
	TxCapacity         int    `toml:"tx_capacity,omitempty" validate:"omitempty,gte=16"`
	KeyQueue           int    `toml:"key_queue,omitempty" validate:"gte=0"`
}

type Clock struct {
	// RTCOffset is the local minus UTC offset in seconds.
	RTCOffset int `toml:"rtc_offset" validate:"gte=-86400,lte=86400"`
}

type State struct {
	Path string `toml:"path,omitempty"`
}

var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
	Device: Device{
		Profile: DefaultProfile,
		Baud:    DefaultBaud,
	},
	Display: Display{
		ScrollDelayMs: 300,
	},
	Protocol: Protocol{
		ChecksumPolicy: ChecksumPolicyLog,
	},
}

var validate = validator.New(validator.WithRequiredStructEnabled())

type Instance struct {
	fs       afero.Fs
	cfgPath  string
	vals     Values
	defaults Values
	mu       syncutil.RWMutex
}

// NewConfig loads the config file from configDir, or from the path in the
// FRONTPANEL_CFG environment variable, writing the defaults first if no
// file exists. A nil fs uses the OS filesystem.
//
//nolint:gocritic // config struct copied for immutability
func NewConfig(fs afero.Fs, configDir string, defaults Values) (*Instance, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	cfgPath := os.Getenv(CfgEnv)
	log.Debug().Msgf("env config path: %s", cfgPath)

	if cfgPath == "" {
		cfgPath = filepath.Join(configDir, CfgFile)
	}

	cfg := Instance{
		fs:       fs,
		cfgPath:  cfgPath,
		vals:     defaults,
		defaults: defaults,
	}

	if _, err := fs.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
		log.Info().Msg("saving new default config to disk")

		err := fs.MkdirAll(filepath.Dir(cfgPath), 0o750)
		if err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}

		err = cfg.Save()
		if err != nil {
			return nil, err
		}
	}

	err := cfg.Load()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	data, err := afero.ReadFile(c.fs, c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then unmarshal file values on top.
	newVals := c.defaults
	err = toml.Unmarshal(data, &newVals)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if newVals.ConfigSchema != SchemaVersion {
		log.Error().Msgf(
			"schema version mismatch: got %d, expecting %d",
			newVals.ConfigSchema,
			SchemaVersion,
		)
		return errors.New("schema version mismatch")
	}

	newVals.Protocol.ChecksumPolicy = strings.ToLower(newVals.Protocol.ChecksumPolicy)
	if err := Validate(&newVals); err != nil {
		return err
	}

	c.vals = newVals
	return nil
}

// Validate checks config values against their field rules.
func Validate(v *Values) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s failed %s", strings.ToLower(fe.Namespace()), fe.Tag())
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Instance) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	c.vals.ConfigSchema = SchemaVersion

	if c.vals.InstanceID == "" {
		newID := uuid.New().String()
		c.vals.InstanceID = newID
		log.Info().Msgf("generated new instance id: %s", newID)
	}

	data, err := toml.Marshal(&c.vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := afero.WriteFile(c.fs, c.cfgPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Instance) ConfigPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfgPath
}

func (c *Instance) InstanceID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.InstanceID
}

func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

// ErrorReporting returns whether error reporting is enabled and its DSN.
func (c *Instance) ErrorReporting() (bool, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Reporting.Enabled, c.vals.Reporting.DSN
}

func (c *Instance) SetDebugLogging(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.DebugLogging = enabled
}
