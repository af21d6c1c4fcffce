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

// Package store persists the clock state across restarts in a bolt file so
// a pending wake alarm and the RTC offset survive the host process.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/rtc"
	bolt "go.etcd.io/bbolt"
)

const (
	BucketState = "frontpanel"
	keyClock    = "clock"
	keyDisplay  = "display"
)

// ErrNotFound is returned when nothing has been saved yet.
var ErrNotFound = errors.New("no saved state")

type clockRecord struct {
	WakeMJD   int   `json:"wakeMjd"`
	Offset    int   `json:"offset"`
	WakeHour  uint8 `json:"wakeHour"`
	WakeMin   uint8 `json:"wakeMinute"`
	WakeSec   uint8 `json:"wakeSecond"`
	TimerWake bool  `json:"timerWake"`
}

// DisplayState is the part of the display restored on start.
type DisplayState struct {
	Brightness int `json:"brightness"`
}

// Store is an open state file.
type Store struct {
	bdb *bolt.DB
}

// Open opens or creates the state file at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BucketState))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create state bucket: %w", err)
	}
	return &Store{bdb: db}, nil
}

func (s *Store) Close() error {
	if err := s.bdb.Close(); err != nil {
		return fmt.Errorf("failed to close bolt database: %w", err)
	}
	return nil
}

func (s *Store) put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s state: %w", key, err)
	}
	err = s.bdb.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(BucketState)).Put([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("failed to save %s state: %w", key, err)
	}
	return nil
}

func (s *Store) get(key string, v any) error {
	return s.bdb.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(BucketState)).Get([]byte(key))
		if data == nil {
			return ErrNotFound
		}
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to unmarshal %s state: %w", key, err)
		}
		return nil
	})
}

// SaveClock writes the clock state.
func (s *Store) SaveClock(st rtc.State) error {
	return s.put(keyClock, clockRecord{
		WakeMJD:   st.Wake.MJD,
		WakeHour:  st.Wake.Hour,
		WakeMin:   st.Wake.Minute,
		WakeSec:   st.Wake.Second,
		Offset:    st.Offset,
		TimerWake: st.TimerWake,
	})
}

// LoadClock reads the clock state, ErrNotFound if none was saved.
func (s *Store) LoadClock() (rtc.State, error) {
	var rec clockRecord
	if err := s.get(keyClock, &rec); err != nil {
		return rtc.State{}, err
	}
	return rtc.State{
		Wake: rtc.DeviceTime{
			MJD:    rec.WakeMJD,
			Hour:   rec.WakeHour,
			Minute: rec.WakeMin,
			Second: rec.WakeSec,
		},
		Offset:    rec.Offset,
		TimerWake: rec.TimerWake,
	}, nil
}

// SaveDisplay writes the display state.
func (s *Store) SaveDisplay(st DisplayState) error {
	return s.put(keyDisplay, st)
}

// LoadDisplay reads the display state, ErrNotFound if none was saved.
func (s *Store) LoadDisplay() (DisplayState, error) {
	var st DisplayState
	err := s.get(keyDisplay, &st)
	return st, err
}
