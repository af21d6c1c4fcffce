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

package link

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/frontpanel/ring"
	"github.com/ZaparooProject/zaparoo-frontpanel/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

// SerialConn is the subset of a serial port the adapter needs.
type SerialConn interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error
	SetReadTimeout(t time.Duration) error
}

// SerialFactory opens a serial connection.
type SerialFactory func(path string, mode *serial.Mode) (SerialConn, error)

// DefaultSerialFactory opens a real tty.
func DefaultSerialFactory(path string, mode *serial.Mode) (SerialConn, error) {
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return port, nil
}

const (
	serialReadTimeout = 100 * time.Millisecond
	serialBatch       = 64
	serialFIFO        = 1024
)

// SerialPort adapts a tty to Port. A reader goroutine plays the receive
// interrupt and a writer goroutine plays the transmit interrupt, batching
// bytes pushed by the handler into one write.
type SerialPort struct {
	conn   SerialConn
	h      Handler
	fifo   *ring.Ring
	txWake *syncutil.Signal
	cancel context.CancelFunc
	path   string
	batch  []byte
	wg     sync.WaitGroup
	txOn   atomic.Bool
	closed atomic.Bool
}

// OpenSerial opens path at baud using factory, or the real tty when factory
// is nil.
func OpenSerial(path string, baud int, factory SerialFactory) (*SerialPort, error) {
	if factory == nil {
		factory = DefaultSerialFactory
	}
	conn, err := factory(path, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}
	if err := conn.SetReadTimeout(serialReadTimeout); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to set read timeout on serial port: %w", err)
	}
	return &SerialPort{
		conn:   conn,
		path:   path,
		fifo:   ring.New(serialFIFO),
		txWake: syncutil.NewSignal(),
		batch:  make([]byte, 0, serialBatch),
	}, nil
}

// Attach starts the reader and writer goroutines.
func (s *SerialPort) Attach(h Handler) {
	s.h = h
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(2)
	go s.readLoop(ctx)
	go s.writeLoop(ctx)
}

func (s *SerialPort) readLoop(ctx context.Context) {
	defer s.wg.Done()
	buf := make([]byte, 256)
	for ctx.Err() == nil {
		n, err := s.conn.Read(buf)
		if err != nil {
			if !s.closed.Load() {
				log.Error().Err(err).Str("path", s.path).Msg("failed to read from serial port")
			}
			return
		}
		if n == 0 {
			continue
		}
		if w := s.fifo.Write(buf[:n]); w < n {
			log.Warn().Int("dropped", n-w).Msg("serial fifo overflow")
		}
		s.h.RxReady()
	}
}

func (s *SerialPort) writeLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.txWake.C():
		}
		for s.txOn.Load() {
			if len(s.batch) == cap(s.batch) {
				s.flush()
			}
			s.h.TxReady()
		}
		s.flush()
	}
}

func (s *SerialPort) flush() {
	if len(s.batch) == 0 {
		return
	}
	if _, err := s.conn.Write(s.batch); err != nil && !s.closed.Load() {
		log.Error().Err(err).Str("path", s.path).Msg("failed to write to serial port")
	}
	s.batch = s.batch[:0]
}

// Pop returns the next byte read from the tty.
func (s *SerialPort) Pop() (byte, bool) {
	return s.fifo.Get()
}

// Push stages a byte for the next write. Only called from TxReady.
func (s *SerialPort) Push(b byte) bool {
	if len(s.batch) == cap(s.batch) {
		return false
	}
	s.batch = append(s.batch, b)
	return true
}

// SetTxNotify switches the writer on or off.
func (s *SerialPort) SetTxNotify(on bool) {
	s.txOn.Store(on)
	if on {
		s.txWake.Notify()
	}
}

// Close stops both goroutines and closes the tty.
func (s *SerialPort) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}
	err := s.conn.Close()
	s.wg.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	return nil
}
