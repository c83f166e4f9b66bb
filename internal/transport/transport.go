// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package transport opens the byte stream to the beacon.
package transport

import (
	"fmt"
	"io"
	"log"
	"os"

	serial "github.com/jacobsa/go-serial/serial"
)

// Stream is a bidirectional byte stream. Read returns io.EOF at end of
// stream; Close unblocks a pending Read.
type Stream interface {
	io.ReadWriteCloser
}

// SerialOptions selects the serial device.
type SerialOptions struct {
	PortName string
	BaudRate int
}

// OpenSerial opens the beacon's serial port, 8N1.
func OpenSerial(opts SerialOptions) (Stream, error) {
	if opts.PortName == "" {
		return nil, fmt.Errorf("serial port name is required")
	}
	if opts.BaudRate <= 0 {
		return nil, fmt.Errorf("invalid baud rate %d", opts.BaudRate)
	}

	serialOpts := serial.OpenOptions{
		PortName:              opts.PortName,
		BaudRate:              uint(opts.BaudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", opts.PortName, err)
	}
	log.Printf("transport: serial port opened on %s at %d baud", opts.PortName, opts.BaudRate)
	return port, nil
}

// replayStream reads a capture file and discards writes.
type replayStream struct {
	f *os.File
}

// OpenReplay opens a capture of beacon output for offline processing.
// Anything written to the stream is discarded.
func OpenReplay(path string) (Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay %s: %w", path, err)
	}
	return &replayStream{f: f}, nil
}

func (r *replayStream) Read(p []byte) (int, error)  { return r.f.Read(p) }
func (r *replayStream) Write(p []byte) (int, error) { return len(p), nil }
func (r *replayStream) Close() error                { return r.f.Close() }
