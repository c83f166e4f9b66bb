// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package session owns one connection to a beacon: the line framer, the GPS
// fix accumulator and the configuration machine.
package session

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/relabs-tech/beacon_bridge/internal/device"
	"github.com/relabs-tech/beacon_bridge/internal/display"
	"github.com/relabs-tech/beacon_bridge/internal/framer"
	"github.com/relabs-tech/beacon_bridge/internal/gps"
	"github.com/relabs-tech/beacon_bridge/internal/protocol"
)

var (
	ErrNotConnected = errors.New("session: not connected")
	ErrOutboxFull   = errors.New("session: outbox full")
)

// Options tune a session.
type Options struct {
	// VerifyChecksum drops NMEA sentences whose "*hh" suffix does not match.
	VerifyChecksum bool
	// RequestConfigOnConnect sends REQ_GET_CONFIG as soon as a stream is
	// attached.
	RequestConfigOnConnect bool
	// Now overrides the wall clock, for tests.
	Now func() time.Time
}

// Session is not safe for concurrent use; Run serializes everything onto
// one goroutine.
type Session struct {
	sink display.Sink
	opts Options

	framer framer.Framer
	fix    gps.Accumulator
	device device.Machine

	w         io.Writer
	outbox    chan outbound
	connected bool
}

type outbound struct {
	data []byte
	done func(error)
}

// New returns a disconnected session reporting to sink.
func New(sink display.Sink, opts Options) *Session {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Session{sink: sink, opts: opts}
}

func (s *Session) now() time.Time { return s.opts.Now().UTC() }

// Connected reports whether a stream is attached.
func (s *Session) Connected() bool { return s.connected }

// Fix returns a copy of the accumulated GPS fix.
func (s *Session) Fix() gps.Fix { return s.fix.Fix() }

// Config returns a snapshot of the configuration machine.
func (s *Session) Config() device.Snapshot { return s.device.Snapshot() }

// Attach starts a connection on w. All connection-scoped state starts
// empty. Writes go straight to w until Run installs its writer.
func (s *Session) Attach(w io.Writer) {
	s.w = w
	s.connected = true
	s.framer.Reset()
	s.fix.Reset()
	s.device.Connect()

	s.sink.LogEvent("connected", display.LogInfo, false)
	s.sink.ConfigChanged(s.device.Snapshot(), nil)
}

// Detach ends the connection: the partial line is dropped and fix and
// configuration state are cleared.
func (s *Session) Detach() {
	if !s.connected {
		return
	}
	s.connected = false
	s.w = nil
	s.outbox = nil
	s.framer.Reset()
	s.fix.Reset()
	s.device.Disconnect()

	s.sink.GPSFixChanged(gps.Fix{}, gps.View{}, nil)
	s.sink.ConfigChanged(s.device.Snapshot(), nil)
	s.sink.LogEvent("disconnected", display.LogInfo, false)
}

// Feed frames a chunk of received bytes and handles each complete line in
// order.
func (s *Session) Feed(chunk []byte) {
	for _, line := range s.framer.Feed(chunk) {
		s.HandleLine(line)
	}
}

// HandleLine classifies and dispatches one framed line.
func (s *Session) HandleLine(line string) {
	d := protocol.Classify(line)
	s.sink.LogEvent(line, display.LogRx, d.GPSStyled)

	switch d.Kind {
	case protocol.KindConfigReport:
		if d.Err != nil {
			s.sink.LogEvent(d.Err.Error(), display.LogError, false)
			return
		}
		s.applyConfig(*d.Config)
	case protocol.KindTemperature:
		if d.Err != nil {
			s.sink.LogEvent(d.Err.Error(), display.LogError, false)
			return
		}
		s.sink.TempChanged(d.Temperature.Celsius, s.now())
	case protocol.KindGPSLine:
		if d.Sentence != "" {
			s.handleSentence(d.Sentence)
		}
	case protocol.KindText:
		if d.Temperature != nil {
			s.sink.TempChanged(d.Temperature.Celsius, s.now())
		}
		if d.Sentence != "" {
			s.handleSentence(d.Sentence)
		}
	case protocol.KindOther:
		if d.Type != "" {
			s.sink.LogEvent(fmt.Sprintf("unhandled message type %q", d.Type), display.LogInfo, d.GPSStyled)
		}
	default:
		s.sink.LogEvent(fmt.Sprintf("unhandled line kind %s", d.Kind), display.LogError, false)
	}
}

func (s *Session) applyConfig(rep protocol.ConfigReport) {
	changed := s.device.Apply(device.Config{
		Band:       device.Band(rep.Band),
		Channel:    rep.Channel,
		Correction: rep.Correction,
		Callsign:   rep.Callsign,
		CallsignOK: rep.CallsignOK,
	})
	s.sink.ConfigChanged(s.device.Snapshot(), changed)
}

func (s *Session) handleSentence(line string) {
	if s.opts.VerifyChecksum {
		if err := gps.VerifyChecksum(line); err != nil {
			s.sink.LogEvent(err.Error(), display.LogError, true)
			return
		}
	}

	u, err := gps.Parse(line, s.now())
	switch {
	case errors.Is(err, gps.ErrMalformed), errors.Is(err, gps.ErrShortSentence):
		return
	case errors.Is(err, gps.ErrUnknownSentence):
		s.sink.LogEvent("unknown NMEA message: "+u.Key, display.LogInfo, true)
		return
	case err != nil:
		s.sink.LogEvent(err.Error(), display.LogError, true)
		return
	}

	for _, note := range u.Notes {
		s.sink.LogEvent(note, display.LogInfo, true)
	}
	if u.Delta.IsEmpty() {
		return
	}
	fix, changed := s.fix.Merge(u.Delta)
	s.sink.GPSFixChanged(fix, s.fix.View(), changed)
}

// send writes one outbound message. done, if set, runs on the session
// goroutine once the write has finished.
func (s *Session) send(data []byte, done func(error)) error {
	if !s.connected {
		return ErrNotConnected
	}
	s.sink.LogEvent(strings.TrimSpace(string(data)), display.LogTx, false)

	if s.outbox != nil {
		select {
		case s.outbox <- outbound{data: data, done: done}:
			return nil
		default:
			s.sink.LogEvent(ErrOutboxFull.Error(), display.LogError, false)
			return ErrOutboxFull
		}
	}

	_, err := s.w.Write(data)
	if err != nil {
		s.sink.LogEvent("write error: "+err.Error(), display.LogError, false)
	}
	if done != nil {
		done(err)
	}
	return err
}

// Ping sends REQ_PING. No reply is awaited.
func (s *Session) Ping() error {
	return s.send(protocol.Ping(), nil)
}

// RequestConfig sends REQ_GET_CONFIG; the reply arrives as REP_GET_CONFIG.
func (s *Session) RequestConfig() error {
	return s.send(protocol.GetConfig(), nil)
}

// EditField updates one pending configuration field.
func (s *Session) EditField(field device.Field, value string) (device.FieldState, error) {
	if !s.connected {
		return device.FieldNeutral, ErrNotConnected
	}
	st, err := s.device.Edit(field, value)
	if err != nil {
		return st, err
	}
	s.sink.ConfigChanged(s.device.Snapshot(), []string{string(field)})
	return st, nil
}

// SaveConfig sends REQ_SET_CONFIG built from the pending edit. A completed
// write acknowledges the save: the sent values become the confirmed
// configuration.
func (s *Session) SaveConfig() error {
	if !s.connected {
		return ErrNotConnected
	}
	cfg, err := s.device.PrepareSave()
	if err != nil {
		s.sink.LogEvent("save rejected: "+err.Error(), display.LogError, false)
		return err
	}

	data := protocol.SetConfig(string(cfg.Band), cfg.Channel, cfg.Callsign, cfg.Correction)
	err = s.send(data, func(err error) {
		if err != nil {
			s.device.AbortSave()
			return
		}
		changed, err := s.device.CommitSave()
		if err != nil {
			return
		}
		s.sink.ConfigChanged(s.device.Snapshot(), changed)
	})
	if err != nil {
		// done never runs for a send that was not queued.
		s.device.AbortSave()
	}
	return err
}

// SendCustom sends a user-supplied JSON object.
func (s *Session) SendCustom(raw []byte) error {
	data, err := protocol.Custom(raw)
	if err != nil {
		return err
	}
	return s.send(data, nil)
}
