// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package display is the boundary between the session and whatever shows
// its state: console, MQTT, OLED or browser.
package display

import (
	"time"

	"github.com/relabs-tech/beacon_bridge/internal/device"
	"github.com/relabs-tech/beacon_bridge/internal/gps"
)

// LogKind tags a log event.
type LogKind string

const (
	LogRx    LogKind = "rx"
	LogTx    LogKind = "tx"
	LogInfo  LogKind = "info"
	LogError LogKind = "error"
)

// Sink receives session updates. Calls come from a single goroutine.
type Sink interface {
	GPSFixChanged(fix gps.Fix, view gps.View, changed []string)
	ConfigChanged(snap device.Snapshot, changed []string)
	TempChanged(celsius float64, at time.Time)
	LogEvent(text string, kind LogKind, gpsStyled bool)
}

// FixEvent is the wire form of a fix update.
type FixEvent struct {
	Fix     gps.Fix  `json:"fix"`
	View    gps.View `json:"view"`
	Changed []string `json:"changed"`
}

// ConfigEvent is the wire form of a configuration update.
type ConfigEvent struct {
	Config  device.Snapshot `json:"config"`
	Changed []string        `json:"changed"`
}

// TempEvent is the wire form of a temperature update.
type TempEvent struct {
	Celsius   float64   `json:"temp_c"`
	Timestamp time.Time `json:"timestamp"`
}

// LogEntry is the wire form of a log event.
type LogEntry struct {
	Text      string    `json:"text"`
	Kind      LogKind   `json:"kind"`
	GPS       bool      `json:"gps"`
	Timestamp time.Time `json:"timestamp"`
}

// Multi fans every call out to each sink in order.
type Multi []Sink

func (m Multi) GPSFixChanged(fix gps.Fix, view gps.View, changed []string) {
	for _, s := range m {
		s.GPSFixChanged(fix, view, changed)
	}
}

func (m Multi) ConfigChanged(snap device.Snapshot, changed []string) {
	for _, s := range m {
		s.ConfigChanged(snap, changed)
	}
}

func (m Multi) TempChanged(celsius float64, at time.Time) {
	for _, s := range m {
		s.TempChanged(celsius, at)
	}
}

func (m Multi) LogEvent(text string, kind LogKind, gpsStyled bool) {
	for _, s := range m {
		s.LogEvent(text, kind, gpsStyled)
	}
}
