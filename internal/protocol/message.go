// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package protocol holds the beacon's JSON line protocol: message types,
// outbound request encoding and classification of inbound lines.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Type is the "type" discriminator of a control message.
type Type string

const (
	TypePing         Type = "REQ_PING"
	TypeGetConfig    Type = "REQ_GET_CONFIG"
	TypeSetConfig    Type = "REQ_SET_CONFIG"
	TypeConfigReport Type = "REP_GET_CONFIG"
	TypeTemp         Type = "TEMP"
	TypeTempReport   Type = "REP_TEMP"
	TypeGPSLine      Type = "GPS_LINE"
)

// ErrNotObject is returned when a custom message is not a JSON object.
var ErrNotObject = errors.New("protocol: message must be a JSON object")

// ConfigReport is the payload of REP_GET_CONFIG.
type ConfigReport struct {
	Band       string      `json:"band"`
	Channel    int         `json:"channel"`
	Correction json.Number `json:"correction"`
	Callsign   string      `json:"callsign"`
	CallsignOK bool        `json:"callsignOk"`
}

// tempPayload is the raw shape of TEMP / REP_TEMP. Temp wins over
// Temperature, Timestamp over Time.
type tempPayload struct {
	Temp        *float64        `json:"temp"`
	Temperature *float64        `json:"temperature"`
	Timestamp   json.RawMessage `json:"timestamp"`
	Time        json.RawMessage `json:"time"`
}

// Temperature is a decoded temperature report.
type Temperature struct {
	Celsius float64
	// DeviceTime is the device-supplied timestamp as sent, if any.
	DeviceTime string
}

func (p tempPayload) decode() (Temperature, error) {
	var out Temperature
	switch {
	case p.Temp != nil:
		out.Celsius = *p.Temp
	case p.Temperature != nil:
		out.Celsius = *p.Temperature
	default:
		return Temperature{}, fmt.Errorf("protocol: temperature report without temp/temperature")
	}
	raw := p.Timestamp
	if len(raw) == 0 || string(raw) == "null" {
		raw = p.Time
	}
	if len(raw) > 0 && string(raw) != "null" {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			out.DeviceTime = s
		} else {
			out.DeviceTime = string(raw)
		}
	}
	return out, nil
}

// SetConfigRequest is the body of REQ_SET_CONFIG.
type SetConfigRequest struct {
	Type       Type        `json:"type"`
	Band       string      `json:"band"`
	Channel    int         `json:"channel"`
	Callsign   string      `json:"callsign"`
	Correction json.Number `json:"correction"`
}

type request struct {
	Type Type `json:"type"`
}

// Ping encodes REQ_PING.
func Ping() []byte { return mustLine(request{Type: TypePing}) }

// GetConfig encodes REQ_GET_CONFIG.
func GetConfig() []byte { return mustLine(request{Type: TypeGetConfig}) }

// SetConfig encodes REQ_SET_CONFIG. The callsign is sent upper-cased.
func SetConfig(band string, channel int, callsign string, correction json.Number) []byte {
	return mustLine(SetConfigRequest{
		Type:       TypeSetConfig,
		Band:       band,
		Channel:    channel,
		Callsign:   strings.ToUpper(callsign),
		Correction: correction,
	})
}

// Custom validates a user-supplied JSON object and returns it compacted and
// newline terminated.
func Custom(raw []byte) ([]byte, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, ErrNotObject
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, fmt.Errorf("protocol: compact custom message: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func mustLine(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// Only fixed request structs reach here.
		panic(fmt.Sprintf("protocol: marshal %T: %v", v, err))
	}
	return append(b, '\n')
}
