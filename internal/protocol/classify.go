// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind is the dispatch class of an inbound line.
type Kind int

const (
	// KindText is a line that is not JSON.
	KindText Kind = iota
	KindConfigReport
	KindTemperature
	KindGPSLine
	// KindOther is valid JSON with no handled type.
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindConfigReport:
		return "config"
	case KindTemperature:
		return "temperature"
	case KindGPSLine:
		return "gps_line"
	case KindOther:
		return "other"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Decoded is the classification of one framed line.
type Decoded struct {
	Raw       string
	JSON      bool
	Type      Type
	Kind      Kind
	GPSStyled bool

	Config      *ConfigReport
	Temperature *Temperature
	// Sentence is the NMEA sentence to hand to the parser, raw or embedded
	// in a GPS_LINE message.
	Sentence string

	// Err is set when a known message type carried an unusable payload.
	Err error
}

var nmeaPrefixes = []string{"$GP", "$GN", "$GL"}

var gpsMarkers = []string{"GPS_LINE", "$GP", "$GN", "$GL"}

// embeddedFields are checked, in order, for the sentence in a GPS_LINE.
var embeddedFields = []string{"line", "nmea", "data"}

var tempRe = regexp.MustCompile(`(?i)(?:temperature|temp)[:\s]*([+-]?\d+(?:\.\d+)?)\s*(?:°\s*C)?`)

// HasNMEAPrefix reports whether s starts with a GPS, GNSS or GLONASS talker.
func HasNMEAPrefix(s string) bool {
	for _, p := range nmeaPrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func hasGPSMarker(s string) bool {
	for _, m := range gpsMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// Classify decodes one line. JSON objects are dispatched on their type;
// anything else goes through the temperature and NMEA text checks, which
// are independent of each other.
func Classify(line string) Decoded {
	d := Decoded{Raw: line, GPSStyled: hasGPSMarker(line)}
	b := []byte(line)

	if !json.Valid(b) {
		classifyText(&d)
		return d
	}
	d.JSON = true
	d.Kind = KindOther

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(b, &obj); err != nil || obj == nil {
		return d
	}
	if raw, ok := obj["type"]; ok {
		var t string
		if err := json.Unmarshal(raw, &t); err == nil {
			d.Type = Type(t)
		}
	}

	switch d.Type {
	case TypeConfigReport:
		d.Kind = KindConfigReport
		var rep ConfigReport
		if err := json.Unmarshal(b, &rep); err != nil {
			d.Err = fmt.Errorf("protocol: decode %s: %w", d.Type, err)
			return d
		}
		d.Config = &rep
	case TypeTemp, TypeTempReport:
		d.Kind = KindTemperature
		var p tempPayload
		if err := json.Unmarshal(b, &p); err != nil {
			d.Err = fmt.Errorf("protocol: decode %s: %w", d.Type, err)
			return d
		}
		temp, err := p.decode()
		if err != nil {
			d.Err = err
			return d
		}
		d.Temperature = &temp
	case TypeGPSLine:
		d.Kind = KindGPSLine
		d.GPSStyled = true
		d.Sentence = embeddedSentence(b, obj)
	default:
		// Unhandled types are logged by the caller and change nothing.
	}
	return d
}

func classifyText(d *Decoded) {
	d.Kind = KindText
	if m := tempRe.FindStringSubmatch(d.Raw); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			d.Temperature = &Temperature{Celsius: v}
		}
	}
	if HasNMEAPrefix(d.Raw) {
		d.Sentence = d.Raw
	}
}

// embeddedSentence finds the NMEA string inside a GPS_LINE object: first
// the well-known field names, then any string field with an NMEA prefix in
// document order.
func embeddedSentence(b []byte, obj map[string]json.RawMessage) string {
	for _, name := range embeddedFields {
		raw, ok := obj[name]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return strings.TrimSpace(s)
		}
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return ""
	}
	for dec.More() {
		if _, err := dec.Token(); err != nil {
			return ""
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return ""
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && HasNMEAPrefix(s) {
			return strings.TrimSpace(s)
		}
	}
	return ""
}
