// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrMalformed is returned for input that is not a '$' sentence of at
	// least 6 characters.
	ErrMalformed = errors.New("nmea: malformed sentence")
	// ErrShortSentence is returned when a known sentence has fewer fields
	// than its kind requires.
	ErrShortSentence = errors.New("nmea: too few fields")
	// ErrUnknownSentence is returned for type keys outside the supported set.
	ErrUnknownSentence = errors.New("nmea: unknown sentence")
)

// Kind identifies a supported sentence type independent of talker.
type Kind int

const (
	KindUnknown Kind = iota
	KindGGA
	KindRMC
	KindGSV
	KindGSA
	KindVTG
	KindTXT
	KindZDA
)

func (k Kind) String() string {
	switch k {
	case KindGGA:
		return "GGA"
	case KindRMC:
		return "RMC"
	case KindGSV:
		return "GSV"
	case KindGSA:
		return "GSA"
	case KindVTG:
		return "VTG"
	case KindTXT:
		return "TXT"
	case KindZDA:
		return "ZDA"
	default:
		return "unknown"
	}
}

// kinds maps the leading type token to a sentence kind. GLONASS variants
// only exist for the kinds receivers actually emit them for.
var kinds = map[string]Kind{
	"$GPGGA": KindGGA, "$GNGGA": KindGGA, "$GLGGA": KindGGA,
	"$GPRMC": KindRMC, "$GNRMC": KindRMC,
	"$GPGSV": KindGSV, "$GNGSV": KindGSV, "$GLGSV": KindGSV,
	"$GPGSA": KindGSA, "$GNGSA": KindGSA,
	"$GPVTG": KindVTG, "$GNVTG": KindVTG,
	"$GPTXT": KindTXT, "$GNTXT": KindTXT,
	"$GPZDA": KindZDA, "$GNZDA": KindZDA,
}

// minFields is the field count (including the type token) each kind needs.
var minFields = map[Kind]int{
	KindGGA: 15,
	KindRMC: 12,
	KindGSV: 4,
	KindGSA: 18,
	KindVTG: 10,
	KindTXT: 5,
	KindZDA: 7,
}

// Sentence is a comma-split NMEA sentence. The checksum suffix is removed
// from the last field; it is never verified here.
type Sentence struct {
	Key    string // e.g. "$GNRMC"
	Kind   Kind
	Fields []string
}

// SplitSentence performs the pre-check and field split.
func SplitSentence(line string) (Sentence, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") || len(line) < 6 {
		return Sentence{}, ErrMalformed
	}
	fields := strings.Split(line, ",")
	fields[len(fields)-1] = stripChecksum(fields[len(fields)-1])
	key := stripChecksum(fields[0])
	return Sentence{Key: key, Kind: kinds[key], Fields: fields}, nil
}

// Update is the result of parsing one sentence: a partial fix plus any log
// lines the sentence produced (TXT sub-handlers).
type Update struct {
	Kind  Kind
	Key   string
	Delta Fix
	Notes []string
}

// Parse turns one sentence into a partial fix update. It never reads prior
// fix state. Fields that fail to parse are left out of the delta.
func Parse(line string, now time.Time) (Update, error) {
	s, err := SplitSentence(line)
	if err != nil {
		return Update{}, err
	}
	if s.Kind == KindUnknown {
		return Update{Key: s.Key}, fmt.Errorf("%w: %s", ErrUnknownSentence, s.Key)
	}
	if len(s.Fields) < minFields[s.Kind] {
		return Update{Kind: s.Kind, Key: s.Key}, ErrShortSentence
	}
	return parseKind(s, now)
}

func parseKind(s Sentence, now time.Time) (u Update, err error) {
	defer func() {
		if r := recover(); r != nil {
			u = Update{Kind: s.Kind, Key: s.Key}
			err = fmt.Errorf("nmea: %s parse error: %v", s.Kind, r)
		}
	}()

	u = Update{Kind: s.Kind, Key: s.Key}
	f := s.Fields
	switch s.Kind {
	case KindGGA:
		u.Delta = parseGGA(f)
	case KindRMC:
		u.Delta = parseRMC(f)
	case KindGSV:
		u.Delta = Fix{Satellites: intField(f[3])}
	case KindGSA:
		u.Delta = parseGSA(f)
	case KindVTG:
		u.Delta = Fix{
			Course:     floatField(f[1]),
			SpeedKnots: floatField(f[5]),
			SpeedKmh:   floatField(f[7]),
		}
	case KindTXT:
		u.Delta, u.Notes = parseTXT(f)
	case KindZDA:
		u.Delta = parseZDA(f)
	}
	u.Delta.UpdatedAt = now
	return u, nil
}

// GGA: 1 time, 2-3 lat, 4-5 lon, 6 quality, 7 satellites, 8 HDOP, 9 altitude.
func parseGGA(f []string) Fix {
	return Fix{
		Quality:    intField(f[6]),
		Satellites: intField(f[7]),
		Latitude:   coordField(f[2], f[3]),
		Longitude:  coordField(f[4], f[5]),
		HDOP:       floatField(f[8]),
		Altitude:   floatField(f[9]),
	}
}

// RMC: 1 time, 2 status, 3-4 lat, 5-6 lon, 7 speed kn, 8 course, 9 date,
// 10-11 magnetic variation, 12 mode indicator.
func parseRMC(f []string) Fix {
	status := StatusVoid
	if strings.TrimSpace(f[2]) == "A" {
		status = StatusActive
	}
	out := Fix{
		Status:       &status,
		Latitude:     coordField(f[3], f[4]),
		Longitude:    coordField(f[5], f[6]),
		SpeedKnots:   floatField(f[7]),
		Course:       floatField(f[8]),
		MagVariation: floatField(f[10]),
	}
	if dir := strings.TrimSpace(f[11]); dir != "" {
		out.MagVariationDir = &dir
	}
	if len(f) > 12 {
		if mode := strings.TrimSpace(stripChecksum(f[12])); mode != "" {
			out.ModeIndicator = &mode
		}
	}
	if day, month, year, ok := parseDDMMYY(f[9]); ok {
		if ts, ok := ParseUTC(f[1], day, month, year); ok {
			out.GPSTime = &ts
		}
	}
	return out
}

// GSA: 2 mode, 3-14 satellite ids, 15 PDOP, 16 HDOP, 17 VDOP.
func parseGSA(f []string) Fix {
	active := 0
	for i := 3; i <= 14; i++ {
		if strings.TrimSpace(f[i]) != "" {
			active++
		}
	}
	return Fix{
		Mode:             intField(f[2]),
		ActiveSatellites: &active,
		PDOP:             floatField(f[15]),
		HDOP:             floatField(f[16]),
		VDOP:             floatField(f[17]),
	}
}

// ZDA: 1 time, 2 day, 3 month, 4 year, 5-6 local zone hours/minutes.
func parseZDA(f []string) Fix {
	var out Fix
	day, dOK := parseInt(f[2])
	month, mOK := parseInt(f[3])
	year, yOK := parseInt(f[4])
	if dOK && mOK && yOK {
		if ts, ok := ParseUTC(f[1], day, month, year); ok {
			out.GPSTime = &ts
		}
	}
	if zh, ok := parseInt(f[5]); ok {
		zm, _ := parseInt(f[6])
		if zh < 0 {
			zm = -zm
		}
		out.ZoneOffset = ptr(zh*60 + zm)
	}
	return out
}
