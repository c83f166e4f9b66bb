// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// ParseCoordinate converts an NMEA DMM value (ddmm.mmmm for latitude,
// dddmm.mmmm for longitude) plus hemisphere letter to decimal degrees,
// rounded to 6 places. S and W are negative.
func ParseCoordinate(value, hemi string) (float64, bool) {
	v, ok := parseFloat(value)
	if !ok {
		return 0, false
	}

	deg := math.Trunc(v / 100)
	mins := v - deg*100
	dec := deg + mins/60

	switch strings.ToUpper(strings.TrimSpace(hemi)) {
	case "S", "W":
		dec = -dec
	}
	return math.Round(dec*1e6) / 1e6, true
}

// ParseUTC assembles a UTC instant from an NMEA time field (hhmmss[.sss])
// and day/month/year. Fractional seconds are truncated.
func ParseUTC(hhmmss string, day, month, year int) (time.Time, bool) {
	hhmmss = strings.TrimSpace(hhmmss)
	if len(hhmmss) < 4 {
		return time.Time{}, false
	}
	hh, err := strconv.Atoi(hhmmss[0:2])
	if err != nil {
		return time.Time{}, false
	}
	mm, err := strconv.Atoi(hhmmss[2:4])
	if err != nil {
		return time.Time{}, false
	}
	ss, ok := parseFloat(hhmmss[4:])
	if !ok {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(month), day, hh, mm, int(ss), 0, time.UTC), true
}

// parseDDMMYY splits an RMC date field. The year is 2000 + yy.
func parseDDMMYY(s string) (day, month, year int, ok bool) {
	s = strings.TrimSpace(s)
	if len(s) < 6 {
		return 0, 0, 0, false
	}
	var err error
	if day, err = strconv.Atoi(s[0:2]); err != nil {
		return 0, 0, 0, false
	}
	if month, err = strconv.Atoi(s[2:4]); err != nil {
		return 0, 0, 0, false
	}
	yy, err := strconv.Atoi(s[4:6])
	if err != nil {
		return 0, 0, 0, false
	}
	return day, month, 2000 + yy, true
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func parseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

func floatField(s string) *float64 {
	if v, ok := parseFloat(s); ok {
		return &v
	}
	return nil
}

func intField(s string) *int {
	if v, ok := parseInt(s); ok {
		return &v
	}
	return nil
}

func coordField(value, hemi string) *float64 {
	if v, ok := ParseCoordinate(value, hemi); ok {
		return &v
	}
	return nil
}

// stripChecksum drops a trailing "*hh" suffix.
func stripChecksum(s string) string {
	if i := strings.IndexByte(s, '*'); i != -1 {
		return s[:i]
	}
	return s
}
