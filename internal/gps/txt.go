// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"fmt"
	"strings"
)

// TXT text identifiers used by the receiver firmware.
const (
	TextStartup  = 1
	TextAntenna  = 2
	TextJamming  = 3
	TextRF       = 4
	TextNav      = 5
	TextTime     = 6
	TextHardware = 7
)

const antennaMarker = "ANTSTATUS="

// TXT: 1 total sentences, 2 sentence number, 3 text identifier, 4 message.
func parseTXT(f []string) (Fix, []string) {
	total, _ := parseInt(f[1])
	num, _ := parseInt(f[2])
	id, _ := parseInt(f[3])
	msg := strings.TrimSpace(stripChecksum(f[4]))
	upper := strings.ToUpper(msg)

	prefix := fmt.Sprintf("TXT %d/%d", num, total)

	switch id {
	case TextStartup:
		if strings.Contains(upper, "STARTUP") {
			return Fix{}, []string{prefix + " startup: " + msg}
		}
	case TextAntenna:
		if i := strings.Index(upper, antennaMarker); i != -1 {
			raw := upper[i+len(antennaMarker):]
			if len(msg) == len(upper) {
				raw = msg[i+len(antennaMarker):]
			}
			ind := antennaStatus(strings.TrimSpace(raw))
			return Fix{Antenna: &ind}, []string{prefix + " antenna: " + ind.Status}
		}
	case TextJamming:
		if strings.Contains(upper, "JAMMING") || strings.Contains(upper, "INTERFERENCE") {
			ind := Indicator{Status: "Clear", Valid: true}
			if strings.Contains(upper, "DETECTED") || strings.Contains(upper, "HIGH") {
				ind = Indicator{Status: "Detected", Valid: false}
			}
			return Fix{Jamming: &ind}, []string{prefix + " jamming: " + msg}
		}
	case TextRF:
		if containsAny(upper, "RF", "AGC") {
			return Fix{}, []string{prefix + " rf: " + msg}
		}
	case TextNav:
		if containsAny(upper, "NAV") {
			return Fix{}, []string{prefix + " nav: " + msg}
		}
	case TextTime:
		if containsAny(upper, "TIME", "CLOCK") {
			return Fix{}, []string{prefix + " time: " + msg}
		}
	case TextHardware:
		if containsAny(upper, "HW", "HARDWARE") {
			return Fix{}, []string{prefix + " hardware: " + msg}
		}
	default:
		return Fix{}, []string{fmt.Sprintf("%s id=%d: %s", prefix, id, msg)}
	}
	return Fix{}, nil
}

func antennaStatus(v string) Indicator {
	switch strings.ToUpper(v) {
	case "OK":
		return Indicator{Status: "OK", Valid: true}
	case "OPEN":
		return Indicator{Status: "Open Circuit", Valid: false}
	case "SHORT":
		return Indicator{Status: "Short Circuit", Valid: false}
	default:
		return Indicator{Status: v, Valid: false}
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
