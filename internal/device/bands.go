// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package device

// Band is an amateur-radio band name as the beacon firmware spells it.
type Band string

// BandInfo pairs a band with its beacon center frequency.
type BandInfo struct {
	Band        Band   `json:"band"`
	FrequencyHz uint64 `json:"frequency_hz"`
}

// Bands lists every band the beacon accepts, lowest first.
var Bands = []BandInfo{
	{"2190m", 137_500},
	{"630m", 475_700},
	{"160m", 1_838_100},
	{"80m", 3_570_100},
	{"60m", 5_288_700},
	{"40m", 7_040_100},
	{"30m", 10_140_200},
	{"20m", 14_097_100},
	{"17m", 18_106_100},
	{"15m", 21_096_100},
	{"12m", 24_926_100},
	{"10m", 28_126_100},
	{"6m", 50_294_500},
	{"4m", 70_092_500},
	{"2m", 144_490_500},
	{"70cm", 432_301_500},
	{"23cm", 1_296_501_500},
}

// LookupBand returns the table entry for b.
func LookupBand(b Band) (BandInfo, bool) {
	for _, info := range Bands {
		if info.Band == b {
			return info, true
		}
	}
	return BandInfo{}, false
}
