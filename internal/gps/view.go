// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"fmt"
	"strconv"
)

var qualityLabels = [...]string{
	"No Fix",
	"GPS",
	"DGPS",
	"PPS",
	"RTK",
	"Float RTK",
	"Dead Reckoning",
	"Manual",
	"Simulation",
}

var modeLabels = [...]string{
	"Unknown",
	"No Fix",
	"2D Fix",
	"3D Fix",
}

// QualityLabel names a GGA fix quality (0-8).
func QualityLabel(q int) string {
	if q >= 0 && q < len(qualityLabels) {
		return qualityLabels[q]
	}
	return "Unknown (" + strconv.Itoa(q) + ")"
}

// ModeLabel names a GSA fix mode (1-3).
func ModeLabel(m int) string {
	if m >= 0 && m < len(modeLabels) {
		return modeLabels[m]
	}
	return modeLabels[0]
}

// View is the text a display shows for a fix.
type View struct {
	Fix        string `json:"fix"`
	Satellites string `json:"satellites"`
	Position   string `json:"position"`
	Antenna    string `json:"antenna"`
	AntennaOK  bool   `json:"antenna_ok"`
	Jamming    string `json:"jamming"`
	JammingOK  bool   `json:"jamming_ok"`
}

func buildView(f Fix, src fixSource) View {
	var v View

	switch {
	case src == sourceMode && f.Mode != nil:
		v.Fix = ModeLabel(*f.Mode)
	case src == sourceQuality && f.Quality != nil:
		v.Fix = QualityLabel(*f.Quality)
	case f.Status != nil:
		v.Fix = string(*f.Status)
	}

	switch {
	case f.ActiveSatellites != nil && f.Satellites != nil:
		v.Satellites = fmt.Sprintf("%d/%d", *f.ActiveSatellites, *f.Satellites)
	case f.ActiveSatellites != nil:
		v.Satellites = strconv.Itoa(*f.ActiveSatellites)
	case f.Satellites != nil:
		v.Satellites = strconv.Itoa(*f.Satellites)
	}

	if f.Latitude != nil && f.Longitude != nil {
		v.Position = fmt.Sprintf("%.6f, %.6f", *f.Latitude, *f.Longitude)
	}

	if f.Antenna != nil {
		v.Antenna = f.Antenna.Status
		v.AntennaOK = f.Antenna.Valid
	}
	if f.Jamming != nil {
		v.Jamming = f.Jamming.Status
		v.JammingOK = f.Jamming.Valid
	}
	return v
}
