// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"time"

	"github.com/mohae/deepcopy"
)

// fixSource records whether the fix label currently comes from GGA quality
// or GSA mode; the most recent of the two wins.
type fixSource int

const (
	sourceNone fixSource = iota
	sourceQuality
	sourceMode
)

// Accumulator merges partial updates into one fix. Fields absent from an
// update are never cleared.
type Accumulator struct {
	fix    Fix
	source fixSource
}

// Merge applies every present field of delta and returns a copy of the
// resulting fix plus the names of fields whose value changed.
func (a *Accumulator) Merge(delta Fix) (Fix, []string) {
	var changed []string

	mergeValue(&a.fix.Status, delta.Status, FieldStatus, &changed)
	mergeValue(&a.fix.Quality, delta.Quality, FieldQuality, &changed)
	mergeValue(&a.fix.Mode, delta.Mode, FieldMode, &changed)
	mergeValue(&a.fix.Satellites, delta.Satellites, FieldSatellites, &changed)
	mergeValue(&a.fix.ActiveSatellites, delta.ActiveSatellites, FieldActiveSatellites, &changed)
	mergeValue(&a.fix.Antenna, delta.Antenna, FieldAntenna, &changed)
	mergeValue(&a.fix.Jamming, delta.Jamming, FieldJamming, &changed)
	mergeValue(&a.fix.Latitude, delta.Latitude, FieldLatitude, &changed)
	mergeValue(&a.fix.Longitude, delta.Longitude, FieldLongitude, &changed)
	mergeValue(&a.fix.Altitude, delta.Altitude, FieldAltitude, &changed)
	mergeValue(&a.fix.HDOP, delta.HDOP, FieldHDOP, &changed)
	mergeValue(&a.fix.PDOP, delta.PDOP, FieldPDOP, &changed)
	mergeValue(&a.fix.VDOP, delta.VDOP, FieldVDOP, &changed)
	mergeValue(&a.fix.SpeedKnots, delta.SpeedKnots, FieldSpeedKnots, &changed)
	mergeValue(&a.fix.SpeedKmh, delta.SpeedKmh, FieldSpeedKmh, &changed)
	mergeValue(&a.fix.Course, delta.Course, FieldCourse, &changed)
	mergeValue(&a.fix.MagVariation, delta.MagVariation, FieldMagVariation, &changed)
	mergeValue(&a.fix.MagVariationDir, delta.MagVariationDir, FieldMagVariationDir, &changed)
	mergeValue(&a.fix.ModeIndicator, delta.ModeIndicator, FieldModeIndicator, &changed)
	mergeValue(&a.fix.ZoneOffset, delta.ZoneOffset, FieldZoneOffset, &changed)

	if delta.GPSTime != nil && (a.fix.GPSTime == nil || !a.fix.GPSTime.Equal(*delta.GPSTime)) {
		t := *delta.GPSTime
		a.fix.GPSTime = &t
		changed = append(changed, FieldGPSTime)
	}

	// GSA and GGA never arrive in the same update; if they did, mode wins.
	if delta.Quality != nil {
		a.source = sourceQuality
	}
	if delta.Mode != nil {
		a.source = sourceMode
	}

	if !delta.UpdatedAt.IsZero() {
		a.fix.UpdatedAt = delta.UpdatedAt
	} else {
		a.fix.UpdatedAt = time.Now().UTC()
	}
	return a.Fix(), changed
}

// Fix returns a deep copy of the accumulated fix.
func (a *Accumulator) Fix() Fix {
	return deepcopy.Copy(a.fix).(Fix)
}

// View returns the display-facing labels for the current fix.
func (a *Accumulator) View() View {
	return buildView(a.fix, a.source)
}

// Reset forgets everything.
func (a *Accumulator) Reset() {
	a.fix = Fix{}
	a.source = sourceNone
}

func mergeValue[T comparable](dst **T, src *T, name string, changed *[]string) {
	if src == nil {
		return
	}
	if *dst != nil && **dst == *src {
		return
	}
	v := *src
	*dst = &v
	*changed = append(*changed, name)
}
