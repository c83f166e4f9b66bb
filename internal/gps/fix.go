// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import "time"

// Status is the RMC receiver status.
type Status string

const (
	StatusActive Status = "active"
	StatusVoid   Status = "void"
)

// Indicator is a named status with a valid/invalid class, used for the
// antenna and jamming reports that arrive in TXT sentences.
type Indicator struct {
	Status string `json:"status"`
	Valid  bool   `json:"valid"`
}

// Fix is the accumulated GPS state. It is also used as the partial update
// produced by a single sentence: nil fields are unknown (or, in an update,
// not supplied).
type Fix struct {
	Status           *Status    `json:"status,omitempty"`
	Quality          *int       `json:"quality,omitempty"` // GGA, 0-8
	Mode             *int       `json:"mode,omitempty"`    // GSA, 1-3
	Satellites       *int       `json:"satellites,omitempty"`
	ActiveSatellites *int       `json:"active_satellites,omitempty"`
	Antenna          *Indicator `json:"antenna,omitempty"`
	Jamming          *Indicator `json:"jamming,omitempty"`

	Latitude  *float64 `json:"lat,omitempty"` // decimal degrees
	Longitude *float64 `json:"lon,omitempty"` // decimal degrees
	Altitude  *float64 `json:"alt_m,omitempty"`

	HDOP *float64 `json:"hdop,omitempty"`
	PDOP *float64 `json:"pdop,omitempty"`
	VDOP *float64 `json:"vdop,omitempty"`

	SpeedKnots *float64 `json:"speed_knots,omitempty"`
	SpeedKmh   *float64 `json:"speed_kmh,omitempty"`
	Course     *float64 `json:"course_deg,omitempty"`

	MagVariation    *float64 `json:"mag_var_deg,omitempty"`
	MagVariationDir *string  `json:"mag_var_dir,omitempty"`
	ModeIndicator   *string  `json:"mode_indicator,omitempty"`

	GPSTime    *time.Time `json:"gps_time,omitempty"`
	ZoneOffset *int       `json:"zone_offset_min,omitempty"` // ZDA local zone, minutes

	UpdatedAt time.Time `json:"updated_at"`
}

// Field names reported in change sets.
const (
	FieldStatus           = "status"
	FieldQuality          = "quality"
	FieldMode             = "mode"
	FieldSatellites       = "satellites"
	FieldActiveSatellites = "active_satellites"
	FieldAntenna          = "antenna"
	FieldJamming          = "jamming"
	FieldLatitude         = "lat"
	FieldLongitude        = "lon"
	FieldAltitude         = "alt_m"
	FieldHDOP             = "hdop"
	FieldPDOP             = "pdop"
	FieldVDOP             = "vdop"
	FieldSpeedKnots       = "speed_knots"
	FieldSpeedKmh         = "speed_kmh"
	FieldCourse           = "course_deg"
	FieldMagVariation     = "mag_var_deg"
	FieldMagVariationDir  = "mag_var_dir"
	FieldModeIndicator    = "mode_indicator"
	FieldGPSTime          = "gps_time"
	FieldZoneOffset       = "zone_offset_min"
)

// IsEmpty reports whether no field of f is known.
func (f Fix) IsEmpty() bool {
	return f.Status == nil && f.Quality == nil && f.Mode == nil &&
		f.Satellites == nil && f.ActiveSatellites == nil &&
		f.Antenna == nil && f.Jamming == nil &&
		f.Latitude == nil && f.Longitude == nil && f.Altitude == nil &&
		f.HDOP == nil && f.PDOP == nil && f.VDOP == nil &&
		f.SpeedKnots == nil && f.SpeedKmh == nil && f.Course == nil &&
		f.MagVariation == nil && f.MagVariationDir == nil && f.ModeIndicator == nil &&
		f.GPSTime == nil && f.ZoneOffset == nil
}

func ptr[T any](v T) *T { return &v }
