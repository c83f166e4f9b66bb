// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/relabs-tech/beacon_bridge/internal/device"
	"github.com/relabs-tech/beacon_bridge/internal/gps"
)

// Console prints updates as fixed-width text lines.
type Console struct {
	W io.Writer
	// Quiet suppresses rx log lines, which are one per framed line.
	Quiet bool
}

// NewConsole writes to stdout.
func NewConsole() *Console {
	return &Console{W: os.Stdout}
}

func (c *Console) GPSFixChanged(fix gps.Fix, view gps.View, changed []string) {
	fmt.Fprintln(c.W, FormatFix(fix, view))
}

func (c *Console) ConfigChanged(snap device.Snapshot, changed []string) {
	fmt.Fprintln(c.W, FormatConfig(snap))
}

func (c *Console) TempChanged(celsius float64, at time.Time) {
	fmt.Fprintf(c.W, "[TEMP]  %.1f°C at %s\n", celsius, at.Format(time.RFC3339))
}

func (c *Console) LogEvent(text string, kind LogKind, gpsStyled bool) {
	if c.Quiet && kind == LogRx {
		return
	}
	tag := strings.ToUpper(string(kind))
	if gpsStyled {
		tag += "*"
	}
	fmt.Fprintf(c.W, "[%-4s]  %s\n", tag, text)
}

// FormatFix renders a fix on one line.
func FormatFix(f gps.Fix, v gps.View) string {
	var b strings.Builder
	b.WriteString("[GPS ]  fix=")
	b.WriteString(orDash(v.Fix))
	b.WriteString(" sats=")
	b.WriteString(orDash(v.Satellites))
	if f.Latitude != nil && f.Longitude != nil {
		fmt.Fprintf(&b, " lat=%.6f lon=%.6f", *f.Latitude, *f.Longitude)
	}
	if f.Altitude != nil {
		fmt.Fprintf(&b, " alt=%.1fm", *f.Altitude)
	}
	if f.SpeedKnots != nil {
		fmt.Fprintf(&b, " speed=%.1fkn", *f.SpeedKnots)
	}
	if f.Course != nil {
		fmt.Fprintf(&b, " course=%.1f°", *f.Course)
	}
	if f.HDOP != nil {
		fmt.Fprintf(&b, " hdop=%.1f", *f.HDOP)
	}
	if f.GPSTime != nil {
		b.WriteString(" utc=")
		b.WriteString(f.GPSTime.UTC().Format(time.RFC3339))
	}
	if v.Antenna != "" {
		b.WriteString(" ant=")
		b.WriteString(v.Antenna)
	}
	if v.Jamming != "" {
		b.WriteString(" jam=")
		b.WriteString(v.Jamming)
	}
	return b.String()
}

// FormatConfig renders a configuration snapshot on one line.
func FormatConfig(s device.Snapshot) string {
	if s.Confirmed == nil {
		return fmt.Sprintf("[CFG ]  state=%s", s.State)
	}
	c := s.Confirmed
	return fmt.Sprintf("[CFG ]  state=%s band=%s ch=%d call=%s corr=%s save=%v",
		s.State, c.Band, c.Channel, c.Callsign, c.Correction, s.CanSave)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
