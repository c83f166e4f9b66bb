// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package gps parses the NMEA sentences a beacon forwards and accumulates
// them into a single fix.
//
// Supported kinds: GGA, RMC, GSV, GSA, VTG, TXT and ZDA. Parsing is pure and
// returns a partial Fix; Accumulator merges partial fixes field by field.
// Checksums are not verified unless the caller uses VerifyChecksum.
package gps
