// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"errors"
	"fmt"
	"strings"

	nmea "github.com/adrianmo/go-nmea"
)

// ErrChecksum is returned by VerifyChecksum on a mismatch.
var ErrChecksum = errors.New("nmea: checksum mismatch")

// VerifyChecksum checks the "*hh" suffix of a sentence. Sentences without a
// suffix pass; the parser itself never calls this.
func VerifyChecksum(line string) error {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return ErrMalformed
	}
	star := strings.LastIndexByte(line, '*')
	if star == -1 {
		return nil
	}
	got := strings.ToUpper(strings.TrimSpace(line[star+1:]))
	want := nmea.Checksum(line[1:star])
	if got != want {
		return fmt.Errorf("%w: got %q want %q", ErrChecksum, got, want)
	}
	return nil
}
