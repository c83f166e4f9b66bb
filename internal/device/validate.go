// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package device

import (
	"regexp"
	"strconv"
	"strings"
)

// FieldState is the validation state of one editable field.
type FieldState string

const (
	FieldNeutral FieldState = "neutral"
	FieldValid   FieldState = "valid"
	FieldError   FieldState = "error"
)

// Field names an editable configuration field.
type Field string

const (
	FieldBand     Field = "band"
	FieldChannel  Field = "channel"
	FieldCallsign Field = "callsign"
)

// Fields lists the editable fields in display order.
var Fields = []Field{FieldBand, FieldChannel, FieldCallsign}

const (
	MinChannel = 0
	MaxChannel = 599
)

var callsignRe = regexp.MustCompile(`^[A-Z0-9]{3,10}$`)

// ValidateBand only checks that something is selected.
func ValidateBand(v string) FieldState {
	if strings.TrimSpace(v) == "" {
		return FieldNeutral
	}
	return FieldValid
}

// ValidateChannel accepts integers in [MinChannel, MaxChannel].
func ValidateChannel(v string) FieldState {
	v = strings.TrimSpace(v)
	if v == "" {
		return FieldNeutral
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < MinChannel || n > MaxChannel {
		return FieldError
	}
	return FieldValid
}

// ValidateCallsign expects an already upper-cased callsign.
func ValidateCallsign(v string) FieldState {
	if v == "" {
		return FieldNeutral
	}
	if !callsignRe.MatchString(v) {
		return FieldError
	}
	return FieldValid
}

// NormalizeCallsign upper-cases user input.
func NormalizeCallsign(v string) string {
	return strings.ToUpper(strings.TrimSpace(v))
}
