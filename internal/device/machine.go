// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package device

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mohae/deepcopy"
)

var (
	ErrNotConnected = errors.New("device: not connected")
	ErrInvalid      = errors.New("device: configuration has invalid fields")
	ErrUnknownField = errors.New("device: unknown field")
	ErrNoSave       = errors.New("device: no save in flight")
	ErrNoConfig     = errors.New("device: configuration not received yet")
)

// Config is the configuration the beacon last confirmed.
type Config struct {
	Band       Band        `json:"band"`
	Channel    int         `json:"channel"`
	Correction json.Number `json:"correction"`
	Callsign   string      `json:"callsign"`
	CallsignOK bool        `json:"callsignOk"`
}

// Edit is live user input. Values are kept as typed so invalid input can be
// shown back to the user.
type Edit struct {
	Band     string `json:"band"`
	Channel  string `json:"channel"`
	Callsign string `json:"callsign"`
}

// State of the configuration machine.
type State string

const (
	StateDisconnected   State = "disconnected"
	StateAwaitingConfig State = "awaiting_config"
	StateSynced         State = "synced"
	StateDirty          State = "dirty"
	StateInvalid        State = "invalid"
)

// Snapshot is a self-contained copy of the machine for display.
type Snapshot struct {
	State     State                `json:"state"`
	Confirmed *Config              `json:"confirmed,omitempty"`
	Pending   Edit                 `json:"pending"`
	Fields    map[Field]FieldState `json:"fields"`
	Dirty     map[Field]bool       `json:"dirty"`
	CanSave   bool                 `json:"can_save"`
}

// Machine holds the confirmed device configuration and the user's pending
// edits. It is not safe for concurrent use.
type Machine struct {
	connected bool
	confirmed *Config
	pending   Edit
	saving    *Config
}

// Connect starts a new connection-scoped session awaiting the device's
// configuration.
func (m *Machine) Connect() {
	*m = Machine{connected: true}
}

// Disconnect drops all configuration state.
func (m *Machine) Disconnect() {
	*m = Machine{}
}

func (m *Machine) Connected() bool { return m.connected }

// Apply records a configuration reported by the device, re-seeds the
// pending edit from it and returns the names of confirmed fields that
// changed.
func (m *Machine) Apply(cfg Config) []string {
	if !m.connected {
		return nil
	}
	changed := diffConfig(m.confirmed, cfg)
	c := cfg
	m.confirmed = &c
	m.pending = editFrom(c)
	return changed
}

// Edit sets one pending field and returns its new validation state.
// Callsigns are upper-cased.
func (m *Machine) Edit(field Field, value string) (FieldState, error) {
	if !m.connected {
		return FieldNeutral, ErrNotConnected
	}
	switch field {
	case FieldBand:
		m.pending.Band = strings.TrimSpace(value)
		return ValidateBand(m.pending.Band), nil
	case FieldChannel:
		m.pending.Channel = strings.TrimSpace(value)
		return ValidateChannel(m.pending.Channel), nil
	case FieldCallsign:
		m.pending.Callsign = NormalizeCallsign(value)
		return ValidateCallsign(m.pending.Callsign), nil
	default:
		return FieldNeutral, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
}

func (m *Machine) fieldStates() map[Field]FieldState {
	return map[Field]FieldState{
		FieldBand:     ValidateBand(m.pending.Band),
		FieldChannel:  ValidateChannel(m.pending.Channel),
		FieldCallsign: ValidateCallsign(m.pending.Callsign),
	}
}

// dirty compares pending input with the confirmed config. Empty input
// means "keep the device value" and is never dirty.
func (m *Machine) dirty() map[Field]bool {
	var c Config
	if m.confirmed != nil {
		c = *m.confirmed
	}
	out := map[Field]bool{
		FieldBand:     m.pending.Band != "" && m.pending.Band != string(c.Band),
		FieldCallsign: m.pending.Callsign != "" && m.pending.Callsign != c.Callsign,
	}
	if m.pending.Channel != "" {
		n, err := strconv.Atoi(m.pending.Channel)
		out[FieldChannel] = err != nil || m.confirmed == nil || n != c.Channel
	} else {
		out[FieldChannel] = false
	}
	return out
}

// canSave needs a confirmed config to fill in fields the user left empty.
func (m *Machine) canSave(states map[Field]FieldState) bool {
	if !m.connected || m.confirmed == nil {
		return false
	}
	for _, st := range states {
		if st == FieldError {
			return false
		}
	}
	return true
}

// State reports the current machine state.
func (m *Machine) State() State {
	if !m.connected {
		return StateDisconnected
	}
	if m.confirmed == nil {
		return StateAwaitingConfig
	}
	for _, st := range m.fieldStates() {
		if st == FieldError {
			return StateInvalid
		}
	}
	for _, d := range m.dirty() {
		if d {
			return StateDirty
		}
	}
	return StateSynced
}

// Snapshot returns a deep copy of the machine state.
func (m *Machine) Snapshot() Snapshot {
	states := m.fieldStates()
	snap := Snapshot{
		State:   m.State(),
		Pending: m.pending,
		Fields:  states,
		Dirty:   m.dirty(),
		CanSave: m.canSave(states),
	}
	if m.confirmed != nil {
		snap.Confirmed = deepcopy.Copy(m.confirmed).(*Config)
	}
	return snap
}

// PrepareSave builds the configuration to send and remembers it until the
// save is committed. Empty pending fields keep the confirmed value; the
// correction is always carried over unedited.
func (m *Machine) PrepareSave() (Config, error) {
	if !m.connected {
		return Config{}, ErrNotConnected
	}
	if m.confirmed == nil {
		return Config{}, ErrNoConfig
	}
	if !m.canSave(m.fieldStates()) {
		return Config{}, ErrInvalid
	}

	out := *m.confirmed
	if m.pending.Band != "" {
		out.Band = Band(m.pending.Band)
	}
	if m.pending.Channel != "" {
		n, err := strconv.Atoi(m.pending.Channel)
		if err != nil {
			return Config{}, ErrInvalid
		}
		out.Channel = n
	}
	if m.pending.Callsign != "" {
		out.Callsign = m.pending.Callsign
	}
	out.CallsignOK = ValidateCallsign(out.Callsign) == FieldValid

	s := out
	m.saving = &s
	return out, nil
}

// CommitSave makes the in-flight save the confirmed configuration and
// clears dirty state.
func (m *Machine) CommitSave() ([]string, error) {
	if m.saving == nil {
		return nil, ErrNoSave
	}
	cfg := *m.saving
	m.saving = nil
	return m.Apply(cfg), nil
}

// AbortSave forgets the in-flight save; pending edits stay as they are.
func (m *Machine) AbortSave() {
	m.saving = nil
}

func editFrom(c Config) Edit {
	return Edit{
		Band:     string(c.Band),
		Channel:  strconv.Itoa(c.Channel),
		Callsign: c.Callsign,
	}
}

func diffConfig(prev *Config, next Config) []string {
	if prev == nil {
		return []string{"band", "channel", "correction", "callsign", "callsignOk"}
	}
	var changed []string
	if prev.Band != next.Band {
		changed = append(changed, "band")
	}
	if prev.Channel != next.Channel {
		changed = append(changed, "channel")
	}
	if prev.Correction != next.Correction {
		changed = append(changed, "correction")
	}
	if prev.Callsign != next.Callsign {
		changed = append(changed, "callsign")
	}
	if prev.CallsignOK != next.CallsignOK {
		changed = append(changed, "callsignOk")
	}
	return changed
}
