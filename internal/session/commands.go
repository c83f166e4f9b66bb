// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/relabs-tech/beacon_bridge/internal/device"
)

var ErrUnknownCommand = errors.New("session: unknown command")

// Action names a user operation.
type Action string

const (
	ActionPing      Action = "ping"
	ActionGetConfig Action = "get_config"
	ActionEdit      Action = "edit"
	ActionSave      Action = "save"
	ActionSend      Action = "send"
)

// Command is a user operation as carried on the command topic or websocket.
//
//	{"action":"edit","field":"callsign","value":"n0call"}
//	{"action":"send","payload":{"type":"REQ_PING"}}
type Command struct {
	Action  Action          `json:"action"`
	Field   string          `json:"field,omitempty"`
	Value   string          `json:"value,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// DecodeCommand parses a JSON command.
func DecodeCommand(data []byte) (Command, error) {
	var c Command
	if err := json.Unmarshal(data, &c); err != nil {
		return Command{}, fmt.Errorf("decode command: %w", err)
	}
	if c.Action == "" {
		return Command{}, fmt.Errorf("decode command: missing action")
	}
	return c, nil
}

// Execute runs one command against the session.
func (s *Session) Execute(c Command) error {
	switch c.Action {
	case ActionPing:
		return s.Ping()
	case ActionGetConfig:
		return s.RequestConfig()
	case ActionEdit:
		_, err := s.EditField(device.Field(c.Field), c.Value)
		return err
	case ActionSave:
		return s.SaveConfig()
	case ActionSend:
		return s.SendCustom(c.Payload)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, c.Action)
	}
}
