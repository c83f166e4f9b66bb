package app

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/relabs-tech/beacon_bridge/internal/config"
	"github.com/relabs-tech/beacon_bridge/internal/session"
)

// ParseCommandArgs turns command-line words into a session command:
//
//	ping
//	get-config
//	edit band|channel|callsign VALUE
//	save
//	send '{"type":"REQ_PING"}'
func ParseCommandArgs(args []string) (session.Command, error) {
	if len(args) == 0 {
		return session.Command{}, fmt.Errorf("missing command")
	}
	want := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("%s: expected %d argument(s), got %d", args[0], n-1, len(args)-1)
		}
		return nil
	}

	switch args[0] {
	case "ping":
		if err := want(1); err != nil {
			return session.Command{}, err
		}
		return session.Command{Action: session.ActionPing}, nil
	case "get-config", "get_config":
		if err := want(1); err != nil {
			return session.Command{}, err
		}
		return session.Command{Action: session.ActionGetConfig}, nil
	case "edit":
		if err := want(3); err != nil {
			return session.Command{}, err
		}
		return session.Command{Action: session.ActionEdit, Field: args[1], Value: args[2]}, nil
	case "save":
		if err := want(1); err != nil {
			return session.Command{}, err
		}
		return session.Command{Action: session.ActionSave}, nil
	case "send":
		if err := want(2); err != nil {
			return session.Command{}, err
		}
		if !json.Valid([]byte(args[1])) {
			return session.Command{}, fmt.Errorf("send: payload is not valid JSON")
		}
		return session.Command{Action: session.ActionSend, Payload: json.RawMessage(args[1])}, nil
	default:
		return session.Command{}, fmt.Errorf("unknown command %q", args[0])
	}
}

// RunCommand publishes one command for the bridge to execute.
func RunCommand(cmd session.Command) error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole+"-ctl", "beaconctl")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}

	token := client.Publish(cfg.TopicCommand, 1, false, payload)
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}

	log.Printf("beaconctl: published %s to %s", payload, cfg.TopicCommand)
	return nil
}
