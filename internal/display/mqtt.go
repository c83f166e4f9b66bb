// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/beacon_bridge/internal/device"
	"github.com/relabs-tech/beacon_bridge/internal/gps"
)

// Publisher is the part of mqtt.Client the sink needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Topics names the MQTT topic for each event kind.
type Topics struct {
	GPS    string
	Config string
	Temp   string
	Log    string
}

// MQTTSink publishes every update as JSON. State topics are retained so a
// late subscriber sees the latest fix, config and temperature; log entries
// are not.
type MQTTSink struct {
	client Publisher
	topics Topics
	now    func() time.Time
}

func NewMQTTSink(client Publisher, topics Topics) *MQTTSink {
	return &MQTTSink{client: client, topics: topics, now: time.Now}
}

func (s *MQTTSink) GPSFixChanged(fix gps.Fix, view gps.View, changed []string) {
	s.publish(s.topics.GPS, true, FixEvent{Fix: fix, View: view, Changed: changed})
}

func (s *MQTTSink) ConfigChanged(snap device.Snapshot, changed []string) {
	s.publish(s.topics.Config, true, ConfigEvent{Config: snap, Changed: changed})
}

func (s *MQTTSink) TempChanged(celsius float64, at time.Time) {
	s.publish(s.topics.Temp, true, TempEvent{Celsius: celsius, Timestamp: at})
}

func (s *MQTTSink) LogEvent(text string, kind LogKind, gpsStyled bool) {
	s.publish(s.topics.Log, false, LogEntry{Text: text, Kind: kind, GPS: gpsStyled, Timestamp: s.now().UTC()})
}

func (s *MQTTSink) publish(topic string, retained bool, v any) {
	if topic == "" {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("mqtt sink: marshal for %s: %v", topic, err)
		return
	}
	// Publishing is asynchronous; errors are reported from the token
	// without holding up the session loop.
	token := s.client.Publish(topic, 0, retained, payload)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			log.Printf("mqtt sink: publish %s: %v", topic, err)
		}
	}()
}

// Relay feeds events published by an MQTTSink back into a Sink, so a
// subscriber process can drive the same console, OLED or web views as the
// bridge itself.
type Relay struct {
	Topics Topics
	Sink   Sink
}

// Handle decodes one message received on topic.
func (r Relay) Handle(topic string, payload []byte) error {
	switch topic {
	case r.Topics.GPS:
		var e FixEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return fmt.Errorf("decode fix event: %w", err)
		}
		r.Sink.GPSFixChanged(e.Fix, e.View, e.Changed)
	case r.Topics.Config:
		var e ConfigEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return fmt.Errorf("decode config event: %w", err)
		}
		r.Sink.ConfigChanged(e.Config, e.Changed)
	case r.Topics.Temp:
		var e TempEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return fmt.Errorf("decode temp event: %w", err)
		}
		r.Sink.TempChanged(e.Celsius, e.Timestamp)
	case r.Topics.Log:
		var e LogEntry
		if err := json.Unmarshal(payload, &e); err != nil {
			return fmt.Errorf("decode log entry: %w", err)
		}
		r.Sink.LogEvent(e.Text, e.Kind, e.GPS)
	default:
		return fmt.Errorf("unexpected topic %q", topic)
	}
	return nil
}

// List returns the configured topics, skipping empty ones.
func (t Topics) List() []string {
	var out []string
	for _, topic := range []string{t.GPS, t.Config, t.Temp, t.Log} {
		if topic != "" {
			out = append(out, topic)
		}
	}
	return out
}
