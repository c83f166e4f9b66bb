package app

import (
	"fmt"
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/beacon_bridge/internal/config"
	"github.com/relabs-tech/beacon_bridge/internal/display"
)

func connectMQTT(broker, clientID, component string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to MQTT broker %s: %w", broker, token.Error())
	}
	log.Printf("%s: connected to MQTT broker at %s", component, broker)
	return client, nil
}

func eventTopics(cfg *config.Config) display.Topics {
	return display.Topics{
		GPS:    cfg.TopicGPS,
		Config: cfg.TopicConfig,
		Temp:   cfg.TopicTemp,
		Log:    cfg.TopicLog,
	}
}

// subscribeEvents feeds every event topic into sink. Paho delivers
// messages in order on one goroutine, which is what Sink expects.
func subscribeEvents(client mqtt.Client, topics display.Topics, sink display.Sink, component string) error {
	relay := display.Relay{Topics: topics, Sink: sink}
	for _, topic := range topics.List() {
		token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			if err := relay.Handle(msg.Topic(), msg.Payload()); err != nil {
				log.Printf("%s: %v", component, err)
			}
		})
		token.Wait()
		if token.Error() != nil {
			return fmt.Errorf("subscribe %s: %w", topic, token.Error())
		}
		log.Printf("%s: subscribed to %s", component, topic)
	}
	return nil
}
