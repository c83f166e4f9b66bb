package app

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/beacon_bridge/internal/config"
	"github.com/relabs-tech/beacon_bridge/internal/display"
)

// RunConsoleMQTT prints every event the bridge publishes.
func RunConsoleMQTT() error {
	cfg := config.Get()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole, "console")
	if err != nil {
		return err
	}

	if err := subscribeEvents(client, eventTopics(cfg), display.NewConsole(), "console"); err != nil {
		return err
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
