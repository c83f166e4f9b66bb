package app

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/beacon_bridge/internal/config"
	"github.com/relabs-tech/beacon_bridge/internal/display"
	"github.com/relabs-tech/beacon_bridge/internal/session"
	"github.com/relabs-tech/beacon_bridge/internal/transport"
)

const commandQueueSize = 16

// RunBridge opens the beacon serial port, runs a session on it and publishes
// fix, config, temperature and log events to MQTT. User commands arrive on
// the command topic.
func RunBridge() error {
	cfg := config.Get()

	// ---- 1) Connect to MQTT broker ----
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDBridge, "bridge")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- 2) Commands from MQTT into the session loop ----
	cmds := make(chan session.Command, commandQueueSize)
	token := client.Subscribe(cfg.TopicCommand, 0, func(_ mqtt.Client, msg mqtt.Message) {
		cmd, err := session.DecodeCommand(msg.Payload())
		if err != nil {
			log.Printf("bridge: %v", err)
			return
		}
		select {
		case cmds <- cmd:
		case <-ctx.Done():
		}
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("bridge: subscribed to %s", cfg.TopicCommand)

	// ---- 3) Open beacon serial port ----
	stream, err := transport.OpenSerial(transport.SerialOptions{
		PortName: cfg.BeaconSerialPort,
		BaudRate: cfg.BeaconBaudRate,
	})
	if err != nil {
		return err
	}

	// ---- 4) Run the session until the port closes or we are stopped ----
	sink := display.Multi{
		display.NewMQTTSink(client, eventTopics(cfg)),
		&display.Console{W: os.Stdout, Quiet: true},
	}
	s := session.New(sink, session.Options{
		VerifyChecksum:         cfg.NMEAVerifyChecksum,
		RequestConfigOnConnect: cfg.RequestConfigOnConnect,
	})

	err = s.Run(ctx, stream, cmds)
	if errors.Is(err, context.Canceled) {
		log.Println("bridge: shutting down")
		return nil
	}
	if err == nil {
		log.Println("bridge: serial stream closed")
	}
	return err
}
