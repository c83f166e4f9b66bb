package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/beacon_bridge/internal/app"
	"github.com/relabs-tech/beacon_bridge/internal/config"
)

func main() {
	configPath := flag.String("config", "./beacon_config.txt", "path to configuration file")
	flag.Parse()

	cmd, err := app.ParseCommandArgs(flag.Args())
	if err != nil {
		log.Fatalf("usage: beaconctl ping | get-config | edit FIELD VALUE | save | send JSON: %v", err)
	}

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunCommand(cmd); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
