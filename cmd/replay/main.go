// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/relabs-tech/beacon_bridge/internal/app"
)

func main() {
	verify := flag.Bool("verify-checksum", false, "drop NMEA sentences with a bad checksum")
	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatalf("usage: replay [-verify-checksum] capture.txt")
	}

	log.Println("starting beacon replay (capture file → console)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := app.RunReplay(ctx, app.ReplayOptions{Path: flag.Arg(0), VerifyChecksum: *verify}); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
