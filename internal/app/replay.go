// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"io"
	"log"
	"os"

	"github.com/relabs-tech/beacon_bridge/internal/display"
	"github.com/relabs-tech/beacon_bridge/internal/session"
	"github.com/relabs-tech/beacon_bridge/internal/transport"
)

// ReplayOptions configures RunReplay.
type ReplayOptions struct {
	Path           string
	VerifyChecksum bool
	Out            io.Writer
}

// RunReplay pushes a captured beacon stream through a session and prints
// every update. Nothing is written back.
func RunReplay(ctx context.Context, opts ReplayOptions) error {
	stream, err := transport.OpenReplay(opts.Path)
	if err != nil {
		return err
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	s := session.New(&display.Console{W: out}, session.Options{
		VerifyChecksum: opts.VerifyChecksum,
	})

	if err := s.Run(ctx, stream, nil); err != nil {
		return err
	}
	log.Printf("replay: finished %s", opts.Path)
	return nil
}
