// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package session

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/relabs-tech/beacon_bridge/internal/display"
	"github.com/relabs-tech/beacon_bridge/internal/transport"
)

const (
	readChunkSize = 1024
	outboxSize    = 16
)

type writeResult struct {
	done func(error)
	err  error
}

// Run attaches stream and drives the session until ctx is cancelled or the
// stream ends. Received chunks, commands and write completions are handled
// one at a time on the calling goroutine. The stream is closed on return.
// io.EOF from the stream is a clean end and returns nil.
func (s *Session) Run(ctx context.Context, stream transport.Stream, cmds <-chan Command) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.Attach(stream)

	chunks := make(chan []byte)
	next := make(chan struct{})
	readErr := make(chan error, 1)
	readerDone := make(chan struct{})
	go readLoop(runCtx, stream, chunks, next, readErr, readerDone)

	outbox := make(chan outbound, outboxSize)
	results := make(chan writeResult)
	writerDone := make(chan struct{})
	go writeLoop(runCtx, stream, outbox, results, writerDone)
	s.outbox = outbox

	if s.opts.RequestConfigOnConnect {
		if err := s.RequestConfig(); err != nil {
			log.Printf("session: request config: %v", err)
		}
	}

	var err error
loop:
	for {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break loop
		case chunk := <-chunks:
			s.Feed(chunk)
			select {
			case next <- struct{}{}:
			case <-runCtx.Done():
			}
		case rerr := <-readErr:
			if !errors.Is(rerr, io.EOF) {
				s.sink.LogEvent("read error: "+rerr.Error(), display.LogError, false)
				err = rerr
			}
			break loop
		case res := <-results:
			if res.err != nil {
				s.sink.LogEvent("write error: "+res.err.Error(), display.LogError, false)
			}
			if res.done != nil {
				res.done(res.err)
			}
		case cmd, ok := <-cmds:
			if !ok {
				cmds = nil
				continue
			}
			if cerr := s.Execute(cmd); cerr != nil {
				s.sink.LogEvent("command "+string(cmd.Action)+": "+cerr.Error(), display.LogError, false)
			}
		}
	}

	cancel()
	if cerr := stream.Close(); cerr != nil {
		log.Printf("session: close stream: %v", cerr)
	}
	<-readerDone
	<-writerDone
	s.Detach()
	return err
}

// readLoop hands one chunk at a time to the session and waits until it has
// been handled before reading again.
func readLoop(ctx context.Context, r io.Reader, chunks chan<- []byte, next <-chan struct{}, errs chan<- error, done chan<- struct{}) {
	defer close(done)
	buf := make([]byte, readChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			select {
			case chunks <- chunk:
			case <-ctx.Done():
				return
			}
			select {
			case <-next:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			errs <- err
			return
		}
	}
}

func writeLoop(ctx context.Context, w io.Writer, outbox <-chan outbound, results chan<- writeResult, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case ob := <-outbox:
			_, err := w.Write(ob.data)
			select {
			case results <- writeResult{done: ob.done, err: err}:
			case <-ctx.Done():
				return
			}
		}
	}
}
