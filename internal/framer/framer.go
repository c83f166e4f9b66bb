// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package framer splits a raw byte stream into newline-terminated lines.
package framer

import "strings"

// Framer buffers incoming chunks and yields complete lines.
//
// There is no upper bound on the buffered partial line: a peer that never
// sends '\n' grows the buffer without limit.
type Framer struct {
	buf strings.Builder
}

// Feed appends chunk to the buffer and returns every complete line, trimmed
// of surrounding whitespace. Lines that are empty after trimming are dropped.
// The trailing segment after the last '\n' stays buffered.
func (f *Framer) Feed(chunk []byte) []string {
	if len(chunk) == 0 {
		return nil
	}
	f.buf.Write(chunk)

	data := f.buf.String()
	last := strings.LastIndexByte(data, '\n')
	if last == -1 {
		return nil
	}

	rest := data[last+1:]
	f.buf.Reset()
	f.buf.WriteString(rest)

	var lines []string
	for _, seg := range strings.Split(data[:last], "\n") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		lines = append(lines, seg)
	}
	return lines
}

// Buffered returns the pending partial line.
func (f *Framer) Buffered() string {
	return f.buf.String()
}

// Reset discards the pending partial line.
func (f *Framer) Reset() {
	f.buf.Reset()
}
