// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/relabs-tech/beacon_bridge/internal/device"
	"github.com/relabs-tech/beacon_bridge/internal/display"
	"github.com/relabs-tech/beacon_bridge/internal/gps"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type logLine struct {
	text string
	kind display.LogKind
	gps  bool
}

type recorder struct {
	mu      sync.Mutex
	fixes   []gps.Fix
	views   []gps.View
	configs []device.Snapshot
	temps   []float64
	logs    []logLine
}

func (r *recorder) GPSFixChanged(fix gps.Fix, view gps.View, changed []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fixes = append(r.fixes, fix)
	r.views = append(r.views, view)
}

func (r *recorder) ConfigChanged(snap device.Snapshot, changed []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs = append(r.configs, snap)
}

func (r *recorder) TempChanged(celsius float64, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.temps = append(r.temps, celsius)
}

func (r *recorder) LogEvent(text string, kind display.LogKind, gpsStyled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, logLine{text: text, kind: kind, gps: gpsStyled})
}

func (r *recorder) lastConfig() device.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.configs) == 0 {
		return device.Snapshot{}
	}
	return r.configs[len(r.configs)-1]
}

func (r *recorder) hasLog(kind display.LogKind, substr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.logs {
		if l.kind == kind && strings.Contains(l.text, substr) {
			return true
		}
	}
	return false
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("port gone") }

const configReport = `{"type":"REP_GET_CONFIG","band":"20m","channel":5,"correction":0,"callsign":"N0CALL","callsignOk":true}`

func newTestSession(opts Options) (*Session, *recorder) {
	rec := &recorder{}
	opts.Now = func() time.Time { return testNow }
	return New(rec, opts), rec
}

func TestFeed_FragmentedSentence(t *testing.T) {
	s, rec := newTestSession(Options{})
	s.Attach(&lockedBuffer{})

	line := "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47\n"
	for i := 0; i < len(line); i += 7 {
		end := i + 7
		if end > len(line) {
			end = len(line)
		}
		s.Feed([]byte(line[i:end]))
	}

	if len(rec.fixes) != 1 {
		t.Fatalf("fix updates=%d want 1", len(rec.fixes))
	}
	f := rec.fixes[0]
	if f.Latitude == nil || *f.Latitude != 48.1173 {
		t.Fatalf("lat=%v", f.Latitude)
	}
	if f.Satellites == nil || *f.Satellites != 8 {
		t.Fatalf("sats=%v", f.Satellites)
	}
	if rec.views[0].Fix != gps.QualityLabel(1) {
		t.Fatalf("view fix=%q", rec.views[0].Fix)
	}
	if !rec.hasLog(display.LogRx, "$GPGGA") {
		t.Fatalf("rx line not logged")
	}
}

func TestHandleLine_NMEAErrors(t *testing.T) {
	s, rec := newTestSession(Options{})
	s.Attach(&lockedBuffer{})

	s.HandleLine("$GPGGA,123519,4807.038,N")
	s.HandleLine("$GPXYZ,1,2,3")
	if len(rec.fixes) != 0 {
		t.Fatalf("unexpected fix update")
	}
	if !rec.hasLog(display.LogInfo, "unknown NMEA message: $GPXYZ") {
		t.Fatalf("unknown sentence not logged: %+v", rec.logs)
	}
	if rec.hasLog(display.LogError, "GGA") {
		t.Fatalf("short sentence should be silent: %+v", rec.logs)
	}
}

func TestHandleLine_ChecksumVerification(t *testing.T) {
	s, rec := newTestSession(Options{VerifyChecksum: true})
	s.Attach(&lockedBuffer{})

	s.HandleLine("$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*00")
	if len(rec.fixes) != 0 {
		t.Fatalf("bad checksum accepted")
	}
	s.HandleLine("$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47")
	if len(rec.fixes) != 1 {
		t.Fatalf("good checksum rejected: %+v", rec.logs)
	}
}

func TestHandleLine_GPSLineAndTemperature(t *testing.T) {
	s, rec := newTestSession(Options{})
	s.Attach(&lockedBuffer{})

	s.HandleLine(`{"type":"GPS_LINE","line":"$GPGSV,3,1,11,03,03,111,00"}`)
	if len(rec.fixes) != 1 || rec.fixes[0].Satellites == nil || *rec.fixes[0].Satellites != 11 {
		t.Fatalf("fixes=%+v", rec.fixes)
	}

	s.HandleLine(`{"type":"TEMP","temp":21.5}`)
	s.HandleLine("Temperature: 23.25 °C")
	if len(rec.temps) != 2 || rec.temps[0] != 21.5 || rec.temps[1] != 23.25 {
		t.Fatalf("temps=%v", rec.temps)
	}

	s.HandleLine(`{"type":"REP_PONG"}`)
	if !rec.hasLog(display.LogInfo, `unhandled message type "REP_PONG"`) {
		t.Fatalf("unhandled type not logged")
	}
}

func TestConfigEditAndSave(t *testing.T) {
	w := &lockedBuffer{}
	s, rec := newTestSession(Options{})
	s.Attach(w)

	if got := rec.lastConfig().State; got != device.StateAwaitingConfig {
		t.Fatalf("state=%s want %s", got, device.StateAwaitingConfig)
	}

	s.HandleLine(configReport)
	snap := rec.lastConfig()
	if snap.State != device.StateSynced || snap.Confirmed == nil || snap.Confirmed.Callsign != "N0CALL" {
		t.Fatalf("after report=%+v", snap)
	}

	if st, err := s.EditField(device.FieldCallsign, "ab"); err != nil || st != device.FieldError {
		t.Fatalf("edit short callsign st=%s err=%v", st, err)
	}
	if rec.lastConfig().State != device.StateInvalid {
		t.Fatalf("state=%s want invalid", rec.lastConfig().State)
	}
	if err := s.SaveConfig(); !errors.Is(err, device.ErrInvalid) {
		t.Fatalf("save invalid err=%v", err)
	}
	if w.String() != "" {
		t.Fatalf("invalid save wrote %q", w.String())
	}

	if _, err := s.EditField(device.FieldCallsign, "dl1abc"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if _, err := s.EditField(device.FieldBand, "40m"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if rec.lastConfig().State != device.StateDirty {
		t.Fatalf("state=%s want dirty", rec.lastConfig().State)
	}
	if err := s.SaveConfig(); err != nil {
		t.Fatalf("save: %v", err)
	}

	var req map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(w.String())), &req); err != nil {
		t.Fatalf("sent %q: %v", w.String(), err)
	}
	if req["type"] != "REQ_SET_CONFIG" || req["band"] != "40m" || req["callsign"] != "DL1ABC" || req["channel"] != float64(5) {
		t.Fatalf("request=%v", req)
	}

	snap = rec.lastConfig()
	if snap.State != device.StateSynced || snap.Confirmed.Band != "40m" || snap.Confirmed.Callsign != "DL1ABC" {
		t.Fatalf("after save=%+v", snap)
	}
}

func TestSaveConfig_WriteFailureKeepsEdit(t *testing.T) {
	s, rec := newTestSession(Options{})
	s.Attach(failingWriter{})
	s.HandleLine(configReport)

	if _, err := s.EditField(device.FieldChannel, "42"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if err := s.SaveConfig(); err == nil {
		t.Fatalf("expected write error")
	}
	snap := s.Config()
	if snap.State != device.StateDirty || snap.Confirmed.Channel != 5 {
		t.Fatalf("after failed save=%+v", snap)
	}
	if !rec.hasLog(display.LogError, "port gone") {
		t.Fatalf("write error not logged")
	}
}

func TestSaveConfig_AwaitingConfig(t *testing.T) {
	w := &lockedBuffer{}
	s, _ := newTestSession(Options{})
	s.Attach(w)

	if _, err := s.EditField(device.FieldCallsign, "dl1abc"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if err := s.SaveConfig(); !errors.Is(err, device.ErrNoConfig) {
		t.Fatalf("err=%v want ErrNoConfig", err)
	}
	if w.String() != "" {
		t.Fatalf("save before config report wrote %q", w.String())
	}
	if snap := s.Config(); snap.State != device.StateAwaitingConfig || snap.Confirmed != nil {
		t.Fatalf("snap=%+v", snap)
	}
}

func TestSaveConfig_OutboxFull(t *testing.T) {
	s, rec := newTestSession(Options{})
	s.Attach(&lockedBuffer{})
	s.HandleLine(configReport)
	s.outbox = make(chan outbound) // nobody receives

	if _, err := s.EditField(device.FieldChannel, "42"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if err := s.SaveConfig(); !errors.Is(err, ErrOutboxFull) {
		t.Fatalf("err=%v want ErrOutboxFull", err)
	}
	if _, err := s.device.CommitSave(); !errors.Is(err, device.ErrNoSave) {
		t.Fatalf("err=%v want no save in flight", err)
	}
	if snap := s.Config(); snap.State != device.StateDirty || snap.Confirmed.Channel != 5 {
		t.Fatalf("snap=%+v", snap)
	}
	if !rec.hasLog(display.LogError, "outbox full") {
		t.Fatalf("outbox full not logged")
	}
}

func TestCommands_RequireConnection(t *testing.T) {
	s, _ := newTestSession(Options{})
	for _, c := range []Command{
		{Action: ActionPing},
		{Action: ActionGetConfig},
		{Action: ActionEdit, Field: "band", Value: "20m"},
		{Action: ActionSave},
	} {
		if err := s.Execute(c); !errors.Is(err, ErrNotConnected) && !errors.Is(err, device.ErrNotConnected) {
			t.Fatalf("%s err=%v want not connected", c.Action, err)
		}
	}
	if err := s.Execute(Command{Action: "reboot"}); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("err=%v want unknown command", err)
	}
}

func TestDecodeCommand(t *testing.T) {
	c, err := DecodeCommand([]byte(`{"action":"send","payload":{"type":"REQ_PING"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.Action != ActionSend || string(c.Payload) != `{"type":"REQ_PING"}` {
		t.Fatalf("command=%+v", c)
	}
	if _, err := DecodeCommand([]byte(`{"field":"band"}`)); err == nil {
		t.Fatalf("expected error without action")
	}
	if _, err := DecodeCommand([]byte(`nope`)); err == nil {
		t.Fatalf("expected error for invalid json")
	}
}

func TestDetachClearsState(t *testing.T) {
	s, rec := newTestSession(Options{})
	s.Attach(&lockedBuffer{})
	s.Feed([]byte("$GPGSV,3,1,11,03,03,111,00\n$GPGG"))
	s.HandleLine(configReport)

	s.Detach()
	if s.Connected() {
		t.Fatalf("still connected")
	}
	if !s.Fix().IsEmpty() {
		t.Fatalf("fix not cleared: %+v", s.Fix())
	}
	if got := rec.lastConfig().State; got != device.StateDisconnected {
		t.Fatalf("state=%s", got)
	}

	s.Attach(&lockedBuffer{})
	s.Feed([]byte("A,1\n"))
	if !rec.hasLog(display.LogRx, "A,1") || rec.hasLog(display.LogRx, "$GPGGA,1") {
		t.Fatalf("partial line survived reconnect: %+v", rec.logs)
	}
}

type pipeStream struct {
	r *io.PipeReader
	w *lockedBuffer
}

func (p *pipeStream) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *pipeStream) Write(b []byte) (int, error) { return p.w.Write(b) }
func (p *pipeStream) Close() error                { return p.r.Close() }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRun(t *testing.T) {
	s, rec := newTestSession(Options{RequestConfigOnConnect: true})
	pr, pw := io.Pipe()
	out := &lockedBuffer{}
	cmds := make(chan Command)

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background(), &pipeStream{r: pr, w: out}, cmds) }()

	waitFor(t, func() bool { return strings.Contains(out.String(), "REQ_GET_CONFIG") })

	if _, err := pw.Write([]byte(configReport + "\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	cmds <- Command{Action: ActionPing}
	waitFor(t, func() bool { return strings.Contains(out.String(), "REQ_PING") })
	waitFor(t, func() bool { return rec.lastConfig().State == device.StateSynced })

	pw.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not return")
	}
	if rec.lastConfig().State != device.StateDisconnected {
		t.Fatalf("state=%s want disconnected", rec.lastConfig().State)
	}
}

func TestRun_ContextCancel(t *testing.T) {
	s, _ := newTestSession(Options{})
	pr, _ := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, &pipeStream{r: pr, w: &lockedBuffer{}}, nil) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err=%v want canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not return")
	}
}
