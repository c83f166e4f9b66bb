package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/beacon_bridge/internal/device"
	"github.com/relabs-tech/beacon_bridge/internal/display"
	"github.com/relabs-tech/beacon_bridge/internal/gps"
	"github.com/relabs-tech/beacon_bridge/internal/session"
)

type commandRecorder struct {
	cmds chan session.Command

	mu  sync.Mutex
	err error
}

func newCommandRecorder() *commandRecorder {
	return &commandRecorder{cmds: make(chan session.Command, 8)}
}

func (r *commandRecorder) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *commandRecorder) publish(cmd session.Command) error {
	r.mu.Lock()
	err := r.err
	r.mu.Unlock()
	if err != nil {
		return err
	}
	r.cmds <- cmd
	return nil
}

func newTestServer(t *testing.T, state *webState, rec *commandRecorder) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>beacon</h1>"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	srv := httptest.NewServer(newWebRouter(state, rec.publish, dir))
	t.Cleanup(srv.Close)
	return srv
}

func TestWebAPI(t *testing.T) {
	state := newWebState()
	rec := newCommandRecorder()
	srv := newTestServer(t, state, rec)

	resp, err := http.Get(srv.URL + "/api/fix")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status=%d want %d", resp.StatusCode, http.StatusServiceUnavailable)
	}

	lat, lon := 48.1173, 11.516667
	state.GPSFixChanged(gps.Fix{Latitude: &lat, Longitude: &lon}, gps.View{Position: "48.117300, 11.516667"}, nil)
	state.ConfigChanged(device.Snapshot{State: device.StateAwaitingConfig}, nil)

	resp, err = http.Get(srv.URL + "/api/fix")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var fe display.FixEvent
	if err := json.NewDecoder(resp.Body).Decode(&fe); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if fe.Fix.Latitude == nil || *fe.Fix.Latitude != lat {
		t.Fatalf("fix=%+v", fe)
	}

	resp, err = http.Get(srv.URL + "/api/config")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var ce display.ConfigEvent
	if err := json.NewDecoder(resp.Body).Decode(&ce); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if ce.Config.State != device.StateAwaitingConfig {
		t.Fatalf("config=%+v", ce)
	}

	resp, err = http.Post(srv.URL+"/api/command", "application/json", strings.NewReader(`{"action":"ping"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status=%d want %d", resp.StatusCode, http.StatusAccepted)
	}
	if got := <-rec.cmds; got.Action != session.ActionPing {
		t.Fatalf("published=%+v", got)
	}

	resp, err = http.Post(srv.URL+"/api/command", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status=%d want %d", resp.StatusCode, http.StatusBadRequest)
	}

	resp, err = http.Get(srv.URL + "/api/command")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d want %d", resp.StatusCode, http.StatusMethodNotAllowed)
	}

	for _, path := range []string{"/api/fix", "/api/config", "/api/temp"} {
		resp, err = http.Post(srv.URL+path, "application/json", strings.NewReader(`{}`))
		if err != nil {
			t.Fatalf("post %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Fatalf("POST %s status=%d want %d", path, resp.StatusCode, http.StatusMethodNotAllowed)
		}
	}

	resp, err = http.Get(srv.URL + "/api/bands/20m")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var band device.BandInfo
	if err := json.NewDecoder(resp.Body).Decode(&band); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if band.Band != "20m" || band.FrequencyHz != 14_097_100 {
		t.Fatalf("band=%+v", band)
	}

	resp, err = http.Get(srv.URL + "/api/bands/11m")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d want %d", resp.StatusCode, http.StatusNotFound)
	}

	resp, err = http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("static status=%d", resp.StatusCode)
	}
}

func TestWebState_DetachClearsFix(t *testing.T) {
	state := newWebState()
	sats := 4
	state.GPSFixChanged(gps.Fix{Satellites: &sats}, gps.View{}, nil)
	if state.snapshot().Fix == nil {
		t.Fatalf("fix not cached")
	}
	state.GPSFixChanged(gps.Fix{}, gps.View{}, nil)
	if state.snapshot().Fix != nil {
		t.Fatalf("empty fix should clear cache")
	}
}

func TestWebState_LogRing(t *testing.T) {
	state := newWebState()
	for i := 0; i < recentLogSize+10; i++ {
		state.LogEvent("line", display.LogRx, false)
	}
	if got := len(state.recentLogs()); got != recentLogSize {
		t.Fatalf("logs=%d want %d", got, recentLogSize)
	}
}

func readWS(t *testing.T, conn *websocket.Conn) WSResponse {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSResponse
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestWebSocket(t *testing.T) {
	state := newWebState()
	state.TempChanged(18.5, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	rec := newCommandRecorder()
	srv := newTestServer(t, state, rec)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	snap := readWS(t, conn)
	if snap.Type != "snapshot" || snap.Temp == nil || snap.Temp.Celsius != 18.5 {
		t.Fatalf("snapshot=%+v", snap)
	}

	state.LogEvent("$GPGGA,1", display.LogRx, true)
	msg := readWS(t, conn)
	if msg.Type != "log" || msg.Log == nil || !msg.Log.GPS {
		t.Fatalf("log message=%+v", msg)
	}

	if err := conn.WriteJSON(session.Command{Action: session.ActionEdit, Field: "callsign", Value: "n0call"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case got := <-rec.cmds:
		if got.Action != session.ActionEdit || got.Value != "n0call" {
			t.Fatalf("published=%+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("command not published")
	}

	if err := conn.WriteJSON(map[string]string{"field": "band"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg := readWS(t, conn); msg.Type != "error" {
		t.Fatalf("message=%+v want error", msg)
	}

	rec.fail(errors.New("broker down"))
	if err := conn.WriteJSON(session.Command{Action: session.ActionSave}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg := readWS(t, conn); msg.Type != "error" || msg.Message != "broker down" {
		t.Fatalf("message=%+v", msg)
	}
}
