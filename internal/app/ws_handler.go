// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mohae/deepcopy"

	"github.com/relabs-tech/beacon_bridge/internal/device"
	"github.com/relabs-tech/beacon_bridge/internal/display"
	"github.com/relabs-tech/beacon_bridge/internal/gps"
	"github.com/relabs-tech/beacon_bridge/internal/session"
)

const (
	wsSendBuffer  = 64
	wsWriteWait   = 5 * time.Second
	recentLogSize = 200
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSResponse is every message pushed to the browser.
type WSResponse struct {
	Type    string               `json:"type"` // snapshot, fix, config, temp, log, error
	Fix     *display.FixEvent    `json:"fix,omitempty"`
	Config  *display.ConfigEvent `json:"config,omitempty"`
	Temp    *display.TempEvent   `json:"temp,omitempty"`
	Log     *display.LogEntry    `json:"log,omitempty"`
	Message string               `json:"message,omitempty"`
}

// publishFunc hands a user command to the bridge.
type publishFunc func(session.Command) error

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// webState keeps the latest events for the HTTP API and fans every event
// out to connected websocket clients. It is the display.Sink the MQTT relay
// feeds.
type webState struct {
	mu      sync.RWMutex
	fix     *display.FixEvent
	config  *display.ConfigEvent
	temp    *display.TempEvent
	logs    []display.LogEntry
	clients map[*wsClient]struct{}
	now     func() time.Time
}

func newWebState() *webState {
	return &webState{
		clients: make(map[*wsClient]struct{}),
		now:     time.Now,
	}
}

func (s *webState) GPSFixChanged(fix gps.Fix, view gps.View, changed []string) {
	ev := display.FixEvent{Fix: fix, View: view, Changed: changed}
	s.mu.Lock()
	defer s.mu.Unlock()
	if fix.IsEmpty() {
		s.fix = nil
	} else {
		s.fix = &ev
	}
	s.broadcastLocked(WSResponse{Type: "fix", Fix: &ev})
}

func (s *webState) ConfigChanged(snap device.Snapshot, changed []string) {
	ev := display.ConfigEvent{Config: snap, Changed: changed}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = &ev
	s.broadcastLocked(WSResponse{Type: "config", Config: &ev})
}

func (s *webState) TempChanged(celsius float64, at time.Time) {
	ev := display.TempEvent{Celsius: celsius, Timestamp: at}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.temp = &ev
	s.broadcastLocked(WSResponse{Type: "temp", Temp: &ev})
}

func (s *webState) LogEvent(text string, kind display.LogKind, gpsStyled bool) {
	entry := display.LogEntry{Text: text, Kind: kind, GPS: gpsStyled, Timestamp: s.now().UTC()}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, entry)
	if len(s.logs) > recentLogSize {
		s.logs = s.logs[len(s.logs)-recentLogSize:]
	}
	s.broadcastLocked(WSResponse{Type: "log", Log: &entry})
}

// snapshot returns deep copies of the cached events; nil means none yet.
func (s *webState) snapshot() WSResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *webState) snapshotLocked() WSResponse {
	out := WSResponse{Type: "snapshot"}
	if s.fix != nil {
		out.Fix = deepcopy.Copy(s.fix).(*display.FixEvent)
	}
	if s.config != nil {
		out.Config = deepcopy.Copy(s.config).(*display.ConfigEvent)
	}
	if s.temp != nil {
		t := *s.temp
		out.Temp = &t
	}
	return out
}

func (s *webState) recentLogs() []display.LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]display.LogEntry(nil), s.logs...)
}

// broadcastLocked queues msg for every client. A client whose buffer is
// full misses the message.
func (s *webState) broadcastLocked(msg WSResponse) {
	if len(s.clients) == 0 {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("web: marshal %s: %v", msg.Type, err)
		return
	}
	for c := range s.clients {
		select {
		case c.send <- payload:
		default:
			log.Printf("web: client %s too slow, dropped %s", c.conn.RemoteAddr(), msg.Type)
		}
	}
}

// addClient registers c and queues the current snapshot as its first
// message.
func (s *webState) addClient(c *wsClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if payload, err := json.Marshal(s.snapshotLocked()); err == nil {
		c.send <- payload
	}
	s.clients[c] = struct{}{}
}

func (s *webState) removeClient(c *wsClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

// handleWS streams events to the browser and forwards its commands to the
// bridge. Each incoming message is a session.Command.
func (s *webState) handleWS(publish publishFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("web: websocket upgrade error: %v", err)
			return
		}
		defer conn.Close()

		c := &wsClient{conn: conn, send: make(chan []byte, wsSendBuffer)}
		s.addClient(c)
		defer s.removeClient(c)

		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			c.writeLoop()
		}()

		// Main message loop
		for {
			var cmd session.Command
			if err := conn.ReadJSON(&cmd); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("web: websocket read error: %v", err)
				}
				break
			}
			if cmd.Action == "" {
				s.reply(c, "command without action")
				continue
			}
			if err := publish(cmd); err != nil {
				s.reply(c, err.Error())
			}
		}

		s.removeClient(c)
		<-writerDone
	}
}

// reply sends an error to one client.
func (s *webState) reply(c *wsClient, message string) {
	payload, err := json.Marshal(WSResponse{Type: "error", Message: message})
	if err != nil {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.clients[c]; !ok {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

func (c *wsClient) writeLoop() {
	for payload := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Printf("web: websocket write error: %v", err)
			// Drain until removeClient closes the channel.
			for range c.send {
			}
			return
		}
	}
}
