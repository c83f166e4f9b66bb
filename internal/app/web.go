package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/relabs-tech/beacon_bridge/internal/config"
	"github.com/relabs-tech/beacon_bridge/internal/device"
	"github.com/relabs-tech/beacon_bridge/internal/session"
)

// RunWeb serves the browser UI: the latest events over a JSON API and a
// websocket, with commands relayed to the bridge over MQTT.
func RunWeb() error {
	cfg := config.Get()

	// 1) Connect to MQTT broker
	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb, "web")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	// 2) Subscribe to event topics and keep the latest of each
	state := newWebState()
	if err := subscribeEvents(client, eventTopics(cfg), state, "web"); err != nil {
		return err
	}

	publish := func(cmd session.Command) error {
		payload, err := json.Marshal(cmd)
		if err != nil {
			return err
		}
		token := client.Publish(cfg.TopicCommand, 1, false, payload)
		token.Wait()
		return token.Error()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:           newWebRouter(state, publish, "web"),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("web: server listening on %s", srv.Addr)
	return srv.ListenAndServe()
}

func newWebRouter(state *webState, publish publishFunc, staticDir string) *mux.Router {
	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()

	// JSON API endpoints: latest event of each kind
	api.HandleFunc("/fix", func(w http.ResponseWriter, r *http.Request) {
		snap := state.snapshot()
		if snap.Fix == nil {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, snap.Fix)
	}).Methods(http.MethodGet)
	api.HandleFunc("/config", func(w http.ResponseWriter, r *http.Request) {
		snap := state.snapshot()
		if snap.Config == nil {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, snap.Config)
	}).Methods(http.MethodGet)
	api.HandleFunc("/temp", func(w http.ResponseWriter, r *http.Request) {
		snap := state.snapshot()
		if snap.Temp == nil {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, snap.Temp)
	}).Methods(http.MethodGet)
	api.HandleFunc("/log", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, state.recentLogs())
	}).Methods(http.MethodGet)

	// Band plan, for the band selector
	api.HandleFunc("/bands", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, device.Bands)
	}).Methods(http.MethodGet)
	api.HandleFunc("/bands/{band}", func(w http.ResponseWriter, r *http.Request) {
		info, ok := device.LookupBand(device.Band(mux.Vars(r)["band"]))
		if !ok {
			http.Error(w, "unknown band", http.StatusNotFound)
			return
		}
		writeJSON(w, info)
	}).Methods(http.MethodGet)

	// Commands without a websocket, e.g. from curl
	api.HandleFunc("/command", func(w http.ResponseWriter, r *http.Request) {
		var cmd session.Command
		if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil || cmd.Action == "" {
			http.Error(w, "invalid command", http.StatusBadRequest)
			return
		}
		if err := publish(cmd); err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}).Methods(http.MethodPost)

	router.HandleFunc("/ws", state.handleWS(publish))

	// Static files for anything unrouted. A catch-all route would turn
	// method mismatches on /api into 404s.
	router.NotFoundHandler = http.FileServer(http.Dir(staticDir))
	return router
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}
