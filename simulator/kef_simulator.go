package simulator

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"

	log "github.com/sirupsen/logrus"
)

// KEFSimulator simulates a KEF speaker's HTTP API for testing. It implements
// the getData/setData endpoints with the same typed JSON envelopes the real
// speaker uses, backed by in-memory state.
type KEFSimulator struct {
	server     *http.Server
	state      DeviceState
	stateMutex sync.RWMutex
}

// DeviceState holds the simulated speaker state
type DeviceState struct {
	Power     bool   // powered on vs standby
	Volume    int    // 0-100
	Source    string // current physical source
	Mute      bool
	Title     string
	Artist    string
	PlayState string // "playing", "pause" or "stopped"
}

// NewKEFSimulator creates a speaker simulator in standby with sane defaults.
func NewKEFSimulator() *KEFSimulator {
	return &KEFSimulator{
		state: DeviceState{
			Power:     false,
			Volume:    30,
			Source:    "wifi",
			Title:     "Simulated Track",
			Artist:    "Simulated Artist",
			PlayState: "stopped",
		},
	}
}

// Start begins serving the speaker API on the given port.
func (sim *KEFSimulator) Start(port string) error {
	if port == "" {
		port = "8080"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/getData", sim.handleGetData)
	mux.HandleFunc("/api/setData", sim.handleSetData)

	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("failed to start simulator: %v", err)
	}

	sim.server = &http.Server{Handler: mux}

	log.WithField("port", port).Info("🔊 KEF Simulator started")
	log.Info("🔧 Set DESKKNOB_IP=127.0.0.1 to point the CLI at it")

	go sim.server.Serve(listener)
	return nil
}

// Stop shuts down the simulator
func (sim *KEFSimulator) Stop() error {
	if sim.server == nil {
		return nil
	}
	err := sim.server.Close()
	log.Info("KEF Simulator stopped")
	return err
}

// GetState returns a copy of the current state.
func (sim *KEFSimulator) GetState() DeviceState {
	sim.stateMutex.RLock()
	defer sim.stateMutex.RUnlock()
	return sim.state
}

// SetState replaces the simulated state.
func (sim *KEFSimulator) SetState(state DeviceState) {
	sim.stateMutex.Lock()
	defer sim.stateMutex.Unlock()
	sim.state = state
}

func (sim *KEFSimulator) handleGetData(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")

	sim.stateMutex.RLock()
	defer sim.stateMutex.RUnlock()

	var payload interface{}
	switch path {
	case "player:volume":
		payload = map[string]interface{}{"type": "i32_", "i32_": sim.state.Volume}

	case "settings:/mediaPlayer/mute":
		payload = map[string]interface{}{"type": "bool_", "bool_": sim.state.Mute}

	case "settings:/kef/play/physicalSource":
		payload = map[string]interface{}{"type": "kefPhysicalSource", "kefPhysicalSource": sim.state.Source}

	case "settings:/kef/host/speakerStatus":
		status := "standby"
		if sim.state.Power {
			status = "powerOn"
		}
		payload = map[string]interface{}{"type": "kefSpeakerStatus", "kefSpeakerStatus": status}

	case "player:player/data":
		payload = map[string]interface{}{
			"state": sim.state.PlayState,
			"trackRoles": map[string]interface{}{
				"title": sim.state.Title,
				"mediaData": map[string]interface{}{
					"metaData": map[string]interface{}{"artist": sim.state.Artist},
				},
			},
		}

	default:
		http.Error(w, "unknown path", http.StatusNotFound)
		return
	}

	writeArray(w, payload)
}

func (sim *KEFSimulator) handleSetData(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	roles := r.URL.Query().Get("roles")
	value := r.URL.Query().Get("value")

	sim.stateMutex.Lock()
	defer sim.stateMutex.Unlock()

	switch path {
	case "player:volume":
		var v struct {
			Value int `json:"i32_"`
		}
		if err := json.Unmarshal([]byte(value), &v); err != nil {
			http.Error(w, "bad value", http.StatusBadRequest)
			return
		}
		sim.state.Volume = v.Value

	case "settings:/mediaPlayer/mute":
		var v struct {
			Value bool `json:"bool_"`
		}
		if err := json.Unmarshal([]byte(value), &v); err != nil {
			http.Error(w, "bad value", http.StatusBadRequest)
			return
		}
		sim.state.Mute = v.Value

	case "settings:/kef/play/physicalSource":
		var v struct {
			Source string `json:"kefPhysicalSource"`
		}
		if err := json.Unmarshal([]byte(value), &v); err != nil {
			http.Error(w, "bad value", http.StatusBadRequest)
			return
		}
		switch v.Source {
		case "powerOn":
			sim.state.Power = true
		case "standby":
			sim.state.Power = false
			sim.state.PlayState = "stopped"
		default:
			sim.state.Source = v.Source
			sim.state.Power = true
		}

	case "player:player/control":
		// Real hardware rejects control commands while stopped.
		if roles == "activate" && sim.state.PlayState == "stopped" {
			http.Error(w, "player stopped", http.StatusInternalServerError)
			return
		}
		var v struct {
			Control string `json:"control"`
		}
		if err := json.Unmarshal([]byte(value), &v); err != nil {
			http.Error(w, "bad value", http.StatusBadRequest)
			return
		}
		if v.Control == "pause" {
			if sim.state.PlayState == "playing" {
				sim.state.PlayState = "pause"
			} else {
				sim.state.PlayState = "playing"
			}
		}

	default:
		http.Error(w, "unknown path", http.StatusNotFound)
		return
	}

	writeArray(w, map[string]interface{}{})
}

func writeArray(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode([]interface{}{payload})
}
