package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
)

// CheckStatus is the state of one readiness dependency.
type CheckStatus struct {
	Status   string `json:"status"`
	Optional bool   `json:"optional,omitempty"`
}

// ReadinessResponse is the body of /ready.
type ReadinessResponse struct {
	Ready       bool                   `json:"ready"`
	Checks      map[string]CheckStatus `json:"checks"`
	NotReadyMsg string                 `json:"message,omitempty"`
}

type readinessState struct {
	mu                sync.RWMutex
	storyReady        bool
	mqttConnected     bool
	mqttOptional      bool
	postgresConnected bool
	postgresOptional  bool
}

var readiness = &readinessState{mqttOptional: true, postgresOptional: true}

// SetStoryReady marks whether the engine has started a playthrough.
func SetStoryReady(ready bool) {
	readiness.mu.Lock()
	readiness.storyReady = ready
	readiness.mu.Unlock()
}

// SetMQTTState records the broker connection. An optional dependency that is
// down does not make the player unready.
func SetMQTTState(connected, optional bool) {
	readiness.mu.Lock()
	readiness.mqttConnected = connected
	readiness.mqttOptional = optional
	readiness.mu.Unlock()
}

// SetPostgresState records the journal database connection.
func SetPostgresState(connected, optional bool) {
	readiness.mu.Lock()
	readiness.postgresConnected = connected
	readiness.postgresOptional = optional
	readiness.mu.Unlock()
}

func dependencyCheck(connected, optional bool) CheckStatus {
	switch {
	case connected:
		return CheckStatus{Status: "ok", Optional: optional}
	case optional:
		return CheckStatus{Status: "unavailable", Optional: true}
	default:
		return CheckStatus{Status: "not_ready"}
	}
}

func readyHandler(w http.ResponseWriter, r *http.Request) {
	readiness.mu.RLock()
	storyReady := readiness.storyReady
	mqtt := dependencyCheck(readiness.mqttConnected, readiness.mqttOptional)
	pg := dependencyCheck(readiness.postgresConnected, readiness.postgresOptional)
	readiness.mu.RUnlock()

	resp := ReadinessResponse{Ready: true, Checks: map[string]CheckStatus{}}
	var reasons []string

	if storyReady {
		resp.Checks["story"] = CheckStatus{Status: "ok"}
	} else {
		resp.Checks["story"] = CheckStatus{Status: "not_ready"}
		reasons = append(reasons, "story not started")
	}

	resp.Checks["mqtt"] = mqtt
	if mqtt.Status == "not_ready" {
		reasons = append(reasons, "mqtt not connected")
	}

	resp.Checks["postgres"] = pg
	if pg.Status == "not_ready" {
		reasons = append(reasons, "postgres not connected")
	}

	w.Header().Set("Content-Type", "application/json")
	if len(reasons) > 0 {
		resp.Ready = false
		resp.NotReadyMsg = strings.Join(reasons, "; ")
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}
