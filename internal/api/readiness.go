package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
)

type readinessState struct {
	mu                sync.RWMutex
	libraryReady      bool
	mqttConnected     bool
	mqttOptional      bool
	postgresConnected bool
	postgresOptional  bool
}

// Disabled transports start out optional so a bare server is ready once
// the library is.
var readiness = &readinessState{mqttOptional: true, postgresOptional: true}

// SetLibraryReady records whether the loader library is Initialized.
func SetLibraryReady(ready bool) {
	readiness.mu.Lock()
	readiness.libraryReady = ready
	readiness.mu.Unlock()
}

// SetMQTTState records the broker connection. An optional dependency does
// not affect readiness.
func SetMQTTState(connected, optional bool) {
	readiness.mu.Lock()
	readiness.mqttConnected = connected
	readiness.mqttOptional = optional
	readiness.mu.Unlock()
}

// SetPostgresState records the database connection.
func SetPostgresState(connected, optional bool) {
	readiness.mu.Lock()
	readiness.postgresConnected = connected
	readiness.postgresOptional = optional
	readiness.mu.Unlock()
}

// Check is the state of one dependency.
type Check struct {
	Status   string `json:"status"`
	Optional bool   `json:"optional,omitempty"`
}

type ReadinessResponse struct {
	Ready       bool             `json:"ready"`
	Checks      map[string]Check `json:"checks"`
	NotReadyMsg string           `json:"message,omitempty"`
}

func dependencyCheck(ok, optional bool) Check {
	switch {
	case ok:
		return Check{Status: "ok", Optional: optional}
	case optional:
		return Check{Status: "unavailable", Optional: true}
	default:
		return Check{Status: "not_ready"}
	}
}

func readyHandler(w http.ResponseWriter, r *http.Request) {
	readiness.mu.RLock()
	checks := map[string]Check{
		"library":  dependencyCheck(readiness.libraryReady, false),
		"mqtt":     dependencyCheck(readiness.mqttConnected, readiness.mqttOptional),
		"postgres": dependencyCheck(readiness.postgresConnected, readiness.postgresOptional),
	}
	readiness.mu.RUnlock()

	resp := ReadinessResponse{Ready: true, Checks: checks}
	var reasons []string
	for _, name := range []string{"library", "mqtt", "postgres"} {
		if checks[name].Status == "not_ready" {
			resp.Ready = false
			reasons = append(reasons, name+" not ready")
		}
	}
	resp.NotReadyMsg = strings.Join(reasons, "; ")

	w.Header().Set("Content-Type", "application/json")
	if !resp.Ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}
