package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/AaronLay10/SceneBridge/internal/events"
	"github.com/AaronLay10/SceneBridge/internal/version"
)

var service *LoadService

// SetLoadService sets the service behind /load and /status.
func SetLoadService(s *LoadService) {
	service = s
}

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Hostname  string `json:"hostname"`
	Timestamp string `json:"ts"`
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if code != http.StatusOK {
		w.WriteHeader(code)
	}
	_ = json.NewEncoder(w).Encode(v)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	host, _ := os.Hostname()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   "scenebridge",
		Hostname:  host,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// eventsHandler serves the event log. With Postgres configured the
// persisted log is queried; otherwise the in-memory buffer is used.
// Query parameters: limit, load_id.
func eventsHandler(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = n
	}
	loadID := r.URL.Query().Get("load_id")

	if pg := events.GetPostgresClient(); pg != nil {
		rows, err := pg.Query(limit, loadID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, rows)
		return
	}
	writeJSON(w, http.StatusOK, filterEvents(events.Snapshot(), loadID, limit))
}

// filterEvents keeps the events of loadID (all if empty) and then the last
// limit of them (all if zero).
func filterEvents(evs []events.Event, loadID string, limit int) []events.Event {
	out := make([]events.Event, 0, len(evs))
	for _, e := range evs {
		if loadID != "" && e.Fields["load_id"] != loadID {
			continue
		}
		out = append(out, e)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// loadsHandler serves the recorded load history. Query parameter: limit.
func loadsHandler(w http.ResponseWriter, r *http.Request) {
	if service == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "loader not configured"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := service.History(limit)
	switch {
	case errors.Is(err, ErrNoHistory):
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusOK, rows)
	}
}

type StatusResponse struct {
	Status           string `json:"status"`
	SupportedVersion string `json:"supported_version,omitempty"`
	Instance         string `json:"instance"`
	Version          string `json:"version"`
}

func statusHandler(w http.ResponseWriter, r *http.Request) {
	if service == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "loader not configured"})
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:           service.Status().String(),
		SupportedVersion: service.SupportedVersion(),
		Instance:         GetInstanceID(),
		Version:          version.Version,
	})
}

type LoadRequest struct {
	Path   string `json:"path"`
	LoadID string `json:"load_id,omitempty"`
}

type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// loadHandler loads one file. A failed load answers 422 with the full
// result so the reported errors reach the caller.
func loadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed"})
		return
	}

	var req LoadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON"})
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "path required"})
		return
	}
	if service == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "loader not configured"})
		return
	}

	res, err := service.Load(req.Path, req.LoadID)
	switch {
	case errors.Is(err, ErrInvalidLoadID):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	case errors.Is(err, ErrDuplicateLoadID):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: err.Error()})
		return
	}
	log.Printf("api: load %s of %s by %s: ok=%v", res.LoadID, req.Path, RoleFrom(r.Context()), res.OK)
	code := http.StatusOK
	if !res.OK {
		code = http.StatusUnprocessableEntity
	}
	writeJSON(w, code, res)
}

// NewMux returns the API routes. Health, readiness and metrics are public;
// reading state needs any role and loading needs admin.
func NewMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler)
	mux.HandleFunc("/metrics", metricsHandler)
	mux.HandleFunc("/events", RequireAnyRole(eventsHandler))
	mux.HandleFunc("/status", RequireAnyRole(statusHandler))
	mux.HandleFunc("/loads", RequireAnyRole(loadsHandler))
	mux.HandleFunc("/ws", RequireAnyRole(wsEventsHandler))
	mux.HandleFunc("/load", RequireAdmin(loadHandler))
	return mux
}

// NewServer returns an http.Server for port, with TLS when configured.
func NewServer(port int) (*http.Server, error) {
	tlsCfg, err := LoadTLSConfig()
	if err != nil {
		return nil, err
	}
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           NewMux(),
		TLSConfig:         tlsCfg,
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

// ListenAndServe serves srv until it is shut down.
func ListenAndServe(srv *http.Server) error {
	if srv.TLSConfig != nil {
		log.Printf("API listening on %s (TLS)", srv.Addr)
		err := srv.ListenAndServeTLS("", "")
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
	log.Printf("API listening on %s", srv.Addr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
