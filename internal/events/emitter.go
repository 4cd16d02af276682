package events

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AaronLay10/SceneBridge/internal/storage/postgres"
)

var buffer = NewRingBuffer(256)

// store persists events. *postgres.Client implements it.
type store interface {
	Append(ts time.Time, level, event, msg string, fields map[string]interface{}, loadID string) error
}

var (
	pgClient      *postgres.Client
	pgStore       store
	pgMu          sync.RWMutex
	pgErrorLogged bool

	outMu sync.Mutex
	out   io.Writer

	total atomic.Int64
)

// SetPostgresClient sets the Postgres client for event persistence.
func SetPostgresClient(client *postgres.Client) {
	pgMu.Lock()
	pgClient = client
	pgStore = nil
	if client != nil {
		pgStore = client
	}
	pgErrorLogged = false
	pgMu.Unlock()
}

// GetPostgresClient returns the current Postgres client (for API queries).
func GetPostgresClient() *postgres.Client {
	pgMu.RLock()
	defer pgMu.RUnlock()
	return pgClient
}

func setStore(s store) {
	pgMu.Lock()
	pgStore = s
	pgErrorLogged = false
	pgMu.Unlock()
}

// SetOutput makes Emit write every event to w as one JSON line. A nil w
// turns the output off.
func SetOutput(w io.Writer) {
	outMu.Lock()
	out = w
	outMu.Unlock()
}

type Event struct {
	Timestamp string                 `json:"ts"`
	Level     string                 `json:"level"`
	Name      string                 `json:"event"`
	Message   string                 `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Emit records an event: it is buffered, broadcast to subscribers, written
// to the output and persisted when a store is set. The JSON encoding of the
// event is returned.
func Emit(level, name, msg string, fields map[string]interface{}) ([]byte, error) {
	if err := Validate(name); err != nil {
		return nil, err
	}

	ts := time.Now().UTC()
	e := Event{
		Timestamp: ts.Format(time.RFC3339Nano),
		Level:     level,
		Name:      name,
		Message:   msg,
		Fields:    fields,
	}

	buffer.Add(e)
	total.Add(1)
	fanout.send(e)

	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	outMu.Lock()
	if out != nil {
		out.Write(append(b, '\n'))
	}
	outMu.Unlock()

	persist(ts, e)
	return b, nil
}

func persist(ts time.Time, e Event) {
	pgMu.RLock()
	s := pgStore
	pgMu.RUnlock()
	if s == nil {
		return
	}

	loadID, _ := e.Fields["load_id"].(string)
	err := s.Append(ts, e.Level, e.Name, e.Message, e.Fields, loadID)
	if err == nil {
		return
	}

	// Only the first failure is recorded, directly in the buffer rather
	// than through Emit.
	pgMu.Lock()
	first := !pgErrorLogged
	pgErrorLogged = true
	pgMu.Unlock()
	if first {
		buffer.Add(Event{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Level:     "error",
			Name:      "system.error",
			Message:   "postgres append failed",
			Fields: map[string]interface{}{
				"error": err.Error(),
			},
		})
	}
}

func Snapshot() []Event {
	return buffer.Snapshot()
}

// TotalCount returns the number of events emitted since startup.
func TotalCount() int64 {
	return total.Load()
}

// Clear resets the event buffer. Used for testing.
func Clear() {
	buffer.Clear()
}
