package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

const (
	opTimeout    = 5 * time.Second
	defaultLimit = 200
	maxLimit     = 10000
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS events (
		event_id    BIGSERIAL PRIMARY KEY,
		ts          TIMESTAMPTZ NOT NULL,
		level       TEXT NOT NULL,
		event       TEXT NOT NULL,
		msg         TEXT,
		fields      JSONB,
		instance_id TEXT NOT NULL,
		load_id     TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_events_load_id ON events(load_id)`,
	`CREATE TABLE IF NOT EXISTS loads (
		load_id     TEXT PRIMARY KEY,
		instance_id TEXT NOT NULL,
		path        TEXT NOT NULL,
		ok          BOOLEAN NOT NULL,
		elements    INTEGER NOT NULL,
		errors      INTEGER NOT NULL,
		started_at  TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_loads_finished ON loads(finished_at DESC)`,
}

// EventRow is a persisted event.
type EventRow struct {
	EventID    int64                  `json:"event_id"`
	Timestamp  time.Time              `json:"ts"`
	Level      string                 `json:"level"`
	Event      string                 `json:"event"`
	Message    *string                `json:"msg,omitempty"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
	InstanceID string                 `json:"instance_id"`
	LoadID     *string                `json:"load_id,omitempty"`
}

// LoadRow summarizes one finished load.
type LoadRow struct {
	LoadID     string    `json:"load_id"`
	Path       string    `json:"path"`
	OK         bool      `json:"ok"`
	Elements   int       `json:"elements"`
	Errors     int       `json:"errors"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Client stores the event log and load history of one SceneBridge
// instance.
type Client struct {
	db         *sql.DB
	instanceID string
}

// ConnString builds a lib/pq connection string from PGHOST, PGPORT,
// PGUSER, PGDATABASE and PGSSLMODE. The password comes from the caller so
// it can be read from a secret file.
func ConnString(password string) string {
	parts := []string{
		"host=" + envOr("PGHOST", "127.0.0.1"),
		"port=" + envOr("PGPORT", "5432"),
		"user=" + envOr("PGUSER", "scenebridge"),
	}
	if password != "" {
		parts = append(parts, "password="+password)
	}
	parts = append(parts,
		"dbname="+envOr("PGDATABASE", "scenebridge"),
		"sslmode="+envOr("PGSSLMODE", "disable"),
	)
	return strings.Join(parts, " ")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// New connects and creates the tables if they do not exist.
func New(instanceID, password string) (*Client, error) {
	db, err := sql.Open("postgres", ConnString(password))
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	c := &Client{db: db, instanceID: instanceID}
	if err := c.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return c, nil
}

func (c *Client) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	for _, stmt := range schema {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Append inserts an event. An empty msg or loadID is stored as NULL.
func (c *Client) Append(ts time.Time, level, event, msg string, fields map[string]interface{}, loadID string) error {
	var raw []byte
	if fields != nil {
		var err error
		if raw, err = json.Marshal(fields); err != nil {
			return fmt.Errorf("marshal fields: %w", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO events (ts, level, event, msg, fields, instance_id, load_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ts, level, event, nullString(msg), raw, c.instanceID, nullString(loadID))
	return err
}

// ErrDuplicateLoad is returned by RecordLoad when the load id already has
// a history row. The existing row is kept.
var ErrDuplicateLoad = errors.New("load already recorded")

// RecordLoad stores the summary of a finished load.
func (c *Client) RecordLoad(l LoadRow) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	res, err := c.db.ExecContext(ctx,
		`INSERT INTO loads (load_id, instance_id, path, ok, elements, errors, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (load_id) DO NOTHING`,
		l.LoadID, c.instanceID, l.Path, l.OK, l.Elements, l.Errors, l.StartedAt, l.FinishedAt)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateLoad, l.LoadID)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// clampLimit maps a requested row count into [1, maxLimit]; zero or
// negative means the default.
func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultLimit
	case limit > maxLimit:
		return maxLimit
	}
	return limit
}

// Query returns the newest events of this instance first. An empty loadID
// selects every load.
func (c *Client) Query(limit int, loadID string) ([]EventRow, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	rows, err := c.db.QueryContext(ctx,
		`SELECT event_id, ts, level, event, msg, fields, instance_id, load_id
		 FROM events
		 WHERE instance_id = $1 AND ($2 = '' OR load_id = $2)
		 ORDER BY ts DESC
		 LIMIT $3`,
		c.instanceID, loadID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var (
			e         EventRow
			raw       []byte
			msg, load sql.NullString
		)
		if err := rows.Scan(&e.EventID, &e.Timestamp, &e.Level, &e.Event, &msg, &raw, &e.InstanceID, &load); err != nil {
			return nil, err
		}
		if msg.Valid {
			e.Message = &msg.String
		}
		if load.Valid {
			e.LoadID = &load.String
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &e.Fields); err != nil {
				return nil, fmt.Errorf("unmarshal fields of event %d: %w", e.EventID, err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Loads returns the most recently finished loads of this instance.
func (c *Client) Loads(limit int) ([]LoadRow, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	rows, err := c.db.QueryContext(ctx,
		`SELECT load_id, path, ok, elements, errors, started_at, finished_at
		 FROM loads
		 WHERE instance_id = $1
		 ORDER BY finished_at DESC
		 LIMIT $2`,
		c.instanceID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LoadRow
	for rows.Next() {
		var l LoadRow
		if err := rows.Scan(&l.LoadID, &l.Path, &l.OK, &l.Elements, &l.Errors, &l.StartedAt, &l.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Ping checks the connection.
func (c *Client) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return c.db.PingContext(ctx)
}

func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}
