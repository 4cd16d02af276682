package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AaronLay10/SceneBridge/internal/events"
)

const (
	// events replayed to a client when it connects
	wsReplay = 50

	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// Origin is not checked; RequireAnyRole guards the route.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// wsClient is one streaming connection. With loadID set only events of
// that load are sent.
type wsClient struct {
	conn   *websocket.Conn
	sub    events.Subscriber
	loadID string
}

func (c *wsClient) wants(e events.Event) bool {
	if c.loadID == "" {
		return true
	}
	id, _ := e.Fields["load_id"].(string)
	return id == c.loadID
}

func (c *wsClient) send(e events.Event) error {
	if !c.wants(e) {
		return nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		// unencodable fields; skip the event rather than the client
		return nil
	}
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsClient) ping() error {
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
}

// readLoop consumes pongs and returns once the peer goes away.
func (c *wsClient) readLoop(done chan<- struct{}) {
	defer close(done)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writeLoop replays recent events, then forwards live ones until the
// subscription ends, the peer leaves or a write fails.
func (c *wsClient) writeLoop(done <-chan struct{}) {
	for _, e := range events.RecentEvents(wsReplay) {
		if err := c.send(e); err != nil {
			log.Printf("ws replay failed: %v", err)
			return
		}
	}

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case e, ok := <-c.sub:
			if !ok {
				return
			}
			if err := c.send(e); err != nil {
				log.Printf("ws write failed: %v", err)
				return
			}
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}

// wsEventsHandler upgrades the request and streams the event log. The
// optional load_id query parameter narrows the stream to one load.
func wsEventsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	c := &wsClient{
		conn:   conn,
		sub:    events.Subscribe(),
		loadID: r.URL.Query().Get("load_id"),
	}
	defer conn.Close()
	defer events.Unsubscribe(c.sub)

	done := make(chan struct{})
	go c.readLoop(done)
	c.writeLoop(done)
}
