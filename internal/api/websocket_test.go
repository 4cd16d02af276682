package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AaronLay10/SceneBridge/internal/events"
)

// waitFor polls cond until it holds or timeout expires.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	for deadline := time.Now().Add(timeout); time.Now().Before(deadline); time.Sleep(10 * time.Millisecond) {
		if cond() {
			return
		}
	}
	t.Errorf("timed out waiting for %s", msg)
}

// streamServer serves the event stream and returns its ws:// URL.
func streamServer(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(wsEventsHandler))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) events.Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var e events.Event
	if err := json.Unmarshal(msg, &e); err != nil {
		t.Fatalf("decode %s: %v", msg, err)
	}
	return e
}

// emitSoon emits after the handler has had time to subscribe.
func emitSoon(name string, fields map[string]interface{}) {
	go func() {
		time.Sleep(50 * time.Millisecond)
		events.Emit("info", name, "", fields)
	}()
}

func TestWebSocketReplaysRecentEvents(t *testing.T) {
	events.Clear()
	for i := 0; i < 5; i++ {
		events.Emit("info", "scene.transform", "", map[string]interface{}{"node": fmt.Sprintf("n%d", i)})
	}

	conn := dial(t, streamServer(t))
	for i := 0; i < 5; i++ {
		e := readEvent(t, conn)
		if want := fmt.Sprintf("n%d", i); e.Name != "scene.transform" || e.Fields["node"] != want {
			t.Errorf("replay %d: got %s node=%v, want scene.transform node=%s", i, e.Name, e.Fields["node"], want)
		}
	}
}

func TestWebSocketStreamsToEveryClient(t *testing.T) {
	events.Clear()
	url := streamServer(t)
	a, b := dial(t, url), dial(t, url)

	emitSoon("load.completed", map[string]interface{}{"load_id": "ws-1"})

	for name, conn := range map[string]*websocket.Conn{"a": a, "b": b} {
		e := readEvent(t, conn)
		if e.Name != "load.completed" || e.Fields["load_id"] != "ws-1" {
			t.Errorf("client %s got %s %v", name, e.Name, e.Fields)
		}
	}
}

func TestWebSocketLoadFilter(t *testing.T) {
	events.Clear()
	events.Emit("info", "load.started", "", map[string]interface{}{"load_id": "other"})
	events.Emit("info", "load.started", "", map[string]interface{}{"load_id": "mine"})

	conn := dial(t, streamServer(t)+"?load_id=mine")
	if e := readEvent(t, conn); e.Fields["load_id"] != "mine" {
		t.Fatalf("replay leaked load %v", e.Fields["load_id"])
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		events.Emit("info", "scene.camera", "", map[string]interface{}{"load_id": "other", "node": "cam_a"})
		events.Emit("info", "scene.camera", "", map[string]interface{}{"load_id": "mine", "node": "cam_b"})
	}()
	if e := readEvent(t, conn); e.Fields["node"] != "cam_b" {
		t.Errorf("got node %v, want cam_b", e.Fields["node"])
	}
}

func TestWebSocketDisconnectUnsubscribes(t *testing.T) {
	events.Clear()
	events.CloseAllSubscribers()

	conn := dial(t, streamServer(t))
	emitSoon("system.log", nil)
	if e := readEvent(t, conn); e.Name != "system.log" {
		t.Fatalf("got %s, want system.log", e.Name)
	}

	conn.Close()
	waitFor(t, 5*time.Second, func() bool {
		return events.SubscriberCount() == 0
	}, "subscriber removal after close")
}

func TestWebSocketEndsOnShutdown(t *testing.T) {
	events.Clear()
	events.CloseAllSubscribers()
	conn := dial(t, streamServer(t))
	waitFor(t, time.Second, func() bool { return events.SubscriberCount() == 1 }, "subscription")

	events.CloseAllSubscribers()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("stream still open after CloseAllSubscribers")
	}
}

func TestWebSocketRequiresRole(t *testing.T) {
	SetTLSConfigForTest(nil)
	InitAuth(fullAuth())
	defer resetAuth()

	srv := httptest.NewServer(NewMux())
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("dial without credentials succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", resp)
	}

	req, _ := http.NewRequest("GET", srv.URL, nil)
	req.SetBasicAuth("operator", "opsecret")
	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Authorization": req.Header["Authorization"]})
	if err != nil {
		t.Fatalf("dial as operator: %v", err)
	}
	conn.Close()
}
