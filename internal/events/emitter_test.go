package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AaronLay10/SceneBridge/internal/report"
	"github.com/AaronLay10/SceneBridge/internal/scene"
)

var (
	_ report.LoadReporter      = (*LoadReporter)(nil)
	_ report.LifecycleReporter = LifecycleReporter{}
)

type fakeStore struct {
	mu      sync.Mutex
	err     error
	loadIDs []string
	calls   int
}

func (s *fakeStore) Append(ts time.Time, level, event, msg string, fields map[string]interface{}, loadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.loadIDs = append(s.loadIDs, loadID)
	return s.err
}

func TestEmit_UnknownEvent(t *testing.T) {
	if _, err := Emit("info", "scene.nurbs", "", nil); err == nil {
		t.Error("expected error for unregistered event")
	}
}

func TestNames(t *testing.T) {
	names := Names()
	if len(names) != 13 {
		t.Errorf("expected 13 registered events, got %d: %v", len(names), names)
	}
	for _, n := range names {
		if err := Validate(n); err != nil {
			t.Errorf("Validate(%q) = %v", n, err)
		}
	}
	if err := Validate("scene.nurbs"); !errors.Is(err, ErrUnknownEvent) {
		t.Errorf("Validate(scene.nurbs) = %v, want ErrUnknownEvent", err)
	}
}

func TestEmit_CountsAndBuffers(t *testing.T) {
	Clear()
	before := TotalCount()

	b, err := Emit("info", "system.log", "hello", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if e.Name != "system.log" || e.Message != "hello" {
		t.Errorf("unexpected event %+v", e)
	}
	if TotalCount() != before+1 {
		t.Errorf("expected total %d, got %d", before+1, TotalCount())
	}
	if n := len(Snapshot()); n != 1 {
		t.Errorf("expected 1 buffered event, got %d", n)
	}
}

func TestRingBuffer_Wraps(t *testing.T) {
	rb := NewRingBuffer(3)
	for i := 0; i < 5; i++ {
		rb.Add(Event{Message: string(rune('a' + i))})
	}
	if rb.Len() != 3 {
		t.Fatalf("expected len 3, got %d", rb.Len())
	}
	var got string
	for _, e := range rb.Snapshot() {
		got += e.Message
	}
	if got != "cde" {
		t.Errorf("expected cde, got %s", got)
	}
	rb.Clear()
	if rb.Len() != 0 {
		t.Errorf("expected empty buffer after Clear, got %d", rb.Len())
	}
}

func TestSetOutput_WritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	Emit("info", "system.startup", "", nil)
	Emit("error", "system.error", "oops", nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	var e Event
	if err := json.Unmarshal([]byte(lines[1]), &e); err != nil {
		t.Fatalf("invalid JSON line: %v", err)
	}
	if e.Level != "error" || e.Message != "oops" {
		t.Errorf("unexpected event %+v", e)
	}
}

func TestPersist_PassesLoadID(t *testing.T) {
	s := &fakeStore{}
	setStore(s)
	defer setStore(nil)

	NewLoadReporter("load-7", "/tmp/a.fbx").LogMessage("hi")
	Emit("info", "system.log", "no load", nil)

	if s.calls != 2 {
		t.Fatalf("expected 2 appends, got %d", s.calls)
	}
	if s.loadIDs[0] != "load-7" || s.loadIDs[1] != "" {
		t.Errorf("unexpected load ids %q", s.loadIDs)
	}
}

func TestPersist_ErrorLoggedOnce(t *testing.T) {
	Clear()
	s := &fakeStore{err: errors.New("connection refused")}
	setStore(s)
	defer setStore(nil)

	for i := 0; i < 3; i++ {
		Emit("info", "system.log", "x", nil)
	}

	var errs int
	for _, e := range Snapshot() {
		if e.Name == "system.error" && e.Message == "postgres append failed" {
			errs++
			if e.Fields["error"] != "connection refused" {
				t.Errorf("unexpected error field %v", e.Fields["error"])
			}
		}
	}
	if errs != 1 {
		t.Errorf("expected 1 persistence error event, got %d", errs)
	}
	if s.calls != 3 {
		t.Errorf("expected every event to be attempted, got %d", s.calls)
	}
}

func TestLoadReporter_Events(t *testing.T) {
	Clear()
	r := NewLoadReporter("load-1", "scene.fbx")
	r.Started()
	r.EmitTransform("cam", scene.Transform{Scale: scene.Vec3{1, 1, 1}})
	r.EmitCamera("cam", scene.CameraParams{Projection: scene.Orthogonal})
	r.EmitLight("lamp", scene.LightParams{Kind: scene.SpotLight})
	r.EmitMesh("box", scene.Mesh{Indices: []int{0, 1, 2}})
	r.ReportError("bad")
	r.Finished(false)

	want := []string{
		"load.started", "scene.transform", "scene.camera", "scene.light",
		"scene.mesh", "load.error", "load.failed",
	}
	got := Snapshot()
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(got))
	}
	for i, e := range got {
		if e.Name != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], e.Name)
		}
		if e.Fields["load_id"] != "load-1" || e.Fields["path"] != "scene.fbx" {
			t.Errorf("event %d: missing load fields: %v", i, e.Fields)
		}
	}
	if got[2].Fields["node"] != "cam" {
		t.Errorf("expected node cam, got %v", got[2].Fields["node"])
	}
	if got[4].Fields["indices"] != 3 {
		t.Errorf("expected 3 indices, got %v", got[4].Fields["indices"])
	}

	b, _ := json.Marshal(got[3])
	if !strings.Contains(string(b), `"kind":"spot"`) {
		t.Errorf("expected light kind in JSON, got %s", b)
	}
}

func TestLoadReporter_UnencodableEventReported(t *testing.T) {
	Clear()
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	r := NewLoadReporter("load-nan", "nan.fbx")
	bad := scene.Transform{Position: scene.Vec3{math.NaN(), 0, 0}}
	r.EmitTransform("a", bad)
	r.EmitTransform("b", bad)

	var reported int
	for _, e := range Snapshot() {
		if e.Name == "system.error" && e.Fields["load_id"] == "load-nan" {
			reported++
			if e.Fields["event"] != "scene.transform" {
				t.Errorf("unexpected failed event %v", e.Fields["event"])
			}
		}
	}
	if reported != 1 {
		t.Errorf("expected one system.error for the load, got %d", reported)
	}
	if !strings.Contains(buf.String(), `"event encoding failed"`) {
		t.Errorf("failure not written to output: %q", buf.String())
	}
	if n := strings.Count(buf.String(), "\n"); n != 1 {
		t.Errorf("expected only the failure line in the output, got %d lines: %q", n, buf.String())
	}
}

func TestLifecycleReporter(t *testing.T) {
	Clear()
	lc := LifecycleReporter{BasePath: "/assets"}
	lc.LogMessage("Loaded FBX SDK v7.5.0")
	lc.ReportError("boom")

	got := Snapshot()
	if len(got) != 2 || got[0].Name != "system.log" || got[1].Name != "system.error" {
		t.Errorf("unexpected events %+v", got)
	}
	if lc.LocalPath() != "/assets" {
		t.Errorf("expected /assets, got %s", lc.LocalPath())
	}
}
