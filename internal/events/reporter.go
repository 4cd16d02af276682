package events

import (
	"log"
	"sync"

	"github.com/AaronLay10/SceneBridge/internal/scene"
)

// LoadReporter emits the diagnostics and scene elements of one load as
// events tagged with its load id and path. It implements
// report.LoadReporter.
type LoadReporter struct {
	LoadID string
	Path   string

	dropOnce sync.Once
}

// NewLoadReporter returns a LoadReporter for one load.
func NewLoadReporter(loadID, path string) *LoadReporter {
	return &LoadReporter{LoadID: loadID, Path: path}
}

func (r *LoadReporter) fields(extra map[string]interface{}) map[string]interface{} {
	f := map[string]interface{}{
		"load_id": r.LoadID,
		"path":    r.Path,
	}
	for k, v := range extra {
		f[k] = v
	}
	return f
}

// emit is Emit that reports the first event of the load it could not
// encode (NaN or Inf in a value). Such an event stays in the in-memory
// buffer but misses the JSON-line output and Postgres.
func (r *LoadReporter) emit(level, name, msg string, fields map[string]interface{}) {
	_, err := Emit(level, name, msg, fields)
	if err == nil {
		return
	}
	r.dropOnce.Do(func() {
		log.Printf("load %s: event %s not written: %v", r.LoadID, name, err)
		Emit("error", "system.error", "event encoding failed", map[string]interface{}{
			"load_id": r.LoadID,
			"event":   name,
			"error":   err.Error(),
		})
	})
}

// Started emits load.started.
func (r *LoadReporter) Started() {
	r.emit("info", "load.started", "", r.fields(nil))
}

// Finished emits load.completed or load.failed.
func (r *LoadReporter) Finished(ok bool) {
	if ok {
		r.emit("info", "load.completed", "", r.fields(nil))
		return
	}
	r.emit("error", "load.failed", "", r.fields(nil))
}

func (r *LoadReporter) ReportError(msg string) {
	r.emit("error", "load.error", msg, r.fields(nil))
}

func (r *LoadReporter) LogMessage(msg string) {
	r.emit("info", "load.log", msg, r.fields(nil))
}

func (r *LoadReporter) EmitTransform(name string, t scene.Transform) {
	r.emit("info", "scene.transform", "", r.fields(map[string]interface{}{
		"node":      name,
		"transform": t,
	}))
}

func (r *LoadReporter) EmitCamera(name string, c scene.CameraParams) {
	r.emit("info", "scene.camera", "", r.fields(map[string]interface{}{
		"node":   name,
		"camera": c,
	}))
}

func (r *LoadReporter) EmitLight(name string, l scene.LightParams) {
	r.emit("info", "scene.light", "", r.fields(map[string]interface{}{
		"node":  name,
		"light": l,
	}))
}

func (r *LoadReporter) EmitMesh(name string, m scene.Mesh) {
	r.emit("info", "scene.mesh", "", r.fields(map[string]interface{}{
		"node":     name,
		"vertices": len(m.Vertices),
		"indices":  len(m.Indices),
	}))
}

// LifecycleReporter emits library lifecycle diagnostics as system events.
// It implements report.LifecycleReporter.
type LifecycleReporter struct {
	// BasePath is returned by LocalPath.
	BasePath string
}

func (r LifecycleReporter) ReportError(msg string) {
	Emit("error", "system.error", msg, nil)
}

func (r LifecycleReporter) LogMessage(msg string) {
	Emit("info", "system.log", msg, nil)
}

func (r LifecycleReporter) LocalPath() string { return r.BasePath }
