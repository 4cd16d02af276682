// Package report defines the two reporting contracts through which the
// loader communicates: one for library lifecycle diagnostics and one for a
// single file load, which also receives the extracted scene elements.
package report

import (
	"sync"

	"github.com/AaronLay10/SceneBridge/internal/scene"
)

// LifecycleReporter receives diagnostics raised while a loader library is
// created or torn down.
type LifecycleReporter interface {
	ReportError(msg string)
	LogMessage(msg string)
	// LocalPath is the base directory relative file paths are resolved
	// against. Empty means the working directory.
	LocalPath() string
}

// LoadReporter receives the diagnostics and scene elements of one load.
type LoadReporter interface {
	ReportError(msg string)
	LogMessage(msg string)
	EmitTransform(name string, t scene.Transform)
	EmitCamera(name string, c scene.CameraParams)
	EmitLight(name string, l scene.LightParams)
	EmitMesh(name string, m scene.Mesh)
}

// Discard is a LoadReporter and LifecycleReporter that drops everything.
var Discard discard

type discard struct{}

func (discard) ReportError(string) {}
func (discard) LogMessage(string) {}
func (discard) LocalPath() string { return "" }
func (discard) EmitTransform(string, scene.Transform) {}
func (discard) EmitCamera(string, scene.CameraParams) {}
func (discard) EmitLight(string, scene.LightParams) {}
func (discard) EmitMesh(string, scene.Mesh) {}

// Multi returns a LoadReporter that forwards every call to each of rs, in
// order. Nil reporters are skipped.
func Multi(rs ...LoadReporter) LoadReporter {
	out := make(multi, 0, len(rs))
	for _, r := range rs {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

type multi []LoadReporter

func (m multi) ReportError(msg string) {
	for _, r := range m {
		r.ReportError(msg)
	}
}

func (m multi) LogMessage(msg string) {
	for _, r := range m {
		r.LogMessage(msg)
	}
}

func (m multi) EmitTransform(name string, t scene.Transform) {
	for _, r := range m {
		r.EmitTransform(name, t)
	}
}

func (m multi) EmitCamera(name string, c scene.CameraParams) {
	for _, r := range m {
		r.EmitCamera(name, c)
	}
}

func (m multi) EmitLight(name string, l scene.LightParams) {
	for _, r := range m {
		r.EmitLight(name, l)
	}
}

func (m multi) EmitMesh(name string, mesh scene.Mesh) {
	for _, r := range m {
		r.EmitMesh(name, mesh)
	}
}

// Named pairs an emitted element with the name of its node.
type Named[T any] struct {
	Name  string `json:"name"`
	Value T      `json:"value"`
}

// Recorder stores everything reported to it. It implements both reporter
// contracts and is safe for concurrent use.
type Recorder struct {
	// Path is returned by LocalPath.
	Path string

	mu         sync.Mutex
	errors     []string
	logs       []string
	transforms []Named[scene.Transform]
	cameras    []Named[scene.CameraParams]
	lights     []Named[scene.LightParams]
	meshes     []Named[scene.Mesh]
	calls      []string
}

// Snapshot is a copy of a Recorder's contents.
type Snapshot struct {
	Errors     []string                    `json:"errors"`
	Logs       []string                    `json:"logs"`
	Transforms []Named[scene.Transform]    `json:"transforms"`
	Cameras    []Named[scene.CameraParams] `json:"cameras"`
	Lights     []Named[scene.LightParams]  `json:"lights"`
	Meshes     []Named[scene.Mesh]         `json:"meshes"`
	// Calls lists every call as "<kind>:<name or message>" in the order
	// received.
	Calls []string `json:"-"`
}

func (r *Recorder) record(call string, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn()
	r.calls = append(r.calls, call)
}

func (r *Recorder) ReportError(msg string) {
	r.record("error:"+msg, func() { r.errors = append(r.errors, msg) })
}

func (r *Recorder) LogMessage(msg string) {
	r.record("log:"+msg, func() { r.logs = append(r.logs, msg) })
}

func (r *Recorder) LocalPath() string { return r.Path }

func (r *Recorder) EmitTransform(name string, t scene.Transform) {
	r.record("transform:"+name, func() {
		r.transforms = append(r.transforms, Named[scene.Transform]{name, t})
	})
}

func (r *Recorder) EmitCamera(name string, c scene.CameraParams) {
	r.record("camera:"+name, func() {
		r.cameras = append(r.cameras, Named[scene.CameraParams]{name, c})
	})
}

func (r *Recorder) EmitLight(name string, l scene.LightParams) {
	r.record("light:"+name, func() {
		r.lights = append(r.lights, Named[scene.LightParams]{name, l})
	})
}

func (r *Recorder) EmitMesh(name string, m scene.Mesh) {
	r.record("mesh:"+name, func() {
		r.meshes = append(r.meshes, Named[scene.Mesh]{name, m})
	})
}

// Snapshot returns a copy of everything recorded so far.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		Errors:     append([]string(nil), r.errors...),
		Logs:       append([]string(nil), r.logs...),
		Transforms: append([]Named[scene.Transform](nil), r.transforms...),
		Cameras:    append([]Named[scene.CameraParams](nil), r.cameras...),
		Lights:     append([]Named[scene.LightParams](nil), r.lights...),
		Meshes:     append([]Named[scene.Mesh](nil), r.meshes...),
		Calls:      append([]string(nil), r.calls...),
	}
}

// Emissions returns the number of scene elements recorded.
func (r *Recorder) Emissions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.transforms) + len(r.cameras) + len(r.lights) + len(r.meshes)
}
