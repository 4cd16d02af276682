// Package loader loads FBX files and translates their node hierarchy into
// scene elements delivered to a report.LoadReporter.
//
// A Library owns one fbx.Manager for its whole life. Each LoadFile call
// creates its own importer and scene and releases both before returning.
// A Library is not safe for concurrent use; callers serialize LoadFile.
package loader

import (
	"errors"
	"fmt"

	"github.com/AaronLay10/SceneBridge/internal/fbx"
	"github.com/AaronLay10/SceneBridge/internal/report"
)

// Status is the state of a Library. The values are stable and must not be
// renumbered.
type Status uint

const (
	NotInitialized Status = 0
	Initialized    Status = 1
	InitError      Status = 2
	RuntimeError   Status = 3
)

func (s Status) String() string {
	switch s {
	case NotInitialized:
		return "not_initialized"
	case Initialized:
		return "initialized"
	case InitError:
		return "init_error"
	case RuntimeError:
		return "runtime_error"
	}
	return fmt.Sprintf("Status(%d)", uint(s))
}

// Terminal reports whether no further loads are possible from s.
func (s Status) Terminal() bool {
	return s == InitError || s == RuntimeError
}

// MeshExtractor turns a mesh node into scene elements. The node's raw
// geometry record is available through n.Attribute().Element.
type MeshExtractor interface {
	ExtractMesh(n *fbx.Node, r report.LoadReporter) error
}

// LODGroupExtractor turns an LOD group node into scene elements.
type LODGroupExtractor interface {
	ExtractLODGroup(n *fbx.Node, r report.LoadReporter) error
}

// MeshExtractorFunc adapts a function to MeshExtractor.
type MeshExtractorFunc func(n *fbx.Node, r report.LoadReporter) error

func (f MeshExtractorFunc) ExtractMesh(n *fbx.Node, r report.LoadReporter) error { return f(n, r) }

// LODGroupExtractorFunc adapts a function to LODGroupExtractor.
type LODGroupExtractorFunc func(n *fbx.Node, r report.LoadReporter) error

func (f LODGroupExtractorFunc) ExtractLODGroup(n *fbx.Node, r report.LoadReporter) error {
	return f(n, r)
}

type options struct {
	sdk  fbx.Options
	mesh MeshExtractor
	lod  LODGroupExtractor
}

// Option configures a Library.
type Option func(*options)

// WithSupportedVersion sets the newest file version accepted.
func WithSupportedVersion(v fbx.Version) Option {
	return func(o *options) { o.sdk.SupportedVersion = v }
}

// WithMinVersion sets the oldest file version accepted.
func WithMinVersion(v fbx.Version) Option {
	return func(o *options) { o.sdk.MinVersion = v }
}

// WithMaxLiveObjects limits the importers and scenes alive at once.
func WithMaxLiveObjects(n int) Option {
	return func(o *options) { o.sdk.MaxLiveObjects = n }
}

// WithMeshExtractor installs the extractor run on mesh nodes.
func WithMeshExtractor(m MeshExtractor) Option {
	return func(o *options) { o.mesh = m }
}

// WithLODGroupExtractor installs the extractor run on LOD group nodes.
func WithLODGroupExtractor(e LODGroupExtractor) Option {
	return func(o *options) { o.lod = e }
}

// Library loads FBX files through one fbx.Manager.
type Library struct {
	lc     report.LifecycleReporter
	sdk    *fbx.Manager
	status Status
	mesh   MeshExtractor
	lod    LODGroupExtractor
}

// New creates a Library. It never fails: when the manager cannot be
// created the error is reported to lc once and the library is left in
// InitError. Relative file paths are resolved against lc.LocalPath().
func New(lc report.LifecycleReporter, opts ...Option) *Library {
	if lc == nil {
		lc = report.Discard
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	o.sdk.BasePath = lc.LocalPath()

	l := &Library{lc: lc, mesh: o.mesh, lod: o.lod}
	sdk, err := fbx.CreateManager(o.sdk)
	if err != nil {
		l.status = InitError
		lc.ReportError(fmt.Sprintf("Unable to create FBX Manager (critical): %v", err))
		return l
	}
	l.sdk = sdk
	l.status = Initialized
	lc.LogMessage(fmt.Sprintf("Loaded FBX SDK v%s", sdk.FileFormatVersion()))
	return l
}

// Status returns the library's current status.
func (l *Library) Status() Status { return l.status }

// SupportedVersion returns the newest file version the library reads, or
// the zero Version if it holds no manager.
func (l *Library) SupportedVersion() fbx.Version {
	if l.sdk == nil {
		return fbx.Version{}
	}
	return l.sdk.FileFormatVersion()
}

// Teardown destroys the manager. Later calls do nothing. A library that
// was Initialized becomes NotInitialized; terminal states are kept.
func (l *Library) Teardown() {
	if l.sdk == nil {
		return
	}
	l.sdk.Destroy()
	l.sdk = nil
	if l.status == Initialized {
		l.status = NotInitialized
	}
}

// LoadFile imports path and reports its scene elements to r. It returns
// false after reporting a fatal error to r. Fatal errors are reported
// exactly once; non-fatal problems are logged and the load continues.
func (l *Library) LoadFile(path string, r report.LoadReporter) (ok bool) {
	if r == nil {
		r = report.Discard
	}
	if l.status != Initialized || l.sdk == nil {
		r.ReportError(fmt.Sprintf("FBX loader is not usable (status %s)", l.status))
		return false
	}

	defer func() {
		if p := recover(); p != nil {
			r.ReportError(fmt.Sprintf("Load of '%s' aborted: %v (critical)", path, p))
			ok = false
		}
	}()

	s, ok := l.importScene(path, r)
	if !ok {
		return false
	}
	defer s.Destroy()
	return l.translate(s, r)
}

// check moves the library to RuntimeError when err says the manager can no
// longer be used. The library is the manager's only owner and destroys it
// only in Teardown, which leaves Initialized first, so today this fires
// only if the manager is destroyed behind the library's back. It is the
// path by which any future manager-level failure (an fbx.Manager that
// gives up after a fatal allocation or codec error) surfaces as
// RuntimeError rather than as a per-load error.
func (l *Library) check(err error) {
	if errors.Is(err, fbx.ErrManagerUnusable) && l.status == Initialized {
		l.status = RuntimeError
		l.lc.ReportError(fmt.Sprintf("FBX Manager is unusable (critical): %v", err))
	}
}
