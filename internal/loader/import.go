package loader

import (
	"fmt"

	"github.com/AaronLay10/SceneBridge/internal/fbx"
	"github.com/AaronLay10/SceneBridge/internal/report"
)

// importScene opens path, checks its version and imports it into a new
// scene. On success the caller owns the scene and must destroy it. The
// importer is always destroyed before returning.
func (l *Library) importScene(path string, r report.LoadReporter) (*fbx.Scene, bool) {
	imp, err := l.sdk.NewImporter()
	if err != nil {
		l.check(err)
		r.ReportError(fmt.Sprintf("Could not create importer! (critical): %v", err))
		return nil, false
	}
	defer imp.Destroy()

	if !imp.Initialize(path, nil) {
		st := imp.Status()
		if st.Code == fbx.InvalidFileVersion {
			r.ReportError(fmt.Sprintf("Import Failed: Invalid file version.\n\tFBX SDK v%s\n\tFile v%s",
				l.sdk.FileFormatVersion(), imp.FileVersion()))
		} else {
			r.ReportError("Import Failed: " + st.ErrorString())
		}
		return nil, false
	}
	r.LogMessage(fmt.Sprintf("Loaded file '%s'. File version %s", path, imp.FileVersion()))

	s, err := l.sdk.NewScene("")
	if err != nil {
		l.check(err)
		r.ReportError("Could not create scene object! (critical)")
		return nil, false
	}
	if !imp.Import(s) {
		s.Destroy()
		r.ReportError("Could not load into scene! (critical)\n\t" + imp.Status().ErrorString())
		return nil, false
	}
	return s, true
}
