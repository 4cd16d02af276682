package fbx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// StatusCode classifies the outcome of the last Importer operation.
type StatusCode int

const (
	Success StatusCode = iota
	Failure
	InvalidParameter
	InvalidFileVersion
	InvalidFile
)

func (c StatusCode) String() string {
	switch c {
	case Success:
		return "Success"
	case Failure:
		return "Failure"
	case InvalidParameter:
		return "InvalidParameter"
	case InvalidFileVersion:
		return "InvalidFileVersion"
	case InvalidFile:
		return "InvalidFile"
	}
	return fmt.Sprintf("StatusCode(%d)", int(c))
}

// Status is the outcome of the last Importer operation.
type Status struct {
	Code StatusCode
	Err  error
}

// ErrorString returns the native error text of s.
func (s Status) ErrorString() string {
	if s.Err == nil {
		return s.Code.String()
	}
	return s.Err.Error()
}

// Importer opens a file, validates its header and imports its contents
// into a Scene. It holds the file open from Initialize until Import or
// Destroy.
type Importer struct {
	mgr       *Manager
	file      *os.File
	path      string
	version   uint32
	status    Status
	destroyed bool
}

func (imp *Importer) setStatus(code StatusCode, err error) bool {
	imp.status = Status{Code: code, Err: err}
	return code == Success
}

// Initialize opens path and checks that it is a binary FBX file whose
// version is within the bounds of ios. A nil ios means the manager's
// settings. On failure Status describes the problem; when the code is
// InvalidFileVersion, FileVersion reports the version found in the file.
func (imp *Importer) Initialize(path string, ios *IOSettings) bool {
	if imp.destroyed {
		return imp.setStatus(InvalidParameter, newErr("importer is destroyed"))
	}
	if ios == nil {
		ios = imp.mgr.ios
	}
	imp.closeFile()
	imp.version = 0

	if !filepath.IsAbs(path) && ios.BasePath != "" {
		path = filepath.Join(ios.BasePath, path)
	}
	imp.path = path
	f, err := os.Open(path)
	if err != nil {
		return imp.setStatus(Failure, err)
	}
	v, err := ReadHeader(f)
	if err != nil {
		f.Close()
		return imp.setStatus(InvalidFile, err)
	}
	imp.version = v
	fv := FileVersion(v)
	if fv.Compare(ios.MinVersion) < 0 || fv.Compare(ios.MaxVersion) > 0 {
		f.Close()
		return imp.setStatus(InvalidFileVersion, fmt.Errorf("fbx: file version %s is outside the supported range %s to %s",
			fv, ios.MinVersion, ios.MaxVersion))
	}
	imp.file = f
	return imp.setStatus(Success, nil)
}

// Path returns the resolved path of the last Initialize call.
func (imp *Importer) Path() string { return imp.path }

// FileVersion returns the version read from the file header, or the zero
// Version if no header was read.
func (imp *Importer) FileVersion() Version {
	if imp.version == 0 {
		return Version{}
	}
	return FileVersion(imp.version)
}

// Status returns the outcome of the last operation.
func (imp *Importer) Status() Status { return imp.status }

// Import reads the initialized file into s, replacing any hierarchy it
// already holds. The file is closed afterwards.
func (imp *Importer) Import(s *Scene) bool {
	switch {
	case imp.destroyed:
		return imp.setStatus(InvalidParameter, newErr("importer is destroyed"))
	case imp.file == nil:
		return imp.setStatus(InvalidParameter, newErr("importer is not initialized"))
	case s == nil || s.destroyed:
		return imp.setStatus(InvalidParameter, newErr("invalid scene"))
	case s.mgr != imp.mgr:
		return imp.setStatus(InvalidParameter, newErr("scene belongs to another manager"))
	}
	defer imp.closeFile()

	if _, err := imp.file.Seek(0, io.SeekStart); err != nil {
		return imp.setStatus(Failure, err)
	}
	data, err := io.ReadAll(imp.file)
	if err != nil {
		return imp.setStatus(Failure, err)
	}
	_, elems, err := Decode(data)
	if err != nil {
		return imp.setStatus(InvalidFile, err)
	}
	root, count, warnings, err := buildScene(elems)
	if err != nil {
		return imp.setStatus(InvalidFile, err)
	}
	s.root, s.nodes, s.warnings = root, count, warnings
	return imp.setStatus(Success, nil)
}

// Destroy closes the file, if open, and releases the importer. It is safe
// to call more than once.
func (imp *Importer) Destroy() {
	if imp.destroyed {
		return
	}
	imp.destroyed = true
	imp.closeFile()
	imp.mgr.release(imp)
}

func (imp *Importer) destroy() { imp.Destroy() }

func (imp *Importer) closeFile() {
	if imp.file != nil {
		imp.file.Close()
		imp.file = nil
	}
}
