package fbx

import (
	"fmt"
	"os"
)

// Default version bounds of a Manager.
var (
	DefaultSupportedVersion = Version{7, 5, 0}
	DefaultMinVersion       = Version{7, 0, 0}
)

// Options configure a Manager.
type Options struct {
	// SupportedVersion is the newest file version the manager accepts.
	SupportedVersion Version
	// MinVersion is the oldest file version the manager accepts.
	MinVersion Version
	// BasePath, when set, must be a directory; relative file names are
	// resolved against it.
	BasePath string
	// MaxLiveObjects limits the number of importers and scenes alive at
	// once. Zero means no limit.
	MaxLiveObjects int
}

// IOSettings holds the import settings shared by a manager's importers.
type IOSettings struct {
	BasePath   string
	MinVersion Version
	MaxVersion Version
}

type object interface {
	destroy()
}

// Manager is the root object of the package. It owns the I/O settings and
// every Importer and Scene it creates; destroying it destroys them all.
// A Manager is not safe for concurrent use.
type Manager struct {
	ios       *IOSettings
	maxLive   int
	live      map[object]struct{}
	destroyed bool
}

// CreateManager creates a Manager from opts, filling in default version
// bounds.
func CreateManager(opts Options) (*Manager, error) {
	if opts.SupportedVersion.IsZero() {
		opts.SupportedVersion = DefaultSupportedVersion
	}
	if opts.MinVersion.IsZero() {
		opts.MinVersion = DefaultMinVersion
	}
	if opts.MinVersion.Compare(opts.SupportedVersion) > 0 {
		return nil, fmt.Errorf("fbx: minimum version %s is newer than supported version %s",
			opts.MinVersion, opts.SupportedVersion)
	}
	if opts.MaxLiveObjects < 0 {
		return nil, fmt.Errorf("fbx: negative live object limit %d", opts.MaxLiveObjects)
	}
	if opts.BasePath != "" {
		fi, err := os.Stat(opts.BasePath)
		if err != nil {
			return nil, fmt.Errorf("fbx: base path: %w", err)
		}
		if !fi.IsDir() {
			return nil, fmt.Errorf("fbx: base path %s is not a directory", opts.BasePath)
		}
	}
	return &Manager{
		ios: &IOSettings{
			BasePath:   opts.BasePath,
			MinVersion: opts.MinVersion,
			MaxVersion: opts.SupportedVersion,
		},
		maxLive: opts.MaxLiveObjects,
		live:    map[object]struct{}{},
	}, nil
}

// IOSettings returns the manager's I/O settings.
func (m *Manager) IOSettings() *IOSettings { return m.ios }

// FileFormatVersion returns the newest file version the manager reads.
func (m *Manager) FileFormatVersion() Version { return m.ios.MaxVersion }

// Live returns the number of objects created by m and not yet destroyed.
func (m *Manager) Live() int { return len(m.live) }

// Destroyed reports whether Destroy has been called.
func (m *Manager) Destroyed() bool { return m.destroyed }

// NewImporter creates an Importer owned by m.
func (m *Manager) NewImporter() (*Importer, error) {
	imp := &Importer{mgr: m}
	if err := m.track(imp); err != nil {
		return nil, err
	}
	return imp, nil
}

// NewScene creates an empty Scene owned by m.
func (m *Manager) NewScene(name string) (*Scene, error) {
	s := &Scene{mgr: m, name: name}
	if err := m.track(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Destroy destroys every live object and then the manager itself. It is
// safe to call more than once.
func (m *Manager) Destroy() {
	if m.destroyed {
		return
	}
	for o := range m.live {
		o.destroy()
	}
	m.live = nil
	m.destroyed = true
}

func (m *Manager) track(o object) error {
	if m.destroyed {
		return ErrManagerUnusable
	}
	if m.maxLive > 0 && len(m.live) >= m.maxLive {
		return ErrResourceExhausted
	}
	m.live[o] = struct{}{}
	return nil
}

func (m *Manager) release(o object) {
	delete(m.live, o)
}
