package api

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/AaronLay10/SceneBridge/internal/events"
	"github.com/AaronLay10/SceneBridge/internal/loader"
	"github.com/AaronLay10/SceneBridge/internal/report"
	"github.com/AaronLay10/SceneBridge/internal/storage/postgres"
)

// Load ids end up in MQTT topics and as the history key, so callers may
// only pick ids from a safe alphabet and only once.
var (
	ErrInvalidLoadID   = errors.New("load id must be 1-64 characters from [A-Za-z0-9_-]")
	ErrDuplicateLoadID = errors.New("load id already used")
)

var loadIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// recentLoadIDs is how many used load ids are remembered for duplicate
// detection. The history table refuses older duplicates.
const recentLoadIDs = 4096

// ErrNoHistory is returned by LoadService.History without a history store.
var ErrNoHistory = errors.New("load history needs postgres")

// LoadHistory stores load summaries. *postgres.Client implements it.
type LoadHistory interface {
	RecordLoad(l postgres.LoadRow) error
	Loads(limit int) ([]postgres.LoadRow, error)
}

// PublisherFunc returns an extra reporter for one load, e.g. an MQTT
// publisher. It may return nil.
type PublisherFunc func(loadID string) report.LoadReporter

// LoadService runs loads through one loader.Library. The library is not
// safe for concurrent use, so loads are serialized.
type LoadService struct {
	mu      sync.Mutex
	lib     *loader.Library
	publish PublisherFunc
	history LoadHistory
	used    *lru.Cache[string, struct{}]
}

// NewLoadService wraps lib and publishes its initial status to /ready.
func NewLoadService(lib *loader.Library) *LoadService {
	used, _ := lru.New[string, struct{}](recentLoadIDs)
	s := &LoadService{lib: lib, used: used}
	SetLibraryReady(lib.Status() == loader.Initialized)
	return s
}

// SetPublisher sets the extra reporter used for every following load.
func (s *LoadService) SetPublisher(f PublisherFunc) {
	s.mu.Lock()
	s.publish = f
	s.mu.Unlock()
}

// SetHistory sets where load summaries are recorded.
func (s *LoadService) SetHistory(h LoadHistory) {
	s.mu.Lock()
	s.history = h
	s.mu.Unlock()
}

// History returns the last limit recorded loads, newest first.
func (s *LoadService) History(limit int) ([]postgres.LoadRow, error) {
	s.mu.Lock()
	h := s.history
	s.mu.Unlock()
	if h == nil {
		return nil, ErrNoHistory
	}
	return h.Loads(limit)
}

// LoadResult is the outcome of one load.
type LoadResult struct {
	OK     bool   `json:"ok"`
	LoadID string `json:"load_id"`
	Path   string `json:"path"`
	report.Snapshot
}

// Load loads path and returns everything it reported. An empty loadID is
// replaced with a new UUID. A loadID outside [A-Za-z0-9_-]{1,64} or one
// already used is rejected with ErrInvalidLoadID or ErrDuplicateLoadID
// before anything is loaded or published.
func (s *LoadService) Load(path, loadID string) (LoadResult, error) {
	if loadID == "" {
		loadID = uuid.NewString()
	} else if !loadIDPattern.MatchString(loadID) {
		return s.reject(path, loadID, ErrInvalidLoadID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.used.Contains(loadID) {
		return s.reject(path, loadID, ErrDuplicateLoadID)
	}
	s.used.Add(loadID, struct{}{})

	rec := &report.Recorder{}
	ev := events.NewLoadReporter(loadID, path)
	var extra report.LoadReporter
	if s.publish != nil {
		extra = s.publish(loadID)
	}

	before := s.lib.Status()
	started := time.Now().UTC()
	ev.Started()
	ok := s.lib.LoadFile(path, report.Multi(rec, ev, extra))
	ev.Finished(ok)
	RecordLoad(ok, rec.Emissions())
	snap := rec.Snapshot()

	if s.history != nil {
		err := s.history.RecordLoad(postgres.LoadRow{
			LoadID:     loadID,
			Path:       path,
			OK:         ok,
			Elements:   rec.Emissions(),
			Errors:     len(snap.Errors),
			StartedAt:  started,
			FinishedAt: time.Now().UTC(),
		})
		if err != nil {
			log.Printf("load %s: failed to record history: %v", loadID, err)
		}
	}

	if after := s.lib.Status(); after != before {
		SetLibraryReady(after == loader.Initialized)
		if after == loader.RuntimeError {
			SendAlert(AlertLibraryUnusable, SeverityCritical, "FBX loader is unusable", map[string]interface{}{
				"load_id": loadID,
				"path":    path,
			})
		}
	}

	return LoadResult{OK: ok, LoadID: loadID, Path: path, Snapshot: snap}, nil
}

func (s *LoadService) reject(path, loadID string, reason error) (LoadResult, error) {
	err := fmt.Errorf("%w: %q", reason, loadID)
	events.Emit("error", "system.error", "load request rejected", map[string]interface{}{
		"path":  path,
		"error": err.Error(),
	})
	return LoadResult{LoadID: loadID, Path: path}, err
}

// Status returns the library status.
func (s *LoadService) Status() loader.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lib.Status()
}

// SupportedVersion returns the newest file version the library reads.
func (s *LoadService) SupportedVersion() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v := s.lib.SupportedVersion(); !v.IsZero() {
		return v.String()
	}
	return ""
}

// Close tears the library down. Loads after Close fail.
func (s *LoadService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lib.Teardown()
	SetLibraryReady(false)
}
