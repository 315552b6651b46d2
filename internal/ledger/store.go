// Package ledger is the authoritative, append-only record of every version
// of every app. It is a single file-backed structure with an explicit
// open/flush/close lifecycle; there is no ambient global handle.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"appforge/internal/domain/model"
	"appforge/pkg/log"
)

// file is the persisted shape of the ledger.
type file struct {
	Apps     []*model.App `json:"apps"`
	NextPort int          `json:"nextPort"`
}

// Store owns the persisted app/version graph. Safe for concurrent use within
// one process; multi-process writers are out of scope.
type Store struct {
	path string
	mu   sync.Mutex
	data *file
}

// Open reads the ledger from path, creating an empty one when the file does
// not exist yet. basePort seeds port allocation for the first app.
func Open(path string, basePort int) (*Store, error) {
	s := &Store{path: path, data: &file{NextPort: basePort}}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, &model.LedgerError{Op: "open", Err: err}
	}
	if err := json.Unmarshal(raw, s.data); err != nil {
		return nil, &model.LedgerError{Op: "open", Err: fmt.Errorf("corrupt ledger %s: %w", path, err)}
	}
	if s.data.NextPort < basePort {
		s.data.NextPort = basePort
	}
	return s, nil
}

// Flush persists the ledger atomically: the new content is written to a
// temporary file and renamed over the old one, so readers never observe a
// torn write.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return &model.LedgerError{Op: "flush", Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return &model.LedgerError{Op: "flush", Err: err}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return &model.LedgerError{Op: "flush", Err: err}
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return &model.LedgerError{Op: "flush", Err: err}
	}
	return nil
}

// Close flushes and releases the store.
func (s *Store) Close() error {
	return s.Flush()
}

// Apps returns a snapshot of all apps.
func (s *Store) Apps() []*model.App {
	s.mu.Lock()
	defer s.mu.Unlock()
	apps := make([]*model.App, 0, len(s.data.Apps))
	for _, a := range s.data.Apps {
		apps = append(apps, cloneApp(a))
	}
	return apps
}

// GetApp returns a snapshot of one app.
func (s *Store) GetApp(name string) (*model.App, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.findLocked(name)
	if a == nil {
		return nil, fmt.Errorf("app %q not found", name)
	}
	return cloneApp(a), nil
}

// CreateApp registers a new app, allocating it the next free external port.
// The app starts with no versions; the first commit establishes v1.0.0.
func (s *Store) CreateApp(name string) (*model.App, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findLocked(name) != nil {
		return nil, fmt.Errorf("app %q already exists", name)
	}

	app := &model.App{
		Name:      name,
		Port:      s.data.NextPort,
		CreatedAt: time.Now().UTC(),
	}
	s.data.Apps = append(s.data.Apps, app)
	s.data.NextPort++

	if err := s.flushLocked(); err != nil {
		s.data.Apps = s.data.Apps[:len(s.data.Apps)-1]
		s.data.NextPort--
		return nil, err
	}
	log.Info("app registered", "app", name, "port", app.Port)
	return cloneApp(app), nil
}

// CurrentVersion returns the version the app's current-version pointer
// references.
func (s *Store) CurrentVersion(appName string) (*model.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.findLocked(appName)
	if a == nil {
		return nil, fmt.Errorf("app %q not found", appName)
	}
	v := a.FindVersion(a.CurrentVersion)
	if v == nil {
		return nil, fmt.Errorf("app %q has no current version", appName)
	}
	return v.Clone(), nil
}

// Commit marks the prior active version inactive, appends newVersion as
// active and updates the app's current-version pointer. Atomic from the
// caller's perspective: if the persist fails, the in-memory state is rolled
// back and nothing is visible.
func (s *Store) Commit(appName string, newVersion *model.Version) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.findLocked(appName)
	if a == nil {
		return &model.LedgerError{Op: "commit", Err: fmt.Errorf("app %q not found", appName)}
	}
	if a.FindVersion(newVersion.Version) != nil {
		return &model.LedgerError{Op: "commit", Err: fmt.Errorf("version %s already exists for app %q", newVersion.Version, appName)}
	}

	prior := a.ActiveVersion()
	priorPointer := a.CurrentVersion

	if prior != nil {
		prior.IsActive = false
	}
	v := newVersion.Clone()
	v.IsActive = true
	a.Versions = append(a.Versions, v)
	a.CurrentVersion = v.Version

	if err := s.flushLocked(); err != nil {
		a.Versions = a.Versions[:len(a.Versions)-1]
		a.CurrentVersion = priorPointer
		if prior != nil {
			prior.IsActive = true
		}
		return err
	}
	log.Info("version committed", "app", appName, "version", v.Version, "parent", v.ParentVersion)
	return nil
}

// Activate flips the active flag to an existing version during rollback and
// repoints the current-version pointer. History itself is never rewritten.
func (s *Store) Activate(appName, version string, status model.DockerStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.findLocked(appName)
	if a == nil {
		return &model.LedgerError{Op: "activate", Err: fmt.Errorf("app %q not found", appName)}
	}
	target := a.FindVersion(version)
	if target == nil {
		return &model.LedgerError{Op: "activate", Err: fmt.Errorf("version %s not found for app %q", version, appName)}
	}

	type flagState struct {
		v      *model.Version
		active bool
		status model.DockerStatus
	}
	var saved []flagState
	for _, v := range a.Versions {
		saved = append(saved, flagState{v, v.IsActive, v.DockerStatus})
	}
	priorPointer := a.CurrentVersion

	for _, v := range a.Versions {
		if v.IsActive && v != target {
			v.IsActive = false
			v.DockerStatus = model.DockerStatusStopped
		}
	}
	target.IsActive = true
	target.DockerStatus = status
	a.CurrentVersion = version

	if err := s.flushLocked(); err != nil {
		for _, st := range saved {
			st.v.IsActive = st.active
			st.v.DockerStatus = st.status
		}
		a.CurrentVersion = priorPointer
		return err
	}
	log.Info("version activated", "app", appName, "version", version)
	return nil
}

// SetBackupPath records where a version's snapshot lives.
func (s *Store) SetBackupPath(appName, version, backupPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.findLocked(appName)
	if a == nil {
		return &model.LedgerError{Op: "set-backup", Err: fmt.Errorf("app %q not found", appName)}
	}
	v := a.FindVersion(version)
	if v == nil {
		return &model.LedgerError{Op: "set-backup", Err: fmt.Errorf("version %s not found for app %q", version, appName)}
	}
	v.BackupPath = backupPath
	return s.flushLocked()
}

// RemoveApp unregisters an app that never received a version, unwinding a
// failed initial creation. Apps with history are append-only and cannot be
// removed.
func (s *Store) RemoveApp(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, a := range s.data.Apps {
		if a.Name != name {
			continue
		}
		if len(a.Versions) > 0 {
			return &model.LedgerError{Op: "remove", Err: fmt.Errorf("app %q has versions and cannot be removed", name)}
		}
		s.data.Apps = append(s.data.Apps[:i], s.data.Apps[i+1:]...)
		return s.flushLocked()
	}
	return nil
}

// SetDockerStatus updates the deployment status fields of a version.
func (s *Store) SetDockerStatus(appName, version string, status model.DockerStatus, dockerErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.findLocked(appName)
	if a == nil {
		return &model.LedgerError{Op: "set-status", Err: fmt.Errorf("app %q not found", appName)}
	}
	v := a.FindVersion(version)
	if v == nil {
		return &model.LedgerError{Op: "set-status", Err: fmt.Errorf("version %s not found for app %q", version, appName)}
	}
	v.DockerStatus = status
	v.DockerError = dockerErr
	return s.flushLocked()
}

func (s *Store) findLocked(name string) *model.App {
	for _, a := range s.data.Apps {
		if a.Name == name {
			return a
		}
	}
	return nil
}

func cloneApp(a *model.App) *model.App {
	c := *a
	c.Versions = make([]*model.Version, len(a.Versions))
	for i, v := range a.Versions {
		c.Versions[i] = v.Clone()
	}
	return &c
}
