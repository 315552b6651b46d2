// Package backup snapshots a version's file set outside the live app
// directory and restores it during rollback. Snapshots are keyed by app name
// and version identifier and mirror the live directory's relative structure.
package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/Masterminds/semver/v3"

	"appforge/internal/config"
	"appforge/internal/domain/model"
	"appforge/pkg/fsutil"
	"appforge/pkg/log"
)

// Manager owns snapshot storage. It never mutates the version ledger; the
// orchestrator is the only writer of ledger state.
type Manager struct {
	appsPath    string
	backupsPath string
}

// NewManager creates a backup manager rooted at the configured paths.
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		appsPath:    cfg.GetAppsPath(),
		backupsPath: cfg.GetBackupsPath(),
	}
}

// SnapshotPath returns the snapshot directory for an app version.
func (m *Manager) SnapshotPath(appName, version string) string {
	return filepath.Join(m.backupsPath, appName, version)
}

// Snapshot copies every file in files from the live app directory into a
// version-scoped snapshot directory, preserving relative paths. Per-file copy
// failures are logged and skipped: a best-effort backup is preferable to
// none. A file absent from the snapshot is not recoverable later.
func (m *Manager) Snapshot(appName, version string, files []string) (string, error) {
	snapshotDir := m.SnapshotPath(appName, version)
	if err := os.MkdirAll(snapshotDir, 0755); err != nil {
		return "", &model.BackupError{App: appName, Version: version, Err: err}
	}

	appDir := filepath.Join(m.appsPath, appName)
	skipped := 0
	for _, p := range files {
		src := filepath.Join(appDir, p)
		dst := filepath.Join(snapshotDir, p)
		if err := fsutil.CopyFile(src, dst); err != nil {
			log.Warn("skipping file during snapshot", "app", appName, "version", version, "path", p, "error", err)
			skipped++
		}
	}

	if skipped == len(files) && len(files) > 0 {
		return "", &model.BackupError{
			App:     appName,
			Version: version,
			Err:     fmt.Errorf("no files could be copied into the snapshot"),
		}
	}
	if skipped > 0 {
		log.Warn("snapshot is partial", "app", appName, "version", version, "skipped", skipped, "total", len(files))
	}

	log.Info("snapshot created", "app", appName, "version", version, "path", snapshotDir, "files", len(files)-skipped)
	return snapshotDir, nil
}

// Restore copies every listed file from the snapshot back into the live app
// directory, overwriting current content. Idempotent: running it twice yields
// the same end state. Fails with a RestoreError if the snapshot directory
// does not exist or the caller has no record of the version's file list.
func (m *Manager) Restore(appName, version string, files []string) error {
	snapshotDir := m.SnapshotPath(appName, version)
	if !fsutil.DirExists(snapshotDir) {
		return &model.RestoreError{
			App:     appName,
			Version: version,
			Err:     fmt.Errorf("snapshot directory %s does not exist", snapshotDir),
		}
	}
	if len(files) == 0 {
		return &model.RestoreError{
			App:     appName,
			Version: version,
			Err:     fmt.Errorf("no file list recorded for version"),
		}
	}

	appDir := filepath.Join(m.appsPath, appName)
	for _, p := range files {
		src := filepath.Join(snapshotDir, p)
		dst := filepath.Join(appDir, p)
		if err := fsutil.CopyFile(src, dst); err != nil {
			return &model.RestoreError{App: appName, Version: version, Err: err}
		}
	}

	log.Info("snapshot restored", "app", appName, "version", version, "files", len(files))
	return nil
}

// Cleanup keeps the keep most recent snapshots for an app and deletes older
// ones. The snapshot of the currently active version is never deleted,
// regardless of age.
func (m *Manager) Cleanup(appName string, keep int, activeVersion string) error {
	appBackupDir := filepath.Join(m.backupsPath, appName)
	entries, err := os.ReadDir(appBackupDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read backup directory %s: %w", appBackupDir, err)
	}

	var versions []string
	for _, entry := range entries {
		if entry.IsDir() {
			versions = append(versions, entry.Name())
		}
	}
	if len(versions) <= keep {
		return nil
	}

	// Newest first. Version identifiers are semver; directories that do not
	// parse sort last and are pruned first.
	sort.Slice(versions, func(i, j int) bool {
		vi, erri := semver.NewVersion(versions[i])
		vj, errj := semver.NewVersion(versions[j])
		if erri != nil || errj != nil {
			return errj != nil && erri == nil
		}
		return vi.GreaterThan(vj)
	})

	for _, v := range versions[keep:] {
		if v == activeVersion {
			continue
		}
		dir := filepath.Join(appBackupDir, v)
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to delete snapshot %s: %w", dir, err)
		}
		log.Info("pruned old snapshot", "app", appName, "version", v)
	}
	return nil
}
