package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"

	"appforge/internal/domain/model"
	"appforge/internal/generator"
	"appforge/pkg/log"
)

// writeFileSet materializes a generated file set into the app's live
// directory. Paths that fail the safety check or fail to write are skipped
// and counted; the cycle continues with what could be written.
func writeFileSet(appDir string, files model.FileSet) (written []string, skipped int) {
	for _, p := range files.Paths() {
		if !generator.SafeRelPath(p) {
			log.Warn("skipping unsafe file path", "path", p)
			skipped++
			continue
		}
		dst := filepath.Join(appDir, p)
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			log.Warn("skipping file, cannot create parent directory", "path", p, "error", err)
			skipped++
			continue
		}
		if err := os.WriteFile(dst, files[p], 0644); err != nil {
			log.Warn("skipping file, write failed", "path", p, "error", err)
			skipped++
			continue
		}
		written = append(written, p)
	}
	return written, skipped
}

// readFileSet loads the listed files from the app's live directory.
func readFileSet(appDir string, paths []string) (model.FileSet, error) {
	files := make(model.FileSet, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(filepath.Join(appDir, p))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		files[p] = data
	}
	return files, nil
}

// removeFiles deletes files the new version no longer carries, so the build
// context matches the version's file list. Best effort.
func removeFiles(appDir string, paths []string) {
	for _, p := range paths {
		if !generator.SafeRelPath(p) {
			continue
		}
		if err := os.Remove(filepath.Join(appDir, p)); err != nil && !os.IsNotExist(err) {
			log.Warn("failed to remove stale file", "path", p, "error", err)
		}
	}
}
