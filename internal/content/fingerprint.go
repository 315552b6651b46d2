// Package content implements change detection over an app's file set:
// content fingerprints and the pure set diff computed from them.
package content

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"appforge/internal/domain/model"
	"appforge/pkg/log"
)

// UnknownHash marks a file whose content could not be read. One unreadable
// file never aborts the whole batch; it simply fingerprints as unknown and
// will show up as changed on the next readable pass.
const UnknownHash = "unknown"

// Fingerprint computes a content hash per file, reading each path relative
// to dir.
func Fingerprint(dir string, paths []string) map[string]string {
	hashes := make(map[string]string, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(filepath.Join(dir, p))
		if err != nil {
			log.Warn("failed to read file for fingerprinting", "dir", dir, "path", p, "error", err)
			hashes[p] = UnknownHash
			continue
		}
		hashes[p] = hashBytes(data)
	}
	return hashes
}

// FingerprintSet computes a content hash per file of an in-memory file set.
func FingerprintSet(files model.FileSet) map[string]string {
	hashes := make(map[string]string, len(files))
	for p, data := range files {
		hashes[p] = hashBytes(data)
	}
	return hashes
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
