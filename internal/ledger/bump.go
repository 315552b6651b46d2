package ledger

import (
	"fmt"
	"path"
	"strings"

	"github.com/Masterminds/semver/v3"

	"appforge/internal/buildplan"
)

// InitialVersion is the identifier of every app's first committed version.
const InitialVersion = "v1.0.0"

// NextVersion computes the identifier following current for a change set.
// A dependency-manifest change bumps MINOR (resetting PATCH); any other
// change bumps PATCH. MAJOR never auto-increments. This is a heuristic that
// trades precision for simplicity, not a semantic-versioning proof.
func NextVersion(current string, changeSet []string) (string, error) {
	v, err := semver.NewVersion(strings.TrimPrefix(current, "v"))
	if err != nil {
		return "", fmt.Errorf("cannot parse version %q: %w", current, err)
	}

	manifestChanged := false
	for _, p := range changeSet {
		if path.Base(p) == buildplan.ManifestFile {
			manifestChanged = true
			break
		}
	}

	var next semver.Version
	if manifestChanged {
		next = v.IncMinor()
	} else {
		next = v.IncPatch()
	}
	return "v" + next.String(), nil
}
