// Package buildplan decides which build tier a change set requires and
// classifies an app's type from its file set. Both are pure decision
// functions; they exist to bound build latency, never for correctness.
package buildplan

import (
	"path"
	"strings"

	"appforge/internal/content"
	"appforge/internal/domain/model"
)

// ManifestFile is the package manifest whose change always dominates tier
// selection: a stale dependency layer risks silent breakage.
const ManifestFile = "package.json"

// Select computes the build tier for a change set. A dependency-manifest
// change dominates regardless of what else changed. Mixed or unrecognized
// changes, and the first-ever build, fall back to a full rebuild.
func Select(diff content.Diff, firstBuild bool) model.BuildTier {
	if firstBuild {
		return model.TierFullRebuild
	}

	for _, p := range diff.ChangedOrAdded() {
		if path.Base(p) == ManifestFile {
			return model.TierDependencyRebuild
		}
	}

	paths := diff.ChangedOrAdded()
	paths = append(paths, diff.Removed...)
	if len(paths) == 0 {
		return model.TierFullRebuild
	}

	backendOnly := true
	frontendOnly := true
	for _, p := range paths {
		if !isBackendPath(p) {
			backendOnly = false
		}
		if !isFrontendPath(p) {
			frontendOnly = false
		}
	}
	switch {
	case backendOnly:
		return model.TierBackendOnly
	case frontendOnly:
		return model.TierFrontendOnly
	default:
		return model.TierFullRebuild
	}
}

// isBackendPath reports whether a path belongs to the server side of a
// generated app: the entry points at the root plus api/, routes/ and server/
// trees.
func isBackendPath(p string) bool {
	p = path.Clean(p)
	switch p {
	case "server.js", "app.js", "index.js":
		return true
	}
	for _, prefix := range []string{"api/", "routes/", "server/", "middleware/", "models/"} {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// isFrontendPath reports whether a path belongs to the frontend source of a
// generated app.
func isFrontendPath(p string) bool {
	p = path.Clean(p)
	for _, prefix := range []string{"src/", "public/", "assets/", "styles/"} {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	switch path.Ext(p) {
	case ".html", ".css", ".svg":
		return true
	}
	switch p {
	case "vite.config.js", "vite.config.ts", "tailwind.config.js", "postcss.config.js":
		return true
	}
	return false
}
