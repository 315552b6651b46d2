package repository

import (
	"context"

	"appforge/internal/domain/model"
)

// Generator is the external content-generation collaborator: prompt in,
// parsed file set out. How the text is produced is opaque to the core.
type Generator interface {
	// GenerateApp produces the initial file set for a new app.
	GenerateApp(ctx context.Context, prompt string) (*model.GeneratedApp, error)

	// ImproveApp produces an updated file set for an existing app given an
	// improvement intent. Unchanged files must be returned too; the result is
	// the complete file set of the next version.
	ImproveApp(ctx context.Context, appName string, files model.FileSet, intent string) (*model.GeneratedApp, error)

	// SuggestFix produces a corrected file set after a failed build, given
	// the engine's diagnostics. Called at most once per retry attempt.
	SuggestFix(ctx context.Context, appName string, files model.FileSet, diagnostics string) (*model.GeneratedApp, error)
}
