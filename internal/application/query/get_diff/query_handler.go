package get_diff

import (
	"fmt"

	"appforge/internal/content"
	"appforge/internal/ledger"
)

// VersionDiff is the content-level change set between two versions, computed
// from their recorded fingerprints. From is empty when the to-version has no
// parent, in which case every file counts as added.
type VersionDiff struct {
	From    string
	To      string
	Changed []string
	Added   []string
	Removed []string
}

// GetDiffQueryHandler handles the GetDiffQuery
type GetDiffQueryHandler struct {
	store *ledger.Store
}

// Handle executes the GetDiffQuery and returns the result
func (h *GetDiffQueryHandler) Handle(query GetDiffQuery) (*VersionDiff, error) {
	app, err := h.store.GetApp(query.AppName)
	if err != nil {
		return nil, err
	}

	toName := query.ToVersion
	if toName == "" {
		toName = app.CurrentVersion
	}
	to := app.FindVersion(toName)
	if to == nil {
		return nil, fmt.Errorf("version %s not found for app %q", toName, query.AppName)
	}

	fromName := query.FromVersion
	if fromName == "" {
		fromName = to.ParentVersion
	}
	var fromHashes map[string]string
	if fromName != "" {
		from := app.FindVersion(fromName)
		if from == nil {
			return nil, fmt.Errorf("version %s not found for app %q", fromName, query.AppName)
		}
		fromHashes = from.FileHashes
	}

	d := content.Compare(fromHashes, to.FileHashes).Sorted()
	return &VersionDiff{
		From:    fromName,
		To:      to.Version,
		Changed: d.Changed,
		Added:   d.Added,
		Removed: d.Removed,
	}, nil
}

// NewGetDiffQueryHandler creates a new GetDiffQueryHandler
func NewGetDiffQueryHandler(store *ledger.Store) *GetDiffQueryHandler {
	return &GetDiffQueryHandler{store: store}
}
