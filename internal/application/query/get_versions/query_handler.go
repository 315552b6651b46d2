package get_versions

import (
	"appforge/internal/domain/model"
	"appforge/internal/ledger"
)

// GetVersionsQueryHandler handles the GetVersionsQuery
type GetVersionsQueryHandler struct {
	store *ledger.Store
}

// Handle executes the GetVersionsQuery and returns the app's version history
// in commit order.
func (h *GetVersionsQueryHandler) Handle(query GetVersionsQuery) ([]*model.Version, error) {
	app, err := h.store.GetApp(query.AppName)
	if err != nil {
		return nil, err
	}
	return app.Versions, nil
}

// NewGetVersionsQueryHandler creates a new GetVersionsQueryHandler
func NewGetVersionsQueryHandler(store *ledger.Store) *GetVersionsQueryHandler {
	return &GetVersionsQueryHandler{store: store}
}
