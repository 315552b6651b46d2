package get_app

import (
	"appforge/internal/domain/model"
	"appforge/internal/ledger"
)

// GetAppQueryHandler handles the GetAppQuery
type GetAppQueryHandler struct {
	store *ledger.Store
}

// Handle executes the GetAppQuery and returns the result
func (h *GetAppQueryHandler) Handle(query GetAppQuery) (*model.App, error) {
	return h.store.GetApp(query.AppName)
}

// NewGetAppQueryHandler creates a new GetAppQueryHandler
func NewGetAppQueryHandler(store *ledger.Store) *GetAppQueryHandler {
	return &GetAppQueryHandler{store: store}
}
