package get_apps_status

import (
	"context"

	"appforge/internal/domain/model"
	"appforge/internal/domain/repository"
	"appforge/internal/ledger"
	"appforge/pkg/log"
)

// AppStatus combines an app's ledger record with the observed state of its
// container.
type AppStatus struct {
	Name          string
	Version       string
	Port          int
	URL           string
	DockerStatus  model.DockerStatus
	ContainerUp   bool
	ContainerName string
}

// GetAppsStatusQueryHandler handles the GetAppsStatusQuery
type GetAppsStatusQueryHandler struct {
	ctx    context.Context
	store  *ledger.Store
	engine repository.ContainerEngine
}

// Handle executes the GetAppsStatusQuery. The ledger is the source of truth
// for versions; the engine is probed for whether each active container is
// actually up.
func (h *GetAppsStatusQueryHandler) Handle(query GetAppsStatusQuery) ([]AppStatus, error) {
	var statuses []AppStatus
	for _, app := range h.store.Apps() {
		status := AppStatus{
			Name:    app.Name,
			Version: app.CurrentVersion,
			Port:    app.Port,
			URL:     app.URL(),
		}
		if active := app.ActiveVersion(); active != nil {
			status.DockerStatus = active.DockerStatus
			status.ContainerName = active.ContainerName
			up, err := h.engine.IsRunning(h.ctx, active.ContainerName)
			if err != nil {
				log.Warn("failed to inspect container", "container", active.ContainerName, "error", err)
			}
			status.ContainerUp = up
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// NewGetAppsStatusQueryHandler creates a new GetAppsStatusQueryHandler
func NewGetAppsStatusQueryHandler(ctx context.Context, store *ledger.Store, engine repository.ContainerEngine) *GetAppsStatusQueryHandler {
	return &GetAppsStatusQueryHandler{ctx: ctx, store: store, engine: engine}
}
