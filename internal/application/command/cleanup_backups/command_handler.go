package cleanup_backups

import (
	"appforge/internal/orchestrator"
	"appforge/pkg/log"
)

// CleanupBackupsHandler handles the CleanupBackupsCommand
type CleanupBackupsHandler struct {
	orch *orchestrator.Orchestrator
}

// Handle executes the CleanupBackupsCommand
func (h *CleanupBackupsHandler) Handle(cmd CleanupBackupsCommand) error {
	log.Info("processing cleanup backups request", "app", cmd.AppName)
	return h.orch.CleanupBackups(cmd.AppName)
}

// NewCleanupBackupsHandler creates a new CleanupBackupsHandler
func NewCleanupBackupsHandler(orch *orchestrator.Orchestrator) *CleanupBackupsHandler {
	return &CleanupBackupsHandler{orch: orch}
}
