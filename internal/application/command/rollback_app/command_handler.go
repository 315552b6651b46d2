package rollback_app

import (
	"context"

	"appforge/internal/orchestrator"
	"appforge/pkg/log"
)

// RollbackAppHandler handles the RollbackAppCommand
type RollbackAppHandler struct {
	ctx  context.Context
	orch *orchestrator.Orchestrator
}

// Handle executes the RollbackAppCommand
func (h *RollbackAppHandler) Handle(cmd RollbackAppCommand) error {
	log.Info("processing rollback request", "app", cmd.AppName, "target", cmd.TargetVersion)
	return h.orch.Rollback(h.ctx, cmd.AppName, cmd.TargetVersion)
}

// NewRollbackAppHandler creates a new RollbackAppHandler
func NewRollbackAppHandler(ctx context.Context, orch *orchestrator.Orchestrator) *RollbackAppHandler {
	return &RollbackAppHandler{ctx: ctx, orch: orch}
}
