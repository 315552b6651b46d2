package improve_app

import (
	"context"

	"appforge/internal/orchestrator"
	"appforge/pkg/log"
)

// ImproveAppHandler handles the ImproveAppCommand
type ImproveAppHandler struct {
	ctx  context.Context
	orch *orchestrator.Orchestrator
}

// Handle executes the ImproveAppCommand
func (h *ImproveAppHandler) Handle(cmd ImproveAppCommand) error {
	log.Info("processing improve app request", "app", cmd.AppName, "intent", cmd.Intent)

	v, err := h.orch.Improve(h.ctx, cmd.AppName, cmd.Intent)
	if err != nil {
		return err
	}

	log.Info("improvement deployed", "app", cmd.AppName, "version", v.Version)
	return nil
}

// NewImproveAppHandler creates a new ImproveAppHandler
func NewImproveAppHandler(ctx context.Context, orch *orchestrator.Orchestrator) *ImproveAppHandler {
	return &ImproveAppHandler{ctx: ctx, orch: orch}
}
