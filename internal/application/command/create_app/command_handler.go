package create_app

import (
	"context"

	"appforge/internal/orchestrator"
	"appforge/pkg/log"
)

// CreateAppHandler handles the CreateAppCommand
type CreateAppHandler struct {
	ctx  context.Context
	orch *orchestrator.Orchestrator
}

// Handle executes the CreateAppCommand
func (h *CreateAppHandler) Handle(cmd CreateAppCommand) error {
	log.Info("processing create app request", "app", cmd.AppName)

	v, err := h.orch.CreateApp(h.ctx, cmd.AppName, cmd.Prompt)
	if err != nil {
		return err
	}

	log.Info("app created", "app", cmd.AppName, "version", v.Version)
	return nil
}

// NewCreateAppHandler creates a new CreateAppHandler
func NewCreateAppHandler(ctx context.Context, orch *orchestrator.Orchestrator) *CreateAppHandler {
	return &CreateAppHandler{ctx: ctx, orch: orch}
}
