package retry_build

import (
	"context"

	"appforge/internal/orchestrator"
	"appforge/pkg/log"
)

// RetryBuildHandler handles the RetryBuildCommand
type RetryBuildHandler struct {
	ctx  context.Context
	orch *orchestrator.Orchestrator
}

// Handle executes the RetryBuildCommand
func (h *RetryBuildHandler) Handle(cmd RetryBuildCommand) error {
	log.Info("processing retry build request", "app", cmd.AppName)

	v, err := h.orch.RetryBuild(h.ctx, cmd.AppName)
	if err != nil {
		return err
	}

	log.Info("retry build succeeded", "app", cmd.AppName, "version", v.Version)
	return nil
}

// NewRetryBuildHandler creates a new RetryBuildHandler
func NewRetryBuildHandler(ctx context.Context, orch *orchestrator.Orchestrator) *RetryBuildHandler {
	return &RetryBuildHandler{ctx: ctx, orch: orch}
}
