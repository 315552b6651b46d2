package command

import (
	"context"

	"appforge/internal/application/command/cleanup_backups"
	"appforge/internal/application/command/create_app"
	"appforge/internal/application/command/improve_app"
	"appforge/internal/application/command/retry_build"
	"appforge/internal/application/command/rollback_app"
	"appforge/internal/orchestrator"
	"appforge/pkg/cqrs"
	"appforge/pkg/log"
)

// RegisterCommandHandlers wires every mutating operation onto the command bus.
func RegisterCommandHandlers(ctx context.Context, b *cqrs.CommandBus, orch *orchestrator.Orchestrator) error {
	if err := cqrs.RegisterCommand(b, create_app.NewCreateAppHandler(ctx, orch)); err != nil {
		return log.Errorf("failed to register create app handler: %v", err)
	}

	if err := cqrs.RegisterCommand(b, improve_app.NewImproveAppHandler(ctx, orch)); err != nil {
		return log.Errorf("failed to register improve app handler: %v", err)
	}

	if err := cqrs.RegisterCommand(b, rollback_app.NewRollbackAppHandler(ctx, orch)); err != nil {
		return log.Errorf("failed to register rollback app handler: %v", err)
	}

	if err := cqrs.RegisterCommand(b, retry_build.NewRetryBuildHandler(ctx, orch)); err != nil {
		return log.Errorf("failed to register retry build handler: %v", err)
	}

	if err := cqrs.RegisterCommand(b, cleanup_backups.NewCleanupBackupsHandler(orch)); err != nil {
		return log.Errorf("failed to register cleanup backups handler: %v", err)
	}

	return nil
}
