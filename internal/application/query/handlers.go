package query

import (
	"context"

	"appforge/internal/application/query/get_app"
	"appforge/internal/application/query/get_apps_status"
	"appforge/internal/application/query/get_diff"
	"appforge/internal/application/query/get_versions"
	"appforge/internal/domain/repository"
	"appforge/internal/ledger"
	"appforge/pkg/cqrs"
	"appforge/pkg/log"
)

// RegisterQueryHandlers wires every read-only operation onto the query bus.
func RegisterQueryHandlers(ctx context.Context, b *cqrs.QueryBus, store *ledger.Store, engine repository.ContainerEngine) error {
	if err := cqrs.RegisterQuery(b, get_app.NewGetAppQueryHandler(store)); err != nil {
		return log.Errorf("failed to register get app query handler: %v", err)
	}

	if err := cqrs.RegisterQuery(b, get_versions.NewGetVersionsQueryHandler(store)); err != nil {
		return log.Errorf("failed to register get versions query handler: %v", err)
	}

	if err := cqrs.RegisterQuery(b, get_diff.NewGetDiffQueryHandler(store)); err != nil {
		return log.Errorf("failed to register get diff query handler: %v", err)
	}

	if err := cqrs.RegisterQuery(b, get_apps_status.NewGetAppsStatusQueryHandler(ctx, store, engine)); err != nil {
		return log.Errorf("failed to register get apps status query handler: %v", err)
	}

	return nil
}
