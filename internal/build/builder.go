// Package build produces runnable container images for generated apps.
package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"appforge/internal/config"
	"appforge/internal/domain/model"
	"appforge/internal/domain/repository"
	"appforge/pkg/log"
)

// Builder materializes a recipe for an app's detected type and invokes the
// container engine. Retry policy lives in the orchestrator, which has the
// downstream context the builder lacks.
type Builder struct {
	engine   repository.ContainerEngine
	appsPath string
	timeout  time.Duration
}

// NewBuilder creates a builder over the given engine.
func NewBuilder(cfg *config.Config, engine repository.ContainerEngine) *Builder {
	return &Builder{
		engine:   engine,
		appsPath: cfg.GetAppsPath(),
		timeout:  cfg.GetBuildTimeout(),
	}
}

// ImageRef returns the image reference for an app version.
func ImageRef(appName, version string) string {
	return fmt.Sprintf("%s:%s", strings.ToLower(appName), version)
}

// LatestRef returns the floating latest tag for an app.
func LatestRef(appName string) string {
	return fmt.Sprintf("%s:latest", strings.ToLower(appName))
}

// Build writes the recipe into the app's live directory and builds an image
// tagged with both the version and latest. The build plan's tier selects the
// cache sources: a dependency rebuild deliberately reuses nothing so a stale
// dependency layer can never survive a manifest change.
func (b *Builder) Build(ctx context.Context, appName, version string, files model.FileSet, plan model.BuildPlan) (string, error) {
	appDir := filepath.Join(b.appsPath, appName)

	recipe, err := Recipe(plan.AppType, files)
	if err != nil {
		return "", &model.BuildError{App: appName, Version: version, Err: err}
	}
	if err := os.WriteFile(filepath.Join(appDir, "Dockerfile"), []byte(recipe), 0644); err != nil {
		return "", &model.BuildError{App: appName, Version: version, Err: err}
	}
	// node_modules must never leak into the build context.
	ignore := "node_modules\n.git\n"
	if err := os.WriteFile(filepath.Join(appDir, ".dockerignore"), []byte(ignore), 0644); err != nil {
		return "", &model.BuildError{App: appName, Version: version, Err: err}
	}

	imageRef := ImageRef(appName, version)
	tags := []string{imageRef, LatestRef(appName)}

	var cacheFrom []string
	if plan.Tier != model.TierDependencyRebuild {
		cacheFrom = []string{LatestRef(appName)}
	}

	buildCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	start := time.Now()
	if err := b.engine.BuildImage(buildCtx, appDir, tags, cacheFrom); err != nil {
		var buildErr *model.BuildError
		if errors.As(err, &buildErr) {
			buildErr.App = appName
			buildErr.Version = version
			return "", buildErr
		}
		return "", &model.BuildError{App: appName, Version: version, Err: err}
	}

	log.Info("image built", "app", appName, "version", version, "image", imageRef,
		"tier", plan.Tier, "app_type", plan.AppType, "duration", time.Since(start))
	return imageRef, nil
}
