// Package orchestrator drives the full improvement cycle: backup, generate,
// write, plan, build, deploy, commit. It is the only component that mutates
// the ledger, and every failure path either leaves the previous version
// untouched or restores it from its snapshot.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"appforge/internal/backup"
	"appforge/internal/build"
	"appforge/internal/buildplan"
	"appforge/internal/config"
	"appforge/internal/content"
	"appforge/internal/deploy"
	"appforge/internal/domain/model"
	"appforge/internal/domain/repository"
	"appforge/internal/ledger"
	"appforge/pkg/backoff"
	"appforge/pkg/log"
)

// appNamePattern constrains app names to what container and image names (and
// URLs) accept.
var appNamePattern = regexp.MustCompile(`^[a-z][a-z0-9-]{0,29}$`)

// Orchestrator coordinates one improvement cycle at a time per app. Cycles
// for different apps run concurrently.
type Orchestrator struct {
	cfg      *config.Config
	store    *ledger.Store
	backups  *backup.Manager
	builder  *build.Builder
	deployer *deploy.Deployer
	engine   repository.ContainerEngine
	gen      repository.Generator
	locks    *appLocks
}

// New wires an orchestrator from its collaborators.
func New(cfg *config.Config, store *ledger.Store, backups *backup.Manager, builder *build.Builder,
	deployer *deploy.Deployer, engine repository.ContainerEngine, gen repository.Generator) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		store:    store,
		backups:  backups,
		builder:  builder,
		deployer: deployer,
		engine:   engine,
		gen:      gen,
		locks:    newAppLocks(),
	}
}

// CreateApp generates a new app from a prompt, builds and deploys it and
// records it as v1.0.0. On failure the app registration is unwound so the
// name can be reused.
func (o *Orchestrator) CreateApp(ctx context.Context, name, prompt string) (*model.Version, error) {
	if !appNamePattern.MatchString(name) {
		return nil, fmt.Errorf("invalid app name %q: must match %s", name, appNamePattern)
	}
	unlock := o.locks.Acquire(name)
	defer unlock()

	generated, err := o.gen.GenerateApp(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	app, err := o.store.CreateApp(name)
	if err != nil {
		return nil, err
	}

	appDir := o.cfg.GetAppPath(name)
	written, skipped := writeFileSet(appDir, generated.Files)
	if skipped > 0 {
		log.Warn("some generated files were skipped", "app", name, "skipped", skipped)
	}
	if len(written) == 0 {
		o.unwindCreate(ctx, name, "")
		return nil, fmt.Errorf("no files could be written for app %q", name)
	}

	plan := model.BuildPlan{
		Tier:    model.TierFullRebuild,
		AppType: buildplan.DetectAppType(generated.Files),
	}

	imageRef, files, buildDur, err := o.buildWithRetries(ctx, name, ledger.InitialVersion, generated.Files, plan, true)
	if err != nil {
		o.unwindCreate(ctx, name, "")
		return nil, err
	}

	deployStart := time.Now()
	attempt, err := o.deployer.Deploy(ctx, app, ledger.InitialVersion, imageRef, plan.AppType.ContainerPort(), "")
	if err != nil {
		containerName := ""
		if attempt != nil {
			containerName = attempt.ContainerName
		}
		o.unwindCreate(ctx, name, containerName)
		return nil, err
	}

	paths := files.Paths()
	sort.Strings(paths)
	hashes := content.Fingerprint(appDir, paths)

	backupPath, err := o.backups.Snapshot(name, ledger.InitialVersion, paths)
	if err != nil {
		log.Warn("initial snapshot failed, rollback to v1.0.0 will not be possible until the next cycle",
			"app", name, "error", err)
		backupPath = ""
	}

	v := &model.Version{
		Version:       ledger.InitialVersion,
		Prompt:        prompt,
		Improvements:  []string{},
		ContainerName: attempt.ContainerName,
		Files:         paths,
		FileHashes:    hashes,
		Performance:   performance(buildDur, time.Since(deployStart)),
		CreatedAt:     time.Now().UTC(),
		DockerStatus:  model.DockerStatusRunning,
		ChangedFiles:  []string{},
		AddedFiles:    paths,
		RemovedFiles:  []string{},
		BackupPath:    backupPath,
	}
	if err := o.store.Commit(name, v); err != nil {
		// A registered app without a committed version is unusable; unwind the
		// registration and stop what the failed creation left running.
		o.unwindCreate(ctx, name, attempt.ContainerName)
		return nil, err
	}

	log.Info("app created", "app", name, "version", v.Version, "url", app.URL())
	return v, nil
}

// Improve runs one improvement cycle against the app's active version. On any
// failure the active version keeps serving: pre-deployment failures restore
// the live directory from the snapshot, post-swap failures additionally
// rebuild and redeploy the previous version.
func (o *Orchestrator) Improve(ctx context.Context, appName, intent string) (*model.Version, error) {
	unlock := o.locks.Acquire(appName)
	defer unlock()

	app, err := o.store.GetApp(appName)
	if err != nil {
		return nil, err
	}
	prev, err := o.store.CurrentVersion(appName)
	if err != nil {
		return nil, err
	}

	appDir := o.cfg.GetAppPath(appName)
	prevFiles, err := readFileSet(appDir, prev.Files)
	if err != nil {
		return nil, fmt.Errorf("failed to load files of version %s: %w", prev.Version, err)
	}

	// Nothing is mutated until the current version has a snapshot to come
	// back to.
	backupPath, err := o.backups.Snapshot(appName, prev.Version, prev.Files)
	if err != nil {
		return nil, err
	}
	if err := o.store.SetBackupPath(appName, prev.Version, backupPath); err != nil {
		log.Warn("failed to record backup path", "app", appName, "version", prev.Version, "error", err)
	}

	generated, err := o.gen.ImproveApp(ctx, appName, prevFiles, intent)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	written, skipped := writeFileSet(appDir, generated.Files)
	if skipped > 0 {
		log.Warn("some generated files were skipped", "app", appName, "skipped", skipped)
	}
	if len(written) == 0 {
		return nil, fmt.Errorf("no files could be written for app %q", appName)
	}

	newHashes := content.Fingerprint(appDir, generated.Files.Paths())
	diff := content.Compare(prev.FileHashes, newHashes).Sorted()
	if diff.Empty() {
		return nil, fmt.Errorf("improvement produced no content changes for app %q", appName)
	}
	removeFiles(appDir, diff.Removed)

	nextID, err := ledger.NextVersion(prev.Version, diff.ChangedOrAdded())
	if err != nil {
		return nil, o.failRestoring(appName, prev, generated.Files.Paths(), err)
	}

	plan := model.BuildPlan{
		Tier:    buildplan.Select(diff, false),
		AppType: buildplan.DetectAppType(generated.Files),
	}
	log.Info("improvement planned", "app", appName, "version", nextID, "tier", plan.Tier,
		"app_type", plan.AppType, "changed", len(diff.Changed), "added", len(diff.Added), "removed", len(diff.Removed))

	imageRef, files, buildDur, err := o.buildWithRetries(ctx, appName, nextID, generated.Files, plan, true)
	if err != nil {
		// Applied fix suggestions are merged into generated.Files, so its
		// paths cover everything the failed cycle may have written.
		return nil, o.failRestoring(appName, prev, generated.Files.Paths(), err)
	}

	deployStart := time.Now()
	attempt, err := o.deployer.Deploy(ctx, app, nextID, imageRef, plan.AppType.ContainerPort(), prev.ContainerName)
	if err != nil {
		if attempt != nil && attempt.RolledBack {
			// Pre-swap failure: the previous container never stopped serving.
			return nil, o.failRestoring(appName, prev, files.Paths(), err)
		}
		if rerr := o.recoverPrevious(ctx, app, prev, nextID, files.Paths()); rerr != nil {
			return nil, fmt.Errorf("deployment failed and recovery of %s also failed: %v (deploy error: %w)",
				prev.Version, rerr, err)
		}
		return nil, err
	}

	// An applied fix suggestion may have changed files after the diff was
	// computed; the ledger records what is actually on disk.
	paths := files.Paths()
	sort.Strings(paths)
	finalHashes := content.Fingerprint(appDir, paths)
	finalDiff := content.Compare(prev.FileHashes, finalHashes).Sorted()

	v := &model.Version{
		Version:       nextID,
		Prompt:        prev.Prompt,
		Improvements:  append(append([]string{}, prev.Improvements...), intent),
		ContainerName: attempt.ContainerName,
		Files:         paths,
		FileHashes:    finalHashes,
		Performance:   performance(buildDur, time.Since(deployStart)),
		CreatedAt:     time.Now().UTC(),
		DockerStatus:  model.DockerStatusRunning,
		ParentVersion: prev.Version,
		ChangedFiles:  finalDiff.Changed,
		AddedFiles:    finalDiff.Added,
		RemovedFiles:  finalDiff.Removed,
	}
	if err := o.store.Commit(appName, v); err != nil {
		// The new container is live but unrecorded. The ledger stays the
		// source of truth, so the infrastructure is brought back to it.
		if rerr := o.recoverPrevious(ctx, app, prev, nextID, paths); rerr != nil {
			return nil, fmt.Errorf("commit failed and recovery of %s also failed: %v (commit error: %w)",
				prev.Version, rerr, err)
		}
		return nil, err
	}

	if err := o.backups.Cleanup(appName, o.cfg.KeepBackups, nextID); err != nil {
		log.Warn("backup retention failed", "app", appName, "error", err)
	}

	log.Info("improvement deployed", "app", appName, "version", nextID, "parent", prev.Version, "url", app.URL())
	return v, nil
}

// Rollback re-activates a previously committed version: its files are
// restored from the snapshot, its image rebuilt and deployed blue-green, and
// the active flag flipped. History is never rewritten.
func (o *Orchestrator) Rollback(ctx context.Context, appName, targetVersion string) error {
	unlock := o.locks.Acquire(appName)
	defer unlock()

	app, err := o.store.GetApp(appName)
	if err != nil {
		return err
	}
	target := app.FindVersion(targetVersion)
	if target == nil {
		return fmt.Errorf("version %s not found for app %q", targetVersion, appName)
	}
	if targetVersion == app.CurrentVersion {
		return fmt.Errorf("version %s is already active for app %q", targetVersion, appName)
	}

	// Snapshot the active version first so a later roll-forward to it is
	// possible.
	current := app.ActiveVersion()
	if current != nil {
		backupPath, err := o.backups.Snapshot(appName, current.Version, current.Files)
		if err != nil {
			return err
		}
		if err := o.store.SetBackupPath(appName, current.Version, backupPath); err != nil {
			log.Warn("failed to record backup path", "app", appName, "version", current.Version, "error", err)
		}
	}

	if err := o.backups.Restore(appName, target.Version, target.Files); err != nil {
		return err
	}
	appDir := o.cfg.GetAppPath(appName)
	if current != nil {
		removeFiles(appDir, missingFrom(current.Files, target.Files))
	}

	files, err := readFileSet(appDir, target.Files)
	if err != nil {
		return fmt.Errorf("failed to load restored files of version %s: %w", target.Version, err)
	}
	plan := model.BuildPlan{
		Tier:    model.TierFullRebuild,
		AppType: buildplan.DetectAppType(files),
	}
	imageRef, err := o.builder.Build(ctx, appName, target.Version, files, plan)
	if err != nil {
		return o.failRestoring(appName, current, target.Files, err)
	}

	oldContainer := ""
	if current != nil {
		oldContainer = current.ContainerName
	}
	attempt, err := o.deployer.Deploy(ctx, app, target.Version, imageRef, plan.AppType.ContainerPort(), oldContainer)
	if err != nil {
		if attempt != nil && attempt.RolledBack {
			return o.failRestoring(appName, current, target.Files, err)
		}
		if current != nil {
			if rerr := o.recoverPrevious(ctx, app, current, target.Version, target.Files); rerr != nil {
				return fmt.Errorf("rollback deployment failed and recovery of %s also failed: %v (deploy error: %w)",
					current.Version, rerr, err)
			}
		}
		return err
	}

	if err := o.store.Activate(appName, target.Version, model.DockerStatusRunning); err != nil {
		return err
	}

	log.Info("rollback complete", "app", appName, "version", target.Version, "url", app.URL())
	return nil
}

// RetryBuild rebuilds and redeploys the active version from the live
// directory. It repairs an app whose container died or whose last deployment
// left it in a failed state; the version record itself is immutable, so no
// fix suggestions are applied.
func (o *Orchestrator) RetryBuild(ctx context.Context, appName string) (*model.Version, error) {
	unlock := o.locks.Acquire(appName)
	defer unlock()

	app, err := o.store.GetApp(appName)
	if err != nil {
		return nil, err
	}
	current, err := o.store.CurrentVersion(appName)
	if err != nil {
		return nil, err
	}

	appDir := o.cfg.GetAppPath(appName)
	files, err := readFileSet(appDir, current.Files)
	if err != nil {
		return nil, fmt.Errorf("failed to load files of version %s: %w", current.Version, err)
	}

	plan := model.BuildPlan{
		Tier:    model.TierFullRebuild,
		AppType: buildplan.DetectAppType(files),
	}
	imageRef, _, _, err := o.buildWithRetries(ctx, appName, current.Version, files, plan, false)
	if err != nil {
		if serr := o.store.SetDockerStatus(appName, current.Version, model.DockerStatusFailed, err.Error()); serr != nil {
			log.Warn("failed to record failed status", "app", appName, "error", serr)
		}
		return nil, err
	}

	if _, err := o.deployer.Deploy(ctx, app, current.Version, imageRef, plan.AppType.ContainerPort(), ""); err != nil {
		if serr := o.store.SetDockerStatus(appName, current.Version, model.DockerStatusFailed, err.Error()); serr != nil {
			log.Warn("failed to record failed status", "app", appName, "error", serr)
		}
		return nil, err
	}
	if err := o.store.SetDockerStatus(appName, current.Version, model.DockerStatusRunning, ""); err != nil {
		log.Warn("failed to record running status", "app", appName, "error", err)
	}

	log.Info("retry build succeeded", "app", appName, "version", current.Version, "url", app.URL())
	return o.store.CurrentVersion(appName)
}

// CleanupBackups applies the retention policy to an app's snapshots.
func (o *Orchestrator) CleanupBackups(appName string) error {
	unlock := o.locks.Acquire(appName)
	defer unlock()

	app, err := o.store.GetApp(appName)
	if err != nil {
		return err
	}
	return o.backups.Cleanup(appName, o.cfg.KeepBackups, app.CurrentVersion)
}

// buildWithRetries builds the image with a bounded number of attempts. When
// autofix is set, build diagnostics are fed back to the generator between
// attempts and any suggested corrections are written into the live directory
// and merged into the working file set. Returns the file set actually built.
func (o *Orchestrator) buildWithRetries(ctx context.Context, appName, version string, files model.FileSet,
	plan model.BuildPlan, autofix bool) (string, model.FileSet, time.Duration, error) {
	appDir := o.cfg.GetAppPath(appName)
	bo := backoff.New(time.Second, 30*time.Second)
	start := time.Now()

	var lastErr error
	for attempt := 1; attempt <= o.cfg.BuildRetries; attempt++ {
		imageRef, err := o.builder.Build(ctx, appName, version, files, plan)
		if err == nil {
			return imageRef, files, time.Since(start), nil
		}
		lastErr = err
		log.Warn("build attempt failed", "app", appName, "version", version,
			"attempt", attempt, "of", o.cfg.BuildRetries, "error", err)

		if attempt == o.cfg.BuildRetries {
			break
		}

		var buildErr *model.BuildError
		if autofix && errors.As(err, &buildErr) && buildErr.Diagnostics != "" {
			fixed, fixErr := o.gen.SuggestFix(ctx, appName, files, buildErr.Diagnostics)
			if fixErr != nil {
				log.Warn("fix suggestion failed", "app", appName, "error", fixErr)
			} else if len(fixed.Files) > 0 {
				written, _ := writeFileSet(appDir, fixed.Files)
				for _, p := range written {
					files[p] = fixed.Files[p]
				}
				log.Info("applied suggested fix", "app", appName, "files", len(written))
			}
		}

		select {
		case <-ctx.Done():
			return "", nil, 0, ctx.Err()
		case <-time.After(bo.Next()):
		}
	}
	return "", nil, 0, lastErr
}

// failRestoring restores the live directory to prev and returns cause, or a
// combined error when even the restore fails. attemptedPaths lists the files
// the failed cycle wrote; any of them not part of prev are deleted, since the
// snapshot only overwrites and cannot unwrite an added file. prev may be nil
// when there is nothing to restore.
func (o *Orchestrator) failRestoring(appName string, prev *model.Version, attemptedPaths []string, cause error) error {
	if prev == nil {
		return cause
	}
	if err := o.backups.Restore(appName, prev.Version, prev.Files); err != nil {
		log.Error("restore after failed cycle failed", "app", appName, "version", prev.Version, "error", err)
		return fmt.Errorf("cycle failed and restore of %s also failed: %v (cause: %w)", prev.Version, err, cause)
	}
	removeFiles(o.cfg.GetAppPath(appName), missingFrom(attemptedPaths, prev.Files))
	return cause
}

// recoverPrevious rebuilds and redeploys prev after a post-swap failure left
// the app without a healthy container. The failed attempt's container is
// cleared first so the production port is free, and files the failed cycle
// added on top of prev are deleted along with the restore.
func (o *Orchestrator) recoverPrevious(ctx context.Context, app *model.App, prev *model.Version,
	failedVersion string, attemptedPaths []string) error {
	if err := o.backups.Restore(app.Name, prev.Version, prev.Files); err != nil {
		return err
	}
	removeFiles(o.cfg.GetAppPath(app.Name), missingFrom(attemptedPaths, prev.Files))

	failedName := deploy.ContainerName(app.Name, failedVersion)
	if err := o.engine.StopContainer(ctx, failedName); err != nil {
		log.Warn("failed to stop container of failed attempt", "container", failedName, "error", err)
	}
	if err := o.engine.RemoveContainer(ctx, failedName); err != nil {
		log.Warn("failed to remove container of failed attempt", "container", failedName, "error", err)
	}

	appDir := o.cfg.GetAppPath(app.Name)
	files, err := readFileSet(appDir, prev.Files)
	if err != nil {
		return err
	}
	plan := model.BuildPlan{
		Tier:    model.TierFullRebuild,
		AppType: buildplan.DetectAppType(files),
	}
	imageRef, err := o.builder.Build(ctx, app.Name, prev.Version, files, plan)
	if err != nil {
		return err
	}
	if _, err := o.deployer.Deploy(ctx, app, prev.Version, imageRef, plan.AppType.ContainerPort(), ""); err != nil {
		return err
	}
	if err := o.store.SetDockerStatus(app.Name, prev.Version, model.DockerStatusRunning, ""); err != nil {
		log.Warn("failed to record running status", "app", app.Name, "version", prev.Version, "error", err)
	}

	log.Info("previous version recovered", "app", app.Name, "version", prev.Version)
	return nil
}

// unwindCreate rolls back a failed creation: any container the attempt left
// behind is stopped and removed (best effort), then the app registration is
// dropped so the name can be reused.
func (o *Orchestrator) unwindCreate(ctx context.Context, name, containerName string) {
	if containerName != "" {
		if err := o.engine.StopContainer(ctx, containerName); err != nil {
			log.Warn("failed to stop container after failed creation", "container", containerName, "error", err)
		}
		if err := o.engine.RemoveContainer(ctx, containerName); err != nil {
			log.Warn("failed to remove container after failed creation", "container", containerName, "error", err)
		}
	}
	if err := o.store.RemoveApp(name); err != nil {
		log.Warn("failed to unregister app after failed creation", "app", name, "error", err)
	}
}

func performance(buildDur, deployDur time.Duration) map[string]int64 {
	return map[string]int64{
		"buildMs":  buildDur.Milliseconds(),
		"deployMs": deployDur.Milliseconds(),
	}
}

// missingFrom returns the elements of a that are not in b.
func missingFrom(a, b []string) []string {
	in := make(map[string]struct{}, len(b))
	for _, p := range b {
		in[p] = struct{}{}
	}
	var out []string
	for _, p := range a {
		if _, ok := in[p]; !ok {
			out = append(out, p)
		}
	}
	return out
}
