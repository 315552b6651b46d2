// Package deploy implements the blue-green container swap: the new version
// starts alongside the old one on a temporary port, is validated there, and
// only then takes over the production port.
package deploy

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"appforge/internal/config"
	"appforge/internal/domain/model"
	"appforge/internal/domain/repository"
	"appforge/pkg/log"
)

// State is one step of a deployment attempt's state machine.
type State string

const (
	StateBuilding            State = "BUILDING"
	StateStartedOnTempPort   State = "STARTED_ON_TEMP_PORT"
	StateHealthChecking      State = "HEALTH_CHECKING"
	StateSwapping            State = "SWAPPING"
	StateSwapped             State = "SWAPPED"
	StateFinalHealthChecking State = "FINAL_HEALTH_CHECKING"
	StateDeployed            State = "DEPLOYED"
	StateFailed              State = "FAILED"
)

// TempPortOffset is the fixed distance between an app's production port and
// the temporary port used for pre-swap validation. Because every app owns a
// distinct production port, the offset keeps concurrent deployments of
// different apps from colliding.
const TempPortOffset = 1000

// logTailLines bounds how much container output is attached to a failed
// health check.
const logTailLines = 50

// HealthChecker validates that a container serves traffic on a port within a
// budget.
type HealthChecker interface {
	Check(ctx context.Context, containerName string, port int, budget time.Duration) bool
}

// Attempt is the ephemeral record of one blue-green cycle.
type Attempt struct {
	ID            string
	App           string
	Version       string
	ContainerName string
	Port          int
	TempPort      int
	State         State
	StartedAt     time.Time
	FinishedAt    time.Time
	// RolledBack is set when the attempt failed before the swap: the new
	// container was cleaned up (or never started) and the previously active
	// container was left completely untouched.
	RolledBack bool
	Err        error
}

// Deployer executes deployment attempts against a container engine.
type Deployer struct {
	engine       repository.ContainerEngine
	checker      HealthChecker
	healthBudget time.Duration
}

// NewDeployer creates a blue-green deployer.
func NewDeployer(cfg *config.Config, engine repository.ContainerEngine, checker HealthChecker) *Deployer {
	return &Deployer{
		engine:       engine,
		checker:      checker,
		healthBudget: cfg.GetHealthTimeout(),
	}
}

// ContainerName returns the container name for an app version.
func ContainerName(appName, version string) string {
	return fmt.Sprintf("%s-%s", appName, version)
}

// Deploy runs one blue-green cycle for imageRef. oldContainerName is the
// container of the previously active version; it is left completely
// untouched unless the new version proves healthy on the temporary port.
//
// A failure before the swap cleans up the new container and reports
// RolledBack. A failure after the old container has been stopped is terminal
// for the attempt: the deployer never resurrects the old container, because
// the orchestrator owns recovery (restore from backup, rebuild, redeploy).
func (d *Deployer) Deploy(ctx context.Context, app *model.App, version, imageRef string, containerPort int, oldContainerName string) (*Attempt, error) {
	attempt := &Attempt{
		ID:            uuid.NewString(),
		App:           app.Name,
		Version:       version,
		ContainerName: ContainerName(app.Name, version),
		Port:          app.Port,
		TempPort:      app.Port + TempPortOffset,
		State:         StateBuilding,
		StartedAt:     time.Now(),
	}
	log.Info("deployment attempt started", "attempt", attempt.ID, "app", app.Name,
		"version", version, "port", attempt.Port, "temp_port", attempt.TempPort)

	// A leftover container from an earlier failed attempt of this same
	// version would collide on name or temp port. Best effort; the run below
	// surfaces any real problem.
	if err := d.engine.RemoveContainer(ctx, attempt.ContainerName); err != nil {
		log.Warn("failed to clear stale container", "container", attempt.ContainerName, "error", err)
	}

	if _, err := d.engine.RunContainer(ctx, imageRef, attempt.ContainerName, attempt.TempPort, containerPort); err != nil {
		// The previously active container was never touched.
		attempt.RolledBack = true
		return d.fail(attempt, fmt.Errorf("failed to start container on temp port: %w", err))
	}
	attempt.State = StateStartedOnTempPort

	attempt.State = StateHealthChecking
	if !d.checker.Check(ctx, attempt.ContainerName, attempt.TempPort, d.healthBudget) {
		err := d.healthFailure(ctx, attempt, attempt.TempPort)
		d.cleanupNew(ctx, attempt)
		attempt.RolledBack = true
		return d.fail(attempt, err)
	}

	// The new version is proven healthy; from here on the old container is
	// mutated and the attempt can no longer roll back by itself.
	attempt.State = StateSwapping
	if oldContainerName != "" {
		if err := d.engine.StopContainer(ctx, oldContainerName); err != nil {
			log.Warn("failed to stop previous container before swap", "container", oldContainerName, "error", err)
		}
	}

	// The runtime's port mapping is fixed at container-start time, so the
	// swap is a stop/rebind, not a live remap. This is the bounded
	// unavailability window.
	if err := d.engine.StopContainer(ctx, attempt.ContainerName); err != nil {
		return d.fail(attempt, fmt.Errorf("failed to stop temp binding: %w", err))
	}
	if err := d.engine.RemoveContainer(ctx, attempt.ContainerName); err != nil {
		return d.fail(attempt, fmt.Errorf("failed to remove temp binding: %w", err))
	}
	if _, err := d.engine.RunContainer(ctx, imageRef, attempt.ContainerName, attempt.Port, containerPort); err != nil {
		return d.fail(attempt, fmt.Errorf("failed to rebind container to production port: %w", err))
	}
	attempt.State = StateSwapped

	attempt.State = StateFinalHealthChecking
	if !d.checker.Check(ctx, attempt.ContainerName, attempt.Port, d.healthBudget) {
		return d.fail(attempt, d.healthFailure(ctx, attempt, attempt.Port))
	}

	if oldContainerName != "" {
		if err := d.engine.RemoveContainer(ctx, oldContainerName); err != nil {
			log.Warn("failed to remove previous container after swap", "container", oldContainerName, "error", err)
		}
	}

	attempt.State = StateDeployed
	attempt.FinishedAt = time.Now()
	log.Info("deployment attempt succeeded", "attempt", attempt.ID, "app", app.Name, "version", version)
	return attempt, nil
}

// healthFailure builds a HealthCheckError carrying a bounded tail of the
// container's logs for diagnostics.
func (d *Deployer) healthFailure(ctx context.Context, attempt *Attempt, port int) error {
	logs, err := d.engine.ContainerLogs(ctx, attempt.ContainerName, logTailLines)
	if err != nil {
		log.Warn("failed to fetch logs of unhealthy container", "container", attempt.ContainerName, "error", err)
	}
	return &model.HealthCheckError{Container: attempt.ContainerName, Port: port, Logs: logs}
}

// cleanupNew tears down the just-started container after a pre-swap failure.
// Best effort.
func (d *Deployer) cleanupNew(ctx context.Context, attempt *Attempt) {
	if err := d.engine.StopContainer(ctx, attempt.ContainerName); err != nil {
		log.Warn("failed to stop unhealthy container", "container", attempt.ContainerName, "error", err)
	}
	if err := d.engine.RemoveContainer(ctx, attempt.ContainerName); err != nil {
		log.Warn("failed to remove unhealthy container", "container", attempt.ContainerName, "error", err)
	}
}

func (d *Deployer) fail(attempt *Attempt, err error) (*Attempt, error) {
	attempt.State = StateFailed
	attempt.Err = err
	attempt.FinishedAt = time.Now()
	log.Error("deployment attempt failed", "attempt", attempt.ID, "app", attempt.App,
		"version", attempt.Version, "state", attempt.State, "error", err)
	return attempt, err
}
