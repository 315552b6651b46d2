// Package docker implements the ContainerEngine interface against a local
// Docker daemon. Container queries and lifecycle go through the SDK client;
// image builds and runs shell out to the docker CLI, which owns build
// contexts and port publishing.
package docker

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"

	"appforge/internal/domain/model"
	"appforge/internal/domain/repository"
	"appforge/pkg/log"
)

// Engine talks to the local Docker daemon.
type Engine struct {
	client *client.Client
}

var _ repository.ContainerEngine = (*Engine)(nil)

// NewEngine creates a Docker engine adapter and verifies the daemon is
// reachable.
func NewEngine(ctx context.Context) (*Engine, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}
	if _, err := cli.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to Docker daemon: %w", err)
	}
	return &Engine{client: cli}, nil
}

// BuildImage runs `docker build` on the context directory. The engine's
// combined output is captured verbatim (size-bounded) into the returned
// BuildError so the orchestrator can log and display it.
func (e *Engine) BuildImage(ctx context.Context, contextDir string, tags []string, cacheFrom []string) error {
	args := []string{"build"}
	for _, tag := range tags {
		args = append(args, "-t", tag)
	}
	for _, src := range cacheFrom {
		args = append(args, "--cache-from", src)
	}
	args = append(args, contextDir)

	log.Debug("building image", "context", contextDir, "tags", tags)
	cmd := exec.CommandContext(ctx, "docker", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return &model.BuildError{
			Diagnostics: model.TruncateDiagnostics(string(out)),
			Err:         err,
		}
	}
	return nil
}

// RunContainer starts a detached container publishing containerPort on
// hostPort and returns the container ID printed by the engine.
func (e *Engine) RunContainer(ctx context.Context, image, name string, hostPort, containerPort int) (string, error) {
	args := []string{
		"run", "-d",
		"--name", name,
		"-p", fmt.Sprintf("%d:%d", hostPort, containerPort),
		image,
	}

	log.Debug("running container", "image", image, "name", name, "host_port", hostPort)
	cmd := exec.CommandContext(ctx, "docker", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("failed to run container %s: %w: %s", name, err, model.TruncateDiagnostics(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}

// StopContainer stops a running container by name.
func (e *Engine) StopContainer(ctx context.Context, name string) error {
	if err := e.client.ContainerStop(ctx, name, container.StopOptions{}); err != nil {
		if client.IsErrNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to stop container %s: %w", name, err)
	}
	return nil
}

// RemoveContainer force-removes a container by name. Removing a container
// that does not exist is not an error.
func (e *Engine) RemoveContainer(ctx context.Context, name string) error {
	err := e.client.ContainerRemove(ctx, name, container.RemoveOptions{Force: true})
	if err != nil && !client.IsErrNotFound(err) {
		return fmt.Errorf("failed to remove container %s: %w", name, err)
	}
	return nil
}

// IsRunning reports the engine's running state for the named container. A
// missing container is simply not running.
func (e *Engine) IsRunning(ctx context.Context, name string) (bool, error) {
	inspect, err := e.client.ContainerInspect(ctx, name)
	if err != nil {
		if client.IsErrNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to inspect container %s: %w", name, err)
	}
	return inspect.State != nil && inspect.State.Running, nil
}

// ContainerLogs returns up to tail lines of combined output. The raw stream
// is multiplexed by the engine; the 8-byte frame headers are tolerable noise
// in diagnostics, so the stream is read as-is.
func (e *Engine) ContainerLogs(ctx context.Context, name string, tail int) (string, error) {
	reader, err := e.client.ContainerLogs(ctx, name, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       strconv.Itoa(tail),
	})
	if err != nil {
		if client.IsErrNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to fetch logs for container %s: %w", name, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read logs for container %s: %w", name, err)
	}
	return model.TruncateDiagnostics(string(data)), nil
}
