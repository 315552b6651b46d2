package repository

import "context"

// ContainerEngine abstracts the container runtime. Every call returns an
// explicit result; call sites handle or propagate errors rather than
// swallowing them, except where best-effort cleanup is designated.
type ContainerEngine interface {
	// BuildImage builds an image from the given build context directory and
	// tags it with every tag in tags. cacheFrom lists images whose layers may
	// be reused. On failure the returned error is a *model.BuildError
	// carrying the engine's diagnostic output.
	BuildImage(ctx context.Context, contextDir string, tags []string, cacheFrom []string) error

	// RunContainer starts a detached container from image, publishing
	// containerPort on hostPort, and returns the container ID.
	RunContainer(ctx context.Context, image, name string, hostPort, containerPort int) (string, error)

	// StopContainer stops a running container by name.
	StopContainer(ctx context.Context, name string) error

	// RemoveContainer removes a container by name, killing it if needed.
	RemoveContainer(ctx context.Context, name string) error

	// IsRunning reports whether the named container exists and is running.
	// A missing container is (false, nil), not an error.
	IsRunning(ctx context.Context, name string) (bool, error)

	// ContainerLogs returns up to tail lines of the container's combined
	// stdout/stderr output.
	ContainerLogs(ctx context.Context, name string, tail int) (string, error)
}
