// Package health decides whether a running container is serving traffic
// correctly within a bounded time budget.
package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"appforge/internal/domain/repository"
	"appforge/pkg/log"
)

const (
	pollInterval = time.Second
	probeTimeout = 3 * time.Second
)

// Checker runs a two-phase check: liveness (the engine reports the container
// running) then readiness (an HTTP probe on the exposed port returns a
// success status). Any network error, timeout or non-success status is
// not-healthy; there is no partial credit.
type Checker struct {
	engine repository.ContainerEngine
	client *http.Client
}

// NewChecker creates a health checker over the given engine.
func NewChecker(engine repository.ContainerEngine) *Checker {
	return &Checker{
		engine: engine,
		client: &http.Client{Timeout: probeTimeout},
	}
}

// Check reports whether the named container serves traffic on port within
// budget. It never blocks past budget and is safe to call on a container
// that never starts: it polls until the deadline and returns false.
func (c *Checker) Check(ctx context.Context, containerName string, port int, budget time.Duration) bool {
	deadline, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	url := fmt.Sprintf("http://localhost:%d/", port)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		running, err := c.engine.IsRunning(deadline, containerName)
		if err != nil {
			log.Warn("liveness check failed", "container", containerName, "error", err)
		} else if running && c.probe(deadline, url) {
			log.Debug("container healthy", "container", containerName, "port", port)
			return true
		}

		select {
		case <-deadline.Done():
			log.Warn("health check budget exhausted", "container", containerName, "port", port)
			return false
		case <-ticker.C:
		}
	}
}

func (c *Checker) probe(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 400
}
