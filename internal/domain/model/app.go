package model

import (
	"fmt"
	"time"
)

// App represents a named, independently deployed unit. The name doubles as
// the container and image namespace. The external port is stable across
// versions; it always routes to the container of the active version once a
// deployment settles.
type App struct {
	Name           string     `json:"name"`
	CurrentVersion string     `json:"currentVersion"`
	Port           int        `json:"port"`
	CreatedAt      time.Time  `json:"createdAt"`
	Versions       []*Version `json:"versions"`
}

// ActiveVersion returns the version currently marked active, or nil.
func (a *App) ActiveVersion() *Version {
	for _, v := range a.Versions {
		if v.IsActive {
			return v
		}
	}
	return nil
}

// FindVersion returns the version with the given identifier, or nil.
func (a *App) FindVersion(id string) *Version {
	for _, v := range a.Versions {
		if v.Version == id {
			return v
		}
	}
	return nil
}

// URL returns the externally reachable address of the app.
func (a *App) URL() string {
	return fmt.Sprintf("http://localhost:%d", a.Port)
}

// FileSet maps relative file paths to their content.
type FileSet map[string][]byte

// Paths returns the file paths in the set in unspecified order.
func (fs FileSet) Paths() []string {
	paths := make([]string, 0, len(fs))
	for p := range fs {
		paths = append(paths, p)
	}
	return paths
}
