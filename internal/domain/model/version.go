package model

import "time"

// DockerStatus describes the deployment state of a version's container.
type DockerStatus string

const (
	DockerStatusPending DockerStatus = "pending"
	DockerStatusRunning DockerStatus = "running"
	DockerStatusFailed  DockerStatus = "failed"
	DockerStatusStopped DockerStatus = "stopped"
)

// Version is an immutable (once committed) snapshot of an app. Only the
// IsActive flag and the docker status fields may be flipped afterwards,
// during rollbacks; history itself is append-only.
type Version struct {
	Version       string            `json:"version"`
	Prompt        string            `json:"prompt,omitempty"`
	Improvements  []string          `json:"improvements"`
	ContainerName string            `json:"containerName"`
	Files         []string          `json:"files"`
	FileHashes    map[string]string `json:"fileHashes"`
	Performance   map[string]int64  `json:"performance,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	IsActive      bool              `json:"isActive"`
	DockerStatus  DockerStatus      `json:"dockerStatus"`
	DockerError   string            `json:"dockerError,omitempty"`
	ParentVersion string            `json:"parentVersion,omitempty"`
	ChangedFiles  []string          `json:"changedFiles"`
	AddedFiles    []string          `json:"addedFiles"`
	RemovedFiles  []string          `json:"removedFiles"`
	BackupPath    string            `json:"backupPath,omitempty"`
}

// Clone returns a deep copy of the version so ledger mutations never leak
// into values already handed to callers.
func (v *Version) Clone() *Version {
	if v == nil {
		return nil
	}
	c := *v
	c.Improvements = append([]string(nil), v.Improvements...)
	c.Files = append([]string(nil), v.Files...)
	c.ChangedFiles = append([]string(nil), v.ChangedFiles...)
	c.AddedFiles = append([]string(nil), v.AddedFiles...)
	c.RemovedFiles = append([]string(nil), v.RemovedFiles...)
	if v.FileHashes != nil {
		c.FileHashes = make(map[string]string, len(v.FileHashes))
		for k, h := range v.FileHashes {
			c.FileHashes[k] = h
		}
	}
	if v.Performance != nil {
		c.Performance = make(map[string]int64, len(v.Performance))
		for k, d := range v.Performance {
			c.Performance[k] = d
		}
	}
	return &c
}
