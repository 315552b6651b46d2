package model

import "fmt"

// maxDiagnostics bounds how much verbatim engine output is carried inside a
// BuildError so a runaway build log cannot blow up the ledger or terminal.
const maxDiagnostics = 8 * 1024

// TruncateDiagnostics bounds raw engine output, keeping the tail where the
// actual failure usually is.
func TruncateDiagnostics(out string) string {
	if len(out) <= maxDiagnostics {
		return out
	}
	return "..." + out[len(out)-maxDiagnostics:]
}

// AnalysisError indicates the content-generation collaborator failed or
// returned unparseable content. It is always recovered locally via the
// keyword fallback and never surfaced as fatal.
type AnalysisError struct {
	Intent string
	Err    error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis of intent %q failed: %v", e.Intent, e.Err)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// BuildError carries the container engine's diagnostic output verbatim
// (size-bounded). Build failure is an expected, recoverable outcome.
type BuildError struct {
	App         string
	Version     string
	Diagnostics string
	Err         error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build of %s %s failed: %v", e.App, e.Version, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// HealthCheckError is terminal for the current deployment attempt.
type HealthCheckError struct {
	Container string
	Port      int
	Logs      string
}

func (e *HealthCheckError) Error() string {
	return fmt.Sprintf("container %s failed health check on port %d", e.Container, e.Port)
}

// BackupError indicates a snapshot could not be taken at all. Per-file copy
// failures inside a snapshot are logged and skipped instead.
type BackupError struct {
	App     string
	Version string
	Err     error
}

func (e *BackupError) Error() string {
	return fmt.Sprintf("backup of %s %s failed: %v", e.App, e.Version, e.Err)
}

func (e *BackupError) Unwrap() error { return e.Err }

// RestoreError is fatal and user-visible: the system must never proceed as if
// a backup existed when it does not.
type RestoreError struct {
	App     string
	Version string
	Err     error
}

func (e *RestoreError) Error() string {
	return fmt.Sprintf("restore of %s %s failed: %v", e.App, e.Version, e.Err)
}

func (e *RestoreError) Unwrap() error { return e.Err }

// LedgerError indicates the persisted ledger could not be read or written.
// The ledger is the source of truth, so failing to persist a commit is never
// treated as success even if a container is running.
type LedgerError struct {
	Op  string
	Err error
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("ledger %s failed: %v", e.Op, e.Err)
}

func (e *LedgerError) Unwrap() error { return e.Err }
