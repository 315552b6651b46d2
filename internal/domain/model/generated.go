package model

// GeneratedApp is the parsed output of one content-generation call: the file
// set extracted from the tagged blocks, an optional explanation of the
// changes, and the count of blocks skipped for unsafe paths.
type GeneratedApp struct {
	Files        FileSet
	Changes      string
	SkippedFiles int
}

// ImprovementTarget is the coarse scope of an improvement intent. It is used
// to focus the generation prompt and as the deterministic fallback when the
// analysis call fails.
type ImprovementTarget string

const (
	TargetFrontend  ImprovementTarget = "frontend"
	TargetBackend   ImprovementTarget = "backend"
	TargetFullstack ImprovementTarget = "fullstack"
)
