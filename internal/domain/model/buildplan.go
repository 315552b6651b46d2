package model

// BuildTier is the granularity of rebuild work required for a change set.
// It is an optimization hint to the container builder, never a correctness
// requirement; every tier must still produce a correct image.
type BuildTier string

const (
	// TierDependencyRebuild is the slowest tier: the package manifest
	// changed, so the dependency layer must be reinstalled.
	TierDependencyRebuild BuildTier = "dependency-rebuild"
	// TierBackendOnly rebuilds only the server layers.
	TierBackendOnly BuildTier = "backend-only"
	// TierFrontendOnly rebuilds only the frontend asset layers.
	TierFrontendOnly BuildTier = "frontend-only"
	// TierFullRebuild rebuilds everything; also used for first builds and
	// unrecognized change sets.
	TierFullRebuild BuildTier = "full-rebuild"
)

// AppType classifies what kind of application a file set describes. It
// selects the container recipe.
type AppType string

const (
	AppTypeFrontendOnly AppType = "frontend-only"
	AppTypeBackendOnly  AppType = "backend-only"
	AppTypeFullstack    AppType = "fullstack"
)

// ContainerPort returns the port the generated application listens on inside
// its container. Static frontend images are served by nginx on 80; anything
// with a server listens on 3000.
func (t AppType) ContainerPort() int {
	if t == AppTypeFrontendOnly {
		return 80
	}
	return 3000
}

// Capabilities is the explicit capability set app-type classification is
// computed from.
type Capabilities struct {
	HasFrontendBuildTool      bool
	HasServerEntryPoint       bool
	HasWebFrameworkDependency bool
}

// BuildPlan is an ephemeral value computed from a file change set. It is
// never persisted.
type BuildPlan struct {
	Tier    BuildTier
	AppType AppType
}
