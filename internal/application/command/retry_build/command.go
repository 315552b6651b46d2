package retry_build

// RetryBuildCommand represents a command to rebuild and redeploy an app's
// active version from the live directory.
type RetryBuildCommand struct {
	AppName string
}

// Name returns the name of the command
func (c RetryBuildCommand) Name() string {
	return "RetryBuild"
}
