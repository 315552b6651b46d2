package improve_app

// ImproveAppCommand represents a command to run one improvement cycle
// against an app's active version.
type ImproveAppCommand struct {
	AppName string
	Intent  string
}

// Name returns the name of the command
func (c ImproveAppCommand) Name() string {
	return "ImproveApp"
}
