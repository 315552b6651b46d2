package create_app

// CreateAppCommand represents a command to generate and deploy a new app
// from a natural-language prompt.
type CreateAppCommand struct {
	AppName string
	Prompt  string
}

// Name returns the name of the command
func (c CreateAppCommand) Name() string {
	return "CreateApp"
}
