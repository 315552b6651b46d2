package rollback_app

// RollbackAppCommand represents a command to re-activate a previously
// committed version of an app.
type RollbackAppCommand struct {
	AppName       string
	TargetVersion string
}

// Name returns the name of the command
func (c RollbackAppCommand) Name() string {
	return "RollbackApp"
}
