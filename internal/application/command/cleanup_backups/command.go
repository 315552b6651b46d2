package cleanup_backups

// CleanupBackupsCommand represents a command to apply the snapshot retention
// policy to one app.
type CleanupBackupsCommand struct {
	AppName string
}

// Name returns the name of the command
func (c CleanupBackupsCommand) Name() string {
	return "CleanupBackups"
}
