package get_versions

// GetVersionsQuery represents a query for the version history of an app.
type GetVersionsQuery struct {
	AppName string
}

// Name returns the name of the query
func (q GetVersionsQuery) Name() string {
	return "GetVersions"
}
