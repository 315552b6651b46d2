package get_apps_status

// GetAppsStatusQuery represents a query for the live status of every app.
type GetAppsStatusQuery struct{}

// Name returns the name of the query
func (q GetAppsStatusQuery) Name() string {
	return "GetAppsStatus"
}
