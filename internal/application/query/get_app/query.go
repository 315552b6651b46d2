package get_app

// GetAppQuery represents a query for one app's full ledger record.
type GetAppQuery struct {
	AppName string
}

// Name returns the name of the query
func (q GetAppQuery) Name() string {
	return "GetApp"
}
