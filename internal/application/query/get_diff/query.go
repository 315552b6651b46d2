package get_diff

// GetDiffQuery represents a query for the file-level changes between two
// committed versions of an app. ToVersion defaults to the active version and
// FromVersion to the to-version's parent, so the zero query reports what the
// latest improvement changed.
type GetDiffQuery struct {
	AppName     string
	FromVersion string
	ToVersion   string
}

// Name returns the name of the query
func (q GetDiffQuery) Name() string {
	return "GetDiff"
}
