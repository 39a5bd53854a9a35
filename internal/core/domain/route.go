package domain

// Route is the retrieval strategy selected for a question.
type Route string

const (
	RouteFact   Route = "FACT"
	RouteText   Route = "TEXT"
	RouteHybrid Route = "HYBRID"
	RouteWeb    Route = "WEB"
)

func (r Route) String() string {
	return string(r)
}

func (r Route) Valid() bool {
	switch r {
	case RouteFact, RouteText, RouteHybrid, RouteWeb:
		return true
	default:
		return false
	}
}
