package handler

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
)

// Route labels for requests without a matching route
const (
	RouteUnknown          = "unknown"
	RouteMethodNotAllowed = "method_not_allowed"
)

// RouteMatcher returns the route a request is served by, for labelling metrics and spans
type RouteMatcher interface {
	Match(r *http.Request) string
}

// MuxRouteMatcher matches the routes of a mux router
type MuxRouteMatcher struct {
	Router *mux.Router
}

// Match returns the name of the route serving the request, or its path template if it has no name.
// Raw paths are never returned, so that unmatched requests can't create new labels.
func (m *MuxRouteMatcher) Match(r *http.Request) string {
	var match mux.RouteMatch
	if !m.Router.Match(r, &match) {
		if errors.Is(match.MatchErr, mux.ErrMethodMismatch) {
			return RouteMethodNotAllowed
		}

		return RouteUnknown
	}

	// The route is nil when the request fell through to the NotFoundHandler
	if match.Route == nil {
		return RouteUnknown
	}

	if name := match.Route.GetName(); name != "" {
		return name
	}

	if tmpl, err := match.Route.GetPathTemplate(); err == nil {
		return tmpl
	}

	return RouteUnknown
}
