package handler

import "context"

// RouteHandler is the callable bound to a route name. It receives the
// request's keyword arguments and returns a JSON-encodable value. Errors are
// reflected back to the requesting peer as a failure response; they never
// terminate the session.
type RouteHandler func(ctx context.Context, args map[string]any) (any, error)
