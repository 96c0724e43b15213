// Package dispatch holds the two shared pieces of the request/response core:
// the route table that maps names to handlers, and the pending registry that
// correlates in-flight requests with their responses.
package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/FreePeak/golang-ipc-sdk/internal/domain"
	"github.com/FreePeak/golang-ipc-sdk/internal/domain/handler"
)

// Router maps route names to locally registered handlers. Client and server
// sessions share this shape; registration normally happens before the
// session starts, but the table is safe for concurrent use regardless.
type Router struct {
	mu     sync.RWMutex
	routes map[string]handler.RouteHandler
}

// NewRouter creates an empty route table.
func NewRouter() *Router {
	return &Router{
		routes: make(map[string]handler.RouteHandler),
	}
}

// Register binds a handler to a route name. Registering a name twice fails
// with DuplicateRouteError and leaves the table unchanged.
func (r *Router) Register(name string, h handler.RouteHandler) error {
	if h == nil {
		return fmt.Errorf("handler for route %q cannot be nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.routes[name]; exists {
		return domain.NewDuplicateRouteError(name)
	}
	r.routes[name] = h
	return nil
}

// Lookup returns the handler bound to name, if any.
func (r *Router) Lookup(name string) (handler.RouteHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.routes[name]
	return h, ok
}

// Routes returns the registered route names.
func (r *Router) Routes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.routes))
	for name := range r.routes {
		names = append(names, name)
	}
	return names
}

// Dispatch invokes the handler bound to name. An unregistered name fails
// with UnknownRouteError. Handler errors and panics are captured and
// returned to the caller, never swallowed.
func (r *Router) Dispatch(ctx context.Context, name string, args map[string]any) (result any, err error) {
	h, ok := r.Lookup(name)
	if !ok {
		return nil, domain.NewUnknownRouteError(name)
	}

	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = fmt.Errorf("handler for route %q panicked: %v", name, rec)
		}
	}()

	if args == nil {
		args = map[string]any{}
	}
	return h(ctx, args)
}
