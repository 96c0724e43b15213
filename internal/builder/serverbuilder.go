package builder

import (
	"github.com/FreePeak/golang-ipc-sdk/internal/domain"
	"github.com/FreePeak/golang-ipc-sdk/internal/infrastructure/dispatch"
	"github.com/FreePeak/golang-ipc-sdk/internal/infrastructure/logging"
	"github.com/FreePeak/golang-ipc-sdk/internal/infrastructure/server"
)

// ServerBuilder implements the Builder pattern for assembling a hub and,
// unless external-transport mode is selected, its WebSocket endpoint.
type ServerBuilder struct {
	addr           string
	path           string
	secretKeys     map[string]string
	overridePolicy domain.OverridePolicy
	external       bool
	logger         *logging.Logger
	router         *dispatch.Router
}

// NewServerBuilder creates a new server builder with default values.
func NewServerBuilder() *ServerBuilder {
	return &ServerBuilder{
		addr:       ":8080",
		path:       server.DefaultPath,
		secretKeys: make(map[string]string),
		logger:     logging.Default(),
	}
}

// WithAddress sets the listen address.
func (b *ServerBuilder) WithAddress(addr string) *ServerBuilder {
	b.addr = addr
	return b
}

// WithPath sets the WebSocket upgrade path.
func (b *ServerBuilder) WithPath(path string) *ServerBuilder {
	b.path = path
	return b
}

// WithSecretKeys sets the override secrets, keyed by client identifier.
func (b *ServerBuilder) WithSecretKeys(keys map[string]string) *ServerBuilder {
	b.secretKeys = keys
	return b
}

// WithOverridePolicy selects how invalid override attempts are reported.
func (b *ServerBuilder) WithOverridePolicy(policy domain.OverridePolicy) *ServerBuilder {
	b.overridePolicy = policy
	return b
}

// WithExternalTransport marks the hub as driven by an external WebSocket
// endpoint; Build then returns no endpoint.
func (b *ServerBuilder) WithExternalTransport() *ServerBuilder {
	b.external = true
	return b
}

// WithLogger sets the logger shared by hub and endpoint.
func (b *ServerBuilder) WithLogger(logger *logging.Logger) *ServerBuilder {
	b.logger = logger
	return b
}

// WithRouter attaches a pre-populated route table.
func (b *ServerBuilder) WithRouter(router *dispatch.Router) *ServerBuilder {
	b.router = router
	return b
}

// BuildHub builds the hub alone.
func (b *ServerBuilder) BuildHub() *server.Hub {
	opts := []server.HubOption{
		server.WithSecretKeys(b.secretKeys),
		server.WithOverridePolicy(b.overridePolicy),
		server.WithHubLogger(b.logger),
	}
	if b.external {
		opts = append(opts, server.WithExternalTransport())
	}
	if b.router != nil {
		opts = append(opts, server.WithHubRouter(b.router))
	}
	return server.NewHub(opts...)
}

// Build assembles the hub and, in built-in mode, its endpoint. In
// external-transport mode the endpoint is nil.
func (b *ServerBuilder) Build() (*server.Hub, *server.Endpoint) {
	hub := b.BuildHub()
	if b.external {
		return hub, nil
	}
	endpoint := server.NewEndpoint(hub,
		server.WithAddr(b.addr),
		server.WithPath(b.path),
		server.WithEndpointLogger(b.logger),
	)
	return hub, endpoint
}
