// Package client provides the public API for the connecting side of the
// fabric.
package client

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/FreePeak/golang-ipc-sdk/internal/domain/handler"
	"github.com/FreePeak/golang-ipc-sdk/internal/infrastructure/client"
	"github.com/FreePeak/golang-ipc-sdk/internal/infrastructure/logging"
	"github.com/FreePeak/golang-ipc-sdk/pkg/types"
)

// Config holds the client configuration.
type Config struct {
	// URL is the ws:// or wss:// endpoint of the server.
	URL string

	// Identifier is the name this client asks to be admitted under. When
	// empty the server assigns one.
	Identifier string

	// OverrideKey reclaims an identifier that is already bound, when it
	// matches the server's configured secret for that identifier.
	OverrideKey string

	// Header carries extra HTTP headers for the WebSocket handshake.
	Header http.Header

	// Development switches logging to a human-friendly development
	// configuration.
	Development bool
}

// Client is one client end of the fabric.
type Client struct {
	session *client.Session
}

// NewClient creates a client from the given configuration.
func NewClient(cfg Config) *Client {
	opts := []client.Option{
		client.WithIdentifier(cfg.Identifier),
		client.WithOverrideKey(cfg.OverrideKey),
		client.WithHeader(cfg.Header),
	}
	if cfg.Development {
		if logger, err := logging.NewDevelopment(); err == nil {
			opts = append(opts, client.WithLogger(logger))
		}
	}
	return &Client{
		session: client.NewSession(cfg.URL, opts...),
	}
}

// Route registers a handler for requests the server sends to this client.
// Register every route before calling Start.
func (c *Client) Route(name string, h types.Handler) error {
	return c.session.Route(name, handler.RouteHandler(h))
}

// Start connects, identifies, and begins processing frames. It returns once
// the server acknowledges admission.
func (c *Client) Start(ctx context.Context) error {
	return c.session.Start(ctx)
}

// Request executes a route on the server and returns its raw JSON result.
func (c *Client) Request(ctx context.Context, route string, args map[string]any) (json.RawMessage, error) {
	return c.session.Request(ctx, route, args)
}

// Identifier returns the identifier the server admitted this client under.
func (c *Client) Identifier() string {
	return c.session.Identifier()
}

// Wait blocks until the connection closes.
func (c *Client) Wait() {
	c.session.Wait()
}

// Close shuts the client down, failing any in-flight requests.
func (c *Client) Close() error {
	return c.session.Close()
}
