// Package server provides the public API for the hub side of the fabric.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/FreePeak/golang-ipc-sdk/internal/builder"
	"github.com/FreePeak/golang-ipc-sdk/internal/domain"
	"github.com/FreePeak/golang-ipc-sdk/internal/domain/handler"
	"github.com/FreePeak/golang-ipc-sdk/internal/infrastructure/logging"
	"github.com/FreePeak/golang-ipc-sdk/internal/infrastructure/server"
	"github.com/FreePeak/golang-ipc-sdk/pkg/types"
)

// Sender is the send half of a connection an external WebSocket endpoint
// hands to ParseIdentify. The receive side stays with the endpoint, which
// feeds frames through Ingest.
type Sender interface {
	Send(ctx context.Context, frame []byte) error
	Close() error
}

// Config holds the server configuration.
type Config struct {
	// Addr is the listen address of the built-in endpoint.
	Addr string

	// Path is the WebSocket upgrade path of the built-in endpoint.
	Path string

	// SecretKeys maps client identifiers to override secrets.
	SecretKeys map[string]string

	// OverridePolicy selects how invalid override attempts are reported.
	OverridePolicy types.OverridePolicy

	// UseExternalTransport disables the built-in endpoint; the embedding
	// web framework drives the hub through ParseIdentify and Ingest.
	UseExternalTransport bool

	// Development switches logging to a human-friendly development
	// configuration.
	Development bool
}

// Server coordinates the connected client population.
type Server struct {
	hub      *server.Hub
	endpoint *server.Endpoint

	subMu sync.Mutex
	subs  map[<-chan types.Event]chan interface{}
}

// NewServer creates a server from the given configuration.
func NewServer(cfg Config) *Server {
	b := builder.NewServerBuilder().
		WithSecretKeys(cfg.SecretKeys).
		WithOverridePolicy(domain.OverridePolicy(cfg.OverridePolicy))
	if cfg.Addr != "" {
		b.WithAddress(cfg.Addr)
	}
	if cfg.Path != "" {
		b.WithPath(cfg.Path)
	}
	if cfg.UseExternalTransport {
		b.WithExternalTransport()
	}
	if cfg.Development {
		if logger, err := logging.NewDevelopment(); err == nil {
			b.WithLogger(logger)
		}
	}

	hub, endpoint := b.Build()
	return &Server{
		hub:      hub,
		endpoint: endpoint,
		subs:     make(map[<-chan types.Event]chan interface{}),
	}
}

// Route registers a handler clients can invoke.
func (s *Server) Route(name string, h types.Handler) error {
	return s.hub.Route(name, handler.RouteHandler(h))
}

// Request executes a route on one client. An empty identifier targets the
// single connected client; with zero or multiple clients connected the
// default is ambiguous and the call fails.
func (s *Server) Request(ctx context.Context, identifier, route string, args map[string]any) (json.RawMessage, error) {
	return s.hub.Request(ctx, identifier, route, args)
}

// RequestAll fans a request out to every connected client and returns the
// per-identifier outcomes. Individual failures never fail the aggregate.
func (s *Server) RequestAll(ctx context.Context, route string, args map[string]any) map[string]types.Result {
	results := s.hub.RequestAll(ctx, route, args)
	out := make(map[string]types.Result, len(results))
	for identifier, r := range results {
		out[identifier] = types.Result{Value: r.Value, Err: r.Err}
	}
	return out
}

// Disconnect removes a client, cancelling its in-flight requests. Unknown
// identifiers are a silent no-op.
func (s *Server) Disconnect(identifier string) {
	s.hub.Disconnect(identifier)
}

// ConnectedClients lists the currently admitted clients.
func (s *Server) ConnectedClients() []types.ClientInfo {
	sessions := s.hub.ConnectedClients()
	out := make([]types.ClientInfo, 0, len(sessions))
	for _, info := range sessions {
		out = append(out, types.ClientInfo{
			Identifier:  info.Identifier,
			RemoteAddr:  info.RemoteAddr,
			ConnectedAt: info.ConnectedAt,
		})
	}
	return out
}

// Count returns the number of connected clients.
func (s *Server) Count() int {
	return s.hub.Count()
}

// ParseIdentify admits a client from its first frame, for external-endpoint
// mode. It returns the admitted identifier; on error the caller should close
// the transport.
func (s *Server) ParseIdentify(ctx context.Context, frame []byte, sender Sender) (string, error) {
	return s.hub.ParseIdentify(ctx, frame, sender)
}

// Ingest feeds one inbound frame for the identified client, for
// external-endpoint mode. Protocol errors are returned for observability;
// the session survives them.
func (s *Server) Ingest(ctx context.Context, identifier string, frame []byte) error {
	return s.hub.Ingest(ctx, identifier, frame)
}

// Subscribe returns a channel of lifecycle events for the given topics (all
// topics when none are named). Release it with Unsubscribe.
func (s *Server) Subscribe(topics ...string) <-chan types.Event {
	raw := s.hub.Subscribe(topics...)
	out := make(chan types.Event, 16)

	go func() {
		defer close(out)
		for msg := range raw {
			ev, ok := msg.(server.Event)
			if !ok {
				continue
			}
			out <- types.Event{
				Topic:      ev.Topic,
				Identifier: ev.Identifier,
				RemoteAddr: ev.RemoteAddr,
				Time:       ev.Time,
			}
		}
	}()

	s.subMu.Lock()
	s.subs[out] = raw
	s.subMu.Unlock()
	return out
}

// Unsubscribe releases a channel obtained from Subscribe.
func (s *Server) Unsubscribe(ch <-chan types.Event) {
	s.subMu.Lock()
	raw, ok := s.subs[ch]
	if ok {
		delete(s.subs, ch)
	}
	s.subMu.Unlock()
	if ok {
		s.hub.Unsubscribe(raw)
	}
}

// Handler exposes the built-in endpoint as an http.Handler. Nil in
// external-transport mode.
func (s *Server) Handler() http.Handler {
	if s.endpoint == nil {
		return nil
	}
	return s.endpoint.Handler()
}

// Router exposes the built-in endpoint's mux router so embedding
// applications can mount additional routes. Nil in external-transport mode.
func (s *Server) Router() *mux.Router {
	if s.endpoint == nil {
		return nil
	}
	return s.endpoint.Router()
}

// ListenAndServe starts the built-in endpoint and blocks until Shutdown.
func (s *Server) ListenAndServe() error {
	if s.endpoint == nil {
		return fmt.Errorf("server is configured for an external transport")
	}
	return s.endpoint.ListenAndServe()
}

// Shutdown stops the endpoint (when present) and disconnects every client.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.endpoint != nil {
		return s.endpoint.Shutdown(ctx)
	}
	s.hub.Close()
	return nil
}
