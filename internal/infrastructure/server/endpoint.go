package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/FreePeak/golang-ipc-sdk/internal/domain/transport"
	"github.com/FreePeak/golang-ipc-sdk/internal/infrastructure/logging"
	"github.com/FreePeak/golang-ipc-sdk/internal/infrastructure/wsconn"
)

// DefaultPath is the WebSocket upgrade path the endpoint mounts by default.
const DefaultPath = "/ws"

// Endpoint hosts the hub's WebSocket listener in built-in mode. Each
// accepted connection gets one goroutine that performs the identify
// admission and then pumps frames into the hub until the connection closes.
type Endpoint struct {
	hub    *Hub
	logger *logging.Logger
	router *mux.Router
	server *http.Server
	addr   string
	path   string
}

// EndpointOption represents a function that configures an endpoint.
type EndpointOption func(*Endpoint)

// WithAddr sets the listen address.
func WithAddr(addr string) EndpointOption {
	return func(e *Endpoint) { e.addr = addr }
}

// WithPath sets the upgrade path.
func WithPath(path string) EndpointOption {
	return func(e *Endpoint) { e.path = path }
}

// WithEndpointLogger sets the endpoint logger.
func WithEndpointLogger(logger *logging.Logger) EndpointOption {
	return func(e *Endpoint) { e.logger = logger }
}

// NewEndpoint creates an endpoint serving the given hub.
func NewEndpoint(hub *Hub, opts ...EndpointOption) *Endpoint {
	e := &Endpoint{
		hub:    hub,
		logger: logging.Default(),
		router: mux.NewRouter(),
		addr:   ":8080",
		path:   DefaultPath,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.router.HandleFunc(e.path, e.handleUpgrade)
	return e
}

// Router exposes the underlying mux router so embedding applications can
// mount additional HTTP routes next to the WebSocket path.
func (e *Endpoint) Router() *mux.Router {
	return e.router
}

// Handler returns the endpoint as an http.Handler, for mounting under an
// external HTTP server.
func (e *Endpoint) Handler() http.Handler {
	return e.router
}

// ListenAndServe blocks serving HTTP until Shutdown or a listener error.
func (e *Endpoint) ListenAndServe() error {
	e.server = &http.Server{
		Addr:              e.addr,
		Handler:           e.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	e.logger.Info("endpoint listening", logging.Fields{
		"addr": e.addr,
		"path": e.path,
	})
	err := e.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the HTTP server and disconnects every client.
func (e *Endpoint) Shutdown(ctx context.Context) error {
	var err error
	if e.server != nil {
		err = e.server.Shutdown(ctx)
	}
	e.hub.Close()
	return err
}

func (e *Endpoint) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := wsconn.Upgrade(w, r)
	if err != nil {
		e.logger.Warn("upgrade failed", logging.Fields{"error": err.Error()})
		return
	}
	e.serve(conn)
}

// serve owns the connection's receive side: first the identify frame, then
// the ingestion loop. It is the per-session reader of the built-in mode.
func (e *Endpoint) serve(conn transport.Conn) {
	ctx := context.Background()

	frame, err := conn.Receive(ctx)
	if err != nil {
		_ = conn.Close()
		return
	}

	identifier, err := e.hub.ParseIdentify(ctx, frame, conn)
	if err != nil {
		e.logger.Warn("admission failed", logging.Fields{
			"remote": conn.RemoteAddr(),
			"error":  err.Error(),
		})
		_ = conn.Close()
		return
	}

	for {
		frame, err := conn.Receive(ctx)
		if err != nil {
			e.hub.release(identifier, conn)
			return
		}
		// Protocol errors are already logged by the hub; the session
		// outlives them.
		_ = e.hub.Ingest(ctx, identifier, frame)
	}
}
