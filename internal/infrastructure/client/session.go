// Package client implements the connecting side of the fabric: one session
// per process, owning a single connection, a single reader goroutine, a
// route table for inbound requests, and a pending registry for outbound
// ones.
package client

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/FreePeak/golang-ipc-sdk/internal/domain"
	"github.com/FreePeak/golang-ipc-sdk/internal/domain/handler"
	"github.com/FreePeak/golang-ipc-sdk/internal/domain/shared"
	"github.com/FreePeak/golang-ipc-sdk/internal/domain/transport"
	"github.com/FreePeak/golang-ipc-sdk/internal/infrastructure/dispatch"
	"github.com/FreePeak/golang-ipc-sdk/internal/infrastructure/logging"
	"github.com/FreePeak/golang-ipc-sdk/internal/infrastructure/wsconn"
)

// Dialer opens the duplex connection for a session. Tests swap this for an
// in-memory pipe; production sessions use the WebSocket dialer.
type Dialer func(ctx context.Context, url string, header http.Header) (transport.Conn, error)

// Session is one client end of the fabric.
type Session struct {
	url         string
	overrideKey string
	header      http.Header
	dial        Dialer
	logger      *logging.Logger

	router  *dispatch.Router
	pending *dispatch.Registry

	mu         sync.Mutex
	identifier string
	conn       transport.Conn

	running    atomic.Bool
	ctx        context.Context
	cancel     context.CancelFunc
	identified chan struct{}
	idOnce     sync.Once
	readerDone chan struct{}
	closeOnce  sync.Once
}

// Option configures a Session.
type Option func(*Session)

// WithIdentifier sets the identifier presented in the identify frame. When
// omitted the server assigns one at admission.
func WithIdentifier(identifier string) Option {
	return func(s *Session) { s.identifier = identifier }
}

// WithOverrideKey sets the secret used to reclaim an already-bound
// identifier.
func WithOverrideKey(key string) Option {
	return func(s *Session) { s.overrideKey = key }
}

// WithHeader sets additional HTTP headers for the WebSocket handshake.
func WithHeader(header http.Header) Option {
	return func(s *Session) { s.header = header }
}

// WithLogger sets the session logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithRouter attaches a pre-populated route table.
func WithRouter(router *dispatch.Router) Option {
	return func(s *Session) { s.router = router }
}

// WithDialer replaces the connection dialer.
func WithDialer(dial Dialer) Option {
	return func(s *Session) { s.dial = dial }
}

// NewSession creates a session that will connect to url.
func NewSession(url string, opts ...Option) *Session {
	s := &Session{
		url:        url,
		logger:     logging.Default(),
		router:     dispatch.NewRouter(),
		pending:    dispatch.NewRegistry(),
		identified: make(chan struct{}),
		readerDone: make(chan struct{}),
		dial: func(ctx context.Context, url string, header http.Header) (transport.Conn, error) {
			return wsconn.Dial(ctx, url, header)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Route registers a handler for requests the server sends to this session.
// Registration should happen before Start.
func (s *Session) Route(name string, h handler.RouteHandler) error {
	if s.router == nil {
		return domain.NewMissingHandlerError()
	}
	return s.router.Register(name, h)
}

// Identifier returns the admitted identifier. Before the server's identify
// acknowledgement this is whatever the session was configured with.
func (s *Session) Identifier() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identifier
}

// Start connects, identifies, and spawns the reader. It returns once the
// server acknowledges admission, the connection drops, or ctx expires.
func (s *Session) Start(ctx context.Context) error {
	conn, err := s.dial(ctx, s.url, s.header)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.conn = conn
	identifier := s.identifier
	s.mu.Unlock()

	// The identify frame must be the first thing on the wire.
	frame, err := shared.NewIdentifyPacket(identifier, s.overrideKey).Encode()
	if err != nil {
		_ = conn.Close()
		return err
	}
	if err := conn.Send(ctx, frame); err != nil {
		_ = conn.Close()
		return err
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.running.Store(true)
	go s.readLoop(conn)

	select {
	case <-s.identified:
		s.logger.Info("session identified", logging.Fields{
			"identifier": s.Identifier(),
			"url":        s.url,
		})
		return nil
	case <-s.readerDone:
		return domain.ErrConnectionClosed
	case <-ctx.Done():
		_ = s.Close()
		return ctx.Err()
	}
}

// Request executes a route on the server and returns its raw JSON result.
// The frame travels as client_to_server; the reader settles the pending slot
// when the correlated response arrives.
func (s *Session) Request(ctx context.Context, route string, args map[string]any) (json.RawMessage, error) {
	if !s.running.Load() {
		return nil, domain.ErrConnectionClosed
	}

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	id, ch := s.pending.Open()
	pkt, err := shared.NewClientToServerPacket(id, route, args)
	if err != nil {
		s.pending.Forget(id)
		return nil, err
	}
	frame, err := pkt.Encode()
	if err != nil {
		s.pending.Forget(id)
		return nil, err
	}
	if err := conn.Send(ctx, frame); err != nil {
		s.pending.Forget(id)
		return nil, err
	}

	return s.pending.Await(ctx, id, ch)
}

// Wait blocks until the reader exits.
func (s *Session) Wait() {
	<-s.readerDone
}

// Close shuts the session down: clears the running flag, cancels outstanding
// requests, closes the connection, and joins the reader. Idempotent.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.running.Store(false)
		if s.cancel != nil {
			s.cancel()
		}
		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn != nil {
			err = conn.Close()
			<-s.readerDone
		}
	})
	return err
}

// readLoop is the session's single reader. No other goroutine touches the
// connection's receive side.
func (s *Session) readLoop(conn transport.Conn) {
	defer func() {
		s.running.Store(false)
		s.pending.CancelAll(domain.ErrConnectionClosed)
		_ = conn.Close()
		close(s.readerDone)
	}()

	for s.running.Load() {
		frame, err := conn.Receive(s.ctx)
		if err != nil {
			if s.running.Load() {
				s.logger.Warn("connection lost", logging.Fields{"error": err.Error()})
			}
			return
		}
		s.handleFrame(frame)
	}
}

func (s *Session) handleFrame(frame []byte) {
	pkt, err := shared.ParsePacket(frame)
	if err != nil {
		s.logger.Warn("dropping invalid frame", logging.Fields{
			"error": domain.NewUnknownPacketError(err).Error(),
		})
		return
	}

	switch pkt.Type {
	case shared.TypeRequest:
		go s.handleRequest(pkt)
	case shared.TypeResponse:
		s.pending.Settle(pkt.PacketID, dispatch.Outcome{Value: pkt.Data})
	case shared.TypeFailureResponse:
		s.settleFailure(pkt)
	case shared.TypeIdentify:
		s.handleIdentifyAck(pkt)
	default:
		s.logger.Warn("dropping frame", logging.Fields{
			"error": domain.NewUnhandledTypeError(string(pkt.Type)).Error(),
		})
	}
}

// handleRequest dispatches a server-initiated request through the route
// table and answers with a response or failure_response frame. It runs in
// its own goroutine so a slow handler never stalls the reader.
func (s *Session) handleRequest(pkt *shared.Packet) {
	if s.router == nil {
		err := domain.NewMissingHandlerError()
		s.logger.Error("cannot dispatch request", logging.Fields{"error": err.Error()})
		s.reply(shared.NewFailurePacket(pkt.PacketID, err.Error()))
		return
	}

	payload, err := pkt.DecodeRequest()
	if err != nil {
		s.logger.Warn("dropping malformed request", logging.Fields{
			"error": domain.NewUnknownPacketError(err).Error(),
		})
		s.reply(shared.NewFailurePacket(pkt.PacketID, err.Error()))
		return
	}

	value, err := s.router.Dispatch(s.ctx, payload.Route, payload.Arguments)
	if err != nil {
		s.logger.Warn("route dispatch failed", logging.Fields{
			"route": payload.Route,
			"error": err.Error(),
		})
		s.reply(shared.NewFailurePacket(pkt.PacketID, err.Error()))
		return
	}

	rsp, err := shared.NewResponsePacket(pkt.PacketID, value)
	if err != nil {
		s.reply(shared.NewFailurePacket(pkt.PacketID, err.Error()))
		return
	}
	s.reply(rsp)
}

func (s *Session) reply(pkt *shared.Packet) {
	frame, err := pkt.Encode()
	if err != nil {
		s.logger.Error("failed to encode reply", logging.Fields{"error": err.Error()})
		return
	}
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if err := conn.Send(s.ctx, frame); err != nil {
		s.logger.Warn("failed to send reply", logging.Fields{"error": err.Error()})
	}
}

func (s *Session) settleFailure(pkt *shared.Packet) {
	payload, err := pkt.DecodeFailure()
	if err != nil {
		s.logger.Warn("dropping malformed failure response", logging.Fields{
			"error": domain.NewUnknownPacketError(err).Error(),
		})
		return
	}
	s.pending.Settle(pkt.PacketID, dispatch.Outcome{
		Err: domain.NewRequestFailedError(payload.Exception),
	})
}

// handleIdentifyAck records the identifier the server admitted us under,
// which may differ from the configured one when the server assigns it.
func (s *Session) handleIdentifyAck(pkt *shared.Packet) {
	payload, err := pkt.DecodeIdentify()
	if err != nil {
		s.logger.Warn("dropping malformed identify ack", logging.Fields{
			"error": domain.NewUnknownPacketError(err).Error(),
		})
		return
	}
	s.mu.Lock()
	s.identifier = payload.ClientIdentifier
	s.mu.Unlock()
	s.idOnce.Do(func() { close(s.identified) })
}
