// Package server implements the hub side of the fabric: the session map of
// identified clients, identify admission with override reclamation, unicast
// and fan-out requests, and the per-session frame ingestion loop.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/FreePeak/golang-ipc-sdk/internal/domain"
	"github.com/FreePeak/golang-ipc-sdk/internal/domain/handler"
	"github.com/FreePeak/golang-ipc-sdk/internal/domain/shared"
	"github.com/FreePeak/golang-ipc-sdk/internal/domain/transport"
	"github.com/FreePeak/golang-ipc-sdk/internal/infrastructure/dispatch"
	"github.com/FreePeak/golang-ipc-sdk/internal/infrastructure/logging"
)

// Result is one client's outcome of a fan-out request.
type Result struct {
	Value json.RawMessage
	Err   error
}

// Hub coordinates the connected client population. It can host its own
// WebSocket endpoint (see Endpoint) or be driven by an external one through
// ParseIdentify and Ingest.
type Hub struct {
	logger         *logging.Logger
	router         *dispatch.Router
	sessions       *sessionRegistry
	events         *notifier
	secretKeys     map[string]string
	overridePolicy domain.OverridePolicy
	external       bool

	// admitMu serializes admissions so that duplicate detection and
	// override replacement are atomic with respect to each other.
	admitMu   sync.Mutex
	closeOnce sync.Once
}

// HubOption represents a function that configures a hub.
type HubOption func(*Hub)

// WithSecretKeys configures the override secrets, keyed by client
// identifier.
func WithSecretKeys(keys map[string]string) HubOption {
	return func(h *Hub) {
		h.secretKeys = make(map[string]string, len(keys))
		for k, v := range keys {
			h.secretKeys[k] = v
		}
	}
}

// WithOverridePolicy selects how invalid override attempts are reported.
func WithOverridePolicy(policy domain.OverridePolicy) HubOption {
	return func(h *Hub) { h.overridePolicy = policy }
}

// WithExternalTransport marks the hub as driven by an external WebSocket
// endpoint. The hub then never opens a listener of its own.
func WithExternalTransport() HubOption {
	return func(h *Hub) { h.external = true }
}

// WithHubLogger sets the hub logger.
func WithHubLogger(logger *logging.Logger) HubOption {
	return func(h *Hub) { h.logger = logger }
}

// WithHubRouter attaches a pre-populated route table for client_to_server
// dispatch.
func WithHubRouter(router *dispatch.Router) HubOption {
	return func(h *Hub) { h.router = router }
}

// NewHub creates a hub with the given options.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		logger:     logging.Default(),
		router:     dispatch.NewRouter(),
		sessions:   newSessionRegistry(),
		events:     newNotifier(),
		secretKeys: make(map[string]string),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Route registers a handler invokable by clients through client_to_server
// frames.
func (h *Hub) Route(name string, fn handler.RouteHandler) error {
	return h.router.Register(name, fn)
}

// UsingExternalTransport reports whether the hub expects to be driven by an
// external endpoint.
func (h *Hub) UsingExternalTransport() bool {
	return h.external
}

// ConnectedClients returns a copy of the current session records.
func (h *Hub) ConnectedClients() []domain.ClientSession {
	return h.sessions.Infos()
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	return h.sessions.Count()
}

// Subscribe returns a channel of lifecycle Events for the given topics
// (all topics when none are named).
func (h *Hub) Subscribe(topics ...string) chan interface{} {
	return h.events.Subscribe(topics...)
}

// Unsubscribe releases a channel obtained from Subscribe.
func (h *Hub) Unsubscribe(ch chan interface{}) {
	h.events.Unsubscribe(ch)
}

// ParseIdentify admits a client from its first frame. On success the client
// is bound into the session map under the returned identifier and an
// identify acknowledgement is sent back. On failure the caller should close
// the transport; the prior holder of the identifier, if any, is untouched
// unless a valid override key evicted it.
func (h *Hub) ParseIdentify(ctx context.Context, frame []byte, sender transport.Sender) (string, error) {
	pkt, err := shared.ParsePacket(frame)
	if err != nil {
		return "", domain.NewUnknownPacketError(err)
	}
	if pkt.Type != shared.TypeIdentify {
		return "", domain.NewUnknownPacketError(fmt.Errorf("expected identify frame, got %q", pkt.Type))
	}
	payload, err := pkt.DecodeIdentify()
	if err != nil {
		return "", domain.NewUnknownPacketError(err)
	}

	overrideKey := ""
	if payload.OverrideKey != nil {
		overrideKey = *payload.OverrideKey
	}

	h.admitMu.Lock()
	defer h.admitMu.Unlock()

	identifier := payload.ClientIdentifier
	if prior, ok := h.sessions.Get(identifier); ok && identifier != "" {
		secret, configured := h.secretKeys[identifier]
		if overrideKey == "" || !configured || overrideKey != secret {
			if overrideKey != "" && h.overridePolicy == domain.OverrideStrict {
				return "", errors.Wrap(domain.NewDuplicateConnectionError(identifier), "invalid override key")
			}
			h.logger.Warn("rejecting duplicate connection", logging.Fields{
				"identifier": identifier,
			})
			return "", domain.NewDuplicateConnectionError(identifier)
		}

		// Valid override: the identifier changes hands atomically and
		// the evicted session's in-flight requests fail as if its
		// transport had closed.
		h.logger.Info("override accepted, replacing session", logging.Fields{
			"identifier": identifier,
		})
		h.evict(prior)
	}

	info := domain.NewClientSession(identifier, remoteAddr(sender))
	sess := newSession(info, sender)
	h.sessions.Add(sess)

	if err := h.sendIdentifyAck(ctx, sess); err != nil {
		h.sessions.RemoveIf(info.Identifier, sess)
		return "", err
	}

	h.logger.Info("client identified", logging.Fields{
		"identifier": info.Identifier,
		"remote":     info.RemoteAddr,
	})
	h.events.publish(EventClientIdentified, info.Identifier, info.RemoteAddr)
	return info.Identifier, nil
}

func (h *Hub) sendIdentifyAck(ctx context.Context, sess *session) error {
	frame, err := shared.NewIdentifyPacket(sess.Identifier(), "").Encode()
	if err != nil {
		return err
	}
	return sess.sender.Send(ctx, frame)
}

// evict removes a session that lost its identifier to an override. Callers
// hold admitMu.
func (h *Hub) evict(sess *session) {
	h.sessions.RemoveIf(sess.Identifier(), sess)
	sess.pending.CancelAll(domain.ErrConnectionClosed)
	_ = sess.sender.Close()
	h.events.publish(EventClientDisconnected, sess.Identifier(), sess.info.RemoteAddr)
}

// Ingest classifies one inbound frame for the identified session. It is the
// logical reader of the server side: requests are dispatched through the hub
// route table, responses settle the session's pending registry. Protocol
// errors are returned for observability but never require the caller to
// terminate the session.
func (h *Hub) Ingest(ctx context.Context, identifier string, frame []byte) error {
	sess, ok := h.sessions.Get(identifier)
	if !ok {
		return domain.NewUnknownClientError(identifier)
	}

	pkt, err := shared.ParsePacket(frame)
	if err != nil {
		parseErr := domain.NewUnknownPacketError(err)
		h.logger.Warn("dropping invalid frame", logging.Fields{
			"identifier": identifier,
			"error":      parseErr.Error(),
		})
		return parseErr
	}

	switch pkt.Type {
	case shared.TypeRequest, shared.TypeClientToServer:
		go h.dispatchRequest(ctx, sess, pkt)
		return nil
	case shared.TypeResponse:
		sess.pending.Settle(pkt.PacketID, dispatch.Outcome{Value: pkt.Data})
		return nil
	case shared.TypeFailureResponse:
		return h.settleFailure(sess, pkt)
	case shared.TypeIdentify:
		h.logger.Warn("ignoring identify frame on established session", logging.Fields{
			"identifier": identifier,
		})
		return nil
	default:
		typeErr := domain.NewUnhandledTypeError(string(pkt.Type))
		h.logger.Warn("dropping frame", logging.Fields{
			"identifier": identifier,
			"error":      typeErr.Error(),
		})
		return typeErr
	}
}

func (h *Hub) settleFailure(sess *session, pkt *shared.Packet) error {
	payload, err := pkt.DecodeFailure()
	if err != nil {
		parseErr := domain.NewUnknownPacketError(err)
		h.logger.Warn("dropping malformed failure response", logging.Fields{
			"identifier": sess.Identifier(),
			"error":      parseErr.Error(),
		})
		return parseErr
	}
	sess.pending.Settle(pkt.PacketID, dispatch.Outcome{
		Err: domain.NewRequestFailedError(payload.Exception),
	})
	return nil
}

// dispatchRequest runs a client-originated request through the hub route
// table and answers on the session's sender.
func (h *Hub) dispatchRequest(ctx context.Context, sess *session, pkt *shared.Packet) {
	if h.router == nil {
		err := domain.NewMissingHandlerError()
		h.logger.Error("cannot dispatch request", logging.Fields{"error": err.Error()})
		h.reply(ctx, sess, shared.NewFailurePacket(pkt.PacketID, err.Error()))
		return
	}

	payload, err := pkt.DecodeRequest()
	if err != nil {
		parseErr := domain.NewUnknownPacketError(err)
		h.logger.Warn("dropping malformed request", logging.Fields{
			"identifier": sess.Identifier(),
			"error":      parseErr.Error(),
		})
		h.reply(ctx, sess, shared.NewFailurePacket(pkt.PacketID, parseErr.Error()))
		return
	}

	value, err := h.router.Dispatch(ctx, payload.Route, payload.Arguments)
	if err != nil {
		h.logger.Warn("route dispatch failed", logging.Fields{
			"identifier": sess.Identifier(),
			"route":      payload.Route,
			"error":      err.Error(),
		})
		h.reply(ctx, sess, shared.NewFailurePacket(pkt.PacketID, err.Error()))
		return
	}

	rsp, err := shared.NewResponsePacket(pkt.PacketID, value)
	if err != nil {
		h.reply(ctx, sess, shared.NewFailurePacket(pkt.PacketID, err.Error()))
		return
	}
	h.reply(ctx, sess, rsp)
}

func (h *Hub) reply(ctx context.Context, sess *session, pkt *shared.Packet) {
	frame, err := pkt.Encode()
	if err != nil {
		h.logger.Error("failed to encode reply", logging.Fields{"error": err.Error()})
		return
	}
	if err := sess.sender.Send(ctx, frame); err != nil {
		h.logger.Warn("failed to send reply", logging.Fields{
			"identifier": sess.Identifier(),
			"error":      err.Error(),
		})
	}
}

// Request executes a route on one client and returns its raw JSON result.
// With an empty identifier the single connected client is targeted; zero or
// multiple connected clients make the default ambiguous.
func (h *Hub) Request(ctx context.Context, identifier, route string, args map[string]any) (json.RawMessage, error) {
	var sess *session
	if identifier == "" {
		snapshot := h.sessions.Snapshot()
		switch len(snapshot) {
		case 1:
			sess = snapshot[0]
		case 0:
			return nil, domain.NewAmbiguousClientError("no clients connected")
		default:
			return nil, domain.NewAmbiguousClientError("multiple clients connected")
		}
	} else {
		var ok bool
		sess, ok = h.sessions.Get(identifier)
		if !ok {
			return nil, domain.NewUnknownClientError(identifier)
		}
	}
	return h.requestSession(ctx, sess, route, args)
}

func (h *Hub) requestSession(ctx context.Context, sess *session, route string, args map[string]any) (json.RawMessage, error) {
	id, ch := sess.pending.Open()
	pkt, err := shared.NewRequestPacket(id, route, args)
	if err != nil {
		sess.pending.Forget(id)
		return nil, err
	}
	frame, err := pkt.Encode()
	if err != nil {
		sess.pending.Forget(id)
		return nil, err
	}
	if err := sess.sender.Send(ctx, frame); err != nil {
		sess.pending.Forget(id)
		return nil, err
	}
	return sess.pending.Await(ctx, id, ch)
}

// RequestAll fans a request out to every client connected at call time and
// aggregates per-identifier outcomes. Individual failures, including clients
// disconnecting mid-call, appear as error entries; the aggregate itself
// never fails.
func (h *Hub) RequestAll(ctx context.Context, route string, args map[string]any) map[string]Result {
	snapshot := h.sessions.Snapshot()

	results := make(map[string]Result, len(snapshot))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, sess := range snapshot {
		wg.Add(1)
		go func(sess *session) {
			defer wg.Done()
			value, err := h.requestSession(ctx, sess, route, args)
			mu.Lock()
			results[sess.Identifier()] = Result{Value: value, Err: err}
			mu.Unlock()
		}(sess)
	}
	wg.Wait()

	return results
}

// Disconnect removes a client from the session map, cancels its in-flight
// requests, and closes its transport. Disconnecting an unknown identifier is
// a silent no-op.
func (h *Hub) Disconnect(identifier string) {
	sess, ok := h.sessions.Remove(identifier)
	if !ok {
		return
	}
	h.teardown(sess)
}

// release is Disconnect for ingestion loops: it only tears the session down
// if the identifier is still bound to this exact session, so a loop whose
// client was evicted by an override cannot kill the replacement.
func (h *Hub) release(identifier string, sender transport.Sender) {
	sess, ok := h.sessions.Get(identifier)
	if !ok || sess.sender != sender {
		return
	}
	if h.sessions.RemoveIf(identifier, sess) {
		h.teardown(sess)
	}
}

func (h *Hub) teardown(sess *session) {
	sess.pending.CancelAll(domain.ErrConnectionClosed)
	_ = sess.sender.Close()
	h.logger.Info("client disconnected", logging.Fields{
		"identifier": sess.Identifier(),
	})
	h.events.publish(EventClientDisconnected, sess.Identifier(), sess.info.RemoteAddr)
}

// Close disconnects every client and shuts the event bus down.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		for _, sess := range h.sessions.Drain() {
			h.teardown(sess)
		}
		h.events.shutdown()
	})
}

// remoteAddr extracts the peer address when the sender exposes one.
func remoteAddr(sender transport.Sender) string {
	if conn, ok := sender.(interface{ RemoteAddr() string }); ok {
		return conn.RemoteAddr()
	}
	return ""
}
