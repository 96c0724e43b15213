// Package wsconn implements the duplex text-frame connection on top of
// gorilla/websocket, for both the dialing (client) and upgrading (server)
// side.
package wsconn

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/FreePeak/golang-ipc-sdk/internal/domain"
	"github.com/FreePeak/golang-ipc-sdk/internal/domain/transport"
)

// Subprotocol negotiated during the WebSocket handshake.
const Subprotocol = "ipc"

var upgrader = websocket.Upgrader{
	Subprotocols: []string{Subprotocol},
	CheckOrigin: func(_ *http.Request) bool {
		return true // Allow all origins
	},
}

// Conn wraps a gorilla websocket connection. Writes are serialized with a
// mutex because gorilla connections support one concurrent writer only;
// reads are left unguarded on purpose, the session reader is the sole
// consumer.
type Conn struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// Dial opens a client connection to the given ws:// or wss:// URL.
func Dial(ctx context.Context, url string, header http.Header) (*Conn, error) {
	dialer := *websocket.DefaultDialer
	dialer.Subprotocols = []string{Subprotocol}

	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, errors.Wrapf(err, "websocket dial failed (status %d)", resp.StatusCode)
		}
		return nil, errors.Wrap(err, "websocket dial failed")
	}
	return &Conn{conn: conn}, nil
}

// Upgrade converts an inbound HTTP request into a server-side connection.
func Upgrade(w http.ResponseWriter, r *http.Request) (*Conn, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, errors.Wrap(err, "websocket upgrade failed")
	}
	return &Conn{conn: conn}, nil
}

// Send writes one text frame. Safe for concurrent use.
func (c *Conn) Send(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
		defer func() { _ = c.conn.SetWriteDeadline(time.Time{}) }()
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return errors.Wrap(domain.ErrConnectionClosed, err.Error())
	}
	return nil
}

// Receive blocks until the next text frame arrives. Only the session reader
// may call this. Context cancellation tears the connection down, which is
// the only way to interrupt a blocked gorilla read.
func (c *Conn) Receive(ctx context.Context) ([]byte, error) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-done:
		}
	}()

	for {
		messageType, frame, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, domain.ErrConnectionClosed
		}
		if messageType != websocket.TextMessage {
			// Binary and control frames are not part of the protocol.
			continue
		}
		return frame, nil
	}
}

// Close closes the connection. Subsequent calls return the first result.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		// gorilla's Close drops the network connection without sending
		// or waiting for a close message.
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

var _ transport.Conn = (*Conn)(nil)
