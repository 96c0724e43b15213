package transport

import "context"

// Sender is the send half of a duplex connection. Every component except the
// session's reader works against this interface; the receive primitive is
// deliberately absent so that the single-reader rule is enforced by the type
// system rather than by convention.
type Sender interface {
	// Send writes one text frame.
	Send(ctx context.Context, frame []byte) error

	// Close closes the connection. Closing an already-closed connection is
	// a no-op.
	Close() error
}

// Conn is a full duplex text-frame connection. Exactly one goroutine per
// session may call Receive.
type Conn interface {
	Sender

	// Receive blocks until the next text frame arrives, the connection
	// closes, or the context is cancelled.
	Receive(ctx context.Context) ([]byte, error)

	// RemoteAddr describes the peer, for session records and logs.
	RemoteAddr() string
}
