// Package testutil provides in-memory test doubles for the duplex
// connection so session and hub tests can run without opening sockets.
package testutil

import (
	"context"
	"sync"

	"github.com/FreePeak/golang-ipc-sdk/internal/domain"
	"github.com/FreePeak/golang-ipc-sdk/internal/domain/transport"
)

// PipeConn is one end of an in-memory duplex connection. Frames sent on one
// end arrive at the other end's Receive in FIFO order, mirroring the
// ordering guarantee of a real text-frame transport.
type PipeConn struct {
	name string
	in   chan []byte
	out  chan []byte
	done chan struct{}
	once sync.Once
	peer *PipeConn
}

// NewPipe creates a connected pair of in-memory connections.
func NewPipe() (*PipeConn, *PipeConn) {
	a2b := make(chan []byte, 64)
	b2a := make(chan []byte, 64)

	a := &PipeConn{name: "pipe-a", in: b2a, out: a2b, done: make(chan struct{})}
	b := &PipeConn{name: "pipe-b", in: a2b, out: b2a, done: make(chan struct{})}
	a.peer = b
	b.peer = a
	return a, b
}

// Send delivers one frame to the peer. Fails with ErrConnectionClosed once
// either end is closed.
func (c *PipeConn) Send(ctx context.Context, frame []byte) error {
	// Copy so the sender can reuse its buffer.
	buf := make([]byte, len(frame))
	copy(buf, frame)

	// Check the close first: a select with several ready cases picks one at
	// random, so free buffer space could otherwise win over the close.
	select {
	case <-c.done:
		return domain.ErrConnectionClosed
	default:
	}

	select {
	case <-c.done:
		return domain.ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	case c.out <- buf:
		return nil
	}
}

// Receive blocks for the next frame from the peer.
func (c *PipeConn) Receive(ctx context.Context) ([]byte, error) {
	select {
	case frame := <-c.in:
		return frame, nil
	case <-c.done:
		// Drain frames that were already in flight before the close.
		select {
		case frame := <-c.in:
			return frame, nil
		default:
			return nil, domain.ErrConnectionClosed
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close closes both ends, unblocking any pending Receive.
func (c *PipeConn) Close() error {
	c.once.Do(func() { close(c.done) })
	if peer := c.peer; peer != nil {
		peer.once.Do(func() { close(peer.done) })
	}
	return nil
}

// RemoteAddr identifies the fake peer.
func (c *PipeConn) RemoteAddr() string {
	return c.name
}

var _ transport.Conn = (*PipeConn)(nil)

// RecordingSender is a transport.Sender that records every frame, for tests
// that only need to observe the send side.
type RecordingSender struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
}

// Send records the frame.
func (s *RecordingSender) Send(_ context.Context, frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrConnectionClosed
	}
	buf := make([]byte, len(frame))
	copy(buf, frame)
	s.frames = append(s.frames, buf)
	return nil
}

// Close marks the sender closed.
func (s *RecordingSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Frames returns a copy of everything sent so far.
func (s *RecordingSender) Frames() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.frames))
	copy(out, s.frames)
	return out
}

// Closed reports whether Close was called.
func (s *RecordingSender) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

var _ transport.Sender = (*RecordingSender)(nil)
