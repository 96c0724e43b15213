package server

import (
	"github.com/FreePeak/golang-ipc-sdk/internal/domain"
	"github.com/FreePeak/golang-ipc-sdk/internal/domain/transport"
	"github.com/FreePeak/golang-ipc-sdk/internal/infrastructure/dispatch"
)

// session is the hub's record of one admitted client. It holds the send half
// of the connection only; the receive side stays with whoever drives the
// ingestion loop. Each session owns its own pending registry so that a
// disconnect cancels exactly the requests in flight to that client.
type session struct {
	info    *domain.ClientSession
	sender  transport.Sender
	pending *dispatch.Registry
}

func newSession(info *domain.ClientSession, sender transport.Sender) *session {
	return &session{
		info:    info,
		sender:  sender,
		pending: dispatch.NewRegistry(),
	}
}

// Identifier returns the identifier the client was admitted under.
func (s *session) Identifier() string {
	return s.info.Identifier
}
