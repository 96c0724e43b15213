// Package domain defines the core entities of the IPC fabric: the error
// taxonomy and the records the server keeps about connected clients.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ClientSession describes one admitted client from the server's point of
// view. The identifier is the key into the hub's session map.
type ClientSession struct {
	Identifier  string
	RemoteAddr  string
	ConnectedAt time.Time
}

// NewClientSession creates a ClientSession record. An empty identifier is
// replaced with a freshly generated one, which is how the server assigns
// identities to clients that connect without one.
func NewClientSession(identifier, remoteAddr string) *ClientSession {
	if identifier == "" {
		identifier = uuid.New().String()
	}
	return &ClientSession{
		Identifier:  identifier,
		RemoteAddr:  remoteAddr,
		ConnectedAt: time.Now(),
	}
}

// OverridePolicy controls how the server treats an identify attempt carrying
// an override key that does not match the configured secret.
type OverridePolicy int

const (
	// OverrideSilent rejects the attempt without reporting an admission
	// error to the caller beyond the duplicate-connection failure.
	OverrideSilent OverridePolicy = iota
	// OverrideStrict surfaces invalid override attempts as errors.
	OverrideStrict
)
