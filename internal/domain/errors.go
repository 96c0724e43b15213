package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrConnectionClosed reports that the underlying connection closed before a
// pending request could complete. It is the settlement reason for every slot
// drained on disconnect.
var ErrConnectionClosed = errors.New("connection closed")

// DuplicateConnectionError indicates an identify attempt for an identifier
// that is already bound, without a valid override key.
type DuplicateConnectionError struct {
	Identifier string
}

// Error returns the error message.
func (e *DuplicateConnectionError) Error() string {
	return fmt.Sprintf("client %q is already connected", e.Identifier)
}

// NewDuplicateConnectionError creates a new DuplicateConnectionError.
func NewDuplicateConnectionError(identifier string) *DuplicateConnectionError {
	return &DuplicateConnectionError{Identifier: identifier}
}

// DuplicateRouteError indicates that a route name was registered twice on the
// same table.
type DuplicateRouteError struct {
	Route string
}

// Error returns the error message.
func (e *DuplicateRouteError) Error() string {
	return fmt.Sprintf("route %q is already registered", e.Route)
}

// NewDuplicateRouteError creates a new DuplicateRouteError.
func NewDuplicateRouteError(route string) *DuplicateRouteError {
	return &DuplicateRouteError{Route: route}
}

// UnknownRouteError indicates a request for a route absent from the local
// table.
type UnknownRouteError struct {
	Route string
}

// Error returns the error message.
func (e *UnknownRouteError) Error() string {
	return fmt.Sprintf("no route registered for %q", e.Route)
}

// NewUnknownRouteError creates a new UnknownRouteError.
func NewUnknownRouteError(route string) *UnknownRouteError {
	return &UnknownRouteError{Route: route}
}

// UnknownClientError indicates a unicast target that is not in the session
// map, or an omitted target that could not be defaulted unambiguously.
type UnknownClientError struct {
	Identifier string
	Reason     string
}

// Error returns the error message.
func (e *UnknownClientError) Error() string {
	if e.Identifier == "" {
		return fmt.Sprintf("cannot pick a default client: %s", e.Reason)
	}
	return fmt.Sprintf("no connected client %q", e.Identifier)
}

// NewUnknownClientError creates a new UnknownClientError for an explicit
// identifier.
func NewUnknownClientError(identifier string) *UnknownClientError {
	return &UnknownClientError{Identifier: identifier}
}

// NewAmbiguousClientError creates an UnknownClientError for a defaulted
// target that was ambiguous or absent.
func NewAmbiguousClientError(reason string) *UnknownClientError {
	return &UnknownClientError{Reason: reason}
}

// UnknownPacketError indicates a frame that was well-formed as JSON but
// structurally invalid as a packet.
type UnknownPacketError struct {
	Cause error
}

// Error returns the error message.
func (e *UnknownPacketError) Error() string {
	return fmt.Sprintf("invalid packet: %v", e.Cause)
}

// Unwrap returns the underlying cause.
func (e *UnknownPacketError) Unwrap() error {
	return e.Cause
}

// NewUnknownPacketError creates a new UnknownPacketError.
func NewUnknownPacketError(cause error) *UnknownPacketError {
	return &UnknownPacketError{Cause: cause}
}

// UnhandledTypeError indicates an inbound frame whose type value is not one
// the receiver dispatches. The frame is discarded; the session stays alive.
type UnhandledTypeError struct {
	Type string
}

// Error returns the error message.
func (e *UnhandledTypeError) Error() string {
	return fmt.Sprintf("unhandled websocket packet type %q", e.Type)
}

// NewUnhandledTypeError creates a new UnhandledTypeError.
func NewUnhandledTypeError(typ string) *UnhandledTypeError {
	return &UnhandledTypeError{Type: typ}
}

// MissingHandlerError indicates that a reader was asked to dispatch a request
// without an attached route table.
type MissingHandlerError struct{}

// Error returns the error message.
func (e *MissingHandlerError) Error() string {
	return "no route table attached to this session"
}

// NewMissingHandlerError creates a new MissingHandlerError.
func NewMissingHandlerError() *MissingHandlerError {
	return &MissingHandlerError{}
}

// RequestFailedError reports that the remote handler raised. Cause carries
// the stringified reason from the failure_response frame.
type RequestFailedError struct {
	Cause string
}

// Error returns the error message.
func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("remote handler failed: %s", e.Cause)
}

// NewRequestFailedError creates a new RequestFailedError.
func NewRequestFailedError(cause string) *RequestFailedError {
	return &RequestFailedError{Cause: cause}
}

// IsDuplicateConnection checks if an error is a DuplicateConnectionError.
func IsDuplicateConnection(err error) bool {
	var target *DuplicateConnectionError
	return errors.As(err, &target)
}

// IsDuplicateRoute checks if an error is a DuplicateRouteError.
func IsDuplicateRoute(err error) bool {
	var target *DuplicateRouteError
	return errors.As(err, &target)
}

// IsUnknownRoute checks if an error is an UnknownRouteError.
func IsUnknownRoute(err error) bool {
	var target *UnknownRouteError
	return errors.As(err, &target)
}

// IsUnknownClient checks if an error is an UnknownClientError.
func IsUnknownClient(err error) bool {
	var target *UnknownClientError
	return errors.As(err, &target)
}

// IsRequestFailed checks if an error is a RequestFailedError.
func IsRequestFailed(err error) bool {
	var target *RequestFailedError
	return errors.As(err, &target)
}

// IsConnectionClosed checks if an error is ErrConnectionClosed.
func IsConnectionClosed(err error) bool {
	return errors.Is(err, ErrConnectionClosed)
}
