package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "duplicate connection",
			err:  NewDuplicateConnectionError("x"),
			want: `client "x" is already connected`,
		},
		{
			name: "duplicate route",
			err:  NewDuplicateRouteError("ping"),
			want: `route "ping" is already registered`,
		},
		{
			name: "unknown route",
			err:  NewUnknownRouteError("nope"),
			want: `no route registered for "nope"`,
		},
		{
			name: "unknown client",
			err:  NewUnknownClientError("ghost"),
			want: `no connected client "ghost"`,
		},
		{
			name: "ambiguous client",
			err:  NewAmbiguousClientError("no clients connected"),
			want: "cannot pick a default client: no clients connected",
		},
		{
			name: "unhandled type",
			err:  NewUnhandledTypeError("mystery"),
			want: `unhandled websocket packet type "mystery"`,
		},
		{
			name: "missing handler",
			err:  NewMissingHandlerError(),
			want: "no route table attached to this session",
		},
		{
			name: "request failed",
			err:  NewRequestFailedError("boom"),
			want: "remote handler failed: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestUnknownPacketError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("bad json")
	err := NewUnknownPacketError(cause)
	assert.Equal(t, cause, err.Unwrap())
	assert.Contains(t, err.Error(), "bad json")
}

func TestIsHelpers(t *testing.T) {
	assert.True(t, IsDuplicateConnection(NewDuplicateConnectionError("x")))
	assert.False(t, IsDuplicateConnection(NewDuplicateRouteError("x")))

	assert.True(t, IsDuplicateRoute(NewDuplicateRouteError("ping")))
	assert.True(t, IsUnknownRoute(NewUnknownRouteError("nope")))
	assert.True(t, IsUnknownClient(NewUnknownClientError("ghost")))
	assert.True(t, IsRequestFailed(NewRequestFailedError("boom")))

	assert.True(t, IsConnectionClosed(ErrConnectionClosed))
	assert.False(t, IsConnectionClosed(NewRequestFailedError("boom")))
}

func TestIsHelpers_WrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("while admitting: %w", NewDuplicateConnectionError("x"))
	assert.True(t, IsDuplicateConnection(wrapped))

	wrappedClosed := fmt.Errorf("send failed: %w", ErrConnectionClosed)
	assert.True(t, IsConnectionClosed(wrappedClosed))
}
